// Package cli is the dsjson command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"dsjson/internal/app"
	"dsjson/internal/config"
	"dsjson/internal/logger"
	"dsjson/internal/secret"
)

const description = `dsjson moves datasets between table stores and JSON documents.

A document has the shape
  {"dataset_label": ..., "metadata": [...], "data": [...]}
and carries every column descriptor, so an exported dataset imports back
with the same columns, order, labels and formats.`

type rootCommand struct {
	cmd        *cobra.Command
	stdout     io.Writer
	stderr     io.Writer
	version    string
	configPath string
	debug      config.YesNo
	pretty     bool

	options config.Options // file and environment, before command flags
	logger  zerolog.Logger
	secrets secret.SecretStore
	app     *app.App
}

// NewRootCommand creates the parent of all sub-commands. A nil secret
// store uses secret.Default.
func NewRootCommand(stdout, stderr io.Writer, version string, secrets secret.SecretStore) *rootCommand {
	root := &rootCommand{stdout: stdout, stderr: stderr, version: version, secrets: secrets, logger: logger.Nop()}

	root.cmd = &cobra.Command{
		Use:           "dsjson",
		Version:       version,
		Short:         "Export and import datasets as JSON documents",
		Long:          description,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.cmd.SetOut(stdout)
	root.cmd.SetErr(stderr)

	// Persistent flags for all sub-commands
	flags := root.cmd.PersistentFlags()
	flags.StringVarP(&root.configPath, "config", "c", "", "YAML options file")
	flags.Var(&root.debug, "debug", "trace every step (YES|NO)")
	flags.BoolVar(&root.pretty, "pretty", false, "human-readable log output")

	root.cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return root.init(cmd)
	}

	root.cmd.AddCommand(
		exportCommand(root),
		importCommand(root),
		compareCommand(root),
		describeCommand(root),
		watchCommand(root),
		mcpCommand(root),
	)
	return root
}

// init loads file and environment options and builds the logger.
func (root *rootCommand) init(cmd *cobra.Command) error {
	opts, err := config.Load(root.configPath)
	if err != nil {
		return err
	}
	if f := cmd.Flags().Lookup("debug"); f != nil && f.Changed {
		opts.Debug = root.debug
	}
	if root.pretty {
		opts.Pretty = true
	}
	root.options = opts
	root.logger = logger.New(logger.Options{Debug: bool(opts.Debug), Pretty: opts.Pretty, Out: root.stderr})
	root.app = app.New(root.secrets)
	return nil
}

// runContext returns a context cancelled on SIGINT/SIGTERM that carries a
// logger tagged with a fresh run ID.
func (root *rootCommand) runContext(op string) (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, _ = logger.WithRun(ctx, root.logger, op)
	return ctx, cancel
}

// Execute runs the command line and returns the process exit code.
func (root *rootCommand) Execute(args []string) (exitCode int) {
	root.cmd.SetArgs(args)
	if err := root.cmd.Execute(); err != nil {
		if root.logger.GetLevel() == zerolog.Disabled {
			// failed before init, e.g. an unknown flag
			fmt.Fprintln(root.stderr, "Error:", err)
			return 1
		}
		root.logger.Error().Err(err).Msg("dsjson failed")
		return 1
	}
	return 0
}
