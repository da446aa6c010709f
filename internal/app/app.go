package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"dsjson/internal/config"
	"dsjson/internal/logger"
	"dsjson/internal/secret"
	"dsjson/internal/service"
	"dsjson/internal/trigger"
)

// App wires configuration into the dataset service. Every CLI command and
// the MCP server go through it.
type App struct {
	Datasets *service.DatasetService
}

// New creates an App. A nil secret store uses the environment (and the
// keychain on macOS).
func New(secrets secret.SecretStore) *App {
	if secrets == nil {
		secrets = secret.Default()
	}
	return &App{Datasets: service.NewDatasetService(secrets, nil)}
}

// ── Runs ───────────────────────────────────────────────────

// Export runs one export: Input is the library, Output the document
// directory.
func (a *App) Export(ctx context.Context, o config.Options) (*service.ExportResult, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return a.Datasets.Export(ctx, service.ExportInput{
		Library:  o.Input,
		Dataset:  o.Dataset,
		Output:   o.Output,
		Document: o.DocumentName(),
	})
}

// Import runs one import: Input is the document directory, Output the
// library. With Compare set, the result carries a comparison report
// against Reference.
func (a *App) Import(ctx context.Context, o config.Options) (*service.ImportResult, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	in := service.ImportInput{
		Input:    o.Input,
		Document: o.DocumentName(),
		Library:  o.Output,
		Dataset:  o.Dataset,
	}
	if o.Compare {
		in.Reference = o.Reference
	}
	return a.Datasets.Import(ctx, in)
}

// ── Triggers ───────────────────────────────────────────────

// ScheduleExport runs Export on a cron schedule until ctx is done. Each
// tick gets its own run ID.
func (a *App) ScheduleExport(ctx context.Context, o config.Options, expr string) error {
	if err := o.Validate(); err != nil {
		return err
	}
	base := *zerolog.Ctx(ctx)
	sched := trigger.NewScheduler(ctx)
	err := sched.Add(expr, "export "+o.Dataset, func(ctx context.Context) error {
		runCtx, _ := logger.WithRun(ctx, base, "export")
		_, err := a.Export(runCtx, o)
		return err
	})
	if err != nil {
		return &config.ConfigurationError{Option: "schedule", Reason: err.Error()}
	}

	sched.Start()
	<-ctx.Done()
	sched.Stop()
	a.Datasets.WaitRunning(context.Background())
	return nil
}

// WatchOptions configures Watch. Dataset names come from file stems.
type WatchOptions struct {
	Dir       string // document directory
	Library   string // output library
	Reference string // compare each import against this library when set
}

// Watch imports every *.json written into Dir until ctx is done.
func (a *App) Watch(ctx context.Context, o WatchOptions) error {
	if o.Dir == "" {
		return &config.ConfigurationError{Option: "input"}
	}
	if o.Library == "" {
		return &config.ConfigurationError{Option: "output"}
	}
	base := *zerolog.Ctx(ctx)

	w := trigger.NewWatcher(o.Dir, func(ctx context.Context, name string) error {
		dataset := datasetFromFile(name)
		runCtx, _ := logger.WithRun(ctx, base, "import")
		_, err := a.Datasets.Import(runCtx, service.ImportInput{
			Input:     o.Dir,
			Document:  name,
			Library:   o.Library,
			Dataset:   dataset,
			Reference: o.Reference,
		})
		if err != nil {
			return fmt.Errorf("import %s: %w", name, err)
		}
		return nil
	})
	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	w.Stop()
	return nil
}

func datasetFromFile(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
