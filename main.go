package main

import (
	"os"

	"dsjson/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(cli.NewRootCommand(os.Stdout, os.Stderr, version, nil).Execute(os.Args[1:]))
}
