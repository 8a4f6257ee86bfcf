package commands

import (
	"context"
	"flag"
	"io"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/output"
)

func init() {
	Register(&SyncCmd{})
	Register(&ServeCmd{})
}

// SyncCmd implements the sync command: one pass, then exit.
type SyncCmd struct{}

func (c *SyncCmd) Name() string      { return "sync" }
func (c *SyncCmd) Aliases() []string { return nil }
func (c *SyncCmd) Synopsis() string  { return "Synchronize with the remote service once" }
func (c *SyncCmd) Usage() string     { return "todosync sync [common flags]" }
func (c *SyncCmd) NeedsEngine() bool { return true }

func (c *SyncCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *SyncCmd) Run(ctx context.Context, cfg *config.Config, eng Engine, args []string, out, errOut io.Writer) int {
	report, err := eng.RunPass(ctx)
	if err != nil {
		return backendError(errOut, err)
	}

	if !cfg.Quiet {
		output.FormatReport(out, report)
	}
	return exitcode.Success
}

// ServeCmd implements the serve command: periodic passes plus the HTTP API.
type ServeCmd struct{}

func (c *ServeCmd) Name() string      { return "serve" }
func (c *ServeCmd) Aliases() []string { return nil }
func (c *ServeCmd) Synopsis() string  { return "Run the synchronizer and the HTTP API" }
func (c *ServeCmd) Usage() string     { return "todosync serve [common flags]" }
func (c *ServeCmd) NeedsEngine() bool { return true }

func (c *ServeCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ServeCmd) Run(ctx context.Context, cfg *config.Config, eng Engine, args []string, out, errOut io.Writer) int {
	if err := eng.Serve(ctx); err != nil {
		return backendError(errOut, err)
	}
	return exitcode.Success
}
