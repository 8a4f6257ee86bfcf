// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	"todosync/internal/config"
	"todosync/internal/service"
	"todosync/internal/syncer"
)

// Engine is what commands operate on: the local task service plus the
// synchronizer.
type Engine interface {
	// Tasks returns the local task service.
	Tasks() service.Service

	// RunPass runs one synchronization pass.
	RunPass(ctx context.Context) (syncer.Report, error)

	// Serve runs the scheduler and the HTTP API until ctx is cancelled.
	Serve(ctx context.Context) error
}

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsEngine returns true if the command works on the task database.
	// Commands like help, version, login, logout return false.
	NeedsEngine() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command.
	// cfg is always provided (config dir, paths); its settings are loaded
	// when NeedsEngine() returns true.
	// eng is nil if NeedsEngine() returns false.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, eng Engine, args []string, out, errOut io.Writer) int
}
