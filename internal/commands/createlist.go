package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/service"
)

func init() {
	Register(&CreateListCmd{})
	Register(&AddListCmd{})
	Register(&RenameListCmd{})
}

// CreateListCmd implements the createlist command.
type CreateListCmd struct{}

func (c *CreateListCmd) Name() string      { return "createlist" }
func (c *CreateListCmd) Aliases() []string { return nil }
func (c *CreateListCmd) Synopsis() string  { return "Create a new list" }
func (c *CreateListCmd) Usage() string     { return "todosync createlist [common flags] <list-name>" }
func (c *CreateListCmd) NeedsEngine() bool { return true }

func (c *CreateListCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *CreateListCmd) Run(ctx context.Context, cfg *config.Config, eng Engine, args []string, out, errOut io.Writer) int {
	return runCreateList(ctx, cfg, eng.Tasks(), args, out, errOut)
}

// AddListCmd is an alias for CreateListCmd.
type AddListCmd struct{}

func (c *AddListCmd) Name() string      { return "addlist" }
func (c *AddListCmd) Aliases() []string { return nil }
func (c *AddListCmd) Synopsis() string  { return "Create a new list (alias for createlist)" }
func (c *AddListCmd) Usage() string     { return "todosync addlist [common flags] <list-name>" }
func (c *AddListCmd) NeedsEngine() bool { return true }

func (c *AddListCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *AddListCmd) Run(ctx context.Context, cfg *config.Config, eng Engine, args []string, out, errOut io.Writer) int {
	return runCreateList(ctx, cfg, eng.Tasks(), args, out, errOut)
}

// runCreateList is the shared implementation for createlist and addlist commands.
func runCreateList(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		fmt.Fprintln(errOut, "error: list name required")
		return exitcode.UserError
	}

	if code := requireFreeName(ctx, svc, name, errOut); code != exitcode.Success {
		return code
	}

	if _, err := svc.CreateList(ctx, name); err != nil {
		return backendError(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// RenameListCmd implements the renamelist command.
type RenameListCmd struct {
	to string
}

// SetTo sets the new name (for testing).
func (c *RenameListCmd) SetTo(name string) {
	c.to = name
}

func (c *RenameListCmd) Name() string      { return "renamelist" }
func (c *RenameListCmd) Aliases() []string { return nil }
func (c *RenameListCmd) Synopsis() string  { return "Rename a list" }
func (c *RenameListCmd) Usage() string     { return "todosync renamelist --to <new-name> <list-name>" }
func (c *RenameListCmd) NeedsEngine() bool { return true }

func (c *RenameListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.to, "to", "", "")
}

func (c *RenameListCmd) Run(ctx context.Context, cfg *config.Config, eng Engine, args []string, out, errOut io.Writer) int {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		fmt.Fprintln(errOut, "error: list name required")
		return exitcode.UserError
	}
	to := strings.TrimSpace(c.to)
	if to == "" {
		fmt.Fprintln(errOut, "error: new name required (use --to)")
		return exitcode.UserError
	}

	svc := eng.Tasks()
	list, err := svc.ResolveList(ctx, name)
	if err != nil {
		return listError(errOut, name, err)
	}

	// Changing only the case of a name is allowed.
	if !strings.EqualFold(to, list.Name) {
		if code := requireFreeName(ctx, svc, to, errOut); code != exitcode.Success {
			return code
		}
	}

	if _, err := svc.RenameList(ctx, list.ID, to); err != nil {
		return backendError(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// requireFreeName fails if a live list already has name.
func requireFreeName(ctx context.Context, svc service.Service, name string, errOut io.Writer) int {
	_, err := svc.ResolveList(ctx, name)
	switch {
	case err == nil, errors.Is(err, service.ErrAmbiguous):
		fmt.Fprintf(errOut, "error: list already exists: %s\n", name)
		return exitcode.UserError
	case errors.Is(err, service.ErrNotFound):
		return exitcode.Success
	default:
		return backendError(errOut, err)
	}
}
