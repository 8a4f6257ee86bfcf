package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"todosync/internal/config"
	"todosync/internal/exitcode"
)

func init() {
	Register(&AddCmd{})
	Register(&CreateCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	listName string
}

// SetListName sets the list name (for testing).
func (c *AddCmd) SetListName(name string) {
	c.listName = name
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return nil }
func (c *AddCmd) Synopsis() string  { return "Add an item to a list" }
func (c *AddCmd) Usage() string     { return "todosync add [--list <list-name>] <description...>" }
func (c *AddCmd) NeedsEngine() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, eng Engine, args []string, out, errOut io.Writer) int {
	return runAdd(ctx, cfg, eng, c.listName, args, out, errOut)
}

// CreateCmd is an alias for AddCmd.
type CreateCmd struct {
	listName string
}

func (c *CreateCmd) Name() string      { return "create" }
func (c *CreateCmd) Aliases() []string { return nil }
func (c *CreateCmd) Synopsis() string  { return "Add an item to a list (alias for add)" }
func (c *CreateCmd) Usage() string     { return "todosync create [--list <list-name>] <description...>" }
func (c *CreateCmd) NeedsEngine() bool { return true }

func (c *CreateCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
}

func (c *CreateCmd) Run(ctx context.Context, cfg *config.Config, eng Engine, args []string, out, errOut io.Writer) int {
	return runAdd(ctx, cfg, eng, c.listName, args, out, errOut)
}

// runAdd is the shared implementation for add and create commands.
func runAdd(ctx context.Context, cfg *config.Config, eng Engine, listName string, args []string, out, errOut io.Writer) int {
	description := strings.TrimSpace(strings.Join(args, " "))
	if description == "" {
		fmt.Fprintln(errOut, "error: description required")
		return exitcode.UserError
	}

	svc := eng.Tasks()
	list, code := targetList(ctx, svc, listName, TaskRef{}, errOut)
	if code != exitcode.Success {
		return code
	}

	if _, err := svc.CreateItem(ctx, list.ID, description); err != nil {
		return backendError(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
