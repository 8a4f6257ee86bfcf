package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/service"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct {
	listName string
}

// SetListName sets the list name (for testing).
func (c *DoneCmd) SetListName(name string) {
	c.listName = name
}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return nil }
func (c *DoneCmd) Synopsis() string  { return "Mark an item completed" }
func (c *DoneCmd) Usage() string     { return "todosync done [--list <list-name>] <ref>" }
func (c *DoneCmd) NeedsEngine() bool { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, eng Engine, args []string, out, errOut io.Writer) int {
	svc := eng.Tasks()
	item, code := resolveItem(ctx, svc, c.listName, args, errOut)
	if code != exitcode.Success {
		return code
	}

	if err := svc.CompleteItem(ctx, item.ID); err != nil {
		return itemError(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// resolveItem parses an item reference and finds the open item it points at.
func resolveItem(ctx context.Context, svc service.Service, listName string, args []string, errOut io.Writer) (service.TaskItem, int) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.TaskItem{}, exitcode.UserError
	}

	if listName != "" && ref.HasLetter {
		fmt.Fprintln(errOut, "error: cannot use both --list and list letter")
		return service.TaskItem{}, exitcode.UserError
	}

	if ref.TaskNum < 1 {
		fmt.Fprintf(errOut, "error: item number out of range: %d\n", ref.TaskNum)
		return service.TaskItem{}, exitcode.UserError
	}

	list, code := targetList(ctx, svc, listName, ref, errOut)
	if code != exitcode.Success {
		return service.TaskItem{}, code
	}

	item, err := findItemByNumber(list, ref.TaskNum)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.TaskItem{}, exitcode.UserError
	}
	return item, exitcode.Success
}

// itemError reports a failed item write. An item removed in the meantime is
// a user error.
func itemError(errOut io.Writer, err error) int {
	if errors.Is(err, service.ErrNotFound) {
		fmt.Fprintln(errOut, "error: item no longer exists")
		return exitcode.UserError
	}
	return backendError(errOut, err)
}
