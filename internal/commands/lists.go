package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/output"
)

func init() {
	Register(&ListsCmd{})
}

// ListsCmd implements the lists command.
type ListsCmd struct{}

func (c *ListsCmd) Name() string      { return "lists" }
func (c *ListsCmd) Aliases() []string { return nil }
func (c *ListsCmd) Synopsis() string  { return "Print all lists with their sync status" }
func (c *ListsCmd) Usage() string     { return "todosync lists [common flags]" }
func (c *ListsCmd) NeedsEngine() bool { return true }

func (c *ListsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ListsCmd) Run(ctx context.Context, cfg *config.Config, eng Engine, args []string, out, errOut io.Writer) int {
	lists, err := eng.Tasks().ListLists(ctx)
	if err != nil {
		return backendError(errOut, err)
	}

	for _, list := range lists {
		output.FormatListName(out, list)
	}
	if len(lists) == 0 && !cfg.Quiet {
		fmt.Fprintln(out, "no lists found")
	}
	return exitcode.Success
}
