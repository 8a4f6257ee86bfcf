package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/output"
	"todosync/internal/service"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `todosync` (no args) and `todosync list <list-name>`.
type ListCmd struct {
	all bool
}

// SetAll sets the --all flag (for testing).
func (c *ListCmd) SetAll(all bool) {
	c.all = all
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return nil }
func (c *ListCmd) Synopsis() string  { return "List items" }
func (c *ListCmd) Usage() string     { return "todosync list [--all] [<list-name>]" }
func (c *ListCmd) NeedsEngine() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.all, "all", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, eng Engine, args []string, out, errOut io.Writer) int {
	svc := eng.Tasks()
	if len(args) == 0 {
		return c.listAll(ctx, cfg, svc, out, errOut)
	}
	return c.listOne(ctx, svc, strings.Join(args, " "), out, errOut)
}

// listAll prints the open items of every list, lettered a-z.
func (c *ListCmd) listAll(ctx context.Context, cfg *config.Config, svc service.Service, out, errOut io.Writer) int {
	lists, err := letteredLists(ctx, svc)
	if err != nil {
		return backendError(errOut, err)
	}

	if len(lists) > 26 {
		fmt.Fprintln(errOut, "error: too many lists (max 26)")
		return exitcode.UserError
	}

	letter := 'a'
	for _, list := range lists {
		output.FormatListHeader(out, letter, list.Name)
		for i, item := range list.OpenItems() {
			output.FormatItem(out, i+1, item)
		}
		letter++
	}

	if len(lists) == 0 && !cfg.Quiet {
		fmt.Fprintln(out, "no items found")
	}
	return exitcode.Success
}

// listOne prints one list. Completed items are shown after the open ones
// with --all, unnumbered.
func (c *ListCmd) listOne(ctx context.Context, svc service.Service, name string, out, errOut io.Writer) int {
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Fprintln(errOut, "error: list name required")
		return exitcode.UserError
	}

	list, err := svc.ResolveList(ctx, name)
	if err != nil {
		return listError(errOut, name, err)
	}

	output.FormatListHeader(out, 0, list.Name)
	for i, item := range list.OpenItems() {
		output.FormatItem(out, i+1, item)
	}
	if c.all {
		for _, item := range list.Items {
			if item.Completed && !item.Deleted {
				output.FormatItem(out, 0, item)
			}
		}
	}
	return exitcode.Success
}
