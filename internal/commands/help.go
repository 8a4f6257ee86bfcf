package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"todosync/internal/config"
	"todosync/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "todosync help [config]" }
func (c *HelpCmd) NeedsEngine() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, eng Engine, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(out, helpText)
		fmt.Fprintln(out, "\nCommands:")
		for _, cmd := range DefaultRegistry.All() {
			fmt.Fprintf(out, "  %-12s %s\n", cmd.Name(), cmd.Synopsis())
		}
		return exitcode.Success
	}

	switch args[0] {
	case "config":
		text, err := config.Describe()
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.AuthError
		}
		fmt.Fprintf(out, "Settings are read from %s, then from the environment.\n\n", config.SettingsFile)
		fmt.Fprint(out, text)
		return exitcode.Success
	default:
		fmt.Fprintf(errOut, "error: unknown help topic: %s\n", args[0])
		return exitcode.UserError
	}
}

const helpText = `Usage:
  todosync                                           List open items of all lists
  todosync list [common flags] [--all] <list-name>   List items of one list
  todosync add [common flags] [--list <list-name>] <description...>
  todosync create [common flags] [--list <list-name>] <description...>
  todosync done [common flags] [--list <list-name>] <ref>
  todosync rm [common flags] [--list <list-name>] <ref>
  todosync lists [common flags]
  todosync createlist [common flags] <list-name>
  todosync addlist [common flags] <list-name>
  todosync renamelist [common flags] --to <new-name> <list-name>
  todosync rmlist [common flags] [--force] <list-name>
  todosync sync [common flags]
  todosync serve [common flags]
  todosync login [common flags]
  todosync logout [common flags]
  todosync help [config]
  todosync version

Item references:
  a3   third open item of list a (letters as shown by todosync)
  3    third open item of the --list list, or of the only list

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
