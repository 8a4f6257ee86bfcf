package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"todosync/internal/config"
	"todosync/internal/exitcode"
	"todosync/internal/service"
)

// errNoList means neither --list nor a list letter picked a list and there
// is more than one to choose from.
var errNoList = errors.New("list required (use a list letter or --list)")

// letteredLists returns the live lists that have open items, in the order
// they get letters a-z.
func letteredLists(ctx context.Context, svc service.Service) ([]service.TaskList, error) {
	lists, err := svc.ListLists(ctx)
	if err != nil {
		return nil, err
	}
	var result []service.TaskList
	for _, list := range lists {
		if len(list.OpenItems()) == 0 {
			continue
		}
		result = append(result, list)
	}
	return result, nil
}

// targetList picks the list a command works on: the --list flag, a list
// letter, or the only live list. On failure it reports to errOut and
// returns a non-zero exit code.
func targetList(ctx context.Context, svc service.Service, listName string, ref TaskRef, errOut io.Writer) (service.TaskList, int) {
	switch {
	case listName != "":
		list, err := svc.ResolveList(ctx, listName)
		if err != nil {
			return service.TaskList{}, listError(errOut, listName, err)
		}
		return list, exitcode.Success

	case ref.HasLetter:
		list, err := ResolveListByLetter(ctx, svc, ref.Letter)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				fmt.Fprintf(errOut, "error: list letter not found: %c\n", ref.Letter)
				return service.TaskList{}, exitcode.UserError
			}
			return service.TaskList{}, backendError(errOut, err)
		}
		return list, exitcode.Success

	default:
		lists, err := svc.ListLists(ctx)
		if err != nil {
			return service.TaskList{}, backendError(errOut, err)
		}
		if len(lists) != 1 {
			fmt.Fprintf(errOut, "error: %v\n", errNoList)
			return service.TaskList{}, exitcode.UserError
		}
		return lists[0], exitcode.Success
	}
}

// findItemByNumber returns the num-th (1-based) open item of a list.
func findItemByNumber(list service.TaskList, num int) (service.TaskItem, error) {
	open := list.OpenItems()
	if num < 1 || num > len(open) {
		return service.TaskItem{}, fmt.Errorf("item number out of range: %d", num)
	}
	return open[num-1], nil
}

func listError(errOut io.Writer, name string, err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		fmt.Fprintf(errOut, "error: list not found: %s\n", name)
		return exitcode.UserError
	case errors.Is(err, service.ErrAmbiguous):
		fmt.Fprintf(errOut, "error: ambiguous list name: %s\n", name)
		return exitcode.UserError
	default:
		return backendError(errOut, err)
	}
}

func backendError(errOut io.Writer, err error) int {
	if errors.Is(err, config.ErrNotConfigured) {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}
	fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	return exitcode.BackendError
}
