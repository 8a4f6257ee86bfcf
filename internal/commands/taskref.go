package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"unicode"

	"todosync/internal/service"
)

// TaskRef represents a parsed item reference.
type TaskRef struct {
	Letter    rune // 0 if no letter, 'a'-'z' otherwise
	TaskNum   int  // 1-based item number
	HasLetter bool // true if a list letter was provided
}

// ErrTaskRefRequired indicates no item reference was provided.
var ErrTaskRefRequired = errors.New("item reference required")

// ParseTaskRef parses an item reference from args.
//
// Accepted forms:
//  1. all digits (3): item of the list picked by --list or the only list
//  2. letter and digits (a1, b12)
//  3. letter, then digits as the next arg (a 1)
//
// A lone letter is ErrTaskRefRequired; anything else is invalid.
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}

	firstArg := args[0]

	if isAllDigits(firstArg) {
		num, err := strconv.Atoi(firstArg)
		if err != nil {
			return TaskRef{}, fmt.Errorf("invalid item reference: %s", firstArg)
		}
		return TaskRef{TaskNum: num}, nil
	}

	if len(firstArg) > 0 && isLetter(rune(firstArg[0])) {
		letter := rune(firstArg[0])

		if len(firstArg) > 1 && isAllDigits(firstArg[1:]) {
			num, err := strconv.Atoi(firstArg[1:])
			if err != nil {
				return TaskRef{}, fmt.Errorf("invalid item reference: %s", firstArg)
			}
			return TaskRef{Letter: letter, TaskNum: num, HasLetter: true}, nil
		}

		if len(firstArg) == 1 {
			if len(args) < 2 {
				return TaskRef{}, ErrTaskRefRequired
			}
			if isAllDigits(args[1]) {
				num, err := strconv.Atoi(args[1])
				if err != nil {
					return TaskRef{}, fmt.Errorf("invalid item reference: %s", args[1])
				}
				return TaskRef{Letter: letter, TaskNum: num, HasLetter: true}, nil
			}
			return TaskRef{}, fmt.Errorf("invalid item reference: %s", firstArg)
		}
	}

	return TaskRef{}, fmt.Errorf("invalid item reference: %s", firstArg)
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// isLetter returns true if r is a lowercase letter a-z.
func isLetter(r rune) bool {
	return r >= 'a' && r <= 'z'
}

// ResolveListByLetter returns the list shown under letter by the list
// command: live lists with open items, lettered from 'a' in id order.
func ResolveListByLetter(ctx context.Context, svc service.Service, letter rune) (service.TaskList, error) {
	lists, err := letteredLists(ctx, svc)
	if err != nil {
		return service.TaskList{}, err
	}
	idx := int(letter - 'a')
	if idx < 0 || idx >= len(lists) || idx >= 26 {
		return service.TaskList{}, fmt.Errorf("list letter %c: %w", letter, service.ErrNotFound)
	}
	return lists[idx], nil
}
