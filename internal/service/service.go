// Package service defines the local task model and the interfaces over it.
package service

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a list or item does not exist.
var ErrNotFound = errors.New("not found")

// ErrAmbiguous is returned when a name matches more than one list.
var ErrAmbiguous = errors.New("ambiguous")

// ErrInvalid is returned for input that fails validation, e.g. an empty name.
var ErrInvalid = errors.New("invalid input")

// Store is the persistence contract for local task records.
// The synchronizer reads through it and writes only through Commit.
type Store interface {
	// ListLists returns every list, tombstoned ones included, ordered by id,
	// each with its items.
	ListLists(ctx context.Context) ([]TaskList, error)

	// GetList returns a list with its items. ok is false if it does not exist.
	GetList(ctx context.Context, id int64) (list TaskList, ok bool, err error)

	// CreateList inserts a list without items and returns it with its id.
	CreateList(ctx context.Context, list TaskList) (TaskList, error)

	// CreateListWithItems inserts a list and its items in one transaction.
	CreateListWithItems(ctx context.Context, list TaskList) (TaskList, error)

	// UpdateList writes name, correlation, timestamps and tombstone.
	// Returns ErrNotFound if the row was removed concurrently.
	UpdateList(ctx context.Context, list TaskList) (TaskList, error)

	// DeleteList removes a list and its items. Reports whether a row existed.
	DeleteList(ctx context.Context, id int64) (bool, error)

	// ListItems returns the items of a list ordered by id.
	ListItems(ctx context.Context, listID int64) ([]TaskItem, error)

	// GetItem returns an item. ok is false if it does not exist.
	GetItem(ctx context.Context, id int64) (item TaskItem, ok bool, err error)

	// CreateItem inserts an item into an existing list.
	CreateItem(ctx context.Context, item TaskItem) (TaskItem, error)

	// UpdateItem writes description, completion, correlation and timestamps.
	// Returns ErrNotFound if the row was removed concurrently.
	UpdateItem(ctx context.Context, item TaskItem) (TaskItem, error)

	// DeleteItem removes an item. Reports whether a row existed.
	DeleteItem(ctx context.Context, id int64) (bool, error)

	// Commit applies a changeset atomically. Updates and deletes of rows that
	// no longer exist are skipped; any other failure rolls everything back.
	Commit(ctx context.Context, cs Changeset) (CommitResult, error)
}

// Service defines the user-facing operations on local task lists.
// Every content change stamps LastModifiedAt so the synchronizer pushes it.
// Commands and HTTP handlers go through this interface, never through Store.
type Service interface {
	// ListLists returns live (not tombstoned) lists in id order.
	ListLists(ctx context.Context) ([]TaskList, error)

	// GetList returns a live list by id.
	GetList(ctx context.Context, id int64) (TaskList, error)

	// ResolveList finds a live list by name (case-insensitive, trimmed).
	// Returns ErrNotFound or ErrAmbiguous.
	ResolveList(ctx context.Context, name string) (TaskList, error)

	// CreateList creates a new, never-synced list.
	CreateList(ctx context.Context, name string) (TaskList, error)

	// RenameList changes a list's name.
	RenameList(ctx context.Context, listID int64, name string) (TaskList, error)

	// DeleteList tombstones a list; the synchronizer removes it.
	DeleteList(ctx context.Context, listID int64) error

	// ListItems returns the live items of a list.
	ListItems(ctx context.Context, listID int64) ([]TaskItem, error)

	// GetItem returns an item by id.
	GetItem(ctx context.Context, itemID int64) (TaskItem, error)

	// CreateItem adds an item to a list.
	CreateItem(ctx context.Context, listID int64, description string) (TaskItem, error)

	// UpdateItem changes an item's description and completion.
	UpdateItem(ctx context.Context, itemID int64, description string, completed bool) (TaskItem, error)

	// CompleteItem marks an item completed.
	CompleteItem(ctx context.Context, itemID int64) error

	// DeleteItem removes an item.
	DeleteItem(ctx context.Context, itemID int64) error

	// CompleteAll marks every open item of a list completed, one at a time,
	// reporting progress after each item. Returns the number completed.
	CompleteAll(ctx context.Context, listID int64, progress func(done, total int)) (int, error)
}
