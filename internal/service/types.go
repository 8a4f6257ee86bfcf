// Package service defines the local task model and the interfaces over it.
package service

import "time"

// Epoch is the LastSyncedAt value of a record that has never been synced.
var Epoch = time.Unix(0, 0).UTC()

// TaskItem represents a single item owned by a task list.
type TaskItem struct {
	ID             int64
	ListID         int64
	Description    string
	Completed      bool
	ExternalID     *string // remote correlation id, nil until paired
	LastModifiedAt time.Time
	LastSyncedAt   time.Time
	Deleted        bool
}

// TaskList represents a local task list and its items.
type TaskList struct {
	ID             int64
	Name           string
	ExternalID     *string // remote correlation id, nil until paired
	LastModifiedAt time.Time
	LastSyncedAt   time.Time
	Deleted        bool
	Items          []TaskItem
}

// Correlated reports whether the list is paired with a remote record.
func (l TaskList) Correlated() bool {
	return l.ExternalID != nil && *l.ExternalID != ""
}

// Synced reports whether the list has no local changes waiting to be pushed.
func (l TaskList) Synced() bool {
	return l.Correlated() && !l.Deleted && !l.LastModifiedAt.After(l.LastSyncedAt)
}

// OpenItems returns items that are neither completed nor deleted, in order.
func (l TaskList) OpenItems() []TaskItem {
	var open []TaskItem
	for _, item := range l.Items {
		if !item.Completed && !item.Deleted {
			open = append(open, item)
		}
	}
	return open
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}

// Changeset holds the local mutations staged by one synchronization pass.
// A Store applies it as a single unit: all of it or none of it.
type Changeset struct {
	// Creates are new lists (with nested items) pulled from the remote side.
	Creates []TaskList

	// Updates write the sync-owned columns of existing lists.
	Updates []ListUpdate

	// Deletes are ids of tombstoned lists whose deletion has completed.
	Deletes []int64
}

// ListUpdate is a staged write to an existing list. It never touches the
// deleted flag, so a tombstone set while a pass runs survives its commit.
type ListUpdate struct {
	ID           int64
	ExternalID   *string
	LastSyncedAt time.Time

	// Name, when set, is a name pulled from the remote side. It is written
	// together with LastModifiedAt only if the row's last_modified_at still
	// equals ReadModifiedAt; otherwise a local edit won and the rename is
	// dropped.
	Name           string
	LastModifiedAt time.Time
	ReadModifiedAt time.Time

	// Items are correlated items; only their sync columns are written.
	Items []TaskItem
}

// Empty reports whether the changeset has nothing to apply.
func (c *Changeset) Empty() bool {
	return len(c.Creates) == 0 && len(c.Updates) == 0 && len(c.Deletes) == 0
}

// CommitResult describes what a Store actually wrote for a Changeset.
type CommitResult struct {
	Created int
	Updated int
	Deleted int

	// Skipped counts updates and deletes whose row had already been removed,
	// and pulled renames dropped because the row changed during the pass.
	Skipped int
}
