package testutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"todosync/internal/remote"
)

// Operation names recorded by FakeRemote. They match the op of the
// *remote.Error values it returns.
const (
	OpListLists  = "list lists"
	OpCreateList = "create list"
	OpUpdateList = "update list"
	OpDeleteList = "delete list"
	OpCreateItem = "create item"
	OpUpdateItem = "update item"
	OpDeleteItem = "delete item"
)

// ErrUnavailable is the cause of the transient failures FakeRemote injects.
var ErrUnavailable = errors.New("service unavailable")

// FakeRemote is an in-memory implementation of remote.Gateway for testing.
// Timestamps come from Now so tests can share a clock with the code under test.
type FakeRemote struct {
	mu    sync.Mutex
	lists []remote.List
	calls []string
	fail  map[string][]error

	// Now stamps created/updated times. Defaults to time.Now.
	Now func() time.Time

	// Lag is added to every stamp, so writes appear to land after the time
	// the caller read from Now, as they do on a real server.
	Lag time.Duration

	// OnCall, if set, runs at the start of every call with the op name,
	// before injected failures are applied. It must not call back into f.
	OnCall func(op string)
}

// NewFakeRemote creates an empty FakeRemote.
func NewFakeRemote(now func() time.Time) *FakeRemote {
	if now == nil {
		now = time.Now
	}
	return &FakeRemote{
		fail: make(map[string][]error),
		Now:  now,
	}
}

// FailNext makes the next calls of op return errs, one per call, in order.
func (f *FakeRemote) FailNext(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = append(f.fail[op], errs...)
}

// FailTransient makes the next n calls of op fail with a 503.
func (f *FakeRemote) FailTransient(op string, n int) {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = remote.Wrap(op, http.StatusServiceUnavailable, ErrUnavailable)
	}
	f.FailNext(op, errs...)
}

// FailStatus makes the next call of op fail with the given status.
func (f *FakeRemote) FailStatus(op string, status int) {
	f.FailNext(op, remote.Wrap(op, status, errors.New(http.StatusText(status))))
}

// AddList seeds a remote list. Items are given by description.
func (f *FakeRemote) AddList(name string, items ...string) remote.List {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.stamp()
	list := remote.List{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, desc := range items {
		list.Items = append(list.Items, remote.Item{
			ID:          uuid.NewString(),
			Description: desc,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	f.lists = append(f.lists, list)
	return cloneList(list)
}

// PutList inserts or replaces a remote list verbatim.
func (f *FakeRemote) PutList(list remote.List) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.index(list.ID); i >= 0 {
		f.lists[i] = cloneList(list)
		return
	}
	f.lists = append(f.lists, cloneList(list))
}

// Rename simulates an edit made on the remote side.
func (f *FakeRemote) Rename(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.index(id); i >= 0 {
		f.lists[i].Name = name
		f.lists[i].UpdatedAt = f.stamp()
	}
}

// Remove deletes a remote list without recording a call.
func (f *FakeRemote) Remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.index(id); i >= 0 {
		f.lists = append(f.lists[:i], f.lists[i+1:]...)
	}
}

// Lists returns a copy of the current remote state.
func (f *FakeRemote) Lists() []remote.List {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]remote.List, len(f.lists))
	for i, l := range f.lists {
		out[i] = cloneList(l)
	}
	return out
}

// Find returns the remote list with the given id.
func (f *FakeRemote) Find(id string) (remote.List, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.index(id); i >= 0 {
		return cloneList(f.lists[i]), true
	}
	return remote.List{}, false
}

// Calls returns the recorded operations in call order, failed ones included.
func (f *FakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many times op was called.
func (f *FakeRemote) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (f *FakeRemote) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// ListLists implements remote.Gateway.
func (f *FakeRemote) ListLists(ctx context.Context) ([]remote.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, OpListLists); err != nil {
		return nil, err
	}
	out := make([]remote.List, len(f.lists))
	for i, l := range f.lists {
		out[i] = cloneList(l)
	}
	return out, nil
}

// CreateList implements remote.Gateway.
func (f *FakeRemote) CreateList(ctx context.Context, body remote.CreateListBody) (remote.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, OpCreateList); err != nil {
		return remote.List{}, err
	}
	if body.Name == "" {
		return remote.List{}, remote.Wrap(OpCreateList, http.StatusBadRequest, errors.New("name is required"))
	}

	now := f.stamp()
	list := remote.List{
		ID:        uuid.NewString(),
		SourceID:  body.SourceID,
		Name:      body.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, ib := range body.Items {
		list.Items = append(list.Items, remote.Item{
			ID:          uuid.NewString(),
			SourceID:    ib.SourceID,
			Description: ib.Description,
			Completed:   ib.Completed,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	f.lists = append(f.lists, list)
	return cloneList(list), nil
}

// UpdateList implements remote.Gateway.
func (f *FakeRemote) UpdateList(ctx context.Context, listID string, body remote.UpdateListBody) (remote.List, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, OpUpdateList); err != nil {
		return remote.List{}, err
	}
	i := f.index(listID)
	if i < 0 {
		return remote.List{}, notFound(OpUpdateList, listID)
	}
	if body.Name != "" {
		f.lists[i].Name = body.Name
	}
	f.lists[i].UpdatedAt = f.stamp()
	return cloneList(f.lists[i]), nil
}

// DeleteList implements remote.Gateway.
func (f *FakeRemote) DeleteList(ctx context.Context, listID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, OpDeleteList); err != nil {
		return err
	}
	i := f.index(listID)
	if i < 0 {
		return notFound(OpDeleteList, listID)
	}
	f.lists = append(f.lists[:i], f.lists[i+1:]...)
	return nil
}

// CreateItem implements remote.Gateway.
func (f *FakeRemote) CreateItem(ctx context.Context, listID string, body remote.CreateItemBody) (remote.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, OpCreateItem); err != nil {
		return remote.Item{}, err
	}
	i := f.index(listID)
	if i < 0 {
		return remote.Item{}, notFound(OpCreateItem, listID)
	}
	now := f.stamp()
	item := remote.Item{
		ID:          uuid.NewString(),
		SourceID:    body.SourceID,
		Description: body.Description,
		Completed:   body.Completed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.lists[i].Items = append(f.lists[i].Items, item)
	return item, nil
}

// UpdateItem implements remote.Gateway.
func (f *FakeRemote) UpdateItem(ctx context.Context, listID, itemID string, body remote.UpdateItemBody) (remote.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, OpUpdateItem); err != nil {
		return remote.Item{}, err
	}
	i := f.index(listID)
	if i < 0 {
		return remote.Item{}, notFound(OpUpdateItem, listID)
	}
	for j := range f.lists[i].Items {
		item := &f.lists[i].Items[j]
		if item.ID != itemID {
			continue
		}
		if body.Description != nil {
			item.Description = *body.Description
		}
		if body.Completed != nil {
			item.Completed = *body.Completed
		}
		item.UpdatedAt = f.stamp()
		return *item, nil
	}
	return remote.Item{}, notFound(OpUpdateItem, itemID)
}

// DeleteItem implements remote.Gateway.
func (f *FakeRemote) DeleteItem(ctx context.Context, listID, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, OpDeleteItem); err != nil {
		return err
	}
	i := f.index(listID)
	if i < 0 {
		return notFound(OpDeleteItem, listID)
	}
	items := f.lists[i].Items
	for j := range items {
		if items[j].ID == itemID {
			f.lists[i].Items = append(items[:j], items[j+1:]...)
			return nil
		}
	}
	return notFound(OpDeleteItem, itemID)
}

// begin records the call and pops an injected failure. Caller holds mu.
func (f *FakeRemote) begin(ctx context.Context, op string) error {
	f.calls = append(f.calls, op)
	if f.OnCall != nil {
		f.OnCall(op)
	}
	if err := ctx.Err(); err != nil {
		return remote.Wrap(op, 0, err)
	}
	if queue := f.fail[op]; len(queue) > 0 {
		f.fail[op] = queue[1:]
		return queue[0]
	}
	return nil
}

// stamp returns the time of a write. Caller holds mu.
func (f *FakeRemote) stamp() time.Time {
	return f.Now().UTC().Add(f.Lag)
}

func (f *FakeRemote) index(id string) int {
	for i, l := range f.lists {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func notFound(op, id string) error {
	return remote.Wrap(op, http.StatusNotFound, fmt.Errorf("%s not found", id))
}

func cloneList(l remote.List) remote.List {
	if l.Items != nil {
		items := make([]remote.Item, len(l.Items))
		copy(items, l.Items)
		l.Items = items
	}
	return l
}
