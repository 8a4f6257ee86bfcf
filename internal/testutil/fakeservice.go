package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"todosync/internal/service"
)

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu     sync.RWMutex
	lists  []service.TaskList // id order, tombstones included
	nextID int64

	// Now stamps LastModifiedAt. Defaults to time.Now.
	Now func() time.Time

	// Error injection for testing
	ListListsErr    error
	ResolveListErr  error
	CreateListErr   error
	RenameListErr   error
	DeleteListErr   error
	CreateItemErr   error
	UpdateItemErr   error
	CompleteItemErr error
	DeleteItemErr   error
}

var _ service.Service = (*FakeService)(nil)

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{Now: time.Now}
}

// AddList adds a list with open items and returns it.
func (f *FakeService) AddList(name string, items ...string) service.TaskList {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := service.TaskList{
		ID:             f.id(),
		Name:           name,
		LastModifiedAt: f.Now().UTC(),
		LastSyncedAt:   service.Epoch,
	}
	for _, desc := range items {
		list.Items = append(list.Items, service.TaskItem{
			ID:             f.id(),
			ListID:         list.ID,
			Description:    desc,
			LastModifiedAt: list.LastModifiedAt,
			LastSyncedAt:   service.Epoch,
		})
	}
	f.lists = append(f.lists, list)
	return cloneTaskList(list)
}

// MarkSynced correlates a list as if a pass had just pushed it.
func (f *FakeService) MarkSynced(listID int64, externalID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l := f.find(listID); l != nil {
		l.ExternalID = service.StringPtr(externalID)
		l.LastSyncedAt = l.LastModifiedAt
	}
}

// CompleteAllNow completes every item of a list without delays.
func (f *FakeService) CompleteAllNow(listID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l := f.find(listID); l != nil {
		for i := range l.Items {
			l.Items[i].Completed = true
		}
	}
}

// Lists returns every list, tombstoned ones included.
func (f *FakeService) Lists() []service.TaskList {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]service.TaskList, len(f.lists))
	for i, l := range f.lists {
		out[i] = cloneTaskList(l)
	}
	return out
}

// ListLists implements service.Service.
func (f *FakeService) ListLists(ctx context.Context) ([]service.TaskList, error) {
	if f.ListListsErr != nil {
		return nil, f.ListListsErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	var out []service.TaskList
	for _, l := range f.lists {
		if !l.Deleted {
			out = append(out, cloneTaskList(l))
		}
	}
	return out, nil
}

// GetList implements service.Service.
func (f *FakeService) GetList(ctx context.Context, id int64) (service.TaskList, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	l := f.find(id)
	if l == nil || l.Deleted {
		return service.TaskList{}, fmt.Errorf("list %d: %w", id, service.ErrNotFound)
	}
	return cloneTaskList(*l), nil
}

// ResolveList implements service.Service.
func (f *FakeService) ResolveList(ctx context.Context, name string) (service.TaskList, error) {
	if f.ResolveListErr != nil {
		return service.TaskList{}, f.ResolveListErr
	}
	lists, err := f.ListLists(ctx)
	if err != nil {
		return service.TaskList{}, err
	}

	want := strings.ToLower(strings.TrimSpace(name))
	var matches []service.TaskList
	for _, l := range lists {
		if strings.ToLower(strings.TrimSpace(l.Name)) == want {
			matches = append(matches, l)
		}
	}
	switch len(matches) {
	case 0:
		return service.TaskList{}, fmt.Errorf("list %q: %w", name, service.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return service.TaskList{}, fmt.Errorf("list %q: %w", name, service.ErrAmbiguous)
	}
}

// CreateList implements service.Service.
func (f *FakeService) CreateList(ctx context.Context, name string) (service.TaskList, error) {
	if f.CreateListErr != nil {
		return service.TaskList{}, f.CreateListErr
	}
	if strings.TrimSpace(name) == "" {
		return service.TaskList{}, fmt.Errorf("name is required: %w", service.ErrInvalid)
	}
	return f.AddList(strings.TrimSpace(name)), nil
}

// RenameList implements service.Service.
func (f *FakeService) RenameList(ctx context.Context, listID int64, name string) (service.TaskList, error) {
	if f.RenameListErr != nil {
		return service.TaskList{}, f.RenameListErr
	}
	if strings.TrimSpace(name) == "" {
		return service.TaskList{}, fmt.Errorf("name is required: %w", service.ErrInvalid)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.find(listID)
	if l == nil || l.Deleted {
		return service.TaskList{}, fmt.Errorf("list %d: %w", listID, service.ErrNotFound)
	}
	l.Name = strings.TrimSpace(name)
	l.LastModifiedAt = f.Now().UTC()
	return cloneTaskList(*l), nil
}

// DeleteList implements service.Service.
func (f *FakeService) DeleteList(ctx context.Context, listID int64) error {
	if f.DeleteListErr != nil {
		return f.DeleteListErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.find(listID)
	if l == nil || l.Deleted {
		return fmt.Errorf("list %d: %w", listID, service.ErrNotFound)
	}
	l.Deleted = true
	l.LastModifiedAt = f.Now().UTC()
	return nil
}

// ListItems implements service.Service.
func (f *FakeService) ListItems(ctx context.Context, listID int64) ([]service.TaskItem, error) {
	l, err := f.GetList(ctx, listID)
	if err != nil {
		return nil, err
	}
	return l.Items, nil
}

// GetItem implements service.Service.
func (f *FakeService) GetItem(ctx context.Context, itemID int64) (service.TaskItem, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if _, i := f.findItem(itemID); i != nil {
		return *i, nil
	}
	return service.TaskItem{}, fmt.Errorf("item %d: %w", itemID, service.ErrNotFound)
}

// CreateItem implements service.Service.
func (f *FakeService) CreateItem(ctx context.Context, listID int64, description string) (service.TaskItem, error) {
	if f.CreateItemErr != nil {
		return service.TaskItem{}, f.CreateItemErr
	}
	if strings.TrimSpace(description) == "" {
		return service.TaskItem{}, fmt.Errorf("description is required: %w", service.ErrInvalid)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.find(listID)
	if l == nil || l.Deleted {
		return service.TaskItem{}, fmt.Errorf("list %d: %w", listID, service.ErrNotFound)
	}
	item := service.TaskItem{
		ID:             f.id(),
		ListID:         listID,
		Description:    strings.TrimSpace(description),
		LastModifiedAt: f.Now().UTC(),
		LastSyncedAt:   service.Epoch,
	}
	l.Items = append(l.Items, item)
	return item, nil
}

// UpdateItem implements service.Service.
func (f *FakeService) UpdateItem(ctx context.Context, itemID int64, description string, completed bool) (service.TaskItem, error) {
	if f.UpdateItemErr != nil {
		return service.TaskItem{}, f.UpdateItemErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, i := f.findItem(itemID)
	if i == nil {
		return service.TaskItem{}, fmt.Errorf("item %d: %w", itemID, service.ErrNotFound)
	}
	i.Description = description
	i.Completed = completed
	i.LastModifiedAt = f.Now().UTC()
	return *i, nil
}

// CompleteItem implements service.Service.
func (f *FakeService) CompleteItem(ctx context.Context, itemID int64) error {
	if f.CompleteItemErr != nil {
		return f.CompleteItemErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, i := f.findItem(itemID)
	if i == nil {
		return fmt.Errorf("item %d: %w", itemID, service.ErrNotFound)
	}
	i.Completed = true
	i.LastModifiedAt = f.Now().UTC()
	return nil
}

// DeleteItem implements service.Service.
func (f *FakeService) DeleteItem(ctx context.Context, itemID int64) error {
	if f.DeleteItemErr != nil {
		return f.DeleteItemErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l, i := f.findItem(itemID)
	if i == nil {
		return fmt.Errorf("item %d: %w", itemID, service.ErrNotFound)
	}
	for idx := range l.Items {
		if l.Items[idx].ID == itemID {
			l.Items = append(l.Items[:idx], l.Items[idx+1:]...)
			break
		}
	}
	return nil
}

// CompleteAll implements service.Service without delays.
func (f *FakeService) CompleteAll(ctx context.Context, listID int64, progress func(done, total int)) (int, error) {
	l, err := f.GetList(ctx, listID)
	if err != nil {
		return 0, err
	}
	open := l.OpenItems()
	for n, item := range open {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if err := f.CompleteItem(ctx, item.ID); err != nil {
			return n, err
		}
		if progress != nil {
			progress(n+1, len(open))
		}
	}
	return len(open), nil
}

func (f *FakeService) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *FakeService) find(id int64) *service.TaskList {
	for i := range f.lists {
		if f.lists[i].ID == id {
			return &f.lists[i]
		}
	}
	return nil
}

func (f *FakeService) findItem(id int64) (*service.TaskList, *service.TaskItem) {
	for li := range f.lists {
		l := &f.lists[li]
		if l.Deleted {
			continue
		}
		for ii := range l.Items {
			if l.Items[ii].ID == id {
				return l, &l.Items[ii]
			}
		}
	}
	return nil, nil
}

func cloneTaskList(l service.TaskList) service.TaskList {
	out := l
	out.Items = append([]service.TaskItem(nil), l.Items...)
	return out
}
