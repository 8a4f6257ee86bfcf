// Package tasks implements service.Service over a local service.Store.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"todosync/internal/service"
)

// DefaultStepDelay is the pause between items in CompleteAll.
const DefaultStepDelay = time.Second

// Service is the local task service. Edits stamp LastModifiedAt so the
// synchronizer pushes them; list deletion only sets the tombstone.
type Service struct {
	store     service.Store
	logger    zerolog.Logger
	now       func() time.Time
	stepDelay time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the source of modification timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithStepDelay sets the pause between items in CompleteAll. Zero disables it.
func WithStepDelay(d time.Duration) Option {
	return func(s *Service) { s.stepDelay = d }
}

// New creates a Service.
func New(store service.Store, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		logger:    logger.With().Str("component", "tasks").Logger(),
		now:       time.Now,
		stepDelay: DefaultStepDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ service.Service = (*Service)(nil)

// ListLists implements service.Service.
func (s *Service) ListLists(ctx context.Context) ([]service.TaskList, error) {
	all, err := s.store.ListLists(ctx)
	if err != nil {
		return nil, err
	}
	lists := make([]service.TaskList, 0, len(all))
	for _, l := range all {
		if !l.Deleted {
			lists = append(lists, l)
		}
	}
	return lists, nil
}

// GetList implements service.Service.
func (s *Service) GetList(ctx context.Context, id int64) (service.TaskList, error) {
	list, ok, err := s.store.GetList(ctx, id)
	if err != nil {
		return service.TaskList{}, err
	}
	if !ok || list.Deleted {
		return service.TaskList{}, fmt.Errorf("list %d: %w", id, service.ErrNotFound)
	}
	return list, nil
}

// ResolveList implements service.Service.
func (s *Service) ResolveList(ctx context.Context, name string) (service.TaskList, error) {
	name = strings.TrimSpace(name)
	nameLower := strings.ToLower(name)

	lists, err := s.ListLists(ctx)
	if err != nil {
		return service.TaskList{}, err
	}

	var matches []service.TaskList
	for _, l := range lists {
		if strings.ToLower(strings.TrimSpace(l.Name)) == nameLower {
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
func (s *Service) CreateList(ctx context.Context, name string) (service.TaskList, error) {
	name, err := requireText("list name", name)
	if err != nil {
		return service.TaskList{}, err
	}

	list, err := s.store.CreateList(ctx, service.TaskList{
		Name:           name,
		LastModifiedAt: s.now().UTC(),
		LastSyncedAt:   service.Epoch,
	})
	if err != nil {
		return service.TaskList{}, err
	}
	s.logger.Info().Int64("list_id", list.ID).Str("name", name).Msg("list created")
	return list, nil
}

// RenameList implements service.Service.
func (s *Service) RenameList(ctx context.Context, listID int64, name string) (service.TaskList, error) {
	name, err := requireText("list name", name)
	if err != nil {
		return service.TaskList{}, err
	}

	list, err := s.GetList(ctx, listID)
	if err != nil {
		return service.TaskList{}, err
	}
	if list.Name == name {
		return list, nil
	}

	list.Name = name
	list.LastModifiedAt = s.now().UTC()
	updated, err := s.store.UpdateList(ctx, list)
	if err != nil {
		return service.TaskList{}, err
	}
	s.logger.Info().Int64("list_id", listID).Str("name", name).Msg("list renamed")
	return updated, nil
}

// DeleteList implements service.Service.
func (s *Service) DeleteList(ctx context.Context, listID int64) error {
	list, err := s.GetList(ctx, listID)
	if err != nil {
		return err
	}

	list.Deleted = true
	list.LastModifiedAt = s.now().UTC()
	if _, err := s.store.UpdateList(ctx, list); err != nil {
		return err
	}
	s.logger.Info().Int64("list_id", listID).Msg("list marked for deletion")
	return nil
}

// ListItems implements service.Service.
func (s *Service) ListItems(ctx context.Context, listID int64) ([]service.TaskItem, error) {
	if _, err := s.GetList(ctx, listID); err != nil {
		return nil, err
	}
	all, err := s.store.ListItems(ctx, listID)
	if err != nil {
		return nil, err
	}
	items := make([]service.TaskItem, 0, len(all))
	for _, item := range all {
		if !item.Deleted {
			items = append(items, item)
		}
	}
	return items, nil
}

// GetItem implements service.Service.
func (s *Service) GetItem(ctx context.Context, itemID int64) (service.TaskItem, error) {
	item, ok, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return service.TaskItem{}, err
	}
	if !ok || item.Deleted {
		return service.TaskItem{}, fmt.Errorf("item %d: %w", itemID, service.ErrNotFound)
	}
	return item, nil
}

// CreateItem implements service.Service.
func (s *Service) CreateItem(ctx context.Context, listID int64, description string) (service.TaskItem, error) {
	description, err := requireText("description", description)
	if err != nil {
		return service.TaskItem{}, err
	}
	if _, err := s.GetList(ctx, listID); err != nil {
		return service.TaskItem{}, err
	}

	item, err := s.store.CreateItem(ctx, service.TaskItem{
		ListID:         listID,
		Description:    description,
		LastModifiedAt: s.now().UTC(),
		LastSyncedAt:   service.Epoch,
	})
	if err != nil {
		return service.TaskItem{}, err
	}
	s.logger.Info().Int64("list_id", listID).Int64("item_id", item.ID).Msg("item created")
	return item, nil
}

// UpdateItem implements service.Service.
func (s *Service) UpdateItem(ctx context.Context, itemID int64, description string, completed bool) (service.TaskItem, error) {
	description, err := requireText("description", description)
	if err != nil {
		return service.TaskItem{}, err
	}
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return service.TaskItem{}, err
	}

	item.Description = description
	item.Completed = completed
	item.LastModifiedAt = s.now().UTC()
	return s.store.UpdateItem(ctx, item)
}

// CompleteItem implements service.Service.
func (s *Service) CompleteItem(ctx context.Context, itemID int64) error {
	item, err := s.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if item.Completed {
		return nil
	}
	item.Completed = true
	item.LastModifiedAt = s.now().UTC()
	_, err = s.store.UpdateItem(ctx, item)
	return err
}

// DeleteItem implements service.Service.
func (s *Service) DeleteItem(ctx context.Context, itemID int64) error {
	existed, err := s.store.DeleteItem(ctx, itemID)
	if err != nil {
		return err
	}
	if !existed {
		return fmt.Errorf("item %d: %w", itemID, service.ErrNotFound)
	}
	s.logger.Info().Int64("item_id", itemID).Msg("item deleted")
	return nil
}

// CompleteAll implements service.Service. Items are completed one at a time
// with the configured delay before each; progress may be nil.
func (s *Service) CompleteAll(ctx context.Context, listID int64, progress func(done, total int)) (int, error) {
	list, err := s.GetList(ctx, listID)
	if err != nil {
		return 0, err
	}

	open := list.OpenItems()
	total := len(open)
	if total == 0 {
		s.logger.Warn().Int64("list_id", listID).Msg("no open items to complete")
	} else {
		s.logger.Info().Int64("list_id", listID).Int("open", total).Msg("completing all items")
	}

	done := 0
	for _, item := range open {
		if s.stepDelay > 0 {
			timer := time.NewTimer(s.stepDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return done, ctx.Err()
			case <-timer.C:
			}
		}

		item.Completed = true
		item.LastModifiedAt = s.now().UTC()
		if _, err := s.store.UpdateItem(ctx, item); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				// Deleted while we were working through the list.
				continue
			}
			return done, err
		}
		done++
		if progress != nil {
			progress(done, total)
		}
	}

	s.logger.Info().Int64("list_id", listID).Int("completed", done).Msg("complete-all finished")
	return done, nil
}

func requireText(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s is required: %w", field, service.ErrInvalid)
	}
	return value, nil
}
