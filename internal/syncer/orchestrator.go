// Package syncer reconciles the local task store with the remote task-list
// system. A pass pulls remote changes, pushes local ones, and commits every
// local mutation in one transaction at the end.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"todosync/internal/remote"
	"todosync/internal/retry"
	"todosync/internal/service"
)

// ErrPassInProgress is returned by TryRunPass when a pass is already running.
var ErrPassInProgress = errors.New("sync pass already in progress")

// Report summarizes one pass.
type Report struct {
	Started  time.Time
	Duration time.Duration

	PulledCreated int // local lists created from remote ones
	PulledUpdated int // local lists overwritten by newer remote state
	Adopted       int // local lists paired with a remote copy they created earlier
	PushedCreated int
	PushedUpdated int
	RemoteDeleted int
	LocalDeleted  int

	// Skipped counts staged writes whose row was removed before commit and
	// pulled renames that lost to a local edit made during the pass.
	Skipped int

	// RemoteCalls counts every remote attempt, retries included.
	RemoteCalls int
}

// Changed reports whether the pass changed anything on either side.
func (r Report) Changed() bool {
	return r.PulledCreated+r.PulledUpdated+r.Adopted+r.PushedCreated+
		r.PushedUpdated+r.RemoteDeleted+r.LocalDeleted > 0
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock sets the source of pass timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithMetrics sets the instruments passes are recorded on.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// Orchestrator runs synchronization passes. Passes on one Orchestrator never
// overlap.
type Orchestrator struct {
	store   service.Store
	gateway remote.Gateway
	retry   *retry.Executor
	logger  zerolog.Logger
	now     func() time.Time
	metrics *Metrics

	mu sync.Mutex
}

// New creates an Orchestrator.
func New(store service.Store, gateway remote.Gateway, exec *retry.Executor, logger zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:   store,
		gateway: gateway,
		retry:   exec,
		logger:  logger.With().Str("component", "syncer").Logger(),
		now:     time.Now,
		metrics: NoopMetrics(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunPass runs one pass, waiting for a running one to finish first.
// On error nothing has been committed locally; remote calls that already
// succeeded stay applied and are reconciled by a later pass.
func (o *Orchestrator) RunPass(ctx context.Context) (Report, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.run(ctx)
}

// TryRunPass is RunPass that returns ErrPassInProgress instead of waiting.
func (o *Orchestrator) TryRunPass(ctx context.Context) (Report, error) {
	if !o.mu.TryLock() {
		return Report{}, ErrPassInProgress
	}
	defer o.mu.Unlock()
	return o.run(ctx)
}

func (o *Orchestrator) run(ctx context.Context) (Report, error) {
	started := time.Now()
	p := &pass{
		o:       o,
		now:     o.now().UTC(),
		dirty:   make(map[int64]bool),
		linked:  make(map[int64][]service.TaskItem),
		renamed: make(map[int64]time.Time),
	}
	p.report.Started = p.now

	o.logger.Info().Time("pass_time", p.now).Msg("starting sync pass")

	err := p.execute(ctx)
	p.report.Duration = time.Since(started)
	o.metrics.recordPass(ctx, p.report, err)

	if err != nil {
		o.logger.Error().Err(err).
			Int("remote_calls", p.report.RemoteCalls).
			Dur("duration", p.report.Duration).
			Msg("sync pass aborted, nothing committed")
		return p.report, err
	}

	o.logger.Info().
		Int("pulled_created", p.report.PulledCreated).
		Int("pulled_updated", p.report.PulledUpdated).
		Int("adopted", p.report.Adopted).
		Int("pushed_created", p.report.PushedCreated).
		Int("pushed_updated", p.report.PushedUpdated).
		Int("remote_deleted", p.report.RemoteDeleted).
		Int("local_deleted", p.report.LocalDeleted).
		Int("remote_calls", p.report.RemoteCalls).
		Dur("duration", p.report.Duration).
		Msg("sync pass completed")
	return p.report, nil
}

// pass holds the state of one run. lists are working copies of the local
// lists read at the start; pull mutates them and push reads the result.
type pass struct {
	o      *Orchestrator
	now    time.Time
	report Report

	lists   []service.TaskList
	creates []service.TaskList
	deletes []int64
	dirty   map[int64]bool
	linked  map[int64][]service.TaskItem
	// renamed holds the read last_modified_at of lists renamed by pull.
	renamed map[int64]time.Time
}

func (p *pass) execute(ctx context.Context) error {
	locals, err := p.o.store.ListLists(ctx)
	if err != nil {
		return fmt.Errorf("failed to read local lists: %w", err)
	}
	sort.Slice(locals, func(i, j int) bool { return locals[i].ID < locals[j].ID })
	p.lists = locals

	remotes, err := retry.Value(ctx, p.o.retry, "list lists", func(ctx context.Context) ([]remote.List, error) {
		p.report.RemoteCalls++
		return p.o.gateway.ListLists(ctx)
	})
	if err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	p.o.logger.Debug().Int("remote", len(remotes)).Int("local", len(locals)).Msg("fetched lists")

	p.pull(remotes)

	if err := p.push(ctx); err != nil {
		return fmt.Errorf("push: %w", err)
	}

	return p.commit(ctx)
}

// pull merges remote state into the working copies and stages new lists.
func (p *pass) pull(remotes []remote.List) {
	byExternal := make(map[string]int, len(p.lists))
	bySource := make(map[string]int)
	for i, l := range p.lists {
		if l.Correlated() {
			byExternal[*l.ExternalID] = i
		} else {
			bySource[strconv.FormatInt(l.ID, 10)] = i
		}
	}

	seen := make(map[string]bool, len(remotes))
	for _, r := range remotes {
		if r.ID == "" || seen[r.ID] {
			continue
		}
		seen[r.ID] = true

		if i, ok := byExternal[r.ID]; ok {
			p.merge(&p.lists[i], r)
			continue
		}
		if i, ok := bySource[r.SourceID]; ok && r.SourceID != "" {
			delete(bySource, r.SourceID)
			p.adopt(&p.lists[i], r)
			continue
		}
		p.createLocal(r)
	}
}

// merge applies a newer remote list to its local counterpart.
func (p *pass) merge(local *service.TaskList, r remote.List) {
	if local.Deleted {
		return
	}
	if !r.UpdatedAt.After(local.LastSyncedAt) {
		return
	}

	if r.Name != "" && r.Name != local.Name {
		p.o.logger.Info().
			Int64("list_id", local.ID).
			Str("from", local.Name).
			Str("to", r.Name).
			Msg("updating local list from remote")
		if _, ok := p.renamed[local.ID]; !ok {
			p.renamed[local.ID] = local.LastModifiedAt
		}
		local.Name = r.Name
		local.LastModifiedAt = p.now
		p.report.PulledUpdated++
	}
	local.LastSyncedAt = p.now
	p.dirty[local.ID] = true
}

// adopt pairs a never-correlated local list with the remote list that an
// earlier, uncommitted pass created from it.
func (p *pass) adopt(local *service.TaskList, r remote.List) {
	p.o.logger.Info().
		Int64("list_id", local.ID).
		Str("external_id", r.ID).
		Msg("adopting remote copy of local list")

	local.ExternalID = service.StringPtr(r.ID)
	// A differing name means the local list was renamed since; leave it
	// unsynced so push sends the local name.
	if r.Name == local.Name {
		local.LastSyncedAt = p.now
	}
	p.linkItems(local, r.Items)
	p.dirty[local.ID] = true
	p.report.Adopted++
}

// createLocal stages a local copy of a remote list nobody has seen yet.
func (p *pass) createLocal(r remote.List) {
	p.o.logger.Info().Str("external_id", r.ID).Str("name", r.Name).Msg("creating local list from remote")

	list := service.TaskList{
		Name:           r.Name,
		ExternalID:     service.StringPtr(r.ID),
		LastModifiedAt: p.now,
		LastSyncedAt:   p.now,
	}
	for _, ri := range r.Items {
		list.Items = append(list.Items, service.TaskItem{
			Description:    ri.Description,
			Completed:      ri.Completed,
			ExternalID:     service.StringPtr(ri.ID),
			LastModifiedAt: p.now,
			LastSyncedAt:   p.now,
		})
	}
	p.creates = append(p.creates, list)
	p.report.PulledCreated++
}

// push sends local changes of every list read at the start of the pass.
func (p *pass) push(ctx context.Context) error {
	for i := range p.lists {
		local := &p.lists[i]
		var err error
		switch {
		case local.Deleted && local.Correlated():
			err = p.deleteRemote(ctx, local)
		case local.Deleted:
			p.o.logger.Info().Int64("list_id", local.ID).Msg("removing never-synced list locally")
			p.stageDelete(local.ID)
		case !local.Correlated():
			err = p.createRemote(ctx, local)
		case local.LastModifiedAt.After(local.LastSyncedAt):
			err = p.updateRemote(ctx, local)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *pass) deleteRemote(ctx context.Context, local *service.TaskList) error {
	externalID := *local.ExternalID
	p.o.logger.Info().Int64("list_id", local.ID).Str("external_id", externalID).Msg("deleting remote list")

	err := p.o.retry.Do(ctx, "delete list", func(ctx context.Context) error {
		p.report.RemoteCalls++
		err := p.o.gateway.DeleteList(ctx, externalID)
		if remote.IsNotFound(err) {
			p.o.logger.Debug().Str("external_id", externalID).Msg("remote list already gone")
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete remote list %s: %w", externalID, err)
	}
	p.report.RemoteDeleted++
	p.stageDelete(local.ID)
	return nil
}

func (p *pass) createRemote(ctx context.Context, local *service.TaskList) error {
	p.o.logger.Info().Int64("list_id", local.ID).Str("name", local.Name).Msg("creating remote list")

	body := remote.CreateListBody{
		SourceID: strconv.FormatInt(local.ID, 10),
		Name:     local.Name,
	}
	for _, item := range local.Items {
		if item.Deleted {
			continue
		}
		body.Items = append(body.Items, remote.CreateItemBody{
			SourceID:    strconv.FormatInt(item.ID, 10),
			Description: item.Description,
			Completed:   item.Completed,
		})
	}

	created, err := retry.Value(ctx, p.o.retry, "create list", func(ctx context.Context) (remote.List, error) {
		p.report.RemoteCalls++
		return p.o.gateway.CreateList(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("failed to create remote list for %d: %w", local.ID, err)
	}
	if created.ID == "" {
		return fmt.Errorf("failed to create remote list for %d: empty id in response", local.ID)
	}

	local.ExternalID = service.StringPtr(created.ID)
	local.LastSyncedAt = p.now
	p.linkItems(local, created.Items)
	p.dirty[local.ID] = true
	p.report.PushedCreated++
	return nil
}

func (p *pass) updateRemote(ctx context.Context, local *service.TaskList) error {
	externalID := *local.ExternalID
	p.o.logger.Info().Int64("list_id", local.ID).Str("external_id", externalID).Msg("updating remote list")

	body := remote.UpdateListBody{Name: local.Name}
	err := p.o.retry.Do(ctx, "update list", func(ctx context.Context) error {
		p.report.RemoteCalls++
		_, err := p.o.gateway.UpdateList(ctx, externalID, body)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to update remote list %s: %w", externalID, err)
	}

	local.LastSyncedAt = p.now
	p.dirty[local.ID] = true
	p.report.PushedUpdated++
	return nil
}

// linkItems correlates local items with remote ones carrying their id as
// SourceID.
func (p *pass) linkItems(local *service.TaskList, items []remote.Item) {
	bySource := make(map[string]string, len(items))
	for _, ri := range items {
		if ri.SourceID != "" && ri.ID != "" {
			bySource[ri.SourceID] = ri.ID
		}
	}
	for j := range local.Items {
		item := &local.Items[j]
		if item.ExternalID != nil {
			continue
		}
		id, ok := bySource[strconv.FormatInt(item.ID, 10)]
		if !ok {
			continue
		}
		item.ExternalID = service.StringPtr(id)
		item.LastSyncedAt = p.now
		p.linked[local.ID] = append(p.linked[local.ID], *item)
	}
}

func (p *pass) stageDelete(id int64) {
	p.deletes = append(p.deletes, id)
	delete(p.dirty, id)
	p.report.LocalDeleted++
}

func (p *pass) changeset() service.Changeset {
	cs := service.Changeset{
		Creates: p.creates,
		Deletes: p.deletes,
	}
	for _, l := range p.lists {
		if !p.dirty[l.ID] {
			continue
		}
		u := service.ListUpdate{
			ID:           l.ID,
			ExternalID:   l.ExternalID,
			LastSyncedAt: l.LastSyncedAt,
			Items:        p.linked[l.ID],
		}
		if read, ok := p.renamed[l.ID]; ok {
			u.Name = l.Name
			u.LastModifiedAt = l.LastModifiedAt
			u.ReadModifiedAt = read
		}
		cs.Updates = append(cs.Updates, u)
	}
	return cs
}

func (p *pass) commit(ctx context.Context) error {
	cs := p.changeset()
	if cs.Empty() {
		p.o.logger.Debug().Msg("nothing to commit")
		return nil
	}

	result, err := p.o.store.Commit(ctx, cs)
	if err != nil {
		return fmt.Errorf("failed to commit local changes: %w", err)
	}
	p.report.Skipped = result.Skipped
	p.o.logger.Debug().
		Int("created", result.Created).
		Int("updated", result.Updated).
		Int("deleted", result.Deleted).
		Int("skipped", result.Skipped).
		Msg("committed local changes")
	return nil
}
