package syncer

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todosync/internal/remote"
	"todosync/internal/retry"
	"todosync/internal/service"
	"todosync/internal/store/sqlite"
	"todosync/internal/tasks"
	"todosync/internal/testutil"
)

var t0 = time.Date(2025, 8, 13, 12, 0, 0, 0, time.UTC)

type harness struct {
	store  *sqlite.Store
	remote *testutil.FakeRemote
	clock  *testutil.Clock
	orch   *Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := sqlite.Open(context.Background(), sqlite.MemoryPath, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := testutil.NewClock(t0)
	fake := testutil.NewFakeRemote(clock.Now)
	exec := retry.New(retry.Config{BaseDelay: time.Millisecond}, zerolog.Nop())

	return &harness{
		store:  store,
		remote: fake,
		clock:  clock,
		orch:   New(store, fake, exec, zerolog.Nop(), WithClock(clock.Now)),
	}
}

// localList creates a local list the way a user edit would.
func (h *harness) localList(t *testing.T, name string, items ...string) service.TaskList {
	t.Helper()
	list := service.TaskList{Name: name, LastModifiedAt: h.clock.Now()}
	for _, desc := range items {
		list.Items = append(list.Items, service.TaskItem{Description: desc, LastModifiedAt: h.clock.Now()})
	}
	created, err := h.store.CreateListWithItems(context.Background(), list)
	require.NoError(t, err)
	return created
}

// syncedList creates a local list already correlated with externalID.
func (h *harness) syncedList(t *testing.T, name, externalID string, syncedAt time.Time) service.TaskList {
	t.Helper()
	created, err := h.store.CreateList(context.Background(), service.TaskList{
		Name:           name,
		ExternalID:     service.StringPtr(externalID),
		LastModifiedAt: syncedAt,
		LastSyncedAt:   syncedAt,
	})
	require.NoError(t, err)
	return created
}

func (h *harness) lists(t *testing.T) []service.TaskList {
	t.Helper()
	lists, err := h.store.ListLists(context.Background())
	require.NoError(t, err)
	return lists
}

func (h *harness) list(t *testing.T, id int64) service.TaskList {
	t.Helper()
	list, ok, err := h.store.GetList(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok, "list %d not found", id)
	return list
}

func (h *harness) pass(t *testing.T) Report {
	t.Helper()
	report, err := h.orch.RunPass(context.Background())
	require.NoError(t, err)
	return report
}

func assertTime(t *testing.T, want, got time.Time) {
	t.Helper()
	assert.True(t, want.Equal(got), "expected %s, got %s", want, got)
}

func TestRunPass_EmptyBothSides(t *testing.T) {
	h := newHarness(t)

	report := h.pass(t)

	assert.False(t, report.Changed())
	assert.Equal(t, 1, report.RemoteCalls)
	assert.Equal(t, []string{testutil.OpListLists}, h.remote.Calls())
}

func TestRunPass_PullCreatesLocalList(t *testing.T) {
	h := newHarness(t)
	r := h.remote.AddList("New", "milk", "eggs")
	h.clock.Advance(time.Minute)

	report := h.pass(t)
	assert.Equal(t, 1, report.PulledCreated)

	lists := h.lists(t)
	require.Len(t, lists, 1)
	got := lists[0]
	assert.Equal(t, "New", got.Name)
	require.NotNil(t, got.ExternalID)
	assert.Equal(t, r.ID, *got.ExternalID)
	assertTime(t, h.clock.Now(), got.LastSyncedAt)
	assertTime(t, h.clock.Now(), got.LastModifiedAt)

	require.Len(t, got.Items, 2)
	for i, item := range got.Items {
		assert.Equal(t, r.Items[i].Description, item.Description)
		require.NotNil(t, item.ExternalID)
		assert.Equal(t, r.Items[i].ID, *item.ExternalID)
		assertTime(t, h.clock.Now(), item.LastSyncedAt)
	}

	// Create calls only ever go out for local lists.
	assert.Zero(t, h.remote.CallCount(testutil.OpCreateList))
}

func TestRunPass_PullIsNotRepeated(t *testing.T) {
	h := newHarness(t)
	h.remote.AddList("One")
	h.remote.AddList("Two")

	h.pass(t)
	h.clock.Advance(time.Minute)
	report := h.pass(t)

	assert.Zero(t, report.PulledCreated)
	assert.Len(t, h.lists(t), 2)
}

func TestRunPass_DuplicateRemoteIDProcessedOnce(t *testing.T) {
	h := newHarness(t)
	r := h.remote.AddList("Twice")
	h.remote.PutList(remote.List{ID: r.ID + "-copy", Name: "Other", UpdatedAt: t0})

	gw := &duplicatingGateway{FakeRemote: h.remote, dup: r.ID}
	h.orch.gateway = gw

	report := h.pass(t)

	assert.Equal(t, 2, report.PulledCreated)
	assert.Len(t, h.lists(t), 2)
}

func TestRunPass_Idempotent(t *testing.T) {
	h := newHarness(t)
	h.remote.Lag = time.Second
	h.remote.AddList("Remote", "a")
	local := h.localList(t, "Local", "b", "c")
	synced := h.syncedList(t, "Synced", "r-synced", t0)
	h.remote.PutList(remote.List{ID: "r-synced", Name: "Synced", UpdatedAt: t0})

	h.clock.Advance(time.Minute)
	first := h.pass(t)
	assert.True(t, first.Changed())

	// The list pushed by the first pass is stamped by the remote side after
	// that pass's time, so the next pass sees it as newer. It pulls nothing
	// and writes nothing remotely; it only moves LastSyncedAt forward.
	h.remote.ResetCalls()
	h.clock.Advance(time.Minute)
	echo := h.pass(t)

	assert.False(t, echo.Changed())
	assert.Equal(t, []string{testutil.OpListLists}, h.remote.Calls())
	got := h.list(t, local.ID)
	assert.Equal(t, "Local", got.Name)
	assertTime(t, h.clock.Now(), got.LastSyncedAt)

	before := h.lists(t)
	h.remote.ResetCalls()
	h.clock.Advance(time.Minute)
	second := h.pass(t)

	assert.False(t, second.Changed())
	assert.Equal(t, []string{testutil.OpListLists}, h.remote.Calls())
	assert.Equal(t, before, h.lists(t))
	assertTime(t, t0, h.list(t, synced.ID).LastSyncedAt)
}

func TestRunPass_PushCreatesRemoteList(t *testing.T) {
	h := newHarness(t)
	local := h.localList(t, "Task", "write tests", "ship")
	h.clock.Advance(time.Minute)
	passTime := h.clock.Now()

	report := h.pass(t)
	assert.Equal(t, 1, report.PushedCreated)
	assert.Equal(t, 1, h.remote.CallCount(testutil.OpCreateList))

	got := h.list(t, local.ID)
	require.NotNil(t, got.ExternalID)
	assert.NotEmpty(t, *got.ExternalID)
	assertTime(t, passTime, got.LastSyncedAt)

	rl, ok := h.remote.Find(*got.ExternalID)
	require.True(t, ok)
	assert.Equal(t, "Task", rl.Name)
	assert.Equal(t, strconv.FormatInt(local.ID, 10), rl.SourceID)
	require.Len(t, rl.Items, 2)

	for i, item := range got.Items {
		assert.Equal(t, strconv.FormatInt(item.ID, 10), rl.Items[i].SourceID)
		require.NotNil(t, item.ExternalID, "item %d not linked", item.ID)
		assert.Equal(t, rl.Items[i].ID, *item.ExternalID)
		assertTime(t, passTime, item.LastSyncedAt)
	}
}

func TestRunPass_CreateOnce(t *testing.T) {
	h := newHarness(t)
	h.localList(t, "Task")

	h.pass(t)
	h.clock.Advance(time.Minute)
	h.pass(t)
	h.clock.Advance(time.Minute)
	h.pass(t)

	assert.Equal(t, 1, h.remote.CallCount(testutil.OpCreateList))
	assert.Len(t, h.remote.Lists(), 1)
	assert.Len(t, h.lists(t), 1)
}

func TestRunPass_RemoteNewerOverwritesName(t *testing.T) {
	h := newHarness(t)
	local := h.syncedList(t, "Old", "r2", t0)
	h.clock.Advance(time.Minute)
	h.remote.PutList(remote.List{ID: "r2", Name: "Renamed", UpdatedAt: h.clock.Now()})
	h.clock.Advance(time.Minute)
	passTime := h.clock.Now()

	report := h.pass(t)
	assert.Equal(t, 1, report.PulledUpdated)

	got := h.list(t, local.ID)
	assert.Equal(t, "Renamed", got.Name)
	assertTime(t, passTime, got.LastModifiedAt)
	assertTime(t, passTime, got.LastSyncedAt)

	// The merged list is not pushed back.
	assert.Zero(t, h.remote.CallCount(testutil.OpUpdateList))
}

func TestRunPass_RemoteNewerSameNameOnlyTouchesSyncTime(t *testing.T) {
	h := newHarness(t)
	local := h.syncedList(t, "Same", "r2", t0)
	h.clock.Advance(time.Minute)
	h.remote.PutList(remote.List{ID: "r2", Name: "Same", UpdatedAt: h.clock.Now()})
	h.clock.Advance(time.Minute)

	report := h.pass(t)
	assert.Zero(t, report.PulledUpdated)

	got := h.list(t, local.ID)
	assertTime(t, t0, got.LastModifiedAt)
	assertTime(t, h.clock.Now(), got.LastSyncedAt)
}

func TestRunPass_RemoteEmptyNameIgnored(t *testing.T) {
	h := newHarness(t)
	local := h.syncedList(t, "Keep", "r2", t0)
	h.remote.PutList(remote.List{ID: "r2", Name: "", UpdatedAt: t0.Add(time.Minute)})
	h.clock.Advance(2 * time.Minute)

	h.pass(t)

	assert.Equal(t, "Keep", h.list(t, local.ID).Name)
}

func TestRunPass_RemoteOlderNeverChangesLocal(t *testing.T) {
	tests := []struct {
		name      string
		updatedAt time.Time
	}{
		{"older", t0.Add(-time.Second)},
		{"tie", t0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			local := h.syncedList(t, "Old", "r2", t0)
			h.remote.PutList(remote.List{ID: "r2", Name: "Stale", UpdatedAt: tt.updatedAt})
			h.clock.Advance(time.Minute)

			report := h.pass(t)

			assert.False(t, report.Changed())
			got := h.list(t, local.ID)
			assert.Equal(t, "Old", got.Name)
			assertTime(t, t0, got.LastSyncedAt)
			assertTime(t, t0, got.LastModifiedAt)
		})
	}
}

func TestRunPass_LocalChangePushesUpdate(t *testing.T) {
	h := newHarness(t)
	local := h.syncedList(t, "Before", "r3", t0)
	h.remote.PutList(remote.List{ID: "r3", Name: "Before", UpdatedAt: t0})

	h.clock.Advance(time.Minute)
	local.Name = "After"
	local.LastModifiedAt = h.clock.Now()
	_, err := h.store.UpdateList(context.Background(), local)
	require.NoError(t, err)

	h.clock.Advance(time.Minute)
	passTime := h.clock.Now()
	report := h.pass(t)

	assert.Equal(t, 1, report.PushedUpdated)
	assert.Equal(t, 1, h.remote.CallCount(testutil.OpUpdateList))
	rl, _ := h.remote.Find("r3")
	assert.Equal(t, "After", rl.Name)
	assertTime(t, passTime, h.list(t, local.ID).LastSyncedAt)

	h.remote.ResetCalls()
	h.clock.Advance(time.Minute)
	h.pass(t)
	assert.Zero(t, h.remote.CallCount(testutil.OpUpdateList))
}

func TestRunPass_DeleteCorrelatedOnce(t *testing.T) {
	h := newHarness(t)
	r := h.remote.AddList("Doomed")
	local := h.syncedList(t, "Doomed", r.ID, t0)
	local.Deleted = true
	_, err := h.store.UpdateList(context.Background(), local)
	require.NoError(t, err)

	h.clock.Advance(time.Minute)
	report := h.pass(t)

	assert.Equal(t, 1, report.RemoteDeleted)
	assert.Equal(t, 1, report.LocalDeleted)
	assert.Equal(t, 1, h.remote.CallCount(testutil.OpDeleteList))
	assert.Empty(t, h.remote.Lists())
	assert.Empty(t, h.lists(t))

	h.clock.Advance(time.Minute)
	h.pass(t)
	assert.Equal(t, 1, h.remote.CallCount(testutil.OpDeleteList))
	assert.Empty(t, h.lists(t))
}

func TestRunPass_DeleteTombstoneIgnoresNewerRemote(t *testing.T) {
	h := newHarness(t)
	local := h.syncedList(t, "Doomed", "r4", t0)
	h.remote.PutList(remote.List{ID: "r4", Name: "Renamed remotely", UpdatedAt: t0.Add(time.Minute)})
	local.Deleted = true
	_, err := h.store.UpdateList(context.Background(), local)
	require.NoError(t, err)
	h.clock.Advance(2 * time.Minute)

	report := h.pass(t)

	assert.Zero(t, report.PulledUpdated)
	assert.Equal(t, 1, report.RemoteDeleted)
	assert.Empty(t, h.lists(t))
}

func TestRunPass_DeleteAlreadyGoneRemotely(t *testing.T) {
	h := newHarness(t)
	local := h.syncedList(t, "Gone", "r-missing", t0)
	local.Deleted = true
	_, err := h.store.UpdateList(context.Background(), local)
	require.NoError(t, err)

	report := h.pass(t)

	assert.Equal(t, 1, report.RemoteDeleted)
	assert.Equal(t, 1, h.remote.CallCount(testutil.OpDeleteList))
	assert.Empty(t, h.lists(t))
}

func TestRunPass_DeleteUncorrelatedWithoutRemoteCalls(t *testing.T) {
	h := newHarness(t)
	local := h.localList(t, "Never synced", "x")
	local.Deleted = true
	_, err := h.store.UpdateList(context.Background(), local)
	require.NoError(t, err)

	report := h.pass(t)

	assert.Equal(t, 1, report.LocalDeleted)
	assert.Equal(t, []string{testutil.OpListLists}, h.remote.Calls())
	assert.Empty(t, h.lists(t))
	_, ok, err := h.store.GetItem(context.Background(), local.Items[0].ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunPass_RetriesTransientFailures(t *testing.T) {
	h := newHarness(t)
	h.localList(t, "Flaky")
	h.remote.FailTransient(testutil.OpListLists, 1)
	h.remote.FailTransient(testutil.OpCreateList, 2)

	report := h.pass(t)

	assert.Equal(t, 1, report.PushedCreated)
	assert.Equal(t, 5, report.RemoteCalls)
	assert.Equal(t, 3, h.remote.CallCount(testutil.OpCreateList))
	assert.Len(t, h.remote.Lists(), 1)
}

func TestRunPass_CreateExhaustsRetriesLeavesStoreUnchanged(t *testing.T) {
	h := newHarness(t)
	h.localList(t, "Task", "item")
	h.syncedList(t, "Synced", "r5", t0)
	h.remote.PutList(remote.List{ID: "r5", Name: "Renamed", UpdatedAt: t0.Add(time.Second)})
	h.remote.AddList("Pulled")
	h.clock.Advance(time.Minute)

	before := h.lists(t)
	h.remote.FailTransient(testutil.OpCreateList, retry.DefaultAttempts)

	report, err := h.orch.RunPass(context.Background())

	require.Error(t, err)
	assert.True(t, remote.IsTransient(err))
	assert.Equal(t, retry.DefaultAttempts, h.remote.CallCount(testutil.OpCreateList))
	assert.Equal(t, 1+retry.DefaultAttempts, report.RemoteCalls)
	assert.Equal(t, before, h.lists(t))
}

func TestRunPass_TerminalErrorNotRetried(t *testing.T) {
	h := newHarness(t)
	h.localList(t, "Rejected")
	h.remote.FailStatus(testutil.OpCreateList, http.StatusBadRequest)
	before := h.lists(t)

	_, err := h.orch.RunPass(context.Background())

	require.Error(t, err)
	assert.False(t, remote.IsTransient(err))
	assert.Equal(t, 1, h.remote.CallCount(testutil.OpCreateList))
	assert.Equal(t, before, h.lists(t))
}

func TestRunPass_PullFailureAbortsBeforePush(t *testing.T) {
	h := newHarness(t)
	h.localList(t, "Waiting")
	h.remote.FailStatus(testutil.OpListLists, http.StatusUnauthorized)

	_, err := h.orch.RunPass(context.Background())

	require.Error(t, err)
	assert.Equal(t, []string{testutil.OpListLists}, h.remote.Calls())
}

func TestRunPass_AdoptsRemoteCopyAfterAbortedPass(t *testing.T) {
	h := newHarness(t)
	first := h.localList(t, "First", "a")
	second := h.syncedList(t, "Second", "r6", t0)
	h.remote.PutList(remote.List{ID: "r6", Name: "Second", UpdatedAt: t0})
	second.Name = "Second renamed"
	second.LastModifiedAt = t0.Add(time.Second)
	_, err := h.store.UpdateList(context.Background(), second)
	require.NoError(t, err)
	h.clock.Advance(time.Minute)

	// First's remote create succeeds, then the pass dies on Second's update.
	h.remote.FailStatus(testutil.OpUpdateList, http.StatusConflict)
	_, err = h.orch.RunPass(context.Background())
	require.Error(t, err)
	require.Len(t, h.remote.Lists(), 2)
	assert.Nil(t, h.list(t, first.ID).ExternalID)

	h.remote.ResetCalls()
	h.clock.Advance(time.Minute)
	report := h.pass(t)

	assert.Equal(t, 1, report.Adopted)
	assert.Zero(t, h.remote.CallCount(testutil.OpCreateList))
	assert.Len(t, h.remote.Lists(), 2)
	assert.Len(t, h.lists(t), 2)

	got := h.list(t, first.ID)
	require.NotNil(t, got.ExternalID)
	rl, ok := h.remote.Find(*got.ExternalID)
	require.True(t, ok)
	assert.Equal(t, "First", rl.Name)
	require.NotNil(t, got.Items[0].ExternalID)
	assert.Equal(t, rl.Items[0].ID, *got.Items[0].ExternalID)
}

func TestRunPass_AdoptedRenamedListPushesLocalName(t *testing.T) {
	h := newHarness(t)
	local := h.localList(t, "Renamed locally")
	h.remote.PutList(remote.List{
		ID:        "r7",
		SourceID:  strconv.FormatInt(local.ID, 10),
		Name:      "Original",
		UpdatedAt: t0,
	})
	h.clock.Advance(time.Minute)

	report := h.pass(t)

	assert.Equal(t, 1, report.Adopted)
	assert.Equal(t, 1, report.PushedUpdated)
	rl, _ := h.remote.Find("r7")
	assert.Equal(t, "Renamed locally", rl.Name)
	assert.Equal(t, "r7", *h.list(t, local.ID).ExternalID)
}

func TestRunPass_AdoptedTombstoneIsDeletedRemotely(t *testing.T) {
	h := newHarness(t)
	local := h.localList(t, "Dropped")
	local.Deleted = true
	_, err := h.store.UpdateList(context.Background(), local)
	require.NoError(t, err)
	h.remote.PutList(remote.List{ID: "r8", SourceID: strconv.FormatInt(local.ID, 10), Name: "Dropped", UpdatedAt: t0})

	h.pass(t)

	assert.Equal(t, 1, h.remote.CallCount(testutil.OpDeleteList))
	assert.Empty(t, h.remote.Lists())
	assert.Empty(t, h.lists(t))
}

func TestRunPass_Scenarios(t *testing.T) {
	t.Run("local list without match gets correlated", func(t *testing.T) {
		h := newHarness(t)
		local := h.localList(t, "Task")
		passTime := h.clock.Now()

		h.pass(t)

		got := h.list(t, local.ID)
		require.NotNil(t, got.ExternalID)
		assert.NotEmpty(t, *got.ExternalID)
		assertTime(t, passTime, got.LastSyncedAt)
	})

	t.Run("remote list without match is created locally", func(t *testing.T) {
		h := newHarness(t)
		h.remote.PutList(remote.List{ID: "r1", Name: "New", UpdatedAt: t0})
		h.clock.Advance(time.Minute)

		h.pass(t)

		lists := h.lists(t)
		require.Len(t, lists, 1)
		assert.Equal(t, "r1", *lists[0].ExternalID)
		assert.Equal(t, "New", lists[0].Name)
	})

	t.Run("older remote leaves local name", func(t *testing.T) {
		h := newHarness(t)
		local := h.syncedList(t, "Old", "r2", t0)
		h.remote.PutList(remote.List{ID: "r2", Name: "Newer?", UpdatedAt: t0.Add(-time.Second)})

		h.pass(t)

		assert.Equal(t, "Old", h.list(t, local.ID).Name)
	})
}

func TestTryRunPass_RejectsConcurrentPass(t *testing.T) {
	h := newHarness(t)
	gw := &blockingGateway{FakeRemote: h.remote, entered: make(chan struct{}), release: make(chan struct{})}
	h.orch.gateway = gw

	done := make(chan error, 1)
	go func() {
		_, err := h.orch.RunPass(context.Background())
		done <- err
	}()

	<-gw.entered
	_, err := h.orch.TryRunPass(context.Background())
	assert.ErrorIs(t, err, ErrPassInProgress)

	close(gw.release)
	require.NoError(t, <-done)

	_, err = h.orch.TryRunPass(context.Background())
	assert.NoError(t, err)
}

func TestRunPass_CommitFailureReported(t *testing.T) {
	h := newHarness(t)
	h.remote.AddList("New")
	h.orch.store = failingCommitStore{Store: h.store}

	_, err := h.orch.RunPass(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, errCommit)
	assert.Empty(t, h.lists(t))
}

// duplicatingGateway lists the list with id dup twice.
type duplicatingGateway struct {
	*testutil.FakeRemote
	dup string
}

func (g *duplicatingGateway) ListLists(ctx context.Context) ([]remote.List, error) {
	lists, err := g.FakeRemote.ListLists(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range lists {
		if l.ID == g.dup {
			lists = append(lists, l)
			break
		}
	}
	return lists, nil
}

// blockingGateway holds ListLists until release is closed. Only the first
// call blocks.
type blockingGateway struct {
	*testutil.FakeRemote
	entered chan struct{}
	release chan struct{}
	calls   int
}

func (g *blockingGateway) ListLists(ctx context.Context) ([]remote.List, error) {
	g.calls++
	if g.calls == 1 {
		close(g.entered)
		<-g.release
	}
	return g.FakeRemote.ListLists(ctx)
}

var errCommit = errors.New("disk full")

type failingCommitStore struct {
	*sqlite.Store
}

func (s failingCommitStore) Commit(context.Context, service.Changeset) (service.CommitResult, error) {
	return service.CommitResult{}, errCommit
}

func TestRunPass_TombstoneDuringPassSurvivesCommit(t *testing.T) {
	h := newHarness(t)
	local := h.localList(t, "Errands", "stamps")
	svc := tasks.New(h.store, zerolog.Nop(), tasks.WithClock(h.clock.Now), tasks.WithStepDelay(0))
	h.clock.Advance(time.Minute)

	// The user deletes the list while its remote copy is being created.
	h.remote.OnCall = func(op string) {
		if op == testutil.OpCreateList {
			h.clock.Advance(time.Second)
			require.NoError(t, svc.DeleteList(context.Background(), local.ID))
		}
	}
	report := h.pass(t)
	assert.Equal(t, 1, report.PushedCreated)

	got := h.list(t, local.ID)
	assert.True(t, got.Deleted, "tombstone overwritten by commit")
	require.NotNil(t, got.ExternalID)
	assertTime(t, h.clock.Now(), got.LastModifiedAt)

	h.remote.OnCall = nil
	h.clock.Advance(time.Minute)
	report = h.pass(t)

	assert.Equal(t, 1, report.RemoteDeleted)
	assert.Empty(t, h.remote.Lists())
	assert.Empty(t, h.lists(t))
}

func TestRunPass_RenameDuringPassBeatsPulledName(t *testing.T) {
	h := newHarness(t)
	pulled := h.syncedList(t, "Chores", "r-chores", t0)
	h.remote.PutList(remote.List{ID: "r-chores", Name: "Chores (remote)", UpdatedAt: t0.Add(time.Second)})
	pushed := h.localList(t, "Other")
	svc := tasks.New(h.store, zerolog.Nop(), tasks.WithClock(h.clock.Now), tasks.WithStepDelay(0))
	h.clock.Advance(time.Minute)

	// The pull staged the remote name; the user renames before commit.
	h.remote.OnCall = func(op string) {
		if op == testutil.OpCreateList {
			h.clock.Advance(time.Second)
			_, err := svc.RenameList(context.Background(), pulled.ID, "Chores (mine)")
			require.NoError(t, err)
		}
	}
	report := h.pass(t)
	h.remote.OnCall = nil

	assert.Equal(t, 1, report.PulledUpdated)
	assert.Equal(t, 1, report.Skipped)
	assert.NotNil(t, h.list(t, pushed.ID).ExternalID)
	assert.Equal(t, "Chores (mine)", h.list(t, pulled.ID).Name)

	// The local rename is newer than the pass and goes out next time.
	h.clock.Advance(time.Minute)
	report = h.pass(t)
	assert.Equal(t, 1, report.PushedUpdated)
	rl, ok := h.remote.Find("r-chores")
	require.True(t, ok)
	assert.Equal(t, "Chores (mine)", rl.Name)
}
