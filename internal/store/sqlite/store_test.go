package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todosync/internal/service"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(context.Background(), MemoryPath, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

var t0 = time.Date(2025, 8, 13, 12, 0, 0, 0, time.UTC)

func TestCreateListWithItems_RoundTrip(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	created, err := st.CreateListWithItems(ctx, service.TaskList{
		Name:           "Groceries",
		ExternalID:     service.StringPtr("r1"),
		LastModifiedAt: t0,
		LastSyncedAt:   t0,
		Items: []service.TaskItem{
			{Description: "Milk", ExternalID: service.StringPtr("ri1"), LastModifiedAt: t0, LastSyncedAt: t0},
			{Description: "Eggs", Completed: true, LastModifiedAt: t0, LastSyncedAt: t0},
		},
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	got, ok, err := st.GetList(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Groceries", got.Name)
	require.NotNil(t, got.ExternalID)
	assert.Equal(t, "r1", *got.ExternalID)
	assert.True(t, got.LastSyncedAt.Equal(t0))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Milk", got.Items[0].Description)
	assert.Equal(t, created.ID, got.Items[0].ListID)
	assert.True(t, got.Items[1].Completed)
	assert.Nil(t, got.Items[1].ExternalID)
}

func TestGetList_Missing(t *testing.T) {
	st := openTestStore(t)

	_, ok, err := st.GetList(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCreateList_ZeroSyncTimeStoredAsEpoch(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	created, err := st.CreateList(ctx, service.TaskList{Name: "Fresh", LastModifiedAt: t0})
	require.NoError(t, err)

	got, ok, err := st.GetList(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.LastSyncedAt.Equal(service.Epoch))
	assert.Nil(t, got.ExternalID)
}

func TestUpdateList_NotFound(t *testing.T) {
	st := openTestStore(t)

	_, err := st.UpdateList(context.Background(), service.TaskList{ID: 7, Name: "gone"})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestDeleteList_CascadesItems(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	created, err := st.CreateListWithItems(ctx, service.TaskList{
		Name:  "Work",
		Items: []service.TaskItem{{Description: "Report"}},
	})
	require.NoError(t, err)
	itemID := created.Items[0].ID

	deleted, err := st.DeleteList(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, ok, err := st.GetItem(ctx, itemID)
	require.NoError(t, err)
	assert.False(t, ok)

	deleted, err = st.DeleteList(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestCreateItem_UnknownList(t *testing.T) {
	st := openTestStore(t)

	_, err := st.CreateItem(context.Background(), service.TaskItem{ListID: 99, Description: "orphan"})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestExternalIDUnique(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	_, err := st.CreateList(ctx, service.TaskList{Name: "A", ExternalID: service.StringPtr("dup")})
	require.NoError(t, err)
	_, err = st.CreateList(ctx, service.TaskList{Name: "B", ExternalID: service.StringPtr("dup")})
	assert.Error(t, err)

	// Any number of uncorrelated lists is fine.
	_, err = st.CreateList(ctx, service.TaskList{Name: "C"})
	require.NoError(t, err)
	_, err = st.CreateList(ctx, service.TaskList{Name: "D"})
	require.NoError(t, err)
}

func TestCommit_AppliesAllKinds(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	toUpdate, err := st.CreateListWithItems(ctx, service.TaskList{
		Name:  "Local",
		Items: []service.TaskItem{{Description: "one"}},
	})
	require.NoError(t, err)
	toDelete, err := st.CreateList(ctx, service.TaskList{Name: "Doomed", Deleted: true})
	require.NoError(t, err)

	toUpdate.ExternalID = service.StringPtr("r-local")
	toUpdate.LastSyncedAt = t0
	toUpdate.Items[0].ExternalID = service.StringPtr("ri-one")
	toUpdate.Items[0].LastSyncedAt = t0

	res, err := st.Commit(ctx, service.Changeset{
		Creates: []service.TaskList{{
			Name:       "Pulled",
			ExternalID: service.StringPtr("r-pulled"),
			Items:      []service.TaskItem{{Description: "p1", ExternalID: service.StringPtr("ri-p1")}},
		}},
		Updates: []service.ListUpdate{{
			ID:           toUpdate.ID,
			ExternalID:   toUpdate.ExternalID,
			LastSyncedAt: toUpdate.LastSyncedAt,
			Items:        toUpdate.Items,
		}},
		Deletes: []int64{toDelete.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, service.CommitResult{Created: 1, Updated: 1, Deleted: 1}, res)

	lists, err := st.ListLists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Equal(t, "r-local", *lists[0].ExternalID)
	assert.Equal(t, "ri-one", *lists[0].Items[0].ExternalID)
	assert.True(t, lists[0].Items[0].LastSyncedAt.Equal(t0))
	assert.Equal(t, "Pulled", lists[1].Name)
	require.Len(t, lists[1].Items, 1)
}

func TestCommit_MissingRowsAreSkipped(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	res, err := st.Commit(ctx, service.Changeset{
		Updates: []service.ListUpdate{{ID: 100, Name: "ghost"}},
		Deletes: []int64{101},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Skipped)
	assert.Zero(t, res.Updated)
	assert.Zero(t, res.Deleted)
}

func TestCommit_RollsBackOnConflict(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	existing, err := st.CreateList(ctx, service.TaskList{Name: "Owner", ExternalID: service.StringPtr("taken")})
	require.NoError(t, err)
	other, err := st.CreateList(ctx, service.TaskList{Name: "Other"})
	require.NoError(t, err)

	_, err = st.Commit(ctx, service.Changeset{
		Creates: []service.TaskList{{Name: "Should not persist"}},
		Updates: []service.ListUpdate{{ID: other.ID, ExternalID: service.StringPtr("taken")}},
		Deletes: []int64{existing.ID + 1000},
	})
	require.Error(t, err)

	lists, err := st.ListLists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Nil(t, lists[1].ExternalID)
}

func TestCommit_Empty(t *testing.T) {
	st := openTestStore(t)

	res, err := st.Commit(context.Background(), service.Changeset{})
	require.NoError(t, err)
	assert.Equal(t, service.CommitResult{}, res)
}

func TestCommit_UpdateKeepsTombstone(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)

	list, err := st.CreateList(ctx, service.TaskList{Name: "Errands", LastModifiedAt: t0})
	require.NoError(t, err)

	// Tombstoned after the pass read the row.
	tomb := list
	tomb.Deleted = true
	tomb.LastModifiedAt = t0.Add(time.Minute)
	_, err = st.UpdateList(ctx, tomb)
	require.NoError(t, err)

	res, err := st.Commit(ctx, service.Changeset{
		Updates: []service.ListUpdate{{
			ID:           list.ID,
			ExternalID:   service.StringPtr("r-errands"),
			LastSyncedAt: t0,
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, service.CommitResult{Updated: 1}, res)

	got, ok, err := st.GetList(ctx, list.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Deleted)
	assert.Equal(t, "r-errands", *got.ExternalID)
	assert.True(t, got.LastModifiedAt.Equal(t0.Add(time.Minute)))
}

func TestCommit_PulledRename(t *testing.T) {
	tests := []struct {
		name      string
		editedAt  time.Time
		wantName  string
		wantSkips int
	}{
		{"row unchanged since read", t0, "Pulled", 0},
		{"row edited during pass", t0.Add(time.Minute), "Edited", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			st := openTestStore(t)

			list, err := st.CreateList(ctx, service.TaskList{
				Name:           "Edited",
				ExternalID:     service.StringPtr("r1"),
				LastModifiedAt: tt.editedAt,
			})
			require.NoError(t, err)

			res, err := st.Commit(ctx, service.Changeset{
				Updates: []service.ListUpdate{{
					ID:             list.ID,
					ExternalID:     list.ExternalID,
					LastSyncedAt:   t0.Add(time.Hour),
					Name:           "Pulled",
					LastModifiedAt: t0.Add(time.Hour),
					ReadModifiedAt: t0,
				}},
			})
			require.NoError(t, err)
			assert.Equal(t, 1, res.Updated)
			assert.Equal(t, tt.wantSkips, res.Skipped)

			got, _, err := st.GetList(ctx, list.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, got.Name)
			assert.True(t, got.LastSyncedAt.Equal(t0.Add(time.Hour)))
		})
	}
}
