// Package sqlite implements service.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"todosync/internal/service"
)

//go:embed schema.sql
var schemaSQL string

// MemoryPath opens a private in-memory database. Used by tests.
const MemoryPath = ":memory:"

// Store implements service.Store.
//
// SQLite has a single writer, so the pool is limited to one connection.
// That also keeps an in-memory database alive for the life of the Store.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// querier is the subset shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open creates or opens the database at path and applies the schema.
func Open(ctx context.Context, path string, logger zerolog.Logger) (*Store, error) {
	dsn := MemoryPath
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const listColumns = `id, name, external_id, last_modified_at, last_synced_at, deleted`

const itemColumns = `id, list_id, description, completed, external_id, last_modified_at, last_synced_at, deleted`

// ListLists implements service.Store.
func (s *Store) ListLists(ctx context.Context) ([]service.TaskList, error) {
	return listLists(ctx, s.db)
}

func listLists(ctx context.Context, q querier) ([]service.TaskList, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+listColumns+` FROM task_lists ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select lists: %w", err)
	}
	var lists []service.TaskList
	index := make(map[int64]int)
	for rows.Next() {
		list, err := scanList(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[list.ID] = len(lists)
		lists = append(lists, list)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate lists: %w", err)
	}
	rows.Close()

	// Items are read after the list cursor is closed: the pool has one connection.
	items, err := queryItems(ctx, q, `SELECT `+itemColumns+` FROM task_items ORDER BY list_id, id`)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if i, ok := index[item.ListID]; ok {
			lists[i].Items = append(lists[i].Items, item)
		}
	}
	return lists, nil
}

// GetList implements service.Store.
func (s *Store) GetList(ctx context.Context, id int64) (service.TaskList, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+listColumns+` FROM task_lists WHERE id = ?`, id)
	list, err := scanList(row)
	if errors.Is(err, sql.ErrNoRows) {
		return service.TaskList{}, false, nil
	}
	if err != nil {
		return service.TaskList{}, false, err
	}
	list.Items, err = s.ListItems(ctx, id)
	if err != nil {
		return service.TaskList{}, false, err
	}
	return list, true, nil
}

// CreateList implements service.Store.
func (s *Store) CreateList(ctx context.Context, list service.TaskList) (service.TaskList, error) {
	list.Items = nil
	return insertList(ctx, s.db, list)
}

// CreateListWithItems implements service.Store.
func (s *Store) CreateListWithItems(ctx context.Context, list service.TaskList) (service.TaskList, error) {
	var created service.TaskList
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		created, err = insertList(ctx, tx, list)
		return err
	})
	return created, err
}

// UpdateList implements service.Store.
func (s *Store) UpdateList(ctx context.Context, list service.TaskList) (service.TaskList, error) {
	if err := updateList(ctx, s.db, list); err != nil {
		return service.TaskList{}, err
	}
	return list, nil
}

// DeleteList implements service.Store.
func (s *Store) DeleteList(ctx context.Context, id int64) (bool, error) {
	return deleteList(ctx, s.db, id)
}

// ListItems implements service.Store.
func (s *Store) ListItems(ctx context.Context, listID int64) ([]service.TaskItem, error) {
	return queryItems(ctx, s.db, `SELECT `+itemColumns+` FROM task_items WHERE list_id = ? ORDER BY id`, listID)
}

// GetItem implements service.Store.
func (s *Store) GetItem(ctx context.Context, id int64) (service.TaskItem, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM task_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return service.TaskItem{}, false, nil
	}
	if err != nil {
		return service.TaskItem{}, false, err
	}
	return item, true, nil
}

// CreateItem implements service.Store.
func (s *Store) CreateItem(ctx context.Context, item service.TaskItem) (service.TaskItem, error) {
	return insertItem(ctx, s.db, item)
}

// UpdateItem implements service.Store.
func (s *Store) UpdateItem(ctx context.Context, item service.TaskItem) (service.TaskItem, error) {
	res, err := s.db.ExecContext(ctx, `
UPDATE task_items
SET description = ?,
    completed = ?,
    external_id = ?,
    last_modified_at = ?,
    last_synced_at = ?,
    deleted = ?
WHERE id = ?`,
		item.Description, item.Completed, nullString(item.ExternalID),
		formatTime(item.LastModifiedAt), formatTime(item.LastSyncedAt), item.Deleted, item.ID)
	if err != nil {
		return service.TaskItem{}, fmt.Errorf("failed to update item %d: %w", item.ID, err)
	}
	if err := requireRow(res); err != nil {
		return service.TaskItem{}, err
	}
	return item, nil
}

// DeleteItem implements service.Store.
func (s *Store) DeleteItem(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM task_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete item %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Commit implements service.Store.
func (s *Store) Commit(ctx context.Context, cs service.Changeset) (service.CommitResult, error) {
	var result service.CommitResult
	if cs.Empty() {
		return result, nil
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range cs.Deletes {
			existed, err := deleteList(ctx, tx, id)
			if err != nil {
				return err
			}
			if !existed {
				s.logger.Warn().Int64("list_id", id).Msg("list already removed, skipping delete")
				result.Skipped++
				continue
			}
			result.Deleted++
		}

		for _, list := range cs.Creates {
			if _, err := insertList(ctx, tx, list); err != nil {
				return err
			}
			result.Created++
		}

		for _, u := range cs.Updates {
			renamed, err := applyListUpdate(ctx, tx, u)
			if errors.Is(err, service.ErrNotFound) {
				s.logger.Warn().Int64("list_id", u.ID).Msg("list removed concurrently, skipping update")
				result.Skipped++
				continue
			}
			if err != nil {
				return err
			}
			if u.Name != "" && !renamed {
				s.logger.Warn().Int64("list_id", u.ID).Str("name", u.Name).Msg("list edited concurrently, dropping pulled rename")
				result.Skipped++
			}
			if err := updateItemCorrelations(ctx, tx, u.Items); err != nil {
				return err
			}
			result.Updated++
		}
		return nil
	})
	if err != nil {
		return service.CommitResult{}, err
	}
	return result, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error().Err(rbErr).Msg("failed to roll back transaction")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertList(ctx context.Context, q querier, list service.TaskList) (service.TaskList, error) {
	res, err := q.ExecContext(ctx, `
INSERT INTO task_lists (name, external_id, last_modified_at, last_synced_at, deleted)
VALUES (?, ?, ?, ?, ?)`,
		list.Name, nullString(list.ExternalID),
		formatTime(list.LastModifiedAt), formatTime(list.LastSyncedAt), list.Deleted)
	if err != nil {
		return service.TaskList{}, fmt.Errorf("failed to insert list %q: %w", list.Name, err)
	}
	list.ID, err = res.LastInsertId()
	if err != nil {
		return service.TaskList{}, err
	}

	for i := range list.Items {
		list.Items[i].ListID = list.ID
		item, err := insertItem(ctx, q, list.Items[i])
		if err != nil {
			return service.TaskList{}, err
		}
		list.Items[i] = item
	}
	return list, nil
}

func insertItem(ctx context.Context, q querier, item service.TaskItem) (service.TaskItem, error) {
	res, err := q.ExecContext(ctx, `
INSERT INTO task_items (list_id, description, completed, external_id, last_modified_at, last_synced_at, deleted)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ListID, item.Description, item.Completed, nullString(item.ExternalID),
		formatTime(item.LastModifiedAt), formatTime(item.LastSyncedAt), item.Deleted)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return service.TaskItem{}, fmt.Errorf("list %d: %w", item.ListID, service.ErrNotFound)
		}
		return service.TaskItem{}, fmt.Errorf("failed to insert item: %w", err)
	}
	item.ID, err = res.LastInsertId()
	if err != nil {
		return service.TaskItem{}, err
	}
	return item, nil
}

func updateList(ctx context.Context, q querier, list service.TaskList) error {
	res, err := q.ExecContext(ctx, `
UPDATE task_lists
SET name = ?,
    external_id = ?,
    last_modified_at = ?,
    last_synced_at = ?,
    deleted = ?
WHERE id = ?`,
		list.Name, nullString(list.ExternalID),
		formatTime(list.LastModifiedAt), formatTime(list.LastSyncedAt), list.Deleted, list.ID)
	if err != nil {
		return fmt.Errorf("failed to update list %d: %w", list.ID, err)
	}
	return requireRow(res)
}

// applyListUpdate writes the sync columns of a list, then its pulled name if
// the row was not modified since the pass read it. It reports whether the
// name was written.
func applyListUpdate(ctx context.Context, q querier, u service.ListUpdate) (bool, error) {
	res, err := q.ExecContext(ctx, `
UPDATE task_lists SET external_id = ?, last_synced_at = ? WHERE id = ?`,
		nullString(u.ExternalID), formatTime(u.LastSyncedAt), u.ID)
	if err != nil {
		return false, fmt.Errorf("failed to update list %d: %w", u.ID, err)
	}
	if err := requireRow(res); err != nil {
		return false, err
	}
	if u.Name == "" {
		return false, nil
	}

	res, err = q.ExecContext(ctx, `
UPDATE task_lists SET name = ?, last_modified_at = ?
WHERE id = ? AND last_modified_at = ?`,
		u.Name, formatTime(u.LastModifiedAt), u.ID, formatTime(u.ReadModifiedAt))
	if err != nil {
		return false, fmt.Errorf("failed to rename list %d: %w", u.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// updateItemCorrelations writes the sync-owned columns of correlated items.
func updateItemCorrelations(ctx context.Context, q querier, items []service.TaskItem) error {
	for _, item := range items {
		if item.ExternalID == nil {
			continue
		}
		_, err := q.ExecContext(ctx, `
UPDATE task_items SET external_id = ?, last_synced_at = ? WHERE id = ?`,
			*item.ExternalID, formatTime(item.LastSyncedAt), item.ID)
		if err != nil {
			return fmt.Errorf("failed to update item %d: %w", item.ID, err)
		}
	}
	return nil
}

func deleteList(ctx context.Context, q querier, id int64) (bool, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM task_lists WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete list %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func queryItems(ctx context.Context, q querier, query string, args ...any) ([]service.TaskItem, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select items: %w", err)
	}
	defer rows.Close()

	var items []service.TaskItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanList(row scanner) (service.TaskList, error) {
	var (
		list           service.TaskList
		externalID     sql.NullString
		modified, sync string
	)
	err := row.Scan(&list.ID, &list.Name, &externalID, &modified, &sync, &list.Deleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return list, err
		}
		return list, fmt.Errorf("failed to scan list: %w", err)
	}
	if externalID.Valid {
		list.ExternalID = service.StringPtr(externalID.String)
	}
	if list.LastModifiedAt, err = parseTime(modified); err != nil {
		return list, err
	}
	if list.LastSyncedAt, err = parseTime(sync); err != nil {
		return list, err
	}
	return list, nil
}

func scanItem(row scanner) (service.TaskItem, error) {
	var (
		item           service.TaskItem
		externalID     sql.NullString
		modified, sync string
	)
	err := row.Scan(&item.ID, &item.ListID, &item.Description, &item.Completed,
		&externalID, &modified, &sync, &item.Deleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return item, err
		}
		return item, fmt.Errorf("failed to scan item: %w", err)
	}
	if externalID.Valid {
		item.ExternalID = service.StringPtr(externalID.String)
	}
	if item.LastModifiedAt, err = parseTime(modified); err != nil {
		return item, err
	}
	if item.LastSyncedAt, err = parseTime(sync); err != nil {
		return item, err
	}
	return item, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return service.ErrNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = service.Epoch
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
