// Package remote defines the contract of the remote task-list system.
// Backends live under internal/backend; the synchronizer only sees Gateway.
package remote

import (
	"context"
	"time"
)

// Item is a remote task item.
type Item struct {
	ID          string    `json:"id"`
	SourceID    string    `json:"source_id,omitempty"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// List is a remote task list with its items.
type List struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"source_id,omitempty"` // local id set at creation time
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Items     []Item    `json:"items"`
}

// CreateItemBody is the payload for creating an item.
type CreateItemBody struct {
	SourceID    string `json:"source_id"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// CreateListBody is the payload for creating a list with its initial items.
type CreateListBody struct {
	SourceID string           `json:"source_id"`
	Name     string           `json:"name"`
	Items    []CreateItemBody `json:"items"`
}

// UpdateListBody is a partial list update.
type UpdateListBody struct {
	Name string `json:"name"`
}

// UpdateItemBody is a partial item update. Nil fields are left unchanged.
type UpdateItemBody struct {
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// Gateway is the client of the remote task-list system.
// Implementations return *Error for failures so callers can classify them.
type Gateway interface {
	// ListLists returns every remote list with its items.
	ListLists(ctx context.Context) ([]List, error)

	// CreateList creates a list and its initial items.
	CreateList(ctx context.Context, body CreateListBody) (List, error)

	// UpdateList applies a partial update to a list.
	UpdateList(ctx context.Context, listID string, body UpdateListBody) (List, error)

	// DeleteList deletes a list.
	DeleteList(ctx context.Context, listID string) error

	// CreateItem adds an item to a list.
	CreateItem(ctx context.Context, listID string, body CreateItemBody) (Item, error)

	// UpdateItem applies a partial update to an item.
	UpdateItem(ctx context.Context, listID, itemID string, body UpdateItemBody) (Item, error)

	// DeleteItem deletes an item.
	DeleteItem(ctx context.Context, listID, itemID string) error
}
