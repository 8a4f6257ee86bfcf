// Package googletasks implements remote.Gateway on the Google Tasks API.
// Task lists map to lists and tasks to items.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"todosync/internal/config"
	"todosync/internal/remote"
)

const (
	// PageSize is the number of records per page.
	PageSize = 100

	// APITimeout is the default timeout for API calls.
	APITimeout = 5 * time.Second

	// TasksScope is the OAuth scope for Google Tasks.
	TasksScope = "https://www.googleapis.com/auth/tasks"

	// sourcePrefix marks the line of a task's notes that carries its SourceID.
	sourcePrefix = "todosync-source:"

	statusNeedsAction = "needsAction"
	statusCompleted   = "completed"
)

// Client implements remote.Gateway using Google Tasks API.
type Client struct {
	svc     *tasks.Service
	timeout time.Duration
	logger  zerolog.Logger
}

var _ remote.Gateway = (*Client)(nil)

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Client, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(clientJSON, TasksScope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}

	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}

	// Refreshes automatically
	tokenSource := oauthConfig.TokenSource(ctx, &token)
	httpClient := oauth2.NewClient(ctx, tokenSource)

	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}

	return newClient(svc, cfg.Settings.Remote.Timeout, logger), nil
}

// NewWithHTTPClient creates a client with a custom HTTP client and endpoint
// (for testing). An empty endpoint means the public API.
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, endpoint string, logger zerolog.Logger) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return newClient(svc, 0, logger), nil
}

func newClient(svc *tasks.Service, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = APITimeout
	}
	return &Client{
		svc:     svc,
		timeout: timeout,
		logger:  logger.With().Str("component", "googletasks").Logger(),
	}
}

// ListLists returns every task list with its tasks, hidden and completed
// ones included.
func (c *Client) ListLists(ctx context.Context) ([]remote.List, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result []remote.List
	err := c.svc.Tasklists.List().MaxResults(PageSize).Pages(ctx, func(resp *tasks.TaskLists) error {
		for _, tl := range resp.Items {
			result = append(result, fromTaskList(tl))
		}
		return nil
	})
	if err != nil {
		return nil, wrapError("list lists", err)
	}

	for i := range result {
		err := c.svc.Tasks.List(result[i].ID).
			MaxResults(PageSize).
			ShowCompleted(true).
			ShowHidden(true).
			ShowDeleted(false).
			Pages(ctx, func(resp *tasks.Tasks) error {
				for _, t := range resp.Items {
					result[i].Items = append(result[i].Items, fromTask(t))
				}
				return nil
			})
		if err != nil {
			return nil, wrapError("list lists", err)
		}
	}

	c.logger.Debug().Int("lists", len(result)).Msg("listed task lists")
	return result, nil
}

// CreateList creates a task list, then its tasks one by one.
// Google Tasks lists have no place for a SourceID; tasks keep theirs in notes.
// If a task insert fails the list is deleted again so that a retry does not
// leave a duplicate behind.
func (c *Client) CreateList(ctx context.Context, body remote.CreateListBody) (remote.List, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tl, err := c.svc.Tasklists.Insert(&tasks.TaskList{Title: body.Name}).Context(ctx).Do()
	if err != nil {
		return remote.List{}, wrapError("create list", err)
	}
	list := fromTaskList(tl)

	for _, ib := range body.Items {
		t, err := c.svc.Tasks.Insert(tl.Id, toTask(ib)).Context(ctx).Do()
		if err != nil {
			return remote.List{}, c.abandonList(ctx, tl.Id, wrapError("create list", err))
		}
		list.Items = append(list.Items, fromTask(t))
	}
	return list, nil
}

// abandonList removes a partially created list and returns cause. When the
// list cannot be removed the error is marked remote.ErrIncomplete.
func (c *Client) abandonList(ctx context.Context, listID string, cause error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	if err := c.svc.Tasklists.Delete(listID).Context(ctx).Do(); err != nil {
		c.logger.Error().Err(err).Str("list_id", listID).Msg("failed to remove partially created list")
		return fmt.Errorf("%w: list %s left behind: %w", remote.ErrIncomplete, listID, cause)
	}
	c.logger.Warn().Err(cause).Str("list_id", listID).Msg("removed partially created list")
	return cause
}

// UpdateList implements remote.Gateway.
func (c *Client) UpdateList(ctx context.Context, listID string, body remote.UpdateListBody) (remote.List, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tl, err := c.svc.Tasklists.Patch(listID, &tasks.TaskList{Title: body.Name}).Context(ctx).Do()
	if err != nil {
		return remote.List{}, wrapError("update list", err)
	}
	return fromTaskList(tl), nil
}

// DeleteList implements remote.Gateway.
func (c *Client) DeleteList(ctx context.Context, listID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.svc.Tasklists.Delete(listID).Context(ctx).Do(); err != nil {
		return wrapError("delete list", err)
	}
	return nil
}

// CreateItem implements remote.Gateway.
func (c *Client) CreateItem(ctx context.Context, listID string, body remote.CreateItemBody) (remote.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	t, err := c.svc.Tasks.Insert(listID, toTask(body)).Context(ctx).Do()
	if err != nil {
		return remote.Item{}, wrapError("create item", err)
	}
	return fromTask(t), nil
}

// UpdateItem implements remote.Gateway.
func (c *Client) UpdateItem(ctx context.Context, listID, itemID string, body remote.UpdateItemBody) (remote.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	patch := &tasks.Task{}
	if body.Description != nil {
		patch.Title = *body.Description
	}
	if body.Completed != nil {
		patch.Status = statusNeedsAction
		if *body.Completed {
			patch.Status = statusCompleted
		}
	}

	t, err := c.svc.Tasks.Patch(listID, itemID, patch).Context(ctx).Do()
	if err != nil {
		return remote.Item{}, wrapError("update item", err)
	}
	return fromTask(t), nil
}

// DeleteItem implements remote.Gateway.
func (c *Client) DeleteItem(ctx context.Context, listID, itemID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.svc.Tasks.Delete(listID, itemID).Context(ctx).Do(); err != nil {
		return wrapError("delete item", err)
	}
	return nil
}

func fromTaskList(tl *tasks.TaskList) remote.List {
	updated := parseTime(tl.Updated)
	return remote.List{
		ID:        tl.Id,
		Name:      tl.Title,
		CreatedAt: updated,
		UpdatedAt: updated,
	}
}

func fromTask(t *tasks.Task) remote.Item {
	updated := parseTime(t.Updated)
	return remote.Item{
		ID:          t.Id,
		SourceID:    sourceFromNotes(t.Notes),
		Description: t.Title,
		Completed:   t.Status == statusCompleted,
		CreatedAt:   updated,
		UpdatedAt:   updated,
	}
}

func toTask(body remote.CreateItemBody) *tasks.Task {
	t := &tasks.Task{
		Title:  body.Description,
		Status: statusNeedsAction,
	}
	if body.Completed {
		t.Status = statusCompleted
	}
	if body.SourceID != "" {
		t.Notes = sourcePrefix + body.SourceID
	}
	return t
}

func sourceFromNotes(notes string) string {
	for _, line := range strings.Split(notes, "\n") {
		if id, ok := strings.CutPrefix(strings.TrimSpace(line), sourcePrefix); ok {
			return id
		}
	}
	return ""
}

// parseTime reads an RFC 3339 timestamp. Unparseable values become the zero
// time, which never wins a last-writer comparison.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// wrapError classifies API errors by status code.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return remote.Wrap(op, apiErr.Code, err)
	}
	return remote.Wrap(op, 0, err)
}
