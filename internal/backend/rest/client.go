// Package rest implements remote.Gateway against a JSON-over-HTTP todo API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/clientcredentials"

	"todosync/internal/remote"
)

const (
	// DefaultTimeout bounds a single API call.
	DefaultTimeout = 10 * time.Second

	// maxErrorBody is how much of an error response is kept in the message.
	maxErrorBody = 1024

	// maxBody caps decoded responses.
	maxBody = 8 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration

	// With ClientID and TokenURL set, requests carry an OAuth2
	// client-credentials token.
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string

	// HTTPClient overrides the transport. OAuth2 settings are ignored when set.
	HTTPClient *http.Client
}

// Client implements remote.Gateway over HTTP.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	logger  zerolog.Logger
}

var _ remote.Gateway = (*Client)(nil)

// New creates a REST client.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("remote base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid remote base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid remote base URL %q: scheme must be http or https", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		if cfg.ClientID != "" && cfg.TokenURL != "" {
			cc := clientcredentials.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				TokenURL:     cfg.TokenURL,
				Scopes:       cfg.Scopes,
			}
			httpClient = cc.Client(ctx)
		} else {
			httpClient = &http.Client{}
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		base:    base,
		http:    httpClient,
		timeout: timeout,
		logger:  logger.With().Str("component", "rest").Logger(),
	}, nil
}

// ListLists implements remote.Gateway.
func (c *Client) ListLists(ctx context.Context) ([]remote.List, error) {
	var lists []remote.List
	err := c.do(ctx, "list lists", http.MethodGet, "/todolists", nil, &lists)
	return lists, err
}

// CreateList implements remote.Gateway.
func (c *Client) CreateList(ctx context.Context, body remote.CreateListBody) (remote.List, error) {
	if body.Items == nil {
		body.Items = []remote.CreateItemBody{}
	}
	var list remote.List
	err := c.do(ctx, "create list", http.MethodPost, "/todolists", body, &list)
	return list, err
}

// UpdateList implements remote.Gateway.
func (c *Client) UpdateList(ctx context.Context, listID string, body remote.UpdateListBody) (remote.List, error) {
	var list remote.List
	err := c.do(ctx, "update list", http.MethodPatch, "/todolists/"+url.PathEscape(listID), body, &list)
	return list, err
}

// DeleteList implements remote.Gateway.
func (c *Client) DeleteList(ctx context.Context, listID string) error {
	return c.do(ctx, "delete list", http.MethodDelete, "/todolists/"+url.PathEscape(listID), nil, nil)
}

// CreateItem implements remote.Gateway.
func (c *Client) CreateItem(ctx context.Context, listID string, body remote.CreateItemBody) (remote.Item, error) {
	var item remote.Item
	err := c.do(ctx, "create item", http.MethodPost, itemsPath(listID), body, &item)
	return item, err
}

// UpdateItem implements remote.Gateway.
func (c *Client) UpdateItem(ctx context.Context, listID, itemID string, body remote.UpdateItemBody) (remote.Item, error) {
	var item remote.Item
	err := c.do(ctx, "update item", http.MethodPatch, itemsPath(listID)+"/"+url.PathEscape(itemID), body, &item)
	return item, err
}

// DeleteItem implements remote.Gateway.
func (c *Client) DeleteItem(ctx context.Context, listID, itemID string) error {
	return c.do(ctx, "delete item", http.MethodDelete, itemsPath(listID)+"/"+url.PathEscape(itemID), nil, nil)
}

func itemsPath(listID string) string {
	return "/todolists/" + url.PathEscape(listID) + "/todoitems"
}

// do sends one request and decodes a JSON response into out (if non-nil).
// Every failure is a *remote.Error.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return remote.Wrap(op, 0, fmt.Errorf("failed to encode request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return remote.Wrap(op, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return remote.Wrap(op, 0, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("remote call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		text := strings.TrimSpace(string(msg))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		return remote.Wrap(op, resp.StatusCode, errors.New(text))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return remote.Wrap(op, 0, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return remote.Wrap(op, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
