// Package httpapi serves the local task lists over HTTP and lets clients
// trigger synchronization passes.
package httpapi

import (
	"context"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"todosync/internal/notify"
	"todosync/internal/service"
	"todosync/internal/syncer"
)

// Syncer runs a pass unless one is already running.
type Syncer interface {
	TryRunPass(ctx context.Context) (syncer.Report, error)
}

// Notifier delivers progress messages to connected clients.
type Notifier interface {
	Broadcast(ctx context.Context, msg notify.Message)
	Progress(ctx context.Context, text string, done, total int)
}

// Handler holds the dependencies of the HTTP endpoints.
type Handler struct {
	logger   zerolog.Logger
	tasks    service.Service
	syncer   Syncer
	notifier Notifier

	// ctx bounds background jobs started by requests.
	ctx  context.Context
	jobs sync.WaitGroup
}

// New creates a Handler. Background jobs stop when ctx is cancelled.
func New(ctx context.Context, logger zerolog.Logger, tasks service.Service, syncer Syncer, notifier Notifier) *Handler {
	return &Handler{
		logger:   logger.With().Str("component", "httpapi").Logger(),
		tasks:    tasks,
		syncer:   syncer,
		notifier: notifier,
		ctx:      ctx,
	}
}

// Wait blocks until background jobs have finished.
func (h *Handler) Wait() {
	h.jobs.Wait()
}

func (h *Handler) background(fn func(ctx context.Context)) {
	h.jobs.Add(1)
	go func() {
		defer h.jobs.Done()
		fn(h.ctx)
	}()
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		abort(c, newBadRequestError(errInvalidID.Error()))
		return 0, false
	}
	return id, true
}
