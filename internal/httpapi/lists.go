package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"todosync/internal/notify"
	"todosync/internal/service"
)

type listResponse struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	ExternalID     *string        `json:"external_id"`
	LastModifiedAt time.Time      `json:"last_modified_at"`
	LastSyncedAt   time.Time      `json:"last_synced_at"`
	Synced         bool           `json:"synced"`
	Items          []itemResponse `json:"items,omitempty"`
}

func newListResponse(list service.TaskList) listResponse {
	resp := listResponse{
		ID:             list.ID,
		Name:           list.Name,
		ExternalID:     list.ExternalID,
		LastModifiedAt: list.LastModifiedAt,
		LastSyncedAt:   list.LastSyncedAt,
		Synced:         list.Synced(),
	}
	for _, item := range list.Items {
		if item.Deleted {
			continue
		}
		resp.Items = append(resp.Items, newItemResponse(item))
	}
	return resp
}

type listRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

// HandleGetLists returns every live list.
func (h *Handler) HandleGetLists(c *gin.Context) {
	lists, err := h.tasks.ListLists(c)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list lists")
		abort(c, serviceError(err))
		return
	}

	response := make([]listResponse, len(lists))
	for i, list := range lists {
		response[i] = newListResponse(list)
	}
	c.JSON(http.StatusOK, response)
}

// HandleGetList returns one list with its items.
func (h *Handler) HandleGetList(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	list, err := h.tasks.GetList(c, id)
	if err != nil {
		h.logger.Debug().Err(err).Int64("list_id", id).Msg("failed to get list")
		abort(c, serviceError(err))
		return
	}
	c.JSON(http.StatusOK, newListResponse(list))
}

// HandleCreateList creates a list that the next pass pushes.
func (h *Handler) HandleCreateList(c *gin.Context) {
	var req listRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug().Err(err).Msg("failed to bind json")
		abort(c, newBadRequestError("invalid request body"))
		return
	}

	list, err := h.tasks.CreateList(c, req.Name)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create list")
		abort(c, serviceError(err))
		return
	}

	h.logger.Info().Int64("list_id", list.ID).Msg("created list")
	c.Header("Location", fmt.Sprintf("/api/todolists/%d", list.ID))
	c.JSON(http.StatusCreated, newListResponse(list))
}

// HandleUpdateList renames a list.
func (h *Handler) HandleUpdateList(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req listRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug().Err(err).Msg("failed to bind json")
		abort(c, newBadRequestError("invalid request body"))
		return
	}

	list, err := h.tasks.RenameList(c, id, req.Name)
	if err != nil {
		h.logger.Debug().Err(err).Int64("list_id", id).Msg("failed to rename list")
		abort(c, serviceError(err))
		return
	}

	h.logger.Info().Int64("list_id", id).Msg("renamed list")
	c.JSON(http.StatusOK, newListResponse(list))
}

// HandleDeleteList tombstones a list. It disappears from the API at once;
// the row goes away after the next pass.
func (h *Handler) HandleDeleteList(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.tasks.DeleteList(c, id); err != nil {
		h.logger.Debug().Err(err).Int64("list_id", id).Msg("failed to delete list")
		abort(c, serviceError(err))
		return
	}

	h.logger.Info().Int64("list_id", id).Msg("deleted list")
	c.Status(http.StatusNoContent)
}

// HandleCompleteAll starts completing every open item of a list. Progress
// goes to websocket clients.
func (h *Handler) HandleCompleteAll(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	list, err := h.tasks.GetList(c, id)
	if err != nil {
		abort(c, serviceError(err))
		return
	}
	total := len(list.OpenItems())

	h.background(func(ctx context.Context) {
		h.completeAll(ctx, id, total)
	})

	c.JSON(http.StatusAccepted, gin.H{
		"message": fmt.Sprintf("completing %d items of list %d", total, id),
	})
}

func (h *Handler) completeAll(ctx context.Context, listID int64, total int) {
	h.notifier.Broadcast(ctx, notify.Message{
		Type: notify.TypeInfo,
		Text: fmt.Sprintf("Completing %d open items...", total),
	})

	done, err := h.tasks.CompleteAll(ctx, listID, func(done, total int) {
		h.notifier.Progress(ctx, fmt.Sprintf("%d of %d items completed", done, total), done, total)
	})
	if err != nil {
		h.logger.Error().Err(err).Int64("list_id", listID).Int("completed", done).Msg("complete-all failed")
		h.notifier.Broadcast(ctx, notify.Message{
			Type: notify.TypeInfo,
			Text: fmt.Sprintf("Stopped after %d items.", done),
		})
		return
	}

	h.notifier.Broadcast(ctx, notify.Message{
		Type: notify.TypeInfo,
		Text: "Complete-all finished.",
	})
}
