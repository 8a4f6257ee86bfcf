package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"todosync/internal/service"
)

type itemResponse struct {
	ID             int64     `json:"id"`
	ListID         int64     `json:"list_id"`
	Description    string    `json:"description"`
	Completed      bool      `json:"completed"`
	ExternalID     *string   `json:"external_id"`
	LastModifiedAt time.Time `json:"last_modified_at"`
}

func newItemResponse(item service.TaskItem) itemResponse {
	return itemResponse{
		ID:             item.ID,
		ListID:         item.ListID,
		Description:    item.Description,
		Completed:      item.Completed,
		ExternalID:     item.ExternalID,
		LastModifiedAt: item.LastModifiedAt,
	}
}

type createItemRequest struct {
	ListID      int64  `json:"list_id" binding:"required"`
	Description string `json:"description" binding:"required,max=1024"`
}

type updateItemRequest struct {
	Description string `json:"description" binding:"required,max=1024"`
	Completed   bool   `json:"completed"`
}

// HandleGetItems returns the items of a list.
func (h *Handler) HandleGetItems(c *gin.Context) {
	listID, ok := paramID(c, "id")
	if !ok {
		return
	}

	items, err := h.tasks.ListItems(c, listID)
	if err != nil {
		h.logger.Debug().Err(err).Int64("list_id", listID).Msg("failed to list items")
		abort(c, serviceError(err))
		return
	}

	response := make([]itemResponse, len(items))
	for i, item := range items {
		response[i] = newItemResponse(item)
	}
	c.JSON(http.StatusOK, response)
}

// HandleGetItem returns one item.
func (h *Handler) HandleGetItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	item, err := h.tasks.GetItem(c, id)
	if err != nil {
		abort(c, serviceError(err))
		return
	}
	c.JSON(http.StatusOK, newItemResponse(item))
}

// HandleCreateItem adds an item to a list.
func (h *Handler) HandleCreateItem(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug().Err(err).Msg("failed to bind json")
		abort(c, newBadRequestError("invalid request body"))
		return
	}

	item, err := h.tasks.CreateItem(c, req.ListID, req.Description)
	if err != nil {
		h.logger.Debug().Err(err).Int64("list_id", req.ListID).Msg("failed to create item")
		abort(c, serviceError(err))
		return
	}

	h.logger.Info().Int64("item_id", item.ID).Int64("list_id", item.ListID).Msg("created item")
	c.Header("Location", fmt.Sprintf("/api/todolistitems/%d", item.ID))
	c.JSON(http.StatusCreated, newItemResponse(item))
}

// HandleUpdateItem replaces an item's description and completion.
func (h *Handler) HandleUpdateItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug().Err(err).Msg("failed to bind json")
		abort(c, newBadRequestError("invalid request body"))
		return
	}

	item, err := h.tasks.UpdateItem(c, id, req.Description, req.Completed)
	if err != nil {
		h.logger.Debug().Err(err).Int64("item_id", id).Msg("failed to update item")
		abort(c, serviceError(err))
		return
	}

	h.logger.Info().Int64("item_id", id).Msg("updated item")
	c.JSON(http.StatusOK, newItemResponse(item))
}

// HandleDeleteItem removes an item.
func (h *Handler) HandleDeleteItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.tasks.DeleteItem(c, id); err != nil {
		h.logger.Debug().Err(err).Int64("item_id", id).Msg("failed to delete item")
		abort(c, serviceError(err))
		return
	}

	h.logger.Info().Int64("item_id", id).Msg("deleted item")
	c.Status(http.StatusNoContent)
}
