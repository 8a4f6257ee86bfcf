package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"todosync/internal/notify"
	"todosync/internal/syncer"
)

type reportResponse struct {
	Started       string `json:"started"`
	DurationMS    int64  `json:"duration_ms"`
	Changed       bool   `json:"changed"`
	PulledCreated int    `json:"pulled_created"`
	PulledUpdated int    `json:"pulled_updated"`
	Adopted       int    `json:"adopted"`
	PushedCreated int    `json:"pushed_created"`
	PushedUpdated int    `json:"pushed_updated"`
	RemoteDeleted int    `json:"remote_deleted"`
	LocalDeleted  int    `json:"local_deleted"`
	Skipped       int    `json:"skipped"`
	RemoteCalls   int    `json:"remote_calls"`
}

func newReportResponse(r syncer.Report) reportResponse {
	return reportResponse{
		Started:       r.Started.Format(time.RFC3339),
		DurationMS:    r.Duration.Milliseconds(),
		Changed:       r.Changed(),
		PulledCreated: r.PulledCreated,
		PulledUpdated: r.PulledUpdated,
		Adopted:       r.Adopted,
		PushedCreated: r.PushedCreated,
		PushedUpdated: r.PushedUpdated,
		RemoteDeleted: r.RemoteDeleted,
		LocalDeleted:  r.LocalDeleted,
		Skipped:       r.Skipped,
		RemoteCalls:   r.RemoteCalls,
	}
}

// HandleSync runs a pass and returns its report.
func (h *Handler) HandleSync(c *gin.Context) {
	report, err := h.syncer.TryRunPass(c.Request.Context())
	if errors.Is(err, syncer.ErrPassInProgress) {
		abort(c, newAPIError(http.StatusConflict, err.Error()))
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("sync pass failed")
		abort(c, newAPIError(http.StatusBadGateway, err.Error()))
		return
	}

	if report.Changed() {
		h.notifier.Broadcast(c.Request.Context(), notify.Message{
			Type: notify.TypeSync,
			Text: fmt.Sprintf("Synchronized: %d pulled, %d pushed, %d deleted.",
				report.PulledCreated+report.PulledUpdated,
				report.PushedCreated+report.PushedUpdated,
				report.RemoteDeleted+report.LocalDeleted),
		})
	}
	c.JSON(http.StatusOK, newReportResponse(report))
}
