package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/ghazisdi/followsync/engine"
	"github.com/ghazisdi/followsync/graph"

	"github.com/carlmjohnson/versioninfo"
	"github.com/labstack/echo/v4"
)

// Handlers expose the engine over HTTP for a presentation layer. All
// long-running work is started in the background; clients poll /status or
// /nonfollowers for progress.
type Handlers struct {
	engine *engine.Engine
}

func NewHandlers(e *engine.Engine) *Handlers {
	return &Handlers{
		engine: e,
	}
}

type HealthStatus struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthStatus{
		Status:  "ok",
		Version: versioninfo.Short(),
	})
}

func (h *Handlers) GetStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.engine.Status())
}

type nonFollowersPage struct {
	Total     int            `json:"total"`
	Page      int            `json:"page"`
	Pages     int            `json:"pages"`
	Truncated bool           `json:"truncated"`
	Entities  []graph.Entity `json:"entities"`
}

// GetNonFollowers serves one display page of the working set. Query params:
// q (username substring filter) and page (zero-based index). The response
// carries the clamped index actually served; the engine's stored filter is
// never touched by a read.
func (h *Handlers) GetNonFollowers(c echo.Context) error {
	query := c.QueryParam("q")

	index := 0
	if err := echo.QueryParamsBinder(c).Int("page", &index).BindError(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid page index"})
	}

	entities, page, pages := h.engine.FilteredPage(query, index)
	resp := nonFollowersPage{
		Total:    len(h.engine.FilteredBy(query)),
		Page:     page,
		Pages:    pages,
		Entities: entities,
	}
	if snap := h.engine.Snapshot(); snap != nil {
		resp.Truncated = snap.Truncated
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handlers) PostScan(c echo.Context) error {
	if err := h.engine.StartSync(context.Background()); err != nil {
		return busyOr500(c, err)
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "scanning"})
}

func (h *Handlers) PostScanCancel(c echo.Context) error {
	h.engine.CancelSync()
	return c.JSON(http.StatusOK, map[string]string{"status": "cancelling"})
}

type unfollowRequest struct {
	IDs []string `json:"ids"`
}

func (h *Handlers) PostUnfollow(c echo.Context) error {
	var req unfollowRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if len(req.IDs) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no target ids"})
	}
	if err := h.engine.StartUnfollow(context.Background(), req.IDs); err != nil {
		return busyOr500(c, err)
	}
	return c.JSON(http.StatusAccepted, map[string]any{"status": "unfollowing", "targets": len(req.IDs)})
}

func (h *Handlers) PostUnfollowCancel(c echo.Context) error {
	h.engine.CancelUnfollow()
	return c.JSON(http.StatusOK, map[string]string{"status": "cancelling"})
}

func (h *Handlers) PostClassify(c echo.Context) error {
	if err := h.engine.StartClassification(context.Background()); err != nil {
		return busyOr500(c, err)
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "classifying"})
}

func (h *Handlers) PostClassifyCancel(c echo.Context) error {
	h.engine.CancelClassification()
	return c.JSON(http.StatusOK, map[string]string{"status": "cancelling"})
}

// GetStats serves the most recent classification aggregate.
func (h *Handlers) GetStats(c echo.Context) error {
	stats := h.engine.LastStats()
	if stats == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no classification run yet"})
	}
	return c.JSON(http.StatusOK, stats)
}

func busyOr500(c echo.Context, err error) error {
	if errors.Is(err, engine.ErrBusy) {
		return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
