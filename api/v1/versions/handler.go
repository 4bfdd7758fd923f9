package versions

import (
	"errors"
	"log"
	"strconv"
	"strings"

	"promptlab/internal/httpx"
	"promptlab/internal/model"
	"promptlab/internal/version"
	"promptlab/internal/ws"

	"github.com/gin-gonic/gin"
)

// Handler handles prompt versions API
type Handler struct {
	versions *version.Manager
}

// NewHandler creates a new versions handler
func NewHandler(versions *version.Manager) *Handler {
	return &Handler{versions: versions}
}

// Create handles POST /api/v1/prompts/:id/versions
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
		return
	}

	name := ""
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			httpx.FailErr(c, httpx.ErrParamInvalid("version name must not be blank"))
			return
		}
		if len(name) > 128 {
			httpx.FailErr(c, httpx.ErrParamInvalid("version name must be at most 128 characters"))
			return
		}
	}

	v, err := h.versions.CreateVersion(c.Request.Context(), c.Param("id"), name, req.Description)
	if err != nil {
		failWith(c, err, "failed to create version")
		return
	}

	publishEvent(model.EventVersionCreated, v)
	httpx.OK(c, v)
}

// List handles GET /api/v1/prompts/:id/versions
func (h *Handler) List(c *gin.Context) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
		return
	}

	// Paging is optional: without it the full history comes back
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 0 {
		req.PageSize = 0
	}

	items, total, err := h.versions.ListVersions(c.Request.Context(), c.Param("id"), req.IncludeArchived, req.Page, req.PageSize)
	if err != nil {
		failWith(c, err, "failed to list versions")
		return
	}

	httpx.OK(c, ListResponse{
		Items:    items,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
}

// Get handles GET /api/v1/prompts/:id/versions/:versionId
func (h *Handler) Get(c *gin.Context) {
	versionID, ok := versionIDParam(c)
	if !ok {
		return
	}

	v, err := h.versions.GetVersion(c.Request.Context(), c.Param("id"), versionID)
	if err != nil {
		failWith(c, err, "failed to get version")
		return
	}
	httpx.OK(c, v)
}

// Rollback handles POST /api/v1/prompts/:id/versions/:versionId/rollback
func (h *Handler) Rollback(c *gin.Context) {
	versionID, ok := versionIDParam(c)
	if !ok {
		return
	}

	v, err := h.versions.Rollback(c.Request.Context(), c.Param("id"), versionID)
	if err != nil {
		failWith(c, err, "failed to roll back")
		return
	}

	publishEvent(model.EventVersionRollback, v)
	httpx.OK(c, v)
}

// Unarchive handles POST /api/v1/prompts/:id/versions/:versionId/unarchive
func (h *Handler) Unarchive(c *gin.Context) {
	versionID, ok := versionIDParam(c)
	if !ok {
		return
	}

	v, err := h.versions.Unarchive(c.Request.Context(), c.Param("id"), versionID)
	if err != nil {
		failWith(c, err, "failed to unarchive version")
		return
	}
	httpx.OK(c, v)
}

func versionIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("versionId"), 10, 64)
	if err != nil || id < 1 {
		httpx.FailErr(c, httpx.ErrParamInvalid("invalid version id"))
		return 0, false
	}
	return id, true
}

func publishEvent(eventType string, payload interface{}) {
	if err := ws.PublishPromptEvent(eventType, payload); err != nil {
		log.Printf("[Versions] Failed to publish %s event: %v", eventType, err)
	}
}

func failWith(c *gin.Context, err error, message string) {
	var appErr *httpx.AppError
	if errors.As(err, &appErr) {
		httpx.FailErr(c, appErr)
		return
	}
	httpx.FailErr(c, httpx.ErrDatabaseError(message, err))
}
