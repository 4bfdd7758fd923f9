package prompts

import (
	"errors"
	"log"

	"promptlab/internal/httpx"
	"promptlab/internal/model"
	"promptlab/internal/prompt"
	"promptlab/internal/version"
	"promptlab/internal/ws"

	"github.com/gin-gonic/gin"
)

// Handler handles prompts API
type Handler struct {
	prompts  *prompt.Service
	versions *version.Manager
}

// NewHandler creates a new prompts handler
func NewHandler(prompts *prompt.Service, versions *version.Manager) *Handler {
	return &Handler{prompts: prompts, versions: versions}
}

// List handles GET /api/v1/prompts
func (h *Handler) List(c *gin.Context) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
		return
	}

	// Set defaults
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 15
	}

	items, total, err := h.prompts.List(c.Request.Context(), req.CollectionID, req.Search, req.Page, req.PageSize)
	if err != nil {
		failWith(c, err, "failed to list prompts")
		return
	}

	httpx.OK(c, ListResponse{
		Items:    items,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
}

// Create handles POST /api/v1/prompts
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
		return
	}

	p, err := h.prompts.Create(c.Request.Context(), prompt.CreateInput{
		Title:        req.Title,
		Content:      req.Content,
		Description:  req.Description,
		CollectionID: req.CollectionID,
	})
	if err != nil {
		failWith(c, err, "failed to create prompt")
		return
	}

	publishEvent(model.EventPromptCreated, p)
	httpx.OK(c, p)
}

// Get handles GET /api/v1/prompts/:id
func (h *Handler) Get(c *gin.Context) {
	p, err := h.prompts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failWith(c, err, "failed to get prompt")
		return
	}
	httpx.OK(c, p)
}

// Update handles PUT /api/v1/prompts/:id
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
		return
	}

	p, err := h.prompts.Update(c.Request.Context(), c.Param("id"), prompt.UpdateInput{
		Title:        req.Title,
		Content:      req.Content,
		Description:  req.Description,
		CollectionID: req.CollectionID,
	})
	if err != nil {
		failWith(c, err, "failed to update prompt")
		return
	}

	publishEvent(model.EventPromptUpdated, p)
	httpx.OK(c, p)
}

// Patch handles PATCH /api/v1/prompts/:id
func (h *Handler) Patch(c *gin.Context) {
	var req PatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
		return
	}

	p, err := h.prompts.Patch(c.Request.Context(), c.Param("id"), prompt.PatchInput{
		Title:        req.Title,
		Content:      req.Content,
		Description:  req.Description,
		CollectionID: req.CollectionID,
	})
	if err != nil {
		failWith(c, err, "failed to patch prompt")
		return
	}

	publishEvent(model.EventPromptUpdated, p)
	httpx.OK(c, p)
}

// Delete handles DELETE /api/v1/prompts/:id. The version history goes
// first, so a half-failed delete never leaves orphaned history behind
// a missing prompt.
func (h *Handler) Delete(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	if _, err := h.prompts.Get(ctx, id); err != nil {
		failWith(c, err, "failed to get prompt")
		return
	}

	if err := h.versions.DeleteHistory(ctx, id); err != nil {
		failWith(c, err, "failed to delete version history")
		return
	}
	if err := h.prompts.Delete(ctx, id); err != nil {
		failWith(c, err, "failed to delete prompt")
		return
	}

	publishEvent(model.EventPromptDeleted, gin.H{"id": id})
	httpx.OK(c, gin.H{"deleted": true})
}

func publishEvent(eventType string, payload interface{}) {
	if err := ws.PublishPromptEvent(eventType, payload); err != nil {
		log.Printf("[Prompts] Failed to publish %s event: %v", eventType, err)
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
