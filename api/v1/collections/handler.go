package collections

import (
	"errors"

	"promptlab/internal/collection"
	"promptlab/internal/httpx"

	"github.com/gin-gonic/gin"
)

// CreateRequest represents create collection request
type CreateRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// UpdateRequest represents update collection request; omitted fields
// are left unchanged
type UpdateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Handler handles collections API
type Handler struct {
	collections *collection.Service
}

// NewHandler creates a new collections handler
func NewHandler(collections *collection.Service) *Handler {
	return &Handler{collections: collections}
}

// List handles GET /api/v1/collections
func (h *Handler) List(c *gin.Context) {
	items, err := h.collections.List(c.Request.Context())
	if err != nil {
		failWith(c, err, "failed to list collections")
		return
	}
	httpx.OK(c, gin.H{
		"items": items,
		"total": len(items),
	})
}

// Create handles POST /api/v1/collections
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
		return
	}

	col, err := h.collections.Create(c.Request.Context(), collection.CreateInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		failWith(c, err, "failed to create collection")
		return
	}
	httpx.OK(c, col)
}

// Get handles GET /api/v1/collections/:id
func (h *Handler) Get(c *gin.Context) {
	col, err := h.collections.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failWith(c, err, "failed to get collection")
		return
	}
	httpx.OK(c, col)
}

// Update handles PUT /api/v1/collections/:id
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
		return
	}

	col, err := h.collections.Update(c.Request.Context(), c.Param("id"), collection.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		failWith(c, err, "failed to update collection")
		return
	}
	httpx.OK(c, col)
}

// Delete handles DELETE /api/v1/collections/:id
func (h *Handler) Delete(c *gin.Context) {
	if err := h.collections.Delete(c.Request.Context(), c.Param("id")); err != nil {
		failWith(c, err, "failed to delete collection")
		return
	}
	httpx.OK(c, gin.H{"deleted": true})
}

func failWith(c *gin.Context, err error, message string) {
	var appErr *httpx.AppError
	if errors.As(err, &appErr) {
		httpx.FailErr(c, appErr)
		return
	}
	httpx.FailErr(c, httpx.ErrDatabaseError(message, err))
}
