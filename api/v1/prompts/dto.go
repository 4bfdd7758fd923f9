package prompts

// ListRequest represents list prompts request
type ListRequest struct {
	Page         int    `form:"page"`
	PageSize     int    `form:"pageSize"`
	CollectionID string `form:"collection_id"`
	Search       string `form:"search"`
}

// ListResponse represents list prompts response
type ListResponse struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

// CreateRequest represents create prompt request
type CreateRequest struct {
	Title        string  `json:"title" binding:"required"`
	Content      string  `json:"content" binding:"required"`
	Description  string  `json:"description"`
	CollectionID *string `json:"collection_id"`
}

// UpdateRequest represents a full prompt update request
type UpdateRequest struct {
	Title        string  `json:"title" binding:"required"`
	Content      string  `json:"content" binding:"required"`
	Description  string  `json:"description"`
	CollectionID *string `json:"collection_id"`
}

// PatchRequest represents a partial prompt update request; omitted
// fields are left unchanged
type PatchRequest struct {
	Title        *string `json:"title"`
	Content      *string `json:"content"`
	Description  *string `json:"description"`
	CollectionID *string `json:"collection_id"`
}
