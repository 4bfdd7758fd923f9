package versions

// CreateRequest represents create version request. Name is a pointer so
// an omitted name (pick a default) can be told apart from an explicit
// blank one (rejected).
type CreateRequest struct {
	Name        *string `json:"name"`
	Description string  `json:"description"`
}

// ListRequest represents list versions request
type ListRequest struct {
	Page            int  `form:"page"`
	PageSize        int  `form:"pageSize"`
	IncludeArchived bool `form:"include_archived"`
}

// ListResponse represents list versions response
type ListResponse struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}
