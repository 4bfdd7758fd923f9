package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"promptlab/internal/cache"
	"promptlab/internal/httpx"
	"promptlab/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service handles prompt operations. It is also the collaborator the
// version engine reads live content from and restores it to.
type Service struct {
	db *gorm.DB
}

// NewService creates a new prompt service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateInput holds the fields for creating a prompt
type CreateInput struct {
	Title        string
	Content      string
	Description  string
	CollectionID *string
}

// UpdateInput holds the fields for a full prompt update
type UpdateInput struct {
	Title        string
	Content      string
	Description  string
	CollectionID *string
}

// PatchInput holds the fields for a partial prompt update; nil fields
// are left unchanged
type PatchInput struct {
	Title        *string
	Content      *string
	Description  *string
	CollectionID *string
}

// Create stores a new prompt
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Prompt, error) {
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}
	if !ValidateContent(in.Content) {
		return nil, httpx.ErrParamInvalid(fmt.Sprintf("content must be at least %d characters", MinContentLength))
	}
	if err := s.checkCollection(ctx, in.CollectionID); err != nil {
		return nil, err
	}

	p := &model.Prompt{
		ID:           uuid.New().String(),
		Title:        strings.TrimSpace(in.Title),
		Content:      in.Content,
		Description:  in.Description,
		CollectionID: in.CollectionID,
		Variables:    variablesJSON(in.Content),
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, fmt.Errorf("failed to create prompt: %w", err)
	}
	return p, nil
}

// Get returns a prompt by id
func (s *Service) Get(ctx context.Context, id string) (*model.Prompt, error) {
	var p model.Prompt
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, httpx.ErrNotFound("prompt not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prompt: %w", err)
	}
	return &p, nil
}

// List returns prompts, newest first, optionally filtered by collection
// and a case-insensitive search over title and description
func (s *Service) List(ctx context.Context, collectionID, search string, page, pageSize int) ([]model.Prompt, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.Prompt{})

	if collectionID != "" {
		query = query.Where("collection_id = ?", collectionID)
	}
	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count prompts: %w", err)
	}

	var prompts []model.Prompt
	listQuery := query.Order("created_at DESC")
	if pageSize > 0 {
		offset := 0
		if page > 1 {
			offset = (page - 1) * pageSize
		}
		listQuery = listQuery.Offset(offset).Limit(pageSize)
	}
	if err := listQuery.Find(&prompts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list prompts: %w", err)
	}

	return prompts, total, nil
}

// Update replaces all mutable fields of a prompt
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*model.Prompt, error) {
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}
	if !ValidateContent(in.Content) {
		return nil, httpx.ErrParamInvalid(fmt.Sprintf("content must be at least %d characters", MinContentLength))
	}
	if err := s.checkCollection(ctx, in.CollectionID); err != nil {
		return nil, err
	}

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Title = strings.TrimSpace(in.Title)
	p.Content = in.Content
	p.Description = in.Description
	p.CollectionID = in.CollectionID
	p.Variables = variablesJSON(in.Content)

	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return nil, fmt.Errorf("failed to update prompt: %w", err)
	}

	cache.InvalidateContent(ctx, id)
	return p, nil
}

// Patch updates only the supplied fields of a prompt
func (s *Service) Patch(ctx context.Context, id string, in PatchInput) (*model.Prompt, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		if err := validateTitle(*in.Title); err != nil {
			return nil, err
		}
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		if !ValidateContent(*in.Content) {
			return nil, httpx.ErrParamInvalid(fmt.Sprintf("content must be at least %d characters", MinContentLength))
		}
		p.Content = *in.Content
		p.Variables = variablesJSON(*in.Content)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.CollectionID != nil {
		if err := s.checkCollection(ctx, in.CollectionID); err != nil {
			return nil, err
		}
		p.CollectionID = in.CollectionID
	}

	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return nil, fmt.Errorf("failed to patch prompt: %w", err)
	}

	if in.Content != nil {
		cache.InvalidateContent(ctx, id)
	}
	return p, nil
}

// Delete removes a prompt. Version history cleanup is handled by the
// caller through the version manager before the prompt row goes away.
func (s *Service) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Prompt{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete prompt: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return httpx.ErrNotFound("prompt not found")
	}

	cache.InvalidateContent(ctx, id)
	return nil
}

// ClearCollection detaches all prompts from a collection
func (s *Service) ClearCollection(ctx context.Context, collectionID string) error {
	if err := s.db.WithContext(ctx).Model(&model.Prompt{}).
		Where("collection_id = ?", collectionID).
		Update("collection_id", nil).Error; err != nil {
		return fmt.Errorf("failed to clear collection from prompts: %w", err)
	}
	return nil
}

// Exists reports whether a prompt exists
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Prompt{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check prompt: %w", err)
	}
	return count > 0, nil
}

// GetContent returns the prompt's live content, read through the cache
func (s *Service) GetContent(ctx context.Context, id string) (string, error) {
	if content, ok := cache.GetContent(ctx, id); ok {
		return content, nil
	}

	p, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	cache.SetContent(ctx, id, p.Content)
	return p.Content, nil
}

// SetContent writes the prompt's live content (used by rollback) and
// refreshes the cache
func (s *Service) SetContent(ctx context.Context, id, content string) error {
	result := s.db.WithContext(ctx).Model(&model.Prompt{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":   content,
			"variables": variablesJSON(content),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to set prompt content: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Updates with identical content affect zero rows; only a
		// missing prompt is an error.
		ok, err := s.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return httpx.ErrNotFound("prompt not found")
		}
	}

	cache.SetContent(ctx, id, content)
	return nil
}

func (s *Service) checkCollection(ctx context.Context, collectionID *string) error {
	if collectionID == nil || *collectionID == "" {
		return nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Collection{}).
		Where("id = ?", *collectionID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if count == 0 {
		return httpx.ErrNotFound("collection not found")
	}
	return nil
}

func validateTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return httpx.ErrParamInvalid("title is required")
	}
	if len(trimmed) > 200 {
		return httpx.ErrParamInvalid("title must be at most 200 characters")
	}
	return nil
}

func variablesJSON(content string) datatypes.JSON {
	data, err := json.Marshal(ExtractVariables(content))
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(data)
}
