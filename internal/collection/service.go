package collection

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"promptlab/internal/httpx"
	"promptlab/internal/model"
	"promptlab/internal/prompt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service handles collection operations
type Service struct {
	db      *gorm.DB
	prompts *prompt.Service
}

// NewService creates a new collection service
func NewService(db *gorm.DB, prompts *prompt.Service) *Service {
	return &Service{db: db, prompts: prompts}
}

// CreateInput holds the fields for creating a collection
type CreateInput struct {
	Name        string
	Description string
}

// UpdateInput holds the fields for updating a collection; nil fields
// are left unchanged
type UpdateInput struct {
	Name        *string
	Description *string
}

// Create stores a new collection
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Collection, error) {
	if err := validateName(in.Name); err != nil {
		return nil, err
	}

	c := &model.Collection{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	return c, nil
}

// Get returns a collection by id
func (s *Service) Get(ctx context.Context, id string) (*model.Collection, error) {
	var c model.Collection
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, httpx.ErrNotFound("collection not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	return &c, nil
}

// List returns all collections, newest first
func (s *Service) List(ctx context.Context) ([]model.Collection, error) {
	var collections []model.Collection
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&collections).Error; err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return collections, nil
}

// Update modifies the supplied fields of a collection
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*model.Collection, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if err := validateName(*in.Name); err != nil {
			return nil, err
		}
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		c.Description = *in.Description
	}

	if err := s.db.WithContext(ctx).Save(c).Error; err != nil {
		return nil, fmt.Errorf("failed to update collection: %w", err)
	}
	return c, nil
}

// Delete removes a collection and detaches its prompts. The prompts
// themselves survive with no collection.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.prompts.ClearCollection(ctx, id); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Collection{}).Error; err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return httpx.ErrParamInvalid("name is required")
	}
	if len(trimmed) > 100 {
		return httpx.ErrParamInvalid("name must be at most 100 characters")
	}
	return nil
}
