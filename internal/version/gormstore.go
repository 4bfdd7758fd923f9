package version

import (
	"context"
	"errors"
	"fmt"
	"time"

	"promptlab/internal/httpx"
	"promptlab/internal/model"

	"gorm.io/gorm"
)

// GormStore is the MySQL-backed Store implementation
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new database-backed version store
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AppendAndActivate inserts the version and repoints the active pointer
// in one transaction. The sequence number uses MAX(sequence_no)+1 within
// the prompt; callers serialize writers per prompt, the unique index on
// (prompt_id, version_name) backstops races.
func (s *GormStore) AppendAndActivate(ctx context.Context, promptID, name, description, snapshot string) (*model.PromptVersion, error) {
	var created *model.PromptVersion

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.PromptVersion{}).
			Where("prompt_id = ? AND version_name = ?", promptID, name).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check version name: %w", err)
		}
		if count > 0 {
			return httpx.ErrAlreadyExists(fmt.Sprintf("version name %q already exists for this prompt", name))
		}

		var maxSeq int64
		if err := tx.Model(&model.PromptVersion{}).
			Where("prompt_id = ?", promptID).
			Select("COALESCE(MAX(sequence_no), 0)").
			Scan(&maxSeq).Error; err != nil {
			return fmt.Errorf("failed to compute sequence number: %w", err)
		}

		v := &model.PromptVersion{
			PromptID:        promptID,
			VersionName:     name,
			Description:     description,
			ContentSnapshot: snapshot,
			SequenceNo:      maxSeq + 1,
			CreatedAt:       time.Now(),
		}
		if err := tx.Create(v).Error; err != nil {
			return fmt.Errorf("failed to create version: %w", err)
		}

		var pointer model.ActivePointer
		err := tx.Where("prompt_id = ?", promptID).First(&pointer).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			pointer = model.ActivePointer{PromptID: promptID, ActiveVersionID: v.ID}
			if err := tx.Create(&pointer).Error; err != nil {
				return fmt.Errorf("failed to create active pointer: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to read active pointer: %w", err)
		default:
			if err := tx.Model(&model.ActivePointer{}).
				Where("prompt_id = ?", promptID).
				Update("active_version_id", v.ID).Error; err != nil {
				return fmt.Errorf("failed to repoint active pointer: %w", err)
			}
		}

		created = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Snapshot reads versions, active pointer and total count in one
// read-only transaction so callers get a consistent view.
func (s *GormStore) Snapshot(ctx context.Context, promptID string, includeArchived bool, offset, limit int) ([]model.PromptVersion, int64, int64, error) {
	var (
		versions []model.PromptVersion
		activeID int64
		total    int64
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&model.PromptVersion{}).Where("prompt_id = ?", promptID)
		if !includeArchived {
			query = query.Where("archived = ?", false)
		}

		if err := query.Count(&total).Error; err != nil {
			return fmt.Errorf("failed to count versions: %w", err)
		}

		listQuery := query.Order("sequence_no ASC")
		if offset > 0 {
			listQuery = listQuery.Offset(offset)
		}
		if limit > 0 {
			listQuery = listQuery.Limit(limit)
		}
		if err := listQuery.Find(&versions).Error; err != nil {
			return fmt.Errorf("failed to list versions: %w", err)
		}

		var pointer model.ActivePointer
		err := tx.Where("prompt_id = ?", promptID).First(&pointer).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to read active pointer: %w", err)
		}
		activeID = pointer.ActiveVersionID
		return nil
	})
	if err != nil {
		return nil, 0, 0, err
	}

	return versions, activeID, total, nil
}

// Get returns a version by id, scoped to the owning prompt
func (s *GormStore) Get(ctx context.Context, promptID string, versionID int64) (*model.PromptVersion, error) {
	var v model.PromptVersion
	err := s.db.WithContext(ctx).
		Where("id = ? AND prompt_id = ?", versionID, promptID).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, httpx.ErrNotFound("version not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}
	return &v, nil
}

// NameExists reports whether a version name is taken within a prompt
func (s *GormStore) NameExists(ctx context.Context, promptID, name string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.PromptVersion{}).
		Where("prompt_id = ? AND version_name = ?", promptID, name).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check version name: %w", err)
	}
	return count > 0, nil
}

// Archive marks a version as archived; the active version is rejected
func (s *GormStore) Archive(ctx context.Context, promptID string, versionID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pointer model.ActivePointer
		err := tx.Where("prompt_id = ?", promptID).First(&pointer).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to read active pointer: %w", err)
		}
		if pointer.ActiveVersionID == versionID {
			return httpx.ErrStateConflict("cannot archive the active version")
		}

		result := tx.Model(&model.PromptVersion{}).
			Where("id = ? AND prompt_id = ?", versionID, promptID).
			Update("archived", true)
		if result.Error != nil {
			return fmt.Errorf("failed to archive version: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			// Zero rows also happens when the version is already
			// archived; only a missing row is an error.
			var count int64
			if err := tx.Model(&model.PromptVersion{}).
				Where("id = ? AND prompt_id = ?", versionID, promptID).
				Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check version: %w", err)
			}
			if count == 0 {
				return httpx.ErrNotFound("version not found")
			}
		}
		return nil
	})
}

// Unarchive clears the archived flag on a version
func (s *GormStore) Unarchive(ctx context.Context, promptID string, versionID int64) error {
	result := s.db.WithContext(ctx).Model(&model.PromptVersion{}).
		Where("id = ? AND prompt_id = ?", versionID, promptID).
		Update("archived", false)
	if result.Error != nil {
		return fmt.Errorf("failed to unarchive version: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		// Update affects zero rows both when the version is absent and
		// when it is already unarchived; disambiguate with a lookup.
		if _, err := s.Get(ctx, promptID, versionID); err != nil {
			return err
		}
	}
	return nil
}

// Count counts a prompt's versions
func (s *GormStore) Count(ctx context.Context, promptID string, includeArchived bool) (int64, error) {
	query := s.db.WithContext(ctx).Model(&model.PromptVersion{}).Where("prompt_id = ?", promptID)
	if !includeArchived {
		query = query.Where("archived = ?", false)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count versions: %w", err)
	}
	return count, nil
}

// ActiveID returns the active version id for a prompt
func (s *GormStore) ActiveID(ctx context.Context, promptID string) (int64, bool, error) {
	var pointer model.ActivePointer
	err := s.db.WithContext(ctx).Where("prompt_id = ?", promptID).First(&pointer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read active pointer: %w", err)
	}
	return pointer.ActiveVersionID, true, nil
}

// SetActive repoints the active pointer to an existing version
func (s *GormStore) SetActive(ctx context.Context, promptID string, versionID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.PromptVersion{}).
			Where("id = ? AND prompt_id = ?", versionID, promptID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check version: %w", err)
		}
		if count == 0 {
			return httpx.ErrNotFound("version not found")
		}

		var pointer model.ActivePointer
		err := tx.Where("prompt_id = ?", promptID).First(&pointer).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			pointer = model.ActivePointer{PromptID: promptID, ActiveVersionID: versionID}
			if err := tx.Create(&pointer).Error; err != nil {
				return fmt.Errorf("failed to create active pointer: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to read active pointer: %w", err)
		default:
			if err := tx.Model(&model.ActivePointer{}).
				Where("prompt_id = ?", promptID).
				Update("active_version_id", versionID).Error; err != nil {
				return fmt.Errorf("failed to repoint active pointer: %w", err)
			}
		}
		return nil
	})
}

// PromptIDs lists every prompt id that has versions
func (s *GormStore) PromptIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&model.PromptVersion{}).
		Distinct("prompt_id").
		Pluck("prompt_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list prompt ids: %w", err)
	}
	return ids, nil
}

// DeleteByPrompt removes all versions and the pointer of a prompt
func (s *GormStore) DeleteByPrompt(ctx context.Context, promptID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("prompt_id = ?", promptID).Delete(&model.PromptVersion{}).Error; err != nil {
			return fmt.Errorf("failed to delete versions: %w", err)
		}
		if err := tx.Where("prompt_id = ?", promptID).Delete(&model.ActivePointer{}).Error; err != nil {
			return fmt.Errorf("failed to delete active pointer: %w", err)
		}
		return nil
	})
}
