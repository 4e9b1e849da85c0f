package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/aaaiserr1401/smart-mabel-kz/internal/domain"
	"github.com/aaaiserr1401/smart-mabel-kz/internal/metrics"
	apperrors "github.com/aaaiserr1401/smart-mabel-kz/pkg/errors"
)

// LeadStore provides CRUD operations over the leads table. It speaks plain
// gorm so both database backends work behind the same interface; statement
// parameters are always bound, never interpolated.
type LeadStore struct {
	db *gorm.DB
}

// NewLeadStore creates a new lead store
func NewLeadStore(db *gorm.DB) *LeadStore {
	return &LeadStore{db: db}
}

// Insert stores a new lead and fills in its assigned ID
func (s *LeadStore) Insert(ctx context.Context, lead *domain.Lead) error {
	start := time.Now()
	err := s.db.WithContext(ctx).Create(lead).Error
	metrics.RecordDBQuery("insert_lead", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return nil
}

// List returns up to limit leads ordered newest first
func (s *LeadStore) List(ctx context.Context, limit, offset int) ([]domain.Lead, error) {
	var leads []domain.Lead
	start := time.Now()
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&leads).Error
	metrics.RecordDBQuery("list_leads", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}

// Count returns the total number of leads
func (s *LeadStore) Count(ctx context.Context) (int64, error) {
	var total int64
	start := time.Now()
	err := s.db.WithContext(ctx).Model(&domain.Lead{}).Count(&total).Error
	metrics.RecordDBQuery("count_leads", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return total, nil
}

// UpdateStatus sets the status of a single lead. Status values outside the
// enum are rejected before any SQL runs.
func (s *LeadStore) UpdateStatus(ctx context.Context, id uint, status string) error {
	if !domain.ValidStatus(status) {
		return apperrors.New(apperrors.ErrCodeValidation, fmt.Sprintf("invalid status: %q", status))
	}

	start := time.Now()
	res := s.db.WithContext(ctx).
		Model(&domain.Lead{}).
		Where("id = ?", id).
		Update("status", status)
	metrics.RecordDBQuery("update_status", time.Since(start), res.Error)
	if res.Error != nil {
		return fmt.Errorf("failed to update lead status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrCodeNotFound, fmt.Sprintf("lead %d not found", id))
	}
	return nil
}

// ListAll returns every lead ordered newest first, for export
func (s *LeadStore) ListAll(ctx context.Context) ([]domain.Lead, error) {
	var leads []domain.Lead
	start := time.Now()
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&leads).Error
	metrics.RecordDBQuery("list_all_leads", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads for export: %w", err)
	}
	return leads, nil
}
