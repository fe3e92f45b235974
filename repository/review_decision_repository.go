package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/vetverify/models"
	"gorm.io/gorm"
)

// ReviewDecisionRepositoryImpl implements ReviewDecisionRepository interface.
// The log is append-only: no update or delete methods exist.
type ReviewDecisionRepositoryImpl struct {
	*BaseRepository[models.ReviewDecision, models.ReviewDecisionFilter]
}

// NewReviewDecisionRepository creates a new review decision repository
func NewReviewDecisionRepository(db *gorm.DB) ReviewDecisionRepository {
	return &ReviewDecisionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ReviewDecision, models.ReviewDecisionFilter](db),
	}
}

// ListByAccount returns the decision history of an account in decision order
func (r *ReviewDecisionRepositoryImpl) ListByAccount(ctx context.Context, accountID uint) ([]*models.ReviewDecision, error) {
	return r.ByFilter(ctx, models.ReviewDecisionFilter{AccountID: &accountID}, "decided_at ASC, id ASC", 0, 0)
}

// LatestByAccount returns the most recent decision of an account, or nil
func (r *ReviewDecisionRepositoryImpl) LatestByAccount(ctx context.Context, accountID uint) (*models.ReviewDecision, error) {
	rows, err := r.ByFilter(ctx, models.ReviewDecisionFilter{AccountID: &accountID}, "decided_at DESC, id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *ReviewDecisionRepositoryImpl) applyFilter(query *gorm.DB, filter models.ReviewDecisionFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", *filter.Action)
	}
	if filter.AdminID != nil {
		query = query.Where("admin_id = ?", *filter.AdminID)
	}
	if filter.DecidedAfter != nil {
		query = query.Where("decided_at > ?", *filter.DecidedAfter)
	}
	if filter.DecidedBefore != nil {
		query = query.Where("decided_at < ?", *filter.DecidedBefore)
	}
	return query
}

// ByFilter retrieves decisions based on filter criteria
func (r *ReviewDecisionRepositoryImpl) ByFilter(ctx context.Context, filter models.ReviewDecisionFilter, orderBy string, limit, offset int) ([]*models.ReviewDecision, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.ReviewDecision{}), filter)

	if orderBy == "" {
		orderBy = "decided_at DESC, id DESC"
	}
	query = query.Order(orderBy)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.ReviewDecision
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list review decisions: %w", err)
	}
	return rows, nil
}

// Count returns number of decisions matching filter
func (r *ReviewDecisionRepositoryImpl) Count(ctx context.Context, filter models.ReviewDecisionFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.getDB(ctx).Model(&models.ReviewDecision{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count review decisions: %w", err)
	}
	return count, nil
}

// Exists checks if any decision matches the filter
func (r *ReviewDecisionRepositoryImpl) Exists(ctx context.Context, filter models.ReviewDecisionFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
