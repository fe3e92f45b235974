package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/vetverify/models"
	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ReviewQueueRepositoryImpl implements ReviewQueueRepository over accounts and professional_profiles
type ReviewQueueRepositoryImpl struct {
	DB *gorm.DB
}

// NewReviewQueueRepository creates a new review queue repository
func NewReviewQueueRepository(db *gorm.DB) ReviewQueueRepository {
	return &ReviewQueueRepositoryImpl{DB: db}
}

func (r *ReviewQueueRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return r.DB.WithContext(ctx)
}

func (r *ReviewQueueRepositoryImpl) base(ctx context.Context, filter models.ReviewQueueFilter) *gorm.DB {
	query := r.getDB(ctx).Model(&models.ProfessionalProfile{}).
		Joins("JOIN accounts ON accounts.id = professional_profiles.account_id")

	if filter.Status != "" {
		query = query.Where("accounts.professional_status = ?", filter.Status)
	}
	if len(filter.Roles) > 0 {
		query = query.Where("accounts.role IN ?", filter.Roles)
	}
	if search := strings.TrimSpace(filter.SearchText); search != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
		query = query.Where("(LOWER(professional_profiles.display_name) LIKE ? OR LOWER(accounts.email) LIKE ?)", like, like)
	}
	return query
}

// List returns one page of the queue with accounts preloaded
func (r *ReviewQueueRepositoryImpl) List(ctx context.Context, filter models.ReviewQueueFilter, limit, offset int) ([]*models.ReviewQueueEntry, error) {
	query := r.base(ctx, filter).
		Preload("Account").
		Order("professional_profiles.submitted_at ASC, professional_profiles.account_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var profiles []*models.ProfessionalProfile
	if err := query.Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to list review queue: %w", err)
	}
	if len(profiles) == 0 {
		return []*models.ReviewQueueEntry{}, nil
	}

	accountIDs := make([]uint, 0, len(profiles))
	for _, p := range profiles {
		accountIDs = append(accountIDs, p.AccountID)
	}

	var counts []struct {
		AccountID uint
		N         int64
	}
	err := r.getDB(ctx).Model(&models.VerificationDocument{}).
		Select("account_id, COUNT(*) AS n").
		Where("account_id IN ?", accountIDs).
		Group("account_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	byAccount := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byAccount[c.AccountID] = c.N
	}

	entries := make([]*models.ReviewQueueEntry, 0, len(profiles))
	for _, p := range profiles {
		e := &models.ReviewQueueEntry{Profile: *p, DocumentCount: byAccount[p.AccountID]}
		if p.Account != nil {
			e.Account = *p.Account
		}
		e.Profile.Account = nil
		entries = append(entries, e)
	}
	return entries, nil
}

// Count returns the number of queue entries matching filter
func (r *ReviewQueueRepositoryImpl) Count(ctx context.Context, filter models.ReviewQueueFilter) (int64, error) {
	var count int64
	if err := r.base(ctx, filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count review queue: %w", err)
	}
	return count, nil
}
