package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountRepositoryImpl implements AccountRepository interface
type AccountRepositoryImpl struct {
	*BaseRepository[models.Account, models.AccountFilter]
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &AccountRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Account, models.AccountFilter](db),
	}
}

// ByUUID retrieves an account by its identity provider id
func (r *AccountRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	rows, err := r.ByFilter(ctx, models.AccountFilter{UUID: &id}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ByEmail retrieves an account by email (case-insensitive)
func (r *AccountRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.Account, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	rows, err := r.ByFilter(ctx, models.AccountFilter{Email: &normalized}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// UpdateProfessionalStatus sets the verification status of an account
func (r *AccountRepositoryImpl) UpdateProfessionalStatus(ctx context.Context, accountID uint, status models.ProfessionalStatus) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	res := db.Model(&models.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"professional_status": status,
			"updated_at":          utils.UTCNow(),
		})
	if res.Error != nil {
		err = fmt.Errorf("failed to update professional status of account %d: %w", accountID, res.Error)
	} else if res.RowsAffected == 0 {
		err = fmt.Errorf("account %d: %w", accountID, gorm.ErrRecordNotFound)
	}
	return finish(db, shouldCommit, err)
}

// UpdateNotificationPreferences replaces the notification preferences of an account
func (r *AccountRepositoryImpl) UpdateNotificationPreferences(ctx context.Context, accountID uint, prefs models.NotificationPreferences) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	res := db.Model(&models.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"notification_preferences": prefs,
			"updated_at":               utils.UTCNow(),
		})
	if res.Error != nil {
		err = fmt.Errorf("failed to update notification preferences of account %d: %w", accountID, res.Error)
	} else if res.RowsAffected == 0 {
		err = fmt.Errorf("account %d: %w", accountID, gorm.ErrRecordNotFound)
	}
	return finish(db, shouldCommit, err)
}

// applyFilter applies filter criteria to a GORM query
func (r *AccountRepositoryImpl) applyFilter(query *gorm.DB, filter models.AccountFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if len(filter.UUIDs) > 0 {
		query = query.Where("uuid IN ?", filter.UUIDs)
	}
	if filter.Email != nil {
		query = query.Where("LOWER(email) = ?", strings.ToLower(*filter.Email))
	}
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.ProfessionalStatus != nil {
		query = query.Where("professional_status = ?", *filter.ProfessionalStatus)
	}
	if filter.HasStatus != nil {
		if *filter.HasStatus {
			query = query.Where("professional_status IS NOT NULL")
		} else {
			query = query.Where("professional_status IS NULL")
		}
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves accounts based on filter criteria
func (r *AccountRepositoryImpl) ByFilter(ctx context.Context, filter models.AccountFilter, orderBy string, limit, offset int) ([]*models.Account, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.Account{}), filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.Account
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return rows, nil
}

// Count returns number of accounts matching filter
func (r *AccountRepositoryImpl) Count(ctx context.Context, filter models.AccountFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.getDB(ctx).Model(&models.Account{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}

// Exists checks if any account matches the filter
func (r *AccountRepositoryImpl) Exists(ctx context.Context, filter models.AccountFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
