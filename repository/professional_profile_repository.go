package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/utils"
	"gorm.io/gorm"
)

// ProfessionalProfileRepositoryImpl implements ProfessionalProfileRepository interface
type ProfessionalProfileRepositoryImpl struct {
	*BaseRepository[models.ProfessionalProfile, models.ProfessionalProfileFilter]
}

// NewProfessionalProfileRepository creates a new professional profile repository
func NewProfessionalProfileRepository(db *gorm.DB) ProfessionalProfileRepository {
	return &ProfessionalProfileRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ProfessionalProfile, models.ProfessionalProfileFilter](db),
	}
}

// ByAccountID retrieves the profile of an account
func (r *ProfessionalProfileRepositoryImpl) ByAccountID(ctx context.Context, accountID uint) (*models.ProfessionalProfile, error) {
	rows, err := r.ByFilter(ctx, models.ProfessionalProfileFilter{AccountID: &accountID}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ByAccountIDs retrieves the profiles of several accounts
func (r *ProfessionalProfileRepositoryImpl) ByAccountIDs(ctx context.Context, accountIDs []uint) ([]*models.ProfessionalProfile, error) {
	if len(accountIDs) == 0 {
		return []*models.ProfessionalProfile{}, nil
	}
	return r.ByFilter(ctx, models.ProfessionalProfileFilter{AccountIDs: accountIDs}, "account_id ASC", 0, 0)
}

// Update rewrites the profile data columns. Status is left untouched.
func (r *ProfessionalProfileRepositoryImpl) Update(ctx context.Context, profile *models.ProfessionalProfile) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	profile.UpdatedAt = utils.UTCNow()
	res := db.Model(&models.ProfessionalProfile{}).
		Where("id = ?", profile.ID).
		Updates(map[string]any{
			"role":             profile.Role,
			"display_name":     profile.DisplayName,
			"license_number":   profile.LicenseNumber,
			"phone":            profile.Phone,
			"services_offered": profile.ServicesOffered,
			"details":          profile.Details,
			"submitted_at":     profile.SubmittedAt,
			"updated_at":       profile.UpdatedAt,
		})
	if res.Error != nil {
		err = fmt.Errorf("failed to update profile %d: %w", profile.ID, res.Error)
	} else if res.RowsAffected == 0 {
		err = fmt.Errorf("profile %d: %w", profile.ID, gorm.ErrRecordNotFound)
	}
	return finish(db, shouldCommit, err)
}

// UpdateStatus sets the status field of an account's profile
func (r *ProfessionalProfileRepositoryImpl) UpdateStatus(ctx context.Context, accountID uint, status models.ProfessionalStatus) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	res := db.Model(&models.ProfessionalProfile{}).
		Where("account_id = ?", accountID).
		Updates(map[string]any{
			"status":     status,
			"updated_at": utils.UTCNow(),
		})
	if res.Error != nil {
		err = fmt.Errorf("failed to update profile status of account %d: %w", accountID, res.Error)
	} else if res.RowsAffected == 0 {
		err = fmt.Errorf("profile of account %d: %w", accountID, gorm.ErrRecordNotFound)
	}
	return finish(db, shouldCommit, err)
}

func (r *ProfessionalProfileRepositoryImpl) applyFilter(query *gorm.DB, filter models.ProfessionalProfileFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if len(filter.AccountIDs) > 0 {
		query = query.Where("account_id IN ?", filter.AccountIDs)
	}
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.LicenseNumber != nil {
		query = query.Where("license_number = ?", *filter.LicenseNumber)
	}
	return query
}

// ByFilter retrieves profiles based on filter criteria
func (r *ProfessionalProfileRepositoryImpl) ByFilter(ctx context.Context, filter models.ProfessionalProfileFilter, orderBy string, limit, offset int) ([]*models.ProfessionalProfile, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.ProfessionalProfile{}), filter)

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

	var rows []*models.ProfessionalProfile
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return rows, nil
}

// Count returns number of profiles matching filter
func (r *ProfessionalProfileRepositoryImpl) Count(ctx context.Context, filter models.ProfessionalProfileFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.getDB(ctx).Model(&models.ProfessionalProfile{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return count, nil
}

// Exists checks if any profile matches the filter
func (r *ProfessionalProfileRepositoryImpl) Exists(ctx context.Context, filter models.ProfessionalProfileFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
