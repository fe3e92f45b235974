package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/utils"
	"gorm.io/gorm"
)

// VerificationDocumentRepositoryImpl implements VerificationDocumentRepository interface
type VerificationDocumentRepositoryImpl struct {
	*BaseRepository[models.VerificationDocument, models.VerificationDocumentFilter]
}

// NewVerificationDocumentRepository creates a new verification document repository
func NewVerificationDocumentRepository(db *gorm.DB) VerificationDocumentRepository {
	return &VerificationDocumentRepositoryImpl{
		BaseRepository: NewBaseRepository[models.VerificationDocument, models.VerificationDocumentFilter](db),
	}
}

// ListByAccount lists all documents of an account, oldest first
func (r *VerificationDocumentRepositoryImpl) ListByAccount(ctx context.Context, accountID uint) ([]*models.VerificationDocument, error) {
	return r.ByFilter(ctx, models.VerificationDocumentFilter{AccountID: &accountID}, "created_at ASC, id ASC", 0, 0)
}

// UpdateVerificationStatus records the review outcome of a single document
func (r *VerificationDocumentRepositoryImpl) UpdateVerificationStatus(ctx context.Context, id uint, status models.DocumentVerificationStatus, reason *string, reviewerID *uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	now := utils.UTCNow()
	res := db.Model(&models.VerificationDocument{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"verification_status": status,
			"rejection_reason":    reason,
			"reviewed_by":         reviewerID,
			"reviewed_at":         now,
			"updated_at":          now,
		})
	if res.Error != nil {
		err = fmt.Errorf("failed to update document %d: %w", id, res.Error)
	} else if res.RowsAffected == 0 {
		err = fmt.Errorf("document %d: %w", id, gorm.ErrRecordNotFound)
	}
	return finish(db, shouldCommit, err)
}

// UpdateStatusByAccount moves every document of an account from one status to another
func (r *VerificationDocumentRepositoryImpl) UpdateStatusByAccount(ctx context.Context, accountID uint, from, to models.DocumentVerificationStatus, reviewerID *uint) (int64, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
	}

	now := utils.UTCNow()
	res := db.Model(&models.VerificationDocument{}).
		Where("account_id = ? AND verification_status = ?", accountID, from).
		Updates(map[string]any{
			"verification_status": to,
			"reviewed_by":         reviewerID,
			"reviewed_at":         now,
			"updated_at":          now,
		})
	if res.Error != nil {
		err = fmt.Errorf("failed to update documents of account %d: %w", accountID, res.Error)
	}
	if err = finish(db, shouldCommit, err); err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

// ListExpiringBefore lists documents expiring before the given time that were not reminded yet
func (r *VerificationDocumentRepositoryImpl) ListExpiringBefore(ctx context.Context, before time.Time, limit int) ([]*models.VerificationDocument, error) {
	notSent := false
	now := utils.UTCNow()
	return r.ByFilter(ctx, models.VerificationDocumentFilter{
		ExpiresBefore: &before,
		ExpiresAfter:  &now,
		ReminderSent:  &notSent,
	}, "expires_at ASC, id ASC", limit, 0)
}

// MarkReminderSent stamps when the expiry reminder went out
func (r *VerificationDocumentRepositoryImpl) MarkReminderSent(ctx context.Context, id uint, at time.Time) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	err = db.Model(&models.VerificationDocument{}).
		Where("id = ?", id).
		Updates(map[string]any{"reminder_sent_at": at, "updated_at": at}).Error
	if err != nil {
		err = fmt.Errorf("failed to mark reminder of document %d: %w", id, err)
	}
	return finish(db, shouldCommit, err)
}

func (r *VerificationDocumentRepositoryImpl) applyFilter(query *gorm.DB, filter models.VerificationDocumentFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}
	if filter.DocumentType != nil {
		query = query.Where("document_type = ?", *filter.DocumentType)
	}
	if filter.VerificationStatus != nil {
		query = query.Where("verification_status = ?", *filter.VerificationStatus)
	}
	if filter.ExpiresBefore != nil {
		query = query.Where("expires_at < ?", *filter.ExpiresBefore)
	}
	if filter.ExpiresAfter != nil {
		query = query.Where("expires_at > ?", *filter.ExpiresAfter)
	}
	if filter.ReminderSent != nil {
		if *filter.ReminderSent {
			query = query.Where("reminder_sent_at IS NOT NULL")
		} else {
			query = query.Where("reminder_sent_at IS NULL")
		}
	}
	return query
}

// ByFilter retrieves documents based on filter criteria
func (r *VerificationDocumentRepositoryImpl) ByFilter(ctx context.Context, filter models.VerificationDocumentFilter, orderBy string, limit, offset int) ([]*models.VerificationDocument, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.VerificationDocument{}), filter)

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

	var rows []*models.VerificationDocument
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return rows, nil
}

// Count returns number of documents matching filter
func (r *VerificationDocumentRepositoryImpl) Count(ctx context.Context, filter models.VerificationDocumentFilter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.getDB(ctx).Model(&models.VerificationDocument{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// Exists checks if any document matches the filter
func (r *VerificationDocumentRepositoryImpl) Exists(ctx context.Context, filter models.VerificationDocumentFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
