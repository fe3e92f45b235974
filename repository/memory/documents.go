package memory

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/repository"
	"github.com/amirphl/vetverify/utils"
	"gorm.io/gorm"
)

func compareTimePtr(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Compare(*b)
}

var documentColumns = map[string]func(a, b *models.VerificationDocument) int{
	"id":         func(a, b *models.VerificationDocument) int { return cmp.Compare(a.ID, b.ID) },
	"created_at": func(a, b *models.VerificationDocument) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"expires_at": func(a, b *models.VerificationDocument) int { return compareTimePtr(a.ExpiresAt, b.ExpiresAt) },
}

// VerificationDocumentRepository is the in-memory VerificationDocumentRepository
type VerificationDocumentRepository struct {
	store *Store
}

// NewVerificationDocumentRepository creates a document repository backed by store
func NewVerificationDocumentRepository(store *Store) repository.VerificationDocumentRepository {
	return &VerificationDocumentRepository{store: store}
}

func (r *VerificationDocumentRepository) ByID(ctx context.Context, id uint) (*models.VerificationDocument, error) {
	var out *models.VerificationDocument
	r.store.read(ctx, func() {
		if d, ok := r.store.documents[id]; ok {
			out = &d
		}
	})
	return out, nil
}

func (r *VerificationDocumentRepository) ListByAccount(ctx context.Context, accountID uint) ([]*models.VerificationDocument, error) {
	return r.ByFilter(ctx, models.VerificationDocumentFilter{AccountID: &accountID}, "created_at ASC, id ASC", 0, 0)
}

func (r *VerificationDocumentRepository) Save(ctx context.Context, doc *models.VerificationDocument) error {
	return r.store.write(ctx, func() error {
		if err := r.store.injected("documents.Save"); err != nil {
			return err
		}
		return r.insert(doc)
	})
}

func (r *VerificationDocumentRepository) SaveBatch(ctx context.Context, docs []*models.VerificationDocument) error {
	return r.store.write(ctx, func() error {
		if err := r.store.injected("documents.SaveBatch"); err != nil {
			return err
		}
		for _, d := range docs {
			if err := r.insert(d); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *VerificationDocumentRepository) insert(doc *models.VerificationDocument) error {
	if err := doc.BeforeCreate(nil); err != nil {
		return err
	}
	doc.ID = r.store.nextID("documents")
	r.store.documents[doc.ID] = *doc
	return nil
}

func (r *VerificationDocumentRepository) UpdateVerificationStatus(ctx context.Context, id uint, status models.DocumentVerificationStatus, reason *string, reviewerID *uint) error {
	return r.store.write(ctx, func() error {
		if err := r.store.injected("documents.UpdateVerificationStatus"); err != nil {
			return err
		}
		d, ok := r.store.documents[id]
		if !ok {
			return fmt.Errorf("document %d: %w", id, gorm.ErrRecordNotFound)
		}
		now := utils.UTCNow()
		d.VerificationStatus = status
		d.RejectionReason = reason
		d.ReviewedBy = reviewerID
		d.ReviewedAt = &now
		d.UpdatedAt = now
		r.store.documents[id] = d
		return nil
	})
}

func (r *VerificationDocumentRepository) UpdateStatusByAccount(ctx context.Context, accountID uint, from, to models.DocumentVerificationStatus, reviewerID *uint) (int64, error) {
	var affected int64
	err := r.store.write(ctx, func() error {
		if err := r.store.injected("documents.UpdateStatusByAccount"); err != nil {
			return err
		}
		now := utils.UTCNow()
		for id, d := range r.store.documents {
			if d.AccountID != accountID || d.VerificationStatus != from {
				continue
			}
			d.VerificationStatus = to
			d.ReviewedBy = reviewerID
			d.ReviewedAt = &now
			d.UpdatedAt = now
			r.store.documents[id] = d
			affected++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (r *VerificationDocumentRepository) ListExpiringBefore(ctx context.Context, before time.Time, limit int) ([]*models.VerificationDocument, error) {
	notSent := false
	now := utils.UTCNow()
	return r.ByFilter(ctx, models.VerificationDocumentFilter{
		ExpiresBefore: &before,
		ExpiresAfter:  &now,
		ReminderSent:  &notSent,
	}, "expires_at ASC, id ASC", limit, 0)
}

func (r *VerificationDocumentRepository) MarkReminderSent(ctx context.Context, id uint, at time.Time) error {
	return r.store.write(ctx, func() error {
		if err := r.store.injected("documents.MarkReminderSent"); err != nil {
			return err
		}
		d, ok := r.store.documents[id]
		if !ok {
			return nil
		}
		d.ReminderSentAt = &at
		d.UpdatedAt = at
		r.store.documents[id] = d
		return nil
	})
}

func matchDocument(d *models.VerificationDocument, f models.VerificationDocumentFilter) bool {
	if f.ID != nil && d.ID != *f.ID {
		return false
	}
	if f.AccountID != nil && d.AccountID != *f.AccountID {
		return false
	}
	if f.DocumentType != nil && d.DocumentType != *f.DocumentType {
		return false
	}
	if f.VerificationStatus != nil && d.VerificationStatus != *f.VerificationStatus {
		return false
	}
	if f.ExpiresBefore != nil && (d.ExpiresAt == nil || !d.ExpiresAt.Before(*f.ExpiresBefore)) {
		return false
	}
	if f.ExpiresAfter != nil && (d.ExpiresAt == nil || !d.ExpiresAt.After(*f.ExpiresAfter)) {
		return false
	}
	if f.ReminderSent != nil && (d.ReminderSentAt != nil) != *f.ReminderSent {
		return false
	}
	return true
}

func (r *VerificationDocumentRepository) ByFilter(ctx context.Context, filter models.VerificationDocumentFilter, orderBy string, limit, offset int) ([]*models.VerificationDocument, error) {
	var rows []*models.VerificationDocument
	r.store.read(ctx, func() {
		for _, d := range r.store.documents {
			if matchDocument(&d, filter) {
				row := d
				rows = append(rows, &row)
			}
		}
	})
	if orderBy == "" {
		orderBy = "id DESC"
	}
	orderRows(rows, orderBy, documentColumns)
	return paginate(rows, limit, offset), nil
}

func (r *VerificationDocumentRepository) Count(ctx context.Context, filter models.VerificationDocumentFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), err
}

func (r *VerificationDocumentRepository) Exists(ctx context.Context, filter models.VerificationDocumentFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	return c > 0, err
}
