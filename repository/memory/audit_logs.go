package memory

import (
	"cmp"
	"context"

	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/repository"
	"github.com/amirphl/vetverify/utils"
)

var auditLogColumns = map[string]func(a, b *models.AuditLog) int{
	"id":         func(a, b *models.AuditLog) int { return cmp.Compare(a.ID, b.ID) },
	"created_at": func(a, b *models.AuditLog) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

// AuditLogRepository is the in-memory AuditLogRepository
type AuditLogRepository struct {
	store *Store
}

// NewAuditLogRepository creates an audit log repository backed by store
func NewAuditLogRepository(store *Store) repository.AuditLogRepository {
	return &AuditLogRepository{store: store}
}

func (r *AuditLogRepository) ByID(ctx context.Context, id uint) (*models.AuditLog, error) {
	var out *models.AuditLog
	r.store.read(ctx, func() {
		if l, ok := r.store.auditLogs[id]; ok {
			out = &l
		}
	})
	return out, nil
}

func (r *AuditLogRepository) Save(ctx context.Context, entry *models.AuditLog) error {
	return r.store.write(ctx, func() error {
		if err := r.store.injected("audit.Save"); err != nil {
			return err
		}
		r.insert(entry)
		return nil
	})
}

func (r *AuditLogRepository) SaveBatch(ctx context.Context, entries []*models.AuditLog) error {
	return r.store.write(ctx, func() error {
		if err := r.store.injected("audit.SaveBatch"); err != nil {
			return err
		}
		for _, e := range entries {
			r.insert(e)
		}
		return nil
	})
}

func (r *AuditLogRepository) insert(entry *models.AuditLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = utils.UTCNow()
	}
	entry.ID = r.store.nextID("audit_log")
	r.store.auditLogs[entry.ID] = *entry
}

func (r *AuditLogRepository) ListByAccount(ctx context.Context, accountID uint, limit, offset int) ([]*models.AuditLog, error) {
	return r.ByFilter(ctx, models.AuditLogFilter{AccountID: &accountID}, "created_at DESC, id DESC", limit, offset)
}

func (r *AuditLogRepository) ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error) {
	return r.ByFilter(ctx, models.AuditLogFilter{Action: &action}, "created_at DESC, id DESC", limit, offset)
}

func (r *AuditLogRepository) ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	failed := false
	return r.ByFilter(ctx, models.AuditLogFilter{Success: &failed}, "created_at DESC, id DESC", limit, offset)
}

func matchAuditLog(l *models.AuditLog, f models.AuditLogFilter) bool {
	if f.ID != nil && l.ID != *f.ID {
		return false
	}
	if f.AccountID != nil && (l.AccountID == nil || *l.AccountID != *f.AccountID) {
		return false
	}
	if f.AdminID != nil && (l.AdminID == nil || *l.AdminID != *f.AdminID) {
		return false
	}
	if f.Action != nil && l.Action != *f.Action {
		return false
	}
	if f.Success != nil && (l.Success == nil || *l.Success != *f.Success) {
		return false
	}
	if f.RequestID != nil && (l.RequestID == nil || *l.RequestID != *f.RequestID) {
		return false
	}
	if f.CreatedAfter != nil && !l.CreatedAt.After(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && !l.CreatedAt.Before(*f.CreatedBefore) {
		return false
	}
	return true
}

func (r *AuditLogRepository) ByFilter(ctx context.Context, filter models.AuditLogFilter, orderBy string, limit, offset int) ([]*models.AuditLog, error) {
	var rows []*models.AuditLog
	r.store.read(ctx, func() {
		for _, l := range r.store.auditLogs {
			if matchAuditLog(&l, filter) {
				row := l
				rows = append(rows, &row)
			}
		}
	})
	if orderBy == "" {
		orderBy = "id DESC"
	}
	orderRows(rows, orderBy, auditLogColumns)
	return paginate(rows, limit, offset), nil
}

func (r *AuditLogRepository) Count(ctx context.Context, filter models.AuditLogFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), err
}

func (r *AuditLogRepository) Exists(ctx context.Context, filter models.AuditLogFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	return c > 0, err
}
