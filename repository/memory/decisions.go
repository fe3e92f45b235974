package memory

import (
	"cmp"
	"context"

	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/repository"
)

var decisionColumns = map[string]func(a, b *models.ReviewDecision) int{
	"id":         func(a, b *models.ReviewDecision) int { return cmp.Compare(a.ID, b.ID) },
	"decided_at": func(a, b *models.ReviewDecision) int { return a.DecidedAt.Compare(b.DecidedAt) },
}

// ReviewDecisionRepository is the in-memory append-only decision log
type ReviewDecisionRepository struct {
	store *Store
}

// NewReviewDecisionRepository creates a decision log backed by store
func NewReviewDecisionRepository(store *Store) repository.ReviewDecisionRepository {
	return &ReviewDecisionRepository{store: store}
}

func (r *ReviewDecisionRepository) ByID(ctx context.Context, id uint) (*models.ReviewDecision, error) {
	var out *models.ReviewDecision
	r.store.read(ctx, func() {
		if d, ok := r.store.decisions[id]; ok {
			out = &d
		}
	})
	return out, nil
}

func (r *ReviewDecisionRepository) ListByAccount(ctx context.Context, accountID uint) ([]*models.ReviewDecision, error) {
	return r.ByFilter(ctx, models.ReviewDecisionFilter{AccountID: &accountID}, "decided_at ASC, id ASC", 0, 0)
}

func (r *ReviewDecisionRepository) LatestByAccount(ctx context.Context, accountID uint) (*models.ReviewDecision, error) {
	rows, err := r.ByFilter(ctx, models.ReviewDecisionFilter{AccountID: &accountID}, "decided_at DESC, id DESC", 1, 0)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *ReviewDecisionRepository) Save(ctx context.Context, decision *models.ReviewDecision) error {
	return r.store.write(ctx, func() error {
		if err := r.store.injected("decisions.Save"); err != nil {
			return err
		}
		r.insert(decision)
		return nil
	})
}

func (r *ReviewDecisionRepository) SaveBatch(ctx context.Context, decisions []*models.ReviewDecision) error {
	return r.store.write(ctx, func() error {
		if err := r.store.injected("decisions.SaveBatch"); err != nil {
			return err
		}
		for _, d := range decisions {
			r.insert(d)
		}
		return nil
	})
}

func (r *ReviewDecisionRepository) insert(decision *models.ReviewDecision) {
	_ = decision.BeforeCreate(nil)
	decision.ID = r.store.nextID("decisions")
	row := *decision
	row.Account = nil
	r.store.decisions[decision.ID] = row
}

func matchDecision(d *models.ReviewDecision, f models.ReviewDecisionFilter) bool {
	if f.ID != nil && d.ID != *f.ID {
		return false
	}
	if f.AccountID != nil && d.AccountID != *f.AccountID {
		return false
	}
	if f.Action != nil && d.Action != *f.Action {
		return false
	}
	if f.AdminID != nil && (d.AdminID == nil || *d.AdminID != *f.AdminID) {
		return false
	}
	if f.DecidedAfter != nil && !d.DecidedAt.After(*f.DecidedAfter) {
		return false
	}
	if f.DecidedBefore != nil && !d.DecidedAt.Before(*f.DecidedBefore) {
		return false
	}
	return true
}

func (r *ReviewDecisionRepository) ByFilter(ctx context.Context, filter models.ReviewDecisionFilter, orderBy string, limit, offset int) ([]*models.ReviewDecision, error) {
	var rows []*models.ReviewDecision
	r.store.read(ctx, func() {
		for _, d := range r.store.decisions {
			if matchDecision(&d, filter) {
				row := d
				rows = append(rows, &row)
			}
		}
	})
	if orderBy == "" {
		orderBy = "decided_at DESC, id DESC"
	}
	orderRows(rows, orderBy, decisionColumns)
	return paginate(rows, limit, offset), nil
}

func (r *ReviewDecisionRepository) Count(ctx context.Context, filter models.ReviewDecisionFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), err
}

func (r *ReviewDecisionRepository) Exists(ctx context.Context, filter models.ReviewDecisionFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	return c > 0, err
}
