package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/repository"
)

// ReviewQueueRepository is the in-memory ReviewQueueRepository
type ReviewQueueRepository struct {
	store *Store
}

// NewReviewQueueRepository creates a review queue projection over store
func NewReviewQueueRepository(store *Store) repository.ReviewQueueRepository {
	return &ReviewQueueRepository{store: store}
}

func (r *ReviewQueueRepository) matching(filter models.ReviewQueueFilter) []*models.ReviewQueueEntry {
	search := strings.ToLower(strings.TrimSpace(filter.SearchText))
	var out []*models.ReviewQueueEntry
	for _, p := range r.store.profiles {
		a, ok := r.store.accounts[p.AccountID]
		if !ok {
			continue
		}
		if filter.Status != "" && !a.HasStatus(filter.Status) {
			continue
		}
		if len(filter.Roles) > 0 && !slices.Contains(filter.Roles, a.Role) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.DisplayName), search) &&
			!strings.Contains(strings.ToLower(a.Email), search) {
			continue
		}
		out = append(out, &models.ReviewQueueEntry{Account: a, Profile: *cloneProfile(p)})
	}
	slices.SortFunc(out, func(x, y *models.ReviewQueueEntry) int {
		if c := x.Profile.SubmittedAt.Compare(y.Profile.SubmittedAt); c != 0 {
			return c
		}
		return cmp.Compare(x.Profile.AccountID, y.Profile.AccountID)
	})
	return out
}

func (r *ReviewQueueRepository) List(ctx context.Context, filter models.ReviewQueueFilter, limit, offset int) ([]*models.ReviewQueueEntry, error) {
	var out []*models.ReviewQueueEntry
	r.store.read(ctx, func() {
		out = paginate(r.matching(filter), limit, offset)
		for _, e := range out {
			for _, d := range r.store.documents {
				if d.AccountID == e.Account.ID {
					e.DocumentCount++
				}
			}
		}
	})
	if out == nil {
		out = []*models.ReviewQueueEntry{}
	}
	return out, nil
}

func (r *ReviewQueueRepository) Count(ctx context.Context, filter models.ReviewQueueFilter) (int64, error) {
	var n int64
	r.store.read(ctx, func() {
		n = int64(len(r.matching(filter)))
	})
	return n, nil
}
