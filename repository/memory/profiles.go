package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/repository"
	"github.com/amirphl/vetverify/utils"
	"gorm.io/gorm"
)

var profileColumns = map[string]func(a, b *models.ProfessionalProfile) int{
	"id":           func(a, b *models.ProfessionalProfile) int { return cmp.Compare(a.ID, b.ID) },
	"account_id":   func(a, b *models.ProfessionalProfile) int { return cmp.Compare(a.AccountID, b.AccountID) },
	"submitted_at": func(a, b *models.ProfessionalProfile) int { return a.SubmittedAt.Compare(b.SubmittedAt) },
	"created_at":   func(a, b *models.ProfessionalProfile) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

// ProfessionalProfileRepository is the in-memory ProfessionalProfileRepository
type ProfessionalProfileRepository struct {
	store *Store
}

// NewProfessionalProfileRepository creates a profile repository backed by store
func NewProfessionalProfileRepository(store *Store) repository.ProfessionalProfileRepository {
	return &ProfessionalProfileRepository{store: store}
}

func cloneProfile(p models.ProfessionalProfile) *models.ProfessionalProfile {
	p.Details = slices.Clone(p.Details)
	p.ServicesOffered = slices.Clone(p.ServicesOffered)
	p.Account = nil
	return &p
}

func (r *ProfessionalProfileRepository) ByID(ctx context.Context, id uint) (*models.ProfessionalProfile, error) {
	var out *models.ProfessionalProfile
	r.store.read(ctx, func() {
		if p, ok := r.store.profiles[id]; ok {
			out = cloneProfile(p)
		}
	})
	return out, nil
}

func (r *ProfessionalProfileRepository) ByAccountID(ctx context.Context, accountID uint) (*models.ProfessionalProfile, error) {
	rows, err := r.ByFilter(ctx, models.ProfessionalProfileFilter{AccountID: &accountID}, "", 1, 0)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *ProfessionalProfileRepository) ByAccountIDs(ctx context.Context, accountIDs []uint) ([]*models.ProfessionalProfile, error) {
	if len(accountIDs) == 0 {
		return []*models.ProfessionalProfile{}, nil
	}
	return r.ByFilter(ctx, models.ProfessionalProfileFilter{AccountIDs: accountIDs}, "account_id ASC", 0, 0)
}

func (r *ProfessionalProfileRepository) Save(ctx context.Context, profile *models.ProfessionalProfile) error {
	return r.store.write(ctx, func() error {
		if err := r.store.injected("profiles.Save"); err != nil {
			return err
		}
		return r.insert(profile)
	})
}

func (r *ProfessionalProfileRepository) SaveBatch(ctx context.Context, profiles []*models.ProfessionalProfile) error {
	return r.store.write(ctx, func() error {
		if err := r.store.injected("profiles.SaveBatch"); err != nil {
			return err
		}
		for _, p := range profiles {
			if err := r.insert(p); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ProfessionalProfileRepository) insert(profile *models.ProfessionalProfile) error {
	for _, existing := range r.store.profiles {
		if existing.AccountID == profile.AccountID {
			return fmt.Errorf("failed to save profile of account %d: %w", profile.AccountID, gorm.ErrDuplicatedKey)
		}
	}
	if err := profile.BeforeCreate(nil); err != nil {
		return err
	}
	profile.ID = r.store.nextID("profiles")
	r.store.profiles[profile.ID] = *cloneProfile(*profile)
	return nil
}

func (r *ProfessionalProfileRepository) Update(ctx context.Context, profile *models.ProfessionalProfile) error {
	return r.store.write(ctx, func() error {
		if err := r.store.injected("profiles.Update"); err != nil {
			return err
		}
		existing, ok := r.store.profiles[profile.ID]
		if !ok {
			return fmt.Errorf("profile %d: %w", profile.ID, gorm.ErrRecordNotFound)
		}
		profile.UpdatedAt = utils.UTCNow()
		updated := *cloneProfile(*profile)
		updated.AccountID = existing.AccountID
		updated.Status = existing.Status
		updated.CreatedAt = existing.CreatedAt
		r.store.profiles[profile.ID] = updated
		return nil
	})
}

func (r *ProfessionalProfileRepository) UpdateStatus(ctx context.Context, accountID uint, status models.ProfessionalStatus) error {
	return r.store.write(ctx, func() error {
		if err := r.store.injected("profiles.UpdateStatus"); err != nil {
			return err
		}
		for id, p := range r.store.profiles {
			if p.AccountID == accountID {
				p.Status = status
				p.UpdatedAt = utils.UTCNow()
				r.store.profiles[id] = p
				return nil
			}
		}
		return fmt.Errorf("profile of account %d: %w", accountID, gorm.ErrRecordNotFound)
	})
}

func matchProfile(p *models.ProfessionalProfile, f models.ProfessionalProfileFilter) bool {
	if f.ID != nil && p.ID != *f.ID {
		return false
	}
	if f.AccountID != nil && p.AccountID != *f.AccountID {
		return false
	}
	if len(f.AccountIDs) > 0 && !slices.Contains(f.AccountIDs, p.AccountID) {
		return false
	}
	if f.Role != nil && p.Role != *f.Role {
		return false
	}
	if f.Status != nil && p.Status != *f.Status {
		return false
	}
	if f.LicenseNumber != nil && p.LicenseNumber != *f.LicenseNumber {
		return false
	}
	return true
}

func (r *ProfessionalProfileRepository) ByFilter(ctx context.Context, filter models.ProfessionalProfileFilter, orderBy string, limit, offset int) ([]*models.ProfessionalProfile, error) {
	var rows []*models.ProfessionalProfile
	r.store.read(ctx, func() {
		for _, p := range r.store.profiles {
			if matchProfile(&p, filter) {
				rows = append(rows, cloneProfile(p))
			}
		}
	})
	if orderBy == "" {
		orderBy = "id DESC"
	}
	orderRows(rows, orderBy, profileColumns)
	return paginate(rows, limit, offset), nil
}

func (r *ProfessionalProfileRepository) Count(ctx context.Context, filter models.ProfessionalProfileFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), err
}

func (r *ProfessionalProfileRepository) Exists(ctx context.Context, filter models.ProfessionalProfileFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	return c > 0, err
}
