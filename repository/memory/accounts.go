package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/repository"
	"github.com/amirphl/vetverify/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var accountColumns = map[string]func(a, b *models.Account) int{
	"id":         func(a, b *models.Account) int { return cmp.Compare(a.ID, b.ID) },
	"created_at": func(a, b *models.Account) int { return a.CreatedAt.Compare(b.CreatedAt) },
	"updated_at": func(a, b *models.Account) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
	"email":      func(a, b *models.Account) int { return strings.Compare(a.Email, b.Email) },
}

// AccountRepository is the in-memory AccountRepository
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates an account repository backed by store
func NewAccountRepository(store *Store) repository.AccountRepository {
	return &AccountRepository{store: store}
}

func (r *AccountRepository) ByID(ctx context.Context, id uint) (*models.Account, error) {
	var out *models.Account
	r.store.read(ctx, func() {
		if a, ok := r.store.accounts[id]; ok {
			out = &a
		}
	})
	return out, nil
}

func (r *AccountRepository) ByUUID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	rows, err := r.ByFilter(ctx, models.AccountFilter{UUID: &id}, "", 1, 0)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *AccountRepository) ByEmail(ctx context.Context, email string) (*models.Account, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	rows, err := r.ByFilter(ctx, models.AccountFilter{Email: &normalized}, "", 1, 0)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *AccountRepository) Save(ctx context.Context, account *models.Account) error {
	return r.store.write(ctx, func() error {
		if err := r.store.injected("accounts.Save"); err != nil {
			return err
		}
		return r.insert(account)
	})
}

func (r *AccountRepository) SaveBatch(ctx context.Context, accounts []*models.Account) error {
	return r.store.write(ctx, func() error {
		if err := r.store.injected("accounts.SaveBatch"); err != nil {
			return err
		}
		for _, a := range accounts {
			if err := r.insert(a); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *AccountRepository) insert(account *models.Account) error {
	if err := account.BeforeCreate(nil); err != nil {
		return err
	}
	for _, existing := range r.store.accounts {
		if existing.UUID == account.UUID || strings.EqualFold(existing.Email, account.Email) {
			return fmt.Errorf("failed to save account %s: %w", account.Email, gorm.ErrDuplicatedKey)
		}
	}
	account.ID = r.store.nextID("accounts")
	r.store.accounts[account.ID] = *account
	return nil
}

func (r *AccountRepository) UpdateProfessionalStatus(ctx context.Context, accountID uint, status models.ProfessionalStatus) error {
	return r.store.write(ctx, func() error {
		if err := r.store.injected("accounts.UpdateProfessionalStatus"); err != nil {
			return err
		}
		a, ok := r.store.accounts[accountID]
		if !ok {
			return fmt.Errorf("account %d: %w", accountID, gorm.ErrRecordNotFound)
		}
		a.ProfessionalStatus = &status
		a.UpdatedAt = utils.UTCNow()
		r.store.accounts[accountID] = a
		return nil
	})
}

func (r *AccountRepository) UpdateNotificationPreferences(ctx context.Context, accountID uint, prefs models.NotificationPreferences) error {
	return r.store.write(ctx, func() error {
		if err := r.store.injected("accounts.UpdateNotificationPreferences"); err != nil {
			return err
		}
		a, ok := r.store.accounts[accountID]
		if !ok {
			return fmt.Errorf("account %d: %w", accountID, gorm.ErrRecordNotFound)
		}
		a.NotificationPreferences = prefs
		a.UpdatedAt = utils.UTCNow()
		r.store.accounts[accountID] = a
		return nil
	})
}

func matchAccount(a *models.Account, f models.AccountFilter) bool {
	if f.ID != nil && a.ID != *f.ID {
		return false
	}
	if f.UUID != nil && a.UUID != *f.UUID {
		return false
	}
	if len(f.UUIDs) > 0 && !slices.Contains(f.UUIDs, a.UUID) {
		return false
	}
	if f.Email != nil && !strings.EqualFold(a.Email, *f.Email) {
		return false
	}
	if f.Role != nil && a.Role != *f.Role {
		return false
	}
	if f.ProfessionalStatus != nil && !a.HasStatus(*f.ProfessionalStatus) {
		return false
	}
	if f.HasStatus != nil && (a.ProfessionalStatus != nil) != *f.HasStatus {
		return false
	}
	if f.CreatedAfter != nil && !a.CreatedAt.After(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && !a.CreatedAt.Before(*f.CreatedBefore) {
		return false
	}
	return true
}

func (r *AccountRepository) ByFilter(ctx context.Context, filter models.AccountFilter, orderBy string, limit, offset int) ([]*models.Account, error) {
	var rows []*models.Account
	r.store.read(ctx, func() {
		for _, a := range r.store.accounts {
			if matchAccount(&a, filter) {
				row := a
				rows = append(rows, &row)
			}
		}
	})
	if orderBy == "" {
		orderBy = "id DESC"
	}
	orderRows(rows, orderBy, accountColumns)
	return paginate(rows, limit, offset), nil
}

func (r *AccountRepository) Count(ctx context.Context, filter models.AccountFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), err
}

func (r *AccountRepository) Exists(ctx context.Context, filter models.AccountFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	return c > 0, err
}
