package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirphl/vetverify/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedAccount(t *testing.T, repo interface {
	Save(context.Context, *models.Account) error
}, email string, role models.Role) *models.Account {
	t.Helper()
	a := &models.Account{Email: email, Role: role}
	require.NoError(t, repo.Save(context.Background(), a))
	return a
}

func TestTxManager_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	accounts := NewAccountRepository(store)
	profiles := NewProfessionalProfileRepository(store)
	tx := NewTxManager(store)

	acc := seedAccount(t, accounts, "vet@example.com", models.RoleVeterinarian)
	require.NoError(t, profiles.Save(ctx, &models.ProfessionalProfile{
		AccountID: acc.ID,
		Role:      models.RoleVeterinarian,
		Status:    models.ProfessionalStatusPending,
		Details:   []byte(`{}`),
	}))
	require.NoError(t, accounts.UpdateProfessionalStatus(ctx, acc.ID, models.ProfessionalStatusPending))

	store.FailOn("profiles.UpdateStatus", errors.New("disk full"))
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := accounts.UpdateProfessionalStatus(ctx, acc.ID, models.ProfessionalStatusApproved); err != nil {
			return err
		}
		return profiles.UpdateStatus(ctx, acc.ID, models.ProfessionalStatusApproved)
	})
	require.Error(t, err)
	store.ClearFailures()

	got, err := accounts.ByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProfessionalStatusPending, got.CurrentStatus())

	p, err := profiles.ByAccountID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProfessionalStatusPending, p.Status)
}

func TestTxManager_RecoversPanic(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	accounts := NewAccountRepository(store)
	tx := NewTxManager(store)

	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		_ = accounts.Save(ctx, &models.Account{Email: "a@example.com", Role: models.RoleVendor})
		panic("boom")
	})
	require.Error(t, err)

	count, err := accounts.Count(ctx, models.AccountFilter{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTxManager_NestedJoinsOuter(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	accounts := NewAccountRepository(store)
	tx := NewTxManager(store)

	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		return tx.WithinTx(ctx, func(ctx context.Context) error {
			return accounts.Save(ctx, &models.Account{Email: "nested@example.com", Role: models.RoleVendor})
		})
	})
	require.NoError(t, err)

	exists, err := accounts.Exists(ctx, models.AccountFilter{Email: stringPtr("NESTED@example.com")})
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAccountRepository_UniqueConstraints(t *testing.T) {
	ctx := context.Background()
	accounts := NewAccountRepository(NewStore())

	first := seedAccount(t, accounts, "dup@example.com", models.RoleVendor)
	err := accounts.Save(ctx, &models.Account{Email: "DUP@example.com", Role: models.RoleVendor})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	err = accounts.Save(ctx, &models.Account{UUID: first.UUID, Email: "other@example.com", Role: models.RoleVendor})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestAccountRepository_FilterAndOrder(t *testing.T) {
	ctx := context.Background()
	accounts := NewAccountRepository(NewStore())

	a := seedAccount(t, accounts, "a@example.com", models.RoleVeterinarian)
	b := seedAccount(t, accounts, "b@example.com", models.RoleVendor)
	c := seedAccount(t, accounts, "c@example.com", models.RoleVeterinarian)
	require.NoError(t, accounts.UpdateProfessionalStatus(ctx, c.ID, models.ProfessionalStatusPending))

	t.Run("default order is newest id first", func(t *testing.T) {
		rows, err := accounts.ByFilter(ctx, models.AccountFilter{}, "", 0, 0)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, []uint{c.ID, b.ID, a.ID}, []uint{rows[0].ID, rows[1].ID, rows[2].ID})
	})

	t.Run("role and status", func(t *testing.T) {
		role := models.RoleVeterinarian
		pending := models.ProfessionalStatusPending
		rows, err := accounts.ByFilter(ctx, models.AccountFilter{Role: &role, ProfessionalStatus: &pending}, "", 0, 0)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, c.ID, rows[0].ID)
	})

	t.Run("unsubmitted accounts", func(t *testing.T) {
		has := false
		n, err := accounts.Count(ctx, models.AccountFilter{HasStatus: &has})
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
	})

	t.Run("uuid set", func(t *testing.T) {
		rows, err := accounts.ByFilter(ctx, models.AccountFilter{UUIDs: []uuid.UUID{a.UUID, b.UUID}}, "id ASC", 0, 0)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, a.ID, rows[0].ID)
	})

	t.Run("pagination past the end", func(t *testing.T) {
		rows, err := accounts.ByFilter(ctx, models.AccountFilter{}, "", 10, 10)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestReviewDecisionRepository_LatestByAccount(t *testing.T) {
	ctx := context.Background()
	decisions := NewReviewDecisionRepository(NewStore())
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, decisions.Save(ctx, &models.ReviewDecision{
		AccountID: 1, Action: models.ReviewActionSubmit, ResultStatus: models.ProfessionalStatusPending, DecidedAt: at,
	}))
	require.NoError(t, decisions.Save(ctx, &models.ReviewDecision{
		AccountID: 1, Action: models.ReviewActionApprove, ResultStatus: models.ProfessionalStatusApproved, DecidedAt: at.Add(time.Minute),
	}))
	// same timestamp, later id wins
	require.NoError(t, decisions.Save(ctx, &models.ReviewDecision{
		AccountID: 1, Action: models.ReviewActionSuspend, ResultStatus: models.ProfessionalStatusSuspended, DecidedAt: at.Add(time.Minute),
	}))

	latest, err := decisions.LatestByAccount(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, models.ProfessionalStatusSuspended, latest.ResultStatus)

	history, err := decisions.ListByAccount(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, models.ReviewActionSubmit, history[0].Action)

	none, err := decisions.LatestByAccount(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestNotificationRepository_MarkRead(t *testing.T) {
	ctx := context.Background()
	notifications := NewNotificationRepository(NewStore())

	n := &models.Notification{UserID: 7, Message: "hello", Type: models.NotificationTypeStatusApproved}
	require.NoError(t, notifications.Save(ctx, n))
	require.NoError(t, notifications.Save(ctx, &models.Notification{UserID: 7, Message: "again", Type: models.NotificationTypeDocumentReminder}))

	ok, err := notifications.MarkRead(ctx, 8, n.ID)
	require.NoError(t, err)
	assert.False(t, ok, "foreign notification must not be marked")

	ok, err = notifications.MarkRead(ctx, 7, n.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	unread, err := notifications.CountUnread(ctx, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	marked, err := notifications.MarkAllRead(ctx, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 1, marked)
}

func TestVerificationDocumentRepository_ListExpiringBefore(t *testing.T) {
	ctx := context.Background()
	docs := NewVerificationDocumentRepository(NewStore())
	now := time.Now().UTC()

	soon := now.Add(10 * 24 * time.Hour)
	later := now.Add(60 * 24 * time.Hour)
	past := now.Add(-time.Hour)
	for _, exp := range []*time.Time{&soon, &later, &past, nil} {
		require.NoError(t, docs.Save(ctx, &models.VerificationDocument{
			AccountID: 1, DocumentType: models.DocumentTypeLicense, DocumentURL: "u", ExpiresAt: exp,
		}))
	}

	rows, err := docs.ListExpiringBefore(ctx, now.Add(30*24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].ExpiresAt.Equal(soon))

	require.NoError(t, docs.MarkReminderSent(ctx, rows[0].ID, now))
	rows, err = docs.ListExpiringBefore(ctx, now.Add(30*24*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func stringPtr(s string) *string { return &s }
