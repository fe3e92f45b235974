package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/repository"
	testutil "github.com/amirphl/vetverify/testing"
	"github.com/amirphl/vetverify/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real PostgreSQL server; set TEST_DB_HOST to enable.
func withDB(t *testing.T, fn func(t *testing.T, tdb *testutil.TestDB)) {
	t.Helper()
	if !testutil.Available() {
		t.Skip("TEST_DB_HOST not set")
	}
	err := testutil.TestWithDB(func(tdb *testutil.TestDB) error {
		fn(t, tdb)
		return nil
	})
	require.NoError(t, err)
}

func TestAccountRepository(t *testing.T) {
	withDB(t, func(t *testing.T, tdb *testutil.TestDB) {
		ctx := context.Background()
		repo := repository.NewAccountRepository(tdb.DB)
		fx := testutil.NewTestFixtures(tdb)

		account, err := fx.CreateTestAccount(models.RoleVeterinarian, nil)
		require.NoError(t, err)

		got, err := repo.ByUUID(ctx, account.UUID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Nil(t, got.ProfessionalStatus)
		assert.True(t, got.NotificationPreferences.InApp.StatusChanges)

		require.NoError(t, repo.UpdateProfessionalStatus(ctx, account.ID, models.ProfessionalStatusPending))
		got, err = repo.ByID(ctx, account.ID)
		require.NoError(t, err)
		require.NotNil(t, got.ProfessionalStatus)
		assert.Equal(t, models.ProfessionalStatusPending, *got.ProfessionalStatus)

		byEmail, err := repo.ByEmail(ctx, "  "+account.Email+"  ")
		require.NoError(t, err)
		require.NotNil(t, byEmail)
		assert.Equal(t, account.ID, byEmail.ID)
	})
}

func TestTxManagerRollsBack(t *testing.T) {
	withDB(t, func(t *testing.T, tdb *testutil.TestDB) {
		ctx := context.Background()
		accounts := repository.NewAccountRepository(tdb.DB)
		tx := repository.NewGormTxManager(tdb.DB)

		account, err := testutil.NewTestFixtures(tdb).CreateTestAccount(models.RoleVendor, nil)
		require.NoError(t, err)

		err = tx.WithinTx(ctx, func(txCtx context.Context) error {
			if err := accounts.UpdateProfessionalStatus(txCtx, account.ID, models.ProfessionalStatusPending); err != nil {
				return err
			}
			return assert.AnError
		})
		require.ErrorIs(t, err, assert.AnError)

		got, err := accounts.ByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Nil(t, got.ProfessionalStatus)
	})
}

func TestReviewQueueRepository(t *testing.T) {
	withDB(t, func(t *testing.T, tdb *testutil.TestDB) {
		ctx := context.Background()
		fx := testutil.NewTestFixtures(tdb)
		queue := repository.NewReviewQueueRepository(tdb.DB)

		first, err := fx.CreatePendingProfessional(models.RoleVeterinarian, "Alice Paws")
		require.NoError(t, err)
		second, err := fx.CreatePendingProfessional(models.RoleVendor, "Bob Feeds")
		require.NoError(t, err)
		_, err = fx.CreateTestAccount(models.RoleVeterinarian, utils.ToPtr(models.ProfessionalStatusApproved))
		require.NoError(t, err)

		filter := models.ReviewQueueFilter{
			Status: models.ProfessionalStatusPending,
			Roles:  []models.Role{models.RoleVeterinarian, models.RoleVendor},
		}
		entries, err := queue.List(ctx, filter, 10, 0)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, first.ID, entries[0].Account.ID)
		assert.Equal(t, second.ID, entries[1].Account.ID)
		assert.EqualValues(t, 2, entries[0].DocumentCount)

		filter.SearchText = "bob"
		count, err := queue.Count(ctx, filter)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})
}

func TestVerificationDocumentRepository(t *testing.T) {
	withDB(t, func(t *testing.T, tdb *testutil.TestDB) {
		ctx := context.Background()
		fx := testutil.NewTestFixtures(tdb)
		docs := repository.NewVerificationDocumentRepository(tdb.DB)

		account, err := fx.CreateTestAccount(models.RoleVeterinarian, utils.ToPtr(models.ProfessionalStatusApproved))
		require.NoError(t, err)
		soon := time.Now().UTC().Add(24 * time.Hour)
		later := time.Now().UTC().Add(90 * 24 * time.Hour)
		expiring, err := fx.CreateTestDocument(account.ID, models.DocumentTypeLicense, &soon)
		require.NoError(t, err)
		_, err = fx.CreateTestDocument(account.ID, models.DocumentTypeDegree, &later)
		require.NoError(t, err)

		due, err := docs.ListExpiringBefore(ctx, time.Now().UTC().Add(7*24*time.Hour), 10)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, expiring.ID, due[0].ID)

		require.NoError(t, docs.MarkReminderSent(ctx, expiring.ID, time.Now().UTC()))
		due, err = docs.ListExpiringBefore(ctx, time.Now().UTC().Add(7*24*time.Hour), 10)
		require.NoError(t, err)
		assert.Empty(t, due)

		n, err := docs.UpdateStatusByAccount(ctx, account.ID, models.DocumentStatusPending, models.DocumentStatusApproved, nil)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
	})
}
