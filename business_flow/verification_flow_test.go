package businessflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingLicenseNumber", func(t *testing.T) {
		env := newTestEnv(t)
		acc := env.newAccount(t, "vet@example.com", models.RoleVeterinarian)

		vet := validVet()
		vet.LicenseNumber = ""
		_, err := env.verification.SubmitProfile(ctx, acc.UUID, ProfileSubmission{
			Profile:   vet,
			Documents: completedDocs(acc.UUID, models.RoleVeterinarian),
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsValidation(err))

		ve, ok := AsValidation(err)
		require.True(t, ok)
		require.Len(t, ve.Fields, 1)
		assert.Equal(t, "license_number", ve.Fields[0].Field)

		// Nothing was written
		assert.Nil(t, env.reload(t, acc).ProfessionalStatus)
		assert.Nil(t, env.profileOf(t, acc))
	})

	t.Run("SuccessfulVeterinarianSubmission", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.newAdmin(t)
		acc := env.newAccount(t, "vet@example.com", models.RoleVeterinarian)

		vet := validVet()
		vet.LicenseNumber = "VCI-12345"
		profile, err := env.verification.SubmitProfile(ctx, acc.UUID, ProfileSubmission{
			Profile:   vet,
			Documents: completedDocs(acc.UUID, models.RoleVeterinarian),
		}, testMetadata())
		require.NoError(t, err)
		require.NotNil(t, profile)
		assert.Equal(t, models.ProfessionalStatusPending, profile.Status)
		assert.Equal(t, models.RoleVeterinarian, profile.Role)
		assert.Equal(t, "VCI-12345", profile.LicenseNumber)

		// Account and profile agree
		assert.Equal(t, models.ProfessionalStatusPending, env.reload(t, acc).CurrentStatus())
		assert.Equal(t, models.ProfessionalStatusPending, env.profileOf(t, acc).Status)

		// Documents stored as pending
		docs, err := env.documents.ListByAccount(ctx, acc.ID)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		for _, d := range docs {
			assert.Equal(t, models.DocumentStatusPending, d.VerificationStatus)
		}

		// Submission logged
		decisions := env.decisionsOf(t, acc)
		require.Len(t, decisions, 1)
		assert.Equal(t, models.ReviewActionSubmit, decisions[0].Action)
		assert.Nil(t, decisions[0].AdminID)
		assert.Nil(t, decisions[0].PreviousStatus)

		logs, err := env.audit.ByFilter(ctx, models.AuditLogFilter{
			AccountID: &acc.ID,
			Action:    utils.ToPtr(models.AuditActionProfileSubmitted),
		}, "", 0, 0)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.True(t, utils.IsTrue(logs[0].Success))

		// Admin told about the applicant
		adminNotes := env.notificationsOf(t, admin)
		require.Len(t, adminNotes, 1)
		assert.Equal(t, models.NotificationTypeNewApplicant, adminNotes[0].Type)
		assert.Contains(t, adminNotes[0].Message, "Dr. Aisha Sharma")
		require.NotNil(t, adminNotes[0].Link)
		assert.Contains(t, *adminNotes[0].Link, acc.UUID.String())
	})

	t.Run("SuccessfulVendorSubmission", func(t *testing.T) {
		env := newTestEnv(t)
		acc := env.newAccount(t, "shop@example.com", models.RoleVendor)

		profile, err := env.verification.SubmitProfile(ctx, acc.UUID, ProfileSubmission{
			Profile:   validVendor(),
			Documents: completedDocs(acc.UUID, models.RoleVendor),
		}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, "Happy Tails Pet Store", profile.DisplayName)

		variant, err := env.profileOf(t, acc).Variant()
		require.NoError(t, err)
		vendor, ok := variant.(*models.VendorDetails)
		require.True(t, ok)
		assert.Equal(t, models.BusinessTypePetShop, vendor.BusinessType)
	})

	t.Run("InvalidFieldsAreListed", func(t *testing.T) {
		env := newTestEnv(t)
		acc := env.newAccount(t, "shop@example.com", models.RoleVendor)

		vendor := validVendor()
		vendor.BusinessPhone = "12345"
		vendor.GSTNumber = utils.ToPtr("NOT-A-GST")
		_, err := env.verification.SubmitProfile(ctx, acc.UUID, ProfileSubmission{
			Profile:   vendor,
			Documents: completedDocs(acc.UUID, models.RoleVendor),
		}, testMetadata())
		ve, ok := AsValidation(err)
		require.True(t, ok)

		fields := make([]string, 0, len(ve.Fields))
		for _, f := range ve.Fields {
			fields = append(fields, f.Field)
		}
		assert.ElementsMatch(t, []string{"business_phone", "gst_number"}, fields)
	})

	t.Run("DocumentsIncomplete", func(t *testing.T) {
		env := newTestEnv(t)
		acc := env.newAccount(t, "vet@example.com", models.RoleVeterinarian)

		docs := completedDocs(acc.UUID, models.RoleVeterinarian)
		docs[1].Progress = 60
		_, err := env.verification.SubmitProfile(ctx, acc.UUID, ProfileSubmission{
			Profile:   validVet(),
			Documents: docs,
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsDocumentsIncomplete(err))
		assert.False(t, IsValidation(err))

		de, ok := AsDocumentsIncomplete(err)
		require.True(t, ok)
		assert.Equal(t, []models.DocumentType{models.DocumentTypeDegree}, de.Missing)
		assert.Equal(t, "DOCUMENTS_INCOMPLETE", businessCode(t, err))
		assert.Nil(t, env.profileOf(t, acc))
	})

	t.Run("FailedUploadIsIncomplete", func(t *testing.T) {
		env := newTestEnv(t)
		acc := env.newAccount(t, "vet@example.com", models.RoleVeterinarian)

		docs := completedDocs(acc.UUID, models.RoleVeterinarian)
		docs[0].Err = errors.New("connection reset")
		_, err := env.verification.SubmitProfile(ctx, acc.UUID, ProfileSubmission{
			Profile:   validVet(),
			Documents: docs,
		}, testMetadata())
		assert.True(t, IsDocumentsIncomplete(err))
	})

	t.Run("AlreadyPending", func(t *testing.T) {
		env := newTestEnv(t)
		acc := env.submitVet(t, "vet@example.com", "Dr. Aisha Sharma")

		_, err := env.verification.SubmitProfile(ctx, acc.UUID, ProfileSubmission{
			Profile:   validVet(),
			Documents: completedDocs(acc.UUID, models.RoleVeterinarian),
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsInvalidTransition(err))
		assert.Len(t, env.decisionsOf(t, acc), 1)
	})

	t.Run("AccountNotFound", func(t *testing.T) {
		env := newTestEnv(t)
		id := uuid.New()
		_, err := env.verification.SubmitProfile(ctx, id, ProfileSubmission{
			Profile:   validVet(),
			Documents: completedDocs(id, models.RoleVeterinarian),
		}, testMetadata())
		assert.True(t, IsAccountNotFound(err))
	})

	t.Run("ProfileMustMatchRole", func(t *testing.T) {
		env := newTestEnv(t)
		acc := env.newAccount(t, "shop@example.com", models.RoleVendor)

		_, err := env.verification.SubmitProfile(ctx, acc.UUID, ProfileSubmission{
			Profile:   validVet(),
			Documents: completedDocs(acc.UUID, models.RoleVendor),
		}, testMetadata())
		assert.True(t, IsValidation(err))
	})

	t.Run("PetParentHasNoProfile", func(t *testing.T) {
		env := newTestEnv(t)
		acc := env.newAccount(t, "owner@example.com", models.RolePetParent)

		_, err := env.verification.SubmitProfile(ctx, acc.UUID, ProfileSubmission{
			Profile:   validVet(),
			Documents: completedDocs(acc.UUID, models.RoleVeterinarian),
		}, testMetadata())
		assert.True(t, IsValidation(err))
	})

	t.Run("ResubmitAfterRejection", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.newAdmin(t)
		acc := env.submitVet(t, "vet@example.com", "Dr. Aisha Sharma")

		_, err := env.verification.RecordDecision(ctx, admin.UUID, acc.UUID, Decision{
			Status: models.ProfessionalStatusRejected,
			Reason: utils.ToPtr("License number could not be verified"),
		}, testMetadata())
		require.NoError(t, err)

		vet := validVet()
		vet.LicenseNumber = "VCI-67890"
		profile, err := env.verification.SubmitProfile(ctx, acc.UUID, ProfileSubmission{
			Profile:   vet,
			Documents: completedDocs(acc.UUID, models.RoleVeterinarian),
		}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, models.ProfessionalStatusPending, profile.Status)

		stored := env.profileOf(t, acc)
		assert.Equal(t, "VCI-67890", stored.LicenseNumber)
		assert.Equal(t, models.ProfessionalStatusPending, stored.Status)
		assert.Equal(t, models.ProfessionalStatusPending, env.reload(t, acc).CurrentStatus())

		count, err := env.profiles.Count(ctx, models.ProfessionalProfileFilter{AccountID: &acc.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		decisions := env.decisionsOf(t, acc)
		require.Len(t, decisions, 3)
		assert.Equal(t, models.ReviewActionSubmit, decisions[2].Action)
		require.NotNil(t, decisions[2].PreviousStatus)
		assert.Equal(t, string(models.ProfessionalStatusRejected), *decisions[2].PreviousStatus)
	})
}

func TestRecordDecision(t *testing.T) {
	ctx := context.Background()

	t.Run("ApprovePendingAccount", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.newAdmin(t)
		acc := env.submitVet(t, "vet@example.com", "Dr. Aisha Sharma")

		got, err := env.verification.RecordDecision(ctx, admin.UUID, acc.UUID,
			Decision{Status: models.ProfessionalStatusApproved}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, models.ProfessionalStatusApproved, got.CurrentStatus())

		assert.Equal(t, models.ProfessionalStatusApproved, env.reload(t, acc).CurrentStatus())
		assert.Equal(t, models.ProfessionalStatusApproved, env.profileOf(t, acc).Status)

		notes := env.notificationsOf(t, acc)
		require.Len(t, notes, 1)
		assert.Equal(t, models.NotificationTypeStatusApproved, notes[0].Type)
		assert.False(t, notes[0].IsRead)

		// Pending documents follow the account
		docs, err := env.documents.ListByAccount(ctx, acc.ID)
		require.NoError(t, err)
		for _, d := range docs {
			assert.Equal(t, models.DocumentStatusApproved, d.VerificationStatus)
			assert.Equal(t, &admin.ID, d.ReviewedBy)
		}

		decisions := env.decisionsOf(t, acc)
		require.Len(t, decisions, 2)
		last := decisions[1]
		assert.Equal(t, models.ReviewActionApprove, last.Action)
		assert.Equal(t, models.ProfessionalStatusApproved, last.ResultStatus)
		assert.Equal(t, &admin.ID, last.AdminID)

		emails := env.email.To(acc.Email)
		require.Len(t, emails, 1)
		assert.Contains(t, emails[0].Body, "approved")
	})

	t.Run("RejectionCarriesReason", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.newAdmin(t)
		acc := env.submitVendor(t, "shop@example.com", "Happy Tails")

		_, err := env.verification.RecordDecision(ctx, admin.UUID, acc.UUID, Decision{
			Status:   models.ProfessionalStatusRejected,
			Reason:   utils.ToPtr("Incomplete Profile Information"),
			Comments: utils.ToPtr("GST certificate is blurry"),
		}, testMetadata())
		require.NoError(t, err)

		assert.Equal(t, models.ProfessionalStatusRejected, env.reload(t, acc).CurrentStatus())
		assert.Equal(t, models.ProfessionalStatusRejected, env.profileOf(t, acc).Status)

		notes := env.notificationsOf(t, acc)
		require.Len(t, notes, 1)
		assert.Equal(t, models.NotificationTypeStatusRejected, notes[0].Type)
		assert.Contains(t, notes[0].Message, "Incomplete Profile Information")

		// Documents stay pending for the next review
		docs, err := env.documents.ListByAccount(ctx, acc.ID)
		require.NoError(t, err)
		for _, d := range docs {
			assert.Equal(t, models.DocumentStatusPending, d.VerificationStatus)
		}
	})

	t.Run("NotPendingIsInvalidTransition", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.newAdmin(t)
		acc := env.submitVet(t, "vet@example.com", "Dr. Aisha Sharma")
		env.approve(t, admin, acc)

		for _, status := range []models.ProfessionalStatus{models.ProfessionalStatusApproved, models.ProfessionalStatusRejected} {
			_, err := env.verification.RecordDecision(ctx, admin.UUID, acc.UUID, Decision{Status: status}, testMetadata())
			require.Error(t, err)
			assert.True(t, IsInvalidTransition(err))
			assert.Equal(t, "INVALID_STATUS_TRANSITION", businessCode(t, err))
		}

		// State unchanged
		assert.Equal(t, models.ProfessionalStatusApproved, env.reload(t, acc).CurrentStatus())
		assert.Equal(t, models.ProfessionalStatusApproved, env.profileOf(t, acc).Status)
		assert.Len(t, env.notificationsOf(t, acc), 1)
		assert.Len(t, env.decisionsOf(t, acc), 2)
	})

	t.Run("UnsubmittedIsInvalidTransition", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.newAdmin(t)
		acc := env.newAccount(t, "vet@example.com", models.RoleVeterinarian)

		_, err := env.verification.RecordDecision(ctx, admin.UUID, acc.UUID,
			Decision{Status: models.ProfessionalStatusApproved}, testMetadata())
		assert.True(t, IsInvalidTransition(err))
		assert.Nil(t, env.reload(t, acc).ProfessionalStatus)
	})

	t.Run("AccountNotFound", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.newAdmin(t)

		_, err := env.verification.RecordDecision(ctx, admin.UUID, uuid.New(),
			Decision{Status: models.ProfessionalStatusApproved}, testMetadata())
		assert.True(t, IsAccountNotFound(err))
	})

	t.Run("RequiresAdmin", func(t *testing.T) {
		env := newTestEnv(t)
		acc := env.submitVet(t, "vet@example.com", "Dr. Aisha Sharma")
		other := env.newAccount(t, "other@example.com", models.RoleVendor)

		_, err := env.verification.RecordDecision(ctx, other.UUID, acc.UUID,
			Decision{Status: models.ProfessionalStatusApproved}, testMetadata())
		assert.True(t, IsAdminRequired(err))
		assert.Equal(t, models.ProfessionalStatusPending, env.reload(t, acc).CurrentStatus())
	})

	t.Run("OnlyApproveOrReject", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.newAdmin(t)
		acc := env.submitVet(t, "vet@example.com", "Dr. Aisha Sharma")

		_, err := env.verification.RecordDecision(ctx, admin.UUID, acc.UUID,
			Decision{Status: models.ProfessionalStatusSuspended}, testMetadata())
		assert.ErrorIs(t, err, ErrInvalidDecision)
	})

	t.Run("FailedWriteKeepsPairInSync", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.newAdmin(t)
		acc := env.submitVet(t, "vet@example.com", "Dr. Aisha Sharma")

		env.store.FailOn("profiles.UpdateStatus", errors.New("connection lost"))
		_, err := env.verification.RecordDecision(ctx, admin.UUID, acc.UUID,
			Decision{Status: models.ProfessionalStatusApproved}, testMetadata())
		env.store.ClearFailures()
		require.Error(t, err)
		assert.Equal(t, "DECISION_FAILED", businessCode(t, err))

		assert.Equal(t, models.ProfessionalStatusPending, env.reload(t, acc).CurrentStatus())
		assert.Equal(t, models.ProfessionalStatusPending, env.profileOf(t, acc).Status)
		assert.Len(t, env.decisionsOf(t, acc), 1)
		assert.Empty(t, env.notificationsOf(t, acc))
	})

	t.Run("EmailFollowsPreferences", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.newAdmin(t)
		acc := env.submitVet(t, "vet@example.com", "Dr. Aisha Sharma")

		prefs := models.DefaultNotificationPreferences()
		prefs.Email.StatusChanges = false
		require.NoError(t, env.accounts.UpdateNotificationPreferences(ctx, acc.ID, prefs))

		env.approve(t, admin, acc)
		assert.Len(t, env.notificationsOf(t, acc), 1)
		assert.Empty(t, env.email.To(acc.Email))
	})

	t.Run("ConcurrentDecisionsApplyOnce", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.newAdmin(t)
		acc := env.submitVet(t, "vet@example.com", "Dr. Aisha Sharma")

		const workers = 10
		errs := make([]error, workers)
		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				status := models.ProfessionalStatusApproved
				if i%2 == 1 {
					status = models.ProfessionalStatusRejected
				}
				_, errs[i] = env.verification.RecordDecision(ctx, admin.UUID, acc.UUID, Decision{Status: status}, testMetadata())
			}()
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.True(t, IsInvalidTransition(err), "unexpected error: %v", err)
		}
		assert.Equal(t, 1, succeeded)
		assert.Len(t, env.decisionsOf(t, acc), 2)
		assert.Len(t, env.notificationsOf(t, acc), 1)

		reloaded := env.reload(t, acc)
		assert.Equal(t, reloaded.CurrentStatus(), env.profileOf(t, acc).Status)
	})
}

func TestBatchRecordDecision(t *testing.T) {
	ctx := context.Background()

	t.Run("ContinuesPastFailures", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.newAdmin(t)
		a := env.submitVet(t, "a@example.com", "Dr. A")
		b := env.submitVet(t, "b@example.com", "Dr. B")
		c := env.submitVendor(t, "c@example.com", "Shop C")
		env.approve(t, admin, b)

		result, err := env.verification.BatchRecordDecision(ctx, admin.UUID, []uuid.UUID{a.UUID, b.UUID, c.UUID}, Decision{
			Status: models.ProfessionalStatusRejected,
			Reason: utils.ToPtr("Incomplete Profile Information"),
		}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsPartialBatchFailure(err))
		require.NotNil(t, result)

		assert.ElementsMatch(t, []uuid.UUID{a.UUID, c.UUID}, result.Succeeded)
		require.Len(t, result.Failed, 1)
		assert.True(t, IsInvalidTransition(result.Failed[b.UUID]))

		pf, ok := AsPartialBatchFailure(err)
		require.True(t, ok)
		assert.Equal(t, result, pf.Result)

		for _, acc := range []*models.Account{a, c} {
			assert.Equal(t, models.ProfessionalStatusRejected, env.reload(t, acc).CurrentStatus())
			assert.Equal(t, models.ProfessionalStatusRejected, env.profileOf(t, acc).Status)
			notes := env.notificationsOf(t, acc)
			require.Len(t, notes, 1)
			assert.Equal(t, models.NotificationTypeStatusRejected, notes[0].Type)
		}
		assert.Equal(t, models.ProfessionalStatusApproved, env.reload(t, b).CurrentStatus())
		assert.Len(t, env.notificationsOf(t, b), 1)
	})

	t.Run("AllSucceed", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.newAdmin(t)
		a := env.submitVet(t, "a@example.com", "Dr. A")
		b := env.submitVendor(t, "b@example.com", "Shop B")

		result, err := env.verification.BatchRecordDecision(ctx, admin.UUID, []uuid.UUID{a.UUID, b.UUID, a.UUID},
			Decision{Status: models.ProfessionalStatusApproved}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{a.UUID, b.UUID}, result.Succeeded)
		assert.Empty(t, result.Failed)
		assert.Len(t, env.notificationsOf(t, a), 1)
	})

	t.Run("UnknownAccountsFailIndividually", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.newAdmin(t)
		a := env.submitVet(t, "a@example.com", "Dr. A")
		missing := uuid.New()

		result, err := env.verification.BatchRecordDecision(ctx, admin.UUID, []uuid.UUID{missing, a.UUID},
			Decision{Status: models.ProfessionalStatusApproved}, testMetadata())
		assert.True(t, IsPartialBatchFailure(err))
		assert.Equal(t, []uuid.UUID{a.UUID}, result.Succeeded)
		assert.True(t, IsAccountNotFound(result.Failed[missing]))
		assert.Equal(t, []uuid.UUID{missing}, result.FailedIDs())
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.newAdmin(t)

		_, err := env.verification.BatchRecordDecision(ctx, admin.UUID, nil,
			Decision{Status: models.ProfessionalStatusApproved}, testMetadata())
		assert.ErrorIs(t, err, ErrEmptyAccountIDs)
	})

	t.Run("TooLarge", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.newAdmin(t)

		ids := make([]uuid.UUID, env.cfg.MaxBatchSize+1)
		for i := range ids {
			ids[i] = uuid.New()
		}
		_, err := env.verification.BatchRecordDecision(ctx, admin.UUID, ids,
			Decision{Status: models.ProfessionalStatusApproved}, testMetadata())
		assert.ErrorIs(t, err, ErrTooManyAccountIDs)
	})
}

func TestSuspendAndReinstate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.newAdmin(t)
	acc := env.submitVet(t, "vet@example.com", "Dr. Aisha Sharma")

	t.Run("PendingCannotBeSuspended", func(t *testing.T) {
		_, err := env.verification.SuspendAccount(ctx, admin.UUID, acc.UUID, ActionDetails{}, testMetadata())
		assert.True(t, IsInvalidTransition(err))
	})

	env.approve(t, admin, acc)

	t.Run("SuspendApproved", func(t *testing.T) {
		got, err := env.verification.SuspendAccount(ctx, admin.UUID, acc.UUID, ActionDetails{
			Reason: utils.ToPtr("Complaints under investigation"),
		}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, models.ProfessionalStatusSuspended, got.CurrentStatus())
		assert.Equal(t, models.ProfessionalStatusSuspended, env.profileOf(t, acc).Status)
	})

	t.Run("SuspendedAccountIsLocked", func(t *testing.T) {
		_, err := env.verification.UpdateProfile(ctx, acc.UUID, validVet(), testMetadata())
		assert.True(t, IsAccountSuspended(err))

		_, err = env.verification.SubmitProfile(ctx, acc.UUID, ProfileSubmission{
			Profile:   validVet(),
			Documents: completedDocs(acc.UUID, models.RoleVeterinarian),
		}, testMetadata())
		assert.True(t, IsInvalidTransition(err))

		_, err = env.verification.RecordDecision(ctx, admin.UUID, acc.UUID,
			Decision{Status: models.ProfessionalStatusApproved}, testMetadata())
		assert.True(t, IsInvalidTransition(err))
	})

	t.Run("Reinstate", func(t *testing.T) {
		got, err := env.verification.ReinstateAccount(ctx, admin.UUID, acc.UUID, ActionDetails{}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, models.ProfessionalStatusApproved, got.CurrentStatus())
		assert.Equal(t, models.ProfessionalStatusApproved, env.profileOf(t, acc).Status)

		actions := []models.ReviewAction{}
		for _, d := range env.decisionsOf(t, acc) {
			actions = append(actions, d.Action)
		}
		assert.Equal(t, []models.ReviewAction{
			models.ReviewActionSubmit,
			models.ReviewActionApprove,
			models.ReviewActionSuspend,
			models.ReviewActionReinstate,
		}, actions)

		// Only the approval produced a notification
		assert.Len(t, env.notificationsOf(t, acc), 1)
	})
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("EditKeepsStatus", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.newAdmin(t)
		acc := env.submitVet(t, "vet@example.com", "Dr. Aisha Sharma")
		env.approve(t, admin, acc)

		vet := validVet()
		vet.ConsultationFee = 750
		vet.Bio = utils.ToPtr("  Fifteen years with small animals  ")
		profile, err := env.verification.UpdateProfile(ctx, acc.UUID, vet, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, models.ProfessionalStatusApproved, profile.Status)

		stored := env.profileOf(t, acc)
		assert.Equal(t, models.ProfessionalStatusApproved, stored.Status)
		variant, err := stored.Variant()
		require.NoError(t, err)
		details := variant.(*models.VeterinarianDetails)
		assert.Equal(t, 750.0, details.ConsultationFee)
		require.NotNil(t, details.Bio)
		assert.Equal(t, "Fifteen years with small animals", *details.Bio)
		assert.Equal(t, models.ProfessionalStatusApproved, env.reload(t, acc).CurrentStatus())
	})

	t.Run("RequiresSubmittedProfile", func(t *testing.T) {
		env := newTestEnv(t)
		acc := env.newAccount(t, "vet@example.com", models.RoleVeterinarian)

		_, err := env.verification.UpdateProfile(ctx, acc.UUID, validVet(), testMetadata())
		assert.True(t, IsProfileNotFound(err))
	})

	t.Run("InvalidEdit", func(t *testing.T) {
		env := newTestEnv(t)
		acc := env.submitVet(t, "vet@example.com", "Dr. Aisha Sharma")

		vet := validVet()
		vet.Clinics = nil
		_, err := env.verification.UpdateProfile(ctx, acc.UUID, vet, testMetadata())
		assert.True(t, IsValidation(err))
	})
}

func TestGetVerificationStatus(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	acc := env.newAccount(t, "vet@example.com", models.RoleVeterinarian)

	t.Run("Unsubmitted", func(t *testing.T) {
		status, err := env.verification.GetVerificationStatus(ctx, acc.UUID)
		require.NoError(t, err)
		assert.Nil(t, status.Status)
		assert.True(t, status.CanSubmit)
		assert.False(t, status.CanEdit)
		assert.Nil(t, status.Profile)
		assert.Empty(t, status.Documents)
	})

	t.Run("Pending", func(t *testing.T) {
		_, err := env.verification.SubmitProfile(ctx, acc.UUID, ProfileSubmission{
			Profile:   validVet(),
			Documents: completedDocs(acc.UUID, models.RoleVeterinarian),
		}, testMetadata())
		require.NoError(t, err)

		status, err := env.verification.GetVerificationStatus(ctx, acc.UUID)
		require.NoError(t, err)
		require.NotNil(t, status.Status)
		assert.Equal(t, "pending", *status.Status)
		assert.False(t, status.CanSubmit)
		assert.True(t, status.CanEdit)
		require.NotNil(t, status.Profile)
		require.NotNil(t, status.Profile.Veterinarian)
		assert.Nil(t, status.Profile.Vendor)
		assert.Len(t, status.Documents, 2)
		require.Len(t, status.Decisions, 1)
		assert.False(t, status.Decisions[0].ByAdmin)
	})

	t.Run("AdminCannotSubmit", func(t *testing.T) {
		admin := env.newAdmin(t)
		status, err := env.verification.GetVerificationStatus(ctx, admin.UUID)
		require.NoError(t, err)
		assert.False(t, status.CanSubmit)
	})
}

func TestReconcileStatuses(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.newAdmin(t)

	approved := env.submitVet(t, "approved@example.com", "Dr. Approved")
	env.approve(t, admin, approved)
	pending := env.submitVendor(t, "pending@example.com", "Pending Shop")

	// Simulate a crash between the two writes
	require.NoError(t, env.accounts.UpdateProfessionalStatus(ctx, approved.ID, models.ProfessionalStatusPending))

	// A profile written without any decision entry
	orphan := env.newAccount(t, "orphan@example.com", models.RoleVeterinarian)
	orphanProfile := &models.ProfessionalProfile{AccountID: orphan.ID, Status: models.ProfessionalStatusRejected}
	require.NoError(t, orphanProfile.SetVariant(validVet()))
	require.NoError(t, env.profiles.Save(ctx, orphanProfile))

	report, err := env.verification.ReconcileStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Checked)
	assert.ElementsMatch(t, []uuid.UUID{approved.UUID, orphan.UUID}, report.Repaired)

	assert.Equal(t, models.ProfessionalStatusApproved, env.reload(t, approved).CurrentStatus())
	assert.Equal(t, models.ProfessionalStatusApproved, env.profileOf(t, approved).Status)
	assert.Equal(t, models.ProfessionalStatusPending, env.reload(t, pending).CurrentStatus())
	assert.Equal(t, models.ProfessionalStatusPending, env.reload(t, orphan).CurrentStatus())
	assert.Equal(t, models.ProfessionalStatusPending, env.profileOf(t, orphan).Status)

	t.Run("SecondRunIsClean", func(t *testing.T) {
		report, err := env.verification.ReconcileStatuses(ctx)
		require.NoError(t, err)
		assert.Empty(t, report.Repaired)
	})
}
