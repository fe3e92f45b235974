package businessflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/amirphl/vetverify/app/dto"
	"github.com/amirphl/vetverify/app/services"
	"github.com/amirphl/vetverify/config"
	"github.com/amirphl/vetverify/logger"
	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/repository"
	"github.com/amirphl/vetverify/utils"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Decision is an admin disposition of a pending account
type Decision struct {
	Status   models.ProfessionalStatus
	Reason   *string
	Comments *string
}

// ActionDetails explains a suspension or a reinstatement
type ActionDetails struct {
	Reason   *string
	Comments *string
}

// ReconcileReport lists the accounts whose stored status disagreed with the decision log
type ReconcileReport struct {
	Checked  int
	Repaired []uuid.UUID
}

// VerificationFlow owns every professional status transition and its side effects
type VerificationFlow interface {
	SubmitProfile(ctx context.Context, accountUUID uuid.UUID, submission ProfileSubmission, metadata *ClientMetadata) (*models.ProfessionalProfile, error)
	UpdateProfile(ctx context.Context, accountUUID uuid.UUID, profile models.ProfileVariant, metadata *ClientMetadata) (*models.ProfessionalProfile, error)
	RecordDecision(ctx context.Context, adminUUID, accountUUID uuid.UUID, decision Decision, metadata *ClientMetadata) (*models.Account, error)
	BatchRecordDecision(ctx context.Context, adminUUID uuid.UUID, accountUUIDs []uuid.UUID, decision Decision, metadata *ClientMetadata) (*BatchDecisionResult, error)
	SuspendAccount(ctx context.Context, adminUUID, accountUUID uuid.UUID, details ActionDetails, metadata *ClientMetadata) (*models.Account, error)
	ReinstateAccount(ctx context.Context, adminUUID, accountUUID uuid.UUID, details ActionDetails, metadata *ClientMetadata) (*models.Account, error)
	GetVerificationStatus(ctx context.Context, accountUUID uuid.UUID) (*dto.VerificationStatusResponse, error)
	ReconcileStatuses(ctx context.Context) (*ReconcileReport, error)
}

// VerificationFlowImpl implements VerificationFlow
type VerificationFlowImpl struct {
	accountRepo  repository.AccountRepository
	profileRepo  repository.ProfessionalProfileRepository
	documentRepo repository.VerificationDocumentRepository
	decisionRepo repository.ReviewDecisionRepository
	auditRepo    repository.AuditLogRepository
	txManager    repository.TxManager
	store        services.DocumentStore
	locker       AccountLocker
	notifier     services.NotificationSink
	cfg          config.VerificationConfig
}

// NewVerificationFlow creates the verification workflow. notifier may be nil.
// Without a document store no submission can reference a document.
func NewVerificationFlow(
	accountRepo repository.AccountRepository,
	profileRepo repository.ProfessionalProfileRepository,
	documentRepo repository.VerificationDocumentRepository,
	decisionRepo repository.ReviewDecisionRepository,
	auditRepo repository.AuditLogRepository,
	txManager repository.TxManager,
	store services.DocumentStore,
	locker AccountLocker,
	notifier services.NotificationSink,
	cfg config.VerificationConfig,
) VerificationFlow {
	if locker == nil {
		locker = NewKeyedAccountLocker()
	}
	if cfg.MinDocumentTypes <= 0 {
		cfg.MinDocumentTypes = utils.MinRequiredDocumentTypes
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = utils.DefaultBatchConcurrency
	}
	return &VerificationFlowImpl{
		accountRepo:  accountRepo,
		profileRepo:  profileRepo,
		documentRepo: documentRepo,
		decisionRepo: decisionRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		store:        store,
		locker:       locker,
		notifier:     notifier,
		cfg:          cfg,
	}
}

// SubmitProfile validates a first submission or a resubmission after rejection and moves the account to pending
func (f *VerificationFlowImpl) SubmitProfile(ctx context.Context, accountUUID uuid.UUID, submission ProfileSubmission, metadata *ClientMetadata) (*models.ProfessionalProfile, error) {
	account, err := loadAccount(ctx, f.accountRepo, accountUUID)
	if err != nil {
		return nil, err
	}

	if err := validateProfile(account.Role, submission.Profile); err != nil {
		profileSubmissions.WithLabelValues(string(account.Role), "invalid").Inc()
		return nil, NewBusinessError("PROFILE_VALIDATION_FAILED", "Profile validation failed", err)
	}
	if err := checkDocuments(account.Role, submission.Documents, f.cfg.MinDocumentTypes); err != nil {
		profileSubmissions.WithLabelValues(string(account.Role), "invalid").Inc()
		if IsValidation(err) {
			return nil, NewBusinessError("DOCUMENT_VALIDATION_FAILED", "Document validation failed", err)
		}
		return nil, NewBusinessError("DOCUMENTS_INCOMPLETE", "Required documents are incomplete", err)
	}
	if f.store == nil {
		return nil, NewBusinessError("STORAGE_UNAVAILABLE", "Document storage is not configured", ErrStorageUnavailable)
	}
	if err := checkDocumentOwnership(account.UUID, submission.Documents, f.store.Owns); err != nil {
		profileSubmissions.WithLabelValues(string(account.Role), "invalid").Inc()
		return nil, NewBusinessError("DOCUMENT_VALIDATION_FAILED", "Document validation failed", err)
	}

	unlock, err := f.locker.Lock(ctx, account.ID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_BUSY", "Account is busy", errors.Join(ErrAccountBusy, err))
	}
	defer unlock()

	var profile *models.ProfessionalProfile
	err = f.txManager.WithinTx(ctx, func(txCtx context.Context) error {
		current, err := f.accountRepo.ByID(txCtx, account.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrAccountNotFound
		}

		from := current.CurrentStatus()
		to, ok := nextStatus(from, models.ReviewActionSubmit)
		if !ok {
			return &InvalidTransitionError{AccountID: accountUUID, From: from, To: to}
		}

		now := utils.UTCNow()
		profile, err = f.profileRepo.ByAccountID(txCtx, current.ID)
		if err != nil {
			return err
		}
		if profile == nil {
			profile = &models.ProfessionalProfile{AccountID: current.ID, Status: to, SubmittedAt: now}
			if err := profile.SetVariant(submission.Profile); err != nil {
				return err
			}
			if err := f.profileRepo.Save(txCtx, profile); err != nil {
				return err
			}
		} else {
			// Resubmission supersedes the profile data
			if err := profile.SetVariant(submission.Profile); err != nil {
				return err
			}
			profile.SubmittedAt = now
			if err := f.profileRepo.Update(txCtx, profile); err != nil {
				return err
			}
			if err := f.profileRepo.UpdateStatus(txCtx, current.ID, to); err != nil {
				return err
			}
			profile.Status = to
		}

		docs := make([]*models.VerificationDocument, 0, len(submission.Documents))
		for _, d := range submission.Documents {
			if !d.Completed() {
				continue
			}
			docs = append(docs, &models.VerificationDocument{
				AccountID:          current.ID,
				DocumentType:       d.Type,
				DocumentURL:        d.URL,
				VerificationStatus: models.DocumentStatusPending,
				ExpiresAt:          utils.TimeToUTCPtr(d.ExpiresAt),
				Checksum:           d.Checksum,
				SizeBytes:          d.SizeBytes,
				ContentType:        d.ContentType,
			})
		}
		if err := f.documentRepo.SaveBatch(txCtx, docs); err != nil {
			return err
		}

		if err := f.accountRepo.UpdateProfessionalStatus(txCtx, current.ID, to); err != nil {
			return err
		}

		return f.decisionRepo.Save(txCtx, &models.ReviewDecision{
			AccountID:      current.ID,
			Action:         models.ReviewActionSubmit,
			ResultStatus:   to,
			PreviousStatus: statusPtrString(current.ProfessionalStatus),
			DecidedAt:      now,
		})
	})

	profileSubmissions.WithLabelValues(string(account.Role), resultLabel(err)).Inc()
	if err != nil {
		errMsg := fmt.Sprintf("Profile submission failed: %s", err.Error())
		_ = createAuditLog(ctx, f.auditRepo, auditEntry{
			accountID: &account.ID, action: models.AuditActionProfileSubmitFailed,
			description: errMsg, errorMsg: &errMsg,
		}, metadata)
		return nil, wrapTransitionError(err, "PROFILE_SUBMIT_FAILED", "Profile submission failed")
	}

	msg := fmt.Sprintf("Profile submitted for verification: %s", account.UUID)
	_ = createAuditLog(ctx, f.auditRepo, auditEntry{
		accountID: &account.ID, action: models.AuditActionProfileSubmitted,
		description: msg, success: true,
		extra: map[string]any{"role": account.Role, "documents": len(submission.Documents)},
	}, metadata)

	f.notifyAdminsOfApplicant(ctx, account, profile)

	return profile, nil
}

// UpdateProfile lets a professional edit profile data without touching the verification status
func (f *VerificationFlowImpl) UpdateProfile(ctx context.Context, accountUUID uuid.UUID, variant models.ProfileVariant, metadata *ClientMetadata) (*models.ProfessionalProfile, error) {
	account, err := loadAccount(ctx, f.accountRepo, accountUUID)
	if err != nil {
		return nil, err
	}
	if err := validateProfile(account.Role, variant); err != nil {
		return nil, NewBusinessError("PROFILE_VALIDATION_FAILED", "Profile validation failed", err)
	}

	unlock, err := f.locker.Lock(ctx, account.ID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_BUSY", "Account is busy", errors.Join(ErrAccountBusy, err))
	}
	defer unlock()

	var profile *models.ProfessionalProfile
	err = f.txManager.WithinTx(ctx, func(txCtx context.Context) error {
		current, err := f.accountRepo.ByID(txCtx, account.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrAccountNotFound
		}
		status := current.CurrentStatus()
		if status == models.ProfessionalStatusSuspended {
			return ErrAccountSuspended
		}
		if !canSelfEdit(status) {
			return ErrProfileNotFound
		}

		profile, err = f.profileRepo.ByAccountID(txCtx, current.ID)
		if err != nil {
			return err
		}
		if profile == nil {
			return ErrProfileNotFound
		}
		if err := profile.SetVariant(variant); err != nil {
			return err
		}
		return f.profileRepo.Update(txCtx, profile)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Profile update failed: %s", err.Error())
		_ = createAuditLog(ctx, f.auditRepo, auditEntry{
			accountID: &account.ID, action: models.AuditActionProfileUpdated,
			description: errMsg, errorMsg: &errMsg,
		}, metadata)
		switch {
		case errors.Is(err, ErrAccountSuspended):
			return nil, NewBusinessError("ACCOUNT_SUSPENDED", "Suspended accounts cannot edit their profile", err)
		case errors.Is(err, ErrProfileNotFound):
			return nil, NewBusinessError("PROFILE_NOT_FOUND", "Submit a profile before editing it", err)
		}
		return nil, wrapTransitionError(err, "PROFILE_UPDATE_FAILED", "Profile update failed")
	}

	_ = createAuditLog(ctx, f.auditRepo, auditEntry{
		accountID: &account.ID, action: models.AuditActionProfileUpdated,
		description: "Profile updated", success: true,
	}, metadata)

	return profile, nil
}

// RecordDecision approves or rejects one pending account
func (f *VerificationFlowImpl) RecordDecision(ctx context.Context, adminUUID, accountUUID uuid.UUID, decision Decision, metadata *ClientMetadata) (*models.Account, error) {
	action, ok := actionForDecision(decision.Status)
	if !ok {
		return nil, NewBusinessError("INVALID_DECISION", "Decision must be approved or rejected", ErrInvalidDecision)
	}
	admin, err := requireAdmin(ctx, f.accountRepo, adminUUID)
	if err != nil {
		return nil, err
	}
	return f.decide(ctx, admin, accountUUID, action, decision.Reason, decision.Comments, metadata)
}

// BatchRecordDecision applies one decision to every account independently
func (f *VerificationFlowImpl) BatchRecordDecision(ctx context.Context, adminUUID uuid.UUID, accountUUIDs []uuid.UUID, decision Decision, metadata *ClientMetadata) (*BatchDecisionResult, error) {
	ids := utils.UniqueUUIDs(accountUUIDs)
	if len(ids) == 0 {
		return nil, NewBusinessError("ACCOUNT_IDS_REQUIRED", "At least one account id is required", ErrEmptyAccountIDs)
	}
	if f.cfg.MaxBatchSize > 0 && len(ids) > f.cfg.MaxBatchSize {
		return nil, NewBusinessErrorf("TOO_MANY_ACCOUNT_IDS", "At most %d accounts can be decided at once", ErrTooManyAccountIDs, f.cfg.MaxBatchSize)
	}
	action, ok := actionForDecision(decision.Status)
	if !ok {
		return nil, NewBusinessError("INVALID_DECISION", "Decision must be approved or rejected", ErrInvalidDecision)
	}
	admin, err := requireAdmin(ctx, f.accountRepo, adminUUID)
	if err != nil {
		return nil, err
	}

	batchDecisionSize.Observe(float64(len(ids)))

	outcomes := make([]error, len(ids))
	var g errgroup.Group
	g.SetLimit(f.cfg.BatchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			_, outcomes[i] = f.decide(ctx, admin, id, action, decision.Reason, decision.Comments, metadata)
			return nil
		})
	}
	_ = g.Wait()

	result := &BatchDecisionResult{Succeeded: []uuid.UUID{}, Failed: make(map[uuid.UUID]error)}
	for i, id := range ids {
		if outcomes[i] != nil {
			result.Failed[id] = outcomes[i]
		} else {
			result.Succeeded = append(result.Succeeded, id)
		}
	}

	msg := fmt.Sprintf("Batch %s: %d succeeded, %d failed", action, len(result.Succeeded), len(result.Failed))
	_ = createAuditLog(ctx, f.auditRepo, auditEntry{
		adminID: &admin.ID, action: models.AuditActionBatchDecision,
		description: msg, success: len(result.Failed) == 0,
		extra: map[string]any{"requested": len(ids), "failed": result.FailedIDs()},
	}, metadata)

	if len(result.Failed) > 0 {
		return result, NewBusinessError("PARTIAL_BATCH_FAILURE", msg, &PartialBatchFailure{Result: result})
	}
	return result, nil
}

// SuspendAccount moves an approved account to suspended
func (f *VerificationFlowImpl) SuspendAccount(ctx context.Context, adminUUID, accountUUID uuid.UUID, details ActionDetails, metadata *ClientMetadata) (*models.Account, error) {
	admin, err := requireAdmin(ctx, f.accountRepo, adminUUID)
	if err != nil {
		return nil, err
	}
	return f.decide(ctx, admin, accountUUID, models.ReviewActionSuspend, details.Reason, details.Comments, metadata)
}

// ReinstateAccount moves a suspended account back to approved
func (f *VerificationFlowImpl) ReinstateAccount(ctx context.Context, adminUUID, accountUUID uuid.UUID, details ActionDetails, metadata *ClientMetadata) (*models.Account, error) {
	admin, err := requireAdmin(ctx, f.accountRepo, adminUUID)
	if err != nil {
		return nil, err
	}
	return f.decide(ctx, admin, accountUUID, models.ReviewActionReinstate, details.Reason, details.Comments, metadata)
}

type transitionResult struct {
	account  *models.Account
	profile  *models.ProfessionalProfile
	decision *models.ReviewDecision
}

// decide applies one admin action to one account under the account lock.
// Account status, profile status and the decision entry are written in one transaction.
func (f *VerificationFlowImpl) decide(ctx context.Context, admin *models.Account, accountUUID uuid.UUID, action models.ReviewAction, reason, comments *string, metadata *ClientMetadata) (*models.Account, error) {
	account, err := loadAccount(ctx, f.accountRepo, accountUUID)
	if err != nil {
		reviewDecisions.WithLabelValues(string(action), "error").Inc()
		return nil, err
	}

	res, err := f.transition(ctx, account.ID, accountUUID, action, &admin.ID, reason, comments)
	reviewDecisions.WithLabelValues(string(action), resultLabel(err)).Inc()
	if err != nil {
		errMsg := fmt.Sprintf("%s of account %s failed: %s", action, accountUUID, err.Error())
		_ = createAuditLog(ctx, f.auditRepo, auditEntry{
			accountID: &account.ID, adminID: &admin.ID, action: models.AuditActionDecisionFailed,
			description: errMsg, errorMsg: &errMsg,
		}, metadata)
		return nil, wrapTransitionError(err, "DECISION_FAILED", "Failed to record decision")
	}

	auditAction := models.AuditActionDecisionRecorded
	switch action {
	case models.ReviewActionSuspend:
		auditAction = models.AuditActionAccountSuspended
	case models.ReviewActionReinstate:
		auditAction = models.AuditActionAccountReinstated
	}
	msg := fmt.Sprintf("Account %s moved to %s by %s", accountUUID, res.decision.ResultStatus, action)
	_ = createAuditLog(ctx, f.auditRepo, auditEntry{
		accountID: &account.ID, adminID: &admin.ID, action: auditAction,
		description: msg, success: true,
		extra: map[string]any{"decision_id": res.decision.ID, "reason": utils.Deref(reason)},
	}, metadata)

	switch action {
	case models.ReviewActionApprove:
		f.notifyStatusChange(ctx, res.account, models.NotificationTypeStatusApproved,
			"Congratulations! Your professional account has been verified and approved.")
	case models.ReviewActionReject:
		message := "Your professional verification was not approved."
		if r := utils.Deref(reason); r != "" {
			message = fmt.Sprintf("Your professional verification was not approved. Reason: %s", r)
		}
		f.notifyStatusChange(ctx, res.account, models.NotificationTypeStatusRejected, message)
	}

	return res.account, nil
}

func (f *VerificationFlowImpl) transition(ctx context.Context, accountID uint, accountUUID uuid.UUID, action models.ReviewAction, adminID *uint, reason, comments *string) (*transitionResult, error) {
	unlock, err := f.locker.Lock(ctx, accountID)
	if err != nil {
		return nil, errors.Join(ErrAccountBusy, err)
	}
	defer unlock()

	var out transitionResult
	err = f.txManager.WithinTx(ctx, func(txCtx context.Context) error {
		current, err := f.accountRepo.ByID(txCtx, accountID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrAccountNotFound
		}

		from := current.CurrentStatus()
		to, ok := nextStatus(from, action)
		if !ok {
			return &InvalidTransitionError{AccountID: accountUUID, From: from, To: to}
		}

		profile, err := f.profileRepo.ByAccountID(txCtx, accountID)
		if err != nil {
			return err
		}
		if profile == nil {
			return ErrProfileNotFound
		}

		if err := f.accountRepo.UpdateProfessionalStatus(txCtx, accountID, to); err != nil {
			return err
		}
		if err := f.profileRepo.UpdateStatus(txCtx, accountID, to); err != nil {
			return err
		}
		if action == models.ReviewActionApprove {
			if _, err := f.documentRepo.UpdateStatusByAccount(txCtx, accountID, models.DocumentStatusPending, models.DocumentStatusApproved, adminID); err != nil {
				return err
			}
		}

		decision := &models.ReviewDecision{
			AccountID:      accountID,
			Action:         action,
			ResultStatus:   to,
			PreviousStatus: statusPtrString(current.ProfessionalStatus),
			Reason:         reason,
			Comments:       comments,
			AdminID:        adminID,
			DecidedAt:      utils.UTCNow(),
		}
		if err := f.decisionRepo.Save(txCtx, decision); err != nil {
			return err
		}

		current.ProfessionalStatus = &to
		profile.Status = to
		out = transitionResult{account: current, profile: profile, decision: decision}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetVerificationStatus returns what a professional sees about their own verification
func (f *VerificationFlowImpl) GetVerificationStatus(ctx context.Context, accountUUID uuid.UUID) (*dto.VerificationStatusResponse, error) {
	account, err := loadAccount(ctx, f.accountRepo, accountUUID)
	if err != nil {
		return nil, err
	}

	profile, err := f.profileRepo.ByAccountID(ctx, account.ID)
	if err != nil {
		return nil, NewBusinessError("PROFILE_FETCH_FAILED", "Failed to fetch profile", err)
	}
	docs, err := f.documentRepo.ListByAccount(ctx, account.ID)
	if err != nil {
		return nil, NewBusinessError("DOCUMENT_FETCH_FAILED", "Failed to fetch documents", err)
	}
	decisions, err := f.decisionRepo.ListByAccount(ctx, account.ID)
	if err != nil {
		return nil, NewBusinessError("DECISION_FETCH_FAILED", "Failed to fetch decisions", err)
	}

	status := account.CurrentStatus()
	_, canSubmit := nextStatus(status, models.ReviewActionSubmit)
	resp := &dto.VerificationStatusResponse{
		AccountUUID: account.UUID.String(),
		Role:        string(account.Role),
		Status:      statusPtrString(account.ProfessionalStatus),
		CanSubmit:   canSubmit && account.Role.IsProfessional(),
		CanEdit:     profile != nil && canSelfEdit(status),
		Documents:   make([]dto.VerificationDocumentDTO, 0, len(docs)),
		Decisions:   make([]dto.ReviewDecisionDTO, 0, len(decisions)),
	}
	if profile != nil {
		p := ToProfileDTO(profile, account.UUID)
		resp.Profile = &p
	}
	for _, d := range docs {
		resp.Documents = append(resp.Documents, ToDocumentDTO(d))
	}
	for _, d := range decisions {
		resp.Decisions = append(resp.Decisions, ToDecisionDTO(d))
	}
	return resp, nil
}

const reconcilePageSize = 200

// ReconcileStatuses repairs accounts and profiles whose status disagrees with the latest decision.
// Accounts with a profile but no decision are considered pending.
func (f *VerificationFlowImpl) ReconcileStatuses(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{Repaired: []uuid.UUID{}}
	var errs []error

	for offset := 0; ; offset += reconcilePageSize {
		profiles, err := f.profileRepo.ByFilter(ctx, models.ProfessionalProfileFilter{}, "id ASC", reconcilePageSize, offset)
		if err != nil {
			return report, NewBusinessError("RECONCILE_FAILED", "Failed to list profiles", err)
		}
		for _, p := range profiles {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			report.Checked++
			repaired, accountUUID, err := f.reconcileAccount(ctx, p.AccountID)
			if err != nil {
				errs = append(errs, fmt.Errorf("account %d: %w", p.AccountID, err))
				continue
			}
			if repaired {
				report.Repaired = append(report.Repaired, accountUUID)
			}
		}
		if len(profiles) < reconcilePageSize {
			break
		}
	}

	if len(errs) > 0 {
		return report, NewBusinessError("RECONCILE_FAILED", "Some accounts could not be reconciled", errors.Join(errs...))
	}
	return report, nil
}

func (f *VerificationFlowImpl) reconcileAccount(ctx context.Context, accountID uint) (bool, uuid.UUID, error) {
	unlock, err := f.locker.Lock(ctx, accountID)
	if err != nil {
		return false, uuid.Nil, err
	}
	defer unlock()

	var (
		repaired    bool
		accountUUID uuid.UUID
		from, want  models.ProfessionalStatus
	)
	err = f.txManager.WithinTx(ctx, func(txCtx context.Context) error {
		account, err := f.accountRepo.ByID(txCtx, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrAccountNotFound
		}
		accountUUID = account.UUID

		profile, err := f.profileRepo.ByAccountID(txCtx, accountID)
		if err != nil {
			return err
		}
		if profile == nil {
			return ErrProfileNotFound
		}

		latest, err := f.decisionRepo.LatestByAccount(txCtx, accountID)
		if err != nil {
			return err
		}
		want = models.ProfessionalStatusPending
		if latest != nil {
			want = latest.ResultStatus
		}

		from = account.CurrentStatus()
		if from != want {
			if err := f.accountRepo.UpdateProfessionalStatus(txCtx, accountID, want); err != nil {
				return err
			}
			repaired = true
		}
		if profile.Status != want {
			if err := f.profileRepo.UpdateStatus(txCtx, accountID, want); err != nil {
				return err
			}
			repaired = true
		}
		return nil
	})
	if err != nil {
		return false, accountUUID, err
	}

	if repaired {
		reconciliationRepairs.Inc()
		msg := fmt.Sprintf("Status of account %s reconciled to %s", accountUUID, want)
		_ = createAuditLog(ctx, f.auditRepo, auditEntry{
			accountID: &accountID, action: models.AuditActionStatusReconciled,
			description: msg, success: true,
			extra: map[string]any{"account_status": string(from), "status": string(want)},
		}, nil)
		logger.WithContext(ctx).Warn("professional status repaired from decision log",
			"account_uuid", accountUUID.String(), "from", string(from), "to", string(want))
	}
	return repaired, accountUUID, nil
}

// notifyStatusChange sends the single outcome notification of a decision.
// The in-app entry is always stored; email follows the account preferences.
func (f *VerificationFlowImpl) notifyStatusChange(ctx context.Context, account *models.Account, kind models.NotificationType, message string) {
	f.dispatch(ctx, services.NotificationMessage{
		AccountID:   account.ID,
		AccountUUID: account.UUID,
		Email:       account.Email,
		Message:     message,
		Type:        kind,
		Link:        joinLink(f.cfg.AppBaseURL, "/professional/verification"),
		InApp:       true,
		SendEmail:   account.NotificationPreferences.Email.StatusChanges,
	})
}

// notifyAdminsOfApplicant tells every admin that a profile awaits review
func (f *VerificationFlowImpl) notifyAdminsOfApplicant(ctx context.Context, account *models.Account, profile *models.ProfessionalProfile) {
	if f.notifier == nil {
		return
	}
	role := models.RoleAdmin
	admins, err := f.accountRepo.ByFilter(ctx, models.AccountFilter{Role: &role}, "id ASC", 0, 0)
	if err != nil {
		logger.WithContext(ctx).Warn("failed to list admins for new applicant notification", "error", err)
		return
	}

	message := fmt.Sprintf("New %s application from %s is awaiting review", account.Role, profile.DisplayName)
	link := joinLink(f.cfg.AppBaseURL, "/admin/verifications/"+account.UUID.String())

	var wg sync.WaitGroup
	for _, admin := range admins {
		prefs := admin.NotificationPreferences
		if !prefs.InApp.NewApplicants && !prefs.Email.NewApplicants {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.dispatch(ctx, services.NotificationMessage{
				AccountID:   admin.ID,
				AccountUUID: admin.UUID,
				Email:       admin.Email,
				Message:     message,
				Type:        models.NotificationTypeNewApplicant,
				Link:        link,
				InApp:       prefs.InApp.NewApplicants,
				SendEmail:   prefs.Email.NewApplicants,
			})
		}()
	}
	wg.Wait()
}

// dispatch hands a message to the sink once. Failures are logged, never retried.
func (f *VerificationFlowImpl) dispatch(ctx context.Context, msg services.NotificationMessage) {
	if f.notifier == nil {
		return
	}
	if err := f.notifier.Notify(context.WithoutCancel(ctx), msg); err != nil {
		logger.WithContext(ctx).Warn("notification delivery failed",
			"account_id", msg.AccountID, "type", string(msg.Type), "error", err)
	}
}

// loadAccount resolves an account by its identity provider id
func loadAccount(ctx context.Context, accountRepo repository.AccountRepository, accountUUID uuid.UUID) (*models.Account, error) {
	if accountUUID == uuid.Nil {
		return nil, NewBusinessError("INVALID_ACCOUNT_ID", "Account id is required", ErrInvalidAccountID)
	}
	account, err := accountRepo.ByUUID(ctx, accountUUID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_FETCH_FAILED", "Failed to fetch account", err)
	}
	if account == nil {
		return nil, NewBusinessErrorf("ACCOUNT_NOT_FOUND", "Account %s not found", ErrAccountNotFound, accountUUID)
	}
	return account, nil
}

// requireAdmin resolves the acting admin
func requireAdmin(ctx context.Context, accountRepo repository.AccountRepository, adminUUID uuid.UUID) (*models.Account, error) {
	admin, err := loadAccount(ctx, accountRepo, adminUUID)
	if err != nil {
		if IsAccountNotFound(err) {
			return nil, NewBusinessError("ADMIN_REQUIRED", "Admin privileges required", ErrAdminRequired)
		}
		return nil, err
	}
	if admin.Role != models.RoleAdmin {
		return nil, NewBusinessError("ADMIN_REQUIRED", "Admin privileges required", ErrAdminRequired)
	}
	return admin, nil
}

// wrapTransitionError maps errors raised inside a transition to business errors
func wrapTransitionError(err error, code, message string) error {
	var (
		be *BusinessError
		te *InvalidTransitionError
	)
	switch {
	case errors.As(err, &be):
		return err
	case errors.As(err, &te):
		return NewBusinessError("INVALID_STATUS_TRANSITION", te.Error(), err)
	case errors.Is(err, ErrAccountNotFound):
		return NewBusinessError("ACCOUNT_NOT_FOUND", "Account not found", err)
	case errors.Is(err, ErrProfileNotFound):
		return NewBusinessError("PROFILE_NOT_FOUND", "Professional profile not found", err)
	case errors.Is(err, ErrAccountBusy):
		return NewBusinessError("ACCOUNT_BUSY", "Another decision for this account is in progress", err)
	default:
		return NewBusinessError(code, message, err)
	}
}
