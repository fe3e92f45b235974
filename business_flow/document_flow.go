package businessflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/amirphl/vetverify/app/dto"
	"github.com/amirphl/vetverify/app/services"
	"github.com/amirphl/vetverify/config"
	"github.com/amirphl/vetverify/logger"
	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/repository"
	"github.com/amirphl/vetverify/utils"
	"github.com/google/uuid"
)

var allowedDocumentExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".pdf":  "application/pdf",
}

// DocumentFile is a file received from a professional
type DocumentFile struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// DocumentFlow handles verification document files and per-document review
type DocumentFlow interface {
	Upload(ctx context.Context, accountUUID uuid.UUID, file DocumentFile, onProgress services.ProgressFunc, metadata *ClientMetadata) (*dto.DocumentUploadResponse, error)
	Review(ctx context.Context, adminUUID uuid.UUID, documentID uint, status models.DocumentVerificationStatus, reason *string, metadata *ClientMetadata) (*models.VerificationDocument, error)
	SignedLink(ctx context.Context, requesterUUID uuid.UUID, documentID uint) (*dto.DocumentLinkResponse, error)
	SendExpiryReminders(ctx context.Context) (int, error)
}

// DocumentFlowImpl implements DocumentFlow
type DocumentFlowImpl struct {
	accountRepo  repository.AccountRepository
	documentRepo repository.VerificationDocumentRepository
	auditRepo    repository.AuditLogRepository
	store        services.DocumentStore
	locker       AccountLocker
	notifier     services.NotificationSink
	cfg          config.VerificationConfig
	linkTTL      time.Duration
}

// NewDocumentFlow creates the document flow. store and notifier may be nil.
func NewDocumentFlow(
	accountRepo repository.AccountRepository,
	documentRepo repository.VerificationDocumentRepository,
	auditRepo repository.AuditLogRepository,
	store services.DocumentStore,
	locker AccountLocker,
	notifier services.NotificationSink,
	cfg config.VerificationConfig,
	linkTTL time.Duration,
) DocumentFlow {
	if locker == nil {
		locker = NewKeyedAccountLocker()
	}
	if cfg.MaxDocumentSize <= 0 {
		cfg.MaxDocumentSize = utils.MaxDocumentSize
	}
	if cfg.ReminderWindow <= 0 {
		cfg.ReminderWindow = utils.DocumentReminderWindow
	}
	return &DocumentFlowImpl{
		accountRepo:  accountRepo,
		documentRepo: documentRepo,
		auditRepo:    auditRepo,
		store:        store,
		locker:       locker,
		notifier:     notifier,
		cfg:          cfg,
		linkTTL:      linkTTL,
	}
}

// Upload stores a document file and returns the URL to pass back on submission
func (f *DocumentFlowImpl) Upload(ctx context.Context, accountUUID uuid.UUID, file DocumentFile, onProgress services.ProgressFunc, metadata *ClientMetadata) (*dto.DocumentUploadResponse, error) {
	if f.store == nil {
		return nil, NewBusinessError("STORAGE_UNAVAILABLE", "Document storage is not configured", ErrStorageUnavailable)
	}
	account, err := loadAccount(ctx, f.accountRepo, accountUUID)
	if err != nil {
		return nil, err
	}
	if !account.Role.IsProfessional() {
		return nil, NewBusinessError("NOT_PROFESSIONAL", "Only veterinarians and vendors upload verification documents", ErrNotProfessional)
	}
	if account.HasStatus(models.ProfessionalStatusSuspended) {
		return nil, NewBusinessError("ACCOUNT_SUSPENDED", "Suspended accounts cannot upload documents", ErrAccountSuspended)
	}

	contentType, err := f.checkFile(file)
	if err != nil {
		return nil, err
	}

	var last services.UploadProgress
	result, err := f.store.Upload(ctx, account.UUID, services.UploadInput{
		FileName:    file.FileName,
		ContentType: contentType,
		Size:        file.Size,
		Body:        file.Body,
	}, func(p services.UploadProgress) {
		last = p
		if onProgress != nil {
			onProgress(p)
		}
	})
	if err != nil {
		errMsg := fmt.Sprintf("Upload of %s failed: %s", file.FileName, err.Error())
		_ = createAuditLog(ctx, f.auditRepo, auditEntry{
			accountID: &account.ID, action: models.AuditActionDocumentUploaded,
			description: errMsg, errorMsg: &errMsg,
		}, metadata)
		return nil, NewBusinessError("UPLOAD_FAILED", "Document upload failed, please retry", err)
	}

	_ = createAuditLog(ctx, f.auditRepo, auditEntry{
		accountID: &account.ID, action: models.AuditActionDocumentUploaded,
		description: fmt.Sprintf("Document uploaded: %s", result.ObjectKey), success: true,
		extra: map[string]any{"size": result.Size, "content_type": result.ContentType},
	}, metadata)

	progress := last.Percent
	if result.Size > 0 && progress < 100 {
		progress = 100
	}
	return &dto.DocumentUploadResponse{
		URL:         result.URL,
		ObjectKey:   result.ObjectKey,
		SizeBytes:   result.Size,
		Checksum:    result.Checksum,
		ContentType: result.ContentType,
		Progress:    progress,
	}, nil
}

func (f *DocumentFlowImpl) checkFile(file DocumentFile) (string, error) {
	if file.Body == nil || file.Size == 0 {
		return "", NewBusinessError("EMPTY_FILE", "File is empty", ErrEmptyFile)
	}
	if file.Size > f.cfg.MaxDocumentSize {
		return "", NewBusinessErrorf("FILE_TOO_LARGE", "File must be at most %d MB", ErrFileTooLarge, f.cfg.MaxDocumentSize/(1024*1024))
	}
	ext := strings.ToLower(filepath.Ext(file.FileName))
	contentType, ok := allowedDocumentExtensions[ext]
	if !ok {
		return "", NewBusinessError("UNSUPPORTED_FILE_TYPE", "Only jpg, jpeg, png and pdf files are accepted", ErrUnsupportedFileType)
	}
	if ct := strings.TrimSpace(file.ContentType); ct != "" && ct != "application/octet-stream" {
		contentType = ct
	}
	return contentType, nil
}

// Review approves or rejects one document. A rejection needs a reason.
func (f *DocumentFlowImpl) Review(ctx context.Context, adminUUID uuid.UUID, documentID uint, status models.DocumentVerificationStatus, reason *string, metadata *ClientMetadata) (*models.VerificationDocument, error) {
	switch status {
	case models.DocumentStatusApproved:
		reason = nil
	case models.DocumentStatusRejected:
		reason = trimPtr(reason)
		if reason == nil {
			return nil, NewBusinessError("REASON_REQUIRED", "A rejection reason is required",
				newValidationError("reason", "reason is required when rejecting a document"))
		}
	default:
		return nil, NewBusinessError("INVALID_DECISION", "Decision must be approved or rejected", ErrInvalidDecision)
	}

	admin, err := requireAdmin(ctx, f.accountRepo, adminUUID)
	if err != nil {
		return nil, err
	}
	doc, err := f.documentRepo.ByID(ctx, documentID)
	if err != nil {
		return nil, NewBusinessError("DOCUMENT_FETCH_FAILED", "Failed to fetch document", err)
	}
	if doc == nil {
		return nil, NewBusinessErrorf("DOCUMENT_NOT_FOUND", "Document %d not found", ErrDocumentNotFound, documentID)
	}

	unlock, err := f.locker.Lock(ctx, doc.AccountID)
	if err != nil {
		return nil, NewBusinessError("ACCOUNT_BUSY", "Account is busy", errors.Join(ErrAccountBusy, err))
	}
	defer unlock()

	if err := f.documentRepo.UpdateVerificationStatus(ctx, doc.ID, status, reason, &admin.ID); err != nil {
		errMsg := fmt.Sprintf("Review of document %d failed: %s", doc.ID, err.Error())
		_ = createAuditLog(ctx, f.auditRepo, auditEntry{
			accountID: &doc.AccountID, adminID: &admin.ID, action: models.AuditActionDocumentReviewed,
			description: errMsg, errorMsg: &errMsg,
		}, metadata)
		return nil, NewBusinessError("DOCUMENT_REVIEW_FAILED", "Failed to review document", err)
	}

	_ = createAuditLog(ctx, f.auditRepo, auditEntry{
		accountID: &doc.AccountID, adminID: &admin.ID, action: models.AuditActionDocumentReviewed,
		description: fmt.Sprintf("Document %d marked %s", doc.ID, status), success: true,
		extra: map[string]any{"document_type": doc.DocumentType, "reason": utils.Deref(reason)},
	}, metadata)

	updated, err := f.documentRepo.ByID(ctx, doc.ID)
	if err != nil || updated == nil {
		doc.VerificationStatus = status
		doc.RejectionReason = reason
		doc.ReviewedBy = &admin.ID
		return doc, nil
	}
	return updated, nil
}

// SignedLink returns a temporary download link. Only the owner and admins may fetch it.
func (f *DocumentFlowImpl) SignedLink(ctx context.Context, requesterUUID uuid.UUID, documentID uint) (*dto.DocumentLinkResponse, error) {
	if f.store == nil {
		return nil, NewBusinessError("STORAGE_UNAVAILABLE", "Document storage is not configured", ErrStorageUnavailable)
	}
	requester, err := loadAccount(ctx, f.accountRepo, requesterUUID)
	if err != nil {
		return nil, err
	}
	doc, err := f.documentRepo.ByID(ctx, documentID)
	if err != nil {
		return nil, NewBusinessError("DOCUMENT_FETCH_FAILED", "Failed to fetch document", err)
	}
	if doc == nil || (doc.AccountID != requester.ID && requester.Role != models.RoleAdmin) {
		return nil, NewBusinessErrorf("DOCUMENT_NOT_FOUND", "Document %d not found", ErrDocumentNotFound, documentID)
	}

	link, err := f.store.SignedURL(ctx, doc.DocumentURL)
	if err != nil {
		return nil, NewBusinessError("SIGN_URL_FAILED", "Failed to create download link", err)
	}
	return &dto.DocumentLinkResponse{URL: link, ExpiresAt: utils.UTCNowAdd(f.linkTTL)}, nil
}

const reminderBatchSize = 200

// SendExpiryReminders notifies owners of documents expiring within the reminder window, once per document
func (f *DocumentFlowImpl) SendExpiryReminders(ctx context.Context) (int, error) {
	before := utils.UTCNowAdd(f.cfg.ReminderWindow)
	accounts := make(map[uint]*models.Account)
	sent := 0

	for {
		docs, err := f.documentRepo.ListExpiringBefore(ctx, before, reminderBatchSize)
		if err != nil {
			return sent, NewBusinessError("REMINDER_FETCH_FAILED", "Failed to list expiring documents", err)
		}
		if len(docs) == 0 {
			return sent, nil
		}

		marked := 0
		for _, d := range docs {
			if err := ctx.Err(); err != nil {
				return sent, err
			}
			account, ok := accounts[d.AccountID]
			if !ok {
				account, err = f.accountRepo.ByID(ctx, d.AccountID)
				if err != nil {
					return sent, NewBusinessError("ACCOUNT_FETCH_FAILED", "Failed to fetch account", err)
				}
				accounts[d.AccountID] = account
			}

			if err := f.documentRepo.MarkReminderSent(ctx, d.ID, utils.UTCNow()); err != nil {
				logger.WithContext(ctx).Warn("failed to mark document reminder", "document_id", d.ID, "error", err)
				continue
			}
			marked++
			if account == nil {
				continue
			}

			f.remind(ctx, account, d)
			sent++
		}
		if marked == 0 {
			return sent, NewBusinessError("REMINDER_MARK_FAILED", "Failed to record sent reminders", nil)
		}
	}
}

func (f *DocumentFlowImpl) remind(ctx context.Context, account *models.Account, d *models.VerificationDocument) {
	if f.notifier == nil {
		return
	}
	label := strings.ReplaceAll(string(d.DocumentType), "_", " ")
	message := fmt.Sprintf("Your %s document expires in %d days (on %s). Upload a renewed copy to stay verified.",
		label, utils.DaysUntil(*d.ExpiresAt), d.ExpiresAt.Format("2006-01-02"))
	err := f.notifier.Notify(context.WithoutCancel(ctx), services.NotificationMessage{
		AccountID:   account.ID,
		AccountUUID: account.UUID,
		Email:       account.Email,
		Message:     message,
		Type:        models.NotificationTypeDocumentReminder,
		Link:        joinLink(f.cfg.AppBaseURL, "/professional/verification"),
		InApp:       true,
		SendEmail:   account.NotificationPreferences.Email.StatusChanges,
	})
	if err != nil {
		logger.WithContext(ctx).Warn("document reminder delivery failed", "document_id", d.ID, "error", err)
	}
}
