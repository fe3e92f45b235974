// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/vetverify/models"
	"github.com/google/uuid"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// TxManager runs a function inside a unit of work. Repositories called with the
// context passed to fn take part in the same transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// AccountRepository defines operations for accounts
type AccountRepository interface {
	Repository[models.Account, models.AccountFilter]
	ByUUID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	ByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdateProfessionalStatus(ctx context.Context, accountID uint, status models.ProfessionalStatus) error
	UpdateNotificationPreferences(ctx context.Context, accountID uint, prefs models.NotificationPreferences) error
}

// ProfessionalProfileRepository defines operations for professional profiles
type ProfessionalProfileRepository interface {
	Repository[models.ProfessionalProfile, models.ProfessionalProfileFilter]
	ByAccountID(ctx context.Context, accountID uint) (*models.ProfessionalProfile, error)
	ByAccountIDs(ctx context.Context, accountIDs []uint) ([]*models.ProfessionalProfile, error)
	Update(ctx context.Context, profile *models.ProfessionalProfile) error
	UpdateStatus(ctx context.Context, accountID uint, status models.ProfessionalStatus) error
}

// VerificationDocumentRepository defines operations for verification documents
type VerificationDocumentRepository interface {
	Repository[models.VerificationDocument, models.VerificationDocumentFilter]
	ListByAccount(ctx context.Context, accountID uint) ([]*models.VerificationDocument, error)
	UpdateVerificationStatus(ctx context.Context, id uint, status models.DocumentVerificationStatus, reason *string, reviewerID *uint) error
	UpdateStatusByAccount(ctx context.Context, accountID uint, from, to models.DocumentVerificationStatus, reviewerID *uint) (int64, error)
	ListExpiringBefore(ctx context.Context, before time.Time, limit int) ([]*models.VerificationDocument, error)
	MarkReminderSent(ctx context.Context, id uint, at time.Time) error
}

// ReviewDecisionRepository defines operations for the append-only decision log
type ReviewDecisionRepository interface {
	Repository[models.ReviewDecision, models.ReviewDecisionFilter]
	ListByAccount(ctx context.Context, accountID uint) ([]*models.ReviewDecision, error)
	LatestByAccount(ctx context.Context, accountID uint) (*models.ReviewDecision, error)
}

// NotificationRepository defines operations for in-app notifications
type NotificationRepository interface {
	Repository[models.Notification, models.NotificationFilter]
	ListByUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, userID, notificationID uint) (bool, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
}

// ReviewQueueRepository projects accounts joined with their profiles.
// Entries are ordered by submission time, then account id.
type ReviewQueueRepository interface {
	List(ctx context.Context, filter models.ReviewQueueFilter, limit, offset int) ([]*models.ReviewQueueEntry, error)
	Count(ctx context.Context, filter models.ReviewQueueFilter) (int64, error)
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByAccount(ctx context.Context, accountID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
