package models

import (
	"time"

	"github.com/amirphl/vetverify/utils"
	"gorm.io/gorm"
)

// NotificationType classifies in-app notifications
type NotificationType string

const (
	NotificationTypeStatusApproved   NotificationType = "status_approved"
	NotificationTypeStatusRejected   NotificationType = "status_rejected"
	NotificationTypeNewApplicant     NotificationType = "new_applicant"
	NotificationTypeDocumentReminder NotificationType = "document_reminder"
)

// IsStatusChange reports whether the type informs about a verification outcome
func (t NotificationType) IsStatusChange() bool {
	return t == NotificationTypeStatusApproved || t == NotificationTypeStatusRejected
}

// Notification is an entry of an account's in-app feed. Only IsRead ever changes.
type Notification struct {
	ID        uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint             `gorm:"not null;index:idx_notifications_user_read" json:"user_id"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	Type      NotificationType `gorm:"size:32;not null;index" json:"type"`
	IsRead    bool             `gorm:"not null;default:false;index:idx_notifications_user_read" json:"is_read"`
	Link      *string          `gorm:"size:512" json:"link,omitempty"`
	CreatedAt time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`

	// Relations
	User *Account `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate normalizes the creation timestamp
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = utils.UTCNow()
	}
	return nil
}

// NotificationFilter represents filter criteria for notification queries
type NotificationFilter struct {
	ID            *uint
	UserID        *uint
	Type          *NotificationType
	IsRead        *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
