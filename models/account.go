// Package models contains domain entities and business models for the verification system
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/amirphl/vetverify/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role identifies what an account is on the marketplace
type Role string

const (
	RoleVeterinarian Role = "veterinarian"
	RoleVendor       Role = "vendor"
	RolePetParent    Role = "pet_parent"
	RolePharmacy     Role = "pharmacy"
	RoleAdmin        Role = "admin"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleVeterinarian, RoleVendor, RolePetParent, RolePharmacy, RoleAdmin:
		return true
	}
	return false
}

// IsProfessional reports whether accounts of this role go through verification
func (r Role) IsProfessional() bool {
	return r == RoleVeterinarian || r == RoleVendor
}

// ProfessionalStatus is the verification state shared by an account and its profile
type ProfessionalStatus string

const (
	ProfessionalStatusPending   ProfessionalStatus = "pending"
	ProfessionalStatusApproved  ProfessionalStatus = "approved"
	ProfessionalStatusRejected  ProfessionalStatus = "rejected"
	ProfessionalStatusSuspended ProfessionalStatus = "suspended"
)

// IsValid reports whether s is a known status
func (s ProfessionalStatus) IsValid() bool {
	switch s {
	case ProfessionalStatusPending, ProfessionalStatusApproved, ProfessionalStatusRejected, ProfessionalStatusSuspended:
		return true
	}
	return false
}

// ChannelPreferences toggles the notification kinds delivered on one channel
type ChannelPreferences struct {
	StatusChanges bool `json:"status_changes"`
	NewApplicants bool `json:"new_applicants"`
}

// NotificationPreferences holds per-channel notification switches
type NotificationPreferences struct {
	InApp ChannelPreferences `json:"in_app"`
	Email ChannelPreferences `json:"email"`
}

// DefaultNotificationPreferences enables every channel and kind
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{
		InApp: ChannelPreferences{StatusChanges: true, NewApplicants: true},
		Email: ChannelPreferences{StatusChanges: true, NewApplicants: true},
	}
}

// Value implements driver.Valuer for jsonb storage
func (p NotificationPreferences) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for jsonb storage
func (p *NotificationPreferences) Scan(value any) error {
	if value == nil {
		*p = DefaultNotificationPreferences()
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("notification preferences: unsupported scan type")
	}
	return json.Unmarshal(raw, p)
}

// Account is a marketplace user known to the identity provider.
// ProfessionalStatus is nil until the first profile submission.
type Account struct {
	ID                      uint                    `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID                    uuid.UUID               `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	Email                   string                  `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role                    Role                    `gorm:"size:32;not null;index:idx_accounts_role_status" json:"role"`
	ProfessionalStatus      *ProfessionalStatus     `gorm:"size:32;index:idx_accounts_role_status" json:"professional_status,omitempty"`
	NotificationPreferences NotificationPreferences `gorm:"type:jsonb;not null" json:"notification_preferences"`
	CreatedAt               time.Time               `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt               time.Time               `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

// BeforeCreate fills identity, preferences and timestamps
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == uuid.Nil {
		a.UUID = uuid.New()
	}
	if a.NotificationPreferences == (NotificationPreferences{}) {
		a.NotificationPreferences = DefaultNotificationPreferences()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	return nil
}

// CurrentStatus returns the professional status, or "" when nothing was submitted
func (a *Account) CurrentStatus() ProfessionalStatus {
	if a.ProfessionalStatus == nil {
		return ""
	}
	return *a.ProfessionalStatus
}

// HasStatus reports whether the account is currently in status s
func (a *Account) HasStatus(s ProfessionalStatus) bool {
	return a.ProfessionalStatus != nil && *a.ProfessionalStatus == s
}

// AccountFilter represents filter criteria for account queries
type AccountFilter struct {
	ID                 *uint
	UUID               *uuid.UUID
	UUIDs              []uuid.UUID
	Email              *string
	Role               *Role
	ProfessionalStatus *ProfessionalStatus
	HasStatus          *bool
	CreatedAfter       *time.Time
	CreatedBefore      *time.Time
}
