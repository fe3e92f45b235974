package models

import (
	"time"

	"github.com/amirphl/vetverify/utils"
	"gorm.io/gorm"
)

// ReviewAction names the kind of transition a ReviewDecision records
type ReviewAction string

const (
	ReviewActionSubmit    ReviewAction = "submit"
	ReviewActionApprove   ReviewAction = "approve"
	ReviewActionReject    ReviewAction = "reject"
	ReviewActionSuspend   ReviewAction = "suspend"
	ReviewActionReinstate ReviewAction = "reinstate"
)

// ReviewDecision is an append-only entry of the status transition log.
// The latest entry per account (by DecidedAt, then ID) is the authoritative status.
type ReviewDecision struct {
	ID             uint               `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID      uint               `gorm:"not null;index:idx_review_decisions_account_decided" json:"account_id"`
	Action         ReviewAction       `gorm:"size:20;not null" json:"action"`
	ResultStatus   ProfessionalStatus `gorm:"size:32;not null" json:"result_status"`
	PreviousStatus *string            `gorm:"size:32" json:"previous_status,omitempty"`
	Reason         *string            `gorm:"size:255" json:"reason,omitempty"`
	Comments       *string            `gorm:"type:text" json:"comments,omitempty"`
	AdminID        *uint              `gorm:"index" json:"admin_id,omitempty"`
	DecidedAt      time.Time          `gorm:"not null;index:idx_review_decisions_account_decided" json:"decided_at"`

	// Relations
	Account *Account `gorm:"foreignKey:AccountID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ReviewDecision) TableName() string {
	return "review_decisions"
}

// BeforeCreate stamps the server-received time
func (r *ReviewDecision) BeforeCreate(tx *gorm.DB) error {
	if r.DecidedAt.IsZero() {
		r.DecidedAt = utils.UTCNow()
	}
	return nil
}

// After reports whether r was decided after other
func (r *ReviewDecision) After(other *ReviewDecision) bool {
	if other == nil {
		return true
	}
	if !r.DecidedAt.Equal(other.DecidedAt) {
		return r.DecidedAt.After(other.DecidedAt)
	}
	return r.ID > other.ID
}

// ReviewDecisionFilter represents filter criteria for decision log queries
type ReviewDecisionFilter struct {
	ID            *uint
	AccountID     *uint
	Action        *ReviewAction
	AdminID       *uint
	DecidedAfter  *time.Time
	DecidedBefore *time.Time
}
