package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	AccountID    *uint           `gorm:"index:idx_audit_account_id" json:"account_id,omitempty"`
	AdminID      *uint           `gorm:"index:idx_audit_admin_id" json:"admin_id,omitempty"`
	Action       string          `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"size:64;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionProfileSubmitted    = "profile_submitted"
	AuditActionProfileSubmitFailed = "profile_submit_failed"
	AuditActionProfileUpdated      = "profile_updated"
	AuditActionDecisionRecorded    = "decision_recorded"
	AuditActionDecisionFailed      = "decision_failed"
	AuditActionBatchDecision       = "batch_decision"
	AuditActionAccountSuspended    = "account_suspended"
	AuditActionAccountReinstated   = "account_reinstated"
	AuditActionDocumentUploaded    = "document_uploaded"
	AuditActionDocumentReviewed    = "document_reviewed"
	AuditActionStatusReconciled    = "status_reconciled"
	AuditActionApprovedExported    = "approved_exported"
	AuditActionPreferencesUpdated  = "preferences_updated"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	AccountID     *uint
	AdminID       *uint
	Action        *string
	Success       *bool
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}

// IsAdminAction reports whether the entry records something an admin did
func (a *AuditLog) IsAdminAction() bool {
	adminActions := map[string]bool{
		AuditActionDecisionRecorded:  true,
		AuditActionDecisionFailed:    true,
		AuditActionBatchDecision:     true,
		AuditActionAccountSuspended:  true,
		AuditActionAccountReinstated: true,
		AuditActionDocumentReviewed:  true,
		AuditActionApprovedExported:  true,
	}
	return adminActions[a.Action]
}
