package dto

import (
	"time"

	"github.com/amirphl/vetverify/models"
)

// DocumentUploadRequest is a document the client uploaded through the upload endpoint
type DocumentUploadRequest struct {
	Type        string     `json:"type" validate:"required"`
	URL         string     `json:"url" validate:"required,url"`
	Progress    float64    `json:"progress" validate:"gte=0,lte=100"`
	Error       *string    `json:"error,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Checksum    *string    `json:"checksum,omitempty" validate:"omitempty,max=128"`
	SizeBytes   *int64     `json:"size_bytes,omitempty" validate:"omitempty,gte=0"`
	ContentType *string    `json:"content_type,omitempty" validate:"omitempty,max=100"`
}

// SubmitProfileRequest carries exactly one of the role specific profiles.
// Profile fields are validated by the workflow against the account role.
type SubmitProfileRequest struct {
	Veterinarian *models.VeterinarianDetails `json:"veterinarian,omitempty" validate:"-"`
	Vendor       *models.VendorDetails       `json:"vendor,omitempty" validate:"-"`
	Documents    []DocumentUploadRequest     `json:"documents" validate:"omitempty,dive"`
}

// UpdateProfileRequest edits the profile data of a submitted account
type UpdateProfileRequest struct {
	Veterinarian *models.VeterinarianDetails `json:"veterinarian,omitempty" validate:"-"`
	Vendor       *models.VendorDetails       `json:"vendor,omitempty" validate:"-"`
}

// DecisionRequest is an admin disposition of one pending account
type DecisionRequest struct {
	Status   string  `json:"status" validate:"required,oneof=approved rejected"`
	Reason   *string `json:"reason,omitempty" validate:"omitempty,max=255"`
	Comments *string `json:"comments,omitempty" validate:"omitempty,max=2000"`
}

// BatchDecisionRequest applies one disposition to many accounts
type BatchDecisionRequest struct {
	AccountIDs []string `json:"account_ids" validate:"required,min=1,dive,uuid"`
	Status     string   `json:"status" validate:"required,oneof=approved rejected"`
	Reason     *string  `json:"reason,omitempty" validate:"omitempty,max=255"`
	Comments   *string  `json:"comments,omitempty" validate:"omitempty,max=2000"`
}

// AccountActionRequest is the body of suspend and reinstate
type AccountActionRequest struct {
	Reason   *string `json:"reason,omitempty" validate:"omitempty,max=255"`
	Comments *string `json:"comments,omitempty" validate:"omitempty,max=2000"`
}

// BatchFailureDTO describes one account a batch could not decide
type BatchFailureDTO struct {
	AccountID string `json:"account_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// BatchDecisionResponse lists the outcome per account
type BatchDecisionResponse struct {
	Message   string            `json:"message"`
	Succeeded []string          `json:"succeeded"`
	Failed    []BatchFailureDTO `json:"failed"`
}

// DecisionResponse is returned after a single account changed status
type DecisionResponse struct {
	Message     string `json:"message"`
	AccountUUID string `json:"account_uuid"`
	Status      string `json:"status"`
}

type ProfessionalProfileDTO struct {
	ID              uint                        `json:"id"`
	AccountUUID     string                      `json:"account_uuid"`
	Role            string                      `json:"role"`
	Status          string                      `json:"status"`
	DisplayName     string                      `json:"display_name"`
	LicenseNumber   string                      `json:"license_number"`
	Phone           string                      `json:"phone"`
	ServicesOffered []string                    `json:"services_offered"`
	Veterinarian    *models.VeterinarianDetails `json:"veterinarian,omitempty"`
	Vendor          *models.VendorDetails       `json:"vendor,omitempty"`
	SubmittedAt     time.Time                   `json:"submitted_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

type VerificationDocumentDTO struct {
	ID                 uint       `json:"id"`
	DocumentType       string     `json:"document_type"`
	DocumentURL        string     `json:"document_url"`
	VerificationStatus string     `json:"verification_status"`
	RejectionReason    *string    `json:"rejection_reason,omitempty"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	SizeBytes          *int64     `json:"size_bytes,omitempty"`
	ContentType        *string    `json:"content_type,omitempty"`
	ReviewedAt         *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

type ReviewDecisionDTO struct {
	ID             uint      `json:"id"`
	Action         string    `json:"action"`
	ResultStatus   string    `json:"result_status"`
	PreviousStatus *string   `json:"previous_status,omitempty"`
	Reason         *string   `json:"reason,omitempty"`
	Comments       *string   `json:"comments,omitempty"`
	ByAdmin        bool      `json:"by_admin"`
	DecidedAt      time.Time `json:"decided_at"`
}

// VerificationStatusResponse is what a professional sees about their own verification
type VerificationStatusResponse struct {
	AccountUUID string                    `json:"account_uuid"`
	Role        string                    `json:"role"`
	Status      *string                   `json:"status,omitempty"`
	CanSubmit   bool                      `json:"can_submit"`
	CanEdit     bool                      `json:"can_edit"`
	Profile     *ProfessionalProfileDTO   `json:"profile,omitempty"`
	Documents   []VerificationDocumentDTO `json:"documents"`
	Decisions   []ReviewDecisionDTO       `json:"decisions"`
}

// SubmitProfileResponse is returned after a successful submission
type SubmitProfileResponse struct {
	Message string                 `json:"message"`
	Profile ProfessionalProfileDTO `json:"profile"`
}

// ReconcileResponse summarizes a reconciliation run
type ReconcileResponse struct {
	Checked  int      `json:"checked"`
	Repaired []string `json:"repaired"`
}
