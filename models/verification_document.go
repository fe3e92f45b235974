package models

import (
	"time"

	"github.com/amirphl/vetverify/utils"
	"gorm.io/gorm"
)

// DocumentType tags what an uploaded verification document proves
type DocumentType string

const (
	DocumentTypeLicense               DocumentType = "license"
	DocumentTypeDegree                DocumentType = "degree"
	DocumentTypeExperienceCertificate DocumentType = "experience_certificate"
	DocumentTypeClinicRegistration    DocumentType = "clinic_registration"
	DocumentTypeGSTCertificate        DocumentType = "gst_certificate"
	DocumentTypeBusinessLicense       DocumentType = "business_license"
	DocumentTypePharmacyLicense       DocumentType = "pharmacy_license"
)

// IsValid reports whether t is a known document type
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeLicense, DocumentTypeDegree, DocumentTypeExperienceCertificate,
		DocumentTypeClinicRegistration, DocumentTypeGSTCertificate, DocumentTypeBusinessLicense,
		DocumentTypePharmacyLicense:
		return true
	}
	return false
}

// RequiredDocumentTypes lists the document types a role must provide on submission
func RequiredDocumentTypes(role Role) []DocumentType {
	switch role {
	case RoleVeterinarian:
		return []DocumentType{DocumentTypeLicense, DocumentTypeDegree}
	case RoleVendor:
		return []DocumentType{DocumentTypeBusinessLicense, DocumentTypeGSTCertificate}
	default:
		return nil
	}
}

// DocumentVerificationStatus is the review state of a single document
type DocumentVerificationStatus string

const (
	DocumentStatusPending  DocumentVerificationStatus = "pending"
	DocumentStatusApproved DocumentVerificationStatus = "approved"
	DocumentStatusRejected DocumentVerificationStatus = "rejected"
)

// VerificationDocument is a file a professional uploaded as proof of credentials
type VerificationDocument struct {
	ID                 uint                       `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID          uint                       `gorm:"not null;index" json:"account_id"`
	DocumentType       DocumentType               `gorm:"size:40;not null;index" json:"document_type"`
	DocumentURL        string                     `gorm:"type:text;not null" json:"document_url"`
	VerificationStatus DocumentVerificationStatus `gorm:"size:20;not null;default:'pending';index" json:"verification_status"`
	RejectionReason    *string                    `gorm:"type:text" json:"rejection_reason,omitempty"`
	ExpiresAt          *time.Time                 `gorm:"index" json:"expires_at,omitempty"`
	Checksum           *string                    `gorm:"size:128" json:"checksum,omitempty"`
	SizeBytes          *int64                     `json:"size_bytes,omitempty"`
	ContentType        *string                    `gorm:"size:100" json:"content_type,omitempty"`
	ReviewedBy         *uint                      `json:"reviewed_by,omitempty"`
	ReviewedAt         *time.Time                 `json:"reviewed_at,omitempty"`
	ReminderSentAt     *time.Time                 `json:"reminder_sent_at,omitempty"`
	CreatedAt          time.Time                  `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt          time.Time                  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Relations
	Account *Account `gorm:"foreignKey:AccountID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (VerificationDocument) TableName() string {
	return "verification_documents"
}

// BeforeCreate normalizes status and timestamps
func (d *VerificationDocument) BeforeCreate(tx *gorm.DB) error {
	if d.VerificationStatus == "" {
		d.VerificationStatus = DocumentStatusPending
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = utils.UTCNow()
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}
	return nil
}

// VerificationDocumentFilter represents filter criteria for document queries
type VerificationDocumentFilter struct {
	ID                 *uint
	AccountID          *uint
	DocumentType       *DocumentType
	VerificationStatus *DocumentVerificationStatus
	ExpiresBefore      *time.Time
	ExpiresAfter       *time.Time
	ReminderSent       *bool
}
