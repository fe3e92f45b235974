package businessflow

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/amirphl/vetverify/app/dto"
	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/repository"
	"github.com/amirphl/vetverify/utils"
	"github.com/google/uuid"
)

// ClientMetadata holds client information recorded with audit logs
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// auditEntry is what createAuditLog records
type auditEntry struct {
	accountID   *uint
	adminID     *uint
	action      string
	description string
	success     bool
	errorMsg    *string
	extra       map[string]any
}

// createAuditLog stores an audit record. Failures are reported to the caller, which usually ignores them.
func createAuditLog(ctx context.Context, auditRepo repository.AuditLogRepository, entry auditEntry, metadata *ClientMetadata) error {
	ipAddress := ""
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		AccountID:    entry.accountID,
		AdminID:      entry.adminID,
		Action:       entry.action,
		Description:  &entry.description,
		Success:      utils.ToPtr(entry.success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: entry.errorMsg,
	}

	if len(entry.extra) > 0 || (metadata != nil && len(metadata.Additional) > 0) {
		payload := make(map[string]any, len(entry.extra)+1)
		for k, v := range entry.extra {
			payload[k] = v
		}
		if metadata != nil && len(metadata.Additional) > 0 {
			payload["client"] = metadata.Additional
		}
		if raw, err := json.Marshal(payload); err == nil {
			audit.Metadata = raw
		}
	}

	// Extract request ID from context if available
	if requestID, ok := ctx.Value(utils.RequestIDKey).(string); ok {
		audit.RequestID = &requestID
	} else if metadata != nil && metadata.RequestID != "" {
		audit.RequestID = &metadata.RequestID
	}

	return auditRepo.Save(ctx, audit)
}

func statusPtrString(s *models.ProfessionalStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

// ToProfileDTO converts a profile, decoding the variant that matches its role
func ToProfileDTO(p *models.ProfessionalProfile, accountUUID uuid.UUID) dto.ProfessionalProfileDTO {
	out := dto.ProfessionalProfileDTO{
		ID:              p.ID,
		AccountUUID:     accountUUID.String(),
		Role:            string(p.Role),
		Status:          string(p.Status),
		DisplayName:     p.DisplayName,
		LicenseNumber:   p.LicenseNumber,
		Phone:           p.Phone,
		ServicesOffered: append([]string{}, p.ServicesOffered...),
		SubmittedAt:     p.SubmittedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if v, err := p.Variant(); err == nil {
		switch d := v.(type) {
		case *models.VeterinarianDetails:
			out.Veterinarian = d
		case *models.VendorDetails:
			out.Vendor = d
		}
	}
	return out
}

func ToDocumentDTO(d *models.VerificationDocument) dto.VerificationDocumentDTO {
	return dto.VerificationDocumentDTO{
		ID:                 d.ID,
		DocumentType:       string(d.DocumentType),
		DocumentURL:        d.DocumentURL,
		VerificationStatus: string(d.VerificationStatus),
		RejectionReason:    d.RejectionReason,
		ExpiresAt:          d.ExpiresAt,
		SizeBytes:          d.SizeBytes,
		ContentType:        d.ContentType,
		ReviewedAt:         d.ReviewedAt,
		CreatedAt:          d.CreatedAt,
	}
}

func ToDecisionDTO(d *models.ReviewDecision) dto.ReviewDecisionDTO {
	return dto.ReviewDecisionDTO{
		ID:             d.ID,
		Action:         string(d.Action),
		ResultStatus:   string(d.ResultStatus),
		PreviousStatus: d.PreviousStatus,
		Reason:         d.Reason,
		Comments:       d.Comments,
		ByAdmin:        d.AdminID != nil,
		DecidedAt:      d.DecidedAt,
	}
}

func ToNotificationDTO(n *models.Notification) dto.NotificationDTO {
	return dto.NotificationDTO{
		ID:        n.ID,
		Message:   n.Message,
		Type:      string(n.Type),
		IsRead:    n.IsRead,
		Link:      n.Link,
		CreatedAt: n.CreatedAt,
	}
}

func ToPreferencesDTO(p models.NotificationPreferences) dto.NotificationPreferencesDTO {
	return dto.NotificationPreferencesDTO{
		InApp: dto.ChannelPreferencesDTO{StatusChanges: p.InApp.StatusChanges, NewApplicants: p.InApp.NewApplicants},
		Email: dto.ChannelPreferencesDTO{StatusChanges: p.Email.StatusChanges, NewApplicants: p.Email.NewApplicants},
	}
}

// joinLink builds an absolute deep link when a base URL is configured
func joinLink(baseURL, path string) *string {
	link := path
	if base := strings.TrimRight(baseURL, "/"); base != "" {
		link = base + path
	}
	return &link
}
