package dto

import "time"

// DocumentUploadResponse is handed back to the client, which passes URL on submission
type DocumentUploadResponse struct {
	URL         string  `json:"url"`
	ObjectKey   string  `json:"object_key"`
	SizeBytes   int64   `json:"size_bytes"`
	Checksum    string  `json:"checksum"`
	ContentType string  `json:"content_type"`
	Progress    float64 `json:"progress"`
}

// DocumentReviewRequest is an admin disposition of one document
type DocumentReviewRequest struct {
	Status string  `json:"status" validate:"required,oneof=approved rejected"`
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type DocumentReviewResponse struct {
	Message  string                  `json:"message"`
	Document VerificationDocumentDTO `json:"document"`
}

type DocumentLinkResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
