package dto

import "time"

// ReviewQueueRequest is bound from the query string of the queue listing
type ReviewQueueRequest struct {
	Search   string `query:"search" validate:"omitempty,max=255"`
	Role     string `query:"role" validate:"omitempty,oneof=veterinarian vendor all"`
	Page     int    `query:"page" validate:"omitempty,gte=1"`
	PageSize int    `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

type ReviewQueueItemDTO struct {
	AccountUUID   string    `json:"account_uuid"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	DisplayName   string    `json:"display_name"`
	LicenseNumber string    `json:"license_number"`
	Phone         string    `json:"phone"`
	Status        string    `json:"status"`
	DocumentCount int       `json:"document_count"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

type ReviewQueueResponse struct {
	Items      []ReviewQueueItemDTO `json:"items"`
	TotalCount int64                `json:"total_count"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalPages int                  `json:"total_pages"`
}

// SelectionDecisionRequest decides the selected rows of a filtered queue view.
// With SelectAll every row of the view is selected, minus Deselected.
type SelectionDecisionRequest struct {
	Search     string   `json:"search" validate:"omitempty,max=255"`
	Role       string   `json:"role" validate:"omitempty,oneof=veterinarian vendor all"`
	SelectAll  bool     `json:"select_all"`
	Selected   []string `json:"selected" validate:"omitempty,dive,uuid"`
	Deselected []string `json:"deselected" validate:"omitempty,dive,uuid"`
	Status     string   `json:"status" validate:"required,oneof=approved rejected"`
	Reason     *string  `json:"reason,omitempty" validate:"omitempty,max=255"`
	Comments   *string  `json:"comments,omitempty" validate:"omitempty,max=2000"`
}
