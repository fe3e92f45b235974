package dto

import "time"

type NotificationDTO struct {
	ID        uint      `json:"id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"is_read"`
	Link      *string   `json:"link,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListNotificationsRequest is bound from the query string
type ListNotificationsRequest struct {
	UnreadOnly bool `query:"unread_only"`
	Page       int  `query:"page" validate:"omitempty,gte=1"`
	PageSize   int  `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

type ListNotificationsResponse struct {
	Items       []NotificationDTO `json:"items"`
	UnreadCount int64             `json:"unread_count"`
	Page        int               `json:"page"`
	PageSize    int               `json:"page_size"`
}

type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

type ChannelPreferencesDTO struct {
	StatusChanges bool `json:"status_changes"`
	NewApplicants bool `json:"new_applicants"`
}

type NotificationPreferencesDTO struct {
	InApp ChannelPreferencesDTO `json:"in_app"`
	Email ChannelPreferencesDTO `json:"email"`
}

// ChannelPreferencesPatch leaves nil switches unchanged
type ChannelPreferencesPatch struct {
	StatusChanges *bool `json:"status_changes,omitempty"`
	NewApplicants *bool `json:"new_applicants,omitempty"`
}

type UpdateNotificationPreferencesRequest struct {
	InApp *ChannelPreferencesPatch `json:"in_app,omitempty"`
	Email *ChannelPreferencesPatch `json:"email,omitempty"`
}
