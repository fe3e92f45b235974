package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/vetverify/app/dto"
	businessflow "github.com/amirphl/vetverify/business_flow"
	"github.com/amirphl/vetverify/logger"
	"github.com/gofiber/fiber/v3"
)

const streamHeartbeat = 25 * time.Second

type NotificationHandlerInterface interface {
	List(c fiber.Ctx) error
	UnreadCount(c fiber.Ctx) error
	MarkRead(c fiber.Ctx) error
	MarkAllRead(c fiber.Ctx) error
	GetPreferences(c fiber.Ctx) error
	UpdatePreferences(c fiber.Ctx) error
	Stream(c fiber.Ctx) error
}

type NotificationHandler struct {
	responder
	flow businessflow.NotificationFlow
}

func NewNotificationHandler(flow businessflow.NotificationFlow) *NotificationHandler {
	return &NotificationHandler{responder: newResponder(), flow: flow}
}

// List returns the caller's notifications, newest first
// @Summary List notifications
// @Tags Notifications
// @Produce json
// @Param unread_only query bool false "Only unread notifications"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 10, max 100)"
// @Success 200 {object} dto.APIResponse{data=dto.ListNotificationsResponse} "Notifications retrieved"
// @Failure 400 {object} dto.APIResponse "Invalid paging"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) List(c fiber.Ctx) error {
	var req dto.ListNotificationsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	accountUUID, ok, err := h.accountUUID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/notifications")
	defer cancel()

	result, err := h.flow.List(ctx, accountUUID, req.UnreadOnly, req.Page, req.PageSize)
	if err != nil {
		return h.FlowError(c, err, "Failed to list notifications", "NOTIFICATION_FETCH_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Notifications retrieved successfully", result)
}

// UnreadCount returns the number of unread notifications
// @Summary Count unread notifications
// @Tags Notifications
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.UnreadCountResponse} "Count retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c fiber.Ctx) error {
	accountUUID, ok, err := h.accountUUID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/notifications/unread-count")
	defer cancel()

	count, err := h.flow.UnreadCount(ctx, accountUUID)
	if err != nil {
		return h.FlowError(c, err, "Failed to count notifications", "NOTIFICATION_COUNT_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Unread count retrieved successfully", dto.UnreadCountResponse{Count: count})
}

// MarkRead marks one notification as read
// @Summary Mark notification read
// @Tags Notifications
// @Produce json
// @Param id path int true "Notification ID"
// @Success 200 {object} dto.APIResponse "Notification marked as read"
// @Failure 400 {object} dto.APIResponse "Invalid notification id"
// @Failure 404 {object} dto.APIResponse "Notification not found"
// @Router /api/v1/notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c fiber.Ctx) error {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid notification id", "INVALID_NOTIFICATION_ID", nil)
	}

	accountUUID, ok, err := h.accountUUID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/notifications/{id}/read")
	defer cancel()

	if err := h.flow.MarkRead(ctx, accountUUID, id); err != nil {
		return h.FlowError(c, err, "Failed to mark notification", "NOTIFICATION_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Notification marked as read", nil)
}

// MarkAllRead marks every notification of the caller as read
// @Summary Mark all notifications read
// @Tags Notifications
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.MarkAllReadResponse} "Notifications marked as read"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c fiber.Ctx) error {
	accountUUID, ok, err := h.accountUUID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/notifications/read-all")
	defer cancel()

	n, err := h.flow.MarkAllRead(ctx, accountUUID)
	if err != nil {
		return h.FlowError(c, err, "Failed to mark notifications", "NOTIFICATION_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Notifications marked as read", dto.MarkAllReadResponse{Updated: n})
}

// GetPreferences returns the caller's notification switches
// @Summary Get notification preferences
// @Tags Notifications
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.NotificationPreferencesDTO} "Preferences retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/notifications/preferences [get]
func (h *NotificationHandler) GetPreferences(c fiber.Ctx) error {
	accountUUID, ok, err := h.accountUUID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/notifications/preferences")
	defer cancel()

	prefs, err := h.flow.GetPreferences(ctx, accountUUID)
	if err != nil {
		return h.FlowError(c, err, "Failed to get preferences", "PREFERENCES_FETCH_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Preferences retrieved successfully", prefs)
}

// UpdatePreferences changes some notification switches
// @Summary Update notification preferences
// @Description Switches left out of the body keep their value
// @Tags Notifications
// @Accept json
// @Produce json
// @Param request body dto.UpdateNotificationPreferencesRequest true "Preferences patch"
// @Success 200 {object} dto.APIResponse{data=dto.NotificationPreferencesDTO} "Preferences updated"
// @Failure 400 {object} dto.APIResponse "Empty patch"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Router /api/v1/notifications/preferences [patch]
func (h *NotificationHandler) UpdatePreferences(c fiber.Ctx) error {
	var req dto.UpdateNotificationPreferencesRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	accountUUID, ok, err := h.accountUUID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/notifications/preferences")
	defer cancel()

	prefs, err := h.flow.UpdatePreferences(ctx, accountUUID, req, h.metadata(c))
	if err != nil {
		return h.FlowError(c, err, "Failed to update preferences", "PREFERENCES_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Preferences updated successfully", prefs)
}

// Stream pushes new notifications to the caller as server-sent events
// @Summary Stream notifications
// @Description Server-sent events. Each event named "notification" carries one notification as JSON.
// @Tags Notifications
// @Produce text/event-stream
// @Param access_token query string false "Access token for clients that cannot set headers"
// @Success 200 {string} string "Event stream"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 503 {object} dto.APIResponse "Streaming disabled"
// @Router /api/v1/notifications/stream [get]
func (h *NotificationHandler) Stream(c fiber.Ctx) error {
	accountUUID, ok, err := h.accountUUID(c)
	if !ok {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	events, unsubscribe, err := h.flow.Subscribe(ctx, accountUUID)
	if err != nil {
		cancel()
		return h.FlowError(c, err, "Failed to open notification stream", "STREAM_UNAVAILABLE")
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer unsubscribe()

		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()

		if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil || w.Flush() != nil {
			return
		}
		for {
			select {
			case ev, open := <-events:
				if !open {
					return
				}
				payload, err := json.Marshal(ev)
				if err != nil {
					logger.WithContext(ctx).Error("encode notification event", "error", err)
					continue
				}
				fmt.Fprintf(w, "id: %d\nevent: notification\ndata: %s\n\n", ev.ID, payload)
			case <-heartbeat.C:
				fmt.Fprint(w, ": ping\n\n")
			}
			// A failed flush means the client went away
			if err := w.Flush(); err != nil {
				return
			}
		}
	})
}
