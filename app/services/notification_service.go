package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/repository"
	"github.com/amirphl/vetverify/utils"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var notificationDeliveries = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notification_deliveries_total",
		Help: "Notification deliveries by channel and result",
	},
	[]string{"channel", "result"},
)

// NotificationMessage is one notification addressed to one account.
// InApp and Email select the channels; the caller resolves preferences.
type NotificationMessage struct {
	AccountID   uint
	AccountUUID uuid.UUID
	Email       string
	Subject     string
	Message     string
	Type        models.NotificationType
	Link        *string
	InApp       bool
	SendEmail   bool
}

// NotificationSink delivers notifications
type NotificationSink interface {
	Notify(ctx context.Context, msg NotificationMessage) error
}

// EmailProvider interface for email sending
type EmailProvider interface {
	SendEmail(ctx context.Context, email, subject, message string) error
}

// Broadcaster pushes a stored notification to live subscribers
type Broadcaster interface {
	Broadcast(ctx context.Context, accountUUID uuid.UUID, ev NotificationEvent) error
}

// NotificationHub stores in-app notifications, fans them out to subscribers and hands emails off
type NotificationHub struct {
	repo          repository.NotificationRepository
	emailProvider EmailProvider
	broadcaster   Broadcaster
}

// NewNotificationHub creates a notification sink. emailProvider and broadcaster may be nil.
func NewNotificationHub(repo repository.NotificationRepository, emailProvider EmailProvider, broadcaster Broadcaster) *NotificationHub {
	return &NotificationHub{
		repo:          repo,
		emailProvider: emailProvider,
		broadcaster:   broadcaster,
	}
}

// Notify delivers msg on every selected channel. Channel failures are joined; one failing
// channel does not stop the other.
func (h *NotificationHub) Notify(ctx context.Context, msg NotificationMessage) error {
	var errs []error

	if msg.InApp {
		if err := h.deliverInApp(ctx, msg); err != nil {
			notificationDeliveries.WithLabelValues("in_app", "error").Inc()
			errs = append(errs, err)
		} else {
			notificationDeliveries.WithLabelValues("in_app", "success").Inc()
		}
	}

	if msg.SendEmail {
		if err := h.deliverEmail(ctx, msg); err != nil {
			notificationDeliveries.WithLabelValues("email", "error").Inc()
			errs = append(errs, err)
		} else {
			notificationDeliveries.WithLabelValues("email", "success").Inc()
		}
	}

	return errors.Join(errs...)
}

func (h *NotificationHub) deliverInApp(ctx context.Context, msg NotificationMessage) error {
	n := &models.Notification{
		UserID:  msg.AccountID,
		Message: msg.Message,
		Type:    msg.Type,
		Link:    msg.Link,
	}
	if err := h.repo.Save(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification for account %d: %w", msg.AccountID, err)
	}

	if h.broadcaster != nil && msg.AccountUUID != uuid.Nil {
		if err := h.broadcaster.Broadcast(ctx, msg.AccountUUID, EventFromNotification(n)); err != nil {
			// The notification is stored; live subscribers will see it on their next fetch.
			slog.WarnContext(ctx, "notification broadcast failed", "account_id", msg.AccountID, "error", err)
		}
	}
	return nil
}

func (h *NotificationHub) deliverEmail(ctx context.Context, msg NotificationMessage) error {
	if h.emailProvider == nil {
		return fmt.Errorf("email provider not configured")
	}
	if msg.Email == "" || !strings.Contains(msg.Email, "@") {
		return fmt.Errorf("invalid email address: %s", msg.Email)
	}
	subject := msg.Subject
	if subject == "" {
		subject = defaultSubject(msg.Type)
	}
	body := msg.Message
	if msg.Link != nil {
		body += "\n\n" + *msg.Link
	}
	return h.emailProvider.SendEmail(ctx, msg.Email, subject, body)
}

func defaultSubject(t models.NotificationType) string {
	switch t {
	case models.NotificationTypeStatusApproved:
		return "Your professional account was approved"
	case models.NotificationTypeStatusRejected:
		return "Your professional account needs changes"
	case models.NotificationTypeNewApplicant:
		return "New professional application"
	case models.NotificationTypeDocumentReminder:
		return "A verification document is about to expire"
	default:
		return "Notification"
	}
}

// LogEmailProvider writes emails to the log. It is used when no broker is configured.
type LogEmailProvider struct{}

func NewLogEmailProvider() EmailProvider {
	return &LogEmailProvider{}
}

func (p *LogEmailProvider) SendEmail(ctx context.Context, email, subject, message string) error {
	slog.InfoContext(ctx, "email sent", "to", email, "subject", subject, "request_id", requestID(ctx), "length", len(message))
	return nil
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(utils.RequestIDKey).(string); ok {
		return id
	}
	return ""
}
