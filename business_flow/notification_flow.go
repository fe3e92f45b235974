package businessflow

import (
	"context"
	"fmt"

	"github.com/amirphl/vetverify/app/dto"
	"github.com/amirphl/vetverify/app/services"
	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/repository"
	"github.com/amirphl/vetverify/utils"
	"github.com/google/uuid"
)

// NotificationFlow handles the in-app notification feed and preferences of an account
type NotificationFlow interface {
	List(ctx context.Context, accountUUID uuid.UUID, unreadOnly bool, page, pageSize int) (*dto.ListNotificationsResponse, error)
	UnreadCount(ctx context.Context, accountUUID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, accountUUID uuid.UUID, notificationID uint) error
	MarkAllRead(ctx context.Context, accountUUID uuid.UUID) (int64, error)
	GetPreferences(ctx context.Context, accountUUID uuid.UUID) (*dto.NotificationPreferencesDTO, error)
	UpdatePreferences(ctx context.Context, accountUUID uuid.UUID, req dto.UpdateNotificationPreferencesRequest, metadata *ClientMetadata) (*dto.NotificationPreferencesDTO, error)
	Subscribe(ctx context.Context, accountUUID uuid.UUID) (<-chan services.NotificationEvent, func(), error)
}

// NotificationFlowImpl implements NotificationFlow
type NotificationFlowImpl struct {
	accountRepo      repository.AccountRepository
	notificationRepo repository.NotificationRepository
	auditRepo        repository.AuditLogRepository
	emitter          *services.NotificationEmitter
}

// NewNotificationFlow creates the notification feed flow. emitter may be nil when streaming is off.
func NewNotificationFlow(
	accountRepo repository.AccountRepository,
	notificationRepo repository.NotificationRepository,
	auditRepo repository.AuditLogRepository,
	emitter *services.NotificationEmitter,
) NotificationFlow {
	return &NotificationFlowImpl{
		accountRepo:      accountRepo,
		notificationRepo: notificationRepo,
		auditRepo:        auditRepo,
		emitter:          emitter,
	}
}

// List returns the feed newest first
func (f *NotificationFlowImpl) List(ctx context.Context, accountUUID uuid.UUID, unreadOnly bool, page, pageSize int) (*dto.ListNotificationsResponse, error) {
	account, err := loadAccount(ctx, f.accountRepo, accountUUID)
	if err != nil {
		return nil, err
	}
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = utils.DefaultQueuePageSize
	}
	if page < 1 {
		return nil, NewBusinessError("INVALID_PAGE", "Page must be at least 1", ErrInvalidPage)
	}
	if pageSize < 1 || pageSize > utils.MaxQueuePageSize {
		return nil, NewBusinessError("INVALID_PAGE_SIZE", "Page size must be between 1 and 100", ErrInvalidPageSize)
	}

	rows, err := f.notificationRepo.ListByUser(ctx, account.ID, unreadOnly, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("NOTIFICATION_FETCH_FAILED", "Failed to fetch notifications", err)
	}
	unread, err := f.notificationRepo.CountUnread(ctx, account.ID)
	if err != nil {
		return nil, NewBusinessError("NOTIFICATION_COUNT_FAILED", "Failed to count notifications", err)
	}

	items := make([]dto.NotificationDTO, 0, len(rows))
	for _, n := range rows {
		items = append(items, ToNotificationDTO(n))
	}
	return &dto.ListNotificationsResponse{
		Items:       items,
		UnreadCount: unread,
		Page:        page,
		PageSize:    pageSize,
	}, nil
}

func (f *NotificationFlowImpl) UnreadCount(ctx context.Context, accountUUID uuid.UUID) (int64, error) {
	account, err := loadAccount(ctx, f.accountRepo, accountUUID)
	if err != nil {
		return 0, err
	}
	n, err := f.notificationRepo.CountUnread(ctx, account.ID)
	if err != nil {
		return 0, NewBusinessError("NOTIFICATION_COUNT_FAILED", "Failed to count notifications", err)
	}
	return n, nil
}

// MarkRead flags one notification of the account as read. Marking twice is not an error.
func (f *NotificationFlowImpl) MarkRead(ctx context.Context, accountUUID uuid.UUID, notificationID uint) error {
	account, err := loadAccount(ctx, f.accountRepo, accountUUID)
	if err != nil {
		return err
	}
	ok, err := f.notificationRepo.MarkRead(ctx, account.ID, notificationID)
	if err != nil {
		return NewBusinessError("NOTIFICATION_UPDATE_FAILED", "Failed to update notification", err)
	}
	if !ok {
		return NewBusinessErrorf("NOTIFICATION_NOT_FOUND", "Notification %d not found", ErrNotificationMissing, notificationID)
	}
	return nil
}

func (f *NotificationFlowImpl) MarkAllRead(ctx context.Context, accountUUID uuid.UUID) (int64, error) {
	account, err := loadAccount(ctx, f.accountRepo, accountUUID)
	if err != nil {
		return 0, err
	}
	n, err := f.notificationRepo.MarkAllRead(ctx, account.ID)
	if err != nil {
		return 0, NewBusinessError("NOTIFICATION_UPDATE_FAILED", "Failed to update notifications", err)
	}
	return n, nil
}

func (f *NotificationFlowImpl) GetPreferences(ctx context.Context, accountUUID uuid.UUID) (*dto.NotificationPreferencesDTO, error) {
	account, err := loadAccount(ctx, f.accountRepo, accountUUID)
	if err != nil {
		return nil, err
	}
	prefs := ToPreferencesDTO(account.NotificationPreferences)
	return &prefs, nil
}

// UpdatePreferences applies a partial update; switches left nil keep their value
func (f *NotificationFlowImpl) UpdatePreferences(ctx context.Context, accountUUID uuid.UUID, req dto.UpdateNotificationPreferencesRequest, metadata *ClientMetadata) (*dto.NotificationPreferencesDTO, error) {
	if req.InApp == nil && req.Email == nil {
		return nil, NewBusinessError("INVALID_PREFERENCES", "Nothing to update", ErrInvalidPreferences)
	}
	account, err := loadAccount(ctx, f.accountRepo, accountUUID)
	if err != nil {
		return nil, err
	}

	prefs := account.NotificationPreferences
	applyChannelPatch(&prefs.InApp, req.InApp)
	applyChannelPatch(&prefs.Email, req.Email)

	if err := f.accountRepo.UpdateNotificationPreferences(ctx, account.ID, prefs); err != nil {
		errMsg := fmt.Sprintf("Preference update failed: %s", err.Error())
		_ = createAuditLog(ctx, f.auditRepo, auditEntry{
			accountID: &account.ID, action: models.AuditActionPreferencesUpdated,
			description: errMsg, errorMsg: &errMsg,
		}, metadata)
		return nil, NewBusinessError("PREFERENCES_UPDATE_FAILED", "Failed to update notification preferences", err)
	}

	_ = createAuditLog(ctx, f.auditRepo, auditEntry{
		accountID: &account.ID, action: models.AuditActionPreferencesUpdated,
		description: "Notification preferences updated", success: true,
		extra: map[string]any{"preferences": prefs},
	}, metadata)

	out := ToPreferencesDTO(prefs)
	return &out, nil
}

// Subscribe opens a live feed for the account. The caller must call the returned func.
func (f *NotificationFlowImpl) Subscribe(ctx context.Context, accountUUID uuid.UUID) (<-chan services.NotificationEvent, func(), error) {
	if f.emitter == nil {
		return nil, nil, NewBusinessError("STREAM_UNAVAILABLE", "Live notifications are not enabled", ErrStreamUnavailable)
	}
	account, err := loadAccount(ctx, f.accountRepo, accountUUID)
	if err != nil {
		return nil, nil, err
	}
	ch, unsubscribe := f.emitter.Subscribe(account.UUID)
	return ch, unsubscribe, nil
}

func applyChannelPatch(dst *models.ChannelPreferences, patch *dto.ChannelPreferencesPatch) {
	if patch == nil {
		return
	}
	if patch.StatusChanges != nil {
		dst.StatusChanges = *patch.StatusChanges
	}
	if patch.NewApplicants != nil {
		dst.NewApplicants = *patch.NewApplicants
	}
}
