package memory

import (
	"cmp"
	"context"

	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/repository"
)

var notificationColumns = map[string]func(a, b *models.Notification) int{
	"id":         func(a, b *models.Notification) int { return cmp.Compare(a.ID, b.ID) },
	"created_at": func(a, b *models.Notification) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

// NotificationRepository is the in-memory NotificationRepository
type NotificationRepository struct {
	store *Store
}

// NewNotificationRepository creates a notification repository backed by store
func NewNotificationRepository(store *Store) repository.NotificationRepository {
	return &NotificationRepository{store: store}
}

func (r *NotificationRepository) ByID(ctx context.Context, id uint) (*models.Notification, error) {
	var out *models.Notification
	r.store.read(ctx, func() {
		if n, ok := r.store.notifications[id]; ok {
			out = &n
		}
	})
	return out, nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]*models.Notification, error) {
	filter := models.NotificationFilter{UserID: &userID}
	if unreadOnly {
		unread := false
		filter.IsRead = &unread
	}
	return r.ByFilter(ctx, filter, "created_at DESC, id DESC", limit, offset)
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	unread := false
	return r.Count(ctx, models.NotificationFilter{UserID: &userID, IsRead: &unread})
}

func (r *NotificationRepository) Save(ctx context.Context, n *models.Notification) error {
	return r.store.write(ctx, func() error {
		if err := r.store.injected("notifications.Save"); err != nil {
			return err
		}
		r.insert(n)
		return nil
	})
}

func (r *NotificationRepository) SaveBatch(ctx context.Context, ns []*models.Notification) error {
	return r.store.write(ctx, func() error {
		if err := r.store.injected("notifications.SaveBatch"); err != nil {
			return err
		}
		for _, n := range ns {
			r.insert(n)
		}
		return nil
	})
}

func (r *NotificationRepository) insert(n *models.Notification) {
	_ = n.BeforeCreate(nil)
	n.ID = r.store.nextID("notifications")
	row := *n
	row.User = nil
	r.store.notifications[n.ID] = row
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, notificationID uint) (bool, error) {
	var found bool
	err := r.store.write(ctx, func() error {
		if err := r.store.injected("notifications.MarkRead"); err != nil {
			return err
		}
		n, ok := r.store.notifications[notificationID]
		if !ok || n.UserID != userID {
			return nil
		}
		found = true
		n.IsRead = true
		r.store.notifications[notificationID] = n
		return nil
	})
	return found, err
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	var affected int64
	err := r.store.write(ctx, func() error {
		if err := r.store.injected("notifications.MarkAllRead"); err != nil {
			return err
		}
		for id, n := range r.store.notifications {
			if n.UserID == userID && !n.IsRead {
				n.IsRead = true
				r.store.notifications[id] = n
				affected++
			}
		}
		return nil
	})
	return affected, err
}

func matchNotification(n *models.Notification, f models.NotificationFilter) bool {
	if f.ID != nil && n.ID != *f.ID {
		return false
	}
	if f.UserID != nil && n.UserID != *f.UserID {
		return false
	}
	if f.Type != nil && n.Type != *f.Type {
		return false
	}
	if f.IsRead != nil && n.IsRead != *f.IsRead {
		return false
	}
	if f.CreatedAfter != nil && !n.CreatedAt.After(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && !n.CreatedAt.Before(*f.CreatedBefore) {
		return false
	}
	return true
}

func (r *NotificationRepository) ByFilter(ctx context.Context, filter models.NotificationFilter, orderBy string, limit, offset int) ([]*models.Notification, error) {
	var rows []*models.Notification
	r.store.read(ctx, func() {
		for _, n := range r.store.notifications {
			if matchNotification(&n, filter) {
				row := n
				rows = append(rows, &row)
			}
		}
	})
	if orderBy == "" {
		orderBy = "id DESC"
	}
	orderRows(rows, orderBy, notificationColumns)
	return paginate(rows, limit, offset), nil
}

func (r *NotificationRepository) Count(ctx context.Context, filter models.NotificationFilter) (int64, error) {
	rows, err := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(rows)), err
}

func (r *NotificationRepository) Exists(ctx context.Context, filter models.NotificationFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	return c > 0, err
}
