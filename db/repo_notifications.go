package db

import (
	"context"

	"unilib/lending"
	"unilib/models"

	"github.com/google/uuid"
)

func (r *Repo) CreateNotification(ctx context.Context, userID, typ, message string) error {
	n := &models.Notification{
		ID:      uuid.NewString(),
		UserID:  userID,
		Type:    typ,
		Message: message,
	}
	return r.DB.WithContext(ctx).Create(n).Error
}

func (r *Repo) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	q := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(100)
	if unreadOnly {
		q = q.Where("read = FALSE")
	}
	var ns []models.Notification
	err := q.Find(&ns).Error
	return ns, err
}

// MarkNotificationRead flips one notification owned by userID; the
// owner check is part of the WHERE so users cannot touch others'.
func (r *Repo) MarkNotificationRead(ctx context.Context, id, userID string) error {
	res := r.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return lending.ErrNotFound
	}
	return nil
}

func (r *Repo) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	return r.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = FALSE", userID).
		Update("read", true).Error
}

func (r *Repo) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = FALSE", userID).
		Count(&n).Error
	return n, err
}
