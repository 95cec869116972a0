package controllers

import (
	"context"
	"net/http"

	"unilib/app"
	"unilib/models"

	"github.com/gin-gonic/gin"
)

type NotificationStore interface {
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error
	CountUnread(ctx context.Context, userID string) (int64, error)
}

type NotificationController struct{ Store NotificationStore }

func NewNotificationController(s *Srv) *NotificationController {
	return &NotificationController{Store: s.Repo}
}

// 自己的通知 ?unread=1
func (nc *NotificationController) ListNotifications(c *gin.Context) {
	ns, err := nc.Store.ListNotifications(c.Request.Context(), userID(c), c.Query("unread") == "1")
	if err != nil {
		fail(c, err)
		return
	}
	unread, _ := nc.Store.CountUnread(c.Request.Context(), userID(c))
	ok(c, http.StatusOK, app.H{"notifications": ns, "unread": unread})
}

func (nc *NotificationController) MarkRead(c *gin.Context) {
	if err := nc.Store.MarkNotificationRead(c.Request.Context(), c.Param("id"), userID(c)); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, app.H{"read": true})
}

func (nc *NotificationController) MarkAllRead(c *gin.Context) {
	if err := nc.Store.MarkAllNotificationsRead(c.Request.Context(), userID(c)); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, app.H{"read": true})
}
