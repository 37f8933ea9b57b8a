package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/course-marketplace/internal/model"
)

// NotificationRepo is the MySQL implementation of NotificationStore.
type NotificationRepo struct{ DB *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{DB: db} }

// Create inserts a notification row, defaulting the status to unread.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	n.ID = uuid.NewString()
	if n.Status == "" {
		n.Status = model.NotificationUnread
	}
	n.CreatedAt = time.Now().UTC()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO notifications (id, user_id, title, message, status, created_at) VALUES (?,?,?,?,?,?)",
		n.ID, n.UserID, n.Title, n.Message, n.Status, n.CreatedAt)
	return err
}
