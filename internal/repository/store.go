package repository

import (
	"context"

	"github.com/iliyamo/course-marketplace/internal/model"
)

// UserStore persists identity records.  Create hashes the supplied plain
// password on write; an empty password creates a credential-less account
// (social auth).  Save overwrites every mutable column of an existing row.
type UserStore interface {
	Create(ctx context.Context, name, email, password, role string, cost int) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	Save(ctx context.Context, u *model.User) error
}

// CourseStore persists catalog entities.
type CourseStore interface {
	Create(ctx context.Context, c *model.Course) error
	GetByID(ctx context.Context, id string) (model.Course, error)
	GetAll(ctx context.Context) ([]model.Course, error)
	Save(ctx context.Context, c *model.Course) error
}

// OrderStore persists purchase records (append-only).
type OrderStore interface {
	Create(ctx context.Context, o *model.Order) error
}

// NotificationStore persists in-app notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
}
