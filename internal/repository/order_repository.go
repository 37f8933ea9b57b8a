package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/course-marketplace/internal/model"
)

// OrderRepo is the MySQL implementation of OrderStore.  No uniqueness
// constraint spans (user_id, course_id); duplicate purchases are blocked by
// the handler pre-check against the user's course list.
type OrderRepo struct{ DB *sql.DB }

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{DB: db} }

// Create inserts an order row, assigning a fresh id.
func (r *OrderRepo) Create(ctx context.Context, o *model.Order) error {
	o.ID = uuid.NewString()
	o.CreatedAt = time.Now().UTC()
	payment, err := json.Marshal(o.PaymentInfo)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO orders (id, user_id, course_id, payment_info, created_at) VALUES (?,?,?,?,?)",
		o.ID, o.UserID, o.CourseID, payment, o.CreatedAt)
	return err
}
