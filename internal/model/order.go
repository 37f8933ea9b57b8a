package model

import "time"

// Order links a purchasing user to a course.  Rows are append-only; the
// application pre-checks user.Courses instead of a storage-level uniqueness
// constraint.
type Order struct {
	ID          string         `json:"_id"`
	UserID      string         `json:"userId"`
	CourseID    string         `json:"courseId"`
	PaymentInfo map[string]any `json:"paymentInfo,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}
