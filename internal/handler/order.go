package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/course-marketplace/internal/cache"
	"github.com/iliyamo/course-marketplace/internal/middleware"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/queue"
	"github.com/iliyamo/course-marketplace/internal/repository"
)

// OrderHandler creates purchases.  The write sequence (order row, user
// course list, purchase counter) is deliberately non-transactional and the
// confirmation mail is best-effort: a delivery failure surfaces as a 500
// but never rolls back the storage writes.
type OrderHandler struct {
	Users         repository.UserStore
	Courses       repository.CourseStore
	Orders        repository.OrderStore
	Notifications repository.NotificationStore
	Sessions      *cache.Store
	Mail          Mailer
}

func NewOrderHandler(users repository.UserStore, courses repository.CourseStore, orders repository.OrderStore,
	notifications repository.NotificationStore, sessions *cache.Store, mail Mailer) *OrderHandler {
	return &OrderHandler{
		Users:         users,
		Courses:       courses,
		Orders:        orders,
		Notifications: notifications,
		Sessions:      sessions,
		Mail:          mail,
	}
}

type createOrderReq struct {
	CourseID    string         `json:"courseId"`
	PaymentInfo map[string]any `json:"paymentInfo"`
}

// Create places an order: duplicate-purchase pre-check against the user's
// course list, course existence check, then order row + user append +
// purchase counter, notification, caches, confirmation mail.
func (h *OrderHandler) Create(c echo.Context) error {
	cu, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "please login to access this resource")
	}
	var req createOrderReq
	if err := c.Bind(&req); err != nil || req.CourseID == "" {
		return fail(c, http.StatusBadRequest, "courseId is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, cu.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "load user failed")
	}
	if u.HasCourse(req.CourseID) {
		return fail(c, http.StatusBadRequest, "you have already purchased this course")
	}

	course, err := h.Courses.GetByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusNotFound, "course not found")
		}
		return fail(c, http.StatusInternalServerError, "load course failed")
	}

	order := model.Order{UserID: u.ID, CourseID: course.ID, PaymentInfo: req.PaymentInfo}
	if err := h.Orders.Create(ctx, &order); err != nil {
		return fail(c, http.StatusInternalServerError, "create order failed")
	}

	u.Courses = append(u.Courses, course.ID)
	if err := h.Users.Save(ctx, &u); err != nil {
		return fail(c, http.StatusInternalServerError, "update user failed")
	}

	course.Purchased++
	if err := h.Courses.Save(ctx, &course); err != nil {
		return fail(c, http.StatusInternalServerError, "update course failed")
	}

	if err := h.Notifications.Create(ctx, &model.Notification{
		UserID:  u.ID,
		Title:   "New order",
		Message: "You have a new order - " + course.Name,
	}); err != nil {
		return fail(c, http.StatusInternalServerError, "create notification failed")
	}

	// Keep the snapshots in agreement with the writes above.
	if err := h.Sessions.PutUser(ctx, u); err != nil {
		return fail(c, http.StatusInternalServerError, "save session failed")
	}
	if err := h.Sessions.PutCourse(ctx, course.Sanitized()); err != nil {
		return fail(c, http.StatusInternalServerError, "cache update failed")
	}
	if err := h.Sessions.DeleteAllCourses(ctx); err != nil {
		return fail(c, http.StatusInternalServerError, "cache invalidation failed")
	}

	// Storage effects above persist even when delivery fails.
	if err := h.Mail.Send(ctx, queue.MailRequestedEvent{
		To:       u.Email,
		Subject:  "Order Confirmation",
		Template: "order-confirmation",
		Data: map[string]any{
			"orderId": order.ID,
			"name":    course.Name,
			"price":   course.Price,
			"date":    time.Now().UTC().Format("January 2, 2006"),
		},
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return fail(c, http.StatusInternalServerError, "order placed but confirmation email failed")
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "order": order})
}
