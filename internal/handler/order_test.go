package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/course-marketplace/internal/cache"
	"github.com/iliyamo/course-marketplace/internal/middleware"
	"github.com/iliyamo/course-marketplace/internal/model"
)

type orderFixture struct {
	handler       *OrderHandler
	users         *fakeUserStore
	courses       *fakeCourseStore
	orders        *fakeOrderStore
	notifications *fakeNotificationStore
	sessions      *cache.Store
	mail          *fakeMailer
	user          model.User
	course        model.Course
}

func newOrderTest(t *testing.T) *orderFixture {
	t.Helper()
	f := &orderFixture{
		users:         newFakeUserStore(),
		courses:       newFakeCourseStore(),
		orders:        &fakeOrderStore{},
		notifications: &fakeNotificationStore{},
		sessions:      newTestSessions(t),
		mail:          &fakeMailer{},
	}
	f.handler = NewOrderHandler(f.users, f.courses, f.orders, f.notifications, f.sessions, f.mail)

	u, err := f.users.Create(context.Background(), "A", "a@x.com", "secret1", model.RoleUser, bcrypt.MinCost)
	require.NoError(t, err)
	f.user = u
	require.NoError(t, f.sessions.PutUser(context.Background(), u))
	f.course = seedCourse(t, f.courses)
	return f
}

func (f *orderFixture) placeOrder(t *testing.T) int {
	t.Helper()
	e := echo.New()
	c, rec := doJSON(e, http.MethodPost, "/api/v1/order", `{"courseId":"`+f.course.ID+`"}`)
	middleware.SetCurrentUser(c, f.user)
	require.NoError(t, f.handler.Create(c))
	return rec.Code
}

func TestCreateOrderSuccess(t *testing.T) {
	f := newOrderTest(t)
	require.Equal(t, http.StatusCreated, f.placeOrder(t))

	require.Len(t, f.orders.orders, 1)
	assert.Equal(t, f.user.ID, f.orders.orders[0].UserID)
	assert.Equal(t, f.course.ID, f.orders.orders[0].CourseID)

	u, err := f.users.GetByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.True(t, u.HasCourse(f.course.ID))

	course, err := f.courses.GetByID(context.Background(), f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, course.Purchased)

	require.Len(t, f.notifications.notifications, 1)
	assert.Equal(t, model.NotificationUnread, f.notifications.notifications[0].Status)

	// Session snapshot reflects the new purchase.
	cached, ok, err := f.sessions.GetUser(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, cached.HasCourse(f.course.ID))

	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "a@x.com", f.mail.sent[0].To)
	assert.Equal(t, "order-confirmation", f.mail.sent[0].Template)
}

func TestCreateOrderDuplicatePurchase(t *testing.T) {
	f := newOrderTest(t)
	require.Equal(t, http.StatusCreated, f.placeOrder(t))

	// The handler re-reads the user, so the stale context snapshot does not
	// hide the first purchase.
	require.Equal(t, http.StatusBadRequest, f.placeOrder(t))

	assert.Len(t, f.orders.orders, 1)
	assert.Len(t, f.mail.sent, 1)
	course, err := f.courses.GetByID(context.Background(), f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, course.Purchased)
}

func TestCreateOrderUnknownCourse(t *testing.T) {
	f := newOrderTest(t)
	e := echo.New()
	c, rec := doJSON(e, http.MethodPost, "/api/v1/order", `{"courseId":"missing"}`)
	middleware.SetCurrentUser(c, f.user)
	require.NoError(t, f.handler.Create(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, f.orders.orders)
}

func TestCreateOrderMailFailureKeepsWrites(t *testing.T) {
	f := newOrderTest(t)
	f.mail.err = errors.New("broker down")

	require.Equal(t, http.StatusInternalServerError, f.placeOrder(t))

	// Every storage effect persists even though the response is a 500.
	assert.Len(t, f.orders.orders, 1)
	u, err := f.users.GetByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.True(t, u.HasCourse(f.course.ID))
	course, err := f.courses.GetByID(context.Background(), f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, course.Purchased)
	assert.Len(t, f.notifications.notifications, 1)
}

func TestCreateOrderInvalidatesCatalogAggregate(t *testing.T) {
	f := newOrderTest(t)
	require.NoError(t, f.sessions.PutAllCourses(context.Background(), []model.Course{f.course.Sanitized()}))

	require.Equal(t, http.StatusCreated, f.placeOrder(t))

	// Purchase counts show up in listings, so the aggregate must go.
	_, ok, err := f.sessions.GetAllCourses(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	cached, ok, err := f.sessions.GetCourse(context.Background(), f.course.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, cached.Purchased)
}
