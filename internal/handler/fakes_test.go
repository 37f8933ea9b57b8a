package handler

// In-memory collaborators for handler tests.  The store fakes honor the
// same sentinel errors as the MySQL implementations so the handlers cannot
// tell them apart.

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/course-marketplace/internal/cache"
	"github.com/iliyamo/course-marketplace/internal/media"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/queue"
	"github.com/iliyamo/course-marketplace/internal/repository"
	"github.com/iliyamo/course-marketplace/internal/utils"
)

func newTestSessions(t *testing.T) *cache.Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return cache.New(rdb)
}

type fakeUserStore struct {
	mu        sync.Mutex
	users     map[string]model.User // by id
	saveCalls int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]model.User{}}
}

func (f *fakeUserStore) Create(_ context.Context, name, email, password, role string, cost int) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.users {
		if u.Email == email {
			return model.User{}, repository.ErrEmailExists
		}
	}
	var hash string
	if password != "" {
		h, err := utils.HashPassword(password, cost)
		if err != nil {
			return model.User{}, err
		}
		hash = h
	}
	u := model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Courses:      []string{},
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) Save(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for id, other := range f.users {
		if id != u.ID && other.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	u.UpdatedAt = time.Now().UTC()
	f.users[u.ID] = *u
	f.saveCalls++
	return nil
}

type fakeCourseStore struct {
	mu       sync.Mutex
	courses  map[string]model.Course
	getCalls int
}

func newFakeCourseStore() *fakeCourseStore {
	return &fakeCourseStore{courses: map[string]model.Course{}}
}

func (f *fakeCourseStore) Create(_ context.Context, c *model.Course) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = uuid.NewString()
	for i := range c.Sections {
		if c.Sections[i].ID == "" {
			c.Sections[i].ID = uuid.NewString()
		}
	}
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	f.courses[c.ID] = *c
	return nil
}

func (f *fakeCourseStore) GetByID(_ context.Context, id string) (model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	c, ok := f.courses[id]
	if !ok {
		return model.Course{}, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeCourseStore) GetAll(_ context.Context) ([]model.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	out := []model.Course{}
	for _, c := range f.courses {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCourseStore) Save(_ context.Context, c *model.Course) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.courses[c.ID]; !ok {
		return repository.ErrNotFound
	}
	c.UpdatedAt = time.Now().UTC()
	f.courses[c.ID] = *c
	return nil
}

type fakeOrderStore struct {
	mu     sync.Mutex
	orders []model.Order
}

func (f *fakeOrderStore) Create(_ context.Context, o *model.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o.ID = uuid.NewString()
	o.CreatedAt = time.Now().UTC()
	f.orders = append(f.orders, *o)
	return nil
}

type fakeNotificationStore struct {
	mu            sync.Mutex
	notifications []model.Notification
}

func (f *fakeNotificationStore) Create(_ context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n.ID = uuid.NewString()
	if n.Status == "" {
		n.Status = model.NotificationUnread
	}
	n.CreatedAt = time.Now().UTC()
	f.notifications = append(f.notifications, *n)
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []queue.MailRequestedEvent
	err  error
}

func (f *fakeMailer) Send(_ context.Context, ev queue.MailRequestedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, ev)
	return nil
}

type fakeUploader struct {
	mu        sync.Mutex
	uploads   []string // folders uploaded to
	destroyed []string
}

func (f *fakeUploader) Upload(_ context.Context, _ string, folder string) (media.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := folder + "/" + uuid.NewString()
	f.uploads = append(f.uploads, folder)
	return media.Asset{PublicID: key, URL: "https://media.test/" + key}, nil
}

func (f *fakeUploader) Destroy(_ context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = append(f.destroyed, publicID)
	return nil
}
