package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/course-marketplace/internal/model"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
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
	return New(rdb), mr
}

func TestUserSnapshotLifecycle(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetUser(ctx, "u-1")
	require.NoError(t, err)
	assert.False(t, ok)

	u := model.User{ID: "u-1", Name: "A", Email: "a@x.com", Role: model.RoleUser}
	require.NoError(t, s.PutUser(ctx, u))

	got, ok, err := s.GetUser(ctx, "u-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, u.Email, got.Email)

	// Overwrite wins; there is no merge.
	u.Name = "B"
	require.NoError(t, s.PutUser(ctx, u))
	got, _, err = s.GetUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "B", got.Name)

	require.NoError(t, s.DeleteUser(ctx, "u-1"))
	_, ok, err = s.GetUser(ctx, "u-1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting again is a no-op.
	require.NoError(t, s.DeleteUser(ctx, "u-1"))
}

func TestPasswordHashNeverStored(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	u := model.User{ID: "u-1", Name: "A", Email: "a@x.com", PasswordHash: "$2a$hash"}
	require.NoError(t, s.PutUser(ctx, u))

	raw, err := mr.Get("session:u-1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "$2a$hash")

	got, ok, err := s.GetUser(ctx, "u-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, got.PasswordHash)
}

func TestCourseAndUserKeysDoNotCollide(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutUser(ctx, model.User{ID: "same-id", Name: "A"}))
	require.NoError(t, s.PutCourse(ctx, model.Course{ID: "same-id", Name: "C"}))

	u, ok, err := s.GetUser(ctx, "same-id")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", u.Name)

	c, ok, err := s.GetCourse(ctx, "same-id")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "C", c.Name)

	require.NoError(t, s.DeleteCourse(ctx, "same-id"))
	_, ok, err = s.GetUser(ctx, "same-id")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllCoursesAggregate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetAllCourses(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.PutAllCourses(ctx, []model.Course{{ID: "c-1"}, {ID: "c-2"}}))
	got, ok, err := s.GetAllCourses(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got, 2)

	require.NoError(t, s.DeleteAllCourses(ctx))
	_, ok, err = s.GetAllCourses(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	// An empty catalog is still a cached value, distinct from a miss.
	require.NoError(t, s.PutAllCourses(ctx, []model.Course{}))
	got, ok, err = s.GetAllCourses(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, got)
}

func TestEntriesHaveNoTTL(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutUser(ctx, model.User{ID: "u-1"}))
	assert.Equal(t, int64(0), int64(mr.TTL("session:u-1")))
}
