package cache

// Package cache wraps Redis as the session and catalog snapshot store.
// Values are JSON strings written without TTL: entries die only when an
// event (logout, profile update, catalog mutation) deletes or overwrites
// them.  A live session entry is what makes a refresh token usable, so the
// store is constructed once at startup and injected wherever needed.

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/course-marketplace/internal/model"
)

// Key namespaces.  User and course ids are both UUIDs, so each entity class
// gets its own prefix; the aggregate catalog entry lives under a sentinel.
const (
	sessionPrefix = "session:"
	coursePrefix  = "course:"
	allCoursesKey = "all-courses"
)

// Store is the Redis-backed snapshot cache.
type Store struct{ rdb *redis.Client }

func New(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

// PutUser overwrites the session snapshot for the user id.  Last writer
// wins; there is no optimistic concurrency token.
func (s *Store) PutUser(ctx context.Context, u model.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionPrefix+u.ID, b, 0).Err()
}

// GetUser returns the cached snapshot and whether it exists.
func (s *Store) GetUser(ctx context.Context, id string) (model.User, bool, error) {
	raw, err := s.rdb.Get(ctx, sessionPrefix+id).Result()
	if err == redis.Nil {
		return model.User{}, false, nil
	}
	if err != nil {
		return model.User{}, false, err
	}
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return model.User{}, false, err
	}
	return u, true, nil
}

// DeleteUser removes the session entry.  Deleting an absent key is a no-op.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, sessionPrefix+id).Err()
}

// PutCourse overwrites the per-course snapshot.
func (s *Store) PutCourse(ctx context.Context, c model.Course) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, coursePrefix+c.ID, b, 0).Err()
}

// GetCourse returns the cached course and whether it exists.
func (s *Store) GetCourse(ctx context.Context, id string) (model.Course, bool, error) {
	raw, err := s.rdb.Get(ctx, coursePrefix+id).Result()
	if err == redis.Nil {
		return model.Course{}, false, nil
	}
	if err != nil {
		return model.Course{}, false, err
	}
	var c model.Course
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return model.Course{}, false, err
	}
	return c, true, nil
}

// DeleteCourse removes a per-course entry (idempotent).
func (s *Store) DeleteCourse(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, coursePrefix+id).Err()
}

// PutAllCourses overwrites the aggregate catalog entry.
func (s *Store) PutAllCourses(ctx context.Context, cs []model.Course) error {
	b, err := json.Marshal(cs)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, allCoursesKey, b, 0).Err()
}

// GetAllCourses returns the cached catalog and whether it exists.
func (s *Store) GetAllCourses(ctx context.Context) ([]model.Course, bool, error) {
	raw, err := s.rdb.Get(ctx, allCoursesKey).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var cs []model.Course
	if err := json.Unmarshal([]byte(raw), &cs); err != nil {
		return nil, false, err
	}
	return cs, true, nil
}

// DeleteAllCourses drops the aggregate entry so the next catalog read
// repopulates it from storage.  Called on every catalog mutation.
func (s *Store) DeleteAllCourses(ctx context.Context) error {
	return s.rdb.Del(ctx, allCoursesKey).Err()
}
