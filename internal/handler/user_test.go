package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/course-marketplace/internal/cache"
	"github.com/iliyamo/course-marketplace/internal/config"
	"github.com/iliyamo/course-marketplace/internal/middleware"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/utils"
)

func newUserTest(t *testing.T) (*UserHandler, *fakeUserStore, *cache.Store, *fakeUploader, model.User) {
	t.Helper()
	users := newFakeUserStore()
	sessions := newTestSessions(t)
	uploads := &fakeUploader{}
	cfg := config.Config{Env: "dev", BcryptCost: bcrypt.MinCost}
	u, err := users.Create(context.Background(), "A", "a@x.com", "secret1", model.RoleUser, bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, sessions.PutUser(context.Background(), u))
	return NewUserHandler(cfg, users, sessions, uploads), users, sessions, uploads, u
}

func TestUpdateInfoRefreshesCacheSnapshot(t *testing.T) {
	h, users, sessions, _, u := newUserTest(t)
	e := echo.New()

	c, rec := doJSON(e, http.MethodPut, "/api/v1/user", `{"name":"B","email":"b@x.com"}`)
	middleware.SetCurrentUser(c, u)
	require.NoError(t, h.UpdateInfo(c))
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	cached, ok, err := sessions.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	require.True(t, ok)

	// Cache and storage agree after the mutation.
	assert.Equal(t, "B", stored.Name)
	assert.Equal(t, "b@x.com", stored.Email)
	assert.Equal(t, stored.Name, cached.Name)
	assert.Equal(t, stored.Email, cached.Email)
}

func TestUpdateInfoDuplicateEmail(t *testing.T) {
	h, users, _, _, u := newUserTest(t)
	_, err := users.Create(context.Background(), "C", "taken@x.com", "secret1", model.RoleUser, bcrypt.MinCost)
	require.NoError(t, err)

	e := echo.New()
	c, rec := doJSON(e, http.MethodPut, "/api/v1/user", `{"email":"taken@x.com"}`)
	middleware.SetCurrentUser(c, u)
	require.NoError(t, h.UpdateInfo(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdatePasswordVerifiesOldPassword(t *testing.T) {
	h, users, sessions, _, u := newUserTest(t)
	e := echo.New()

	c, rec := doJSON(e, http.MethodPut, "/api/v1/user/password",
		`{"oldPassword":"wrong","newPassword":"secret2"}`)
	middleware.SetCurrentUser(c, u)
	require.NoError(t, h.UpdatePassword(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = doJSON(e, http.MethodPut, "/api/v1/user/password",
		`{"oldPassword":"secret1","newPassword":"secret2"}`)
	middleware.SetCurrentUser(c, u)
	require.NoError(t, h.UpdatePassword(c))
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, utils.VerifyPassword(stored.PasswordHash, "secret2"))

	// Snapshot was overwritten along with the storage write.
	_, ok, err := sessions.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdatePasswordRejectedForSocialAccount(t *testing.T) {
	h, users, sessions, _, _ := newUserTest(t)
	social, err := users.Create(context.Background(), "S", "s@x.com", "", model.RoleUser, bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, sessions.PutUser(context.Background(), social))

	e := echo.New()
	c, rec := doJSON(e, http.MethodPut, "/api/v1/user/password",
		`{"oldPassword":"x","newPassword":"secret2"}`)
	middleware.SetCurrentUser(c, social)
	require.NoError(t, h.UpdatePassword(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAvatarReplacesOldMedia(t *testing.T) {
	h, users, sessions, uploads, u := newUserTest(t)
	e := echo.New()

	c, rec := doJSON(e, http.MethodPut, "/api/v1/user/avatar", `{"avatar":"data:image/png;base64,aaaa"}`)
	middleware.SetCurrentUser(c, u)
	require.NoError(t, h.UpdateAvatar(c))
	require.Equal(t, http.StatusOK, rec.Code)

	first, err := users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.NotEmpty(t, first.Avatar.PublicID)
	assert.Empty(t, uploads.destroyed) // nothing to destroy the first time

	c, rec = doJSON(e, http.MethodPut, "/api/v1/user/avatar", `{"avatar":"data:image/png;base64,bbbb"}`)
	middleware.SetCurrentUser(c, first)
	require.NoError(t, h.UpdateAvatar(c))
	require.Equal(t, http.StatusOK, rec.Code)

	second, err := users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.Avatar.PublicID, second.Avatar.PublicID)
	assert.Equal(t, []string{first.Avatar.PublicID}, uploads.destroyed)
	assert.Equal(t, []string{"avatars", "avatars"}, uploads.uploads)

	cached, ok, err := sessions.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.Avatar.URL, cached.Avatar.URL)
}
