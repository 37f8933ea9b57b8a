package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/course-marketplace/internal/cache"
	"github.com/iliyamo/course-marketplace/internal/config"
	"github.com/iliyamo/course-marketplace/internal/media"
	"github.com/iliyamo/course-marketplace/internal/middleware"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/repository"
	"github.com/iliyamo/course-marketplace/internal/utils"
)

// UserHandler covers profile mutations.  Every write path here re-reads the
// user from storage, persists the change, and overwrites the session-cache
// snapshot.  That overwrite is the only thing keeping cache and storage in
// agreement.
type UserHandler struct {
	Cfg      config.Config
	Users    repository.UserStore
	Sessions *cache.Store
	Media    media.Uploader
}

func NewUserHandler(cfg config.Config, users repository.UserStore, sessions *cache.Store, m media.Uploader) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users, Sessions: sessions, Media: m}
}

type updateInfoReq struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
type updatePasswordReq struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}
type updateAvatarReq struct {
	Avatar string `json:"avatar"`
}

// UpdateInfo changes name and/or email, with a duplicate check on email.
func (h *UserHandler) UpdateInfo(c echo.Context) error {
	cu, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "please login to access this resource")
	}
	var req updateInfoReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, cu.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "load user failed")
	}

	if email := strings.ToLower(strings.TrimSpace(req.Email)); email != "" && email != u.Email {
		if !model.ValidEmail(email) {
			return fail(c, http.StatusBadRequest, "please enter a valid email")
		}
		if _, err := h.Users.GetByEmail(ctx, email); err == nil {
			return fail(c, http.StatusBadRequest, "email already exists")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusInternalServerError, "query failed")
		}
		u.Email = email
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		u.Name = name
	}

	if err := h.Users.Save(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return fail(c, http.StatusBadRequest, "email already exists")
		}
		return fail(c, http.StatusInternalServerError, "update user failed")
	}
	if err := h.Sessions.PutUser(ctx, u); err != nil {
		return fail(c, http.StatusInternalServerError, "save session failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u})
}

// UpdatePassword verifies the old password before rehashing the new one.
// Social-auth accounts have no hash and cannot take this path.
func (h *UserHandler) UpdatePassword(c echo.Context) error {
	cu, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "please login to access this resource")
	}
	var req updatePasswordReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return fail(c, http.StatusBadRequest, "please enter old and new password")
	}
	if len(req.NewPassword) < 6 {
		return fail(c, http.StatusBadRequest, "password must be at least 6 characters")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, cu.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "load user failed")
	}
	if u.PasswordHash == "" {
		return fail(c, http.StatusBadRequest, "password change is not available for social accounts")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.OldPassword) {
		return fail(c, http.StatusBadRequest, "old password is incorrect")
	}

	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "hash password failed")
	}
	u.PasswordHash = hash

	if err := h.Users.Save(ctx, &u); err != nil {
		return fail(c, http.StatusInternalServerError, "update user failed")
	}
	if err := h.Sessions.PutUser(ctx, u); err != nil {
		return fail(c, http.StatusInternalServerError, "save session failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u})
}

// UpdateAvatar replaces the stored avatar: destroy the old media object if
// one exists, upload the new content, persist and refresh the snapshot.
func (h *UserHandler) UpdateAvatar(c echo.Context) error {
	cu, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "please login to access this resource")
	}
	var req updateAvatarReq
	if err := c.Bind(&req); err != nil || req.Avatar == "" {
		return fail(c, http.StatusBadRequest, "avatar is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, cu.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "load user failed")
	}

	if u.Avatar.PublicID != "" {
		// Best effort: a dangling old object is preferable to a failed update.
		_ = h.Media.Destroy(ctx, u.Avatar.PublicID)
	}
	asset, err := h.Media.Upload(ctx, req.Avatar, "avatars")
	if err != nil {
		return fail(c, http.StatusInternalServerError, "avatar upload failed")
	}
	u.Avatar = model.Avatar{PublicID: asset.PublicID, URL: asset.URL}

	if err := h.Users.Save(ctx, &u); err != nil {
		return fail(c, http.StatusInternalServerError, "update user failed")
	}
	if err := h.Sessions.PutUser(ctx, u); err != nil {
		return fail(c, http.StatusInternalServerError, "save session failed")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u})
}
