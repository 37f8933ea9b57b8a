package handler

import (
	"context"  // provides context with cancellation for DB calls
	"errors"   // sentinel error comparisons
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities
	"time"     // timeouts for DB calls and cookie lifetimes

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/course-marketplace/internal/cache"
	"github.com/iliyamo/course-marketplace/internal/config"
	"github.com/iliyamo/course-marketplace/internal/middleware"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/queue"
	"github.com/iliyamo/course-marketplace/internal/repository"
	"github.com/iliyamo/course-marketplace/internal/token"
	"github.com/iliyamo/course-marketplace/internal/utils"
)

// Mailer dispatches outbound mail.  The production implementation publishes
// to the message broker; tests substitute a fake.
type Mailer interface {
	Send(ctx context.Context, ev queue.MailRequestedEvent) error
}

// AuthHandler bundles dependencies for the session lifecycle endpoints:
// register, activate, login, refresh, logout, social auth and user info.
type AuthHandler struct {
	Cfg      config.Config
	Users    repository.UserStore
	Sessions *cache.Store
	Tokens   token.Issuer
	Mail     Mailer
}

func NewAuthHandler(cfg config.Config, users repository.UserStore, sessions *cache.Store, tokens token.Issuer, mail Mailer) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Sessions: sessions, Tokens: tokens, Mail: mail}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type activateReq struct {
	ActivationToken string `json:"activation_token"`
	ActivationCode  string `json:"activation_code"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type socialAuthReq struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Register: duplicate-email check, then issue an activation token embedding
// the pending user and a 4-digit code.  No user row is created yet; the
// code travels by mail and the token is also returned for constrained
// clients that cannot do the email round-trip.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "name, email and password are required")
	}
	if !model.ValidEmail(req.Email) {
		return fail(c, http.StatusBadRequest, "please enter a valid email")
	}
	if len(req.Password) < 6 {
		return fail(c, http.StatusBadRequest, "password must be at least 6 characters")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.GetByEmail(ctx, req.Email); err == nil {
		return fail(c, http.StatusBadRequest, "email already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fail(c, http.StatusInternalServerError, "query failed")
	}

	code, err := token.NewActivationCode()
	if err != nil {
		return fail(c, http.StatusInternalServerError, "issue activation code failed")
	}
	activation, err := h.Tokens.SignActivationToken(token.PendingUser{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}, code)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "issue activation token failed")
	}

	if err := h.Mail.Send(ctx, queue.MailRequestedEvent{
		To:          req.Email,
		Subject:     "Activate your account",
		Template:    "activation-mail",
		Data:        map[string]any{"name": req.Name, "activationCode": code},
		RequestedAt: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return fail(c, http.StatusInternalServerError, "could not send activation email")
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"success":         true,
		"message":         "please check your email " + req.Email + " to activate your account",
		"activationToken": activation,
	})
}

// Activate: verify the activation token, compare codes, and persist the
// user.  A replayed token fails here on the duplicate-email check once the
// first activation has gone through; inside the 5-minute window before
// that, replay is indistinguishable from the first attempt.  No session is
// established; a separate login is required.
func (h *AuthHandler) Activate(c echo.Context) error {
	var req activateReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	pending, code, err := h.Tokens.VerifyActivationToken(req.ActivationToken)
	if err != nil {
		return fail(c, http.StatusBadRequest, "activation token is not valid")
	}
	if code != req.ActivationCode {
		return fail(c, http.StatusBadRequest, "invalid activation code")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Two activation attempts can race; the uniqueness constraint on email
	// is the final arbiter, this check just gives the common case a clean
	// error before the insert.
	if _, err := h.Users.GetByEmail(ctx, pending.Email); err == nil {
		return fail(c, http.StatusBadRequest, "email already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fail(c, http.StatusInternalServerError, "query failed")
	}

	u, err := h.Users.Create(ctx, pending.Name, pending.Email, pending.Password, model.RoleUser, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return fail(c, http.StatusBadRequest, "email already exists")
		}
		return fail(c, http.StatusInternalServerError, "create user failed")
	}

	// Activation proves ownership of the mailbox.
	u.IsVerified = true
	if err := h.Users.Save(ctx, &u); err != nil {
		return fail(c, http.StatusInternalServerError, "update user failed")
	}

	return c.JSON(http.StatusCreated, echo.Map{"success": true})
}

// Login: verify credentials and establish a session.  Unknown email, wrong
// password and credential-less social accounts all yield the same message
// so the endpoint cannot be used to enumerate users.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "please enter email and password")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(c, http.StatusBadRequest, "invalid email or password")
		}
		return fail(c, http.StatusInternalServerError, "query failed")
	}
	if u.PasswordHash == "" || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return fail(c, http.StatusBadRequest, "invalid email or password")
	}

	return h.sendToken(c, u, http.StatusOK)
}

// Refresh: exchange a valid refresh token for a fresh access+refresh pair.
// Signature validity is not enough; the decoded user id must still have a
// live session-cache entry, which is what logout severs.  The old refresh
// token is not revoked; it simply ages out.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ck, err := c.Cookie("refresh_token")
	if err != nil || ck.Value == "" {
		return fail(c, http.StatusBadRequest, "could not refresh token")
	}
	userID, err := h.Tokens.VerifyRefreshToken(ck.Value)
	if err != nil {
		return fail(c, http.StatusBadRequest, "refresh token is not valid")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Served from the cached snapshot, not from storage.
	u, ok, err := h.Sessions.GetUser(ctx, userID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "session lookup failed")
	}
	if !ok {
		return fail(c, http.StatusBadRequest, "could not refresh token, please login again")
	}

	access, err := h.Tokens.SignAccessToken(u.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "issue access failed")
	}
	refresh, err := h.Tokens.SignRefreshToken(u.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "issue refresh failed")
	}

	h.setTokenCookies(c, access, refresh)
	middleware.SetCurrentUser(c, u)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "accessToken": access})
}

// Logout: delete the session-cache entry and clear both cookies.  The
// refresh token itself stays cryptographically valid until expiry; with the
// cache entry gone it can no longer be exchanged.
func (h *AuthHandler) Logout(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "please login to access this resource")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.DeleteUser(ctx, u.ID); err != nil {
		return fail(c, http.StatusInternalServerError, "logout failed")
	}
	h.clearTokenCookies(c)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "logged out successfully"})
}

// GetUserInfo returns the authenticated user.  The middleware hydrated it
// from the session cache, so this is a cache read, never a storage read.
func (h *AuthHandler) GetUserInfo(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return fail(c, http.StatusUnauthorized, "please login to access this resource")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u})
}

// SocialAuth: find-or-create by email, then establish a session.  Social
// accounts carry no password hash; credential login stays unavailable for
// them.
func (h *AuthHandler) SocialAuth(c echo.Context) error {
	var req socialAuthReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Name == "" {
		return fail(c, http.StatusBadRequest, "name and email are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		u, err = h.Users.Create(ctx, req.Name, req.Email, "", model.RoleUser, h.Cfg.BcryptCost)
		if err != nil {
			return fail(c, http.StatusInternalServerError, "create user failed")
		}
		if req.Avatar != "" {
			u.Avatar.URL = req.Avatar
			if err := h.Users.Save(ctx, &u); err != nil {
				return fail(c, http.StatusInternalServerError, "update user failed")
			}
		}
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "query failed")
	}

	return h.sendToken(c, u, http.StatusOK)
}

// sendToken caches the user snapshot, issues both tokens, sets them as
// cookies and returns the login response body.
func (h *AuthHandler) sendToken(c echo.Context, u model.User, status int) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.PutUser(ctx, u); err != nil {
		return fail(c, http.StatusInternalServerError, "save session failed")
	}
	access, err := h.Tokens.SignAccessToken(u.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "issue access failed")
	}
	refresh, err := h.Tokens.SignRefreshToken(u.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "issue refresh failed")
	}
	h.setTokenCookies(c, access, refresh)

	return c.JSON(status, echo.Map{"success": true, "user": u, "accessToken": access})
}

func (h *AuthHandler) setTokenCookies(c echo.Context, access, refresh string) {
	// secure is forced on outside local/dev execution.
	secure := h.Cfg.Env != "dev"
	c.SetCookie(&http.Cookie{
		Name:     "access_token",
		Value:    access,
		Path:     "/",
		MaxAge:   int(h.Tokens.AccessTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
	c.SetCookie(&http.Cookie{
		Name:     "refresh_token",
		Value:    refresh,
		Path:     "/",
		MaxAge:   int(h.Tokens.RefreshTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

func (h *AuthHandler) clearTokenCookies(c echo.Context) {
	for _, name := range []string{"access_token", "refresh_token"} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// fail writes the uniform error envelope.  Nothing propagates to Echo's
// default error handler.
func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"success": false, "message": msg})
}
