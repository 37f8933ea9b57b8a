package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/course-marketplace/internal/cache"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/token"
)

// userContextKey is where Authenticate stores the hydrated user.
const userContextKey = "user"

// Authenticate returns an Echo middleware that validates the access token
// (access_token cookie, or Authorization: Bearer for non-browser clients)
// and hydrates the request user from the session cache.  No storage read
// happens here: the cached snapshot is the source of truth for the request
// pipeline.  A valid token without a live cache entry is treated as an
// expired session and rejected so the client falls back to login.
func Authenticate(issuer token.Issuer, sessions *cache.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := ""
			if ck, err := c.Cookie("access_token"); err == nil && ck.Value != "" {
				raw = ck.Value
			} else if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				raw = strings.TrimPrefix(auth, "Bearer ")
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "please login to access this resource"})
			}

			userID, err := issuer.VerifyAccessToken(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "access token is not valid"})
			}

			u, ok, err := sessions.GetUser(c.Request().Context(), userID)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "message": "session lookup failed"})
			}
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "session expired, please login again"})
			}

			c.Set(userContextKey, u)
			return next(c)
		}
	}
}

// CurrentUser returns the user hydrated by Authenticate.  The boolean is
// false when the middleware did not run on this route.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(userContextKey).(model.User)
	return u, ok
}

// SetCurrentUser makes a user available to downstream handlers.  Used by
// the refresh endpoint, which authenticates via refresh token instead of
// the Authenticate middleware.
func SetCurrentUser(c echo.Context, u model.User) {
	c.Set(userContextKey, u)
}
