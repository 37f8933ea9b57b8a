package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/course-marketplace/internal/cache"
	"github.com/iliyamo/course-marketplace/internal/handler"    // handlers that implement business logic
	"github.com/iliyamo/course-marketplace/internal/middleware" // JWT authentication and role enforcement
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/token"
)

// RegisterRoutes registers routes that do not belong to the versioned API.
// Currently it exposes only a health check for load balancers and monitors.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI mounts the full /api/v1 surface.  Three tiers: public routes,
// routes behind Authenticate (valid access token + live session), and admin
// routes additionally behind RequireRole.
func RegisterAPI(e *echo.Echo, a *handler.AuthHandler, u *handler.UserHandler, ch *handler.CourseHandler,
	o *handler.OrderHandler, issuer token.Issuer, sessions *cache.Store) {
	api := e.Group("/api/v1")

	// Session lifecycle endpoints that establish or exchange credentials.
	api.POST("/register", a.Register)
	api.POST("/activate", a.Activate)
	api.POST("/login", a.Login)
	api.POST("/social-auth", a.SocialAuth)
	// Refresh authenticates with the refresh cookie, not the middleware.
	api.GET("/refresh", a.Refresh)

	// Public catalog reads (read-through cached, sanitized).
	api.GET("/course", ch.GetAll)
	api.GET("/course/:id", ch.GetOne)

	// Everything below requires a valid access token and a live session.
	auth := api.Group("", middleware.Authenticate(issuer, sessions))
	auth.GET("/logout", a.Logout)
	auth.GET("/user", a.GetUserInfo)
	auth.PUT("/user", u.UpdateInfo)
	auth.PUT("/user/password", u.UpdatePassword)
	auth.PUT("/user/avatar", u.UpdateAvatar)
	auth.GET("/course/content/:id", ch.GetContent)
	auth.PUT("/question", ch.AddQuestion)
	auth.PUT("/answer", ch.AddAnswer)
	auth.PUT("/review/:id", ch.AddReview)
	auth.POST("/order", o.Create)

	// Catalog management is admin-only.
	admin := auth.Group("", middleware.RequireRole(model.RoleAdmin))
	admin.POST("/course", ch.Create)
	admin.PUT("/course/:id", ch.Edit)
	admin.PUT("/reply", ch.AddReviewReply)
}
