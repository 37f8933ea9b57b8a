package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports that the API is up.  Used by load balancers and monitors.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "API is working"})
}
