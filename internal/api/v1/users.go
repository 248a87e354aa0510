// internal/api/v1/users.go
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (c *Controller) initUserRoutes() {
	c.Group.GET("/users/:username", c.GetUserStats)
}

// GetUserStats handles GET /v1/users/:username
func (c *Controller) GetUserStats(ctx echo.Context) error {
	stats, err := c.deps.Sightings.UserStats(ctx.Request().Context(), ctx.Param("username"))
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load user stats", statusFor(err))
	}
	return ctx.JSON(http.StatusOK, stats)
}
