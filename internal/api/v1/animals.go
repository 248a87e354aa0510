// internal/api/v1/animals.go
package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/animals"
)

// NameValidationRequest is the body of POST /v1/animals/validate-name.
type NameValidationRequest struct {
	Name string `json:"name"`
}

// NameValidationResponse echoes the name with the verdict.
type NameValidationResponse struct {
	Name    string `json:"name"`
	IsValid bool   `json:"is_valid"`
}

func (c *Controller) initAnimalRoutes() {
	g := c.Group.Group("/animals")
	g.POST("/validate-name", c.ValidateAnimalName)
	g.GET("/suggest/:query", c.SuggestAnimalNames)
}

// ValidateAnimalName handles POST /v1/animals/validate-name
func (c *Controller) ValidateAnimalName(ctx echo.Context) error {
	var body NameValidationRequest
	if err := ctx.Bind(&body); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	valid, err := c.deps.Validator.Validate(ctx.Request().Context(), body.Name)
	if err != nil {
		return c.HandleError(ctx, err, "Animal name validation failed", statusFor(err))
	}

	return ctx.JSON(http.StatusOK, NameValidationResponse{
		Name:    body.Name,
		IsValid: valid,
	})
}

// SuggestAnimalNames handles GET /v1/animals/suggest/:query and returns a
// JSON array of close matches, possibly empty.
func (c *Controller) SuggestAnimalNames(ctx echo.Context) error {
	query, err := url.PathUnescape(ctx.Param("query"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid query", http.StatusBadRequest)
	}

	suggestions := c.deps.Suggester.Suggest(strings.TrimSpace(query), animals.DefaultSuggestionLimit)
	if suggestions == nil {
		suggestions = []string{}
	}
	return ctx.JSON(http.StatusOK, suggestions)
}
