// internal/api/v1/sightings.go
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/datastore"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
)

var requestValidator = validator.New()

// CreateSightingRequest is the body of POST /v1/sightings.
type CreateSightingRequest struct {
	SpeciesID uint       `json:"species_id" validate:"required"`
	Lat       *float64   `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon       *float64   `json:"lon" validate:"required,gte=-180,lte=180"`
	Username  *string    `json:"username" validate:"omitempty,max=100"`
	IsPrivate bool       `json:"is_private"`
	Caption   *string    `json:"caption"`
	MediaURL  *string    `json:"media_url" validate:"omitempty,url,max=1024"`
	AudioURL  *string    `json:"audio_url" validate:"omitempty,url,max=1024"`
	TakenAt   *time.Time `json:"taken_at"`
}

// SightingList is the list response.
type SightingList struct {
	Items []datastore.Sighting `json:"items"`
}

func (c *Controller) initSightingRoutes() {
	g := c.Group.Group("/sightings")
	g.GET("", c.ListSightings)
	g.POST("", c.CreateSighting)
	g.GET("/:id", c.GetSighting)
}

// CreateSighting handles POST /v1/sightings
func (c *Controller) CreateSighting(ctx echo.Context) error {
	var req CreateSightingRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	if err := requestValidator.Struct(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid sighting", http.StatusBadRequest)
	}

	sighting := &datastore.Sighting{
		SpeciesID: req.SpeciesID,
		Username:  req.Username,
		Lat:       *req.Lat,
		Lon:       *req.Lon,
		IsPrivate: req.IsPrivate,
		Caption:   req.Caption,
		MediaURL:  req.MediaURL,
		AudioURL:  req.AudioURL,
	}
	if req.TakenAt != nil {
		sighting.TakenAt = *req.TakenAt
	}

	if err := c.deps.Sightings.Create(ctx.Request().Context(), sighting); err != nil {
		if errors.IsNotFound(err) {
			return c.HandleError(ctx, err, "Species not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "Failed to create sighting", statusFor(err))
	}

	GetLogger().WithContext(ctx.Request().Context()).Info("sighting recorded")
	return ctx.JSON(http.StatusCreated, sighting)
}

// ListSightings handles GET /v1/sightings?bbox=w,s,e,n&since=&species_id=
func (c *Controller) ListSightings(ctx echo.Context) error {
	bbox, err := parseBoundingBox(ctx.QueryParam("bbox"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid bbox, expected west,south,east,north", http.StatusBadRequest)
	}
	filter := datastore.SightingFilter{BBox: bbox}

	if raw := ctx.QueryParam("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.HandleError(ctx, err, "Invalid since, expected an RFC 3339 timestamp", http.StatusBadRequest)
		}
		filter.Since = &since
	}

	if raw := ctx.QueryParam("species_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 0)
		if err != nil {
			return c.HandleError(ctx, err, "Invalid species_id", http.StatusBadRequest)
		}
		speciesID := uint(id)
		filter.SpeciesID = &speciesID
	}

	items, err := c.deps.Sightings.List(ctx.Request().Context(), filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list sightings", statusFor(err))
	}
	if items == nil {
		items = []datastore.Sighting{}
	}
	return ctx.JSON(http.StatusOK, SightingList{Items: items})
}

// GetSighting handles GET /v1/sightings/:id
func (c *Controller) GetSighting(ctx echo.Context) error {
	sighting, err := c.deps.Sightings.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.IsNotFound(err) {
			return c.HandleError(ctx, err, "Sighting not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "Failed to load sighting", statusFor(err))
	}
	return ctx.JSON(http.StatusOK, sighting)
}

// parseBoundingBox parses "west,south,east,north".
func parseBoundingBox(raw string) (*datastore.BoundingBox, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox needs 4 comma separated values, got %d", len(parts))
	}

	var coords [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bbox value %d: %w", i+1, err)
		}
		coords[i] = v
	}

	bbox := &datastore.BoundingBox{West: coords[0], South: coords[1], East: coords[2], North: coords[3]}
	if err := bbox.Validate(); err != nil {
		return nil, err
	}
	return bbox, nil
}
