// internal/api/v1/species.go
package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/datastore"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/wikipedia"
)

// SpeciesList is the search response.
type SpeciesList struct {
	Items []datastore.Species `json:"items"`
}

// SpeciesDetails is the live encyclopedia view of a name.
type SpeciesDetails struct {
	Species string `json:"species"`
	wikipedia.Enrichment
}

func (c *Controller) initSpeciesRoutes() {
	g := c.Group.Group("/species")
	g.GET("", c.SearchSpecies)
	g.GET("/id/:id", c.GetSpeciesByID)
	g.GET("/:name", c.GetSpeciesDetails)
}

// SearchSpecies handles GET /v1/species?q=&limit=
func (c *Controller) SearchSpecies(ctx echo.Context) error {
	q := strings.TrimSpace(ctx.QueryParam("q"))
	if q == "" {
		return c.HandleError(ctx, nil, "Query parameter q is required", http.StatusBadRequest)
	}

	limit := datastore.DefaultSearchLimit
	if raw := ctx.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > datastore.MaxSearchLimit {
			return c.HandleError(ctx, err,
				"limit must be an integer between 1 and "+strconv.Itoa(datastore.MaxSearchLimit),
				http.StatusBadRequest)
		}
		limit = n
	}

	items, err := c.deps.Species.Search(ctx.Request().Context(), q, limit)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to search species", statusFor(err))
	}
	if items == nil {
		items = []datastore.Species{}
	}
	return ctx.JSON(http.StatusOK, SpeciesList{Items: items})
}

// GetSpeciesByID handles GET /v1/species/id/:id
func (c *Controller) GetSpeciesByID(ctx echo.Context) error {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 0)
	if err != nil || id == 0 {
		return c.HandleError(ctx, err, "Invalid species ID", http.StatusBadRequest)
	}

	species, err := c.deps.Species.GetByID(ctx.Request().Context(), uint(id))
	if err != nil {
		if errors.IsNotFound(err) {
			return c.HandleError(ctx, err, "Species not found", http.StatusNotFound)
		}
		return c.HandleError(ctx, err, "Failed to load species", statusFor(err))
	}
	return ctx.JSON(http.StatusOK, species)
}

// GetSpeciesDetails handles GET /v1/species/:name. The encyclopedia is
// queried live; nothing is written to the catalog.
func (c *Controller) GetSpeciesDetails(ctx echo.Context) error {
	name, err := url.PathUnescape(ctx.Param("name"))
	if err != nil {
		return c.HandleError(ctx, err, "Invalid species name", http.StatusBadRequest)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return c.HandleError(ctx, nil, "Species name is required", http.StatusBadRequest)
	}

	enrichment, err := c.deps.Resolver.Resolve(ctx.Request().Context(), name)
	if err != nil {
		return c.HandleError(ctx, err, "Encyclopedia lookup failed", statusFor(err))
	}
	if enrichment.OtherSources == nil {
		enrichment.OtherSources = []string{}
	}

	return ctx.JSON(http.StatusOK, SpeciesDetails{
		Species:    name,
		Enrichment: enrichment,
	})
}
