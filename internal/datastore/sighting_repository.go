package datastore

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
)

// MaxSightingsPerPage caps List results.
const MaxSightingsPerPage = 100

// BoundingBox is a lat/lon rectangle. West > East is not supported.
type BoundingBox struct {
	West, South, East, North float64
}

// Validate checks coordinate ranges and ordering.
func (b BoundingBox) Validate() error {
	switch {
	case b.West < -180 || b.East > 180 || b.South < -90 || b.North > 90:
		return validationError("bounding box out of range", "bbox", b)
	case b.West > b.East || b.South > b.North:
		return validationError("bounding box corners are reversed", "bbox", b)
	}
	return nil
}

// SightingFilter narrows List. Zero values mean no filter.
type SightingFilter struct {
	BBox      *BoundingBox
	Since     *time.Time
	SpeciesID *uint
	Limit     int
}

// SightingRepository provides access to sightings.
type SightingRepository interface {
	// Create assigns an ID when empty and inserts the sighting. The species
	// must exist.
	Create(ctx context.Context, sighting *Sighting) error
	GetByID(ctx context.Context, id string) (*Sighting, error)
	// List returns sightings newest first.
	List(ctx context.Context, filter SightingFilter) ([]Sighting, error)
	// UserStats summarizes the sightings recorded under username. A user
	// with no sightings gets zero counts, not an error.
	UserStats(ctx context.Context, username string) (*UserStats, error)
}

// Flashcard is one species a user has seen.
type Flashcard struct {
	SpeciesID    uint      `json:"species_id"`
	SpeciesName  string    `json:"species_name"`
	FirstSeen    time.Time `json:"first_seen"`
	NumSightings int64     `json:"num_sightings"`
}

// UserStats is the per-user summary. Flashcards are ordered by species name.
type UserStats struct {
	Username       string      `json:"username"`
	TotalSightings int64       `json:"total_sightings"`
	TotalSpecies   int64       `json:"total_species"`
	Flashcards     []Flashcard `json:"flashcards"`
}

type sightingRepository struct {
	db *gorm.DB
}

// NewSightingRepository creates a SightingRepository backed by db.
func NewSightingRepository(db *gorm.DB) SightingRepository {
	return &sightingRepository{db: db}
}

func (r *sightingRepository) Create(ctx context.Context, sighting *Sighting) error {
	if sighting == nil {
		return validationError("sighting is nil", "sighting", nil)
	}
	if sighting.Lat < -90 || sighting.Lat > 90 {
		return validationError("latitude out of range", "lat", sighting.Lat)
	}
	if sighting.Lon < -180 || sighting.Lon > 180 {
		return validationError("longitude out of range", "lon", sighting.Lon)
	}

	var exists int64
	if err := r.db.WithContext(ctx).Model(&Species{}).Where("id = ?", sighting.SpeciesID).Count(&exists).Error; err != nil {
		return dbError(err, "check_species", errors.PriorityMedium, "species_id", sighting.SpeciesID)
	}
	if exists == 0 {
		return notFoundError(ErrSpeciesNotFound, "create_sighting", sighting.SpeciesID)
	}

	if sighting.ID == "" {
		sighting.ID = uuid.NewString()
	}
	if sighting.TakenAt.IsZero() {
		sighting.TakenAt = time.Now()
	}
	// Stored in UTC so text timestamps in SQLite compare in order
	sighting.TakenAt = sighting.TakenAt.UTC()

	if err := r.db.WithContext(ctx).Omit("Species").Create(sighting).Error; err != nil {
		return dbError(err, "create_sighting", errors.PriorityHigh, "species_id", sighting.SpeciesID)
	}
	return nil
}

func (r *sightingRepository) GetByID(ctx context.Context, id string) (*Sighting, error) {
	var sighting Sighting
	err := r.db.WithContext(ctx).Preload("Species").Where("id = ?", id).First(&sighting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(ErrSightingNotFound, "get_sighting", id)
	}
	if err != nil {
		return nil, dbError(err, "get_sighting", errors.PriorityMedium, "sighting_id", id)
	}
	return &sighting, nil
}

func (r *sightingRepository) List(ctx context.Context, filter SightingFilter) ([]Sighting, error) {
	limit := filter.Limit
	if limit <= 0 || limit > MaxSightingsPerPage {
		limit = MaxSightingsPerPage
	}

	query := r.db.WithContext(ctx).Model(&Sighting{})
	if filter.BBox != nil {
		if err := filter.BBox.Validate(); err != nil {
			return nil, err
		}
		query = query.
			Where("lat BETWEEN ? AND ?", filter.BBox.South, filter.BBox.North).
			Where("lon BETWEEN ? AND ?", filter.BBox.West, filter.BBox.East)
	}
	if filter.Since != nil {
		query = query.Where("taken_at >= ?", filter.Since.UTC())
	}
	if filter.SpeciesID != nil {
		query = query.Where("species_id = ?", *filter.SpeciesID)
	}

	var sightings []Sighting
	err := query.
		Order("taken_at DESC").
		Limit(limit).
		Find(&sightings).Error
	if err != nil {
		return nil, dbError(err, "list_sightings", errors.PriorityLow)
	}
	return sightings, nil
}

func (r *sightingRepository) UserStats(ctx context.Context, username string) (*UserStats, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, validationError("username is empty", "username", username)
	}

	// Aggregated in Go: SQLite returns MIN over a timestamp column as text.
	var rows []Sighting
	err := r.db.WithContext(ctx).
		Select("species_id", "taken_at").
		Where("username = ?", username).
		Order("taken_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, dbError(err, "user_sightings", errors.PriorityLow, "username", username)
	}

	stats := &UserStats{
		Username:       username,
		TotalSightings: int64(len(rows)),
		Flashcards:     []Flashcard{},
	}
	if len(rows) == 0 {
		return stats, nil
	}

	cards := make(map[uint]*Flashcard)
	ids := make([]uint, 0)
	for _, row := range rows {
		card, ok := cards[row.SpeciesID]
		if !ok {
			card = &Flashcard{SpeciesID: row.SpeciesID, FirstSeen: row.TakenAt}
			cards[row.SpeciesID] = card
			ids = append(ids, row.SpeciesID)
		}
		card.NumSightings++
	}

	var species []Species
	if err := r.db.WithContext(ctx).Select("id", "common_name").Where("id IN ?", ids).Find(&species).Error; err != nil {
		return nil, dbError(err, "user_species", errors.PriorityLow, "username", username)
	}
	for _, s := range species {
		cards[s.ID].SpeciesName = s.CommonName
	}

	stats.TotalSpecies = int64(len(ids))
	for _, id := range ids {
		stats.Flashcards = append(stats.Flashcards, *cards[id])
	}
	slices.SortFunc(stats.Flashcards, func(a, b Flashcard) int {
		return cmp.Or(
			cmp.Compare(strings.ToLower(a.SpeciesName), strings.ToLower(b.SpeciesName)),
			cmp.Compare(a.SpeciesID, b.SpeciesID),
		)
	})
	return stats, nil
}
