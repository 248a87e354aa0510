package datastore

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
)

const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
)

// SpeciesRepository provides access to the species catalog.
type SpeciesRepository interface {
	// FindByCommonName looks a species up by its case-folded common name.
	// Returns ErrSpeciesNotFound when there is no such row.
	FindByCommonName(ctx context.Context, commonName string) (*Species, error)

	// GetOrCreate returns the row sharing candidate's common name key, or
	// inserts candidate. created reports whether this call inserted it.
	// Existing rows are never modified.
	GetOrCreate(ctx context.Context, candidate *Species) (species *Species, created bool, err error)

	// GetByID retrieves a species by primary key.
	GetByID(ctx context.Context, id uint) (*Species, error)

	// Search matches q case-insensitively against common and scientific names.
	Search(ctx context.Context, q string, limit int) ([]Species, error)

	// Count returns the number of catalog rows.
	Count(ctx context.Context) (int64, error)
}

type speciesRepository struct {
	db *gorm.DB
}

// NewSpeciesRepository creates a SpeciesRepository backed by db.
func NewSpeciesRepository(db *gorm.DB) SpeciesRepository {
	return &speciesRepository{db: db}
}

func (r *speciesRepository) findByKey(ctx context.Context, key string) (*Species, error) {
	var species Species
	err := r.db.WithContext(ctx).
		Where("common_name_key = ?", key).
		First(&species).Error
	if err != nil {
		return nil, err
	}
	return &species, nil
}

func (r *speciesRepository) FindByCommonName(ctx context.Context, commonName string) (*Species, error) {
	key := NormalizeCommonName(commonName)
	if key == "" {
		return nil, validationError("common name is empty", "common_name", commonName)
	}

	species, err := r.findByKey(ctx, key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(ErrSpeciesNotFound, "find_species_by_name", commonName)
	}
	if err != nil {
		return nil, dbError(err, "find_species_by_name", errors.PriorityMedium, "common_name", commonName)
	}
	return species, nil
}

func (r *speciesRepository) GetOrCreate(ctx context.Context, candidate *Species) (*Species, bool, error) {
	if candidate == nil || strings.TrimSpace(candidate.CommonName) == "" {
		return nil, false, validationError("common name is empty", "common_name", "")
	}
	key := NormalizeCommonName(candidate.CommonName)

	existing, err := r.findByKey(ctx, key)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, dbError(err, "lookup_species", errors.PriorityMedium, "common_name_key", key)
	}

	row := *candidate
	row.ID = 0
	row.CommonNameKey = key
	if row.ScientificName == "" {
		row.ScientificName = row.CommonName
	}

	createErr := r.db.WithContext(ctx).Create(&row).Error
	if createErr == nil {
		return &row, true, nil
	}

	// Another writer may have inserted the same key between our lookup and
	// create. Re-read; if nothing is there the create failed for another reason.
	existing, findErr := r.findByKey(ctx, key)
	if findErr != nil {
		return nil, false, dbError(createErr, "create_species", errors.PriorityHigh,
			"common_name_key", key,
			"unique_violation", IsUniqueViolation(createErr))
	}

	GetLogger().Debug("species insert lost a race, using existing row",
		logger.String("common_name_key", key),
		logger.Uint64("species_id", uint64(existing.ID)))
	return existing, false, nil
}

func (r *speciesRepository) GetByID(ctx context.Context, id uint) (*Species, error) {
	var species Species
	err := r.db.WithContext(ctx).First(&species, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(ErrSpeciesNotFound, "get_species", id)
	}
	if err != nil {
		return nil, dbError(err, "get_species", errors.PriorityMedium, "species_id", id)
	}
	return &species, nil
}

func (r *speciesRepository) Search(ctx context.Context, q string, limit int) ([]Species, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, validationError("search query is empty", "q", q)
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	pattern := "%" + escapeLike(strings.ToLower(q)) + "%"
	var results []Species
	err := r.db.WithContext(ctx).
		Where("LOWER(common_name) LIKE ? ESCAPE '!' OR LOWER(scientific_name) LIKE ? ESCAPE '!'", pattern, pattern).
		Order("common_name ASC").
		Limit(limit).
		Find(&results).Error
	if err != nil {
		return nil, dbError(err, "search_species", errors.PriorityLow, "query", q)
	}
	return results, nil
}

func (r *speciesRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&Species{}).Count(&count).Error; err != nil {
		return 0, dbError(err, "count_species", errors.PriorityLow)
	}
	return count, nil
}

// escapeLike escapes LIKE wildcards using '!' as the escape character.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
