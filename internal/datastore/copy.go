package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
)

// DefaultCopyBatchSize is used when CopyOptions leaves BatchSize unset.
const DefaultCopyBatchSize = 500

// CopyOptions configures a copy between two stores.
type CopyOptions struct {
	BatchSize int
	// Clean deletes existing target rows before copying
	Clean bool
	// Verify compares counts and sampled rows after copying
	Verify bool
	// SampleSize is how many rows per table Verify compares field by field
	SampleSize int
}

// TableStats is the outcome of copying one table.
type TableStats struct {
	Name     string        `json:"name"`
	Copied   int64         `json:"copied"`
	Skipped  int64         `json:"skipped"`
	Failed   int64         `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// CopyStats summarizes a copy.
type CopyStats struct {
	Tables   []TableStats  `json:"tables"`
	Duration time.Duration `json:"duration"`
}

// Copier moves the catalog and sightings from one store to another,
// preserving primary keys. Rows already present in the target are skipped,
// so a copy can be rerun.
type Copier struct {
	source *Store
	target *Store
	opts   CopyOptions
}

// NewCopier validates the stores and options.
func NewCopier(source, target *Store, opts CopyOptions) (*Copier, error) {
	if source == nil || target == nil {
		return nil, validationError("source and target stores are required", "store", nil)
	}
	if source == target {
		return nil, validationError("source and target must be different stores", "store", source.dialect)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultCopyBatchSize
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = 5
	}
	return &Copier{source: source, target: target, opts: opts}, nil
}

// Run copies species first, then sightings.
func (c *Copier) Run(ctx context.Context) (*CopyStats, error) {
	start := time.Now()
	stats := &CopyStats{}
	log := GetLogger().With(
		logger.String("source", c.source.dialect),
		logger.String("target", c.target.dialect))

	// Species are copied before the sightings that reference them, so
	// foreign keys stay enforced throughout.
	if c.opts.Clean {
		if err := c.clean(c.target.DB.WithContext(ctx)); err != nil {
			return nil, err
		}
		log.Info("target tables cleaned")
	}

	species, err := copyTable[Species](ctx, c, "species")
	stats.Tables = append(stats.Tables, *species)
	if err != nil {
		return stats, err
	}
	sightings, err := copyTable[Sighting](ctx, c, "sightings")
	stats.Tables = append(stats.Tables, *sightings)
	if err != nil {
		return stats, err
	}
	stats.Duration = time.Since(start)

	if c.opts.Verify {
		if err := c.verify(ctx); err != nil {
			return stats, err
		}
		log.Info("copy verified")
	}

	log.Info("copy completed",
		logger.Int64("species", species.Copied),
		logger.Int64("sightings", sightings.Copied),
		logger.Duration("elapsed", stats.Duration))
	return stats, nil
}

// clean removes sightings before species for the foreign key.
func (c *Copier) clean(target *gorm.DB) error {
	for _, model := range []any{&Sighting{}, &Species{}} {
		if err := target.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
			return dbError(err, "clean_target", errors.PriorityHigh, "model", fmt.Sprintf("%T", model))
		}
	}
	return nil
}

// copyTable streams a table in primary key order. A failing batch is counted
// and logged, and the copy moves on to the next one.
func copyTable[T any](ctx context.Context, c *Copier, table string) (*TableStats, error) {
	start := time.Now()
	stats := &TableStats{Name: table}
	log := GetLogger().With(logger.String("table", table))

	var total int64
	if err := c.source.DB.WithContext(ctx).Model(new(T)).Count(&total).Error; err != nil {
		return stats, dbError(err, "count_source", "", "table", table)
	}
	if total == 0 {
		log.Info("no rows to copy")
		stats.Duration = time.Since(start)
		return stats, nil
	}

	target := c.target.DB.WithContext(ctx)
	var processed int64
	batches := 0
	err := c.source.DB.WithContext(ctx).Model(new(T)).
		FindInBatches(new([]T), c.opts.BatchSize, func(tx *gorm.DB, batch int) error {
			batches++
			rows := tx.Statement.Dest.(*[]T)
			n := int64(len(*rows))

			result := target.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(rows)
			if result.Error != nil {
				stats.Failed += n
				log.Warn("batch failed", logger.Int("batch", batch), logger.Error(result.Error))
				return nil
			}
			stats.Copied += result.RowsAffected
			stats.Skipped += n - result.RowsAffected
			processed += n

			if batches%10 == 0 {
				log.Info("copy progress",
					logger.Int64("processed", processed),
					logger.Int64("total", total))
			}
			return nil
		}).Error
	stats.Duration = time.Since(start)
	if err != nil {
		return stats, dbError(err, "copy_table", errors.PriorityHigh, "table", table)
	}

	log.Info("table copied",
		logger.Int64("copied", stats.Copied),
		logger.Int64("skipped", stats.Skipped),
		logger.Int64("failed", stats.Failed),
		logger.Duration("elapsed", stats.Duration))
	return stats, nil
}

// verify checks row counts, then compares the first rows of each table.
func (c *Copier) verify(ctx context.Context) error {
	for _, t := range []struct {
		name  string
		model any
	}{
		{"species", &Species{}},
		{"sightings", &Sighting{}},
	} {
		var src, dst int64
		if err := c.source.DB.WithContext(ctx).Model(t.model).Count(&src).Error; err != nil {
			return dbError(err, "verify_count", "", "table", t.name)
		}
		if err := c.target.DB.WithContext(ctx).Model(t.model).Count(&dst).Error; err != nil {
			return dbError(err, "verify_count", "", "table", t.name)
		}
		if src != dst {
			return mismatchError(t.name, "row count", src, dst)
		}
	}

	var species []Species
	if err := c.source.DB.WithContext(ctx).Order("id").Limit(c.opts.SampleSize).Find(&species).Error; err != nil {
		return dbError(err, "verify_sample", "", "table", "species")
	}
	for i := range species {
		src := &species[i]
		var dst Species
		if err := c.target.DB.WithContext(ctx).First(&dst, src.ID).Error; err != nil {
			return dbError(err, "verify_sample", "", "table", "species", "id", src.ID)
		}
		if src.CommonNameKey != dst.CommonNameKey || src.ScientificName != dst.ScientificName {
			return mismatchError("species", fmt.Sprintf("row %d", src.ID), src.CommonName, dst.CommonName)
		}
	}

	var sightings []Sighting
	if err := c.source.DB.WithContext(ctx).Order("id").Limit(c.opts.SampleSize).Find(&sightings).Error; err != nil {
		return dbError(err, "verify_sample", "", "table", "sightings")
	}
	for i := range sightings {
		src := &sightings[i]
		var dst Sighting
		if err := c.target.DB.WithContext(ctx).First(&dst, "id = ?", src.ID).Error; err != nil {
			return dbError(err, "verify_sample", "", "table", "sightings", "id", src.ID)
		}
		if src.SpeciesID != dst.SpeciesID || src.Lat != dst.Lat || src.Lon != dst.Lon || !src.TakenAt.Equal(dst.TakenAt) {
			return mismatchError("sightings", "row "+src.ID, src.SpeciesID, dst.SpeciesID)
		}
	}
	return nil
}

func mismatchError(table, what string, src, dst any) error {
	return errors.Newf("%s %s mismatch: source %v, target %v", table, what, src, dst).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", "verify_copy").
		Context("table", table).
		Build()
}
