// Package registry maps classifier labels onto stable species IDs.
package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/classifier"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/datastore"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/wikipedia"
)

// registerTimeout bounds a collapsed insert, which outlives any one caller.
const registerTimeout = 10 * time.Second

// Registrar get-or-creates species rows for labels.
type Registrar struct {
	species datastore.SpeciesRepository
	group   singleflight.Group
}

// New creates a Registrar over repo.
func New(repo datastore.SpeciesRepository) *Registrar {
	return &Registrar{species: repo}
}

// GetOrCreate returns the ID of the species registered under label,
// creating it from e when absent. Blank labels and the classifier sentinel
// return nil without touching storage. An existing row is returned as is,
// even when e carries newer data.
func (r *Registrar) GetOrCreate(ctx context.Context, label string, e *wikipedia.Enrichment) (*uint, error) {
	label = strings.TrimSpace(label)
	if label == "" || strings.EqualFold(label, classifier.Sentinel) {
		return nil, nil
	}

	key := datastore.NormalizeCommonName(label)
	row := candidate(label, e)
	// The insert runs detached so one caller leaving does not fail the
	// others waiting on the same key.
	ch := r.group.DoChan(key, func() (any, error) {
		workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), registerTimeout)
		defer cancel()
		species, created, err := r.species.GetOrCreate(workCtx, row)
		if err != nil {
			return nil, err
		}
		if created {
			GetLogger().Info("registered new species",
				logger.String("common_name", species.CommonName),
				logger.Uint64("species_id", uint64(species.ID)))
		}
		return species.ID, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res = singleflight.Result{Err: ctx.Err()}
	}
	v, err, shared := res.Val, res.Err, res.Shared
	if err != nil {
		return nil, errors.New(fmt.Errorf("register species %q: %w", label, err)).
			Component("registry").
			Category(errors.CategoryRegistry).
			Context("common_name_key", key).
			Build()
	}
	if shared {
		GetLogger().Debug("collapsed concurrent registration", logger.String("common_name_key", key))
	}

	id := v.(uint)
	return &id, nil
}

// candidate builds the row inserted for a new label.
func candidate(label string, e *wikipedia.Enrichment) *datastore.Species {
	s := &datastore.Species{
		CommonName:     label,
		ScientificName: label,
	}
	if e == nil {
		return s
	}
	if e.EnglishName != nil && strings.TrimSpace(*e.EnglishName) != "" {
		s.ScientificName = strings.TrimSpace(*e.EnglishName)
	}
	s.Description = e.Description
	if len(e.OtherSources) > 0 {
		s.Sources = datastore.SourceList(append([]string(nil), e.OtherSources...))
	}
	return s
}

// GetLogger returns the registry module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("registry")
}
