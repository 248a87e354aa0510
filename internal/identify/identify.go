// Package identify runs the identification pipeline: classify the media,
// look the label up in the encyclopedia, then register the species.
package identify

import (
	"context"
	"strings"
	"time"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/classifier"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/observability/metrics"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/wikipedia"
)

// Classifier turns media into a single label or classifier.Sentinel.
type Classifier interface {
	Classify(ctx context.Context, req classifier.Request) (string, error)
}

// Resolver looks a label up in the encyclopedia.
type Resolver interface {
	Resolve(ctx context.Context, name string) (wikipedia.Enrichment, error)
}

// Registrar maps a label to a stable species ID.
type Registrar interface {
	GetOrCreate(ctx context.Context, label string, e *wikipedia.Enrichment) (*uint, error)
}

// Outcome is the pipeline result. A sentinel label never carries a species
// ID or encyclopedia data.
type Outcome struct {
	Label     string                `json:"label"`
	SpeciesID *uint                 `json:"species_id"`
	WikiData  *wikipedia.Enrichment `json:"wiki_data"`
}

// Failed reports whether the classifier could not identify the subject.
func (o *Outcome) Failed() bool {
	return o.Label == classifier.Sentinel
}

// Service wires the pipeline stages together.
type Service struct {
	classifier Classifier
	resolver   Resolver
	registrar  Registrar
	recorder   metrics.Recorder
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder records per-stage metrics.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// New creates a Service over the given stages.
func New(c Classifier, r Resolver, reg Registrar, opts ...Option) *Service {
	s := &Service{
		classifier: c,
		resolver:   r,
		registrar:  reg,
		recorder:   metrics.NopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Identify runs the pipeline for req. Classifier failures are returned as
// errors. Resolver and registrar failures are logged and degrade the outcome:
// an empty Enrichment or a nil species ID.
func (s *Service) Identify(ctx context.Context, req classifier.Request) (*Outcome, error) {
	start := time.Now()
	log := GetLogger().WithContext(ctx).With(logger.String("modality", string(req.Modality)))

	label, err := s.classify(ctx, req)
	if err != nil {
		s.recorder.RecordOperation(metrics.OpIdentify, metrics.StatusError)
		return nil, err
	}

	if strings.EqualFold(label, classifier.Sentinel) {
		log.Info("subject could not be identified")
		s.recorder.RecordOperation(metrics.OpIdentify, metrics.StatusSentinel)
		s.recorder.RecordDuration(metrics.OpIdentify, time.Since(start).Seconds())
		return &Outcome{Label: classifier.Sentinel}, nil
	}

	degraded := false
	enrichment, err := s.resolve(ctx, label)
	if err != nil {
		degraded = true
		log.Warn("encyclopedia lookup failed, continuing without it",
			logger.String("label", label),
			logger.String("category", category(err)),
			logger.Error(err))
		enrichment = wikipedia.Empty()
	}

	speciesID, err := s.register(ctx, label, &enrichment)
	if err != nil {
		degraded = true
		log.Error("species registration failed, continuing without an ID",
			logger.String("label", label),
			logger.Error(err))
		speciesID = nil
	}

	status := metrics.StatusSuccess
	if degraded {
		status = metrics.StatusDegraded
	}
	s.recorder.RecordOperation(metrics.OpIdentify, status)
	s.recorder.RecordDuration(metrics.OpIdentify, time.Since(start).Seconds())

	fields := []logger.Field{
		logger.String("label", label),
		logger.Bool("encyclopedia_hit", enrichment.Found()),
		logger.Duration("elapsed", time.Since(start)),
	}
	if speciesID != nil {
		fields = append(fields, logger.Uint64("species_id", uint64(*speciesID)))
	}
	log.Info("identification completed", fields...)

	return &Outcome{
		Label:     label,
		SpeciesID: speciesID,
		WikiData:  &enrichment,
	}, nil
}

func (s *Service) classify(ctx context.Context, req classifier.Request) (string, error) {
	defer s.timeStage(metrics.OpClassify, time.Now())

	label, err := s.classifier.Classify(ctx, req)
	if err != nil {
		s.recorder.RecordError(metrics.OpClassify, category(err))
		return "", err
	}
	label = strings.TrimSpace(label)
	if label == "" {
		// Classifier implementations must not return an empty label
		err := errors.Newf("classifier returned an empty label").
			Component("identify").
			Category(errors.CategoryUpstream).
			Context("operation", "classify").
			Build()
		s.recorder.RecordError(metrics.OpClassify, category(err))
		return "", err
	}
	s.recorder.RecordOperation(metrics.OpClassify, metrics.StatusSuccess)
	return label, nil
}

func (s *Service) resolve(ctx context.Context, label string) (wikipedia.Enrichment, error) {
	defer s.timeStage(metrics.OpResolve, time.Now())

	e, err := s.resolver.Resolve(ctx, label)
	if err != nil {
		s.recorder.RecordError(metrics.OpResolve, category(err))
		return wikipedia.Empty(), err
	}
	if e.OtherSources == nil {
		e.OtherSources = []string{}
	}
	if e.Found() {
		s.recorder.RecordOperation(metrics.OpResolve, metrics.StatusHit)
	} else {
		s.recorder.RecordOperation(metrics.OpResolve, metrics.StatusMiss)
	}
	return e, nil
}

func (s *Service) register(ctx context.Context, label string, e *wikipedia.Enrichment) (*uint, error) {
	defer s.timeStage(metrics.OpRegister, time.Now())

	id, err := s.registrar.GetOrCreate(ctx, label, e)
	if err != nil {
		s.recorder.RecordError(metrics.OpRegister, category(err))
		return nil, err
	}
	s.recorder.RecordOperation(metrics.OpRegister, metrics.StatusSuccess)
	return id, nil
}

func (s *Service) timeStage(stage string, start time.Time) {
	s.recorder.RecordDuration(stage, time.Since(start).Seconds())
}

// category returns the error category label used in metrics and logs.
func category(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return string(ee.Category)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return string(errors.CategoryCancellation)
	}
	return string(errors.CategoryGeneric)
}

// GetLogger returns the identify module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("identify")
}
