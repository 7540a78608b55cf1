// Package recalc re-runs the scoring pipeline over persisted submissions and
// replaces stored results.
package recalc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/MikeSquared-Agency/Tally/internal/hermes"
	"github.com/MikeSquared-Agency/Tally/internal/metrics"
	"github.com/MikeSquared-Agency/Tally/internal/scoring"
	"github.com/MikeSquared-Agency/Tally/internal/store"
)

const (
	defaultWorkers      = 4
	defaultStoreTimeout = 5 * time.Second
)

// Options tunes the coordinator. Zero values pick defaults; OpsPerSecond <= 0
// disables store throttling.
type Options struct {
	Workers      int
	StoreTimeout time.Duration
	OpsPerSecond float64
}

type Coordinator struct {
	store   store.Store
	engine  *scoring.Engine
	hermes  hermes.Client
	opts    Options
	limiter *rate.Limiter
	locks   *keyLock
	tracer  trace.Tracer
	logger  *slog.Logger
}

func New(s store.Store, engine *scoring.Engine, h hermes.Client, opts Options, logger *slog.Logger) *Coordinator {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if h == nil {
		h = hermes.NopClient{}
	}

	c := &Coordinator{
		store:  s,
		engine: engine,
		hermes: h,
		opts:   opts,
		locks:  newKeyLock(),
		tracer: otel.Tracer("tally/recalc"),
		logger: logger,
	}
	if opts.OpsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.OpsPerSecond), max(1, int(opts.OpsPerSecond)))
	}
	return c
}

// RecalculateOne re-scores the latest submission of a respondent and replaces
// the stored result. Calls for the same respondent run one at a time.
func (c *Coordinator) RecalculateOne(ctx context.Context, respondentID string) (*scoring.AssessmentResult, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.RecalculateOne",
		trace.WithAttributes(attribute.String("respondent.id", respondentID)))
	defer span.End()

	result, err := c.recalculate(ctx, respondentID)
	metrics.RecordRecalcOutcome(outcomeLabel(err))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Float64("result.overall", result.Overall),
		attribute.Bool("result.complete", result.Complete),
	)
	return result, nil
}

func (c *Coordinator) recalculate(ctx context.Context, respondentID string) (*scoring.AssessmentResult, error) {
	unlock, err := c.locks.Lock(ctx, respondentID)
	if err != nil {
		return nil, fmt.Errorf("wait for respondent %s: %w", respondentID, err)
	}
	defer unlock()

	var sub *scoring.Submission
	err = c.storeCall(ctx, func(ctx context.Context) error {
		var err error
		sub, err = c.store.GetSubmission(ctx, respondentID)
		return err
	})
	switch {
	case errors.Is(err, store.ErrMalformedRecord):
		return nil, &scoring.PartialDataError{RespondentID: respondentID, Reason: "malformed stored submission", Err: err}
	case err != nil:
		return nil, fmt.Errorf("load submission %s: %w", respondentID, err)
	case sub == nil:
		return nil, fmt.Errorf("respondent %s: %w", respondentID, scoring.ErrNotFound)
	}

	if len(sub.Responses) == 0 {
		return nil, &scoring.PartialDataError{RespondentID: respondentID, Reason: "missing responses"}
	}
	if len(sub.Demographics) == 0 {
		return nil, &scoring.PartialDataError{RespondentID: respondentID, Reason: "missing demographics"}
	}

	result := c.engine.Score(*sub)

	err = c.storeCall(ctx, func(ctx context.Context) error {
		return c.store.ReplaceResult(ctx, result)
	})
	if err != nil {
		return nil, fmt.Errorf("replace result %s: %w", respondentID, err)
	}

	c.publishResult(result)
	return result, nil
}

// storeCall throttles and bounds one store operation.
func (c *Coordinator) storeCall(ctx context.Context, fn func(context.Context) error) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.StoreTimeout)
	defer cancel()
	return fn(ctx)
}

func (c *Coordinator) publishResult(r *scoring.AssessmentResult) {
	evt := hermes.ResultRecalculatedEvent{
		ResultID:       r.ID.String(),
		RespondentID:   r.RespondentID,
		Attempt:        r.Attempt,
		Overall:        r.Overall,
		Complete:       r.Complete,
		ProfileID:      r.Profile.ID,
		CatalogVersion: r.CatalogVersion,
		ScoredAt:       r.ScoredAt,
	}
	if err := c.hermes.Publish(hermes.SubjectResultRecalculated(r.RespondentID), evt); err != nil {
		c.logger.Warn("failed to publish recalculated event", "respondent", r.RespondentID, "error", err)
	}

	if w := r.Warning; w != nil {
		warn := hermes.IntegrityWarningEvent{
			RespondentID:  r.RespondentID,
			Attempt:       r.Attempt,
			Canonical:     w.Canonical,
			WeightedShare: w.WeightedShare,
			Delta:         w.Delta,
			Tolerance:     w.Tolerance,
		}
		if err := c.hermes.Publish(hermes.SubjectIntegrityWarning, warn); err != nil {
			c.logger.Warn("failed to publish integrity warning", "respondent", r.RespondentID, "error", err)
		}
	}
}

// Compatibility compares the stored results of a couple.
func (c *Coordinator) Compatibility(ctx context.Context, pairingID string) (*scoring.CompatibilityReport, error) {
	ctx, span := c.tracer.Start(ctx, "Coordinator.Compatibility",
		trace.WithAttributes(attribute.String("pairing.id", pairingID)))
	defer span.End()

	var link *scoring.CoupleLink
	err := c.storeCall(ctx, func(ctx context.Context) error {
		var err error
		link, err = c.store.GetCoupleLink(ctx, pairingID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load couple link %s: %w", pairingID, err)
	}
	if link == nil {
		return nil, fmt.Errorf("pairing %s: %w", pairingID, scoring.ErrNotFound)
	}
	if !link.Complete() {
		return nil, fmt.Errorf("%w: pairing %s", scoring.ErrCoupleIncomplete, pairingID)
	}

	a, err := c.loadResult(ctx, link.RespondentA)
	if err != nil {
		return nil, err
	}
	b, err := c.loadResult(ctx, link.RespondentB)
	if err != nil {
		return nil, err
	}

	report, err := c.engine.Compare(*link, a, b)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Float64("compatibility.composite", report.Composite))

	evt := hermes.CoupleComparedEvent{
		PairingID:    report.PairingID,
		RespondentA:  report.RespondentA,
		RespondentB:  report.RespondentB,
		Composite:    report.Composite,
		Incomparable: len(report.Incomparable),
	}
	if err := c.hermes.Publish(hermes.SubjectCoupleCompared(pairingID), evt); err != nil {
		c.logger.Warn("failed to publish couple compared event", "pairing", pairingID, "error", err)
	}
	return report, nil
}

// loadResult returns a stored result; a missing one means the couple is not
// ready for comparison.
func (c *Coordinator) loadResult(ctx context.Context, respondentID string) (*scoring.AssessmentResult, error) {
	var r *scoring.AssessmentResult
	err := c.storeCall(ctx, func(ctx context.Context) error {
		var err error
		r, err = c.store.GetResult(ctx, respondentID)
		return err
	})
	switch {
	case errors.Is(err, store.ErrMalformedRecord):
		return nil, &scoring.PartialDataError{RespondentID: respondentID, Reason: "malformed stored result", Err: err}
	case err != nil:
		return nil, fmt.Errorf("load result %s: %w", respondentID, err)
	case r == nil:
		return nil, fmt.Errorf("%w: no result for %s", scoring.ErrCoupleIncomplete, respondentID)
	}
	return r, nil
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSucceeded
	case errors.Is(err, scoring.ErrNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeFailed
	}
}
