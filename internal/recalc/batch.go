package recalc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/Tally/internal/hermes"
	"github.com/MikeSquared-Agency/Tally/internal/metrics"
	"github.com/MikeSquared-Agency/Tally/internal/scoring"
)

// Status is the per-respondent outcome of a batch.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

type Outcome struct {
	RespondentID string   `json:"respondent_id"`
	Status       Status   `json:"status"`
	Reason       string   `json:"reason,omitempty"`
	Overall      *float64 `json:"overall_percentage,omitempty"`
}

// BatchSummary reports a bulk recalculation. Outcomes follow the order in
// which respondents were listed.
type BatchSummary struct {
	ID         uuid.UUID `json:"batch_id"`
	Attempted  int       `json:"attempted"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Cancelled  bool      `json:"cancelled"`
	Outcomes   []Outcome `json:"outcomes"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Failures returns the failed outcomes.
func (s *BatchSummary) Failures() []Outcome {
	var out []Outcome
	for _, o := range s.Outcomes {
		if o.Status == StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// RecalculateAll recalculates every respondent with bounded concurrency. Only
// a failure to list respondents fails the batch; everything else becomes an
// outcome. Cancelling ctx stops new work, while respondents already started
// finish on a detached context so no write is cut short.
func (c *Coordinator) RecalculateAll(ctx context.Context) (*BatchSummary, error) {
	summary := &BatchSummary{ID: uuid.New(), StartedAt: time.Now().UTC()}
	ctx, span := c.tracer.Start(ctx, "Coordinator.RecalculateAll")
	defer span.End()
	span.SetAttributes(attribute.String("batch.id", summary.ID.String()))

	logger := c.logger.With("batch_id", summary.ID)

	var ids []string
	err := c.storeCall(ctx, func(ctx context.Context) error {
		var err error
		ids, err = c.store.ListRespondents(ctx)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("list respondents: %w", err)
	}
	logger.Info("recalculation batch started", "respondents", len(ids), "workers", c.opts.Workers)

	summary.Outcomes = make([]Outcome, len(ids))
	detached := context.WithoutCancel(ctx)
	g := new(errgroup.Group)
	g.SetLimit(c.opts.Workers)

	for i, id := range ids {
		if ctx.Err() != nil {
			break
		}
		// Go blocks until a worker slot frees up, so cancellation is
		// checked again once the slot is ours.
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			result, err := c.RecalculateOne(detached, id)
			summary.Outcomes[i] = outcomeOf(id, result, err)
			return nil
		})
	}
	_ = g.Wait()

	for i, o := range summary.Outcomes {
		if o.Status == "" {
			summary.Outcomes[i] = Outcome{RespondentID: ids[i], Status: StatusSkipped, Reason: "batch cancelled"}
			metrics.RecordRecalcOutcome(metrics.OutcomeSkipped)
		}
	}

	for _, o := range summary.Outcomes {
		switch o.Status {
		case StatusSucceeded:
			summary.Succeeded++
		case StatusFailed:
			summary.Failed++
		case StatusSkipped:
			summary.Skipped++
		}
	}
	summary.Attempted = summary.Succeeded + summary.Failed
	summary.Cancelled = summary.Skipped > 0
	summary.FinishedAt = time.Now().UTC()
	metrics.ObserveBatch(summary.FinishedAt.Sub(summary.StartedAt))

	span.SetAttributes(
		attribute.Int("batch.succeeded", summary.Succeeded),
		attribute.Int("batch.failed", summary.Failed),
		attribute.Int("batch.skipped", summary.Skipped),
	)
	logger.Info("recalculation batch finished",
		"attempted", summary.Attempted,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"duration", summary.FinishedAt.Sub(summary.StartedAt),
	)

	evt := hermes.RecalcCompletedEvent{
		BatchID:    summary.ID.String(),
		Attempted:  summary.Attempted,
		Succeeded:  summary.Succeeded,
		Failed:     summary.Failed,
		Skipped:    summary.Skipped,
		Cancelled:  summary.Cancelled,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
	}
	if err := c.hermes.Publish(hermes.SubjectRecalcCompleted, evt); err != nil {
		logger.Warn("failed to publish batch completed event", "error", err)
	}
	return summary, nil
}

func outcomeOf(id string, result *scoring.AssessmentResult, err error) Outcome {
	if err == nil {
		overall := result.Overall
		return Outcome{RespondentID: id, Status: StatusSucceeded, Overall: &overall}
	}
	reason := err.Error()
	var pd *scoring.PartialDataError
	switch {
	case errors.As(err, &pd):
		reason = pd.Reason
	case errors.Is(err, context.DeadlineExceeded):
		reason = "store timeout: " + err.Error()
	}
	return Outcome{RespondentID: id, Status: StatusFailed, Reason: reason}
}
