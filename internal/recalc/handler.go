package recalc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/MikeSquared-Agency/Tally/internal/hermes"
	"github.com/MikeSquared-Agency/Tally/internal/scoring"
)

// Subscribe recalculates a respondent whenever the submission endpoint
// announces a completed attempt. Handlers run on the NATS delivery goroutine,
// so each message is bounded by the store timeout.
func (c *Coordinator) Subscribe(ctx context.Context, h hermes.Client) error {
	return h.Subscribe(hermes.SubjectSubmissionCompleted, func(subject string, data []byte) {
		c.HandleSubmissionCompleted(ctx, data)
	})
}

// HandleSubmissionCompleted processes one submission-completed payload.
func (c *Coordinator) HandleSubmissionCompleted(ctx context.Context, data []byte) {
	var evt hermes.SubmissionCompletedEvent
	if err := json.Unmarshal(data, &evt); err != nil || evt.RespondentID == "" {
		c.logger.Warn("ignoring malformed submission event", "error", err, "payload", string(data))
		return
	}

	result, err := c.RecalculateOne(ctx, evt.RespondentID)
	var pd *scoring.PartialDataError
	switch {
	case err == nil:
		c.logger.Info("submission scored",
			"respondent", evt.RespondentID,
			"attempt", result.Attempt,
			"overall", result.Overall,
			"profile", result.Profile.ID,
		)
	case errors.Is(err, scoring.ErrNotFound):
		c.logger.Warn("submission event for unknown respondent", "respondent", evt.RespondentID)
	case errors.As(err, &pd):
		c.logger.Warn("submission not scorable", "respondent", evt.RespondentID, "reason", pd.Reason)
	default:
		c.logger.Error("failed to score submission", "respondent", evt.RespondentID, "error", err)
	}
}
