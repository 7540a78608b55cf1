package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/MikeSquared-Agency/Tally/internal/scoring"
)

var validate = validator.New()

type ScoreHandler struct {
	engine Scorer
}

func NewScoreHandler(e Scorer) *ScoreHandler {
	return &ScoreHandler{engine: e}
}

type ScoreRequest struct {
	RespondentID string               `json:"respondent_id" validate:"required,max=128"`
	Attempt      int                  `json:"attempt" validate:"gte=0"`
	Responses    scoring.Responses    `json:"responses" validate:"required,min=1"`
	Demographics scoring.Demographics `json:"demographics,omitempty"`
	CompletedAt  *time.Time           `json:"completed_at,omitempty"`
}

// Score scores an ad-hoc submission. Nothing is persisted.
func (h *ScoreHandler) Score(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, describeValidation(err))
		return
	}

	sub := scoring.Submission{
		RespondentID: req.RespondentID,
		Attempt:      req.Attempt,
		Responses:    req.Responses,
		Demographics: req.Demographics,
	}
	if req.CompletedAt != nil {
		sub.CompletedAt = *req.CompletedAt
	} else {
		sub.CompletedAt = time.Now().UTC().Truncate(time.Second)
	}

	writeJSON(w, http.StatusOK, h.engine.Score(sub))
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
	return strings.Join(msgs, "; ")
}
