package store

import (
	"encoding/json"
	"fmt"

	"github.com/MikeSquared-Agency/Tally/internal/scoring"
)

// encodeOptional stores nil and empty maps as NULL so that "missing"
// survives a round trip.
func encodeOptional[M ~map[string]V, V any](m M) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

func decodeResponses(respondentID string, raw []byte) (scoring.Responses, error) {
	if raw == nil {
		return nil, nil
	}
	var r scoring.Responses
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: responses of %s: %v", ErrMalformedRecord, respondentID, err)
	}
	return r, nil
}

func decodeDemographics(respondentID string, raw []byte) (scoring.Demographics, error) {
	if raw == nil {
		return nil, nil
	}
	var d scoring.Demographics
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("%w: demographics of %s: %v", ErrMalformedRecord, respondentID, err)
	}
	return d, nil
}

func decodeResult(respondentID string, raw []byte) (*scoring.AssessmentResult, error) {
	r := &scoring.AssessmentResult{}
	if err := json.Unmarshal(raw, r); err != nil {
		return nil, fmt.Errorf("%w: result of %s: %v", ErrMalformedRecord, respondentID, err)
	}
	return r, nil
}
