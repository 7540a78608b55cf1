package hermes

import (
	"strings"
	"time"
)

// SubjectPrefix roots every subject the service publishes or consumes.
const SubjectPrefix = "assessment"

const (
	SubjectSubmissionCompleted = SubjectPrefix + ".submission.completed"
	SubjectRecalcCompleted     = SubjectPrefix + ".recalc.completed"
	SubjectIntegrityWarning    = SubjectPrefix + ".integrity.warning"

	// StreamSubjects is the JetStream filter capturing all of the above.
	StreamSubjects = SubjectPrefix + ".>"

	StreamName   = "TALLY_EVENTS"
	StreamMaxAge = 30 * 24 * time.Hour
)

func SubjectResultRecalculated(respondentID string) string {
	return SubjectPrefix + ".result." + token(respondentID) + ".recalculated"
}

func SubjectCoupleCompared(pairingID string) string {
	return SubjectPrefix + ".couple." + token(pairingID) + ".compared"
}

var tokenReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")

// token makes an identifier safe to embed as one subject token.
func token(id string) string {
	if id == "" {
		return "_"
	}
	return tokenReplacer.Replace(id)
}
