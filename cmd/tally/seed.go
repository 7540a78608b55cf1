package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/Tally/internal/recalc"
	"github.com/MikeSquared-Agency/Tally/internal/scoring"
	"github.com/MikeSquared-Agency/Tally/internal/store"
)

// seedFile is the fixture format accepted by `tally seed`.
type seedFile struct {
	Submissions []scoring.Submission `json:"submissions"`
	Couples     []scoring.CoupleLink `json:"couples"`
}

func parseSeed(r io.Reader) (*seedFile, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var f seedFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	for i, sub := range f.Submissions {
		if strings.TrimSpace(sub.RespondentID) == "" {
			return nil, fmt.Errorf("submission %d: respondent_id is required", i)
		}
		if sub.CompletedAt.IsZero() {
			return nil, fmt.Errorf("submission %d (%s): completed_at is required", i, sub.RespondentID)
		}
	}
	for i, l := range f.Couples {
		if l.PairingID == "" || l.RespondentA == "" || l.RespondentB == "" {
			return nil, fmt.Errorf("couple %d: pairing_id, respondent_a and respondent_b are required", i)
		}
	}
	return &f, nil
}

// seed writes fixtures to the store and, when rc is non-nil, scores every
// seeded respondent.
func seed(ctx context.Context, s store.Store, rc *recalc.Coordinator, f *seedFile, w io.Writer) error {
	for i := range f.Submissions {
		sub := &f.Submissions[i]
		if err := s.SaveSubmission(ctx, sub); err != nil {
			return fmt.Errorf("save submission %s: %w", sub.RespondentID, err)
		}
		fmt.Fprintf(w, "submission %s attempt %d saved\n", sub.RespondentID, sub.Attempt)
	}
	for i := range f.Couples {
		link := &f.Couples[i]
		if err := s.SaveCoupleLink(ctx, link); err != nil {
			return fmt.Errorf("save couple link %s: %w", link.PairingID, err)
		}
		fmt.Fprintf(w, "couple %s saved\n", link.PairingID)
	}
	if rc == nil {
		return nil
	}
	for _, sub := range f.Submissions {
		result, err := rc.RecalculateOne(ctx, sub.RespondentID)
		if err != nil {
			fmt.Fprintf(w, "score %s: %v\n", sub.RespondentID, err)
			continue
		}
		fmt.Fprintf(w, "score %s: %.1f%% (%s)\n", sub.RespondentID, result.Overall, result.Profile.Name)
	}
	return nil
}

func newSeedCmd(configPath *string) *cobra.Command {
	var (
		dryRun bool
		score  bool
	)

	cmd := &cobra.Command{
		Use:   "seed <file.json>",
		Short: "Load fixture submissions and couple links into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fh, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			defer fh.Close()

			f, err := parseSeed(fh)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if dryRun {
				return printJSON(out, f)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			a, err := setup(ctx, *configPath, false)
			if err != nil {
				return err
			}
			defer a.Close()

			var rc *recalc.Coordinator
			if score {
				rc = a.recalc
			}
			return seed(ctx, a.store, rc, f, out)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the parsed fixtures without writing")
	cmd.Flags().BoolVar(&score, "score", true, "score seeded respondents after writing")
	return cmd
}
