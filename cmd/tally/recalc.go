package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRecalcCmd(configPath *string) *cobra.Command {
	var (
		all        bool
		respondent string
		events     bool
	)

	cmd := &cobra.Command{
		Use:   "recalc",
		Short: "Recalculate stored results",
		Long: `Re-run the scoring pipeline over stored submissions and replace the
stored results. Interrupting a bulk run stops new work; respondents already
in progress finish and the partial summary is printed.

Examples:
  tally recalc --all
  tally recalc --respondent 8f2c1e`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (respondent != "") {
				return errors.New("exactly one of --all or --respondent is required")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx, *configPath, events)
			if err != nil {
				return err
			}
			defer a.Close()

			if all {
				summary, err := a.recalc.RecalculateAll(ctx)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), summary); err != nil {
					return err
				}
				if summary.Failed > 0 {
					return fmt.Errorf("%d of %d respondents failed", summary.Failed, summary.Attempted)
				}
				return nil
			}

			result, err := a.recalc.RecalculateOne(ctx, respondent)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "recalculate every respondent")
	cmd.Flags().StringVar(&respondent, "respondent", "", "recalculate one respondent")
	cmd.Flags().BoolVar(&events, "events", false, "publish events to NATS")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
