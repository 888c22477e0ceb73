package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bnema/dashd/internal/adapters/render/dashboard"
	"github.com/bnema/dashd/internal/application"
	"github.com/bnema/dashd/internal/domain"
	"github.com/spf13/cobra"
)

type resultView struct {
	Source     domain.SourceID `json:"source"`
	Outcome    domain.Outcome  `json:"outcome"`
	Reason     domain.Reason   `json:"reason,omitempty"`
	Error      string          `json:"error,omitempty"`
	RetryAfter string          `json:"retry_after,omitempty"`
	Attempts   int             `json:"attempts"`
}

type refreshView struct {
	Cycle   string         `json:"cycle"`
	Results []resultView   `json:"results"`
	Panels  []domain.Panel `json:"panels"`
}

func newRefreshCmd(opts *rootOptions) *cobra.Command {
	var (
		only   []string
		force  bool
		asJSON bool
		noSpin bool
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run one refresh cycle and print the dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wireApp(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr(), dashboard.Options{})
			if err != nil {
				return err
			}

			ids := make([]domain.SourceID, 0, len(only))
			for _, id := range only {
				ids = append(ids, domain.SourceID(id))
			}

			var report application.CycleReport
			if asJSON || noSpin {
				report, err = app.dashboard.Cycle(cmd.Context(), force, ids...)
			} else {
				order, selErr := app.dashboard.Selected(ids...)
				if selErr != nil {
					return selErr
				}
				err = withCycleProgress(cmd.Context(), cmd.ErrOrStderr(), order, func(ctx context.Context, progress application.Progress) error {
					var err error
					report, err = app.dashboard.CycleWithProgress(ctx, force, progress, ids...)
					return err
				})
			}
			if err != nil {
				return err
			}

			if asJSON {
				return writeRefreshJSON(cmd, app, report)
			}
			for _, res := range report.Results {
				if !res.OK() {
					fmt.Fprintln(cmd.ErrOrStderr(), res.String())
				}
			}
			return app.dashboard.Draw(cmd.Context())
		},
	}
	cmd.Flags().StringSliceVar(&only, "source", nil, "refresh only these sources (clock, weather, pihole, siteviews)")
	cmd.Flags().BoolVar(&force, "force", false, "ignore poll intervals and previous auth failures")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	cmd.Flags().BoolVar(&noSpin, "no-spinner", false, "do not animate while refreshing")

	return cmd
}

func writeRefreshJSON(cmd *cobra.Command, app *app, report application.CycleReport) error {
	view := refreshView{
		Cycle:   report.ID,
		Results: make([]resultView, 0, len(report.Results)),
		Panels:  app.dashboard.Panels(report.Started),
	}
	for _, res := range report.Results {
		rv := resultView{
			Source:   res.Source,
			Outcome:  res.Outcome,
			Reason:   res.Reason,
			Attempts: res.Attempts,
		}
		if res.Err != nil {
			rv.Error = res.Err.Error()
		}
		if res.RetryAfter > 0 {
			rv.RetryAfter = res.RetryAfter.String()
		}
		view.Results = append(view.Results, rv)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}
