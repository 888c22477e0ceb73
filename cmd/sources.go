package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/bnema/dashd/internal/adapters/render/dashboard"
	"github.com/bnema/dashd/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func newSourcesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List sources with their poll interval and state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wireApp(cmd.Context(), opts, io.Discard, cmd.ErrOrStderr(), dashboard.Options{})
			if err != nil {
				return err
			}

			built := map[domain.SourceID]time.Duration{}
			for _, s := range app.dashboard.Sections() {
				built[s.ID()] = s.Interval()
			}

			configured := []struct {
				id       domain.SourceID
				enabled  bool
				interval time.Duration
			}{
				{domain.SourceClock, app.cfg.Clock.Enabled, app.cfg.Clock.Interval},
				{domain.SourceWeather, app.cfg.Weather.Enabled, app.cfg.Weather.Interval},
				{domain.SourcePihole, app.cfg.Pihole.Enabled, app.cfg.Pihole.Interval},
				{domain.SourceSiteViews, app.cfg.SiteViews.Enabled, app.cfg.SiteViews.Interval},
			}

			rows := make([][]string, 0, len(configured))
			for _, c := range configured {
				state := "disabled"
				interval := c.interval
				if c.enabled {
					state = "invalid config"
					if d, ok := built[c.id]; ok {
						state = "enabled"
						interval = d
					}
				}
				rows = append(rows, []string{string(c.id), state, interval.String()})
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("SOURCE", "STATE", "INTERVAL").
				Rows(rows...)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return err
		},
	}
}
