package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Query stored compliance reports",
	}

	cmd.AddCommand(newReportListCommand())
	cmd.AddCommand(newReportTrendCommand())

	return cmd
}

func newReportListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list <framework-id>",
		Short: "List stored reports for a framework, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			reports, err := a.store.ListReports(ctx, args[0], limit)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(reports)
			}

			for i := range reports {
				r := &reports[i]
				fmt.Printf("%s  %s  score %3d (%s)  %d/%d controls passed\n",
					r.GeneratedAt.Format(time.RFC3339), r.ID, r.Score, r.Grade,
					r.PassedControls, r.TotalControls)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of reports")

	return cmd
}

func newReportTrendCommand() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "trend <framework-id>",
		Short: "Show the compliance trend for a framework",
		Long: `Show the compliance score trend for a framework, one point per stored
report within the window, oldest first.`,
		Example: `  # Last 30 days of baseline scores
  govern report trend baseline --days 30`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			since := time.Now().AddDate(0, 0, -days)
			points, err := a.governor.Trend(ctx, args[0], since)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(points)
			}

			for _, p := range points {
				fmt.Printf("%s  score %3d (%s)  %d open violation(s)\n",
					p.GeneratedAt.Format("2006-01-02 15:04"), p.Score, p.Grade, p.OpenViolations)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "window size in days")

	return cmd
}
