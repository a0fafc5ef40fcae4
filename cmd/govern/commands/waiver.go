package commands

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cloudgovern/cloudgovern/pkg/waiver"
)

func newWaiverCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "waiver",
		Short: "Manage violation waivers",
		Long: `Manage time-bounded waivers. A waiver suppresses violations of one
policy or control on one resource until it expires; expiry is checked at
scan time, so an expired waiver stops suppressing without any cleanup.
Adding a waiver for a pair that already has one replaces it.`,
	}

	cmd.AddCommand(newWaiverAddCommand())
	cmd.AddCommand(newWaiverListCommand())
	cmd.AddCommand(newWaiverRemoveCommand())

	return cmd
}

func newWaiverAddCommand() *cobra.Command {
	var (
		targetID   string
		resourceID string
		reason     string
		approvedBy string
		duration   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a waiver for a (target, resource) pair",
		Example: `  # Waive the no-public-buckets policy on one bucket for 30 days
  govern waiver add --target no-public-buckets --resource bucket-1 \
    --reason "public website bucket" --approved-by security-team --for 720h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			now := time.Now()
			w := waiver.Waiver{
				ID:         uuid.NewString(),
				TargetID:   targetID,
				ResourceID: resourceID,
				Reason:     reason,
				ApprovedBy: approvedBy,
				ApprovedAt: now,
				ExpiresAt:  now.Add(duration),
			}

			if err := a.governor.AddWaiver(ctx, w); err != nil {
				return err
			}
			fmt.Printf("waiver %s added, expires %s\n", w.ID, w.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&targetID, "target", "", "policy or control ID to waive")
	cmd.Flags().StringVar(&resourceID, "resource", "", "resource ID the waiver applies to")
	cmd.Flags().StringVar(&reason, "reason", "", "why the exception was granted")
	cmd.Flags().StringVar(&approvedBy, "approved-by", "", "who approved the waiver")
	cmd.Flags().DurationVar(&duration, "for", 30*24*time.Hour, "how long the waiver lasts")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("resource")
	_ = cmd.MarkFlagRequired("reason")

	return cmd
}

func newWaiverListCommand() *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List waivers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			waivers, err := a.governor.ListWaivers(ctx, activeOnly)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(waivers)
			}

			now := time.Now()
			for i := range waivers {
				w := &waivers[i]
				state := "active"
				if !w.Active(now) {
					state = "expired"
				}
				fmt.Printf("%-30s %-20s %-8s expires %s  %s\n",
					w.TargetID, w.ResourceID, state, w.ExpiresAt.Format(time.RFC3339), w.Reason)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "list only unexpired waivers")

	return cmd
}

func newWaiverRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <target-id> <resource-id>",
		Short: "Remove the waiver for a (target, resource) pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if err := a.governor.RemoveWaiver(ctx, args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("waiver for %s on %s removed\n", args[0], args[1])
			return nil
		},
	}
}
