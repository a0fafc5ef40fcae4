package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newEvaluateCommand() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate an operation against every enabled policy",
		Long: `Evaluate one operation (resource plus optional plan, cost, graph, actor,
and environment context) against every enabled policy.

Conflict resolution is deny-wins: a single denying policy blocks the
operation regardless of how many policies pass. Warnings and
notifications from all policies still surface alongside a denial.`,
		Example: `  # Evaluate an input document
  govern evaluate --input change.yaml

  # Machine-readable result
  govern evaluate --input change.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			input, err := readEvaluationInput(inputPath)
			if err != nil {
				return err
			}

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			result, err := a.governor.EvaluateInput(ctx, input)
			if err != nil {
				return err
			}

			if jsonOutput {
				if err := printJSON(result); err != nil {
					return err
				}
			} else {
				if result.Allowed {
					fmt.Printf("ALLOWED (%d policies, %d passed)\n", result.TotalPolicies, result.PassedPolicies)
				} else {
					fmt.Printf("DENIED (%d policies, %d failed)\n", result.TotalPolicies, result.FailedPolicies)
					for _, d := range result.Denials {
						fmt.Printf("  deny  %s/%s: %s\n", d.PolicyID, d.RuleID, d.Message)
					}
				}
				for _, w := range result.Warnings {
					fmt.Printf("  warn  %s\n", w)
				}
				for _, n := range result.Notifications {
					fmt.Printf("  note  %s\n", n)
				}
				if result.ApprovalRequired {
					fmt.Println("  approval required before proceeding")
				}
			}

			if result.Denied {
				log.Debug().Int("denials", len(result.Denials)).Msg("Evaluation denied")
				return fmt.Errorf("operation denied by %d policy rule(s)", len(result.Denials))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "evaluation input file (YAML or JSON)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
