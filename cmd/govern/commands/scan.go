package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloudgovern/cloudgovern/pkg/policy"
)

func newScanCommand() *cobra.Command {
	var (
		inventoryPath string
		frameworkID   string
		failOnOpen    bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a resource inventory for violations",
		Long: `Scan a resource inventory against every enabled policy, or against a
compliance framework when --framework is given.

Policy scans emit one violation per fired rule per resource; framework
scans produce a scored, graded report. Violations covered by an active
waiver are reported with status "waived" instead of "open".`,
		Example: `  # Scan against enabled policies
  govern scan --resources inventory.yaml

  # Scan against the built-in compliance framework
  govern scan --resources inventory.yaml --framework baseline

  # Fail the pipeline on open violations
  govern scan --resources inventory.yaml --fail-on-open`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			resources, err := readResources(inventoryPath)
			if err != nil {
				return err
			}

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if frameworkID != "" {
				report, err := a.governor.EvaluateFramework(ctx, frameworkID, resources)
				if err != nil {
					return err
				}

				if jsonOutput {
					return printJSON(report)
				}

				fmt.Printf("%s: score %d (%s)\n", report.FrameworkName, report.Score, report.Grade)
				fmt.Printf("  controls: %d passed, %d failed, %d waived, %d not applicable\n",
					report.PassedControls, report.FailedControls, report.WaivedControls, report.NotApplicable)
				for _, v := range report.Violations {
					fmt.Printf("  %-6s %s on %s: %s\n", v.Status, v.RuleID, v.ResourceID, v.Message)
				}
				if failOnOpen && report.FailedControls > 0 {
					return fmt.Errorf("%d control(s) failed", report.FailedControls)
				}
				return nil
			}

			violations, err := a.governor.Scan(ctx, resources)
			if err != nil {
				return err
			}

			if jsonOutput {
				if err := printJSON(violations); err != nil {
					return err
				}
			} else {
				fmt.Printf("%d resource(s) scanned, %d violation(s)\n", len(resources), len(violations))
				for _, v := range violations {
					fmt.Printf("  %-6s [%s] %s/%s on %s: %s\n",
						v.Status, v.Severity, v.PolicyID, v.RuleID, v.ResourceID, v.Message)
				}
			}

			if failOnOpen {
				open := 0
				for i := range violations {
					if violations[i].Status == policy.ViolationOpen {
						open++
					}
				}
				if open > 0 {
					return fmt.Errorf("%d open violation(s)", open)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inventoryPath, "resources", "r", "", "resource inventory file (YAML or JSON)")
	cmd.Flags().StringVarP(&frameworkID, "framework", "f", "", "compliance framework to scan against")
	cmd.Flags().BoolVar(&failOnOpen, "fail-on-open", false, "exit non-zero when open violations remain")
	_ = cmd.MarkFlagRequired("resources")

	return cmd
}
