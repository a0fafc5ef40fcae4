package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cloudgovern/cloudgovern/pkg/policy"
)

func newPolicyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Manage governance policies",
	}

	cmd.AddCommand(newPolicyListCommand())
	cmd.AddCommand(newPolicyShowCommand())
	cmd.AddCommand(newPolicyEnableCommand())
	cmd.AddCommand(newPolicyDisableCommand())
	cmd.AddCommand(newPolicyDeleteCommand())

	return cmd
}

func newPolicyListCommand() *cobra.Command {
	var (
		policyType string
		severity   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			filter := policy.Filter{
				Type:     policyType,
				Severity: policy.Severity(severity),
			}
			policies, err := a.governor.ListPolicies(ctx, filter)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(policies)
			}

			for i := range policies {
				p := &policies[i]
				state := "enabled"
				if !p.Enabled {
					state = "disabled"
				}
				fmt.Printf("%-30s %-10s %-10s %-8s %d rule(s)\n",
					p.ID, p.Type, p.Severity, state, len(p.Rules))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&policyType, "type", "", "filter by policy type")
	cmd.Flags().StringVar(&severity, "severity", "", "filter by severity")

	return cmd
}

func newPolicyShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <policy-id>",
		Short: "Show one policy document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			p, err := a.governor.GetPolicy(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(p)
		},
	}
}

func newPolicyEnableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <policy-id>",
		Short: "Enable a policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if err := a.governor.SetPolicyEnabled(ctx, args[0], true); err != nil {
				return err
			}
			fmt.Printf("policy %s enabled\n", args[0])
			return nil
		},
	}
}

func newPolicyDisableCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <policy-id>",
		Short: "Disable a policy",
		Long: `Disable a policy. Disabled policies are excluded from evaluation
entirely; they contribute nothing, not even warnings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if err := a.governor.SetPolicyEnabled(ctx, args[0], false); err != nil {
				return err
			}
			fmt.Printf("policy %s disabled\n", args[0])
			return nil
		},
	}
}

func newPolicyDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <policy-id>",
		Short: "Delete a stored policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if err := a.governor.DeletePolicy(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("policy %s deleted\n", args[0])
			return nil
		},
	}
}
