package policy

import (
	"time"

	"github.com/cloudgovern/cloudgovern/pkg/condition"
)

// GetBuiltinPolicies returns the policies shipped with the engine. They
// cover the baseline governance concerns every inventory needs; callers
// can disable any of them by ID.
func GetBuiltinPolicies() []Policy {
	now := time.Now()

	return []Policy{
		{
			ID:          "required-tags",
			Name:        "Required Tags",
			Description: "All resources must carry Environment and Owner tags",
			Type:        "tagging",
			Enabled:     true,
			Severity:    SeverityMedium,
			Rules: []Rule{
				{
					ID:          "missing-environment-tag",
					Description: "Environment tag is mandatory",
					Condition:   condition.Condition{Kind: condition.KindTagMissing, Key: "Environment"},
					Action:      ActionWarn,
					Message:     "resource is missing the Environment tag",
				},
				{
					ID:          "missing-owner-tag",
					Description: "Owner tag is mandatory",
					Condition:   condition.Condition{Kind: condition.KindTagMissing, Key: "Owner"},
					Action:      ActionWarn,
					Message:     "resource is missing the Owner tag",
				},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:                 "no-public-buckets",
			Name:               "No Public Buckets",
			Description:        "Object storage must not be publicly accessible",
			Type:               "security",
			Enabled:            true,
			Severity:           SeverityCritical,
			AutoAttachPatterns: []string{"type:aws_s3_bucket", "type:gcp_storage_bucket"},
			Rules: []Rule{
				{
					ID:          "public-access",
					Description: "Bucket exposes public access",
					Condition: condition.Condition{
						Kind:  condition.KindFieldEquals,
						Field: "resource.metadata.public",
						Value: true,
					},
					Action:  ActionDeny,
					Message: "public object storage is not permitted",
				},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          "encryption-at-rest",
			Name:        "Encryption At Rest",
			Description: "Storage and database resources must be encrypted",
			Type:        "security",
			Enabled:     true,
			Severity:    SeverityHigh,
			AutoAttachPatterns: []string{
				"type:aws_s3_bucket",
				"type:aws_ebs_volume",
				"type:aws_rds_instance",
				"type:database",
			},
			Rules: []Rule{
				{
					ID:          "unencrypted",
					Description: "Resource reports encryption disabled",
					Condition: condition.Condition{
						Kind:  condition.KindFieldEquals,
						Field: "resource.metadata.encrypted",
						Value: false,
					},
					Action:  ActionDeny,
					Message: "encryption at rest must be enabled",
				},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          "cost-guardrail",
			Name:        "Cost Guardrail",
			Description: "Large projected cost increases need approval",
			Type:        "cost",
			Enabled:     true,
			Severity:    SeverityMedium,
			Rules: []Rule{
				{
					ID:          "cost-delta-approval",
					Description: "Monthly cost delta exceeds the approval threshold",
					Condition: condition.Condition{
						Kind:  condition.KindFieldGT,
						Field: "cost.delta",
						Value: 500,
					},
					Action:  ActionRequireApproval,
					Message: "projected cost increase exceeds $500/month and requires approval",
				},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          "destructive-plan",
			Name:        "Destructive Plan",
			Description: "Plans deleting many resources should be flagged",
			Type:        "change-safety",
			Enabled:     true,
			Severity:    SeverityHigh,
			Rules: []Rule{
				{
					ID:          "mass-delete",
					Description: "Plan deletes more than five resources",
					Condition: condition.Condition{
						Kind:  condition.KindFieldGT,
						Field: "plan.totalDeletes",
						Value: 5,
					},
					Action:  ActionNotify,
					Message: "plan deletes more than five resources",
				},
				{
					ID:          "production-mass-delete",
					Description: "Mass deletion in a production environment",
					Condition: condition.Condition{
						Kind: condition.KindAnd,
						Children: []condition.Condition{
							{Kind: condition.KindFieldGT, Field: "plan.totalDeletes", Value: 5},
							{Kind: condition.KindFieldEquals, Field: "environment", Value: "production"},
						},
					},
					Action:  ActionDeny,
					Message: "mass deletion in production is not permitted",
				},
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}
