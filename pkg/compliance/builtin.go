package compliance

import (
	"github.com/cloudgovern/cloudgovern/pkg/policy"
	"github.com/cloudgovern/cloudgovern/pkg/resource"
)

// BaselineFramework returns the framework shipped with the engine: a
// small set of provider-agnostic hygiene controls. Organizations are
// expected to register their own frameworks alongside it.
func BaselineFramework() *Framework {
	return &Framework{
		ID:      "baseline",
		Name:    "CloudGovern Baseline",
		Version: "1.0.0",
		Controls: []Control{
			{
				ID:          "encryption-at-rest",
				Title:       "Data is encrypted at rest",
				Description: "Storage and database resources must enable encryption at rest",
				Category:    "encryption",
				Severity:    policy.SeverityHigh,
				ApplicableResourceTypes: []string{
					"aws_s3_bucket", "aws_ebs_volume", "aws_rds_instance",
					"gcp_storage_bucket", "database",
				},
				Predicate: func(r *resource.Resource) bool {
					return metaBool(r, "encrypted")
				},
				Remediation: "Enable provider-managed encryption for the resource",
			},
			{
				ID:          "no-public-access",
				Title:       "Resource is not publicly accessible",
				Description: "Storage and compute resources must not be exposed to the public internet",
				Category:    "network",
				Severity:    policy.SeverityCritical,
				ApplicableResourceTypes: []string{
					"aws_s3_bucket", "aws_instance", "aws_rds_instance",
					"gcp_storage_bucket", "database",
				},
				Predicate: func(r *resource.Resource) bool {
					return !metaBool(r, "public")
				},
				Remediation: "Remove public ACLs and restrict ingress to known networks",
			},
			{
				ID:          "ownership-tagged",
				Title:       "Resource carries an Owner tag",
				Description: "Every taggable resource must declare an owning team",
				Category:    "tagging",
				Severity:    policy.SeverityMedium,
				ApplicableResourceTypes: []string{
					"aws_s3_bucket", "aws_instance", "aws_ebs_volume",
					"aws_rds_instance", "gcp_storage_bucket", "database",
				},
				Predicate: func(r *resource.Resource) bool {
					return r.Tags["Owner"] != ""
				},
				Remediation: "Add an Owner tag naming the responsible team",
			},
			{
				ID:          "backups-enabled",
				Title:       "Databases have backups enabled",
				Description: "Database resources must have automated backups configured",
				Category:    "resilience",
				Severity:    policy.SeverityHigh,
				ApplicableResourceTypes: []string{
					"aws_rds_instance", "database",
				},
				Predicate: func(r *resource.Resource) bool {
					return metaBool(r, "backups_enabled")
				},
				Remediation: "Configure an automated backup schedule with retention",
			},
		},
	}
}

// metaBool reads a boolean metadata attribute. Absent or non-boolean
// values read as false, so predicates phrased as requirements fail closed.
func metaBool(r *resource.Resource, key string) bool {
	v, ok := r.Metadata[key].(bool)
	return ok && v
}
