package condition

import "testing"

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cond    Condition
		wantErr bool
	}{
		{"valid equals", Condition{Kind: KindFieldEquals, Field: "resource.type", Value: "aws_s3_bucket"}, false},
		{"equals missing field", Condition{Kind: KindFieldEquals, Value: "x"}, true},
		{"equals missing value", Condition{Kind: KindFieldEquals, Field: "resource.type"}, true},
		{"valid matches", Condition{Kind: KindFieldMatches, Field: "resource.type", Pattern: "^aws_"}, false},
		{"matches invalid regex", Condition{Kind: KindFieldMatches, Field: "resource.type", Pattern: "(unclosed"}, true},
		{"matches missing field", Condition{Kind: KindFieldMatches, Pattern: ".*"}, true},
		{"valid exists", Condition{Kind: KindFieldExists, Field: "cost.delta"}, false},
		{"exists missing field", Condition{Kind: KindFieldNotExists}, true},
		{"valid in", Condition{Kind: KindFieldIn, Field: "resource.region", Values: []string{"us-east-1"}}, false},
		{"in empty values", Condition{Kind: KindFieldIn, Field: "resource.region"}, true},
		{"valid tag_missing", Condition{Kind: KindTagMissing, Key: "Owner"}, false},
		{"tag_missing missing key", Condition{Kind: KindTagMissing}, true},
		{"valid tag_equals", Condition{Kind: KindTagEquals, Key: "Environment", Value: "production"}, false},
		{"tag_equals missing value", Condition{Kind: KindTagEquals, Key: "Environment"}, true},
		{"valid resource_type", Condition{Kind: KindResourceType, Value: "aws_s3_bucket"}, false},
		{"resource_type missing value", Condition{Kind: KindResourceType}, true},
		{"valid and", Condition{Kind: KindAnd, Children: []Condition{
			{Kind: KindProvider, Value: "aws"},
		}}, false},
		{"and without children", Condition{Kind: KindAnd}, true},
		{"valid not", Condition{Kind: KindNot, Children: []Condition{
			{Kind: KindRegion, Value: "us-east-1"},
		}}, false},
		{"not with two children", Condition{Kind: KindNot, Children: []Condition{
			{Kind: KindProvider, Value: "aws"},
			{Kind: KindRegion, Value: "us-east-1"},
		}}, true},
		{"valid custom", Condition{Kind: KindCustom, Name: "blast-radius-large"}, false},
		{"custom missing name", Condition{Kind: KindCustom}, true},
		{"empty kind", Condition{}, true},
		{"unknown kind", Condition{Kind: "no_such_kind"}, true},
		{"nested invalid child", Condition{Kind: KindAnd, Children: []Condition{
			{Kind: KindProvider, Value: "aws"},
			{Kind: KindFieldMatches, Field: "resource.name", Pattern: "[bad"},
		}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cond)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
