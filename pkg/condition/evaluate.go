package condition

import (
	"regexp"
	"strings"

	"github.com/cloudgovern/cloudgovern/pkg/resource"
)

// Evaluate runs a condition tree against a flattened input. It is total:
// missing fields, malformed values, and unresolved custom conditions all
// evaluate to false rather than erroring. Only field_not_exists and
// tag_missing match absence; every comparison kind requires the field to
// be present.
//
// A nil registry resolves every custom condition to false. That is the
// documented safe default for callers that do not plug in extensions.
func Evaluate(c Condition, input resource.Flattened, registry Registry) bool {
	switch c.Kind {
	case KindFieldEquals:
		got, ok := input.String(c.Field)
		return ok && got == resource.Stringify(c.Value)

	case KindFieldNotEquals:
		got, ok := input.String(c.Field)
		return ok && got != resource.Stringify(c.Value)

	case KindFieldContains:
		got, ok := input.String(c.Field)
		return ok && strings.Contains(got, resource.Stringify(c.Value))

	case KindFieldMatches:
		got, ok := input.String(c.Field)
		if !ok {
			return false
		}
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			// Rejected at the storage boundary; degrade to non-matching
			// if one slips through.
			return false
		}
		return re.MatchString(got)

	case KindFieldGT:
		got, ok := input.Number(c.Field)
		if !ok {
			return false
		}
		want, ok := resource.ToNumber(c.Value)
		return ok && got > want

	case KindFieldLT:
		got, ok := input.Number(c.Field)
		if !ok {
			return false
		}
		want, ok := resource.ToNumber(c.Value)
		return ok && got < want

	case KindFieldExists:
		_, ok := input.Lookup(c.Field)
		return ok

	case KindFieldNotExists:
		_, ok := input.Lookup(c.Field)
		return !ok

	case KindFieldIn:
		got, ok := input.String(c.Field)
		return ok && contains(c.Values, got)

	case KindFieldNotIn:
		got, ok := input.String(c.Field)
		return ok && !contains(c.Values, got)

	case KindTagMissing:
		_, ok := input.Lookup("resource.tags." + c.Key)
		return !ok

	case KindTagEquals:
		got, ok := input.String("resource.tags." + c.Key)
		return ok && got == resource.Stringify(c.Value)

	case KindResourceType:
		got, ok := input.String("resource.type")
		return ok && got == resource.Stringify(c.Value)

	case KindProvider:
		got, ok := input.String("resource.provider")
		return ok && got == resource.Stringify(c.Value)

	case KindRegion:
		got, ok := input.String("resource.region")
		return ok && got == resource.Stringify(c.Value)

	case KindAnd:
		for i := range c.Children {
			if !Evaluate(c.Children[i], input, registry) {
				return false
			}
		}
		return true

	case KindOr:
		for i := range c.Children {
			if Evaluate(c.Children[i], input, registry) {
				return true
			}
		}
		return false

	case KindNot:
		if len(c.Children) != 1 {
			return false
		}
		return !Evaluate(c.Children[0], input, registry)

	case KindCustom:
		if registry == nil {
			return false
		}
		return registry.Resolve(c.Name, c.Args, input)

	default:
		return false
	}
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
