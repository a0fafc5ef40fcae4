package condition

import (
	"fmt"
	"regexp"
)

// Validate checks the structural shape of a condition tree. It is run at
// the storage boundary (policy save, file load) so that evaluation can
// stay total and exception-free. In particular, a malformed field_matches
// pattern is a configuration error caught here, never at evaluation time.
func Validate(c Condition) error {
	switch c.Kind {
	case KindFieldEquals, KindFieldNotEquals, KindFieldContains, KindFieldGT, KindFieldLT:
		if c.Field == "" {
			return fmt.Errorf("%s: field is required", c.Kind)
		}
		if c.Value == nil {
			return fmt.Errorf("%s: value is required", c.Kind)
		}

	case KindFieldMatches:
		if c.Field == "" {
			return fmt.Errorf("%s: field is required", c.Kind)
		}
		if _, err := regexp.Compile(c.Pattern); err != nil {
			return fmt.Errorf("%s: invalid pattern %q: %w", c.Kind, c.Pattern, err)
		}

	case KindFieldExists, KindFieldNotExists:
		if c.Field == "" {
			return fmt.Errorf("%s: field is required", c.Kind)
		}

	case KindFieldIn, KindFieldNotIn:
		if c.Field == "" {
			return fmt.Errorf("%s: field is required", c.Kind)
		}
		if len(c.Values) == 0 {
			return fmt.Errorf("%s: values must not be empty", c.Kind)
		}

	case KindTagMissing:
		if c.Key == "" {
			return fmt.Errorf("%s: key is required", c.Kind)
		}

	case KindTagEquals:
		if c.Key == "" {
			return fmt.Errorf("%s: key is required", c.Kind)
		}
		if c.Value == nil {
			return fmt.Errorf("%s: value is required", c.Kind)
		}

	case KindResourceType, KindProvider, KindRegion:
		if c.Value == nil {
			return fmt.Errorf("%s: value is required", c.Kind)
		}

	case KindAnd, KindOr:
		if len(c.Children) == 0 {
			return fmt.Errorf("%s: at least one child condition is required", c.Kind)
		}
		for i := range c.Children {
			if err := Validate(c.Children[i]); err != nil {
				return fmt.Errorf("%s[%d]: %w", c.Kind, i, err)
			}
		}

	case KindNot:
		if len(c.Children) != 1 {
			return fmt.Errorf("%s: exactly one child condition is required", c.Kind)
		}
		if err := Validate(c.Children[0]); err != nil {
			return fmt.Errorf("%s: %w", c.Kind, err)
		}

	case KindCustom:
		if c.Name == "" {
			return fmt.Errorf("%s: name is required", c.Kind)
		}

	case "":
		return fmt.Errorf("condition kind is required")

	default:
		return fmt.Errorf("unknown condition kind %q", c.Kind)
	}

	return nil
}
