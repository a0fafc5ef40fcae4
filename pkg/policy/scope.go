package policy

import (
	"strings"

	"github.com/cloudgovern/cloudgovern/pkg/resource"
)

// Matches decides whether a policy applies to a resource via its
// auto-attach patterns. An empty pattern list applies to every resource;
// otherwise the policy applies iff any pattern matches. This is a cheap
// pre-filter run before the condition tree so that scanning N resources
// against M policies only evaluates rules for genuinely applicable pairs.
//
// Pattern forms:
//
//	*                always matches
//	provider:<p>     exact provider match
//	type:<t>         exact resource type match
//	region:<r>       exact region match
//	tag:<k>          tag key exists
//	tag:<k>=<v>      tag key has exactly value v
func Matches(p *Policy, r *resource.Resource) bool {
	if len(p.AutoAttachPatterns) == 0 {
		return true
	}
	for _, pattern := range p.AutoAttachPatterns {
		if matchPattern(pattern, r) {
			return true
		}
	}
	return false
}

func matchPattern(pattern string, r *resource.Resource) bool {
	if pattern == "*" {
		return true
	}

	switch {
	case strings.HasPrefix(pattern, "provider:"):
		return r.Provider == strings.TrimPrefix(pattern, "provider:")

	case strings.HasPrefix(pattern, "type:"):
		return r.Type == strings.TrimPrefix(pattern, "type:")

	case strings.HasPrefix(pattern, "region:"):
		return r.Region == strings.TrimPrefix(pattern, "region:")

	case strings.HasPrefix(pattern, "tag:"):
		spec := strings.TrimPrefix(pattern, "tag:")
		if key, value, found := strings.Cut(spec, "="); found {
			got, ok := r.Tags[key]
			return ok && got == value
		}
		_, ok := r.Tags[spec]
		return ok
	}

	return false
}
