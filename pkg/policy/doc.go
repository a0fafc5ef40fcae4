// Package policy implements trigger-mode governance policies: ordered
// rule lists whose conditions are phrased as the bad state, so a true
// evaluation fires the rule and contributes its action to the result.
//
// The package provides single-policy evaluation, deny-wins multi-policy
// aggregation, and bulk scanning of resource inventories with scope
// pre-filtering and waiver-aware violation construction. Assertion-mode
// compliance controls, which invert the polarity, live in
// pkg/compliance and share this package's Violation record.
package policy
