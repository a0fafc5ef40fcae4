// Package engine provides the top-level governance service for CloudGovern.
//
// # Overview
//
// CloudGovern evaluates infrastructure resources against two kinds of
// checks with opposite polarity:
//
//  1. Policies - trigger-mode rules whose conditions describe the bad
//     state; a true evaluation fires the rule (pkg/policy)
//  2. Controls - assertion-mode predicates that describe the required
//     state; a false evaluation is a violation (pkg/compliance)
//
// The Governor wires both together with policy persistence, compliance
// framework registration, waiver reclassification, report storage, and
// telemetry. Every error it returns is an *EngineError classified as
// validation, not_found, storage, or internal, so callers can map errors
// to exit codes or HTTP statuses without string matching.
//
// # Error Contract
//
// Evaluation itself never errors: malformed conditions and absent fields
// evaluate to false. Errors surface only at the boundaries - rejected
// policy documents (validation), unknown policy or framework IDs
// (not_found), and persistence failures (storage), which are always
// propagated rather than degraded into "not waived" or empty results.
package engine
