// Package waiver implements time-bounded suppression of governance
// violations. A waiver reclassifies a violation as waived without removing
// it from the record; expiry is checked at query time, never via
// background eviction.
package waiver

import (
	"context"
	"time"
)

// Waiver is an approved, time-bounded exception for one
// (control-or-policy, resource) pair.
type Waiver struct {
	// ID is the unique waiver record identifier.
	ID string `json:"id"`

	// TargetID is the control or policy ID being waived.
	TargetID string `json:"target_id"`

	// ResourceID is the resource the waiver applies to.
	ResourceID string `json:"resource_id"`

	// Reason documents why the exception was granted.
	Reason string `json:"reason"`

	// ApprovedBy identifies who approved the waiver.
	ApprovedBy string `json:"approved_by"`

	// ApprovedAt is when the waiver was approved.
	ApprovedAt time.Time `json:"approved_at"`

	// ExpiresAt bounds the waiver. A waiver is active iff ExpiresAt is
	// strictly in the future relative to evaluation time.
	ExpiresAt time.Time `json:"expires_at"`
}

// Active reports whether the waiver is live at the given instant.
func (w *Waiver) Active(now time.Time) bool {
	return w.ExpiresAt.After(now)
}

// Store is the waiver supply contract. At most one waiver exists per
// (target, resource) pair; Add replaces any prior waiver for the same pair.
// Implementations must serialize writes but may serve unlimited concurrent
// reads. Store failures must be propagated, never degraded into a false
// "not waived".
type Store interface {
	// Add stores a waiver, replacing any existing waiver for the same
	// (TargetID, ResourceID) pair.
	Add(ctx context.Context, w Waiver) error

	// Remove deletes the waiver for a pair. Removing an absent pair is
	// not an error; the returned bool reports whether anything was
	// deleted.
	Remove(ctx context.Context, targetID, resourceID string) (bool, error)

	// Get returns the waiver for a pair, active or not.
	Get(ctx context.Context, targetID, resourceID string) (*Waiver, error)

	// List returns every stored waiver, including expired ones.
	List(ctx context.Context) ([]Waiver, error)

	// ListActive returns waivers with ExpiresAt strictly after now.
	ListActive(ctx context.Context, now time.Time) ([]Waiver, error)

	// IsWaived reports whether an active waiver exists for the pair at
	// the given instant.
	IsWaived(ctx context.Context, targetID, resourceID string, now time.Time) (bool, error)
}
