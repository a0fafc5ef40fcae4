package waiver

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store. Reads take a shared lock; writes are
// serialized. It behaves identically to the durable store under the Store
// contract and is the default for tests and single-shot CLI scans.
type MemoryStore struct {
	mu      sync.RWMutex
	waivers map[memoryKey]Waiver
}

type memoryKey struct {
	targetID   string
	resourceID string
}

// NewMemoryStore creates an empty in-memory waiver store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		waivers: make(map[memoryKey]Waiver),
	}
}

// Add implements Store. Last write wins for a given pair.
func (s *MemoryStore) Add(_ context.Context, w Waiver) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waivers[memoryKey{w.TargetID, w.ResourceID}] = w
	return nil
}

// Remove implements Store.
func (s *MemoryStore) Remove(_ context.Context, targetID, resourceID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memoryKey{targetID, resourceID}
	if _, ok := s.waivers[key]; !ok {
		return false, nil
	}
	delete(s.waivers, key)
	return true, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, targetID, resourceID string) (*Waiver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.waivers[memoryKey{targetID, resourceID}]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

// List implements Store. Results are ordered by (target, resource) for
// stable output.
func (s *MemoryStore) List(_ context.Context) ([]Waiver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Waiver, 0, len(s.waivers))
	for _, w := range s.waivers {
		out = append(out, w)
	}
	sortWaivers(out)
	return out, nil
}

// ListActive implements Store.
func (s *MemoryStore) ListActive(_ context.Context, now time.Time) ([]Waiver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Waiver
	for _, w := range s.waivers {
		if w.Active(now) {
			out = append(out, w)
		}
	}
	sortWaivers(out)
	return out, nil
}

// IsWaived implements Store.
func (s *MemoryStore) IsWaived(_ context.Context, targetID, resourceID string, now time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.waivers[memoryKey{targetID, resourceID}]
	return ok && w.Active(now), nil
}

func sortWaivers(ws []Waiver) {
	sort.Slice(ws, func(i, j int) bool {
		if ws[i].TargetID != ws[j].TargetID {
			return ws[i].TargetID < ws[j].TargetID
		}
		return ws[i].ResourceID < ws[j].ResourceID
	})
}
