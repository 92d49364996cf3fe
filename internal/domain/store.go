package domain

import (
	"context"
	"time"
)

// VenueIndex maps an aggregator-format pair symbol to the ordered list of
// venue identifiers known to list it. A rebuild fully replaces the previous
// index; entries are never merged incrementally.
type VenueIndex map[string][]string

// Venues returns the venue list for a symbol, or nil when the index has no
// entry for it.
func (idx VenueIndex) Venues(symbol string) []string {
	return idx[symbol]
}

// VenueIndexStore persists the venue index between runs. Save replaces the
// whole stored index atomically.
type VenueIndexStore interface {
	// Load returns the persisted index, or ErrNotFound when none exists.
	Load(ctx context.Context) (VenueIndex, error)
	Save(ctx context.Context, idx VenueIndex) error
}

// OrderJournal records every ladder entry the seeder submits, successful or
// not, so a run can be audited after the fact.
type OrderJournal interface {
	Record(ctx context.Context, order SeedOrder) error
	ListByRun(ctx context.Context, runID string) ([]SeedOrder, error)
}

// SnapshotArchiver stores a point-in-time copy of the venue index off-box,
// keyed by name. Archival failures are non-fatal to a rebuild.
type SnapshotArchiver interface {
	Archive(ctx context.Context, name string, data []byte) error
}

// Locker serializes operations that must not run concurrently, such as venue
// index rebuilds. Acquire returns ErrLockHeld when another holder owns the
// lock; the returned unlock function is safe to call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}
