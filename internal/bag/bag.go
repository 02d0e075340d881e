// Package bag implements the shopping bag: an ordered collection of line
// items persisted as a whole snapshot on every mutation.
package bag

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	catalog "github.com/vetrina/storefront/internal/domain/catalog"
)

// ErrNoSnapshot is returned by a Snapshots backend when no snapshot exists
// under the requested key. Distinct from an empty snapshot: a cleared bag has
// no snapshot at all.
var ErrNoSnapshot = errors.New("no bag snapshot")

// Line is one purchase intent: a product snapshot taken at add time plus the
// selected variation and size. Later catalog changes never mutate bag
// contents because the product is held by value.
type Line struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
	Color    string          `json:"selectedColor"`
	Size     string          `json:"selectedSize"`
}

// Subtotal is the line's price contribution.
func (l Line) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// matches reports whether the line is selected by the given key parts.
// Empty color or size act as wildcards, giving the three removal
// granularities: exact line, product+color, whole product.
func (l Line) matches(productID, color, size string) bool {
	if l.Product.ID != productID {
		return false
	}
	if color != "" && l.Color != color {
		return false
	}
	if size != "" && l.Size != size {
		return false
	}
	return true
}

// Snapshots persists whole-bag snapshots under a session key.
type Snapshots interface {
	// Load returns the persisted lines, ErrNoSnapshot when the key is absent,
	// or a decode error when the stored payload is malformed.
	Load(ctx context.Context, key string) ([]Line, error)
	// Save overwrites the full snapshot for the key.
	Save(ctx context.Context, key string, lines []Line) error
	// Delete removes the snapshot entirely.
	Delete(ctx context.Context, key string) error
}

// Store holds one session's bag. Every mutation synchronously rewrites the
// persisted snapshot; persistence failures degrade to in-memory-only
// behaviour and are never surfaced to the caller.
//
// The itemAdded flag is edge-triggered: set on every successful Add and only
// cleared by an explicit ResetItemAdded from the consumer.
type Store struct {
	key   string
	snaps Snapshots
	lg    *zap.Logger

	mu        sync.Mutex
	lines     []Line
	itemAdded bool
}

// Restore builds a Store for key from its persisted snapshot. A missing or
// malformed snapshot yields an empty bag, never an error.
func Restore(ctx context.Context, key string, snaps Snapshots, lg *zap.Logger) *Store {
	s := &Store{key: key, snaps: snaps, lg: lg}

	lines, err := snaps.Load(ctx, key)
	switch {
	case err == nil:
		s.lines = lines
	case errors.Is(err, ErrNoSnapshot):
		// First visit, nothing to restore.
	default:
		lg.Warn("bag snapshot unreadable, starting empty",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return s
}

// Add merges the quantity into an existing line with the same
// (product, color, size) identity, or appends a new line. Quantity validation
// is the caller's job; this layer accepts whatever it is given.
func (s *Store) Add(ctx context.Context, p catalog.Product, quantity int, color, size string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := false
	for i := range s.lines {
		l := &s.lines[i]
		if l.Product.ID == p.ID && l.Color == color && l.Size == size {
			l.Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		s.lines = append(s.lines, Line{Product: p, Quantity: quantity, Color: color, Size: size})
	}

	s.itemAdded = true
	s.persist(ctx)
}

// Remove deletes matching lines. Empty color removes every line of the
// product; empty size removes every size of the product+color combination.
// Removing a non-existent combination is a no-op.
func (s *Store) Remove(ctx context.Context, productID, color, size string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.lines[:0]
	for _, l := range s.lines {
		if !l.matches(productID, color, size) {
			kept = append(kept, l)
		}
	}
	s.lines = kept
	s.persist(ctx)
}

// UpdateQuantity sets the matching line's quantity to an absolute value. A
// zero quantity leaves the line in place; purging it is an explicit Remove
// made by the orchestrating layer.
func (s *Store) UpdateQuantity(ctx context.Context, productID, color, size string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		l := &s.lines[i]
		if l.Product.ID == productID && l.Color == color && l.Size == size {
			l.Quantity = quantity
			break
		}
	}
	s.persist(ctx)
}

// Clear empties the bag and deletes the persisted snapshot entirely,
// distinguishing "emptied" from "never used".
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	if err := s.snaps.Delete(ctx, s.key); err != nil {
		s.lg.Warn("bag snapshot delete failed",
			zap.String("key", s.key),
			zap.Error(err),
		)
	}
}

// Total recomputes Σ(price × quantity) over all lines on every call, so it is
// never stale relative to line mutations.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Lines returns a copy of the bag contents in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// ItemAdded reports the edge-triggered add signal.
func (s *Store) ItemAdded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemAdded
}

// ResetItemAdded clears the add signal. The store never clears it on its own.
func (s *Store) ResetItemAdded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.itemAdded = false
}

// persist rewrites the whole snapshot. Callers hold s.mu.
func (s *Store) persist(ctx context.Context) {
	if err := s.snaps.Save(ctx, s.key, s.lines); err != nil {
		s.lg.Warn("bag snapshot write failed, continuing in memory",
			zap.String("key", s.key),
			zap.Error(err),
		)
	}
}

// managedStore pairs a Store with its last access time for idle eviction.
type managedStore struct {
	store    *Store
	lastSeen time.Time
}

// Manager hands out one Store per session key, restoring from the snapshot
// backend on first use.
type Manager struct {
	snaps Snapshots
	lg    *zap.Logger

	mu     sync.Mutex
	stores map[string]*managedStore
}

// NewManager creates a Manager over the given snapshot backend.
func NewManager(snaps Snapshots, lg *zap.Logger) *Manager {
	return &Manager{
		snaps:  snaps,
		lg:     lg,
		stores: make(map[string]*managedStore),
	}
}

// Store returns the bag store for key, restoring it on first access.
func (m *Manager) Store(ctx context.Context, key string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if e, ok := m.stores[key]; ok {
		e.lastSeen = now
		return e.store
	}
	s := Restore(ctx, key, m.snaps, m.lg)
	m.stores[key] = &managedStore{store: s, lastSeen: now}
	return s
}

// evictIdle drops stores not accessed since the cutoff and reports how many
// were dropped. Evicted state is not lost: every mutation persists a
// snapshot, so the next access restores the bag from its backend.
func (m *Manager) evictIdle(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int
	for key, e := range m.stores {
		if e.lastSeen.Before(cutoff) {
			delete(m.stores, key)
			n++
		}
	}
	return n
}

// StartEviction sweeps stores idle for longer than idleTTL on that same
// interval until ctx is cancelled. Without it the store map grows with every
// distinct session key ever seen.
func (m *Manager) StartEviction(ctx context.Context, idleTTL time.Duration) {
	go func() {
		ticker := time.NewTicker(idleTTL)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := m.evictIdle(now.Add(-idleTTL)); n > 0 {
					m.lg.Debug("evicted idle bag stores", zap.Int("count", n))
				}
			}
		}
	}()
}
