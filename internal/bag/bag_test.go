package bag

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	catalog "github.com/vetrina/storefront/internal/domain/catalog"
)

// memSnaps stores serialized snapshots in memory, going through JSON the same
// way the durable backends do.
type memSnaps struct {
	data    map[string][]byte
	loadErr error
	saveErr error
}

func newMemSnaps() *memSnaps {
	return &memSnaps{data: make(map[string][]byte)}
}

func (m *memSnaps) Load(_ context.Context, key string) ([]Line, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	raw, ok := m.data[key]
	if !ok {
		return nil, ErrNoSnapshot
	}
	var lines []Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	return lines, nil
}

func (m *memSnaps) Save(_ context.Context, key string, lines []Line) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memSnaps) Delete(_ context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func testProduct(id, name string, price string) catalog.Product {
	return catalog.Product{
		ID:          id,
		Slug:        catalog.Slugify(name),
		Name:        name,
		Price:       decimal.RequireFromString(price),
		Image:       "https://images.example.com/" + id + ".jpg",
		Description: catalog.PlainText("test product"),
		Variations: []catalog.Variation{
			{Name: "Black", Value: "#000000"},
			{Name: "Red", Value: "#c0392b"},
		},
		Sizes: []catalog.Size{
			{Name: "M", Value: "m"},
			{Name: "L", Value: "l"},
		},
	}
}

func newStore(t *testing.T) (*Store, *memSnaps) {
	t.Helper()
	snaps := newMemSnaps()
	return Restore(context.Background(), "session-1", snaps, zap.NewNop()), snaps
}

func TestAdd_MergesSameIdentity(t *testing.T) {
	s, _ := newStore(t)
	p := testProduct("p1", "Zenith Jacket", "120.00")

	s.Add(context.Background(), p, 2, "#000000", "m")
	s.Add(context.Background(), p, 1, "#000000", "m")

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestAdd_DistinctIdentityCreatesNewLine(t *testing.T) {
	s, _ := newStore(t)
	p := testProduct("p1", "Zenith Jacket", "120.00")

	s.Add(context.Background(), p, 1, "#c0392b", "m")
	s.Add(context.Background(), p, 1, "#c0392b", "l")

	require.Len(t, s.Lines(), 2)
}

func TestRemove_Granularity(t *testing.T) {
	ctx := context.Background()
	p := testProduct("p1", "Zenith Jacket", "120.00")
	other := testProduct("p2", "Silk Scarf", "45.00")

	setup := func(t *testing.T) *Store {
		s, _ := newStore(t)
		s.Add(ctx, p, 1, "#c0392b", "m")
		s.Add(ctx, p, 1, "#c0392b", "l")
		s.Add(ctx, p, 1, "#000000", "m")
		s.Add(ctx, other, 1, "#000000", "m")
		return s
	}

	t.Run("exact line", func(t *testing.T) {
		s := setup(t)
		s.Remove(ctx, "p1", "#c0392b", "m")
		assert.Len(t, s.Lines(), 3)
	})

	t.Run("product and color, any size", func(t *testing.T) {
		s := setup(t)
		s.Remove(ctx, "p1", "#c0392b", "")
		assert.Len(t, s.Lines(), 2)
	})

	t.Run("whole product", func(t *testing.T) {
		s := setup(t)
		s.Remove(ctx, "p1", "", "")
		lines := s.Lines()
		require.Len(t, lines, 1)
		assert.Equal(t, "p2", lines[0].Product.ID)
	})

	t.Run("no match is a no-op", func(t *testing.T) {
		s := setup(t)
		s.Remove(ctx, "p9", "", "")
		assert.Len(t, s.Lines(), 4)
	})
}

func TestUpdateQuantity_SetsAbsoluteAndKeepsZero(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	p := testProduct("p1", "Zenith Jacket", "120.00")

	s.Add(ctx, p, 5, "#000000", "m")
	s.UpdateQuantity(ctx, "p1", "#000000", "m", 2)

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)

	// Zero quantity does not auto-remove the line.
	s.UpdateQuantity(ctx, "p1", "#000000", "m", 0)
	lines = s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 0, lines[0].Quantity)
}

func TestTotal_RecomputedAfterEveryMutation(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	jacket := testProduct("p1", "Zenith Jacket", "120.00")
	scarf := testProduct("p2", "Silk Scarf", "45.50")

	s.Add(ctx, jacket, 2, "#000000", "m")
	assert.True(t, decimal.RequireFromString("240.00").Equal(s.Total()))

	s.Add(ctx, scarf, 1, "#c0392b", "l")
	assert.True(t, decimal.RequireFromString("285.50").Equal(s.Total()))

	s.UpdateQuantity(ctx, "p1", "#000000", "m", 1)
	assert.True(t, decimal.RequireFromString("165.50").Equal(s.Total()))

	s.Remove(ctx, "p2", "", "")
	assert.True(t, decimal.RequireFromString("120.00").Equal(s.Total()))
}

func TestScenario_AddMergeZeroThenExplicitRemove(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	p := testProduct("1", "Zenith Jacket", "120.00")

	s.Add(ctx, p, 2, "#000000", "m")
	assert.True(t, decimal.RequireFromString("240.00").Equal(s.Total()))

	s.Add(ctx, p, 1, "#000000", "m")
	require.Len(t, s.Lines(), 1)
	assert.Equal(t, 3, s.Lines()[0].Quantity)
	assert.True(t, decimal.RequireFromString("360.00").Equal(s.Total()))

	s.UpdateQuantity(ctx, "1", "#000000", "m", 0)
	require.Len(t, s.Lines(), 1, "zero quantity line must not be auto-removed")

	s.Remove(ctx, "1", "#000000", "m")
	assert.Empty(t, s.Lines())
	assert.True(t, decimal.Zero.Equal(s.Total()))
}

func TestPersistence_RoundTrip(t *testing.T) {
	ctx := context.Background()
	snaps := newMemSnaps()
	lg := zap.NewNop()

	s := Restore(ctx, "session-1", snaps, lg)
	jacket := testProduct("p1", "Zenith Jacket", "120.00")
	scarf := testProduct("p2", "Silk Scarf", "45.50")
	s.Add(ctx, jacket, 2, "#000000", "m")
	s.Add(ctx, scarf, 1, "#c0392b", "l")

	// Simulate a process restart reading the same storage slot.
	restored := Restore(ctx, "session-1", snaps, lg)
	want, got := s.Lines(), restored.Lines()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Product.ID, got[i].Product.ID)
		assert.Equal(t, want[i].Product.Slug, got[i].Product.Slug)
		assert.Equal(t, want[i].Product.Variations, got[i].Product.Variations)
		assert.Equal(t, want[i].Product.Sizes, got[i].Product.Sizes)
		assert.True(t, want[i].Product.Price.Equal(got[i].Product.Price))
		assert.Equal(t, want[i].Quantity, got[i].Quantity)
		assert.Equal(t, want[i].Color, got[i].Color)
		assert.Equal(t, want[i].Size, got[i].Size)
	}
	assert.True(t, s.Total().Equal(restored.Total()))
}

func TestRestore_MalformedSnapshotYieldsEmptyBag(t *testing.T) {
	ctx := context.Background()
	snaps := newMemSnaps()
	snaps.data["session-1"] = []byte("{not json")

	s := Restore(ctx, "session-1", snaps, zap.NewNop())
	assert.Empty(t, s.Lines())
}

func TestRestore_MissingSnapshotYieldsEmptyBag(t *testing.T) {
	s, _ := newStore(t)
	assert.Empty(t, s.Lines())
	assert.True(t, decimal.Zero.Equal(s.Total()))
}

func TestSaveFailure_DegradesToInMemory(t *testing.T) {
	ctx := context.Background()
	snaps := newMemSnaps()
	snaps.saveErr = errors.New("disk full")

	s := Restore(ctx, "session-1", snaps, zap.NewNop())
	s.Add(ctx, testProduct("p1", "Zenith Jacket", "120.00"), 1, "#000000", "m")

	// Mutation succeeded in memory even though persistence failed.
	assert.Len(t, s.Lines(), 1)
}

func TestClear_DeletesSnapshotEntirely(t *testing.T) {
	ctx := context.Background()
	snaps := newMemSnaps()
	s := Restore(ctx, "session-1", snaps, zap.NewNop())

	s.Add(ctx, testProduct("p1", "Zenith Jacket", "120.00"), 1, "#000000", "m")
	require.Contains(t, snaps.data, "session-1")

	s.Clear(ctx)
	assert.Empty(t, s.Lines())
	assert.NotContains(t, snaps.data, "session-1", "clear removes the slot, not just writes an empty array")
}

func TestItemAddedSignal_EdgeTriggered(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	p := testProduct("p1", "Zenith Jacket", "120.00")

	assert.False(t, s.ItemAdded())

	s.Add(ctx, p, 1, "#000000", "m")
	assert.True(t, s.ItemAdded())

	// The store never clears the signal on its own.
	s.Remove(ctx, "p1", "#000000", "m")
	assert.True(t, s.ItemAdded())

	s.ResetItemAdded()
	assert.False(t, s.ItemAdded())
}

func TestManager_ReusesStorePerSession(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newMemSnaps(), zap.NewNop())

	a := m.Store(ctx, "session-a")
	b := m.Store(ctx, "session-b")
	assert.NotSame(t, a, b)
	assert.Same(t, a, m.Store(ctx, "session-a"))
}

func TestManager_EvictsIdleStores(t *testing.T) {
	ctx := context.Background()
	snaps := newMemSnaps()
	m := NewManager(snaps, zap.NewNop())

	idle := m.Store(ctx, "session-idle")
	idle.Add(ctx, testProduct("p1", "Zenith Jacket", "120.00"), 2, "#000000", "m")

	cutoff := time.Now().Add(time.Second)
	m.Store(ctx, "session-active")
	m.stores["session-active"].lastSeen = cutoff.Add(time.Minute)

	assert.Equal(t, 1, m.evictIdle(cutoff))
	assert.NotContains(t, m.stores, "session-idle")
	assert.Contains(t, m.stores, "session-active")

	// The evicted bag rehydrates from its snapshot on the next access.
	restored := m.Store(ctx, "session-idle")
	assert.NotSame(t, idle, restored)
	require.Len(t, restored.Lines(), 1)
	assert.Equal(t, 2, restored.Lines()[0].Quantity)
}
