package cart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"babyfood-store/internal/models"
	"babyfood-store/internal/storage"
)

func TestRegistryOpensOneStorePerSession(t *testing.T) {
	st := storage.NewMemoryStorage()
	reg := NewRegistry(Options{Storage: st})
	ctx := context.Background()

	a, err := reg.Open(ctx, "session-a")
	require.NoError(t, err)
	again, err := reg.Open(ctx, " session-a ")
	require.NoError(t, err)
	assert.Same(t, a, again)

	b, err := reg.Open(ctx, "session-b")
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, reg.Len())

	require.NoError(t, a.Add("manzana", nil, 2, Snapshot{UnitPrice: 3000}))
	assert.Equal(t, 0, b.TotalItems())

	_, err = reg.Open(ctx, "")
	require.Error(t, err)
}

func TestRegistryCloseDrainsAndRehydrates(t *testing.T) {
	st := storage.NewMemoryStorage()
	ctx := context.Background()

	reg := NewRegistry(Options{Storage: st})
	s, err := reg.Open(ctx, "abc")
	require.NoError(t, err)
	require.NoError(t, s.Add("manzana", nil, 3, Snapshot{UnitPrice: 3000}))
	require.NoError(t, reg.Close(ctx))

	_, err = reg.Open(ctx, "abc")
	require.ErrorIs(t, err, ErrClosed)

	state, found, err := st.Load(ctx, "cart:abc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 3, state.TotalItems())

	next := NewRegistry(Options{Storage: st})
	t.Cleanup(func() { _ = next.Close(ctx) })
	reopened, err := next.Open(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, int64(9000), reopened.Subtotal())
}

func TestRegistryEvictsIdleStores(t *testing.T) {
	st := storage.NewMemoryStorage()
	ctx := context.Background()
	reg := NewRegistry(Options{Storage: st, IdleTimeout: time.Minute})
	t.Cleanup(func() { _ = reg.Close(ctx) })
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	idle, err := reg.Open(ctx, "idle")
	require.NoError(t, err)
	require.NoError(t, idle.Add("manzana", nil, 2, Snapshot{UnitPrice: 3000}))
	_, err = reg.Open(ctx, "busy")
	require.NoError(t, err)
	streaming, err := reg.Open(ctx, "streaming")
	require.NoError(t, err)
	unsubscribe := streaming.Subscribe(func(models.CartState) {})
	defer unsubscribe()

	now = now.Add(2 * time.Minute)
	_, ok := reg.Lookup("busy")
	require.True(t, ok)

	evicted, err := reg.EvictIdle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 2, reg.Len())
	require.ErrorIs(t, idle.Add("manzana", nil, 1, Snapshot{UnitPrice: 3000}), ErrClosed)

	_, ok = reg.Lookup("idle")
	assert.False(t, ok)
	reopened, err := reg.Open(ctx, "idle")
	require.NoError(t, err)
	assert.NotSame(t, idle, reopened)
	assert.Equal(t, 2, reopened.TotalItems())
}

func TestRegistryLookupDoesNotCreate(t *testing.T) {
	reg := NewRegistry(Options{Storage: storage.NewMemoryStorage()})
	t.Cleanup(func() { _ = reg.Close(context.Background()) })

	_, ok := reg.Lookup("fresh")
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Len())
}

func TestBadgeLabel(t *testing.T) {
	tests := []struct {
		total int
		want  string
	}{
		{0, ""},
		{-3, ""},
		{1, "1"},
		{99, "99"},
		{100, "99+"},
		{250, "99+"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BadgeLabel(tt.total), "total %d", tt.total)
	}
}
