package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/storage"
	"github.com/mmeshcher/storefront/internal/storage/memory"
)

func TestManager_DoSeparatesSessions(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memory.NewStore(), zap.NewNop())

	_, err := m.Do(ctx, "s1", func(c *Cart) error {
		return c.AddItem(ctx, product("p1", "v1", 100, 5), 2, nil)
	})
	require.NoError(t, err)

	s1, err := m.Do(ctx, "s1", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, s1.ItemCount)

	s2, err := m.Do(ctx, "s2", nil)
	require.NoError(t, err)
	assert.Zero(t, s2.ItemCount)
}

func TestManager_DoReturnsStateWithError(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memory.NewStore(), nil)

	_, err := m.Do(ctx, "s1", func(c *Cart) error {
		return c.AddItem(ctx, product("p1", "v1", 100, 2), 2, nil)
	})
	require.NoError(t, err)

	state, err := m.Do(ctx, "s1", func(c *Cart) error {
		return c.AddItem(ctx, product("p1", "v1", 100, 2), 1, nil)
	})
	require.ErrorIs(t, err, ErrStockLimit)
	assert.Equal(t, 2, state.ItemCount)
}

func TestManager_ConcurrentAddsAreSerialised(t *testing.T) {
	ctx := context.Background()
	m := NewManager(memory.NewStore(), nil)
	p := product("p1", "v1", 10, 100)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Do(ctx, "s1", func(c *Cart) error {
				return c.AddItem(ctx, p, 1, nil)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := m.Do(ctx, "s1", nil)
	require.NoError(t, err)
	assert.Equal(t, 50, state.ItemCount)
	assert.Empty(t, m.locks)
}

func TestManager_Watch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewManager(memory.NewStore(), nil)

	updates, err := m.Watch(ctx, "s1")
	require.NoError(t, err)

	_, err = m.Do(ctx, "s1", func(c *Cart) error {
		return c.AddItem(ctx, product("p1", "v1", 100, 5), 1, nil)
	})
	require.NoError(t, err)

	select {
	case state := <-updates:
		assert.Equal(t, 1, state.ItemCount)
	case <-time.After(time.Second):
		t.Fatal("no cart update received")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-updates:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

type plainStore struct{ storage.Store }

func TestManager_WatchUnsupported(t *testing.T) {
	m := NewManager(plainStore{memory.NewStore()}, nil)
	_, err := m.Watch(context.Background(), "s1")
	require.ErrorIs(t, err, ErrWatchUnsupported)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "cart:abc", Key("abc"))
}
