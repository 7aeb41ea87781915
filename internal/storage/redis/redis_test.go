package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	mr := miniredis.RunT(t)
	s, err := New(mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_GetSetSubscribe(t *testing.T) {
	s := newTestStore(t)
	key := "cart:s1"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	ch, err := s.Subscribe(ctx, key)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, key, `[]`))

	v, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, v)

	select {
	case <-ch:
	case <-ctx.Done():
		t.Fatalf("no notification for key %s", key)
	}
}

// failingTx обрывает отправку транзакций, не трогая одиночные команды.
type failingTx struct{}

func (failingTx) DialHook(next goredis.DialHook) goredis.DialHook { return next }

func (failingTx) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook { return next }

func (failingTx) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		return errors.New("connection reset")
	}
}

func TestStore_SetFailureLeavesValueUnchanged(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := "cart:s1"

	require.NoError(t, s.Set(ctx, key, `["old"]`))

	s.client.AddHook(failingTx{})
	require.Error(t, s.Set(ctx, key, `["new"]`))

	v, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["old"]`, v)
}
