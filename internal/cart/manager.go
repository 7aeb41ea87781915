package cart

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/storage"
)

// ErrWatchUnsupported возвращается, если хранилище не поддерживает подписку на изменения.
var ErrWatchUnsupported = errors.New("store does not support change notifications")

const keyPrefix = "cart:"

// Manager выдаёт корзины сессий и сериализует изменения одной корзины внутри процесса.
// Между процессами действует правило последней записи.
type Manager struct {
	store  storage.Store
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewManager создаёт менеджер корзин поверх хранилища.
func NewManager(store storage.Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:  store,
		logger: logger,
		locks:  make(map[string]*keyLock),
	}
}

// Key возвращает ключ хранилища корзины сессии.
func Key(sessionID string) string {
	return keyPrefix + sessionID
}

// Do загружает корзину сессии, выполняет fn под блокировкой ключа и возвращает итоговое состояние.
// При ошибке fn возвращается состояние корзины после отката вместе с ошибкой.
func (m *Manager) Do(ctx context.Context, sessionID string, fn func(c *Cart) error) (model.CartState, error) {
	key := Key(sessionID)
	unlock := m.lock(key)
	defer unlock()

	c, err := Load(ctx, m.store, key, WithLogger(m.logger))
	if err != nil {
		return model.CartState{}, err
	}
	if fn == nil {
		return c.State(), nil
	}
	if err := fn(c); err != nil {
		return c.State(), err
	}
	return c.State(), nil
}

// Watch возвращает поток состояний корзины, обновляемый при каждой записи в хранилище.
// Канал закрывается после отмены ctx.
func (m *Manager) Watch(ctx context.Context, sessionID string) (<-chan model.CartState, error) {
	sub, ok := m.store.(storage.Subscriber)
	if !ok {
		return nil, ErrWatchUnsupported
	}

	notify, err := sub.Subscribe(ctx, Key(sessionID))
	if err != nil {
		return nil, err
	}

	out := make(chan model.CartState)
	go func() {
		defer close(out)
		for range notify {
			state, err := m.Do(ctx, sessionID, nil)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				m.logger.Warn("failed to reload cart", zap.String("session", sessionID), zap.Error(err))
				continue
			}
			select {
			case out <- state:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (m *Manager) lock(key string) func() {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}
