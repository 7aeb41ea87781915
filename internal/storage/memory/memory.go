// Package memory содержит хранилища в памяти процесса: key-value и планы рассрочки.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/storage"
)

var (
	_ storage.Store      = (*Store)(nil)
	_ storage.Subscriber = (*Store)(nil)
)

// Store хранит значения в памяти процесса и рассылает уведомления об изменениях.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
	subs   map[string]map[chan struct{}]struct{}
}

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	return &Store{
		values: make(map[string]string),
		subs:   make(map[string]map[chan struct{}]struct{}),
	}
}

// Get возвращает значение по ключу.
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	return v, ok, nil
}

// Set записывает значение и уведомляет подписчиков ключа.
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	for ch := range s.subs[key] {
		select {
		case ch <- struct{}{}:
		default:
			// подписчик ещё не забрал предыдущее уведомление
		}
	}
	return nil
}

// Subscribe возвращает канал уведомлений об изменении ключа.
func (s *Store) Subscribe(ctx context.Context, key string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	if s.subs[key] == nil {
		s.subs[key] = make(map[chan struct{}]struct{})
	}
	s.subs[key][ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs[key], ch)
		if len(s.subs[key]) == 0 {
			delete(s.subs, key)
		}
		close(ch)
		s.mu.Unlock()
	}()

	return ch, nil
}

// InstallmentStore хранит планы рассрочки в памяти.
type InstallmentStore struct {
	mu    sync.RWMutex
	items map[string]model.Installment
}

// NewInstallmentStore создаёт пустое хранилище планов.
func NewInstallmentStore() *InstallmentStore {
	return &InstallmentStore{items: make(map[string]model.Installment)}
}

// Close ничего не делает и нужен для совместимости с репозиторием PostgreSQL.
func (s *InstallmentStore) Close() error { return nil }

// CreateInstallment сохраняет новый план.
func (s *InstallmentStore) CreateInstallment(_ context.Context, inst *model.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[inst.ID]; ok {
		return storage.ErrInstallmentExists
	}
	s.items[inst.ID] = clone(*inst)
	return nil
}

// GetInstallment возвращает план по идентификатору.
func (s *InstallmentStore) GetInstallment(_ context.Context, id string) (*model.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.items[id]
	if !ok {
		return nil, storage.ErrInstallmentNotFound
	}
	res := clone(inst)
	return &res, nil
}

// GetInstallmentsByUser возвращает планы пользователя, новые первыми.
func (s *InstallmentStore) GetInstallmentsByUser(_ context.Context, userID string) ([]model.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []model.Installment
	for _, inst := range s.items {
		if inst.UserID == userID {
			res = append(res, clone(inst))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

// GetActiveInstallments возвращает до limit активных планов, старые первыми.
func (s *InstallmentStore) GetActiveInstallments(_ context.Context, limit int) ([]model.Installment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []model.Installment
	for _, inst := range s.items {
		if inst.Status == model.InstallmentStatusActive {
			res = append(res, clone(inst))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// UpdateInstallment перезаписывает существующий план.
func (s *InstallmentStore) UpdateInstallment(_ context.Context, inst *model.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[inst.ID]; !ok {
		return storage.ErrInstallmentNotFound
	}
	s.items[inst.ID] = clone(*inst)
	return nil
}

func clone(inst model.Installment) model.Installment {
	payments := make([]model.InstallmentPayment, len(inst.Payments))
	copy(payments, inst.Payments)
	inst.Payments = payments
	return inst
}
