// Package storage описывает порты хранения: key-value хранилище состояния сессии
// и общие ошибки хранилища планов рассрочки.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrInstallmentNotFound возвращается, если план рассрочки не найден.
	ErrInstallmentNotFound = errors.New("installment not found")
	// ErrInstallmentExists возвращается при повторном создании плана с тем же идентификатором.
	ErrInstallmentExists = errors.New("installment already exists")
)

// Store описывает синхронное key-value хранилище. Значение по ключу всегда перезаписывается целиком.
type Store interface {
	// Get возвращает значение по ключу. ok == false, если ключ отсутствует.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set записывает значение по ключу.
	Set(ctx context.Context, key, value string) error
}

// Subscriber уведомляет об изменениях значения по ключу.
// Канал закрывается после отмены ctx.
type Subscriber interface {
	Subscribe(ctx context.Context, key string) (<-chan struct{}, error)
}
