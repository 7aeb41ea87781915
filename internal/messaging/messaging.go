// Package messaging описывает публикацию доменных событий в брокер сообщений.
package messaging

import "context"

// Топики доменных событий.
const (
	TopicInstallmentCreated = "installment.created"
	TopicPaymentRecorded    = "installment.payment-recorded"
	TopicPaymentOverdue     = "installment.payment-overdue"
	TopicCartCheckedOut     = "cart.checked-out"
)

// Publisher публикует событие в топик. Ключ определяет партицию.
type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

// Nop ничего не отправляет. Используется, когда брокер не настроен.
type Nop struct{}

// PublishEvent ничего не делает.
func (Nop) PublishEvent(context.Context, string, string, any) error { return nil }
