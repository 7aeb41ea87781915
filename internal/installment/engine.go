// Package installment реализует расчёт рассрочки: проценты, ежемесячный платёж и график платежей.
package installment

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/model"
)

var (
	// ErrInvalidPlan возвращается для неизвестного плана рассрочки.
	ErrInvalidPlan = errors.New("invalid installment plan")
	// ErrInvalidPrice возвращается для неположительной цены.
	ErrInvalidPrice = errors.New("price must be positive")
	// ErrInvalidDownPayment возвращается, если первый взнос отрицателен или превышает цену.
	ErrInvalidDownPayment = errors.New("down payment must be between zero and price")
	// ErrPaymentNotFound возвращается, если платёж отсутствует в графике.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrPaymentAlreadyPaid возвращается при повторной оплате платежа.
	ErrPaymentAlreadyPaid = errors.New("payment already paid")
	// ErrInstallmentClosed возвращается при оплате неактивного плана.
	ErrInstallmentClosed = errors.New("installment is not active")
)

var hundred = decimal.NewFromInt(100)

// TotalWithInterest возвращает сумму с простыми процентами плана.
func TotalWithInterest(amount int64, p model.PlanOption) decimal.Decimal {
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(int64(100 + p.InterestRate))).
		Div(hundred)
}

// MonthlyPayment возвращает ежемесячный платёж для суммы и плана.
func MonthlyPayment(amount int64, p model.PlanOption) decimal.Decimal {
	return TotalWithInterest(amount, p).Div(decimal.NewFromInt(int64(p.Duration)))
}

// Calculate рассчитывает рассрочку. Проценты начисляются только на остаток после первого взноса.
func Calculate(price int64, plan string, downPayment int64) (*model.InstallmentQuote, error) {
	p, err := ParsePlan(plan)
	if err != nil {
		return nil, err
	}
	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	if downPayment < 0 || downPayment > price {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidDownPayment, downPayment, price)
	}

	remaining := price - downPayment
	total := TotalWithInterest(remaining, p)

	return &model.InstallmentQuote{
		ProductPrice:    price,
		DownPayment:     downPayment,
		RemainingAmount: remaining,
		TotalAmount:     total,
		MonthlyPayment:  total.Div(decimal.NewFromInt(int64(p.Duration))),
		Duration:        p.Duration,
		InterestRate:    p.InterestRate,
		InterestAmount:  total.Sub(decimal.NewFromInt(remaining)),
	}, nil
}

// GenerateSchedule формирует график из duration платежей. Первый платёж наступает через месяц после start.
func GenerateSchedule(installmentID string, monthlyPayment decimal.Decimal, duration int, start time.Time) []model.InstallmentPayment {
	if duration <= 0 {
		return []model.InstallmentPayment{}
	}

	payments := make([]model.InstallmentPayment, 0, duration)
	for i := 0; i < duration; i++ {
		payments = append(payments, model.InstallmentPayment{
			ID:            fmt.Sprintf("%s-%d", installmentID, i+1),
			InstallmentID: installmentID,
			Amount:        monthlyPayment,
			DueDate:       start.AddDate(0, i+1, 0),
			Status:        model.PaymentStatusPending,
		})
	}
	return payments
}

// NewInstallment создаёт активный план рассрочки с графиком платежей.
func NewInstallment(id, userID string, product model.Product, quote model.InstallmentQuote, start time.Time) model.Installment {
	return model.Installment{
		ID:             id,
		UserID:         userID,
		ProductID:      product.ID,
		ProductName:    product.Name,
		ProductImage:   product.FirstImage(),
		ProductPrice:   quote.ProductPrice,
		DownPayment:    quote.DownPayment,
		TotalAmount:    quote.TotalAmount,
		MonthlyPayment: quote.MonthlyPayment,
		Duration:       quote.Duration,
		InterestRate:   quote.InterestRate,
		Payments:       GenerateSchedule(id, quote.MonthlyPayment, quote.Duration, start),
		Status:         model.InstallmentStatusActive,
		CreatedAt:      start,
	}
}

// PaymentProgress возвращает долю оплаченных платежей в процентах.
func PaymentProgress(inst model.Installment) float64 {
	if inst.Duration <= 0 {
		return 0
	}
	return float64(inst.PaidInstallments) / float64(inst.Duration) * 100
}

// NextPaymentDate возвращает срок ближайшего ожидающего платежа.
func NextPaymentDate(inst model.Installment) (time.Time, bool) {
	var pending []time.Time
	for _, p := range inst.Payments {
		if p.Status == model.PaymentStatusPending {
			pending = append(pending, p.DueDate)
		}
	}
	if len(pending) == 0 {
		return time.Time{}, false
	}

	sort.Slice(pending, func(i, j int) bool { return pending[i].Before(pending[j]) })
	return pending[0], true
}

// Engine хранит настройки рассрочки и источник текущего времени.
type Engine struct {
	enabled   bool
	minAmount int64
	now       func() time.Time
}

// Option настраивает Engine.
type Option func(*Engine)

// WithEnabled включает или выключает рассрочку глобально.
func WithEnabled(enabled bool) Option {
	return func(e *Engine) { e.enabled = enabled }
}

// WithMinAmount задаёт минимальную цену для рассрочки.
func WithMinAmount(amount int64) Option {
	return func(e *Engine) { e.minAmount = amount }
}

// WithClock задаёт источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine создаёт Engine с настройками по умолчанию: рассрочка включена, минимум MinAmount.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		enabled:   true,
		minAmount: MinAmount,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now возвращает текущее время по часам движка.
func (e *Engine) Now() time.Time {
	return e.now()
}

// MinAmount возвращает минимальную цену для рассрочки.
func (e *Engine) MinAmount() int64 {
	return e.minAmount
}

// IsEligible сообщает, доступна ли рассрочка для цены.
func (e *Engine) IsEligible(price int64) bool {
	return e.enabled && price >= e.minAmount
}

// LowestMonthlyPayment возвращает минимальный ежемесячный платёж (самый длинный план) для полной цены.
func (e *Engine) LowestMonthlyPayment(price int64) (decimal.Decimal, bool) {
	if !e.IsEligible(price) {
		return decimal.Zero, false
	}
	longest := plans[len(plans)-1]
	return MonthlyPayment(price, longest), true
}

// IsPaymentOverdue сообщает, просрочен ли неоплаченный платёж.
func (e *Engine) IsPaymentOverdue(p model.InstallmentPayment) bool {
	if p.Status == model.PaymentStatusPaid {
		return false
	}
	return e.now().After(p.DueDate)
}

// UpdateOverduePayments возвращает копию плана, в которой просроченные ожидающие платежи
// переведены в статус overdue. Второе значение сообщает, изменился ли хотя бы один платёж.
func (e *Engine) UpdateOverduePayments(inst model.Installment) (model.Installment, bool) {
	payments := make([]model.InstallmentPayment, len(inst.Payments))
	copy(payments, inst.Payments)

	changed := false
	for i := range payments {
		if payments[i].Status == model.PaymentStatusPending && e.IsPaymentOverdue(payments[i]) {
			payments[i].Status = model.PaymentStatusOverdue
			changed = true
		}
	}

	inst.Payments = payments
	return inst, changed
}

// RecordPayment отмечает платёж оплаченным. Просроченный платёж тоже может быть оплачен.
// Когда оплачены все платежи, план переходит в статус completed.
func (e *Engine) RecordPayment(inst model.Installment, paymentID string) (model.Installment, error) {
	if inst.Status != model.InstallmentStatusActive {
		return inst, ErrInstallmentClosed
	}

	payments := make([]model.InstallmentPayment, len(inst.Payments))
	copy(payments, inst.Payments)

	idx := -1
	for i := range payments {
		if payments[i].ID == paymentID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return inst, fmt.Errorf("%w: %s", ErrPaymentNotFound, paymentID)
	}
	if payments[idx].Status == model.PaymentStatusPaid {
		return inst, ErrPaymentAlreadyPaid
	}

	now := e.now()
	payments[idx].Status = model.PaymentStatusPaid
	payments[idx].PaidAt = &now

	paid := 0
	for _, p := range payments {
		if p.Status == model.PaymentStatusPaid {
			paid++
		}
	}

	inst.Payments = payments
	inst.PaidInstallments = paid
	if paid == len(payments) {
		inst.Status = model.InstallmentStatusCompleted
		inst.CompletedAt = &now
	}

	return inst, nil
}
