package installment

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/storefront/internal/model"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestParsePlan(t *testing.T) {
	tests := []struct {
		name     string
		selector string
		duration int
		rate     int
		wantErr  bool
	}{
		{name: "three months", selector: "3-months", duration: 3, rate: 5},
		{name: "six months", selector: "6-months", duration: 6, rate: 10},
		{name: "twelve months", selector: "12-months", duration: 12, rate: 15},
		{name: "bare number", selector: "6", duration: 6, rate: 10},
		{name: "unknown duration", selector: "9-months", wantErr: true},
		{name: "garbage", selector: "monthly", wantErr: true},
		{name: "empty", selector: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePlan(tt.selector)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPlan)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.duration, p.Duration)
			assert.Equal(t, tt.rate, p.InterestRate)
		})
	}
}

func TestCalculate_SixMonths(t *testing.T) {
	q, err := Calculate(100000, "6-months", 0)
	require.NoError(t, err)

	assert.Equal(t, int64(100000), q.RemainingAmount)
	assert.True(t, q.InterestAmount.Equal(decimal.NewFromInt(10000)), "interest = %s", q.InterestAmount)
	assert.True(t, q.TotalAmount.Equal(decimal.NewFromInt(110000)), "total = %s", q.TotalAmount)
	assert.Equal(t, "18333.33", q.MonthlyPayment.StringFixed(2))
	assert.Equal(t, 6, q.Duration)
	assert.Equal(t, 10, q.InterestRate)
}

func TestCalculate_InterestOnRemainingOnly(t *testing.T) {
	q, err := Calculate(60000, "3-months", 20000)
	require.NoError(t, err)

	assert.Equal(t, int64(40000), q.RemainingAmount)
	assert.True(t, q.InterestAmount.Equal(decimal.NewFromInt(2000)), "interest = %s", q.InterestAmount)
	assert.True(t, q.TotalAmount.Equal(decimal.NewFromInt(42000)), "total = %s", q.TotalAmount)
	assert.True(t, q.MonthlyPayment.Equal(decimal.NewFromInt(14000)), "monthly = %s", q.MonthlyPayment)
}

func TestCalculate_Invariants(t *testing.T) {
	for _, p := range Plans() {
		q, err := Calculate(123457, PlanSelector(p), 1000)
		require.NoError(t, err)

		rem := decimal.NewFromInt(q.RemainingAmount)
		wantTotal := rem.Mul(decimal.NewFromInt(int64(100 + p.InterestRate))).Div(decimal.NewFromInt(100))
		assert.True(t, q.TotalAmount.Equal(wantTotal), "plan %d total", p.Duration)
		assert.True(t, q.InterestAmount.Equal(q.TotalAmount.Sub(rem)), "plan %d interest", p.Duration)
		assert.True(t, q.MonthlyPayment.Equal(q.TotalAmount.Div(decimal.NewFromInt(int64(p.Duration)))), "plan %d monthly", p.Duration)
	}
}

func TestCalculate_Errors(t *testing.T) {
	_, err := Calculate(10000, "7-months", 0)
	assert.ErrorIs(t, err, ErrInvalidPlan)

	_, err = Calculate(0, "3-months", 0)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = Calculate(10000, "3-months", 10001)
	assert.ErrorIs(t, err, ErrInvalidDownPayment)

	_, err = Calculate(10000, "3-months", -1)
	assert.ErrorIs(t, err, ErrInvalidDownPayment)
}

func TestIsEligible(t *testing.T) {
	e := NewEngine()
	assert.False(t, e.IsEligible(4999))
	assert.True(t, e.IsEligible(5000))

	disabled := NewEngine(WithEnabled(false))
	assert.False(t, disabled.IsEligible(1000000))
}

func TestLowestMonthlyPayment(t *testing.T) {
	e := NewEngine()

	v, ok := e.LowestMonthlyPayment(12000)
	require.True(t, ok)
	// 12000 * 1.15 / 12
	assert.True(t, v.Equal(decimal.NewFromInt(1150)), "lowest = %s", v)

	_, ok = e.LowestMonthlyPayment(100)
	assert.False(t, ok)
}

func TestGenerateSchedule(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	payments := GenerateSchedule("inst1", decimal.NewFromInt(1000), 3, start)

	require.Len(t, payments, 3)
	want := []time.Time{
		time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC),
	}
	for i, p := range payments {
		assert.True(t, want[i].Equal(p.DueDate), "payment %d due %s", i, p.DueDate)
		assert.Equal(t, model.PaymentStatusPending, p.Status)
		assert.Equal(t, "inst1", p.InstallmentID)
		assert.True(t, p.Amount.Equal(decimal.NewFromInt(1000)))
	}
	assert.NotEqual(t, payments[0].ID, payments[1].ID)
}

func TestGenerateSchedule_ZeroDuration(t *testing.T) {
	payments := GenerateSchedule("inst1", decimal.NewFromInt(1000), 0, time.Now())
	assert.Empty(t, payments)
}

func TestIsPaymentOverdue(t *testing.T) {
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	e := NewEngine(WithClock(fixedClock(now)))

	past := model.InstallmentPayment{DueDate: now.Add(-time.Hour), Status: model.PaymentStatusPending}
	future := model.InstallmentPayment{DueDate: now.Add(time.Hour), Status: model.PaymentStatusPending}
	paid := model.InstallmentPayment{DueDate: now.Add(-time.Hour), Status: model.PaymentStatusPaid}

	assert.True(t, e.IsPaymentOverdue(past))
	assert.False(t, e.IsPaymentOverdue(future))
	assert.False(t, e.IsPaymentOverdue(paid))
}

func TestUpdateOverduePayments(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	e := NewEngine(WithClock(fixedClock(now)))

	inst := model.Installment{
		ID:       "inst1",
		Duration: 3,
		Status:   model.InstallmentStatusActive,
		Payments: []model.InstallmentPayment{
			{ID: "p1", DueDate: now.AddDate(0, -2, 0), Status: model.PaymentStatusPaid},
			{ID: "p2", DueDate: now.AddDate(0, -1, 0), Status: model.PaymentStatusPending},
			{ID: "p3", DueDate: now.AddDate(0, 1, 0), Status: model.PaymentStatusPending},
		},
	}

	updated, changed := e.UpdateOverduePayments(inst)
	require.True(t, changed)

	assert.Equal(t, model.PaymentStatusPaid, updated.Payments[0].Status)
	assert.Equal(t, model.PaymentStatusOverdue, updated.Payments[1].Status)
	assert.Equal(t, model.PaymentStatusPending, updated.Payments[2].Status)

	// входной план не изменяется
	assert.Equal(t, model.PaymentStatusPending, inst.Payments[1].Status)

	_, changed = e.UpdateOverduePayments(updated)
	assert.False(t, changed)
}

func TestPaymentProgress(t *testing.T) {
	assert.Equal(t, 50.0, PaymentProgress(model.Installment{Duration: 6, PaidInstallments: 3}))
	assert.Equal(t, 0.0, PaymentProgress(model.Installment{Duration: 0}))
}

func TestNextPaymentDate(t *testing.T) {
	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	inst := model.Installment{
		Payments: []model.InstallmentPayment{
			{ID: "p3", DueDate: base.AddDate(0, 3, 0), Status: model.PaymentStatusPending},
			{ID: "p1", DueDate: base.AddDate(0, 1, 0), Status: model.PaymentStatusPaid},
			{ID: "p2", DueDate: base.AddDate(0, 2, 0), Status: model.PaymentStatusPending},
		},
	}

	next, ok := NextPaymentDate(inst)
	require.True(t, ok)
	assert.True(t, next.Equal(base.AddDate(0, 2, 0)))

	_, ok = NextPaymentDate(model.Installment{})
	assert.False(t, ok)
}

func TestRecordPayment(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	now := start.AddDate(0, 3, 0)
	e := NewEngine(WithClock(fixedClock(now)))

	q, err := Calculate(30000, "3-months", 0)
	require.NoError(t, err)
	inst := NewInstallment("inst1", "user1", model.Product{ID: "p1", Name: "Phone"}, *q, start)

	inst, _ = e.UpdateOverduePayments(inst)
	require.Equal(t, model.PaymentStatusOverdue, inst.Payments[0].Status)

	// просроченный платёж можно оплатить
	inst, err = e.RecordPayment(inst, inst.Payments[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, inst.Payments[0].Status)
	assert.Equal(t, 1, inst.PaidInstallments)
	assert.Equal(t, model.InstallmentStatusActive, inst.Status)

	_, err = e.RecordPayment(inst, inst.Payments[0].ID)
	assert.ErrorIs(t, err, ErrPaymentAlreadyPaid)

	_, err = e.RecordPayment(inst, "missing")
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	inst, err = e.RecordPayment(inst, inst.Payments[1].ID)
	require.NoError(t, err)
	inst, err = e.RecordPayment(inst, inst.Payments[2].ID)
	require.NoError(t, err)

	assert.Equal(t, model.InstallmentStatusCompleted, inst.Status)
	assert.Equal(t, 3, inst.PaidInstallments)
	require.NotNil(t, inst.CompletedAt)
	assert.Equal(t, 100.0, PaymentProgress(inst))

	_, err = e.RecordPayment(inst, inst.Payments[2].ID)
	assert.True(t, errors.Is(err, ErrInstallmentClosed))
}
