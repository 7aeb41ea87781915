package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/storefront/internal/installment"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/storage"
)

func newTestRepository(t *testing.T) *PostgresRepository {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URI")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URI is not set")
	}

	r, err := NewPostgresRepository(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestPostgresRepository_KV(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()
	key := "cart:" + uuid.NewString()

	_, ok, err := r.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	notify, err := r.Subscribe(subCtx, key)
	require.NoError(t, err)

	require.NoError(t, r.Set(ctx, key, `[]`))
	v, ok, err := r.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, v)

	select {
	case <-notify:
	case <-time.After(5 * time.Second):
		t.Fatal("no notification received")
	}
}

func TestPostgresRepository_Installments(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	id := uuid.NewString()
	userID := uuid.NewString()
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	monthly := decimal.RequireFromString("18333.333333")

	inst := &model.Installment{
		ID:             id,
		UserID:         userID,
		ProductID:      "p1",
		ProductName:    "Kettle",
		ProductPrice:   100000,
		TotalAmount:    decimal.NewFromInt(110000),
		MonthlyPayment: monthly,
		Duration:       2,
		InterestRate:   10,
		Status:         model.InstallmentStatusActive,
		CreatedAt:      created,
		Payments: []model.InstallmentPayment{
			{ID: id + "-1", InstallmentID: id, Amount: monthly, DueDate: created.AddDate(0, 1, 0), Status: model.PaymentStatusPending},
			{ID: id + "-2", InstallmentID: id, Amount: monthly, DueDate: created.AddDate(0, 2, 0), Status: model.PaymentStatusPending},
		},
	}

	require.NoError(t, r.CreateInstallment(ctx, inst))
	require.ErrorIs(t, r.CreateInstallment(ctx, inst), storage.ErrInstallmentExists)

	got, err := r.GetInstallment(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.MonthlyPayment.Equal(monthly))
	require.Len(t, got.Payments, 2)
	assert.Equal(t, id+"-1", got.Payments[0].ID)

	paidAt := created.AddDate(0, 1, 0)
	got.Payments[0].Status = model.PaymentStatusPaid
	got.Payments[0].PaidAt = &paidAt
	got.PaidInstallments = 1
	require.NoError(t, r.UpdateInstallment(ctx, got))

	list, err := r.GetInstallmentsByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].PaidInstallments)
	assert.Equal(t, model.PaymentStatusPaid, list[0].Payments[0].Status)

	_, err = r.GetInstallment(ctx, uuid.NewString())
	require.ErrorIs(t, err, storage.ErrInstallmentNotFound)

	missing := *got
	missing.ID = uuid.NewString()
	require.ErrorIs(t, r.UpdateInstallment(ctx, &missing), storage.ErrInstallmentNotFound)
}

func TestPostgresRepository_KeepsExactAmounts(t *testing.T) {
	r := newTestRepository(t)
	ctx := context.Background()

	quote, err := installment.Calculate(100000, "6-months", 0)
	require.NoError(t, err)
	require.Equal(t, "18333.3333333333333333", quote.MonthlyPayment.String())

	product := model.Product{ID: "p1", VendorID: "v1", Name: "Kettle", Price: 100000, Stock: 1}
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	inst := installment.NewInstallment(uuid.NewString(), uuid.NewString(), product, *quote, created)
	require.NoError(t, r.CreateInstallment(ctx, &inst))

	got, err := r.GetInstallment(ctx, inst.ID)
	require.NoError(t, err)
	assert.True(t, got.MonthlyPayment.Equal(quote.MonthlyPayment), "monthly payment %s", got.MonthlyPayment)
	assert.True(t, got.TotalAmount.Equal(quote.TotalAmount), "total amount %s", got.TotalAmount)
	require.Len(t, got.Payments, 6)
	for _, p := range got.Payments {
		assert.True(t, p.Amount.Equal(quote.MonthlyPayment), "payment %s amount %s", p.ID, p.Amount)
	}
}
