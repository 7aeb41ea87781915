package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/installment"
	"github.com/mmeshcher/storefront/internal/messaging"
	"github.com/mmeshcher/storefront/internal/metrics"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/validation"
)

// overdueBatchSize задаёт число активных планов, проверяемых за один проход.
const overdueBatchSize = 100

// InstallmentRepository описывает контракт хранилища планов рассрочки.
type InstallmentRepository interface {
	Close() error
	CreateInstallment(ctx context.Context, inst *model.Installment) error
	GetInstallment(ctx context.Context, id string) (*model.Installment, error)
	GetInstallmentsByUser(ctx context.Context, userID string) ([]model.Installment, error)
	GetActiveInstallments(ctx context.Context, limit int) ([]model.Installment, error)
	UpdateInstallment(ctx context.Context, inst *model.Installment) error
}

// InstallmentService содержит бизнес-логику рассрочки.
type InstallmentService struct {
	repo      InstallmentRepository
	engine    *installment.Engine
	catalog   ProductCatalog
	publisher messaging.Publisher
	logger    *zap.Logger
	newID     func() string
}

// NewInstallmentService создаёт сервис рассрочки. catalog и publisher могут быть nil.
func NewInstallmentService(repo InstallmentRepository, engine *installment.Engine, catalog ProductCatalog, publisher messaging.Publisher, logger *zap.Logger) *InstallmentService {
	if publisher == nil {
		publisher = messaging.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstallmentService{
		repo:      repo,
		engine:    engine,
		catalog:   catalog,
		publisher: publisher,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

// Close закрывает ресурсы сервиса.
func (s *InstallmentService) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Plans возвращает доступные планы рассрочки.
func (s *InstallmentService) Plans() []model.PlanOption {
	return installment.Plans()
}

// Quote рассчитывает рассрочку без сохранения.
func (s *InstallmentService) Quote(price int64, plan string, downPayment int64) (*model.InstallmentQuote, error) {
	return installment.Calculate(price, plan, downPayment)
}

// Eligibility сообщает, доступна ли рассрочка для цены, и минимальный ежемесячный платёж.
func (s *InstallmentService) Eligibility(price int64) model.Eligibility {
	res := model.Eligibility{
		Eligible:  s.engine.IsEligible(price),
		MinAmount: s.engine.MinAmount(),
	}
	if lowest, ok := s.engine.LowestMonthlyPayment(price); ok {
		res.LowestMonthly = &lowest
	}
	return res
}

// CreateInstallment оформляет рассрочку на товар для пользователя.
func (s *InstallmentService) CreateInstallment(ctx context.Context, userID string, req model.CreateInstallmentRequest) (inst *model.Installment, err error) {
	defer func() { metrics.RecordInstallmentOperation("create", err == nil) }()

	product, err := resolveProduct(ctx, s.catalog, req.ProductID, req.Product)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateProduct(product); err != nil {
		return nil, err
	}

	quote, err := installment.Calculate(product.Price, req.Plan, req.DownPayment)
	if err != nil {
		return nil, err
	}
	if !s.engine.IsEligible(product.Price) {
		return nil, ErrNotEligible
	}

	created := installment.NewInstallment(s.newID(), userID, product, *quote, s.engine.Now())
	if err := s.repo.CreateInstallment(ctx, &created); err != nil {
		return nil, err
	}

	s.publish(ctx, messaging.TopicInstallmentCreated, created.ID, model.InstallmentCreated{
		InstallmentID:  created.ID,
		UserID:         created.UserID,
		ProductID:      created.ProductID,
		TotalAmount:    created.TotalAmount,
		MonthlyPayment: created.MonthlyPayment,
		Duration:       created.Duration,
		CreatedAt:      created.CreatedAt,
	})

	return &created, nil
}

// GetInstallmentsByUser возвращает планы пользователя с актуальными статусами платежей.
func (s *InstallmentService) GetInstallmentsByUser(ctx context.Context, userID string) ([]model.Installment, error) {
	list, err := s.repo.GetInstallmentsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range list {
		list[i] = s.refreshOverdue(ctx, list[i])
	}
	return list, nil
}

// GetInstallment возвращает план пользователя с прогрессом и датой ближайшего платежа.
func (s *InstallmentService) GetInstallment(ctx context.Context, userID, id string) (*model.InstallmentDetails, error) {
	inst, err := s.getOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	refreshed := s.refreshOverdue(ctx, *inst)
	details := &model.InstallmentDetails{
		Installment: refreshed,
		Progress:    installment.PaymentProgress(refreshed),
	}
	if next, ok := installment.NextPaymentDate(refreshed); ok {
		details.NextPaymentDate = &next
	}
	return details, nil
}

// RecordPayment отмечает платёж графика оплаченным.
func (s *InstallmentService) RecordPayment(ctx context.Context, userID, installmentID, paymentID string) (res *model.Installment, err error) {
	defer func() { metrics.RecordInstallmentOperation("record_payment", err == nil) }()

	inst, err := s.getOwned(ctx, userID, installmentID)
	if err != nil {
		return nil, err
	}

	updated, err := s.engine.RecordPayment(*inst, paymentID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateInstallment(ctx, &updated); err != nil {
		return nil, err
	}

	for _, p := range updated.Payments {
		if p.ID != paymentID || p.PaidAt == nil {
			continue
		}
		s.publish(ctx, messaging.TopicPaymentRecorded, updated.ID, model.InstallmentPaymentRecorded{
			InstallmentID: updated.ID,
			PaymentID:     p.ID,
			UserID:        updated.UserID,
			Amount:        p.Amount,
			Status:        updated.Status,
			PaidAt:        *p.PaidAt,
		})
	}

	return &updated, nil
}

// StartOverdueUpdates запускает фоновую проверку просроченных платежей с заданным интервалом.
func (s *InstallmentService) StartOverdueUpdates(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.processOverdueBatch(ctx)
			}
		}
	}()
}

func (s *InstallmentService) processOverdueBatch(ctx context.Context) {
	list, err := s.repo.GetActiveInstallments(ctx, overdueBatchSize)
	if err != nil {
		s.logger.Warn("failed to load active installments", zap.Error(err))
		return
	}

	for _, inst := range list {
		if ctx.Err() != nil {
			return
		}
		s.refreshOverdue(ctx, inst)
	}
}

// refreshOverdue переводит просроченные платежи в статус overdue, сохраняет план
// и публикует событие на каждый новый просроченный платёж.
func (s *InstallmentService) refreshOverdue(ctx context.Context, inst model.Installment) model.Installment {
	updated, changed := s.engine.UpdateOverduePayments(inst)
	if !changed {
		return inst
	}

	if err := s.repo.UpdateInstallment(ctx, &updated); err != nil {
		s.logger.Warn("failed to persist overdue payments",
			zap.String("installment", inst.ID), zap.Error(err))
		return updated
	}

	newlyOverdue := 0
	for i, p := range updated.Payments {
		if p.Status != model.PaymentStatusOverdue || inst.Payments[i].Status == model.PaymentStatusOverdue {
			continue
		}
		newlyOverdue++
		s.publish(ctx, messaging.TopicPaymentOverdue, updated.ID, model.InstallmentPaymentOverdue{
			InstallmentID: updated.ID,
			PaymentID:     p.ID,
			UserID:        updated.UserID,
			Amount:        p.Amount,
			DueDate:       p.DueDate,
		})
	}
	metrics.AddOverduePayments(newlyOverdue)

	return updated
}

func (s *InstallmentService) getOwned(ctx context.Context, userID, id string) (*model.Installment, error) {
	inst, err := s.repo.GetInstallment(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst.UserID != userID {
		return nil, ErrForbidden
	}
	return inst, nil
}

func (s *InstallmentService) publish(ctx context.Context, topic, key string, event any) {
	if err := s.publisher.PublishEvent(ctx, topic, key, event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("topic", topic), zap.String("key", key), zap.Error(err))
	}
}
