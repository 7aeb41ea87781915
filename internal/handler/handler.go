// Package handler содержит HTTP-обработчики API витрины.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/cart"
	"github.com/mmeshcher/storefront/internal/catalog"
	"github.com/mmeshcher/storefront/internal/installment"
	"github.com/mmeshcher/storefront/internal/middleware"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/service"
	"github.com/mmeshcher/storefront/internal/storage"
	"github.com/mmeshcher/storefront/internal/validation"
)

// InstallmentService определяет контракт бизнес-логики рассрочки.
type InstallmentService interface {
	Plans() []model.PlanOption
	Quote(price int64, plan string, downPayment int64) (*model.InstallmentQuote, error)
	Eligibility(price int64) model.Eligibility
	CreateInstallment(ctx context.Context, userID string, req model.CreateInstallmentRequest) (*model.Installment, error)
	GetInstallmentsByUser(ctx context.Context, userID string) ([]model.Installment, error)
	GetInstallment(ctx context.Context, userID, id string) (*model.InstallmentDetails, error)
	RecordPayment(ctx context.Context, userID, installmentID, paymentID string) (*model.Installment, error)
}

// CartService определяет контракт бизнес-логики корзины.
type CartService interface {
	GetCart(ctx context.Context, sessionID string) (model.CartState, error)
	AddItem(ctx context.Context, sessionID string, req model.AddItemRequest) (model.CartState, error)
	RemoveItem(ctx context.Context, sessionID, productID string, variation model.Variation) (model.CartState, error)
	UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int, variation model.Variation) (model.CartState, error)
	ClearCart(ctx context.Context, sessionID string) (model.CartState, error)
	VendorGroups(ctx context.Context, sessionID string) ([]model.VendorGroup, error)
	Watch(ctx context.Context, sessionID string) (<-chan model.CartState, error)
	Checkout(ctx context.Context, sessionID string) (*model.Checkout, error)
}

// Handler реализует HTTP-обработчики API витрины.
type Handler struct {
	installments InstallmentService
	carts        CartService
	logger       *zap.Logger
	session      *middleware.SessionMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(installments InstallmentService, carts CartService, logger *zap.Logger, session *middleware.SessionMiddleware) *Handler {
	return &Handler{
		installments: installments,
		carts:        carts,
		logger:       logger,
		session:      session,
	}
}

// Health сообщает, что сервис жив.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor сопоставляет ошибку бизнес-логики с кодом ответа.
// Второе значение сообщает, можно ли показать текст ошибки клиенту.
func statusFor(err error) (int, bool) {
	switch {
	case errors.Is(err, cart.ErrStockLimit),
		errors.Is(err, installment.ErrPaymentAlreadyPaid),
		errors.Is(err, installment.ErrInstallmentClosed),
		errors.Is(err, storage.ErrInstallmentExists):
		return http.StatusConflict, true
	case errors.Is(err, validation.ErrInvalidInput),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, installment.ErrInvalidPlan),
		errors.Is(err, installment.ErrInvalidPrice),
		errors.Is(err, installment.ErrInvalidDownPayment),
		errors.Is(err, service.ErrEmptyCart):
		return http.StatusBadRequest, true
	case errors.Is(err, service.ErrNotEligible):
		return http.StatusUnprocessableEntity, true
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, false
	case errors.Is(err, storage.ErrInstallmentNotFound),
		errors.Is(err, installment.ErrPaymentNotFound),
		errors.Is(err, catalog.ErrProductNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, catalog.ErrRateLimited):
		return http.StatusServiceUnavailable, false
	case errors.Is(err, cart.ErrWatchUnsupported):
		return http.StatusNotImplemented, false
	default:
		return http.StatusInternalServerError, false
	}
}

// writeError отвечает кодом, соответствующим ошибке. Внутренние ошибки журналируются.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error, fields ...zap.Field) {
	code, public := statusFor(err)
	if code == http.StatusInternalServerError {
		h.logger.Error(op+" error", append(fields, zap.Error(err))...)
	}

	msg := http.StatusText(code)
	if public {
		msg = err.Error()
	}
	http.Error(w, msg, code)
}

func sessionID(r *http.Request) (string, bool) {
	return middleware.GetSessionIDFromContext(r.Context())
}
