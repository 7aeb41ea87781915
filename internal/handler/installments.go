package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/model"
)

// GetPlans возвращает доступные планы рассрочки.
func (h *Handler) GetPlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.installments.Plans())
}

type quoteRequest struct {
	Price       int64  `json:"price"`
	Plan        string `json:"plan"`
	DownPayment int64  `json:"downPayment"`
}

// Quote рассчитывает рассрочку для цены и плана без сохранения.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	quote, err := h.installments.Quote(req.Price, req.Plan, req.DownPayment)
	if err != nil {
		h.writeError(w, "quote", err)
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

// GetEligibility сообщает, доступна ли рассрочка для цены из параметра price.
func (h *Handler) GetEligibility(w http.ResponseWriter, r *http.Request) {
	price, err := strconv.ParseInt(r.URL.Query().Get("price"), 10, 64)
	if err != nil || price < 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, h.installments.Eligibility(price))
}

// CreateInstallment оформляет рассрочку для текущего пользователя.
func (h *Handler) CreateInstallment(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req model.CreateInstallmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	inst, err := h.installments.CreateInstallment(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, "create installment", err, zap.String("userID", userID))
		return
	}

	writeJSON(w, http.StatusCreated, inst)
}

// GetInstallments возвращает планы рассрочки текущего пользователя.
func (h *Handler) GetInstallments(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	list, err := h.installments.GetInstallmentsByUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, "get installments", err, zap.String("userID", userID))
		return
	}

	if len(list) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// GetInstallment возвращает план рассрочки с прогрессом оплаты.
func (h *Handler) GetInstallment(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")
	details, err := h.installments.GetInstallment(r.Context(), userID, id)
	if err != nil {
		h.writeError(w, "get installment", err, zap.String("userID", userID), zap.String("installment", id))
		return
	}

	writeJSON(w, http.StatusOK, details)
}

// RecordPayment отмечает платёж графика оплаченным.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessionID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")
	paymentID := chi.URLParam(r, "paymentID")

	inst, err := h.installments.RecordPayment(r.Context(), userID, id, paymentID)
	if err != nil {
		h.writeError(w, "record payment", err,
			zap.String("userID", userID), zap.String("installment", id), zap.String("payment", paymentID))
		return
	}

	writeJSON(w, http.StatusOK, inst)
}
