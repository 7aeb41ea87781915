package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/model"
)

type cartItemRequest struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Variation model.Variation `json:"variation,omitempty"`
}

// GetCart возвращает корзину текущей сессии.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	state, err := h.carts.GetCart(r.Context(), sid)
	if err != nil {
		h.writeError(w, "get cart", err, zap.String("session", sid))
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// AddCartItem добавляет товар в корзину. При нехватке остатка отвечает 409 с текстом ошибки.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req model.AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	state, err := h.carts.AddItem(r.Context(), sid, req)
	if err != nil {
		h.writeError(w, "add cart item", err, zap.String("session", sid))
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// UpdateCartItem меняет количество строки корзины.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	state, err := h.carts.UpdateQuantity(r.Context(), sid, req.ProductID, req.Quantity, req.Variation)
	if err != nil {
		h.writeError(w, "update cart item", err, zap.String("session", sid))
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// RemoveCartItem удаляет строку корзины.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	state, err := h.carts.RemoveItem(r.Context(), sid, req.ProductID, req.Variation)
	if err != nil {
		h.writeError(w, "remove cart item", err, zap.String("session", sid))
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// ClearCart очищает корзину текущей сессии.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	state, err := h.carts.ClearCart(r.Context(), sid)
	if err != nil {
		h.writeError(w, "clear cart", err, zap.String("session", sid))
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// GetVendorGroups возвращает строки корзины, сгруппированные по продавцам.
func (h *Handler) GetVendorGroups(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	groups, err := h.carts.VendorGroups(r.Context(), sid)
	if err != nil {
		h.writeError(w, "vendor groups", err, zap.String("session", sid))
		return
	}
	if groups == nil {
		groups = []model.VendorGroup{}
	}

	writeJSON(w, http.StatusOK, groups)
}

// Checkout оформляет корзину текущей сессии.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	checkout, err := h.carts.Checkout(r.Context(), sid)
	if err != nil {
		h.writeError(w, "checkout", err, zap.String("session", sid))
		return
	}

	writeJSON(w, http.StatusOK, checkout)
}

// CartEvents отдаёт состояния корзины потоком Server-Sent Events: текущее и каждое следующее.
func (h *Handler) CartEvents(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}

	ctx := r.Context()

	updates, err := h.carts.Watch(ctx, sid)
	if err != nil {
		h.writeError(w, "watch cart", err, zap.String("session", sid))
		return
	}

	state, err := h.carts.GetCart(ctx, sid)
	if err != nil {
		h.writeError(w, "get cart", err, zap.String("session", sid))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for {
		if err := writeEvent(w, state); err != nil {
			h.logger.Debug("cart events stream closed", zap.String("session", sid), zap.Error(err))
			return
		}
		flusher.Flush()

		select {
		case <-ctx.Done():
			return
		case next, ok := <-updates:
			if !ok {
				return
			}
			state = next
		}
	}
}

func writeEvent(w http.ResponseWriter, state model.CartState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: cart\ndata: %s\n\n", data)
	return err
}
