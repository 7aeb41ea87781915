// Package validation содержит функции валидации входных данных.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mmeshcher/storefront/internal/model"
)

// ErrInvalidInput является общим признаком ошибки валидации для errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// Границы снимка товара. При них сумма корзины из многих строк остаётся в пределах int64.
const (
	MaxPrice int64 = 10_000_000_000
	MaxStock       = 1_000_000
)

// Error описывает некорректное поле входных данных.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is позволяет сопоставлять ошибку с ErrInvalidInput.
func (e *Error) Is(target error) bool {
	return target == ErrInvalidInput
}

// ValidateProduct проверяет снимок товара перед использованием в корзине или рассрочке.
func ValidateProduct(p model.Product) error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return &Error{Field: "product.id", Reason: "must not be empty"}
	case strings.TrimSpace(p.VendorID) == "":
		return &Error{Field: "product.vendorId", Reason: "must not be empty"}
	case strings.TrimSpace(p.Name) == "":
		return &Error{Field: "product.name", Reason: "must not be empty"}
	case p.Price < 0:
		return &Error{Field: "product.price", Reason: "must not be negative"}
	case p.Price > MaxPrice:
		return &Error{Field: "product.price", Reason: fmt.Sprintf("must not exceed %d", MaxPrice)}
	case p.Stock < 0:
		return &Error{Field: "product.stock", Reason: "must not be negative"}
	case p.Stock > MaxStock:
		return &Error{Field: "product.stock", Reason: fmt.Sprintf("must not exceed %d", MaxStock)}
	}
	return nil
}

// ValidateVariation проверяет, что имена атрибутов не пустые.
func ValidateVariation(v model.Variation) error {
	for name := range v {
		if strings.TrimSpace(name) == "" {
			return &Error{Field: "variation", Reason: "attribute name must not be empty"}
		}
	}
	return nil
}

// ValidateCartItem проверяет строку корзины, прочитанную из хранилища.
func ValidateCartItem(item model.CartItem) error {
	switch {
	case item.ID == "":
		return &Error{Field: "item.id", Reason: "must not be empty"}
	case item.ProductID == "":
		return &Error{Field: "item.productId", Reason: "must not be empty"}
	case item.VendorID == "":
		return &Error{Field: "item.vendorId", Reason: "must not be empty"}
	case item.Price < 0:
		return &Error{Field: "item.price", Reason: "must not be negative"}
	case item.Price > MaxPrice:
		return &Error{Field: "item.price", Reason: fmt.Sprintf("must not exceed %d", MaxPrice)}
	case item.Stock > MaxStock:
		return &Error{Field: "item.stock", Reason: fmt.Sprintf("must not exceed %d", MaxStock)}
	case item.Quantity <= 0:
		return &Error{Field: "item.quantity", Reason: "must be positive"}
	case item.Quantity > item.Stock:
		return &Error{Field: "item.quantity", Reason: "exceeds stock"}
	}
	return ValidateVariation(item.Variation)
}
