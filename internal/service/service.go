// Package service реализует бизнес-логику витрины: рассрочку и корзину.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/validation"
)

var (
	// ErrNotEligible возвращается, если рассрочка недоступна для цены товара.
	ErrNotEligible = errors.New("installments are not available for this price")
	// ErrForbidden возвращается при обращении к чужому плану рассрочки.
	ErrForbidden = errors.New("installment belongs to another user")
	// ErrEmptyCart возвращается при оформлении пустой корзины.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrProductRequired возвращается, если в запросе нет ни товара, ни его идентификатора.
	ErrProductRequired = &validation.Error{Field: "product", Reason: "product or productId is required"}
)

// ProductCatalog возвращает актуальные снимки товаров.
type ProductCatalog interface {
	GetProduct(ctx context.Context, id string) (*model.Product, error)
}

// resolveProduct выбирает снимок товара: из каталога, если он настроен, иначе из запроса.
func resolveProduct(ctx context.Context, catalog ProductCatalog, productID string, snapshot *model.Product) (model.Product, error) {
	id := productID
	if id == "" && snapshot != nil {
		id = snapshot.ID
	}

	switch {
	case catalog != nil && id != "":
		p, err := catalog.GetProduct(ctx, id)
		if err != nil {
			return model.Product{}, fmt.Errorf("resolve product %s: %w", id, err)
		}
		return *p, nil
	case snapshot != nil:
		return *snapshot, nil
	default:
		return model.Product{}, ErrProductRequired
	}
}
