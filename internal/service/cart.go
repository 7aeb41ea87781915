package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/cart"
	"github.com/mmeshcher/storefront/internal/messaging"
	"github.com/mmeshcher/storefront/internal/metrics"
	"github.com/mmeshcher/storefront/internal/model"
)

// CartService содержит бизнес-логику корзины поверх менеджера корзин сессий.
type CartService struct {
	carts     *cart.Manager
	catalog   ProductCatalog
	publisher messaging.Publisher
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewCartService создаёт сервис корзины. catalog и publisher могут быть nil.
func NewCartService(carts *cart.Manager, catalog ProductCatalog, publisher messaging.Publisher, logger *zap.Logger) *CartService {
	if publisher == nil {
		publisher = messaging.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartService{
		carts:     carts,
		catalog:   catalog,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// GetCart возвращает текущее состояние корзины сессии.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (model.CartState, error) {
	return s.carts.Do(ctx, sessionID, nil)
}

// AddItem добавляет товар в корзину. Количество по умолчанию равно 1.
// При ошибке возвращается неизменённое состояние корзины.
func (s *CartService) AddItem(ctx context.Context, sessionID string, req model.AddItemRequest) (state model.CartState, err error) {
	defer func() { metrics.RecordCartOperation("add_item", err == nil) }()

	product, err := resolveProduct(ctx, s.catalog, req.ProductID, req.Product)
	if err != nil {
		return model.CartState{}, err
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	return s.carts.Do(ctx, sessionID, func(c *cart.Cart) error {
		return c.AddItem(ctx, product, quantity, req.Variation)
	})
}

// RemoveItem удаляет строку товара с вариантом из корзины.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, productID string, variation model.Variation) (state model.CartState, err error) {
	defer func() { metrics.RecordCartOperation("remove_item", err == nil) }()

	return s.carts.Do(ctx, sessionID, func(c *cart.Cart) error {
		return c.RemoveItem(ctx, productID, variation)
	})
}

// UpdateQuantity устанавливает количество строки. Неположительное количество удаляет строку.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int, variation model.Variation) (state model.CartState, err error) {
	defer func() { metrics.RecordCartOperation("update_quantity", err == nil) }()

	return s.carts.Do(ctx, sessionID, func(c *cart.Cart) error {
		return c.UpdateQuantity(ctx, productID, quantity, variation)
	})
}

// ClearCart очищает корзину сессии.
func (s *CartService) ClearCart(ctx context.Context, sessionID string) (state model.CartState, err error) {
	defer func() { metrics.RecordCartOperation("clear", err == nil) }()

	return s.carts.Do(ctx, sessionID, func(c *cart.Cart) error {
		return c.Clear(ctx)
	})
}

// VendorGroups возвращает строки корзины, сгруппированные по продавцам.
func (s *CartService) VendorGroups(ctx context.Context, sessionID string) ([]model.VendorGroup, error) {
	var groups []model.VendorGroup
	_, err := s.carts.Do(ctx, sessionID, func(c *cart.Cart) error {
		groups = c.VendorGroups()
		return nil
	})
	return groups, err
}

// Watch возвращает поток состояний корзины сессии.
func (s *CartService) Watch(ctx context.Context, sessionID string) (<-chan model.CartState, error) {
	return s.carts.Watch(ctx, sessionID)
}

// Checkout оформляет корзину: формирует заказы по продавцам, очищает корзину
// и публикует событие CartCheckedOut.
func (s *CartService) Checkout(ctx context.Context, sessionID string) (res *model.Checkout, err error) {
	defer func() { metrics.RecordCartOperation("checkout", err == nil) }()

	var checkout *model.Checkout
	_, err = s.carts.Do(ctx, sessionID, func(c *cart.Cart) error {
		state := c.State()
		if len(state.Items) == 0 {
			return ErrEmptyCart
		}

		groups := c.VendorGroups()
		orders := make([]model.VendorOrder, 0, len(groups))
		for _, g := range groups {
			orders = append(orders, model.VendorOrder{
				VendorID:    g.VendorID,
				Items:       g.Items,
				Subtotal:    g.Subtotal,
				DeliveryFee: cart.DeliveryFeePerVendor,
				Total:       g.Subtotal + cart.DeliveryFeePerVendor,
			})
		}

		if err := c.Clear(ctx); err != nil {
			return err
		}

		checkout = &model.Checkout{
			ID:          s.newID(),
			SessionID:   sessionID,
			Orders:      orders,
			ItemCount:   state.ItemCount,
			Subtotal:    state.Subtotal,
			DeliveryFee: state.DeliveryFee,
			Total:       state.Total,
			CreatedAt:   s.now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.publisher.PublishEvent(ctx, messaging.TopicCartCheckedOut, sessionID, model.CartCheckedOut{Checkout: *checkout}); err != nil {
		s.logger.Warn("failed to publish checkout", zap.String("checkout", checkout.ID), zap.Error(err))
	}

	return checkout, nil
}
