// Package cart реализует корзину покупателя: строки с ограничением по остатку,
// итоги с доставкой по продавцам и сквозную запись в хранилище после каждого изменения.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/storage"
	"github.com/mmeshcher/storefront/internal/validation"
)

// DefaultKey используется как ключ хранилища для корзины единственной сессии.
const DefaultKey = "cart"

var (
	// ErrStockLimit является общим признаком превышения остатка для errors.Is.
	ErrStockLimit = errors.New("stock limit exceeded")
	// ErrInvalidQuantity возвращается при добавлении неположительного количества.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// StockLimitError возвращается, если запрошенное количество превышает остаток.
// Состояние корзины при этом не меняется.
type StockLimitError struct {
	ProductID string
	Stock     int
	Requested int
}

func (e *StockLimitError) Error() string {
	return fmt.Sprintf("only %d items available in stock", e.Stock)
}

// Is позволяет сопоставлять ошибку с ErrStockLimit.
func (e *StockLimitError) Is(target error) bool {
	return target == ErrStockLimit
}

// Cart хранит корзину одной сессии. Не предназначена для конкурентного использования:
// для параллельных запросов используйте Manager.
type Cart struct {
	store  storage.Store
	key    string
	items  []model.CartItem
	logger *zap.Logger
	newID  func() string
}

// Option настраивает Cart.
type Option func(*Cart)

// WithLogger задаёт логгер корзины.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cart) { c.logger = l }
}

// WithIDGenerator задаёт генератор идентификаторов новых строк.
func WithIDGenerator(f func() string) Option {
	return func(c *Cart) { c.newID = f }
}

// Load читает корзину из хранилища по ключу. Повреждённые данные дают пустую корзину.
func Load(ctx context.Context, store storage.Store, key string, opts ...Option) (*Cart, error) {
	c := &Cart{
		store:  store,
		key:    key,
		logger: zap.NewNop(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}

	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if !ok {
		return c, nil
	}

	items, err := decodeItems(raw)
	if err != nil {
		c.logger.Warn("malformed cart data, starting with empty cart",
			zap.String("key", key), zap.Error(err))
		return c, nil
	}
	c.items = items

	return c, nil
}

func decodeItems(raw string) ([]model.CartItem, error) {
	var items []model.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	for _, item := range items {
		if err := validation.ValidateCartItem(item); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// State возвращает копию строк корзины с рассчитанными итогами.
func (c *Cart) State() model.CartState {
	return Recompute(c.cloneItems())
}

// ItemsByVendor возвращает строки корзины, сгруппированные по продавцу.
func (c *Cart) ItemsByVendor() map[string][]model.CartItem {
	return GroupByVendor(c.cloneItems())
}

// VendorGroups возвращает группы продавцов в порядке первого появления.
func (c *Cart) VendorGroups() []model.VendorGroup {
	return VendorGroupsOf(c.cloneItems())
}

// AddItem добавляет товар в корзину. Строка определяется парой товар и вариант.
// Количество строки не может превысить ни текущий остаток товара, ни остаток,
// зафиксированный при создании строки.
func (c *Cart) AddItem(ctx context.Context, p model.Product, quantity int, variation model.Variation) error {
	if err := validation.ValidateProduct(p); err != nil {
		return err
	}
	if err := validation.ValidateVariation(variation); err != nil {
		return err
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	items := c.cloneItems()

	if idx := c.find(p.ID, variation); idx >= 0 {
		newQuantity := items[idx].Quantity + quantity
		ceiling := min(p.Stock, items[idx].Stock)
		if newQuantity > ceiling {
			return &StockLimitError{ProductID: p.ID, Stock: ceiling, Requested: newQuantity}
		}
		items[idx].Quantity = newQuantity
		return c.commit(ctx, items)
	}

	if quantity > p.Stock {
		return &StockLimitError{ProductID: p.ID, Stock: p.Stock, Requested: quantity}
	}

	items = append(items, model.CartItem{
		ID:        c.newID(),
		ProductID: p.ID,
		VendorID:  p.VendorID,
		Name:      p.Name,
		Image:     p.FirstImage(),
		Price:     p.Price,
		Quantity:  quantity,
		Variation: maps.Clone(variation),
		Stock:     p.Stock,
	})
	return c.commit(ctx, items)
}

// RemoveItem удаляет строку товара с указанным вариантом. Отсутствующая строка не считается ошибкой.
func (c *Cart) RemoveItem(ctx context.Context, productID string, variation model.Variation) error {
	key := lineKey(productID, variation)

	items := make([]model.CartItem, 0, len(c.items))
	for _, item := range c.cloneItems() {
		if lineKey(item.ProductID, item.Variation) != key {
			items = append(items, item)
		}
	}
	return c.commit(ctx, items)
}

// UpdateQuantity устанавливает количество строки. Неположительное количество удаляет строку.
func (c *Cart) UpdateQuantity(ctx context.Context, productID string, quantity int, variation model.Variation) error {
	if quantity <= 0 {
		return c.RemoveItem(ctx, productID, variation)
	}

	items := c.cloneItems()
	if idx := c.find(productID, variation); idx >= 0 {
		if quantity > items[idx].Stock {
			return &StockLimitError{ProductID: productID, Stock: items[idx].Stock, Requested: quantity}
		}
		items[idx].Quantity = quantity
	}
	return c.commit(ctx, items)
}

// Clear очищает корзину.
func (c *Cart) Clear(ctx context.Context) error {
	return c.commit(ctx, []model.CartItem{})
}

func (c *Cart) find(productID string, variation model.Variation) int {
	key := lineKey(productID, variation)
	for i, item := range c.items {
		if lineKey(item.ProductID, item.Variation) == key {
			return i
		}
	}
	return -1
}

// commit записывает строки в хранилище и только после успешной записи заменяет состояние.
func (c *Cart) commit(ctx context.Context, items []model.CartItem) error {
	if items == nil {
		items = []model.CartItem{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := c.store.Set(ctx, c.key, string(data)); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}

	c.items = items
	return nil
}

func (c *Cart) cloneItems() []model.CartItem {
	items := make([]model.CartItem, len(c.items))
	for i, item := range c.items {
		item.Variation = maps.Clone(item.Variation)
		items[i] = item
	}
	return items
}
