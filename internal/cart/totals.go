package cart

import (
	"net/url"
	"sort"
	"strings"

	"github.com/mmeshcher/storefront/internal/model"
)

// DeliveryFeePerVendor задаёт фиксированную стоимость доставки для каждого продавца в корзине.
const DeliveryFeePerVendor int64 = 2000

// Recompute рассчитывает итоги корзины за один проход по строкам.
func Recompute(items []model.CartItem) model.CartState {
	state := model.CartState{Items: items}
	if state.Items == nil {
		state.Items = []model.CartItem{}
	}

	vendors := make(map[string]struct{})
	for _, item := range items {
		state.ItemCount += item.Quantity
		state.Subtotal += item.Price * int64(item.Quantity)
		vendors[item.VendorID] = struct{}{}
	}

	state.DeliveryFee = DeliveryFeePerVendor * int64(len(vendors))
	state.Total = state.Subtotal + state.DeliveryFee
	return state
}

// GroupByVendor раскладывает строки по продавцам, сохраняя исходный порядок внутри группы.
func GroupByVendor(items []model.CartItem) map[string][]model.CartItem {
	groups := make(map[string][]model.CartItem)
	for _, item := range items {
		groups[item.VendorID] = append(groups[item.VendorID], item)
	}
	return groups
}

// VendorGroupsOf возвращает группы продавцов в порядке первого появления с подытогами.
func VendorGroupsOf(items []model.CartItem) []model.VendorGroup {
	index := make(map[string]int)
	var groups []model.VendorGroup

	for _, item := range items {
		i, ok := index[item.VendorID]
		if !ok {
			i = len(groups)
			index[item.VendorID] = i
			groups = append(groups, model.VendorGroup{VendorID: item.VendorID})
		}
		groups[i].Items = append(groups[i].Items, item)
		groups[i].Subtotal += item.Price * int64(item.Quantity)
	}
	return groups
}

// VariationKey возвращает канонический ключ варианта: пары "имя=значение",
// отсортированные по имени. Пустой и отсутствующий вариант дают один и тот же ключ.
func VariationKey(v model.Variation) string {
	if len(v) == 0 {
		return ""
	}

	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, url.QueryEscape(name)+"="+url.QueryEscape(v[name]))
	}
	return strings.Join(pairs, "&")
}

// lineKey идентифицирует строку корзины по товару и варианту.
func lineKey(productID string, v model.Variation) string {
	return productID + "|" + VariationKey(v)
}
