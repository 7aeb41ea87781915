package installment

import (
	"strconv"
	"strings"

	"github.com/mmeshcher/storefront/internal/model"
)

// MinAmount задаёт минимальную цену товара, с которой доступна рассрочка.
const MinAmount int64 = 5000

var plans = []model.PlanOption{
	{Duration: 3, InterestRate: 5, Label: "3 Months"},
	{Duration: 6, InterestRate: 10, Label: "6 Months"},
	{Duration: 12, InterestRate: 15, Label: "12 Months"},
}

// Plans возвращает копию списка доступных планов рассрочки.
func Plans() []model.PlanOption {
	res := make([]model.PlanOption, len(plans))
	copy(res, plans)
	return res
}

// PlanByDuration возвращает план по длительности в месяцах.
func PlanByDuration(months int) (model.PlanOption, bool) {
	for _, p := range plans {
		if p.Duration == months {
			return p, true
		}
	}
	return model.PlanOption{}, false
}

// ParsePlan разбирает строку плана вида "6-months". Длительность определяется числом до первого дефиса.
func ParsePlan(selector string) (model.PlanOption, error) {
	head, _, _ := strings.Cut(strings.TrimSpace(selector), "-")
	months, err := strconv.Atoi(head)
	if err != nil {
		return model.PlanOption{}, ErrInvalidPlan
	}

	p, ok := PlanByDuration(months)
	if !ok {
		return model.PlanOption{}, ErrInvalidPlan
	}
	return p, nil
}

// PlanSelector возвращает строковое обозначение плана, например "12-months".
func PlanSelector(p model.PlanOption) string {
	return strconv.Itoa(p.Duration) + "-months"
}
