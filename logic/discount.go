package logic

import (
	"sort"

	"chatorder-backend/apperr"
	"chatorder-backend/models"
)

// DiscountResult 一次计算的结果；Rule 为 nil 表示没有命中
type DiscountResult struct {
	Amount int64
	Rule   *models.DiscountRule
}

// ApplyDiscount 按列表顺序遍历，最后一条满足门槛的规则生效。
// 只有列表按门槛升序时才等价于“门槛最高者胜”，仓储层写入时负责排序。
func ApplyDiscount(enabled bool, rules []models.DiscountRule, subtotal int64) DiscountResult {
	if !enabled || subtotal <= 0 {
		return DiscountResult{}
	}
	var best *models.DiscountRule
	for i := range rules {
		r := rules[i]
		if ValidateRule(r) != nil {
			continue
		}
		if r.MinSubtotal <= subtotal {
			best = &r
		}
	}
	if best == nil {
		return DiscountResult{}
	}
	return DiscountResult{
		Amount: subtotal * int64(best.Percentage) / 100,
		Rule:   best,
	}
}

// ValidateRule 百分比 1-100，门槛不能为负
func ValidateRule(r models.DiscountRule) error {
	if r.Percentage < 1 || r.Percentage > 100 {
		return apperr.Validation("discount.ValidateRule", r.Description, "percentage %d out of range", r.Percentage)
	}
	if r.MinSubtotal < 0 {
		return apperr.Validation("discount.ValidateRule", r.Description, "negative minimum %d", r.MinSubtotal)
	}
	return nil
}

// SortRules 按门槛升序排序，门槛相同保持原顺序
func SortRules(rules []models.DiscountRule) []models.DiscountRule {
	out := make([]models.DiscountRule, len(rules))
	copy(out, rules)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MinSubtotal < out[j].MinSubtotal
	})
	return out
}

// DeliveryFee 折后小计达到免运费门槛时运费为 0
func DeliveryFee(afterDiscount, flatFee, freeThreshold int64) int64 {
	if freeThreshold > 0 && afterDiscount >= freeThreshold {
		return 0
	}
	return flatFee
}
