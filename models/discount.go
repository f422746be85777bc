package models

import "time"

// DiscountRule 满额折扣：小计达到 MinSubtotal 打 Percentage 折
type DiscountRule struct {
	MinSubtotal int64  `json:"min_subtotal" binding:"gte=0"`
	Percentage  int    `json:"percentage" binding:"gte=1,lte=100"`
	Description string `json:"description"`
}

// DiscountConfig 单行配置，规则在写入时按门槛升序保存
type DiscountConfig struct {
	ID        uint           `gorm:"primaryKey" json:"-"`
	Enabled   bool           `gorm:"default:false" json:"enabled"`
	Rules     []DiscountRule `gorm:"serializer:json" json:"rules"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (DiscountConfig) TableName() string { return "discount_settings" }
