package models

import "time"

// Customer 首次联系时创建，每次下单更新统计
type Customer struct {
	Base
	Identity          string    `gorm:"uniqueIndex;not null" json:"identity"` // 渠道给的不透明 ID
	OrderCount        int       `gorm:"default:0" json:"order_count"`
	TotalSpent        int64     `gorm:"default:0" json:"total_spent"`
	LastInteractionAt time.Time `json:"last_interaction_at"`
	Orders            []Order   `gorm:"foreignKey:CustomerID" json:"orders,omitempty"`
}
