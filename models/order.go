package models

import "github.com/google/uuid"

type OrderStatus string

const (
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type DeliveryType string

const (
	DeliveryNone    DeliveryType = "none" // 未开启配送功能
	DeliveryPickup  DeliveryType = "pickup"
	DeliveryShipped DeliveryType = "delivery"
)

// Order 确认时的快照，创建后不再修改金额
type Order struct {
	Base
	Sequence     int64        `gorm:"uniqueIndex;not null" json:"sequence"`
	Code         string       `gorm:"uniqueIndex;not null" json:"code"` // PED-00001
	CustomerID   uuid.UUID    `gorm:"type:uuid;index" json:"customer_id"`
	Identity     string       `gorm:"index;not null" json:"identity"`
	Items        []OrderItem  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Subtotal     int64        `json:"subtotal"`
	Discount     int64        `json:"discount"`
	DiscountNote string       `json:"discount_note,omitempty"`
	DeliveryFee  int64        `json:"delivery_fee"`
	Total        int64        `json:"total"`
	DeliveryType DeliveryType `gorm:"type:varchar(20)" json:"delivery_type"`
	Status       OrderStatus  `gorm:"type:varchar(20);default:'confirmed'" json:"status"`
}

type OrderItem struct {
	Base
	OrderID   uuid.UUID `gorm:"type:uuid;index" json:"order_id"`
	Line      int       `json:"line"` // 购物车里的顺序，从 1 开始
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	UnitPrice int64     `json:"unit_price"`
	PriceFrom bool      `json:"price_from,omitempty"` // 起步价，最终价格由店家确认
	Subtotal  int64     `json:"subtotal"`
}

// OrderSequence 单行计数器，保存最后一个订单序号
type OrderSequence struct {
	ID           uint  `gorm:"primaryKey"`
	LastSequence int64 `gorm:"not null;default:0"`
}

// OrderStats 老板查看的汇总
type OrderStats struct {
	Count   int64 `json:"count"`
	Revenue int64 `json:"revenue"`
}
