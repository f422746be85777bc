package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品档案，主键是 "<category>::<subcategory>::<name>"
type Product struct {
	ID          string `gorm:"primaryKey;type:varchar(255)" json:"id"`
	Category    string `gorm:"index;not null" json:"category"`
	Subcategory string `gorm:"index" json:"subcategory"`
	Name        string `gorm:"not null" json:"name"`

	// 固定价和起步价二选一
	Price     *int64 `json:"price,omitempty"`
	PriceFrom *int64 `json:"price_from,omitempty"`

	InStock bool     `gorm:"not null" json:"in_stock"` // 不能带 default，否则 false 不会写入
	Barcode string   `gorm:"index" json:"barcode,omitempty"`
	Images  []string `gorm:"serializer:json" json:"images,omitempty"`

	Position int `gorm:"default:0" json:"position"` // 目录顺序，决定同分排序

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// UnitPrice 返回下单时使用的单价；起步价商品按起步价计
func (p Product) UnitPrice() (price int64, isFrom bool) {
	if p.Price != nil {
		return *p.Price, false
	}
	if p.PriceFrom != nil {
		return *p.PriceFrom, true
	}
	return 0, false
}

// ProductAttributes 嵌套目录文档里每个商品名下的属性
type ProductAttributes struct {
	Price     *int64   `yaml:"price" json:"price,omitempty"`
	PriceFrom *int64   `yaml:"price_from" json:"price_from,omitempty"`
	InStock   *bool    `yaml:"in_stock" json:"in_stock,omitempty"`
	Barcode   string   `yaml:"barcode" json:"barcode,omitempty"`
	Images    []string `yaml:"images" json:"images,omitempty"`
}
