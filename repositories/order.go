package repositories

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chatorder-backend/apperr"
	"chatorder-backend/models"
)

// FormatOrderCode 人类可读的订单号
func FormatOrderCode(seq int64) string {
	return fmt.Sprintf("PED-%05d", seq)
}

type OrderRepository interface {
	// Place 分配序号、保存订单并更新客户统计，要么全部成功要么全部失败
	Place(order *models.Order) error
	List(limit int) ([]models.Order, error)
	ListByCustomer(identity string) ([]models.Order, error)
	FindByCode(code string) (*models.Order, error)
	Stats() (models.OrderStats, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

const sequenceRowID = 1

func (r *orderRepository) Place(order *models.Order) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		// 1. 计数器行不存在就建
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.OrderSequence{ID: sequenceRowID}).Error; err != nil {
			return err
		}

		// 2. 原子自增，并发下行锁保证序号不重复
		if err := tx.Model(&models.OrderSequence{}).Where("id = ?", sequenceRowID).
			Update("last_sequence", gorm.Expr("last_sequence + 1")).Error; err != nil {
			return err
		}
		var seq models.OrderSequence
		if err := tx.First(&seq, sequenceRowID).Error; err != nil {
			return err
		}

		// 3. 客户统计
		now := time.Now()
		var customer models.Customer
		if err := tx.Where(models.Customer{Identity: order.Identity}).
			Attrs(models.Customer{LastInteractionAt: now}).
			FirstOrCreate(&customer).Error; err != nil {
			return err
		}
		if err := tx.Model(&customer).Updates(map[string]interface{}{
			"order_count":         gorm.Expr("order_count + 1"),
			"total_spent":         gorm.Expr("total_spent + ?", order.Total),
			"last_interaction_at": now,
		}).Error; err != nil {
			return err
		}

		// 4. 订单和明细
		order.Sequence = seq.LastSequence
		order.Code = FormatOrderCode(seq.LastSequence)
		order.CustomerID = customer.ID
		if order.Status == "" {
			order.Status = models.OrderStatusConfirmed
		}
		return tx.Create(order).Error
	})
	if err != nil {
		return apperr.External("orders.Place", err)
	}
	return nil
}

// List 最新的在前，limit <= 0 表示全部
func (r *orderRepository) List(limit int) ([]models.Order, error) {
	var orders []models.Order
	q := r.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("line ASC")
	}).Order("sequence DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&orders).Error
	return orders, err
}

func (r *orderRepository) ListByCustomer(identity string) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("line ASC")
	}).Where("identity = ?", identity).Order("sequence DESC").Find(&orders).Error
	return orders, err
}

func (r *orderRepository) FindByCode(code string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("line ASC")
	}).First(&order, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("orders.FindByCode", code)
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) Stats() (models.OrderStats, error) {
	var stats models.OrderStats
	err := r.db.Model(&models.Order{}).
		Where("status <> ?", models.OrderStatusCancelled).
		Select("COUNT(*) AS count, COALESCE(SUM(total), 0) AS revenue").
		Scan(&stats).Error
	return stats, err
}
