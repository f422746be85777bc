package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chatorder-backend/apperr"
	"chatorder-backend/models"
)

type CustomerRepository interface {
	// Touch 首次联系时建档，之后只刷新最后互动时间
	Touch(identity string, at time.Time) error
	FindByIdentity(identity string) (*models.Customer, error)
	Count() (int64, error)
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Touch(identity string, at time.Time) error {
	c := models.Customer{Identity: identity, LastInteractionAt: at}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_interaction_at", "updated_at"}),
	}).Create(&c).Error
}

// FindByIdentity 连同订单历史一起返回，最新的在前
func (r *customerRepository) FindByIdentity(identity string) (*models.Customer, error) {
	var c models.Customer
	err := r.db.Preload("Orders", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence DESC")
	}).Preload("Orders.Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("line ASC")
	}).First(&c, "identity = ?", identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("customers.FindByIdentity", identity)
		}
		return nil, err
	}
	return &c, nil
}

func (r *customerRepository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&models.Customer{}).Count(&n).Error
	return n, err
}
