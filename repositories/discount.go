package repositories

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chatorder-backend/logic"
	"chatorder-backend/models"
)

type DiscountRepository interface {
	Get() (models.DiscountConfig, error)
	// Save 校验后按门槛升序保存，读到的规则永远有序
	Save(cfg models.DiscountConfig) (models.DiscountConfig, error)
}

type discountRepository struct {
	db *gorm.DB
}

func NewDiscountRepository(db *gorm.DB) DiscountRepository {
	return &discountRepository{db: db}
}

const discountRowID = 1

func (r *discountRepository) Get() (models.DiscountConfig, error) {
	var cfg models.DiscountConfig
	err := r.db.First(&cfg, discountRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DiscountConfig{Rules: []models.DiscountRule{}}, nil
	}
	return cfg, err
}

func (r *discountRepository) Save(cfg models.DiscountConfig) (models.DiscountConfig, error) {
	normalized, err := prepareDiscount(cfg)
	if err != nil {
		return models.DiscountConfig{}, err
	}
	normalized.ID = discountRowID
	err = r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "rules", "updated_at"}),
	}).Create(&normalized).Error
	return normalized, err
}

func prepareDiscount(cfg models.DiscountConfig) (models.DiscountConfig, error) {
	for _, rule := range cfg.Rules {
		if err := logic.ValidateRule(rule); err != nil {
			return models.DiscountConfig{}, err
		}
	}
	cfg.Rules = logic.SortRules(cfg.Rules)
	return cfg, nil
}
