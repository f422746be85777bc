package repositories

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chatorder-backend/apperr"
	"chatorder-backend/models"
)

type ProductRepository interface {
	FindAll() ([]models.Product, error)
	FindByID(id string) (*models.Product, error)
	// SyncProducts 用导入的目录整体替换：存在则更新，不在新目录里的软删除
	SyncProducts(items []models.Product) error
	SetStock(id string, inStock bool) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// FindAll 按目录顺序返回全部商品
func (r *productRepository) FindAll() ([]models.Product, error) {
	var products []models.Product
	err := r.db.Order("position ASC").Find(&products).Error
	return products, err
}

func (r *productRepository) FindByID(id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("products.FindByID", id)
		}
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) SetStock(id string, inStock bool) error {
	res := r.db.Model(&models.Product{}).Where("id = ?", id).Update("in_stock", inStock)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("products.SetStock", id)
	}
	return nil
}

func (r *productRepository) SyncProducts(items []models.Product) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		ids := make([]string, 0, len(items))
		for i := range items {
			p := items[i]
			p.Position = i
			ids = append(ids, p.ID)

			// 软删除过的商品重新导入时要复活
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"category", "subcategory", "name", "price", "price_from",
					"in_stock", "barcode", "images", "position", "updated_at", "deleted_at",
				}),
			}).Create(&p).Error
			if err != nil {
				return err
			}
		}

		stale := tx.Model(&models.Product{})
		if len(ids) > 0 {
			stale = stale.Where("id NOT IN ?", ids)
		} else {
			stale = stale.Where("1 = 1")
		}
		return stale.Delete(&models.Product{}).Error
	})
}
