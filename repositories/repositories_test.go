package repositories

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"chatorder-backend/apperr"
	"chatorder-backend/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Product{}, &models.Customer{}, &models.Order{}, &models.OrderItem{},
		&models.OrderSequence{}, &models.DiscountConfig{},
	))
	return db
}

func price(v int64) *int64 { return &v }

func sampleOrder(identity string, total int64) *models.Order {
	return &models.Order{
		Identity: identity,
		Items: []models.OrderItem{
			{Line: 1, ProductID: "utiles::cuadernos::cuaderno_a4", Name: "Cuaderno A4", Quantity: 2, UnitPrice: 1500, Subtotal: 3000},
		},
		Subtotal:     3000,
		Total:        total,
		DeliveryType: models.DeliveryPickup,
	}
}

// 两种实现跑同一组用例
func eachStore(t *testing.T, fn func(t *testing.T, products ProductRepository, orders OrderRepository, customers CustomerRepository, discounts DiscountRepository)) {
	t.Run("gorm", func(t *testing.T) {
		db := setupTestDB(t)
		fn(t, NewProductRepository(db), NewOrderRepository(db), NewCustomerRepository(db), NewDiscountRepository(db))
	})
	t.Run("memory", func(t *testing.T) {
		s := NewMemStore()
		fn(t, s, s, s, s)
	})
}

func TestProducts_SyncAndFind(t *testing.T) {
	eachStore(t, func(t *testing.T, products ProductRepository, _ OrderRepository, _ CustomerRepository, _ DiscountRepository) {
		items := []models.Product{
			{ID: "utiles::cuadernos::cuaderno_a4", Category: "Útiles", Subcategory: "Cuadernos", Name: "Cuaderno A4", Price: price(1500), InStock: true, Images: []string{"a4.jpg"}},
			{ID: "utiles::escritura::lapicera_azul", Category: "Útiles", Subcategory: "Escritura", Name: "Lapicera Azul", Price: price(300), InStock: true},
		}
		require.NoError(t, products.SyncProducts(items))

		all, err := products.FindAll()
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "Cuaderno A4", all[0].Name)
		assert.Equal(t, []string{"a4.jpg"}, all[0].Images)

		require.NoError(t, products.SetStock("utiles::escritura::lapicera_azul", false))
		p, err := products.FindByID("utiles::escritura::lapicera_azul")
		require.NoError(t, err)
		assert.False(t, p.InStock)

		// 重新同步时不在新目录里的商品消失
		require.NoError(t, products.SyncProducts(items[1:]))
		all, err = products.FindAll()
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, 0, all[0].Position)

		_, err = products.FindByID("utiles::cuadernos::cuaderno_a4")
		assert.True(t, apperr.IsNotFound(err))
		assert.True(t, apperr.IsNotFound(products.SetStock("nope", true)))

		// 缺货商品导入后保持缺货，再次导入也不会被改回有货
		tempera := models.Product{ID: "arte::pinturas::tempera", Category: "Arte", Subcategory: "Pinturas", Name: "Témpera", PriceFrom: price(900), InStock: false}
		for i := 0; i < 2; i++ {
			require.NoError(t, products.SyncProducts([]models.Product{items[1], tempera}))
			p, err = products.FindByID(tempera.ID)
			require.NoError(t, err)
			assert.False(t, p.InStock, "import #%d", i+1)
		}

		items[1].InStock = false
		require.NoError(t, products.SyncProducts(items[1:]))
		p, err = products.FindByID(items[1].ID)
		require.NoError(t, err)
		assert.False(t, p.InStock)
	})
}

func TestOrders_PlaceAssignsSequenceAndUpdatesCustomer(t *testing.T) {
	eachStore(t, func(t *testing.T, _ ProductRepository, orders OrderRepository, customers CustomerRepository, _ DiscountRepository) {
		require.NoError(t, customers.Touch("549111", time.Now()))

		first := sampleOrder("549111", 3000)
		require.NoError(t, orders.Place(first))
		second := sampleOrder("549222", 4680)
		require.NoError(t, orders.Place(second))
		third := sampleOrder("549111", 1000)
		require.NoError(t, orders.Place(third))

		assert.Equal(t, int64(1), first.Sequence)
		assert.Equal(t, "PED-00001", first.Code)
		assert.Equal(t, "PED-00003", third.Code)

		c, err := customers.FindByIdentity("549111")
		require.NoError(t, err)
		assert.Equal(t, 2, c.OrderCount)
		assert.Equal(t, int64(4000), c.TotalSpent)
		require.Len(t, c.Orders, 2)
		assert.Equal(t, "PED-00003", c.Orders[0].Code)
		require.Len(t, c.Orders[0].Items, 1)

		n, err := customers.Count()
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		list, err := orders.List(2)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, int64(3), list[0].Sequence)

		byCustomer, err := orders.ListByCustomer("549222")
		require.NoError(t, err)
		require.Len(t, byCustomer, 1)
		assert.Equal(t, int64(4680), byCustomer[0].Total)

		found, err := orders.FindByCode("PED-00002")
		require.NoError(t, err)
		assert.Equal(t, "549222", found.Identity)
		_, err = orders.FindByCode("PED-99999")
		assert.True(t, apperr.IsNotFound(err))

		stats, err := orders.Stats()
		require.NoError(t, err)
		assert.Equal(t, models.OrderStats{Count: 3, Revenue: 8680}, stats)
	})
}

func TestOrders_ConcurrentPlaceKeepsSequenceUnique(t *testing.T) {
	s := NewMemStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Place(sampleOrder(fmt.Sprintf("c%d", i%5), 100)))
		}(i)
	}
	wg.Wait()

	list, err := s.List(0)
	require.NoError(t, err)
	seen := map[int64]bool{}
	for _, o := range list {
		assert.False(t, seen[o.Sequence])
		seen[o.Sequence] = true
	}
	assert.Len(t, seen, 50)

	var spent int64
	for i := 0; i < 5; i++ {
		c, err := s.FindByIdentity(fmt.Sprintf("c%d", i))
		require.NoError(t, err)
		assert.Equal(t, 10, c.OrderCount)
		spent += c.TotalSpent
	}
	assert.Equal(t, int64(5000), spent)
}

func TestCustomers_Touch(t *testing.T) {
	eachStore(t, func(t *testing.T, _ ProductRepository, _ OrderRepository, customers CustomerRepository, _ DiscountRepository) {
		_, err := customers.FindByIdentity("549333")
		assert.True(t, apperr.IsNotFound(err))

		at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		require.NoError(t, customers.Touch("549333", at))
		require.NoError(t, customers.Touch("549333", at.Add(time.Hour)))

		c, err := customers.FindByIdentity("549333")
		require.NoError(t, err)
		assert.Equal(t, 0, c.OrderCount)
		assert.True(t, c.LastInteractionAt.Equal(at.Add(time.Hour)))
		n, _ := customers.Count()
		assert.Equal(t, int64(1), n)
	})
}

func TestDiscounts_SaveSortsAndValidates(t *testing.T) {
	eachStore(t, func(t *testing.T, _ ProductRepository, _ OrderRepository, _ CustomerRepository, discounts DiscountRepository) {
		cfg, err := discounts.Get()
		require.NoError(t, err)
		assert.False(t, cfg.Enabled)
		assert.Empty(t, cfg.Rules)

		saved, err := discounts.Save(models.DiscountConfig{
			Enabled: true,
			Rules: []models.DiscountRule{
				{MinSubtotal: 10000, Percentage: 20, Description: "grande"},
				{MinSubtotal: 5000, Percentage: 10, Description: "mediano"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(5000), saved.Rules[0].MinSubtotal)

		cfg, err = discounts.Get()
		require.NoError(t, err)
		assert.True(t, cfg.Enabled)
		require.Len(t, cfg.Rules, 2)
		assert.Equal(t, "mediano", cfg.Rules[0].Description)
		assert.Equal(t, "grande", cfg.Rules[1].Description)

		_, err = discounts.Save(models.DiscountConfig{Enabled: true, Rules: []models.DiscountRule{{MinSubtotal: 1, Percentage: 0}}})
		assert.True(t, apperr.IsValidation(err))

		// 校验失败不覆盖旧配置
		cfg, err = discounts.Get()
		require.NoError(t, err)
		assert.Len(t, cfg.Rules, 2)
	})
}
