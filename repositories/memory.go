package repositories

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"chatorder-backend/apperr"
	"chatorder-backend/models"
)

// MemStore 内存版仓库，同时实现商品、订单、客户、折扣四个接口。
// 下单涉及订单、序号、客户三处写入，统一在一把写锁里完成。
type MemStore struct {
	mu        sync.RWMutex
	products  []models.Product
	orders    []models.Order
	customers map[string]*models.Customer
	sequence  int64
	discount  models.DiscountConfig
}

func NewMemStore() *MemStore {
	return &MemStore{
		products:  make([]models.Product, 0),
		orders:    make([]models.Order, 0),
		customers: make(map[string]*models.Customer),
		discount:  models.DiscountConfig{Rules: []models.DiscountRule{}},
	}
}

var (
	_ ProductRepository  = (*MemStore)(nil)
	_ OrderRepository    = (*MemStore)(nil)
	_ CustomerRepository = (*MemStore)(nil)
	_ DiscountRepository = (*MemStore)(nil)
)

// ---- 商品 ----

func (s *MemStore) FindAll() ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, len(s.products))
	copy(out, s.products)
	return out, nil
}

func (s *MemStore) FindByID(id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, apperr.NotFound("products.FindByID", id)
}

func (s *MemStore) SyncProducts(items []models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = make([]models.Product, len(items))
	for i, p := range items {
		p.Position = i
		s.products[i] = p
	}
	return nil
}

func (s *MemStore) SetStock(id string, inStock bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == id {
			s.products[i].InStock = inStock
			return nil
		}
	}
	return apperr.NotFound("products.SetStock", id)
}

// ---- 订单 ----

func (s *MemStore) Place(order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	c := s.touchLocked(order.Identity, now)
	c.OrderCount++
	c.TotalSpent += order.Total

	s.sequence++
	order.Sequence = s.sequence
	order.Code = FormatOrderCode(s.sequence)
	order.CustomerID = c.ID
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt, order.UpdatedAt = now, now
	if order.Status == "" {
		order.Status = models.OrderStatusConfirmed
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
	}
	s.orders = append(s.orders, cloneOrder(*order))
	return nil
}

func (s *MemStore) List(limit int) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.newestFirst(func(models.Order) bool { return true }, limit), nil
}

func (s *MemStore) ListByCustomer(identity string) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.newestFirst(func(o models.Order) bool { return o.Identity == identity }, 0), nil
}

func (s *MemStore) FindByCode(code string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.Code == code {
			c := cloneOrder(o)
			return &c, nil
		}
	}
	return nil, apperr.NotFound("orders.FindByCode", code)
}

func (s *MemStore) Stats() (models.OrderStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st models.OrderStats
	for _, o := range s.orders {
		if o.Status == models.OrderStatusCancelled {
			continue
		}
		st.Count++
		st.Revenue += o.Total
	}
	return st, nil
}

func (s *MemStore) newestFirst(keep func(models.Order) bool, limit int) []models.Order {
	out := make([]models.Order, 0)
	for i := len(s.orders) - 1; i >= 0; i-- {
		if !keep(s.orders[i]) {
			continue
		}
		out = append(out, cloneOrder(s.orders[i]))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func cloneOrder(o models.Order) models.Order {
	items := make([]models.OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

// ---- 客户 ----

func (s *MemStore) Touch(identity string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked(identity, at)
	return nil
}

func (s *MemStore) touchLocked(identity string, at time.Time) *models.Customer {
	c, ok := s.customers[identity]
	if !ok {
		c = &models.Customer{Identity: identity}
		c.ID = uuid.New()
		c.CreatedAt = at
		s.customers[identity] = c
	}
	c.LastInteractionAt = at
	c.UpdatedAt = at
	return c
}

func (s *MemStore) FindByIdentity(identity string) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[identity]
	if !ok {
		return nil, apperr.NotFound("customers.FindByIdentity", identity)
	}
	out := *c
	out.Orders = s.newestFirst(func(o models.Order) bool { return o.Identity == identity }, 0)
	return &out, nil
}

func (s *MemStore) Count() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.customers)), nil
}

// ---- 折扣 ----

func (s *MemStore) Get() (models.DiscountConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg := s.discount
	cfg.Rules = append([]models.DiscountRule{}, s.discount.Rules...)
	return cfg, nil
}

func (s *MemStore) Save(cfg models.DiscountConfig) (models.DiscountConfig, error) {
	normalized, err := prepareDiscount(cfg)
	if err != nil {
		return models.DiscountConfig{}, err
	}
	normalized.UpdatedAt = time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discount = normalized
	s.discount.Rules = append([]models.DiscountRule{}, normalized.Rules...)
	return normalized, nil
}
