package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"chatorder-backend/apperr"
	"chatorder-backend/config"
	"chatorder-backend/logic"
	"chatorder-backend/models"
	"chatorder-backend/repositories"
)

// OrderNotifier 订单落库后的通知，失败只记日志
type OrderNotifier interface {
	OrderCreated(ctx context.Context, order *models.Order) error
}

// Finalizer 把购物车快照成订单
type Finalizer struct {
	orders    repositories.OrderRepository
	discounts repositories.DiscountRepository
	notifier  OrderNotifier
	delivery  config.DeliveryConfig
}

func NewFinalizer(orders repositories.OrderRepository, discounts repositories.DiscountRepository, notifier OrderNotifier, delivery config.DeliveryConfig) *Finalizer {
	return &Finalizer{orders: orders, discounts: discounts, notifier: notifier, delivery: delivery}
}

// Quote 按当前价格和折扣配置计算订单，不落库
func (f *Finalizer) Quote(identity string, lines []CartLine, deliveryType models.DeliveryType) (*models.Order, error) {
	cfg, err := f.discounts.Get()
	if err != nil {
		return nil, apperr.External("finalizer.Quote", err)
	}

	order := &models.Order{Identity: identity, DeliveryType: deliveryType}
	for i, l := range lines {
		unit, from := l.Product.UnitPrice()
		item := models.OrderItem{
			Line:      i + 1,
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			Quantity:  l.Quantity,
			UnitPrice: unit,
			PriceFrom: from,
			Subtotal:  unit * int64(l.Quantity),
		}
		order.Items = append(order.Items, item)
		order.Subtotal += item.Subtotal
	}

	res := logic.ApplyDiscount(cfg.Enabled, cfg.Rules, order.Subtotal)
	order.Discount = res.Amount
	if res.Rule != nil {
		order.DiscountNote = res.Rule.Description
	}
	if deliveryType == models.DeliveryShipped {
		order.DeliveryFee = logic.DeliveryFee(order.Subtotal-order.Discount, f.delivery.Fee, f.delivery.FreeThreshold)
	}
	order.Total = order.Subtotal - order.Discount + order.DeliveryFee
	return order, nil
}

// Finalize 计算、落库、通知。落库失败返回错误，购物车由调用方保留；
// 通知失败只记日志，订单不回滚。
func (f *Finalizer) Finalize(ctx context.Context, identity string, lines []CartLine, deliveryType models.DeliveryType) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, apperr.Validation("finalizer.Finalize", identity, "empty cart")
	}
	order, err := f.Quote(identity, lines, deliveryType)
	if err != nil {
		return nil, err
	}
	if err := f.orders.Place(order); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"code":     order.Code,
		"customer": identity,
		"total":    order.Total,
	}).Info("🧾 订单已创建")

	if f.notifier != nil {
		if err := f.notifier.OrderCreated(ctx, order); err != nil {
			logrus.WithError(err).WithField("code", order.Code).Warn("⚠️ 订单通知失败")
		}
	}
	return order, nil
}
