package services

import (
	"context"
	"fmt"
	"strings"

	"chatorder-backend/logic"
	"chatorder-backend/models"
)

// Notifier 推送到管理 App，并给老板发一条文字
type Notifier struct {
	hub       *Hub
	messenger Messenger
	ownerID   string
}

func NewNotifier(hub *Hub, messenger Messenger, ownerID string) *Notifier {
	return &Notifier{hub: hub, messenger: messenger, ownerID: ownerID}
}

func (n *Notifier) OrderCreated(ctx context.Context, order *models.Order) error {
	if n.hub != nil {
		n.hub.Broadcast(models.WSMessage{Type: models.EventOrderCreated, Data: order})
	}
	if n.messenger == nil || n.ownerID == "" {
		return nil
	}
	return n.messenger.SendText(ctx, n.ownerID, OwnerOrderSummary(order))
}

// OwnerOrderSummary 给老板看的订单摘要
func OwnerOrderSummary(o *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧾 Nuevo pedido %s de %s\n", o.Code, o.Identity)
	for _, it := range o.Items {
		b.WriteString(logic.FormatLine(it.Line, it.Name, it.Quantity, it.UnitPrice, it.Subtotal))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "Total: %s", logic.FormatMoney(o.Total))
	if o.DeliveryType == models.DeliveryShipped {
		b.WriteString(" (envío a domicilio)")
	} else if o.DeliveryType == models.DeliveryPickup {
		b.WriteString(" (retira en local)")
	}
	return b.String()
}
