package services

import (
	"fmt"
	"strings"

	"chatorder-backend/logic"
	"chatorder-backend/models"
)

const (
	catalogListLimit = 60
	aiCatalogLimit   = 50

	replyFailure       = "Tuvimos un problema procesando tu mensaje. Probá de nuevo en un momento."
	replyNotUnderstood = "Perdón, no entendí. Podés pedirme productos (por ejemplo \"quiero 2 cuadernos\"), pedir el catálogo o escribir \"ver carrito\"."
	replyNotFound      = "No encontré ese producto."
	replyEmptyCart     = "Tu carrito está vacío."
	replyChoiceDropped = "Listo, no agrego ninguna de esas opciones."
)

func lineText(n int, l CartLine) string {
	return logic.FormatLine(n, l.Product.Name, l.Quantity, l.UnitPrice(), l.Subtotal())
}

func proposalText(lines []CartLine) string {
	if len(lines) == 1 {
		l := lines[0]
		return fmt.Sprintf("¿Agrego %d x %s (%s c/u) = %s al carrito? Respondé si o no.",
			l.Quantity, l.Product.Name, logic.PriceLabel(l.Product), logic.FormatMoney(l.Subtotal()))
	}
	var b strings.Builder
	b.WriteString("Encontré esto:\n")
	var total int64
	for i, l := range lines {
		b.WriteString(lineText(i+1, l))
		b.WriteByte('\n')
		total += l.Subtotal()
	}
	fmt.Fprintf(&b, "Subtotal: %s\n¿Los agrego al carrito? Respondé si o no.", logic.FormatMoney(total))
	return b.String()
}

func choicesText(choices []models.Product, qty int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Encontré varias opciones (cantidad: %d):\n", qty)
	for i, p := range choices {
		fmt.Fprintf(&b, "%d. %s (%s)", i+1, p.Name, logic.PriceLabel(p))
		if !p.InStock {
			b.WriteString(" - sin stock")
		}
		b.WriteByte('\n')
	}
	b.WriteString("Respondé con el número, o \"ninguno\".")
	return b.String()
}

// cartSummary 购物车或订单的明细和金额
func cartSummary(o *models.Order) string {
	var b strings.Builder
	b.WriteString("🛒 Tu carrito:\n")
	writeTotals(&b, o)
	return b.String()
}

func writeTotals(b *strings.Builder, o *models.Order) {
	hasFrom := false
	for _, it := range o.Items {
		b.WriteString(logic.FormatLine(it.Line, it.Name, it.Quantity, it.UnitPrice, it.Subtotal))
		if it.PriceFrom {
			b.WriteString(" *")
			hasFrom = true
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(b, "Subtotal: %s", logic.FormatMoney(o.Subtotal))
	if o.Discount > 0 {
		note := o.DiscountNote
		if note == "" {
			note = "descuento"
		}
		fmt.Fprintf(b, "\nDescuento (%s): -%s", note, logic.FormatMoney(o.Discount))
	}
	if o.DeliveryType == models.DeliveryShipped {
		if o.DeliveryFee == 0 {
			b.WriteString("\nEnvío: gratis")
		} else {
			fmt.Fprintf(b, "\nEnvío: %s", logic.FormatMoney(o.DeliveryFee))
		}
	}
	fmt.Fprintf(b, "\nTotal: %s", logic.FormatMoney(o.Total))
	if hasFrom {
		b.WriteString("\n* precio desde, el local confirma el valor final")
	}
}

func orderText(o *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ ¡Pedido %s confirmado!\n", o.Code)
	writeTotals(&b, o)
	switch o.DeliveryType {
	case models.DeliveryPickup:
		b.WriteString("\nPodés retirarlo en el local.")
	case models.DeliveryShipped:
		b.WriteString("\nTe escribimos para coordinar el envío.")
	}
	b.WriteString("\n" + logic.GenerateClosing())
	return b.String()
}

func productListLine(p models.Product) string {
	s := "- " + p.Name + ": " + logic.PriceLabel(p)
	if !p.InStock {
		s += " (sin stock)"
	}
	return s
}

func catalogText(products []models.Product, limit int) string {
	var b strings.Builder
	b.WriteString("📋 Lista de precios")
	category := ""
	for i, p := range products {
		if i >= limit {
			fmt.Fprintf(&b, "\n...y %d productos más.", len(products)-limit)
			break
		}
		if p.Category != category {
			category = p.Category
			fmt.Fprintf(&b, "\n\n*%s*", category)
		}
		b.WriteString("\n" + productListLine(p))
	}
	b.WriteString("\n\nPedí escribiendo, por ejemplo: \"quiero 2 " + strings.ToLower(products[0].Name) + "\".")
	return b.String()
}

func categoryText(name string, products []models.Product) string {
	if len(products) == 0 {
		return fmt.Sprintf("No tenemos productos en %s por ahora.", name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📂 %s:", name)
	for _, p := range products {
		b.WriteString("\n" + productListLine(p))
	}
	return b.String()
}
