package logic

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"chatorder-backend/models"
)

// 定义话术组件池
var (
	openings = []string{"¡Hola! ", "¡Buenas! ", "¡Hola, qué tal! ", "¡Bienvenido/a! "}

	invitations = []string{
		"Contame qué estás buscando y te armo el pedido.",
		"Escribime qué necesitás, por ejemplo \"quiero 2 cuadernos\".",
		"Decime qué productos querés y los agrego al carrito.",
	}

	closings = []string{"¡Gracias por tu compra!", "¡Muchas gracias!", "¡Gracias por elegirnos!"}
)

// GenerateGreeting 随机拼一句欢迎语
func GenerateGreeting(business string) string {
	script := openings[rand.Intn(len(openings))]
	if business != "" {
		script += "Te escribe " + business + ". "
	}
	return script + invitations[rand.Intn(len(invitations))]
}

func GenerateClosing() string {
	return closings[rand.Intn(len(closings))]
}

// FormatMoney 金额按千位点分隔，例如 12500 -> "$12.500"
func FormatMoney(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String()
}

// PriceLabel 起步价商品前面加 "desde"
func PriceLabel(p models.Product) string {
	price, from := p.UnitPrice()
	if from {
		return "desde " + FormatMoney(price)
	}
	return FormatMoney(price)
}

// FormatLine 购物车或订单中的一行
func FormatLine(n int, name string, qty int, unit, subtotal int64) string {
	return fmt.Sprintf("%d. %s x%d (%s c/u) = %s", n, name, qty, FormatMoney(unit), FormatMoney(subtotal))
}
