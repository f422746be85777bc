package services

import (
	"strings"

	"chatorder-backend/logic"
)

// 词表都是归一化之后的形式（小写、去重音）
var (
	affirmatives = set("si", "sip", "dale", "ok", "okay", "bueno", "claro", "listo", "perfecto", "correcto", "obvio", "de una", "si dale", "si por favor", "si porfa", "si gracias", "agregalo", "agregalos")
	negatives    = set("no", "nop", "nah", "no gracias", "mejor no", "ninguno", "ninguna", "dejalo")
	dropChoice   = set("no", "cancelar", "ninguno", "ninguna", "ninguno gracias", "no gracias")

	cartViews     = set("carrito", "ver carrito", "mi carrito", "ver mi carrito", "ver pedido", "mi pedido", "ver mi pedido", "que tengo", "que llevo")
	confirmVerbs  = set("confirmar", "confirmo", "finalizar", "finalizo", "terminar", "cerrar")
	cancelPhrases = set("cancelar", "cancela", "cancelar pedido", "cancelar todo", "vaciar", "vaciar carrito", "borrar carrito", "borrar todo", "empezar de nuevo")
	removeVerbs   = set("quitar", "quita", "sacar", "saca", "eliminar", "elimina", "borrar", "borra")

	photoWords  = set("foto", "fotos", "imagen", "imagenes")
	photoFiller = set("foto", "fotos", "imagen", "imagenes", "de", "del", "la", "el", "las", "los", "una", "un", "me", "mandame", "manda", "pasame", "pasa", "ver", "tenes", "tienen", "mostrame", "quiero", "hay", "por", "favor")

	catalogWords   = set("catalogo", "catalogos")
	catalogPhrases = set("productos", "que venden", "que tienen", "que productos tienen", "que productos hay", "menu", "precios", "lista", "lista de precios")
	greetings      = set("hola", "holaa", "holis", "buenas", "buen", "buenos", "hey", "saludos")

	faqHours   = set("horario", "horarios", "abren", "abierto", "abiertos", "cierran", "atienden")
	faqPlace   = set("direccion", "ubicacion", "donde", "local", "quedan")
	faqPayment = set("pago", "pagos", "pagar", "tarjeta", "tarjetas", "transferencia", "efectivo", "mercadopago")
	faqContact = set("telefono", "contacto", "whatsapp", "llamar", "celular")
)

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

func anyWord(words []string, vocab map[string]bool) bool {
	for _, w := range words {
		if vocab[w] {
			return true
		}
	}
	return false
}

func isAffirmative(norm string, words []string) bool {
	if affirmatives[norm] {
		return true
	}
	return len(words) > 0 && len(words) <= 3 && (words[0] == "si" || words[0] == "dale" || words[0] == "ok")
}

func isNegative(norm string, words []string) bool {
	if negatives[norm] {
		return true
	}
	return len(words) > 0 && len(words) <= 3 && words[0] == "no"
}

func isConfirm(words []string) bool {
	return len(words) > 0 && len(words) <= 3 && confirmVerbs[words[0]]
}

// removeIndex 解析 "quitar 2" / "sacar el dos"
func removeIndex(words []string) (int, bool) {
	if len(words) < 2 || len(words) > 4 || !removeVerbs[words[0]] {
		return 0, false
	}
	last := words[len(words)-1]
	if n, ok := logic.ParseChoice(last); ok {
		return n, true
	}
	return 0, false
}

// isBarcode 整条消息就是一个 8-14 位数字
func isBarcode(words []string) bool {
	return len(words) == 1 && logic.IsNumber(words[0]) && len(words[0]) >= 8 && len(words[0]) <= 14
}

func isCatalogRequest(norm string, words []string) bool {
	return catalogPhrases[norm] || anyWord(words, catalogWords) || strings.Contains(norm, "lista de precios")
}

func isGreeting(words []string) bool {
	return len(words) > 0 && len(words) <= 4 && greetings[words[0]]
}

// photoQuery 去掉请求图片的套话，剩下的是商品名
func photoQuery(words []string) (string, bool) {
	if !anyWord(words, photoWords) {
		return "", false
	}
	rest := make([]string, 0, len(words))
	for _, w := range words {
		if !photoFiller[w] {
			rest = append(rest, w)
		}
	}
	return strings.Join(rest, " "), true
}

func parseOwnerArg(fields []string) string {
	if len(fields) < 2 {
		return ""
	}
	return strings.TrimSpace(fields[1])
}
