package logic

import "strconv"

// 超过这个值的数字更像条码或价格，不当作数量
const maxQuantity = 999

// 1-10 的西语数字词
var numerals = map[string]int{
	"un": 1, "uno": 1, "una": 1,
	"dos":    2,
	"tres":   3,
	"cuatro": 4,
	"cinco":  5,
	"seis":   6,
	"siete":  7,
	"ocho":   8,
	"nueve":  9,
	"diez":   10,
}

// Entities 从一句话里抽出的数量和原文
type Entities struct {
	Quantity int
	RawText  string
}

// ExtractEntities 取最后一次出现的数量，没有则为 1。
// 多商品的句子不在这里拆分，整句交给索引去匹配。
func ExtractEntities(text string) Entities {
	qty := 0
	for _, w := range Words(text) {
		if n, ok := numerals[w]; ok {
			qty = n
			continue
		}
		if IsNumber(w) {
			if n, err := strconv.Atoi(w); err == nil && n > 0 && n <= maxQuantity {
				qty = n
			}
		}
	}
	if qty == 0 {
		qty = 1
	}
	return Entities{Quantity: qty, RawText: text}
}

// IsNumeral 是否为 1-10 的数字词，这类词由 ExtractEntities 当作数量
func IsNumeral(w string) bool {
	_, ok := numerals[w]
	return ok
}

// ParseChoice 把 "2" / "dos" 这类单独回复解析成序号
func ParseChoice(text string) (int, bool) {
	words := Words(text)
	if len(words) != 1 {
		return 0, false
	}
	if n, ok := numerals[words[0]]; ok {
		return n, true
	}
	if IsNumber(words[0]) {
		n, err := strconv.Atoi(words[0])
		return n, err == nil
	}
	return 0, false
}
