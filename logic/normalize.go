package logic

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize 小写、去重音、下划线转空格、合并空白
func Normalize(s string) string {
	s = stripDiacritics(strings.ToLower(s))
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Words 把归一化后的文本按非字母数字切分
func Words(s string) []string {
	return strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Slug 生成商品 ID 的一段：只保留字母数字，其余连续字符折叠成单个下划线
func Slug(s string) string {
	return strings.Join(Words(s), "_")
}

// ProductID 组合成 "<category>::<subcategory>::<name>"
func ProductID(category, subcategory, name string) string {
	return Slug(category) + "::" + Slug(subcategory) + "::" + Slug(name)
}

// IsNumber 纯数字 token
func IsNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
