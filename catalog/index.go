package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"chatorder-backend/apperr"
	"chatorder-backend/logic"
	"chatorder-backend/models"
)

const (
	scoreExact         = 100
	scoreWord          = 50
	scoreWordRepeat    = 25
	scoreContains      = 75
	scoreContainRepeat = 30

	minIndexedWord = 3 // 倒排索引只收长度 > 2 的词
	minContainWord = 4 // 子串包含只比较长度 >= 4 的词
)

// 查询里不参与匹配的动词和冠词
var stopwords = map[string]bool{
	"quiero": true, "queria": true, "quisiera": true, "dame": true, "necesito": true,
	"tenes": true, "tienen": true, "tiene": true, "hay": true, "busco": true,
	"un": true, "una": true, "uno": true, "unos": true, "unas": true, "los": true, "las": true,
	"que": true, "precio": true, "cuanto": true, "sale": true, "cuesta": true, "porfa": true, "favor": true,
}

// 介词单独不构成命中，只给已命中的商品加分
var connectors = map[string]bool{
	"para": true, "con": true, "sin": true, "por": true, "del": true, "mas": true,
}

// Match 一条搜索结果，Terms 是命中它的查询词
type Match struct {
	Product models.Product
	Score   int
	Terms   []string
	Exact   bool

	position int
	hits     int // 子串包含命中次数
	words    int // 词重叠命中次数
}

// snapshot 不可变，重建时整体替换
type snapshot struct {
	products      []models.Product
	position      map[string]int
	byName        map[string]int
	byWord        map[string][]int
	words         []string // byWord 的键，排好序保证遍历确定
	byBarcode     map[string]int
	byCategory    map[string][]int
	bySubcategory map[string][]int
	categories    []string
}

// Index 商品检索索引，读多写少
type Index struct {
	snap atomic.Pointer[snapshot]
}

func NewIndex() *Index {
	idx := &Index{}
	idx.snap.Store(emptySnapshot())
	return idx
}

func emptySnapshot() *snapshot {
	return &snapshot{
		position:      map[string]int{},
		byName:        map[string]int{},
		byWord:        map[string][]int{},
		byBarcode:     map[string]int{},
		byCategory:    map[string][]int{},
		bySubcategory: map[string][]int{},
	}
}

// Validate 检查单条商品记录
func Validate(p models.Product) error {
	id := logic.ProductID(p.Category, p.Subcategory, p.Name)
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Validation("catalog.Validate", id, "missing name")
	}
	if strings.TrimSpace(p.Category) == "" {
		return apperr.Validation("catalog.Validate", id, "missing category")
	}
	if (p.Price == nil) == (p.PriceFrom == nil) {
		return apperr.Validation("catalog.Validate", id, "exactly one of price and price_from must be set")
	}
	if p.Price != nil && *p.Price < 0 || p.PriceFrom != nil && *p.PriceFrom < 0 {
		return apperr.Validation("catalog.Validate", id, "negative price")
	}
	return nil
}

// Rebuild 一次遍历建好全部映射后原子替换；坏记录跳过并返回跳过数量
func (idx *Index) Rebuild(products []models.Product) int {
	s := emptySnapshot()
	skipped := 0
	seenCategory := map[string]bool{}

	for _, p := range products {
		if err := Validate(p); err != nil {
			logrus.WithError(err).Warn("⚠️ 跳过无效商品")
			skipped++
			continue
		}
		p.ID = logic.ProductID(p.Category, p.Subcategory, p.Name)
		if _, dup := s.position[p.ID]; dup {
			logrus.WithError(apperr.Validation("catalog.Rebuild", p.ID, "duplicate identifier")).Warn("⚠️ 跳过重复商品")
			skipped++
			continue
		}

		i := len(s.products)
		p.Position = i
		s.products = append(s.products, p)
		s.position[p.ID] = i

		name := logic.Normalize(p.Name)
		if _, ok := s.byName[name]; !ok {
			s.byName[name] = i
		}
		seen := map[string]bool{}
		for _, w := range logic.Words(p.Name) {
			if len(w) < minIndexedWord || seen[w] {
				continue
			}
			seen[w] = true
			s.byWord[w] = append(s.byWord[w], i)
		}
		if p.Barcode != "" {
			s.byBarcode[strings.TrimSpace(p.Barcode)] = i
		}

		cat := logic.Normalize(p.Category)
		s.byCategory[cat] = append(s.byCategory[cat], i)
		if !seenCategory[cat] {
			seenCategory[cat] = true
			s.categories = append(s.categories, p.Category)
		}
		if p.Subcategory != "" {
			sub := logic.Normalize(p.Subcategory)
			s.bySubcategory[sub] = append(s.bySubcategory[sub], i)
			if !seenCategory[sub] {
				seenCategory[sub] = true
				s.categories = append(s.categories, p.Subcategory)
			}
		}
	}

	s.words = make([]string, 0, len(s.byWord))
	for w := range s.byWord {
		s.words = append(s.words, w)
	}
	sort.Strings(s.words)

	idx.snap.Store(s)
	logrus.WithFields(logrus.Fields{"products": len(s.products), "skipped": skipped}).Info("📦 商品索引已重建")
	return skipped
}

// Search 综合精确匹配、词重叠和子串包含打分，同分按目录顺序
func (idx *Index) Search(query string) []Match {
	s := idx.snap.Load()
	q := logic.Normalize(query)
	if q == "" {
		return []Match{}
	}

	merged := map[int]*Match{}
	get := func(i int) *Match {
		m, ok := merged[i]
		if !ok {
			m = &Match{Product: s.products[i], position: i}
			merged[i] = m
		}
		return m
	}

	var terms, weak []string
	for _, w := range logic.Words(query) {
		switch {
		case logic.IsNumber(w) || stopwords[w]:
		case connectors[w] || logic.IsNumeral(w):
			weak = append(weak, w)
		default:
			terms = append(terms, w)
		}
	}

	if i, ok := s.byName[q]; ok {
		m := get(i)
		m.Score += scoreExact
		m.Exact = true
		m.addTerms(terms...)
	}

	for _, w := range terms {
		if len(w) < minIndexedWord {
			continue
		}
		for _, i := range s.byWord[w] {
			m := get(i)
			if m.words == 0 {
				m.Score += scoreWord
			} else {
				m.Score += scoreWordRepeat
			}
			m.words++
			m.addTerms(w)
		}
	}

	// 整句和商品名互相包含
	for i, p := range s.products {
		name := logic.Normalize(p.Name)
		if len(name) < minContainWord || name == q {
			continue
		}
		if strings.Contains(q, name) || len(q) >= minContainWord && strings.Contains(name, q) {
			m := get(i)
			m.contain()
			for _, w := range terms {
				if len(w) >= minIndexedWord && (strings.Contains(name, w) || strings.Contains(w, name)) {
					m.addTerms(w)
				}
			}
		}
	}

	// 词级包含，例如 "cuadernos" 与 "cuaderno"
	for _, w := range terms {
		if len(w) < minContainWord {
			continue
		}
		for _, iw := range s.words {
			if len(iw) < minContainWord || iw == w {
				continue
			}
			if !strings.Contains(w, iw) && !strings.Contains(iw, w) {
				continue
			}
			for _, i := range s.byWord[iw] {
				m := get(i)
				m.contain()
				m.addTerms(w)
			}
		}
	}

	// 数词也可能是商品名的一部分，例如 "Tres Marías"
	for _, w := range weak {
		for _, i := range s.byWord[w] {
			if m, ok := merged[i]; ok {
				m.Score += scoreWordRepeat
			}
		}
	}

	out := make([]Match, 0, len(merged))
	for _, m := range merged {
		sort.Strings(m.Terms)
		out = append(out, *m)
	}
	// 精确命中永远排第一
	sort.Slice(out, func(a, b int) bool {
		if out[a].Exact != out[b].Exact {
			return out[a].Exact
		}
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].position < out[b].position
	})
	return out
}

func (m *Match) contain() {
	if m.hits == 0 {
		m.Score += scoreContains
	} else {
		m.Score += scoreContainRepeat
	}
	m.hits++
}

func (m *Match) addTerms(terms ...string) {
	for _, t := range terms {
		found := false
		for _, have := range m.Terms {
			if have == t {
				found = true
				break
			}
		}
		if !found {
			m.Terms = append(m.Terms, t)
		}
	}
}

// LookupByBarcode 条码未登记时返回 NotFound
func (idx *Index) LookupByBarcode(code string) (models.Product, error) {
	s := idx.snap.Load()
	code = strings.TrimSpace(code)
	if i, ok := s.byBarcode[code]; ok {
		return s.products[i], nil
	}
	return models.Product{}, apperr.NotFound("catalog.LookupByBarcode", code)
}

// Get 按复合 ID 取商品
func (idx *Index) Get(id string) (models.Product, bool) {
	s := idx.snap.Load()
	i, ok := s.position[id]
	if !ok {
		return models.Product{}, false
	}
	return s.products[i], true
}

func (idx *Index) ByCategory(name string) []models.Product {
	s := idx.snap.Load()
	return s.pick(s.byCategory[logic.Normalize(name)])
}

func (idx *Index) BySubcategory(name string) []models.Product {
	s := idx.snap.Load()
	return s.pick(s.bySubcategory[logic.Normalize(name)])
}

// FindCategory 文本等于某个分类或子分类名时返回它的商品
func (idx *Index) FindCategory(text string) (string, []models.Product, bool) {
	s := idx.snap.Load()
	key := logic.Normalize(text)
	for _, name := range s.categories {
		if logic.Normalize(name) != key {
			continue
		}
		if ids, ok := s.byCategory[key]; ok {
			return name, s.pick(ids), true
		}
		return name, s.pick(s.bySubcategory[key]), true
	}
	return "", nil, false
}

func (s *snapshot) pick(ids []int) []models.Product {
	out := make([]models.Product, 0, len(ids))
	for _, i := range ids {
		out = append(out, s.products[i])
	}
	return out
}

// Categories 分类和子分类的显示名，按目录顺序
func (idx *Index) Categories() []string {
	s := idx.snap.Load()
	out := make([]string, len(s.categories))
	copy(out, s.categories)
	return out
}

func (idx *Index) Products() []models.Product {
	s := idx.snap.Load()
	out := make([]models.Product, len(s.products))
	copy(out, s.products)
	return out
}

func (idx *Index) Len() int {
	return len(idx.snap.Load().products)
}

// Summary 给 AI 兜底用的精简目录
func (idx *Index) Summary(limit int) string {
	s := idx.snap.Load()
	var b strings.Builder
	for i, p := range s.products {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprintf(&b, "- %s (%s): %s\n", p.Name, p.Category, logic.PriceLabel(p))
	}
	return b.String()
}
