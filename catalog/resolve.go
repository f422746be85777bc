package catalog

// 编号选择最多列出的候选数
const MaxChoices = 9

// Resolution 把搜索结果分成直接确认的商品或需要用户挑选的候选
type Resolution struct {
	Items   []Match
	Choices []Match
}

func (r Resolution) Empty() bool {
	return len(r.Items) == 0 && len(r.Choices) == 0
}

// Resolve 按名次贪心认领查询词：词不相交的结果视为一句话里的多个商品，
// 同分又共享查询词的结果视为歧义，交给用户编号选择。
func Resolve(matches []Match) Resolution {
	if len(matches) == 0 {
		return Resolution{}
	}
	if matches[0].Exact {
		return Resolution{Items: matches[:1]}
	}

	claimed := map[string]bool{}
	var res Resolution
	for i, m := range matches {
		if len(m.Terms) == 0 || overlapsSet(m.Terms, claimed) {
			continue
		}
		group := []Match{m}
		for _, other := range matches[i+1:] {
			if other.Score != m.Score || overlapsSet(other.Terms, claimed) {
				continue
			}
			if overlaps(m.Terms, other.Terms) {
				group = append(group, other)
			}
		}
		if len(group) > 1 {
			if len(group) > MaxChoices {
				group = group[:MaxChoices]
			}
			return Resolution{Choices: group}
		}
		res.Items = append(res.Items, m)
		for _, t := range m.Terms {
			claimed[t] = true
		}
	}
	return res
}

func overlapsSet(terms []string, set map[string]bool) bool {
	for _, t := range terms {
		if set[t] {
			return true
		}
	}
	return false
}

func overlaps(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
