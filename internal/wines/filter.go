package wines

import (
	"sort"
	"strings"

	"github.com/angelmondragon/vinoteca-backend/pkg/enums"
)

type SortKey string

const (
	SortDefault   SortKey = ""
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
	SortNameAsc   SortKey = "name-asc"
	SortNameDesc  SortKey = "name-desc"
	SortNewest    SortKey = "newest"
)

// ParseSortKey maps a query value to a sort key; unknown values fall back to the default order.
func ParseSortKey(value string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(value))); k {
	case SortPriceAsc, SortPriceDesc, SortNameAsc, SortNameDesc, SortNewest:
		return k
	default:
		return SortDefault
	}
}

// FilterState is the catalog filter descriptor. The zero value matches everything.
type FilterState struct {
	Types    []enums.WineType
	Wineries []string
	Regions  []string
	MinPrice *float64
	MaxPrice *float64
	Featured bool
	InStock  bool
	Sort     SortKey
}

// Reset clears every filter.
func (f *FilterState) Reset() {
	*f = FilterState{}
}

// IsZero reports whether no filter or sort is set.
func (f FilterState) IsZero() bool {
	return len(f.Types) == 0 && len(f.Wineries) == 0 && len(f.Regions) == 0 &&
		f.MinPrice == nil && f.MaxPrice == nil && !f.Featured && !f.InStock && f.Sort == SortDefault
}

// Apply returns the wines matching f in the requested order. The input is not modified.
// Price bounds compare against the tax-inclusive price shown to customers.
func (f FilterState) Apply(items []Wine) []Wine {
	out := make([]Wine, 0, len(items))
	for _, w := range items {
		if f.matches(w) {
			out = append(out, w)
		}
	}
	f.sort(out)
	return out
}

func (f FilterState) matches(w Wine) bool {
	if len(f.Types) > 0 && !containsType(f.Types, w.Type) {
		return false
	}
	if len(f.Wineries) > 0 && !containsFold(f.Wineries, w.Winery) {
		return false
	}
	if len(f.Regions) > 0 && !containsFold(f.Regions, w.Region) {
		return false
	}
	price := w.PriceWithTax()
	if f.MinPrice != nil && price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && price > *f.MaxPrice {
		return false
	}
	if f.Featured && !w.Featured {
		return false
	}
	if f.InStock && !w.InStock() {
		return false
	}
	return true
}

func (f FilterState) sort(items []Wine) {
	var less func(a, b Wine) bool
	switch f.Sort {
	case SortPriceAsc:
		less = func(a, b Wine) bool { return a.PriceWithTax() < b.PriceWithTax() }
	case SortPriceDesc:
		less = func(a, b Wine) bool { return a.PriceWithTax() > b.PriceWithTax() }
	case SortNameAsc:
		less = func(a, b Wine) bool { return strings.ToLower(a.DisplayName()) < strings.ToLower(b.DisplayName()) }
	case SortNameDesc:
		less = func(a, b Wine) bool { return strings.ToLower(a.DisplayName()) > strings.ToLower(b.DisplayName()) }
	case SortNewest:
		less = func(a, b Wine) bool { return a.CreatedAt.After(b.CreatedAt) }
	default:
		return
	}
	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })
}

func containsType(types []enums.WineType, t enums.WineType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(strings.TrimSpace(candidate), strings.TrimSpace(v)) {
			return true
		}
	}
	return false
}
