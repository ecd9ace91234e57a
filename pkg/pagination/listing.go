package pagination

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Query describes an in-memory page request.
type Query struct {
	Search   string
	Fields   []string
	Page     int
	PageSize int
}

// Page is one slice of a filtered collection plus its metadata.
type Page[T any] struct {
	Items       []T  `json:"items"`
	CurrentPage int  `json:"current_page"`
	TotalPages  int  `json:"total_pages"`
	TotalCount  int  `json:"total_count"`
	PageSize    int  `json:"page_size"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// Paginate filters items by q.Search over q.Fields and returns the requested page.
// Out-of-range pages clamp to the nearest valid page.
func Paginate[T any](items []T, q Query) Page[T] {
	size := NormalizeLimit(q.PageSize)
	filtered := Filter(items, q.Search, q.Fields)

	total := len(filtered)
	pages := (total + size - 1) / size
	page := clampPage(q.Page, pages)

	result := Page[T]{
		Items:       []T{},
		CurrentPage: page,
		TotalPages:  pages,
		TotalCount:  total,
		PageSize:    size,
	}
	if pages == 0 {
		return result
	}

	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	result.Items = append(result.Items, filtered[start:end]...)
	result.HasNext = page < pages
	result.HasPrevious = page > 1
	return result
}

func clampPage(page, pages int) int {
	if page < 1 {
		page = 1
	}
	if pages > 0 && page > pages {
		page = pages
	}
	if pages == 0 {
		page = 1
	}
	return page
}

// Filter keeps the items where any of fields contains term, case-insensitively.
// Fields resolve by json tag first, then by Go field name. Slices match when any
// element matches; numbers match on their string form.
func Filter[T any](items []T, term string, fields []string) []T {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" || len(fields) == 0 {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if matches(reflect.ValueOf(item), needle, fields) {
			out = append(out, item)
		}
	}
	return out
}

func matches(v reflect.Value, needle string, fields []string) bool {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}
	for _, name := range fields {
		field, ok := lookupField(v, name)
		if !ok {
			continue
		}
		if valueContains(field, needle) {
			return true
		}
	}
	return false
}

func lookupField(v reflect.Value, name string) (reflect.Value, bool) {
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, false
		}
		got := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
		return got, got.IsValid()
	case reflect.Struct:
		idx, ok := fieldIndex(v.Type(), name)
		if !ok {
			return reflect.Value{}, false
		}
		return v.FieldByIndex(idx), true
	}
	return reflect.Value{}, false
}

var fieldIndexCache sync.Map

type fieldKey struct {
	t    reflect.Type
	name string
}

func fieldIndex(t reflect.Type, name string) ([]int, bool) {
	key := fieldKey{t: t, name: name}
	if cached, ok := fieldIndexCache.Load(key); ok {
		idx := cached.([]int)
		return idx, idx != nil
	}
	var found []int
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() {
			continue
		}
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == name || (found == nil && strings.EqualFold(f.Name, name)) {
			found = f.Index
			if tag == name {
				break
			}
		}
	}
	fieldIndexCache.Store(key, found)
	return found, found != nil
}

func valueContains(v reflect.Value, needle string) bool {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if valueContains(v.Index(i), needle) {
				return true
			}
		}
		return false
	case reflect.String:
		return strings.Contains(strings.ToLower(v.String()), needle)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Bool:
		return strings.Contains(strings.ToLower(fmt.Sprint(v.Interface())), needle)
	}
	return false
}

// Paginator keeps listing state between interactions: the loaded collection,
// the search term and the current page.
type Paginator[T any] struct {
	mu       sync.Mutex
	items    []T
	fields   []string
	search   string
	page     int
	pageSize int
}

func NewPaginator[T any](pageSize int, fields ...string) *Paginator[T] {
	return &Paginator[T]{
		fields:   fields,
		page:     1,
		pageSize: NormalizeLimit(pageSize),
	}
}

// SetItems replaces the collection and re-clamps the current page.
func (p *Paginator[T]) SetItems(items []T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = items
	p.page = p.resultLocked().CurrentPage
}

// SetSearch changes the search term and goes back to the first page.
func (p *Paginator[T]) SetSearch(term string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.search = term
	p.page = 1
}

func (p *Paginator[T]) SetPage(page int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.page = page
	p.page = p.resultLocked().CurrentPage
}

func (p *Paginator[T]) Search() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.search
}

func (p *Paginator[T]) CurrentPage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

func (p *Paginator[T]) Result() Page[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resultLocked()
}

func (p *Paginator[T]) resultLocked() Page[T] {
	return Paginate(p.items, Query{
		Search:   p.search,
		Fields:   p.fields,
		Page:     p.page,
		PageSize: p.pageSize,
	})
}
