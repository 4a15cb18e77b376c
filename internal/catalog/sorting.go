package catalog

import (
	"cmp"
	"strings"
)

type Filter func(Product) bool

// Sorter is a three-way comparison in the style of slices.SortFunc.
type Sorter func(a, b Product) int

func All(Product) bool { return true }

func MinRating(r Rating) Filter {
	return func(p Product) bool { return p.rating >= r }
}

func OfKind(k Kind) Filter {
	return func(p Product) bool { return p.kind == k }
}

// And matches products accepted by every filter.
func And(filters ...Filter) Filter {
	return func(p Product) bool {
		for _, f := range filters {
			if f != nil && !f(p) {
				return false
			}
		}
		return true
	}
}

func ByID(a, b Product) int { return cmp.Compare(a.id, b.id) }

func ByName(a, b Product) int {
	if c := strings.Compare(strings.ToLower(a.name), strings.ToLower(b.name)); c != 0 {
		return c
	}
	return ByID(a, b)
}

func ByPrice(a, b Product) int {
	if c := a.price.Cmp(b.price); c != 0 {
		return c
	}
	return ByID(a, b)
}

// ByRating puts the best rated products first.
func ByRating(a, b Product) int {
	if c := cmp.Compare(b.rating, a.rating); c != 0 {
		return c
	}
	return ByID(a, b)
}

var sorters = map[string]Sorter{
	"id":     ByID,
	"name":   ByName,
	"price":  ByPrice,
	"rating": ByRating,
}

// SorterByName resolves a sort key; unknown or empty keys sort by id.
func SorterByName(name string) (Sorter, bool) {
	if name == "" {
		return ByID, true
	}
	s, ok := sorters[strings.ToLower(name)]
	if !ok {
		return ByID, false
	}
	return s, true
}
