package resource

import (
	"sort"
	"strconv"
	"strings"
)

// Bundle maps resource kinds to amounts. A nil Bundle is empty.
type Bundle map[Kind]int

// Of builds a bundle from alternating kind/amount pairs.
func Of(pairs ...any) Bundle {
	b := make(Bundle, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		k, _ := pairs[i].(Kind)
		n, _ := pairs[i+1].(int)
		b[k] += n
	}
	return b
}

func (b Bundle) Total() int {
	total := 0
	for _, n := range b {
		total += n
	}
	return total
}

func (b Bundle) Clone() Bundle {
	out := make(Bundle, len(b))
	for k, n := range b {
		if n != 0 {
			out[k] = n
		}
	}
	return out
}

// Valid reports whether every entry is a real kind with a non-negative amount.
func (b Bundle) Valid() bool {
	for k, n := range b {
		if !k.Valid() || n < 0 {
			return false
		}
	}
	return true
}

// Contains reports whether b holds at least every amount in other.
func (b Bundle) Contains(other Bundle) bool {
	for k, n := range other {
		if b[k] < n {
			return false
		}
	}
	return true
}

func (b Bundle) Add(other Bundle) {
	for k, n := range other {
		b[k] += n
	}
}

// Largest returns the kind with the highest amount, ties broken by Kinds order.
func (b Bundle) Largest() (Kind, int) {
	best, bestN := Any, 0
	for _, k := range Kinds {
		if b[k] > bestN {
			best, bestN = k, b[k]
		}
	}
	return best, bestN
}

func (b Bundle) String() string {
	keys := make([]Kind, 0, len(b))
	for k, n := range b {
		if n != 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k.String()+":"+strconv.Itoa(b[k]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
