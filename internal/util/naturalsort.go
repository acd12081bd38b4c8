package util

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// chunk is either a run of digits (num) or a run of anything else (text).
type chunk struct {
	text  string
	num   int
	isNum bool
}

func chunks(s string) []chunk {
	var out []chunk
	runes := []rune(s)
	for i := 0; i < len(runes); {
		j := i
		digit := unicode.IsDigit(runes[i])
		for j < len(runes) && unicode.IsDigit(runes[j]) == digit {
			j++
		}
		part := string(runes[i:j])
		if digit {
			n, err := strconv.Atoi(part)
			if err == nil {
				out = append(out, chunk{num: n, isNum: true})
				i = j
				continue
			}
		}
		out = append(out, chunk{text: strings.ToLower(part)})
		i = j
	}
	return out
}

// NaturalLess orders "Episode 2" before "Episode 10". Comparison is
// case-insensitive and numbers sort before text at the same position.
func NaturalLess(a, b string) bool {
	ca, cb := chunks(a), chunks(b)
	for i := 0; i < len(ca) && i < len(cb); i++ {
		x, y := ca[i], cb[i]
		switch {
		case x.isNum && !y.isNum:
			return true
		case !x.isNum && y.isNum:
			return false
		case x.isNum && x.num != y.num:
			return x.num < y.num
		case !x.isNum && x.text != y.text:
			return x.text < y.text
		}
	}
	return len(ca) < len(cb)
}

// SortNatural sorts items in natural order of key.
func SortNatural[T any](items []T, key func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		return NaturalLess(key(items[i]), key(items[j]))
	})
}
