package types

import (
	"math"
	"strconv"
	"strings"
)

// ParsePrice extracts a numeric price from display text such as "HK$1,234.50".
// For a range ("HK$100 - HK$200") only the lower bound is read. Commas are
// thousands separators. It returns nil when no number can be read.
func ParsePrice(text string) *float64 {
	if text == "" {
		return nil
	}
	if i := strings.Index(text, "-"); i >= 0 {
		text = text[:i]
	}

	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}

	num := leadingNumber(b.String())
	if num == "" {
		return nil
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

// leadingNumber returns the longest prefix of s of the form digits[.digits],
// or "" when that prefix contains no digit.
func leadingNumber(s string) string {
	end, digits, dot := 0, 0, false
	for end < len(s) {
		c := s[end]
		if c == '.' {
			if dot {
				break
			}
			dot = true
		} else {
			digits++
		}
		end++
	}
	if digits == 0 {
		return ""
	}
	return strings.TrimSuffix(s[:end], ".")
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }
