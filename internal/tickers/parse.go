// Package tickers turns user input, the exchange registry and the bundled
// industry list into the codes a scan should cover.
package tickers

import (
	"strings"
	"unicode"
)

// ParseCodes splits free text on whitespace and commas, upper-cases each
// token and drops repeats, keeping first-seen order.
func ParseCodes(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == '、'
	})
	return dedupe(fields)
}

func dedupe(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func isStockCode(code string) bool {
	if len(code) != 4 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
