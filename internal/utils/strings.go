// Package utils holds small helpers shared by the service packages.
package utils

import "strings"

// ParseSymbols splits a comma-separated symbol list. Values are trimmed and
// upper-cased; empty entries and repeats are dropped, first occurrence wins.
// Returns nil when nothing remains.
func ParseSymbols(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var result []string
	seen := make(map[string]bool)
	for _, v := range strings.Split(s, ",") {
		symbol := strings.ToUpper(strings.TrimSpace(v))
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true
		result = append(result, symbol)
	}

	return result
}
