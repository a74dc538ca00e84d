// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

// Package keyword implements recursive keyword matching over decoded JSON
// values. It backs the keyword query parameter of the event search API:
// an event matches when the keyword appears anywhere in its record,
// including arbitrarily nested objects and arrays inside event details.
package keyword

import (
	"strconv"
	"strings"
)

// Matches reports whether keyword occurs anywhere within value.
//
// Value is expected to be a decoded JSON tree (map[string]any, []any,
// string, float64, bool, nil). Matching rules per node type:
//
//   - string: case-sensitive substring match
//   - number: match when the keyword parses as a number equal to the value,
//     or when the keyword is a substring of the number's decimal form
//   - bool: match against "true" or "false"
//   - object: match any key or any value
//   - array: match any element
//   - nil: never matches
//
// An empty keyword matches nothing.
func Matches(value any, keyword string) bool {
	if keyword == "" {
		return false
	}
	return matches(value, keyword)
}

func matches(value any, keyword string) bool {
	switch v := value.(type) {
	case string:
		return strings.Contains(v, keyword)
	case float64:
		return numberMatches(v, keyword)
	case int:
		return numberMatches(float64(v), keyword)
	case int64:
		return numberMatches(float64(v), keyword)
	case bool:
		return strconv.FormatBool(v) == keyword
	case map[string]any:
		for key, val := range v {
			if strings.Contains(key, keyword) || matches(val, keyword) {
				return true
			}
		}
		return false
	case []any:
		for _, item := range v {
			if matches(item, keyword) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// numberMatches compares a numeric node against the keyword. Exact numeric
// equality is tried first so that "2" matches 2.0; substring match on the
// decimal form covers partial queries like "19" against 1920.
func numberMatches(n float64, keyword string) bool {
	if parsed, err := strconv.ParseFloat(keyword, 64); err == nil && parsed == n {
		return true
	}
	return strings.Contains(strconv.FormatFloat(n, 'f', -1, 64), keyword)
}
