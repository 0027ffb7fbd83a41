// Package sqlfmt holds the pure, stateless SQL text formatting utilities of
// spec §4.3: identifier quoting, alias formatting, string literal quoting,
// and value-to-literal rendering. The teacher scatters this logic inline
// across query/join_builder.go and drivers/mysql/query.go (backtick quoting
// ad hoc at each call site); this package consolidates it into pure
// functions shared by every query sub-builder.
package sqlfmt

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

var functionCallRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*\s*\(.*\)$`)

// FormatIdentifier quotes raw with backticks, quoting each dot-separated
// segment independently. Identifiers already delimited with backticks,
// double quotes, or brackets on both ends pass through unchanged, as do
// bare function-call expressions like COUNT(*).
func FormatIdentifier(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	if raw == "*" {
		return raw
	}
	if isAlreadyQuoted(raw) {
		return raw
	}
	if functionCallRe.MatchString(raw) {
		return raw
	}
	parts := strings.Split(raw, ".")
	for i, p := range parts {
		if p == "*" || isAlreadyQuoted(p) {
			continue
		}
		parts[i] = quoteIdentifierSegment(p)
	}
	return strings.Join(parts, ".")
}

func isAlreadyQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	first, last := s[0], s[len(s)-1]
	switch {
	case first == '`' && last == '`':
		return true
	case first == '"' && last == '"':
		return true
	case first == '[' && last == ']':
		return true
	}
	return false
}

func quoteIdentifierSegment(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// FormatAlias produces "<expr> AS `<alias>`"; the alias is always quoted
// regardless of whether expr is.
func FormatAlias(expr, alias string) string {
	return fmt.Sprintf("%s AS %s", expr, quoteIdentifierSegment(alias))
}

// QuoteString single-quotes s, doubling any internal single quote.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

var (
	functionCallTokenRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*\s*\(`)
	mathOperatorRe       = regexp.MustCompile(`[+\-*/%]`)
	logicalKeywordRe     = regexp.MustCompile(`(?i)\b(AND|OR|NOT|CASE|WHEN|THEN|ELSE|END|IS|NULL|LIKE|BETWEEN|IN|EXISTS)\b`)
	numericLiteralRe     = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// IsExpression reports whether v looks like a SQL expression fragment
// rather than a literal value to be quoted: a function call, a math
// operator token, a logical keyword, a numeric/string literal, or a
// top-level comma, per spec §4.3.
func IsExpression(v string) bool {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return false
	}
	if numericLiteralRe.MatchString(trimmed) {
		return true
	}
	if strings.HasPrefix(trimmed, "'") && strings.HasSuffix(trimmed, "'") && len(trimmed) >= 2 {
		return true
	}
	if functionCallTokenRe.MatchString(trimmed) {
		return true
	}
	if mathOperatorRe.MatchString(trimmed) {
		return true
	}
	if logicalKeywordRe.MatchString(trimmed) {
		return true
	}
	if topLevelComma(trimmed) {
		return true
	}
	return false
}

func topLevelComma(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

// FormatValue renders v as a SQL literal: NULL for nil, 1/0 for bool,
// a bare numeric literal for integers and finite floats, and a quoted
// string otherwise. Arrays, maps, and other composite values render as an
// empty quoted string since they have no scalar SQL literal form.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if val {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(val)
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint8:
		return strconv.FormatUint(uint64(val), 10)
	case uint16:
		return strconv.FormatUint(uint64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return formatFloat(float64(val))
	case float64:
		return formatFloat(val)
	case string:
		return QuoteString(val)
	case []byte:
		return QuoteString(string(val))
	default:
		if isComposite(v) {
			return QuoteString("")
		}
		return QuoteString(fmt.Sprintf("%v", v))
	}
}

func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return QuoteString("")
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func isComposite(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.Struct, reflect.Func:
		return true
	}
	return false
}
