package sqlfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"bare column", "email", "`email`"},
		{"dotted", "users.email", "`users`.`email`"},
		{"star", "*", "*"},
		{"dotted star", "users.*", "`users`.*"},
		{"already backtick quoted", "`email`", "`email`"},
		{"already double quoted", `"email"`, `"email"`},
		{"bracket quoted", "[email]", "[email]"},
		{"function call passes through", "COUNT(*)", "COUNT(*)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatIdentifier(tt.input))
		})
	}
}

func TestFormatAlias(t *testing.T) {
	assert.Equal(t, "`users`.`email` AS `addr`", FormatAlias(FormatIdentifier("users.email"), "addr"))
}

func TestQuoteString(t *testing.T) {
	assert.Equal(t, "'hello'", QuoteString("hello"))
	assert.Equal(t, "'it''s'", QuoteString("it's"))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"nil", nil, "NULL"},
		{"true", true, "1"},
		{"false", false, "0"},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"float", 3.5, "3.5"},
		{"string", "o'brien", "'o''brien'"},
		{"slice", []any{1, 2}, "''"},
		{"map", map[string]any{"a": 1}, "''"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatValue(tt.input))
		})
	}
}

func TestIsExpression(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"function call", "COUNT(id)", true},
		{"math operator", "price * qty", true},
		{"logical keyword", "status IS NULL", true},
		{"numeric literal", "42", true},
		{"string literal", "'pending'", true},
		{"top-level comma", "a, b", true},
		{"plain identifier", "email", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsExpression(tt.input))
		})
	}
}
