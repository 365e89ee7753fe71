package strings

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCell(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{name: "short value", input: "hello", width: 10, expected: "hello"},
		{name: "exact width", input: "hello", width: 5, expected: "hello"},
		{name: "cut", input: "Echo: hello world", width: 10, expected: "Echo: h..."},
		{name: "newlines", input: "first line\nsecond line", width: 40, expected: "first line second line"},
		{name: "whitespace runs", input: "  a \t\t b\r\n c  ", width: 40, expected: "a b c"},
		{name: "multi-byte runes", input: "日本語テスト", width: 5, expected: "日本..."},
		{name: "empty", input: "", width: 10, expected: ""},
		{name: "width raised", input: "hello", width: 0, expected: "h..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cell(tt.input, tt.width)
			assert.Equal(t, tt.expected, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
