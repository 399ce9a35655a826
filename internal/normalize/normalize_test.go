package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rezonia/nfe-auditor/internal/normalize"
)

func TestStripNonDigits(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "dotted NCM", input: "8517.12.31", expected: "85171231"},
		{name: "digits only", input: "5102", expected: "5102"},
		{name: "empty", input: "", expected: ""},
		{name: "no digits", input: "abc-./", expected: ""},
		{name: "mixed", input: " 51.02-x", expected: "5102"},
		{name: "unicode letters", input: "númeró12", expected: "12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalize.StripNonDigits(tt.input))
		})
	}
}

func TestPadCode(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{name: "pads short code", input: "102", width: 8, expected: "00000102"},
		{name: "exact width unchanged", input: "85171231", width: 8, expected: "85171231"},
		{name: "longer than width unchanged", input: "123456789", width: 8, expected: "123456789"},
		{name: "empty pads to zeros", input: "", width: 4, expected: "0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalize.PadCode(tt.input, tt.width))
		})
	}
}

func TestCode(t *testing.T) {
	assert.Equal(t, "85171231", normalize.Code("8517.12.31", normalize.NCMWidth))
	assert.Equal(t, "0000", normalize.Code("0", normalize.CFOPWidth))

	// Empty input stays empty instead of padding to zeros.
	assert.Equal(t, "", normalize.Code("", normalize.NCMWidth))
	assert.Equal(t, "", normalize.Code("---", normalize.NCMWidth))
}

// Normalization is idempotent: a second pass over an already-normalized code
// changes nothing.
func TestCode_Idempotent(t *testing.T) {
	inputs := []string{"8517.12.31", "102", "", "5102", "00000000"}
	for _, in := range inputs {
		once := normalize.Code(in, normalize.NCMWidth)
		twice := normalize.Code(once, normalize.NCMWidth)
		assert.Equal(t, once, twice, "input %q", in)
	}
}
