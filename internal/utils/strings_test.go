package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSymbols(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty string", input: "", expected: nil},
		{name: "whitespace only", input: "   ", expected: nil},
		{name: "only commas", input: ",,,", expected: nil},
		{name: "single value", input: "KO", expected: []string{"KO"}},
		{name: "varied spacing", input: "KO,  PEP , XOM", expected: []string{"KO", "PEP", "XOM"}},
		{name: "lower case", input: "ko,pep", expected: []string{"KO", "PEP"}},
		{name: "duplicates", input: "KO,pep,ko,PEP", expected: []string{"KO", "PEP"}},
		{name: "trailing comma", input: "KO,PEP,", expected: []string{"KO", "PEP"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseSymbols(tt.input))
		})
	}
}
