package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBatch(t *testing.T) {
	cases := map[string]string{
		"L-2024-01":    "l-2024-01",
		"  lote   A1 ": "lote a1",
		"ＬＯＴＥ１":        "lote1",
		"AB\tCD\nEF":   "ab cd ef",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeBatch(in), "entrada %q", in)
	}
}

func TestNormalizeBatch_MismaClave(t *testing.T) {
	assert.Equal(t, NormalizeBatch("lt-0042"), NormalizeBatch("LT-0042 "))
}
