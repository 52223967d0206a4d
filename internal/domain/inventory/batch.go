package inventory

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var batchFolder = cases.Fold()

// NormalizeBatch clave de comparación del número de lote: NFKC, sin distinguir
// mayúsculas y con los espacios internos colapsados.
func NormalizeBatch(batch string) string {
	s := norm.NFKC.String(batch)
	s = batchFolder.String(s)
	return strings.Join(strings.Fields(s), " ")
}
