package inventory

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/jhoicas/lotledger/internal/domain/entity"
)

// TokenLength longitud del token de confirmación.
const TokenLength = 6

// Alfabeto sin caracteres ambiguos (0/O, 1/I).
const tokenAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewToken genera un token de confirmación aleatorio.
func NewToken() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := 0; i < TokenLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate token: %w", err)
		}
		b.WriteByte(tokenAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// Fingerprint huella de lo que se va a confirmar: zonas, flujo, evidencia y líneas
// con su asignación. Cualquier cambio en estos datos invalida el token emitido.
func Fingerprint(d *entity.Draft) string {
	lines := make([]string, 0, len(d.Lines))
	for _, l := range d.Lines {
		parts := make([]string, 0, len(l.Allocation))
		for _, a := range l.Allocation {
			parts = append(parts, a.LotID+"="+a.Quantity.String())
		}
		sort.Strings(parts)
		lines = append(lines, l.ProductID+":"+l.RequiredQuantity.String()+"["+strings.Join(parts, ",")+"]")
	}
	sort.Strings(lines)

	h, _ := blake2b.New256(nil)
	fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s\n", d.ID, d.Flow, d.Zone, d.DestinationZone, d.EvidenceRef, d.Notes)
	for _, l := range lines {
		h.Write([]byte(l))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
