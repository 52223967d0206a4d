package inventory

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/lotledger/internal/domain/entity"
)

func TestNewToken_FormatoYAleatoriedad(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		tok, err := NewToken()
		require.NoError(t, err)
		require.Len(t, tok, TokenLength)
		for _, r := range tok {
			assert.True(t, strings.ContainsRune(tokenAlphabet, r), "carácter %q fuera del alfabeto", r)
		}
		seen[tok] = true
	}
	assert.Greater(t, len(seen), 45)
}

func draftForFingerprint() *entity.Draft {
	return &entity.Draft{
		ID:   "d1",
		Flow: entity.MovementConsumption,
		Zone: entity.ZoneGeneral,
		Lines: []entity.DraftLine{
			{ProductID: "P1", RequiredQuantity: decimal.NewFromInt(8), Allocation: []entity.AllocatedLot{
				{LotID: "L1", Quantity: decimal.NewFromInt(5)},
				{LotID: "L2", Quantity: decimal.NewFromInt(3)},
			}},
			{ProductID: "P2", RequiredQuantity: decimal.NewFromInt(1), Allocation: []entity.AllocatedLot{
				{LotID: "L9", Quantity: decimal.NewFromInt(1)},
			}},
		},
	}
}

func TestFingerprint_IgnoraOrdenYDetectaCambios(t *testing.T) {
	d := draftForFingerprint()
	base := Fingerprint(d)

	reordered := draftForFingerprint()
	reordered.Lines[0], reordered.Lines[1] = reordered.Lines[1], reordered.Lines[0]
	reordered.Lines[1].Allocation[0], reordered.Lines[1].Allocation[1] = reordered.Lines[1].Allocation[1], reordered.Lines[1].Allocation[0]
	assert.Equal(t, base, Fingerprint(reordered))

	changed := draftForFingerprint()
	changed.Lines[0].Allocation[1].Quantity = decimal.NewFromInt(4)
	assert.NotEqual(t, base, Fingerprint(changed))

	evidence := draftForFingerprint()
	evidence.EvidenceRef = "s3://remisiones/r1.jpg"
	assert.NotEqual(t, base, Fingerprint(evidence))
}
