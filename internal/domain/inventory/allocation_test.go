package inventory

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/internal/domain/entity"
)

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func qty(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func qp(s string) *decimal.Decimal {
	d := qty(s)
	return &d
}

// stockP L1 vence 2024-01-01 con 5; L2 vence 2024-06-01 con 10. Se pasan en
// desorden para comprobar que Recommend ordena.
func stockP() []entity.Lot {
	return []entity.Lot{
		{ID: "L2", ProductID: "P", ExpirationDate: day("2024-06-01"), Zone: entity.ZoneGeneral, AvailableQuantity: qty("10")},
		{ID: "L1", ProductID: "P", ExpirationDate: day("2024-01-01"), Zone: entity.ZoneGeneral, AvailableQuantity: qty("5")},
	}
}

func TestRecommend_CubreConLotesQueVencenPrimero(t *testing.T) {
	rec, err := Recommend("P", stockP(), qty("7"), 3)

	require.NoError(t, err)
	assert.True(t, rec.FullyCovered)
	require.Len(t, rec.Lines, 2)
	assert.Equal(t, "L1", rec.Lines[0].LotID)
	assert.True(t, rec.Lines[0].Quantity.Equal(qty("5")))
	assert.Equal(t, "L2", rec.Lines[1].LotID)
	assert.True(t, rec.Lines[1].Quantity.Equal(qty("2")))
	assert.True(t, rec.Shortfall().IsZero())
}

func TestRecommend_StockInsuficienteDevuelveParcial(t *testing.T) {
	rec, err := Recommend("P", stockP(), qty("20"), 3)

	var short *domain.InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.False(t, short.LotCapReached)
	assert.True(t, short.Covered.Equal(qty("15")))

	assert.False(t, rec.FullyCovered)
	require.Len(t, rec.Lines, 2)
	assert.True(t, rec.Lines[0].Quantity.Equal(qty("5")))
	assert.True(t, rec.Lines[1].Quantity.Equal(qty("10")))
	assert.True(t, rec.Shortfall().Equal(qty("5")))
}

func TestRecommend_LimiteDeLotes(t *testing.T) {
	lots := append(stockP(), entity.Lot{ID: "L3", ProductID: "P", ExpirationDate: day("2024-09-01"), AvailableQuantity: qty("50")})

	rec, err := Recommend("P", lots, qty("20"), 2)

	var short *domain.InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.True(t, short.LotCapReached)
	assert.Len(t, rec.Lines, 2)
}

func TestRecommend_CantidadNoPositiva(t *testing.T) {
	_, err := Recommend("P", stockP(), decimal.Zero, 3)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRecommend_SinVencimientoAlFinal(t *testing.T) {
	lots := []entity.Lot{
		{ID: "SIN", AvailableQuantity: qty("10"), ProductionDate: day("2020-01-01")},
		{ID: "TARDE", ExpirationDate: day("2030-01-01"), AvailableQuantity: qty("1")},
		{ID: "VACIO", ExpirationDate: day("2019-01-01"), AvailableQuantity: decimal.Zero},
	}

	rec, err := Recommend("P", lots, qty("3"), 3)

	require.NoError(t, err)
	require.Len(t, rec.Lines, 2)
	assert.Equal(t, "TARDE", rec.Lines[0].LotID)
	assert.Equal(t, "SIN", rec.Lines[1].LotID)
}

func TestSortFEFO_DesempataPorProduccionYCreacion(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	lots := []entity.Lot{
		{ID: "C", ExpirationDate: day("2025-01-01"), ProductionDate: day("2024-02-01"), CreatedAt: base},
		{ID: "B", ExpirationDate: day("2025-01-01"), ProductionDate: day("2024-01-01"), CreatedAt: base.Add(time.Hour)},
		{ID: "A", ExpirationDate: day("2025-01-01"), ProductionDate: day("2024-01-01"), CreatedAt: base},
	}

	SortFEFO(lots)

	assert.Equal(t, []string{"A", "B", "C"}, []string{lots[0].ID, lots[1].ID, lots[2].ID})
}

func TestRecommend_OrdenFEFOAleatorio(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for iter := 0; iter < 200; iter++ {
		n := 1 + rnd.Intn(8)
		lots := make([]entity.Lot, 0, n)
		for i := 0; i < n; i++ {
			l := entity.Lot{ID: string(rune('A' + i)), AvailableQuantity: decimal.NewFromInt(int64(rnd.Intn(6)))}
			if rnd.Intn(4) > 0 {
				exp := start.AddDate(0, 0, rnd.Intn(400))
				l.ExpirationDate = &exp
			}
			lots = append(lots, l)
		}
		byID := make(map[string]entity.Lot, n)
		for _, l := range lots {
			byID[l.ID] = l
		}

		rec, _ := Recommend("P", lots, decimal.NewFromInt(int64(1+rnd.Intn(20))), 1+rnd.Intn(5))

		for i, line := range rec.Lines {
			assert.True(t, line.Quantity.IsPositive(), "iter %d: lote %s con cantidad cero", iter, line.LotID)
			assert.True(t, byID[line.LotID].AvailableQuantity.IsPositive())
			if i == 0 {
				continue
			}
			prev := byID[rec.Lines[i-1].LotID].ExpirationDate
			cur := byID[line.LotID].ExpirationDate
			assert.LessOrEqual(t, compareDates(prev, cur), 0, "iter %d: orden FEFO roto", iter)
		}
	}
}

func availableP() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{"L1": qty("5"), "L2": qty("10")}
}

func TestValidate_SumaExacta(t *testing.T) {
	res := Validate("P", []AllocationEntry{{LotID: "L1", Quantity: qp("5")}, {LotID: "L2", Quantity: qp("3")}}, qty("8"), availableP())

	assert.True(t, res.Valid())
	assert.NoError(t, res.Err())
	assert.True(t, res.Total.Equal(qty("8")))
}

func TestValidate_SuperaDisponible(t *testing.T) {
	res := Validate("P", []AllocationEntry{{LotID: "L1", Quantity: qp("6")}}, qty("6"), availableP())

	require.Len(t, res.Violations, 1)
	assert.Equal(t, domain.RuleExceedsAvailable, res.Violations[0].Rule)
	assert.Equal(t, "L1", res.Violations[0].LotID)
	var verr *domain.ValidationError
	assert.ErrorAs(t, res.Err(), &verr)
	assert.ErrorIs(t, res.Err(), domain.ErrInvalidInput)
}

func TestValidate_CantidadFaltanteYNegativa(t *testing.T) {
	res := Validate("P", []AllocationEntry{
		{LotID: "L1", Quantity: nil},
		{LotID: "L2", Quantity: qp("-1")},
		{LotID: "L2", Quantity: qp("0")},
	}, qty("8"), availableP())

	require.Len(t, res.Violations, 2)
	assert.Equal(t, domain.RuleQuantityMissing, res.Violations[0].Rule)
	assert.Equal(t, 0, res.Violations[0].Line)
	assert.Equal(t, domain.RuleQuantityNegative, res.Violations[1].Rule)
	assert.Equal(t, 1, res.Violations[1].Line)
}

func TestValidate_FusionaLotesRepetidos(t *testing.T) {
	res := Validate("P", []AllocationEntry{
		{LotID: "L2", Quantity: qp("4")},
		{LotID: "L1", Quantity: qp("2")},
		{LotID: "L2", Quantity: qp("2")},
	}, qty("8"), availableP())

	require.True(t, res.Valid())
	require.Len(t, res.Merged, 2)
	assert.Equal(t, "L2", res.Merged[0].LotID)
	assert.True(t, res.Merged[0].Quantity.Equal(qty("6")))
}

func TestValidate_FusionQueSuperaDisponible(t *testing.T) {
	res := Validate("P", []AllocationEntry{
		{LotID: "L1", Quantity: qp("3")},
		{LotID: "L1", Quantity: qp("3")},
	}, qty("6"), availableP())

	require.Len(t, res.Violations, 1)
	assert.Equal(t, domain.RuleExceedsAvailable, res.Violations[0].Rule)
	assert.Equal(t, 0, res.Violations[0].Line)
}

func TestValidate_ToleranciaDeRedondeo(t *testing.T) {
	ok := Validate("P", []AllocationEntry{{LotID: "L1", Quantity: qp("4.995")}}, qty("5"), availableP())
	assert.True(t, ok.Valid())

	over := Validate("P", []AllocationEntry{{LotID: "L1", Quantity: qp("4.98")}}, qty("5"), availableP())
	require.Len(t, over.Violations, 1)
	assert.Equal(t, domain.RuleSumMismatch, over.Violations[0].Rule)
}

func TestValidate_ProvisionalNoConsultaSaldo(t *testing.T) {
	res := Validate("P", []AllocationEntry{{LotID: "nuevo", Quantity: qp("100"), Provisional: true}}, qty("100"), nil)

	assert.True(t, res.Valid())
}

func TestValidate_LoteSinIndicar(t *testing.T) {
	res := Validate("P", []AllocationEntry{{Quantity: qp("5")}}, qty("5"), availableP())

	require.Len(t, res.Violations, 1)
	assert.Equal(t, domain.RuleLotRequired, res.Violations[0].Rule)
}

// La suma de toda asignación aceptada coincide con la requerida, y toda asignación
// desviada más allá de la tolerancia se rechaza.
func TestValidate_PropiedadSumaExactaAleatoria(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	available := map[string]decimal.Decimal{"L1": qty("1000"), "L2": qty("1000"), "L3": qty("1000")}
	lotIDs := []string{"L1", "L2", "L3"}

	for iter := 0; iter < 500; iter++ {
		n := 1 + rnd.Intn(4)
		entries := make([]AllocationEntry, 0, n)
		sum := decimal.Zero
		for i := 0; i < n; i++ {
			q := decimal.New(int64(rnd.Intn(10000)), -2)
			sum = sum.Add(q)
			entries = append(entries, AllocationEntry{LotID: lotIDs[rnd.Intn(len(lotIDs))], Quantity: &q})
		}

		var required decimal.Decimal
		switch rnd.Intn(3) {
		case 0:
			required = sum
		case 1:
			required = sum.Add(decimal.New(int64(2+rnd.Intn(500)), -2))
		default:
			required = sum.Sub(decimal.New(int64(2+rnd.Intn(500)), -2))
		}

		res := Validate("P", entries, required, available)
		diff := res.Total.Sub(required).Abs()
		if res.Valid() {
			assert.True(t, diff.LessThanOrEqual(SumTolerance), "iter %d: aceptada con diferencia %s", iter, diff)
		} else {
			assert.True(t, diff.GreaterThan(SumTolerance), "iter %d: rechazada sin diferencia", iter)
		}
		assert.True(t, res.Total.Equal(sum), "iter %d: total %s != %s", iter, res.Total, sum)
	}
}

func TestValidate_MasDecimalesQueElLibro(t *testing.T) {
	res := Validate("P", []AllocationEntry{
		{LotID: "L1", Quantity: qp("0.00005")},
		{LotID: "L2", Quantity: qp("0.99995")},
		{LotID: "L2", Quantity: qp("2.50000")},
	}, qty("3.5"), availableP())

	require.Len(t, res.Violations, 2)
	assert.Equal(t, domain.RuleQuantityScale, res.Violations[0].Rule)
	assert.Equal(t, 0, res.Violations[0].Line)
	assert.Equal(t, domain.RuleQuantityScale, res.Violations[1].Rule)
	assert.Equal(t, 1, res.Violations[1].Line)
}

func TestWithinScale(t *testing.T) {
	assert.True(t, WithinScale(qty("1.0001")))
	assert.True(t, WithinScale(qty("1.00010")))
	assert.True(t, WithinScale(qty("12")))
	assert.False(t, WithinScale(qty("1.00005")))
	assert.False(t, WithinScale(qty("-0.00001")))
}

func TestRecommend_CantidadConDemasiadosDecimales(t *testing.T) {
	_, err := Recommend("P", stockP(), qty("1.00005"), 0)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, domain.RuleQuantityScale, verr.Violations[0].Rule)
}
