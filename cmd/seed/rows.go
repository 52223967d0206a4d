package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/lotledger/internal/application/inventory"
	"github.com/jhoicas/lotledger/internal/domain/entity"
)

type row struct {
	ProductID string
	Name      string
	Class     string
	Zone      entity.WarehouseZone
	Lot       inventory.OpeningLot
}

const columns = 8

// parseRows lee el CSV. Si el contenido no es UTF-8 válido se decodifica como
// ISO-8859-1. La primera fila se descarta si es encabezado.
func parseRows(raw []byte) ([]row, error) {
	var src io.Reader = bytes.NewReader(raw)
	if !utf8.Valid(raw) {
		src = transform.NewReader(src, charmap.ISO8859_1.NewDecoder())
	}
	r := csv.NewReader(src)
	r.Comma = ';'
	r.FieldsPerRecord = columns
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	var out []row
	for i, rec := range records {
		if i == 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "product_id") {
			continue
		}
		parsed, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("fila %d: %w", i+1, err)
		}
		out = append(out, parsed)
	}
	return out, nil
}

func parseRecord(rec []string) (row, error) {
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	qty, err := decimal.NewFromString(strings.ReplaceAll(rec[6], ",", "."))
	if err != nil {
		return row{}, fmt.Errorf("cantidad %q: %w", rec[6], err)
	}
	prod, err := parseOptionalDate(rec[4])
	if err != nil {
		return row{}, err
	}
	exp, err := parseOptionalDate(rec[5])
	if err != nil {
		return row{}, err
	}
	return row{
		ProductID: rec[0],
		Name:      rec[1],
		Class:     strings.ToUpper(rec[2]),
		Zone:      entity.ZoneOrDefault(entity.WarehouseZone(strings.ToUpper(rec[7]))),
		Lot: inventory.OpeningLot{
			ProductID:      rec[0],
			BatchNumber:    rec[3],
			ProductionDate: prod,
			ExpirationDate: exp,
			Quantity:       qty,
		},
	}, nil
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("fecha %q: %w", s, err)
	}
	return &t, nil
}

func groupByZone(rows []row) map[entity.WarehouseZone][]inventory.OpeningLot {
	out := make(map[entity.WarehouseZone][]inventory.OpeningLot)
	for _, r := range rows {
		out[r.Zone] = append(out[r.Zone], r.Lot)
	}
	return out
}
