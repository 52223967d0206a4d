// seed carga productos y saldos iniciales por lote desde un CSV exportado del
// sistema anterior. Acepta UTF-8 o ISO-8859-1 (exportaciones de Excel).
//
// Uso: go run ./cmd/seed [ruta/saldos.csv]
// Columnas (separador ;): product_id;name;class;batch_number;production_date;expiration_date;quantity;warehouse
// Fechas en formato YYYY-MM-DD; warehouse vacío = GENERAL. Repetir la carga con el
// mismo archivo no duplica saldos.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhoicas/lotledger/internal/application/dto"
	"github.com/jhoicas/lotledger/internal/application/inventory"
	"github.com/jhoicas/lotledger/internal/application/usecase"
	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/internal/infrastructure/postgres"
	"github.com/jhoicas/lotledger/pkg/config"
	"github.com/jhoicas/lotledger/pkg/logger"
)

func main() {
	path := "saldos.csv"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	rows, err := parseRows(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx := inventory.WithOperator(context.Background(), "seed")
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(cfg.DB.ConnectionString(), log); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
	}

	productRepo := postgres.NewProductRepository(pool)
	lotRepo := postgres.NewLotRepository(pool)
	lotStore := inventory.NewLotStoreUseCase(productRepo, lotRepo)
	coord := inventory.NewCoordinator(inventory.CoordinatorDeps{
		TxRunner:     postgres.NewTxRunner(pool),
		Lots:         lotRepo,
		Movements:    postgres.NewMovementRepository(pool),
		Transactions: postgres.NewTransactionRepository(pool),
		LotStore:     lotStore,
		Logger:       log.Component("seed"),
	})
	productUC := usecase.NewProductUseCase(productRepo)

	products := 0
	for _, p := range uniqueProducts(rows) {
		_, err := productUC.Create(ctx, p)
		if errors.Is(err, domain.ErrDuplicate) {
			continue
		}
		if err != nil {
			log.Fatal().Err(err).Str("product_id", p.ID).Msg("crear producto")
		}
		products++
	}

	ref := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for zone, lots := range groupByZone(rows) {
		txn, err := coord.LoadOpeningStock(ctx, ref, zone, lots)
		if err != nil {
			log.Fatal().Err(err).Str("zone", string(zone)).Msg("cargar saldos")
		}
		log.Info().Str("zone", string(zone)).Str("transaction_id", txn.ID).
			Int("movements", len(txn.Movements)).Msg("zona cargada")
	}
	log.Info().Int("products", products).Int("rows", len(rows)).Msg("carga inicial terminada")
}

func uniqueProducts(rows []row) []dto.CreateProductRequest {
	seen := make(map[string]bool)
	var out []dto.CreateProductRequest
	for _, r := range rows {
		if seen[r.ProductID] {
			continue
		}
		seen[r.ProductID] = true
		out = append(out, dto.CreateProductRequest{ID: r.ProductID, Name: r.Name, Class: r.Class})
	}
	return out
}
