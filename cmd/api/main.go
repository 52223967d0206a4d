package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/lotledger/internal/application/inventory"
	"github.com/jhoicas/lotledger/internal/application/usecase"
	"github.com/jhoicas/lotledger/internal/infrastructure/memory"
	"github.com/jhoicas/lotledger/internal/infrastructure/orders"
	"github.com/jhoicas/lotledger/internal/infrastructure/outbox"
	"github.com/jhoicas/lotledger/internal/infrastructure/postgres"
	"github.com/jhoicas/lotledger/internal/infrastructure/rabbitmq"
	infraredis "github.com/jhoicas/lotledger/internal/infrastructure/redis"
	"github.com/jhoicas/lotledger/internal/infrastructure/storage"
	httpRouter "github.com/jhoicas/lotledger/internal/interfaces/http"
	"github.com/jhoicas/lotledger/pkg/config"
	"github.com/jhoicas/lotledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(cfg.DB.ConnectionString(), log); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	productRepo := postgres.NewProductRepository(pool)
	lotRepo := postgres.NewLotRepository(pool)
	movementRepo := postgres.NewMovementRepository(pool)
	transactionRepo := postgres.NewTransactionRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	// Borradores: Redis si está configurado; si no, en memoria (una sola instancia).
	var drafts inventory.DraftStore
	if cfg.Redis.URL != "" {
		rdb, err := infraredis.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		drafts = infraredis.NewDraftStore(rdb, cfg.Redis.DraftTTL)
	} else {
		log.Warn().Msg("REDIS_URL vacío: borradores en memoria")
		drafts = memory.NewDraftStore(cfg.Redis.DraftTTL)
	}

	var orderSource inventory.OrderSource
	if cfg.Orders.BaseURL != "" {
		orderSource = orders.NewHTTPSource(cfg.Orders.BaseURL, cfg.Orders.Timeout)
	} else {
		log.Warn().Msg("ORDERS_BASE_URL vacío: no se resolverán órdenes de compra ni de producción")
		orderSource = memory.NewOrderBook()
	}

	var evidence inventory.EvidenceVerifier = storage.StubVerifier{}
	if cfg.Storage.Bucket != "" {
		verifier, err := storage.NewS3Verifier(ctx, cfg.Storage)
		if err != nil {
			log.Fatal().Err(err).Msg("cliente S3")
		}
		evidence = verifier
	}

	var publisher outbox.Publisher
	if cfg.RabbitMQ.URL != "" {
		rmq, err := rabbitmq.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a RabbitMQ")
		}
		defer rmq.Close()
		publisher = rmq
	} else {
		log.Warn().Msg("RABBITMQ_URL vacío: los eventos solo se registran en el log")
		publisher = outbox.NewLogPublisher(log.Component("events"))
	}

	productUC := usecase.NewProductUseCase(productRepo)
	lotStore := inventory.NewLotStoreUseCase(productRepo, lotRepo)
	allocationUC := inventory.NewAllocationUseCase(lotStore, lotRepo, inventory.AllocationConfig{
		MaxLots:      cfg.Allocation.MaxLots,
		AllowPartial: cfg.Allocation.AllowPartial,
	})
	ledgerUC := inventory.NewLedgerUseCase(lotRepo, movementRepo, transactionRepo)
	coordinator := inventory.NewCoordinator(inventory.CoordinatorDeps{
		Drafts:       drafts,
		TxRunner:     txRunner,
		Lots:         lotRepo,
		Movements:    movementRepo,
		Transactions: transactionRepo,
		Orders:       orderSource,
		Evidence:     evidence,
		LotStore:     lotStore,
		Allocation:   allocationUC,
		Logger:       log.Component("coordinator"),
	})

	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, outbox.Config{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
	}, log.Component("outbox"))
	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		dispatcher.Run(ctx)
	}()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Lot Ledger API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		ProductUC:   productUC,
		LotStore:    lotStore,
		Allocation:  allocationUC,
		Coordinator: coordinator,
		Ledger:      ledgerUC,
		JWTSecret:   cfg.JWT.Secret,
		Logger:      log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	stop()
	select {
	case <-dispatcherDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("el despachador de eventos no terminó a tiempo")
	}

	log.Info().Msg("aplicación detenida")
}
