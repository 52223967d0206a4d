package http

import (
	"github.com/gofiber/fiber/v2"

	appinv "github.com/jhoicas/lotledger/internal/application/inventory"
	"github.com/jhoicas/lotledger/internal/application/usecase"
	"github.com/jhoicas/lotledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ProductUC   *usecase.ProductUseCase
	LotStore    *appinv.LotStoreUseCase
	Allocation  *appinv.AllocationUseCase
	Coordinator *appinv.Coordinator
	Ledger      *appinv.LedgerUseCase
	JWTSecret   string
	Logger      *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("http")

	api := app.Group("/api", OperatorMiddleware(deps.JWTSecret))

	// Products
	productHandler := NewProductHandler(deps.ProductUC, log)
	products := api.Group("/products")
	products.Post("/", productHandler.Create)
	products.Get("/:id", productHandler.GetByID)

	// Asignación por lote
	allocationHandler := NewAllocationHandler(deps.Allocation, deps.LotStore, log)
	api.Post("/recommend-allocation", allocationHandler.Recommend)
	api.Post("/validate-allocation", allocationHandler.Validate)
	api.Get("/lots", allocationHandler.ListLots)

	// Borradores
	draftHandler := NewDraftHandler(deps.Coordinator, log)
	drafts := api.Group("/drafts")
	drafts.Post("/", draftHandler.Begin)
	drafts.Get("/:id", draftHandler.Get)
	drafts.Post("/:id/source", draftHandler.IdentifySource)
	drafts.Post("/:id/lines", draftHandler.AddLines)
	drafts.Post("/:id/evidence", draftHandler.AttachEvidence)
	drafts.Post("/:id/token/issue", draftHandler.IssueToken)
	drafts.Post("/:id/commit", draftHandler.Commit)
	drafts.Post("/:id/abort", draftHandler.Abort)
	drafts.Post("/:id/dispute", draftHandler.Dispute)

	// Libro y transacciones
	ledgerHandler := NewLedgerHandler(deps.Ledger, log)
	api.Get("/ledger/balance", ledgerHandler.Balance)
	api.Get("/ledger/reconcile", ledgerHandler.Reconcile)
	api.Get("/transactions/:id", ledgerHandler.GetTransaction)
	api.Post("/transactions/:id/posted", ledgerHandler.MarkPosted)
}
