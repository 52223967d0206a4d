package inventory

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/lotledger/internal/domain"
	"github.com/jhoicas/lotledger/internal/domain/entity"
	"github.com/jhoicas/lotledger/internal/domain/inventory"
	"github.com/jhoicas/lotledger/internal/domain/repository"
	"github.com/jhoicas/lotledger/internal/domain/workflow"
	"github.com/jhoicas/lotledger/pkg/logger"
)

// CoordinatorDeps dependencias del coordinador de transacciones.
type CoordinatorDeps struct {
	Drafts       DraftStore
	TxRunner     TxRunner
	Lots         repository.LotRepository
	Movements    repository.MovementRepository
	Transactions repository.TransactionRepository
	Orders       OrderSource
	Evidence     EvidenceVerifier
	LotStore     *LotStoreUseCase
	Allocation   *AllocationUseCase
	Logger       *logger.Logger
}

// Coordinator lleva un borrador desde la identificación del origen hasta la
// confirmación. El libro solo se escribe en Commit, dentro de una única transacción.
type Coordinator struct {
	drafts       DraftStore
	txRunner     TxRunner
	lots         repository.LotRepository
	movements    repository.MovementRepository
	transactions repository.TransactionRepository
	orders       OrderSource
	evidence     EvidenceVerifier
	lotStore     *LotStoreUseCase
	allocation   *AllocationUseCase
	log          *logger.Logger

	now      func() time.Time
	newID    func() string
	newToken func() (string, error)
}

// NewCoordinator construye el coordinador.
func NewCoordinator(d CoordinatorDeps) *Coordinator {
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Coordinator{
		drafts:       d.Drafts,
		txRunner:     d.TxRunner,
		lots:         d.Lots,
		movements:    d.Movements,
		transactions: d.Transactions,
		orders:       d.Orders,
		evidence:     d.Evidence,
		lotStore:     d.LotStore,
		allocation:   d.Allocation,
		log:          log,
		now:          time.Now,
		newID:        func() string { return uuid.New().String() },
		newToken:     inventory.NewToken,
	}
}

// BeginDraftInput datos para abrir un borrador.
type BeginDraftInput struct {
	CausingKind     entity.CausingKind
	CausingID       string
	Flow            entity.MovementKind
	Zone            entity.WarehouseZone
	DestinationZone entity.WarehouseZone
	Notes           string
}

// AllocationInput asignación declarada para un lote. En recepciones, LotID vacío
// con BatchNumber crea (o reutiliza) el lote de ese número.
type AllocationInput struct {
	LotID          string
	BatchNumber    string
	ProductionDate *time.Time
	ExpirationDate *time.Time
	Quantity       *decimal.Decimal
}

// LineInput línea enviada por el operador.
type LineInput struct {
	ProductID        string
	RequiredQuantity *decimal.Decimal
	Allocation       []AllocationInput
}

// LinesResult resultado de conciliar líneas.
type LinesResult struct {
	Draft      *entity.Draft
	Validated  bool
	Violations []domain.Violation
}

// BeginDraft abre un borrador. Para órdenes de compra y producción con CausingID
// intenta resolver la orden de inmediato; si falla devuelve el borrador en
// IDENTIFY_SOURCE junto con el error.
func (c *Coordinator) BeginDraft(ctx context.Context, in BeginDraftInput) (*entity.Draft, error) {
	profile, err := workflow.ProfileFor(in.CausingKind)
	if err != nil {
		return nil, err
	}
	flow, err := profile.ResolveFlow(in.Flow)
	if err != nil {
		return nil, err
	}
	zone := entity.ZoneOrDefault(in.Zone)
	if !zone.IsValid() {
		return nil, fieldError("zona desconocida: " + string(zone))
	}
	dest := entity.WarehouseZone("")
	if profile.RequiresDestination {
		dest = in.DestinationZone
		if !dest.IsValid() || dest == zone {
			return nil, fieldError("el traslado requiere una zona destino válida y distinta de la de origen")
		}
	}

	now := c.now()
	d := &entity.Draft{
		ID:              c.newID(),
		CausingKind:     in.CausingKind,
		CausingID:       strings.TrimSpace(in.CausingID),
		Flow:            flow,
		Zone:            zone,
		DestinationZone: dest,
		State:           entity.DraftIdentifySource,
		Notes:           in.Notes,
		CreatedBy:       OperatorFrom(ctx),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if !profile.RequiresSource {
		d.State, _ = workflow.Next(d.State, workflow.ActionIdentifySource)
	}
	if err := c.drafts.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}
	c.log.Info().Str("draft_id", d.ID).Str("causing_kind", string(d.CausingKind)).
		Str("flow", string(d.Flow)).Str("state", string(d.State)).Msg("borrador creado")

	if profile.RequiresSource && d.CausingID != "" {
		return c.IdentifySource(ctx, d.ID, "")
	}
	return d, nil
}

// GetDraft borrador por ID.
func (c *Coordinator) GetDraft(ctx context.Context, id string) (*entity.Draft, error) {
	return c.drafts.Get(ctx, id)
}

// IdentifySource resuelve la orden de origen y carga sus ítems requeridos. Si la
// orden no existe o está cerrada el borrador sigue en IDENTIFY_SOURCE y puede reintentarse.
func (c *Coordinator) IdentifySource(ctx context.Context, draftID, causingID string) (*entity.Draft, error) {
	d, err := c.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	next, err := workflow.Next(d.State, workflow.ActionIdentifySource)
	if err != nil {
		return d, err
	}
	if id := strings.TrimSpace(causingID); id != "" && id != d.CausingID {
		d.CausingID = id
		if err := c.save(ctx, d); err != nil {
			return nil, err
		}
	}
	if d.CausingID == "" {
		return d, fieldError("falta el identificador de la orden de origen")
	}

	order, err := c.orders.FindOrder(ctx, d.CausingKind, d.CausingID)
	if err != nil {
		c.log.Warn().Err(err).Str("draft_id", d.ID).Str("causing_id", d.CausingID).Msg("orden de origen no resuelta")
		return d, err
	}
	if order.Closed {
		return d, fmt.Errorf("%w: orden %s cerrada", domain.ErrConflict, d.CausingID)
	}
	if len(order.Items) == 0 {
		return d, fmt.Errorf("%w: orden %s sin ítems", domain.ErrConflict, d.CausingID)
	}

	items, err := requiredItems(order)
	if err != nil {
		return d, err
	}
	d.RequiredItems = items
	d.State = next
	if err := c.save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// requiredItems agrupa los ítems de la orden por producto sumando cantidades. Una
// cantidad no positiva o con más decimales de los que guarda el libro invalida la orden.
func requiredItems(order *entity.SourceOrder) ([]entity.RequiredItem, error) {
	items := make([]entity.RequiredItem, 0, len(order.Items))
	index := make(map[string]int, len(order.Items))
	for _, it := range order.Items {
		if it.ProductID == "" {
			return nil, fmt.Errorf("%w: orden %s con ítem sin producto", domain.ErrConflict, order.ID)
		}
		if !it.RequiredQuantity.IsPositive() || !inventory.WithinScale(it.RequiredQuantity) {
			return nil, fmt.Errorf("%w: orden %s con cantidad inválida %s para %s",
				domain.ErrConflict, order.ID, it.RequiredQuantity.String(), it.ProductID)
		}
		if i, ok := index[it.ProductID]; ok {
			items[i].RequiredQuantity = items[i].RequiredQuantity.Add(it.RequiredQuantity)
			continue
		}
		index[it.ProductID] = len(items)
		items = append(items, entity.RequiredItem{
			ProductID:        it.ProductID,
			RequiredQuantity: it.RequiredQuantity,
			Reconciliation:   entity.ReconciliationPending,
		})
	}
	return items, nil
}

// AddLines concilia líneas contra la orden y los lotes. Las líneas válidas quedan en
// el borrador; las inválidas se reportan y retiran. Cualquier edición invalida el token.
func (c *Coordinator) AddLines(ctx context.Context, draftID string, lines []LineInput) (res *LinesResult, err error) {
	ctx, span := tracer.Start(ctx, "coordinator.AddLines", trace.WithAttributes(
		attribute.String("draft_id", draftID), attribute.Int("lines", len(lines))))
	defer func() { endSpan(span, err) }()

	if len(lines) == 0 {
		return nil, fieldError("no se enviaron líneas")
	}
	d, err := c.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if _, err := workflow.Next(d.State, workflow.ActionLinesPending); err != nil {
		return nil, err
	}
	profile, err := workflow.ProfileFor(d.CausingKind)
	if err != nil {
		return nil, err
	}

	var violations []domain.Violation
	for _, in := range lines {
		line, vs, err := c.reconcileLine(ctx, d, profile, in)
		if err != nil {
			return nil, err
		}
		if len(vs) > 0 {
			violations = append(violations, vs...)
			d.RemoveLine(in.ProductID)
			setReconciliation(d, in.ProductID, entity.ReconciliationPending)
			continue
		}
		d.PutLine(*line)
		if profile.AllowsDispute {
			setReconciliation(d, in.ProductID, entity.ReconciliationConfirmed)
		}
	}

	action := workflow.ActionLinesPending
	if len(violations) == 0 && d.LinesComplete() {
		action = workflow.ActionLinesComplete
	}
	if d.State, err = workflow.Next(d.State, action); err != nil {
		return nil, err
	}
	d.ClearToken()
	if err := c.save(ctx, d); err != nil {
		return nil, err
	}
	return &LinesResult{Draft: d, Validated: len(violations) == 0, Violations: violations}, nil
}

func (c *Coordinator) reconcileLine(ctx context.Context, d *entity.Draft, p workflow.Profile, in LineInput) (*entity.DraftLine, []domain.Violation, error) {
	if err := c.lotStore.requireProduct(ctx, in.ProductID); err != nil {
		return nil, nil, err
	}
	required, vs := requiredFor(d, in)
	if len(vs) > 0 {
		return nil, vs, nil
	}
	if p.Inbound() {
		return c.reconcileReceipt(ctx, in, required)
	}
	return c.reconcileOutbound(ctx, d, p, in, required)
}

func requiredFor(d *entity.Draft, in LineInput) (decimal.Decimal, []domain.Violation) {
	if len(d.RequiredItems) > 0 {
		i := d.RequiredItemIndex(in.ProductID)
		if i < 0 {
			return decimal.Zero, lineViolation(in.ProductID, domain.RuleProductNotRequired,
				"el producto no está en la orden de origen")
		}
		req := d.RequiredItems[i].RequiredQuantity
		if in.RequiredQuantity != nil && !in.RequiredQuantity.Equal(req) {
			return decimal.Zero, lineViolation(in.ProductID, domain.RuleRequiredQuantity,
				fmt.Sprintf("la cantidad %s difiere de la orden (%s)", in.RequiredQuantity.String(), req.String()))
		}
		return req, nil
	}
	if in.RequiredQuantity == nil || !in.RequiredQuantity.IsPositive() {
		return decimal.Zero, lineViolation(in.ProductID, domain.RuleRequiredQuantity,
			"la cantidad requerida debe ser mayor que cero")
	}
	if !inventory.WithinScale(*in.RequiredQuantity) {
		return decimal.Zero, lineViolation(in.ProductID, domain.RuleQuantityScale,
			fmt.Sprintf("la cantidad requerida %s tiene más de %d decimales", in.RequiredQuantity.String(), inventory.QuantityScale))
	}
	return *in.RequiredQuantity, nil
}

// reconcileOutbound valida (o recomienda por FEFO) la asignación de una salida o traslado.
func (c *Coordinator) reconcileOutbound(ctx context.Context, d *entity.Draft, p workflow.Profile, in LineInput, required decimal.Decimal) (*entity.DraftLine, []domain.Violation, error) {
	entries := make([]inventory.AllocationEntry, 0, len(in.Allocation))
	for _, a := range in.Allocation {
		entries = append(entries, inventory.AllocationEntry{LotID: a.LotID, Quantity: a.Quantity})
	}

	target := required
	shortfall := decimal.Zero
	recommended := false
	if len(in.Allocation) == 0 {
		if !p.AutoRecommend {
			return nil, lineViolation(in.ProductID, domain.RuleLotRequired, "la línea no tiene asignación por lote"), nil
		}
		rec, err := c.allocation.Recommend(ctx, in.ProductID, required, d.Zone, 0)
		if err != nil {
			var short *domain.InsufficientStockError
			if !errors.As(err, &short) {
				return nil, nil, err
			}
			if !c.allocation.Config().AllowPartial || rec.Covered.IsZero() {
				return nil, lineViolation(in.ProductID, domain.RuleInsufficientStock, short.Error()), nil
			}
			shortfall = rec.Shortfall()
			target = rec.Covered
		}
		for _, l := range rec.Lines {
			q := l.Quantity
			entries = append(entries, inventory.AllocationEntry{LotID: l.LotID, Quantity: &q})
		}
		recommended = true
	}

	res, err := c.allocation.Validate(ctx, in.ProductID, d.Zone, entries, target)
	if err != nil {
		return nil, nil, err
	}
	if !res.Valid() {
		return nil, res.Violations, nil
	}
	line := &entity.DraftLine{
		ProductID:        in.ProductID,
		RequiredQuantity: required,
		Shortfall:        shortfall,
		Recommended:      recommended,
	}
	for _, m := range res.Merged {
		line.Allocation = append(line.Allocation, entity.AllocatedLot{LotID: m.LotID, Quantity: m.Quantity})
	}
	return line, nil, nil
}

// reconcileReceipt valida una recepción. Los números de lote nuevos obtienen un ID
// provisional; los existentes (misma clave normalizada) se reutilizan.
func (c *Coordinator) reconcileReceipt(ctx context.Context, in LineInput, required decimal.Decimal) (*entity.DraftLine, []domain.Violation, error) {
	if len(in.Allocation) == 0 {
		return nil, lineViolation(in.ProductID, domain.RuleLotRequired, "la recepción no declara lotes"), nil
	}
	var vs []domain.Violation
	meta := make(map[string]entity.AllocatedLot)
	provisionalByBatch := make(map[string]string)
	entries := make([]inventory.AllocationEntry, 0, len(in.Allocation))

	for i, a := range in.Allocation {
		// Las filas en cero se descartan antes de resolver el lote.
		if a.Quantity != nil && a.Quantity.IsZero() {
			entries = append(entries, inventory.AllocationEntry{Quantity: a.Quantity, Provisional: true})
			continue
		}
		al := entity.AllocatedLot{
			LotID:          a.LotID,
			BatchNumber:    strings.TrimSpace(a.BatchNumber),
			ProductionDate: a.ProductionDate,
			ExpirationDate: a.ExpirationDate,
		}
		switch {
		case al.LotID != "":
			lot, err := c.lots.GetByID(ctx, al.LotID)
			if err != nil {
				return nil, nil, fmt.Errorf("get lot: %w", err)
			}
			if lot == nil || lot.ProductID != in.ProductID {
				vs = append(vs, domain.Violation{ProductID: in.ProductID, Line: i, LotID: al.LotID,
					Rule: domain.RuleLotRequired, Message: fmt.Sprintf("línea %d: el lote no existe para el producto", i)})
				continue
			}
			al.BatchNumber = lot.BatchNumber
		case al.BatchNumber == "":
			vs = append(vs, domain.Violation{ProductID: in.ProductID, Line: i,
				Rule: domain.RuleLotRequired, Message: fmt.Sprintf("línea %d: falta número de lote", i)})
			continue
		default:
			key := inventory.NormalizeBatch(al.BatchNumber)
			existing, err := c.lotStore.FindByBatch(ctx, in.ProductID, al.BatchNumber)
			if err != nil {
				return nil, nil, err
			}
			switch {
			case existing != nil:
				al.LotID = existing.ID
			case provisionalByBatch[key] != "":
				al.LotID = provisionalByBatch[key]
				al.Provisional = true
			default:
				if al.ExpirationDate == nil {
					vs = append(vs, domain.Violation{ProductID: in.ProductID, Line: i,
						Rule: domain.RuleExpirationRequired, Message: fmt.Sprintf("línea %d: lote nuevo sin fecha de vencimiento", i)})
					continue
				}
				al.LotID = c.newID()
				al.Provisional = true
				provisionalByBatch[key] = al.LotID
			}
		}
		if _, seen := meta[al.LotID]; !seen {
			meta[al.LotID] = al
		}
		entries = append(entries, inventory.AllocationEntry{LotID: al.LotID, Quantity: a.Quantity, Provisional: true})
	}
	if len(vs) > 0 {
		return nil, vs, nil
	}

	res := inventory.Validate(in.ProductID, entries, required, nil)
	if !res.Valid() {
		return nil, res.Violations, nil
	}
	line := &entity.DraftLine{ProductID: in.ProductID, RequiredQuantity: required, Shortfall: decimal.Zero}
	for _, m := range res.Merged {
		al := meta[m.LotID]
		al.Quantity = m.Quantity
		line.Allocation = append(line.Allocation, al)
	}
	return line, nil, nil
}

// AttachEvidence registra y verifica la referencia de evidencia. Si ya había token,
// se invalida y el borrador vuelve a ATTACH_EVIDENCE.
func (c *Coordinator) AttachEvidence(ctx context.Context, draftID, reference string) (*entity.Draft, error) {
	d, err := c.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	next, err := workflow.Next(d.State, workflow.ActionAttachEvidence)
	if err != nil {
		return nil, err
	}
	ref := strings.TrimSpace(reference)
	if ref == "" {
		return nil, fieldError("la referencia de evidencia está vacía")
	}
	if err := c.evidence.Verify(ctx, ref); err != nil {
		return nil, fmt.Errorf("verify evidence: %w", err)
	}
	d.EvidenceRef = ref
	d.State = next
	d.ClearToken()
	if err := c.save(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// IssueToken emite el token de confirmación atado al contenido actual del borrador.
// Reemitir invalida el anterior.
func (c *Coordinator) IssueToken(ctx context.Context, draftID string) (*entity.Draft, error) {
	d, err := c.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	next, err := workflow.Next(d.State, workflow.ActionIssueToken)
	if err != nil {
		return nil, err
	}
	profile, err := workflow.ProfileFor(d.CausingKind)
	if err != nil {
		return nil, err
	}
	if profile.RequiresEvidence && d.EvidenceRef == "" {
		return nil, &domain.TransitionError{From: string(d.State), Action: string(workflow.ActionIssueToken),
			Reason: "falta la evidencia de recepción"}
	}
	if !d.LinesComplete() {
		return nil, &domain.TransitionError{From: string(d.State), Action: string(workflow.ActionIssueToken),
			Reason: "hay líneas sin conciliar"}
	}
	tok, err := c.newToken()
	if err != nil {
		return nil, err
	}
	now := c.now()
	d.Token = tok
	d.TokenFingerprint = inventory.Fingerprint(d)
	d.TokenIssuedAt = &now
	d.State = next
	if err := c.save(ctx, d); err != nil {
		return nil, err
	}
	c.log.Info().Str("draft_id", d.ID).Msg("token de confirmación emitido")
	return d, nil
}

// Commit confirma el borrador si el token coincide con el emitido y el contenido no
// cambió desde entonces. Revalida saldos bajo bloqueo y escribe lotes, movimientos,
// saldos, cabecera y evento en una sola transacción. Al confirmar, el token deja de
// valer: reenviarlo devuelve *domain.InvalidTokenError con la transacción existente.
func (c *Coordinator) Commit(ctx context.Context, draftID, token string) (txn *entity.Transaction, err error) {
	ctx, span := tracer.Start(ctx, "coordinator.Commit", trace.WithAttributes(attribute.String("draft_id", draftID)))
	defer func() { endSpan(span, err) }()

	d, err := c.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	token = strings.ToUpper(strings.TrimSpace(token))
	if d.State == entity.DraftCommitted {
		return nil, &domain.InvalidTokenError{DraftID: d.ID, TransactionID: d.TransactionID,
			Reason: "el borrador ya fue confirmado en la transacción " + d.TransactionID}
	}
	next, err := workflow.Next(d.State, workflow.ActionCommit)
	if err != nil {
		return nil, err
	}
	if d.Token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(d.Token)) != 1 {
		return nil, &domain.InvalidTokenError{DraftID: d.ID, Reason: "el token no coincide con el emitido"}
	}
	if d.TokenFingerprint != inventory.Fingerprint(d) {
		return nil, &domain.InvalidTokenError{DraftID: d.ID, Reason: "el borrador cambió después de emitir el token"}
	}

	committedBy := OperatorFrom(ctx)
	if committedBy == "" {
		committedBy = d.CreatedBy
	}
	txn = &entity.Transaction{
		ID:            c.newID(),
		DraftID:       d.ID,
		CausingKind:   d.CausingKind,
		CausingID:     d.CausingID,
		Notes:         d.Notes,
		EvidenceRef:   d.EvidenceRef,
		PostingStatus: entity.PostingPending,
		CommittedAt:   c.now(),
		CommittedBy:   committedBy,
	}

	err = c.txRunner.Run(ctx, func(r TxRepos) error { return c.apply(ctx, r, d, txn) })
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			existing, gerr := c.transactions.GetByDraftID(ctx, d.ID)
			if gerr == nil && existing != nil {
				return c.withMovements(ctx, existing)
			}
		}
		var conflict *domain.CommitConflictError
		if errors.As(err, &conflict) {
			d.State, _ = workflow.Next(d.State, workflow.ActionCommitConflict)
			d.ClearToken()
			if serr := c.save(ctx, d); serr != nil {
				c.log.Error().Err(serr).Str("draft_id", d.ID).Msg("no se pudo devolver el borrador a conciliación")
			}
			c.log.Warn().Str("draft_id", d.ID).Int("lots", len(conflict.Shortages)).Msg("conflicto de saldo al confirmar")
			return nil, conflict
		}
		c.log.Error().Err(err).Str("draft_id", d.ID).Msg("confirmación fallida")
		return nil, fmt.Errorf("commit draft: %w", err)
	}

	d.State = next
	d.TransactionID = txn.ID
	d.ClearToken()
	if serr := c.save(ctx, d); serr != nil {
		c.log.Error().Err(serr).Str("draft_id", d.ID).Str("transaction_id", txn.ID).
			Msg("transacción confirmada pero el borrador no se actualizó")
	}
	c.log.Info().Str("draft_id", d.ID).Str("transaction_id", txn.ID).
		Int("movements", len(txn.Movements)).Msg("transacción confirmada")
	return txn, nil
}

func (c *Coordinator) withMovements(ctx context.Context, txn *entity.Transaction) (*entity.Transaction, error) {
	movs, err := c.movements.ListByTransaction(ctx, txn.ID)
	if err != nil {
		return nil, fmt.Errorf("list transaction movements: %w", err)
	}
	txn.Movements = movs
	return txn, nil
}

// apply escribe la confirmación. La cabecera va primero: el índice único por
// borrador serializa confirmaciones concurrentes del mismo borrador. Los saldos se
// bloquean en orden (lote, zona) para evitar interbloqueos entre borradores.
func (c *Coordinator) apply(ctx context.Context, r TxRepos, d *entity.Draft, txn *entity.Transaction) error {
	if err := r.Transactions.Create(ctx, txn); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	resolved, err := c.createReceiptLots(ctx, r, d, txn.CommittedAt)
	if err != nil {
		return err
	}

	movements := d.Movements()
	deltas := make(map[entity.BalanceKey]decimal.Decimal)
	for i := range movements {
		if id, ok := resolved[movements[i].LotID]; ok {
			movements[i].LotID = id
		}
		k := entity.BalanceKey{LotID: movements[i].LotID, Zone: movements[i].Zone}
		deltas[k] = deltas[k].Add(movements[i].Quantity)
	}
	keys := make([]entity.BalanceKey, 0, len(deltas))
	for k := range deltas {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].LotID != keys[j].LotID {
			return keys[i].LotID < keys[j].LotID
		}
		return keys[i].Zone < keys[j].Zone
	})

	balances := make(map[entity.BalanceKey]decimal.Decimal, len(keys))
	var shortages []domain.LotShortage
	for _, k := range keys {
		current, err := r.Lots.GetBalanceForUpdate(ctx, k.LotID, k.Zone)
		if err != nil {
			return fmt.Errorf("lock balance: %w", err)
		}
		next := current.Add(deltas[k])
		if next.IsNegative() {
			shortages = append(shortages, domain.LotShortage{
				LotID: k.LotID, Zone: string(k.Zone), Requested: deltas[k].Neg(), Available: current,
			})
			continue
		}
		balances[k] = next
	}
	if len(shortages) > 0 {
		return &domain.CommitConflictError{DraftID: d.ID, Shortages: shortages}
	}

	for i := range movements {
		movements[i].ID = c.newID()
		movements[i].TransactionID = txn.ID
		movements[i].CreatedAt = txn.CommittedAt
		movements[i].CreatedBy = txn.CommittedBy
		if err := r.Movements.Create(ctx, &movements[i]); err != nil {
			return fmt.Errorf("create movement: %w", err)
		}
	}
	for _, k := range keys {
		if err := r.Lots.UpsertBalance(ctx, k.LotID, k.Zone, balances[k]); err != nil {
			return fmt.Errorf("upsert balance: %w", err)
		}
	}

	payload, err := json.Marshal(newCommittedEvent(txn, movements))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.Outbox.Create(ctx, &entity.OutboxEvent{
		ID:          c.newID(),
		EventType:   entity.EventTransactionCommitted,
		AggregateID: txn.ID,
		Payload:     payload,
		Status:      entity.OutboxPending,
		CreatedAt:   txn.CommittedAt,
	}); err != nil {
		return fmt.Errorf("create outbox event: %w", err)
	}
	txn.Movements = movements
	return nil
}

// createReceiptLots crea los lotes provisionales de una recepción. Si mientras
// tanto otro borrador creó el mismo número de lote, se reutiliza ese lote.
func (c *Coordinator) createReceiptLots(ctx context.Context, r TxRepos, d *entity.Draft, at time.Time) (map[string]string, error) {
	resolved := make(map[string]string)
	for _, line := range d.Lines {
		for _, a := range line.Allocation {
			if !a.Provisional {
				continue
			}
			if _, done := resolved[a.LotID]; done {
				continue
			}
			key := inventory.NormalizeBatch(a.BatchNumber)
			existing, err := r.Lots.FindByBatch(ctx, line.ProductID, key)
			if err != nil {
				return nil, fmt.Errorf("find lot by batch: %w", err)
			}
			if existing != nil {
				resolved[a.LotID] = existing.ID
				continue
			}
			lot := &entity.Lot{
				ID:             a.LotID,
				ProductID:      line.ProductID,
				BatchNumber:    a.BatchNumber,
				BatchKey:       key,
				ProductionDate: a.ProductionDate,
				ExpirationDate: a.ExpirationDate,
				CreatedAt:      at,
			}
			if err := r.Lots.Create(ctx, lot); err != nil {
				return nil, fmt.Errorf("create lot: %w", err)
			}
			resolved[a.LotID] = a.LotID
		}
	}
	return resolved, nil
}

// Abort descarta el borrador sin tocar el libro.
func (c *Coordinator) Abort(ctx context.Context, draftID string) (*entity.Draft, error) {
	d, err := c.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if d.State, err = workflow.Next(d.State, workflow.ActionAbort); err != nil {
		return nil, err
	}
	d.ClearToken()
	if err := c.save(ctx, d); err != nil {
		return nil, err
	}
	c.log.Info().Str("draft_id", d.ID).Msg("borrador abortado")
	return d, nil
}

// ReportDiscrepancy marca una diferencia de cantidad en una recepción, publica
// receipt.disputed y cierra el borrador en DISPUTED sin tocar el libro.
func (c *Coordinator) ReportDiscrepancy(ctx context.Context, draftID, productID, note string) (*entity.Draft, error) {
	d, err := c.drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	profile, err := workflow.ProfileFor(d.CausingKind)
	if err != nil {
		return nil, err
	}
	if !profile.AllowsDispute {
		return nil, &domain.TransitionError{From: string(d.State), Action: string(workflow.ActionDispute),
			Reason: "solo las recepciones admiten reporte de diferencias"}
	}
	next, err := workflow.Next(d.State, workflow.ActionDispute)
	if err != nil {
		return nil, err
	}
	i := d.RequiredItemIndex(productID)
	if i < 0 {
		return nil, domain.NewNotFound("ítem requerido", productID)
	}
	d.RequiredItems[i].Reconciliation = entity.ReconciliationDisputed
	d.RequiredItems[i].Note = note

	now := c.now()
	payload, err := json.Marshal(ReceiptDisputedEvent{
		DraftID:          d.ID,
		CausingID:        d.CausingID,
		ProductID:        productID,
		RequiredQuantity: d.RequiredItems[i].RequiredQuantity,
		Note:             note,
		ReportedBy:       OperatorFrom(ctx),
		ReportedAt:       now,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	err = c.txRunner.Run(ctx, func(r TxRepos) error {
		return r.Outbox.Create(ctx, &entity.OutboxEvent{
			ID:          c.newID(),
			EventType:   entity.EventReceiptDisputed,
			AggregateID: d.ID,
			Payload:     payload,
			Status:      entity.OutboxPending,
			CreatedAt:   now,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("create outbox event: %w", err)
	}

	d.State = next
	d.ClearToken()
	if err := c.save(ctx, d); err != nil {
		return nil, err
	}
	c.log.Warn().Str("draft_id", d.ID).Str("product_id", productID).Msg("diferencia de recepción reportada")
	return d, nil
}

func (c *Coordinator) save(ctx context.Context, d *entity.Draft) error {
	d.UpdatedAt = c.now()
	if err := c.drafts.Save(ctx, d); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func setReconciliation(d *entity.Draft, productID string, r entity.Reconciliation) {
	if i := d.RequiredItemIndex(productID); i >= 0 && d.RequiredItems[i].Reconciliation != entity.ReconciliationDisputed {
		d.RequiredItems[i].Reconciliation = r
	}
}

func lineViolation(productID string, rule domain.Rule, msg string) []domain.Violation {
	return []domain.Violation{{ProductID: productID, Line: -1, Rule: rule, Message: msg}}
}

func fieldError(msg string) error {
	return &domain.ValidationError{Violations: []domain.Violation{{Line: -1, Rule: domain.RuleInvalidField, Message: msg}}}
}
