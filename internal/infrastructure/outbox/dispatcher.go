// Package outbox entrega los eventos escritos junto con cada confirmación.
// La entrega es al menos una vez: el consumidor deduplica por ID de mensaje.
package outbox

import (
	"context"
	"time"

	"github.com/jhoicas/lotledger/internal/domain/repository"
	"github.com/jhoicas/lotledger/pkg/logger"
)

// Publisher destino de los eventos.
type Publisher interface {
	Publish(ctx context.Context, eventType, messageID string, payload []byte) error
}

// Config frecuencia y tamaño de cada ronda.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// Dispatcher sondea el outbox y publica lo pendiente.
type Dispatcher struct {
	repo repository.OutboxRepository
	pub  Publisher
	cfg  Config
	log  *logger.Logger
	now  func() time.Time
}

// NewDispatcher construye el despachador.
func NewDispatcher(repo repository.OutboxRepository, pub Publisher, cfg Config, log *logger.Logger) *Dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{repo: repo, pub: pub, cfg: cfg, log: log.Component("outbox"), now: time.Now}
}

// Run publica en rondas hasta que ctx se cancele.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	d.log.Info().Dur("interval", d.cfg.PollInterval).Msg("despachador de eventos iniciado")
	for {
		if _, err := d.DispatchOnce(ctx); err != nil && ctx.Err() == nil {
			d.log.Error().Err(err).Msg("ronda de publicación fallida")
		}
		select {
		case <-ctx.Done():
			d.log.Info().Msg("despachador de eventos detenido")
			return
		case <-ticker.C:
		}
	}
}

// DispatchOnce publica un lote de eventos pendientes y devuelve cuántos salieron.
// Un fallo de publicación se registra en el evento y no detiene la ronda.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	events, err := d.repo.ListPending(ctx, d.cfg.BatchSize, d.cfg.MaxAttempts)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := d.pub.Publish(ctx, ev.EventType, ev.ID, ev.Payload); err != nil {
			d.log.Warn().Err(err).Str("event_id", ev.ID).Str("event_type", ev.EventType).
				Int("attempts", ev.Attempts+1).Msg("publicación fallida")
			if merr := d.repo.MarkFailed(ctx, ev.ID, err.Error()); merr != nil {
				return sent, merr
			}
			continue
		}
		if err := d.repo.MarkPublished(ctx, ev.ID, d.now()); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// LogPublisher registra los eventos en el log cuando no hay broker configurado.
type LogPublisher struct {
	log *logger.Logger
}

// NewLogPublisher construye el publicador de respaldo.
func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, eventType, messageID string, payload []byte) error {
	p.log.Info().Str("event_type", eventType).Str("message_id", messageID).RawJSON("payload", payload).Msg("evento")
	return nil
}
