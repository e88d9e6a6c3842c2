package transport

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"anon-relay/internal/domain"
)

// EventHandler procesa un evento entrante normalizado.
type EventHandler interface {
	Handle(ctx context.Context, ev domain.InboundEvent) error
}

type updateSource interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
}

// Poller consume getUpdates y despacha cada lote: los eventos de un mismo
// caller se procesan en orden, callers distintos en paralelo.
type Poller struct {
	source  updateSource
	handler EventHandler
	logger  *zap.Logger
	timeout time.Duration
	workers int
	backoff time.Duration
}

func NewPoller(source updateSource, handler EventHandler, logger *zap.Logger, timeout time.Duration, workers int) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if workers <= 0 {
		workers = 1
	}
	return &Poller{
		source:  source,
		handler: handler,
		logger:  logger,
		timeout: timeout,
		workers: workers,
		backoff: 2 * time.Second,
	}
}

// Run bloquea hasta que ctx se cancela.
func (p *Poller) Run(ctx context.Context) error {
	var offset int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		updates, err := p.source.GetUpdates(ctx, offset, p.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Warn("get updates failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.backoff):
			}
			continue
		}

		offset = p.dispatch(ctx, updates, offset)
	}
}

// dispatch procesa un lote completo y devuelve el siguiente offset.
func (p *Poller) dispatch(ctx context.Context, updates []Update, offset int64) int64 {
	// Las escrituras en curso no se cancelan al detener el poller.
	handlerCtx := context.WithoutCancel(ctx)

	var order []string
	byCaller := make(map[string][]domain.InboundEvent)
	for _, u := range updates {
		if u.UpdateID >= offset {
			offset = u.UpdateID + 1
		}
		ev, ok := EventFromUpdate(u)
		if !ok {
			continue
		}
		if _, seen := byCaller[ev.CallerID]; !seen {
			order = append(order, ev.CallerID)
		}
		byCaller[ev.CallerID] = append(byCaller[ev.CallerID], ev)
	}

	var g errgroup.Group
	g.SetLimit(p.workers)
	for _, caller := range order {
		events := byCaller[caller]
		g.Go(func() error {
			for _, ev := range events {
				p.handle(handlerCtx, ev)
			}
			return nil
		})
	}
	_ = g.Wait()

	return offset
}

func (p *Poller) handle(ctx context.Context, ev domain.InboundEvent) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("event handler panic",
				zap.String("event_id", ev.ID),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	if err := p.handler.Handle(ctx, ev); err != nil {
		p.logger.Warn("event handling failed",
			zap.String("event_id", ev.ID),
			zap.String("kind", string(ev.Kind)),
			zap.Error(err),
		)
	}
}
