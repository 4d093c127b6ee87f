// Package dispatch fans a normalized item out to every matched downstream
// service, one concurrent delivery per service, and collects per-service
// outcomes. A failing service never blocks or fails its siblings.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"hookfan/internal/config"
	"hookfan/internal/event"
	"hookfan/internal/observability"
	"hookfan/internal/route"
)

// Outcome is the result of one (item, service) delivery. Err is nil for
// successes and for test-flagged services whose failure was downgraded.
type Outcome struct {
	Service string
	Err     error
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

type Dispatcher struct {
	registry   *route.Registry
	transports map[string]Transport
	timeout    time.Duration
	metrics    *observability.Metrics
	log        zerolog.Logger
}

func New(registry *route.Registry, transports map[string]Transport, timeout time.Duration, metrics *observability.Metrics, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registry:   registry,
		transports: transports,
		timeout:    timeout,
		metrics:    metrics,
		log:        log.With().Str("component", "dispatch").Logger(),
	}
}

// Dispatch delivers the item to all matched services concurrently and
// waits for every delivery to settle. No service matching is not an error;
// it returns zero outcomes.
func (d *Dispatcher) Dispatch(ctx context.Context, item event.Item) []Outcome {
	matched := d.registry.Match(item)
	if len(matched) == 0 {
		d.log.Debug().Str("account_id", item.AccountID).Msg("no service matched")
		return nil
	}

	p := pool.NewWithResults[Outcome]()
	for _, svc := range matched {
		svc := svc
		p.Go(func() Outcome {
			return d.deliver(ctx, svc, item)
		})
	}
	return p.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, svc config.Service, item event.Item) Outcome {
	id := NewDeliveryID()
	log := d.log.With().
		Str("delivery_id", id).
		Str("service", svc.Name).
		Str("transport", svc.Transport).
		Str("account_id", item.AccountID).
		Logger()

	var err error
	if t, ok := d.transports[svc.Transport]; ok {
		cctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		err = t.Deliver(cctx, svc, item)
	} else {
		err = fmt.Errorf("%w: %s", ErrUnknownTransport, svc.Transport)
	}

	if err != nil {
		if svc.Test {
			log.Warn().Err(err).Msg("test service delivery failed, ignoring")
			d.metrics.ObserveDelivery(svc.Name, svc.Transport, observability.OutcomeIgnored)
			return Outcome{Service: svc.Name}
		}
		log.Error().Err(err).Msg("delivery failed")
		d.metrics.ObserveDelivery(svc.Name, svc.Transport, observability.OutcomeFailure)
		return Outcome{Service: svc.Name, Err: err}
	}

	log.Info().Msg("delivered")
	d.metrics.ObserveDelivery(svc.Name, svc.Transport, observability.OutcomeSuccess)
	return Outcome{Service: svc.Name}
}
