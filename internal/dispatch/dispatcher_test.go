package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"hookfan/internal/config"
	"hookfan/internal/event"
	"hookfan/internal/observability"
	"hookfan/internal/route"
)

type stubTransport struct {
	mu        sync.Mutex
	delivered []string
	err       error
}

func (s *stubTransport) Deliver(_ context.Context, svc config.Service, _ event.Item) error {
	s.mu.Lock()
	s.delivered = append(s.delivered, svc.Name)
	s.mu.Unlock()
	return s.err
}

func feedItem() event.Item {
	return event.Item{
		AccountID: "A",
		Time:      1,
		Object:    event.ObjectPage,
		Change:    &event.Change{Field: "feed", Value: json.RawMessage(`{}`)},
	}
}

func newTestDispatcher(services []config.Service, transports map[string]Transport) *Dispatcher {
	return New(route.NewRegistry(services), transports, time.Second, observability.New(), zerolog.Nop())
}

func outcomeFor(t *testing.T, outcomes []Outcome, service string) Outcome {
	t.Helper()
	for _, o := range outcomes {
		if o.Service == service {
			return o
		}
	}
	t.Fatalf("no outcome for service %s in %+v", service, outcomes)
	return Outcome{}
}

func TestDispatchIsolatesFailingService(t *testing.T) {
	good := &stubTransport{}
	bad := &stubTransport{err: errors.New("boom")}

	d := newTestDispatcher([]config.Service{
		{Name: "stable", Transport: "http"},
		{Name: "broken", Transport: "ddp"},
	}, map[string]Transport{
		"http": good,
		"ddp":  bad,
	})

	outcomes := d.Dispatch(context.Background(), feedItem())
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}

	if o := outcomeFor(t, outcomes, "stable"); !o.OK() {
		t.Fatalf("stable service affected by sibling failure: %v", o.Err)
	}
	if o := outcomeFor(t, outcomes, "broken"); o.OK() {
		t.Fatalf("expected broken service to fail")
	}
	if len(good.delivered) != 1 || len(bad.delivered) != 1 {
		t.Fatalf("both services must receive the attempt: good=%v bad=%v", good.delivered, bad.delivered)
	}
}

func TestDispatchDowngradesTestServiceFailure(t *testing.T) {
	bad := &stubTransport{err: errors.New("boom")}

	d := newTestDispatcher([]config.Service{
		{Name: "experimental", Transport: "http", Test: true},
	}, map[string]Transport{"http": bad})

	outcomes := d.Dispatch(context.Background(), feedItem())
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	if !outcomes[0].OK() {
		t.Fatalf("test service failure must not surface: %v", outcomes[0].Err)
	}
}

func TestDispatchUnknownTransportFailsOnlyThatService(t *testing.T) {
	good := &stubTransport{}

	d := newTestDispatcher([]config.Service{
		{Name: "stable", Transport: "http"},
		{Name: "exotic", Transport: "smtp"},
	}, map[string]Transport{"http": good})

	outcomes := d.Dispatch(context.Background(), feedItem())
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if o := outcomeFor(t, outcomes, "exotic"); !errors.Is(o.Err, ErrUnknownTransport) {
		t.Fatalf("expected ErrUnknownTransport, got %v", o.Err)
	}
	if o := outcomeFor(t, outcomes, "stable"); !o.OK() {
		t.Fatalf("sibling failed: %v", o.Err)
	}
}

func TestDispatchNoMatchIsNotAnError(t *testing.T) {
	good := &stubTransport{}

	d := newTestDispatcher([]config.Service{
		{Name: "inbox", Transport: "http", Fields: []string{"messages"}},
	}, map[string]Transport{"http": good})

	if outcomes := d.Dispatch(context.Background(), feedItem()); len(outcomes) != 0 {
		t.Fatalf("expected zero dispatches, got %+v", outcomes)
	}
	if len(good.delivered) != 0 {
		t.Fatalf("unmatched service must not be called")
	}
}
