package dispatch

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"hookfan/internal/config"
	"hookfan/internal/ddp"
	"hookfan/internal/event"
)

// Conn is the narrow slice of the DDP client the transport depends on.
type Conn interface {
	Healthy() bool
	Call(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// DDPTransport invokes the service's named remote method over a shared
// persistent connection. Calls are gated on connection liveness: issuing a
// method call mid-reconnect would hang or silently drop.
type DDPTransport struct {
	conn Conn
	log  zerolog.Logger
}

func NewDDPTransport(conn Conn, log zerolog.Logger) *DDPTransport {
	return &DDPTransport{conn: conn, log: log}
}

func (t *DDPTransport) Deliver(ctx context.Context, svc config.Service, item event.Item) error {
	if !t.conn.Healthy() {
		if svc.Test {
			t.log.Warn().Str("service", svc.Name).Msg("ddp connection unhealthy, skipping test service")
			return nil
		}
		return ddp.ErrNotConnected
	}

	payload := map[string]any{
		"token":     svc.Token,
		"accountId": item.AccountID,
		"data":      item.Rebuild(),
	}
	_, err := t.conn.Call(ctx, svc.Method, payload)
	return err
}
