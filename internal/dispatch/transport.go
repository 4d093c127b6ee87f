package dispatch

import (
	"context"
	"errors"

	"hookfan/internal/config"
	"hookfan/internal/event"
)

// ErrUnknownTransport is returned for a service whose configured transport
// kind has no registered implementation.
var ErrUnknownTransport = errors.New("unknown transport kind")

// Transport delivers one item to one service. Implementations must be safe
// for concurrent use: the dispatcher fans out across goroutines while
// sharing a single transport per kind.
type Transport interface {
	Deliver(ctx context.Context, svc config.Service, item event.Item) error
}
