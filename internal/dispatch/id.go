package dispatch

import (
	"fmt"
	mrand "math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewDeliveryID returns a prefixed ulid used to correlate the log lines of
// one delivery attempt.
func NewDeliveryID() string {
	t := time.Now()
	entropy := ulid.Monotonic(mrand.New(mrand.NewSource(t.UnixNano())), 0)
	id := ulid.MustNew(ulid.Timestamp(t), entropy)
	return fmt.Sprintf("dlv_%s", id.String())
}
