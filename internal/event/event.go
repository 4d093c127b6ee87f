package event

import "encoding/json"

// Objects the provider notifies about.
const (
	ObjectPage      = "page"
	ObjectInstagram = "instagram"
)

func KnownObject(object string) bool {
	return object == ObjectPage || object == ObjectInstagram
}

// Envelope is the top-level payload the provider delivers: one or more
// per-account entries under a shared object kind.
type Envelope struct {
	Object  string  `json:"object"`
	Entries []Entry `json:"entry"`
}

// Entry is one account's batch. Per the provider contract exactly one of
// Changes and Messaging is populated.
type Entry struct {
	ID        string    `json:"id"`
	Time      int64     `json:"time"`
	Changes   []Change  `json:"changes,omitempty"`
	Messaging []Message `json:"messaging,omitempty"`
}

// Change is a single page/feed mutation.
type Change struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// Message is a messaging event kept as raw key/value pairs; the keys
// present decide what kind of event it is.
type Message map[string]json.RawMessage

// Message payload discriminator keys. Which one is present determines the
// event sub-kind.
const (
	KeyMessage  = "message"
	KeyDelivery = "delivery"
	KeyPostback = "postback"
	KeyRead     = "read"
	KeyOptin    = "optin"
)

func (m Message) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Kind returns the discriminator key carried by this message, or "" when
// none of the known keys is present.
func (m Message) Kind() string {
	for _, key := range []string{KeyMessage, KeyDelivery, KeyPostback, KeyRead, KeyOptin} {
		if m.Has(key) {
			return key
		}
	}
	return ""
}
