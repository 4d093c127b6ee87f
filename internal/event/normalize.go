package event

// Item is the unit the dispatcher fans out: one change or one message,
// tagged with the account and timestamp of its enclosing entry. Immutable
// once built; not retained after the request that produced it.
type Item struct {
	AccountID string
	Time      int64
	Object    string
	Change    *Change
	Message   Message
}

func (it Item) IsChange() bool {
	return it.Change != nil
}

// Rebuild wraps the item back into a single-entry, single-event envelope.
// Downstream services expect the provider's original shape, not the
// flattened form.
func (it Item) Rebuild() Envelope {
	entry := Entry{ID: it.AccountID, Time: it.Time}
	if it.Change != nil {
		entry.Changes = []Change{*it.Change}
	} else {
		entry.Messaging = []Message{it.Message}
	}
	return Envelope{Object: it.Object, Entries: []Entry{entry}}
}

// Normalize flattens an envelope into items. An entry carrying neither
// changes nor messaging violates the provider contract; it is counted and
// skipped without failing its siblings.
func Normalize(env Envelope) (items []Item, skipped int) {
	for _, entry := range env.Entries {
		switch {
		case len(entry.Changes) > 0:
			for i := range entry.Changes {
				items = append(items, Item{
					AccountID: entry.ID,
					Time:      entry.Time,
					Object:    env.Object,
					Change:    &entry.Changes[i],
				})
			}
		case len(entry.Messaging) > 0:
			for _, msg := range entry.Messaging {
				items = append(items, Item{
					AccountID: entry.ID,
					Time:      entry.Time,
					Object:    env.Object,
					Message:   msg,
				})
			}
		default:
			skipped++
		}
	}
	return items, skipped
}
