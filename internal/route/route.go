// Package route decides which configured services receive a given item.
package route

import (
	"hookfan/internal/config"
	"hookfan/internal/event"
)

// subscriptionKeys maps the symbolic field names used when subscribing with
// the provider to the discriminator key the provider actually delivers on a
// message payload. The two vocabularies differ; services configure the
// subscription names.
var subscriptionKeys = map[string]string{
	"messages":            event.KeyMessage,
	"message_deliveries":  event.KeyDelivery,
	"messaging_postbacks": event.KeyPostback,
	"message_reads":       event.KeyRead,
	"messaging_optins":    event.KeyOptin,
}

// Registry holds the configured downstream services. It is built once at
// startup and read-only for the life of the process.
type Registry struct {
	services []config.Service
}

func NewRegistry(services []config.Service) *Registry {
	return &Registry{services: services}
}

func (r *Registry) Services() []config.Service {
	return r.services
}

// Match returns the services whose interest filter holds for the item.
func (r *Registry) Match(item event.Item) []config.Service {
	var matched []config.Service
	for _, svc := range r.services {
		if Matches(svc, item) {
			matched = append(matched, svc)
		}
	}
	return matched
}

// Matches reports whether a service is interested in an item. An empty
// field list is a catch-all. Change items match on the change field;
// message items match when any configured symbolic field translates to a
// key present on the message.
func Matches(svc config.Service, item event.Item) bool {
	if len(svc.Fields) == 0 {
		return true
	}
	if item.IsChange() {
		for _, f := range svc.Fields {
			if f == item.Change.Field {
				return true
			}
		}
		return false
	}
	for _, f := range svc.Fields {
		key, ok := subscriptionKeys[f]
		if !ok {
			continue
		}
		if item.Message.Has(key) {
			return true
		}
	}
	return false
}
