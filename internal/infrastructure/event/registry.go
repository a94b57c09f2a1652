package event

import (
	"errors"
	"sync"

	"github.com/casa/wms/internal/domain/shared"
)

var errHandlerPanicked = errors.New("event handler panicked")

// subscription is one handler and the event types it listens to. A nil
// type set listens to everything.
type subscription struct {
	handler shared.EventHandler
	types   map[string]struct{}
}

func (s *subscription) matches(eventType string) bool {
	if s.types == nil {
		return true
	}
	_, ok := s.types[eventType]
	return ok
}

// HandlerRegistry keeps subscriptions in registration order, so handlers
// see an event in the order they subscribed
type HandlerRegistry struct {
	mu   sync.RWMutex
	subs []*subscription
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{}
}

// Register subscribes handler to eventTypes, or to every type when none are
// given. Registering a handler again widens its existing subscription.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub := r.find(handler)
	if sub == nil {
		sub = &subscription{handler: handler, types: map[string]struct{}{}}
		r.subs = append(r.subs, sub)
	}
	if len(eventTypes) == 0 {
		sub.types = nil
		return
	}
	if sub.types == nil {
		return
	}
	for _, t := range eventTypes {
		sub.types[t] = struct{}{}
	}
}

// Unregister drops the handler's subscription
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, sub := range r.subs {
		if sub.handler == handler {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			return
		}
	}
}

// HandlersFor returns the handlers subscribed to eventType
func (r *HandlerRegistry) HandlersFor(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []shared.EventHandler
	for _, sub := range r.subs {
		if sub.matches(eventType) {
			out = append(out, sub.handler)
		}
	}
	return out
}

// Len is the number of subscribed handlers
func (r *HandlerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// find must be called with mu held
func (r *HandlerRegistry) find(handler shared.EventHandler) *subscription {
	for _, sub := range r.subs {
		if sub.handler == handler {
			return sub
		}
	}
	return nil
}
