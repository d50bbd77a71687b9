package keys

import (
	"errors"

	log "github.com/sirupsen/logrus"
)

// Sink publishes key events to a transport.
type Sink interface {
	Publish(event Event) error
}

// Handler reacts to a key event on one channel.
type Handler func(Event)

// Registry routes events to per-channel handlers and every sink.
// Not safe for concurrent registration and dispatch.
type Registry struct {
	down  map[int][]Handler
	up    map[int][]Handler
	sinks []Sink
}

// NewRegistry creates a registry publishing to sinks.
func NewRegistry(sinks ...Sink) *Registry {
	return &Registry{
		down:  make(map[int][]Handler),
		up:    make(map[int][]Handler),
		sinks: sinks,
	}
}

// OnDown registers h for key-down events on channel.
func (r *Registry) OnDown(channel int, h Handler) {
	r.down[channel] = append(r.down[channel], h)
}

// OnUp registers h for key-up events on channel.
func (r *Registry) OnUp(channel int, h Handler) {
	r.up[channel] = append(r.up[channel], h)
}

// AddSink adds a transport sink.
func (r *Registry) AddSink(s Sink) {
	r.sinks = append(r.sinks, s)
}

// Dispatch runs the handlers for each event, then publishes it to every sink.
// A failing sink does not stop the others; all failures are returned joined.
func (r *Registry) Dispatch(events []Event) error {
	var errs []error
	for _, e := range events {
		handlers := r.up[e.Channel]
		if e.Type == KeyDown {
			handlers = r.down[e.Channel]
		}
		for _, h := range handlers {
			h(e)
		}

		for _, s := range r.sinks {
			if err := s.Publish(e); err != nil {
				log.WithFields(log.Fields{"key": e.Key, "event": e.Type}).WithError(err).Warn("publish failed")
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
