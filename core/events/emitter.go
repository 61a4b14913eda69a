package events

import "gamechain/core/types"

// Event is implemented by module payloads that can render themselves into the
// canonical attribute form.
type Event interface {
	EventType() string
	Event() *types.Event
}

// Emitter receives events produced while applying a contract call.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter drops every event. Engines default to it so callers that do not
// care about notifications pay nothing.
type NoopEmitter struct{}

func (NoopEmitter) Emit(Event) {}
