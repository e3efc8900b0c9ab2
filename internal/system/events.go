package system

import (
	"reflect"
	"time"

	"github.com/emberforge/engine/internal/core/event"
	coresys "github.com/emberforge/engine/internal/core/system"
)

const NameEvents = "event_dispatch"

// EventDispatchSystem swaps the bus buffers and delivers last frame's
// events. Systems that only Emit declare a read on the bus, so this one is
// never batched with them.
type EventDispatchSystem struct {
	bus       *event.Bus
	delivered int
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Name() string { return NameEvents }

func (s *EventDispatchSystem) Access() coresys.Access {
	return coresys.Access{Writes: []reflect.Type{coresys.Res[event.Bus]()}}
}

func (s *EventDispatchSystem) Run(_ time.Duration) {
	s.bus.SwapBuffers()
	s.delivered = s.bus.DispatchAll()
}

// Delivered returns how many events the last run delivered.
func (s *EventDispatchSystem) Delivered() int { return s.delivered }
