package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered Sink. Events emitted during frame N become
// readable in frame N+1: SwapBuffers then DispatchAll run once at frame
// start. Subscribers therefore never observe a round half-way through.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	front    []Event
	back     []Event
	handlers map[reflect.Type][]any
}

func NewBus() *Bus {
	return &Bus{
		front:    make([]Event, 0, 64),
		back:     make([]Event, 0, 64),
		handlers: make(map[reflect.Type][]any),
	}
}

// Emit queues an event into the back buffer.
func (b *Bus) Emit(ev Event) {
	b.back = append(b.back, ev)
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T Event](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], fn)
}

// SwapBuffers rotates back to front and clears the new back buffer.
func (b *Bus) SwapBuffers() {
	b.front, b.back = b.back, b.front[:0]
}

// DispatchAll delivers front-buffer events in emission order.
func (b *Bus) DispatchAll() {
	for _, ev := range b.front {
		for _, h := range b.handlers[reflect.TypeOf(ev)] {
			reflect.ValueOf(h).Call([]reflect.Value{reflect.ValueOf(ev)})
		}
	}
}

// Queued reports events waiting for the next swap.
func (b *Bus) Queued() int { return len(b.back) }
