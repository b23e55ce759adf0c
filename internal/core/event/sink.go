package event

import "go.uber.org/zap"

// Sink receives turn-resolution events. It is handed explicitly to whoever
// produces events; there is no package-level default.
type Sink interface {
	Emit(ev Event)
}

// Discard drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(Event) {}

// Recorder keeps every event in arrival order.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(ev Event) { r.Events = append(r.Events, ev) }

// Names lists recorded event names in order.
func (r *Recorder) Names() []string {
	out := make([]string, len(r.Events))
	for i, ev := range r.Events {
		out[i] = ev.EventName()
	}
	return out
}

// Reset forgets recorded events.
func (r *Recorder) Reset() { r.Events = r.Events[:0] }

// Filter returns recorded events of type T in order.
func Filter[T Event](r *Recorder) []T {
	var out []T
	for _, ev := range r.Events {
		if v, ok := ev.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// LogSink writes each event as a debug line.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Emit(ev Event) {
	s.log.Debug("turn event", zap.String("event", ev.EventName()), zap.Any("data", ev))
}

// Tee fans out to several sinks in order.
type Tee []Sink

func (t Tee) Emit(ev Event) {
	for _, s := range t {
		s.Emit(ev)
	}
}
