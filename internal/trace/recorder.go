package trace

import (
	"fmt"
	"io"
	"slices"
	"sync"
)

// Recorder is a flight recorder: it keeps the newest events in a fixed
// buffer and counts what it had to overwrite. After a runtime error the
// driver prints its heap tail below the backtrace.
type Recorder struct {
	mu    sync.Mutex
	buf   []Event
	total uint64 // events ever stored; buf[total%len(buf)] is the next slot
	level Level
}

// NewRecorder returns a recorder holding up to capacity events (4096 when
// capacity is not positive).
func NewRecorder(capacity int, level Level) *Recorder {
	if capacity <= 0 {
		capacity = 4096
	}
	return &Recorder{buf: make([]Event, capacity), level: level}
}

// RecorderOf returns the recorder behind t, looking through a MultiTracer.
func RecorderOf(t Tracer) *Recorder {
	switch t := t.(type) {
	case *Recorder:
		return t
	case *MultiTracer:
		return t.Recorder()
	}
	return nil
}

func (r *Recorder) Emit(ev *Event) {
	if !r.level.ShouldEmit(ev.Scope) && ev.Kind != KindHeartbeat {
		return
	}
	r.mu.Lock()
	r.buf[r.total%uint64(len(r.buf))] = *ev
	r.total++
	r.mu.Unlock()
}

// Snapshot returns the held events, oldest first.
func (r *Recorder) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ordered()
}

func (r *Recorder) ordered() []Event {
	size := uint64(len(r.buf))
	if r.total <= size {
		return slices.Clone(r.buf[:r.total])
	}
	at := r.total % size
	return slices.Concat(r.buf[at:], r.buf[:at])
}

// Dropped returns how many events were overwritten.
func (r *Recorder) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total - min(r.total, uint64(len(r.buf)))
}

// Tail returns the newest n held events in any of scopes, oldest first.
// With no scopes every event matches.
func (r *Recorder) Tail(n int, scopes ...Scope) []Event {
	r.mu.Lock()
	evs := r.ordered()
	r.mu.Unlock()
	if len(scopes) > 0 {
		evs = slices.DeleteFunc(evs, func(ev Event) bool {
			return !slices.Contains(scopes, ev.Scope)
		})
	}
	if n >= 0 && len(evs) > n {
		evs = evs[len(evs)-n:]
	}
	return evs
}

// Dump writes every held event, preceded by a line counting overwritten
// events when there were any.
func (r *Recorder) Dump(w io.Writer, format Format) error {
	if d := r.Dropped(); d > 0 && format == FormatText {
		if _, err := fmt.Fprintf(w, "-- %d earlier events dropped --\n", d); err != nil {
			return err
		}
	}
	return writeEvents(w, r.Snapshot(), format)
}

// PostMortem writes the last n garbage collection and allocation events
// under a header. It writes nothing when none were recorded.
func (r *Recorder) PostMortem(w io.Writer, n int, format Format) error {
	evs := r.Tail(n, ScopeGC, ScopeAlloc)
	if len(evs) == 0 {
		return nil
	}
	if format == FormatText {
		if _, err := fmt.Fprintf(w, "-- last %d heap events --\n", len(evs)); err != nil {
			return err
		}
	}
	return writeEvents(w, evs, format)
}

func writeEvents(w io.Writer, evs []Event, format Format) error {
	for i := range evs {
		if _, err := w.Write(FormatEvent(&evs[i], format)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder) Flush() error  { return nil }
func (r *Recorder) Close() error  { return nil }
func (r *Recorder) Level() Level  { return r.level }
func (r *Recorder) Enabled() bool { return r.level > LevelOff }
