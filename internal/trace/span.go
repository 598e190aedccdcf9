package trace

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

var (
	seqCounter  atomic.Uint64
	spanCounter atomic.Uint64
)

// NextSeq returns the next global event sequence number.
func NextSeq() uint64 { return seqCounter.Add(1) }

// NextSpanID returns a fresh span ID. IDs start at 1; 0 means "no parent".
func NextSpanID() uint64 { return spanCounter.Add(1) }

// goid reads the current goroutine ID from the "goroutine N [" stack header.
// Check runs scripts on several goroutines, and the ID separates their spans.
func goid() uint64 {
	var buf [64]byte
	line := buf[:runtime.Stack(buf[:], false)]
	line, ok := bytes.CutPrefix(line, []byte("goroutine "))
	if !ok {
		return 0
	}
	digits, _, ok := bytes.Cut(line, []byte{' '})
	if !ok {
		return 0
	}
	id, err := strconv.ParseUint(string(digits), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Span is an open begin/end pair. A span from a tracer that rejects its
// scope is inert: every method is a no-op.
type Span struct {
	tracer Tracer
	begin  Event // template for the end event
}

var inert = &Span{}

// Begin emits a span-begin event. parent is the enclosing span ID, 0 at the
// root.
func Begin(t Tracer, scope Scope, name string, parent uint64) *Span {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return inert
	}
	s := &Span{
		tracer: t,
		begin: Event{
			Time:     time.Now(),
			Seq:      NextSeq(),
			Kind:     KindSpanBegin,
			Scope:    scope,
			SpanID:   NextSpanID(),
			ParentID: parent,
			GID:      goid(),
			Name:     name,
		},
	}
	ev := s.begin
	t.Emit(&ev)
	return s
}

func (s *Span) live() bool {
	return s != nil && s.tracer != nil && s.tracer.Enabled()
}

// End emits the span-end event carrying detail and any extras, and returns
// the span duration.
func (s *Span) End(detail string) time.Duration {
	if !s.live() {
		return 0
	}
	ev := s.begin
	ev.Time = time.Now()
	ev.Seq = NextSeq()
	ev.Kind = KindSpanEnd
	ev.Detail = detail
	s.tracer.Emit(&ev)
	return ev.Time.Sub(s.begin.Time)
}

// WithExtra attaches a key-value pair to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if !s.live() {
		return s
	}
	if s.begin.Extra == nil {
		s.begin.Extra = make(map[string]string, 4)
	}
	s.begin.Extra[key] = value
	return s
}

// ID returns the span ID, 0 for an inert span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.begin.SpanID
}

// scoped is what a context carries: the tracer and the span new children
// hang under.
type scoped struct {
	tracer Tracer
	parent uint64
}

type scopedKey struct{}

func scopeOf(ctx context.Context) scoped {
	if ctx != nil {
		if sc, ok := ctx.Value(scopedKey{}).(scoped); ok {
			return sc
		}
	}
	return scoped{tracer: Nop}
}

// WithTracer returns ctx carrying t. The current parent span is kept.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	sc := scopeOf(ctx)
	sc.tracer = t
	return context.WithValue(ctx, scopedKey{}, sc)
}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	return scopeOf(ctx).tracer
}

// WithParent returns ctx in which spans begun by BeginChild nest under s.
// An inert span leaves ctx unchanged.
func WithParent(ctx context.Context, s *Span) context.Context {
	if s.ID() == 0 {
		return ctx
	}
	sc := scopeOf(ctx)
	sc.parent = s.ID()
	return context.WithValue(ctx, scopedKey{}, sc)
}

// ParentID returns the span ID set by WithParent, 0 at the root.
func ParentID(ctx context.Context) uint64 {
	return scopeOf(ctx).parent
}

// BeginChild begins a span on the context's tracer under its parent span.
func BeginChild(ctx context.Context, scope Scope, name string) *Span {
	sc := scopeOf(ctx)
	return Begin(sc.tracer, scope, name, sc.parent)
}
