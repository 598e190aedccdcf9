// Package trace provides structured tracing for the loxmin toolchain.
//
// It records driver commands, compile and run phases, garbage collections
// and individual heap allocations so slow scripts and memory churn can be
// diagnosed without a debugger.
//
// # Usage
//
//	loxmin run --trace=- --trace-level=detail script.lox
//
// # Tracers
//
//   - Nop: zero-overhead tracer used when tracing is off
//   - StreamTracer: writes every event immediately (file or stderr)
//   - Recorder: keeps the last N events in memory; after a runtime error
//     the driver prints its heap events below the backtrace
//   - MultiTracer: fans out to several tracers
//
// # Levels
//
//   - LevelOff: nothing
//   - LevelError: only post-mortem dumps
//   - LevelPhase: driver commands and compile/run phases
//   - LevelDetail: plus garbage collection cycles
//   - LevelDebug: plus every allocation and free
//
// # Context propagation
//
// A context carries the tracer and the current parent span. Spans begun
// with BeginChild nest under the parent:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	cmd := trace.BeginChild(ctx, trace.ScopeDriver, "loxmin run")
//	ctx = trace.WithParent(ctx, cmd)
//	span := trace.BeginChild(ctx, trace.ScopePhase, "compile") // child of cmd
//	defer span.End("")
package trace
