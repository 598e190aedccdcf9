// Package driver ties the compiler, image loader and VM together: it runs
// source files and compiled images and checks scripts against their
// expected output.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"loxmin/internal/compiler"
	"loxmin/internal/diag"
	"loxmin/internal/image"
	"loxmin/internal/observ"
	"loxmin/internal/trace"
	"loxmin/internal/vm"
)

// Process exit codes, as in sysexits.h.
const (
	ExitOK       = 0
	ExitUsage    = 64
	ExitDataErr  = 65
	ExitSoftware = 70
	ExitIOErr    = 74
)

// postMortemEvents bounds the heap events printed after a runtime error.
const postMortemEvents = 32

// ExitCode maps an interpreter result to a process exit code.
func ExitCode(res vm.InterpretResult) int {
	switch res {
	case vm.InterpretCompileError:
		return ExitDataErr
	case vm.InterpretRuntimeError:
		return ExitSoftware
	default:
		return ExitOK
	}
}

// CompileSource returns a CompileFunc for src. Compilation is traced and
// timed through the tracer and timer attached to ctx.
func CompileSource(ctx context.Context, src []byte) vm.CompileFunc {
	return func(h *vm.Heap) (*vm.Function, error) {
		span := trace.BeginChild(ctx, trace.ScopePhase, "compile")
		timer := observ.TimerFrom(ctx)
		idx := timer.Begin("compile")

		fn, err := compiler.Compile(h, src)

		note := fmt.Sprintf("%d bytes", len(src))
		var derr *diag.Error
		if errors.As(err, &derr) {
			note = fmt.Sprintf("%d errors", derr.Bag.Len())
			span.WithExtra("status", "error")
		}
		timer.End(idx, note)
		span.End(note)
		return fn, err
	}
}

// Interpret compiles src and runs it on machine.
func Interpret(ctx context.Context, machine *vm.VM, src []byte) vm.InterpretResult {
	return Run(ctx, machine, CompileSource(ctx, src))
}

// Run executes the program produced by compile. Compile errors are written
// to machine.Err; runtime errors are reported by the VM itself.
func Run(ctx context.Context, machine *vm.VM, compile vm.CompileFunc) vm.InterpretResult {
	span := trace.BeginChild(ctx, trace.ScopePhase, "run")
	timer := observ.TimerFrom(ctx)

	runIdx := -1
	res := machine.Interpret(func(h *vm.Heap) (*vm.Function, error) {
		fn, err := compile(h)
		if err == nil {
			runIdx = timer.Begin("run")
		}
		return fn, err
	})
	timer.End(runIdx, "")

	switch res {
	case vm.InterpretCompileError:
		if machine.Err != nil {
			fmt.Fprintln(machine.Err, machine.LastCompileError())
		}
	case vm.InterpretRuntimeError:
		if e := machine.LastError(); e != nil {
			span.WithExtra("code", e.Code.String())
		}
		if rec := trace.RecorderOf(trace.FromContext(ctx)); rec != nil && machine.Err != nil {
			_ = rec.PostMortem(machine.Err, postMortemEvents, trace.FormatText)
		}
	}
	stats := machine.Heap.Stats()
	span.WithExtra("collections", fmt.Sprint(stats.Collections)).
		WithExtra("bytes", fmt.Sprint(stats.BytesAllocated)).
		End(res.String())
	return res
}

// Load returns a CompileFunc for the file at path: a compiled image when
// the path has the image extension, Lox source otherwise.
func Load(ctx context.Context, path string) (vm.CompileFunc, error) {
	if image.IsImagePath(path) {
		img, err := image.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		return img.CompileFunc(), nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return CompileSource(ctx, src), nil
}

// RunFile loads and runs path on machine. A non-nil error means the file
// could not be read.
func RunFile(ctx context.Context, machine *vm.VM, path string) (vm.InterpretResult, error) {
	compile, err := Load(ctx, path)
	if err != nil {
		return vm.InterpretOK, err
	}
	return Run(ctx, machine, compile), nil
}

// Disassemble runs compile on a scratch heap and writes the listing of
// every function to w.
func Disassemble(ctx context.Context, w io.Writer, compile vm.CompileFunc) error {
	h := vm.NewHeap(vm.HeapOptions{Tracer: trace.FromContext(ctx)})
	defer h.Free()
	fn, err := compile(h)
	if err != nil {
		return err
	}
	vm.DisassembleFunction(w, h, fn)
	return nil
}

// CompileImage compiles src and snapshots the result as an image.
func CompileImage(ctx context.Context, src []byte, source string) (*image.Image, error) {
	h := vm.NewHeap(vm.HeapOptions{Tracer: trace.FromContext(ctx)})
	defer h.Free()
	fn, err := CompileSource(ctx, src)(h)
	if err != nil {
		return nil, err
	}
	return image.Build(h, fn, source)
}
