package driver

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"loxmin/internal/diag"
	"loxmin/internal/vm"
)

// ScriptExt is the extension of Lox source files.
const ScriptExt = ".lox"

// CheckStatus is the state of one script in a check run.
type CheckStatus uint8

const (
	CheckQueued CheckStatus = iota
	CheckRunning
	CheckPassed
	CheckFailed
)

func (s CheckStatus) String() string {
	switch s {
	case CheckQueued:
		return "queued"
	case CheckRunning:
		return "running"
	case CheckPassed:
		return "pass"
	case CheckFailed:
		return "fail"
	}
	return "unknown"
}

// CheckEvent reports a status change of one script.
type CheckEvent struct {
	Path   string
	Status CheckStatus
}

// CheckOptions configures a check run.
type CheckOptions struct {
	Jobs int        // parallel scripts; <= 0 means GOMAXPROCS
	VM   vm.Options // template for each script's VM; Out and Err are replaced

	// Events, when set, receives a running and a final event per script.
	// Check never closes it.
	Events chan<- CheckEvent
}

func (o *CheckOptions) emit(ctx context.Context, path string, status CheckStatus) {
	if o.Events == nil {
		return
	}
	select {
	case o.Events <- CheckEvent{Path: path, Status: status}:
	case <-ctx.Done():
	}
}

// CheckResult is the outcome of one script.
type CheckResult struct {
	Path     string
	Want     []string
	Got      []string
	Result   vm.InterpretResult
	Bag      *diag.Bag // I/O failures
	Duration time.Duration
}

// Passed reports whether the output matched every expectation.
func (r *CheckResult) Passed() bool {
	if r.Bag != nil && r.Bag.HasErrors() {
		return false
	}
	if len(r.Want) != len(r.Got) {
		return false
	}
	for i := range r.Want {
		if r.Want[i] != r.Got[i] {
			return false
		}
	}
	return true
}

// Mismatch describes the first difference between expected and actual
// output, or "" when the script passed.
func (r *CheckResult) Mismatch() string {
	if r.Bag != nil && r.Bag.HasErrors() {
		return strings.TrimSuffix(r.Bag.String(), "\n")
	}
	n := min(len(r.Want), len(r.Got))
	for i := 0; i < n; i++ {
		if r.Want[i] != r.Got[i] {
			return fmt.Sprintf("line %d: want %q, got %q", i+1, r.Want[i], r.Got[i])
		}
	}
	switch {
	case len(r.Want) > n:
		return fmt.Sprintf("missing output: want %q", r.Want[n])
	case len(r.Got) > n:
		return fmt.Sprintf("unexpected output: %q", r.Got[n])
	}
	return ""
}

// Expectations extracts the expected output lines of a test script:
//
//	print 1;  // expect: 1
//	a.b;      // expect runtime error: Undefined property 'b'.
//	var = 1;  // Error at '=': Expect variable name.
//	// [line 3] Error at end: Expect '}' after block.
//
// A runtime error expectation also expects the "[line N] in script"
// backtrace line. A script with no expectations expects no output.
// Lines are NFC-normalised, as is the captured output, so an expectation
// matches regardless of how the editor composed its accents.
func Expectations(src []byte) []string {
	var want []string
	sc := bufio.NewScanner(bytes.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for lineNo := 1; sc.Scan(); lineNo++ {
		line := strings.TrimRight(sc.Text(), "\r")
		idx := strings.Index(line, "//")
		if idx < 0 {
			continue
		}
		comment := strings.TrimSpace(line[idx+2:])

		switch {
		case strings.HasPrefix(comment, "expect runtime error:"):
			want = append(want, strings.TrimSpace(strings.TrimPrefix(comment, "expect runtime error:")))
			want = append(want, fmt.Sprintf("[line %d] in script", lineNo))
		case strings.HasPrefix(comment, "expect:"):
			want = append(want, strings.TrimLeft(strings.TrimPrefix(comment, "expect:"), " \t"))
		case strings.HasPrefix(comment, "[java line "):
			continue
		case strings.HasPrefix(comment, "[c line "):
			want = append(want, "[line "+strings.TrimPrefix(comment, "[c line "))
		case strings.HasPrefix(comment, "[line "):
			want = append(want, comment)
		case strings.HasPrefix(comment, "Error"):
			want = append(want, fmt.Sprintf("[line %d] %s", lineNo, comment))
		}
	}
	if len(want) == 0 {
		want = []string{""}
	}
	for i, line := range want {
		want[i] = norm.NFC.String(line)
	}
	return want
}

// outputLines splits captured output the way expectations are compared.
func outputLines(out string) []string {
	return strings.Split(strings.TrimSpace(norm.NFC.String(out)), "\n")
}

// CheckScript runs one script on a fresh VM and compares its combined
// output with the script's expectations.
func CheckScript(ctx context.Context, path string, src []byte, opts vm.Options) CheckResult {
	start := time.Now()
	var out bytes.Buffer
	opts.Out = &out
	opts.Err = &out
	machine := vm.New(opts)
	defer machine.Free()

	res := Interpret(ctx, machine, src)
	return CheckResult{
		Path:     path,
		Want:     Expectations(src),
		Got:      outputLines(out.String()),
		Result:   res,
		Duration: time.Since(start),
	}
}

// ListScripts expands directories into their *.lox files. The result is
// sorted and free of duplicates.
func ListScripts(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		files = append(files, p)
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && path != root && strings.HasPrefix(d.Name(), "_") {
				return filepath.SkipDir
			}
			if !d.IsDir() && strings.HasSuffix(path, ScriptExt) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	// deterministic order
	sort.Strings(files)
	return files, nil
}

// Check runs every script in parallel, one VM per script. Results are in
// the order of paths.
func Check(ctx context.Context, paths []string, opts CheckOptions) ([]CheckResult, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// each goroutine owns one index
	results := make([]CheckResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))

	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			opts.emit(gctx, path, CheckRunning)
			src, err := os.ReadFile(path)
			if err != nil {
				bag := diag.NewBag(1)
				bag.Add(diag.Diagnostic{
					Code:    diag.IOLoadFileError,
					Message: "failed to load file: " + err.Error(),
				})
				results[i] = CheckResult{Path: path, Bag: bag}
				opts.emit(gctx, path, CheckFailed)
				return nil
			}
			results[i] = CheckScript(gctx, path, src, opts.VM)
			if results[i].Passed() {
				opts.emit(gctx, path, CheckPassed)
			} else {
				opts.emit(gctx, path, CheckFailed)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
