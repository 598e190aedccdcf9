package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loxmin/internal/image"
)

type cliResult struct {
	stdout string
	stderr string
	code   int
}

func runCLI(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()
	rootCmd, finish := newRootCmd()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--color", "off"}, args...))

	err := rootCmd.Execute()
	finish()

	code := 0
	if err != nil {
		var exitErr *exitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("unexpected error: %v", err)
		}
		code = exitErr.code
		if exitErr.err != nil {
			stderr.WriteString(exitErr.err.Error() + "\n")
		}
	}
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		src    string
		code   int
		stdout string
		stderr string
	}{
		{"ok", "print 1 + 2 * 3;", 0, "7\n", ""},
		{"compile error", "print 1 +;", 65, "", "[line 1] Error at ';': Expect expression.\n"},
		{"runtime error", "print \"a\";\nfoo();", 70, "a\n", "Undefined variable 'foo'.\n[line 2] in script\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, strings.ReplaceAll(tt.name, " ", "_")+".lox", tt.src)
			res := runCLI(t, "", "run", "--stress-gc", path)
			if res.code != tt.code || res.stdout != tt.stdout || res.stderr != tt.stderr {
				t.Fatalf("got code %d stdout %q stderr %q", res.code, res.stdout, res.stderr)
			}
		})
	}
}

func TestRunMissingFile(t *testing.T) {
	res := runCLI(t, "", "run", filepath.Join(t.TempDir(), "nope.lox"))
	if res.code != 74 {
		t.Fatalf("code = %d, want 74 (stderr %q)", res.code, res.stderr)
	}
}

func TestRunTimingsAndVMTrace(t *testing.T) {
	path := writeFile(t, t.TempDir(), "t.lox", "print 1;")
	res := runCLI(t, "", "run", "--timings", "--vm-trace", path)
	if res.code != 0 {
		t.Fatalf("code = %d, stderr %q", res.code, res.stderr)
	}
	for _, want := range []string{"OP_PRINT", "timings:", "compile", "run"} {
		if !strings.Contains(res.stderr, want) {
			t.Fatalf("stderr missing %q:\n%s", want, res.stderr)
		}
	}
}

func TestRunTraceOutput(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "t.lox", "var s = \"a\" + \"b\"; print s;")
	tracePath := filepath.Join(dir, "trace.ndjson")
	res := runCLI(t, "", "--trace", tracePath, "--trace-level", "detail", "run", "--stress-gc", path)
	if res.code != 0 {
		t.Fatalf("code = %d, stderr %q", res.code, res.stderr)
	}
	data, err := os.ReadFile(tracePath)
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	names := map[string]bool{}
	for _, line := range lines {
		var ev struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("bad trace line %q: %v", line, err)
		}
		names[ev.Name] = true
	}
	for _, want := range []string{"loxmin run", "compile", "run", "gc"} {
		if !names[want] {
			t.Fatalf("trace lacks %q: %v", want, names)
		}
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "loxmin.toml", "[vm]\nmax_frames = 4\n")
	path := writeFile(t, dir, "deep.lox", "fun f(n) { if (n > 0) f(n - 1); }\nf(10);\n")
	res := runCLI(t, "", "run", path)
	if res.code != 70 || !strings.HasPrefix(res.stderr, "Stack overflow.\n") {
		t.Fatalf("code %d stderr %q", res.code, res.stderr)
	}

	writeFile(t, dir, "loxmin.toml", "[vm]\nbogus = 1\n")
	res = runCLI(t, "", "run", path)
	if res.code != 64 || !strings.Contains(res.stderr, "unknown keys") {
		t.Fatalf("code %d stderr %q", res.code, res.stderr)
	}
}

func TestCompileThenRunImage(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "prog.lox", "class A { f() { return \"from image\"; } }\nprint A().f();\n")
	res := runCLI(t, "", "compile", path)
	if res.code != 0 {
		t.Fatalf("compile code = %d, stderr %q", res.code, res.stderr)
	}
	imgPath := filepath.Join(dir, "prog"+image.Ext)
	if res.stdout != "wrote "+imgPath+"\n" {
		t.Fatalf("stdout = %q", res.stdout)
	}

	res = runCLI(t, "", "run", imgPath)
	if res.code != 0 || res.stdout != "from image\n" {
		t.Fatalf("run image: code %d stdout %q stderr %q", res.code, res.stdout, res.stderr)
	}

	bad := writeFile(t, dir, "bad.lox", "var;")
	res = runCLI(t, "", "compile", "-o", filepath.Join(dir, "bad.loxc"), bad)
	if res.code != 65 || !strings.Contains(res.stderr, "Expect variable name.") {
		t.Fatalf("bad compile: code %d stderr %q", res.code, res.stderr)
	}
}

func TestDisasm(t *testing.T) {
	path := writeFile(t, t.TempDir(), "d.lox", "print 1 + 2;")
	res := runCLI(t, "", "disasm", path)
	want := strings.Join([]string{
		"== <script> ==",
		"0000    1 OP_CONSTANT         0 '1'",
		"0002    | OP_CONSTANT         1 '2'",
		"0004    | OP_ADD",
		"0005    | OP_PRINT",
		"0006    | OP_NIL",
		"0007    | OP_RETURN",
		"",
	}, "\n")
	if res.code != 0 || res.stdout != want {
		t.Fatalf("code %d stdout:\n%s\nwant:\n%s", res.code, res.stdout, want)
	}
}

func TestREPLReusesVM(t *testing.T) {
	input := "var a = 1;\nprint a + b;\n\nprint a;\nfun f() { return a * 2; }\nprint f();\n"
	res := runCLI(t, input, "repl")
	if res.code != 0 {
		t.Fatalf("code = %d, stderr %q", res.code, res.stderr)
	}
	if res.stdout != "1\n2\n" {
		t.Fatalf("stdout = %q", res.stdout)
	}
	if res.stderr != "Undefined variable 'b'.\n[line 1] in script\n" {
		t.Fatalf("stderr = %q", res.stderr)
	}
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pass.lox", "print 3; // expect: 3\n")
	res := runCLI(t, "", "check", "-j", "2", dir)
	if res.code != 0 || !strings.Contains(res.stdout, "1 passed, 0 failed") {
		t.Fatalf("code %d stdout %q", res.code, res.stdout)
	}

	writeFile(t, dir, "fail.lox", "print 3; // expect: 4\n")
	res = runCLI(t, "", "check", "--quiet", dir)
	if res.code != 1 {
		t.Fatalf("code = %d, want 1", res.code)
	}
	if strings.Contains(res.stdout, "PASS") || !strings.Contains(res.stdout, "FAIL") || !strings.Contains(res.stdout, "1 passed, 1 failed") {
		t.Fatalf("stdout = %q", res.stdout)
	}
}

func TestVersionCommand(t *testing.T) {
	res := runCLI(t, "", "version", "--format", "json")
	var info struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal([]byte(res.stdout), &info); err != nil || info.Version == "" {
		t.Fatalf("json output %q: %v", res.stdout, err)
	}
	res = runCLI(t, "", "version")
	if !strings.HasPrefix(res.stdout, "loxmin ") {
		t.Fatalf("pretty output = %q", res.stdout)
	}
}

func TestCheckRejectsUIMode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pass.lox", "print 3; // expect: 3\n")
	res := runCLI(t, "", "check", "--ui", "fancy", dir)
	if res.code != 64 || !strings.Contains(res.stderr, "invalid --ui value") {
		t.Fatalf("code %d stderr %q", res.code, res.stderr)
	}
	res = runCLI(t, "", "check", "--ui", "off", dir)
	if res.code != 0 || !strings.Contains(res.stdout, "PASS") {
		t.Fatalf("code %d stdout %q", res.code, res.stdout)
	}
}

func TestProfilingFlags(t *testing.T) {
	dir := t.TempDir()
	script := writeFile(t, dir, "loop.lox", "var s = 0;\nfor (var i = 0; i < 1000; i = i + 1) s = s + i;\nprint s;\n")
	cpu := filepath.Join(dir, "cpu.pprof")
	mem := filepath.Join(dir, "mem.pprof")

	res := runCLI(t, "", "--cpu-profile", cpu, "--mem-profile", mem, "run", script)
	if res.code != 0 || res.stdout != "499500\n" {
		t.Fatalf("code %d stdout %q stderr %q", res.code, res.stdout, res.stderr)
	}
	for _, path := range []string{cpu, mem} {
		if info, err := os.Stat(path); err != nil || info.Size() == 0 {
			t.Fatalf("profile %s missing: %v", filepath.Base(path), err)
		}
	}

	res = runCLI(t, "", "--runtime-trace", filepath.Join(dir, "nope", "run.trace"), "run", script)
	if res.code != 74 {
		t.Fatalf("code = %d, want 74", res.code)
	}
}
