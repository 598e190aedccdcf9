package driver_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"loxmin/internal/driver"
	"loxmin/internal/vm"
)

func TestExpectations(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []string
	}{
		{
			name: "output",
			src:  "print 1; // expect: 1\nprint \"a b\"; // expect: a b\n",
			want: []string{"1", "a b"},
		},
		{
			name: "runtime error",
			src:  "var a;\na.b; // expect runtime error: Only instances have properties.\n",
			want: []string{"Only instances have properties.", "[line 2] in script"},
		},
		{
			name: "compile errors",
			src:  "var = 1; // Error at '=': Expect variable name.\n// [line 3] Error at end: Expect '}' after block.\n// [java line 3] Error at end: ignored\n{\n",
			want: []string{"[line 1] Error at '=': Expect variable name.", "[line 3] Error at end: Expect '}' after block."},
		},
		{
			name: "c line",
			src:  "// [c line 2] Error at 'x': Expect ';' after value.\n",
			want: []string{"[line 2] Error at 'x': Expect ';' after value."},
		},
		{
			name: "normalised",
			src:  "print \"cafe\u0301\"; // expect: caf\u00e9\n",
			want: []string{"caf\u00e9"},
		},
		{
			name: "no output",
			src:  "var a = 1;\n",
			want: []string{""},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := driver.Expectations([]byte(tt.src))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Expectations = %q, want %q", got, tt.want)
			}
		})
	}
}

func writeScripts(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestCheck(t *testing.T) {
	dir := writeScripts(t, map[string]string{
		"a_print.lox":          "print 1 + 2; // expect: 3\n",
		"b_runtime.lox":        "print \"ok\"; // expect: ok\nnil();      // expect runtime error: Can only call functions and classes.\n",
		"c_compile.lox":        "print 1 +; // Error at ';': Expect expression.\n",
		"d_wrong.lox":          "print 1; // expect: 2\n",
		"e_silent.lox":         "var x = 1;\n",
		"g_accent.lox":         "print \"cafe\u0301\"; // expect: caf\u00e9\n",
		"nested/f_closure.lox": "fun f() { var a = 1; fun g() { return a; } return g; }\nprint f()(); // expect: 1\n",
		"_skip/broken.lox":     "print; // expect: never\n",
		"notes.txt":            "not a script",
	})

	paths, err := driver.ListScripts([]string{dir})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(paths) != 7 {
		t.Fatalf("scripts = %v, want 7", paths)
	}

	results, err := driver.Check(context.Background(), paths, driver.CheckOptions{Jobs: 3, VM: vm.Options{StressGC: true}})
	if err != nil {
		t.Fatalf("check: %v", err)
	}

	want := map[string]bool{
		"a_print.lox":   true,
		"b_runtime.lox": true,
		"c_compile.lox": true,
		"d_wrong.lox":   false,
		"e_silent.lox":  true,
		"f_closure.lox": true,
		"g_accent.lox":  true,
	}
	for i := range results {
		r := &results[i]
		if r.Path != paths[i] {
			t.Fatalf("result %d path = %s, want %s", i, r.Path, paths[i])
		}
		name := filepath.Base(r.Path)
		if r.Passed() != want[name] {
			t.Fatalf("%s: passed = %v, want %v (%s)", name, r.Passed(), want[name], r.Mismatch())
		}
		if !r.Passed() && r.Mismatch() == "" {
			t.Fatalf("%s: failing result without mismatch", name)
		}
	}
}

func TestCheckMissingFile(t *testing.T) {
	results, err := driver.Check(context.Background(), []string{filepath.Join(t.TempDir(), "gone.lox")}, driver.CheckOptions{})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(results) != 1 || results[0].Passed() || results[0].Bag == nil {
		t.Fatalf("results = %+v", results)
	}
}

func TestListScriptsDedup(t *testing.T) {
	dir := writeScripts(t, map[string]string{"one.lox": "print 1;\n"})
	file := filepath.Join(dir, "one.lox")
	paths, err := driver.ListScripts([]string{dir, file})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(paths, []string{file}) {
		t.Fatalf("paths = %v", paths)
	}
}

func TestCheckEvents(t *testing.T) {
	dir := writeScripts(t, map[string]string{
		"ok.lox":  "print 1; // expect: 1\n",
		"bad.lox": "print 1; // expect: 2\n",
	})
	paths, err := driver.ListScripts([]string{dir})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	events := make(chan driver.CheckEvent, 2*len(paths))
	if _, err := driver.Check(context.Background(), paths, driver.CheckOptions{Jobs: 2, Events: events}); err != nil {
		t.Fatalf("check: %v", err)
	}
	close(events)

	final := map[string]driver.CheckStatus{}
	running := 0
	for ev := range events {
		if ev.Status == driver.CheckRunning {
			running++
			continue
		}
		final[filepath.Base(ev.Path)] = ev.Status
	}
	if running != 2 {
		t.Fatalf("running events = %d, want 2", running)
	}
	if final["ok.lox"] != driver.CheckPassed || final["bad.lox"] != driver.CheckFailed {
		t.Fatalf("final statuses = %v", final)
	}
}
