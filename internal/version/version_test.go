package version

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func withNoColor(t *testing.T) {
	t.Helper()
	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })
}

func TestColoredPlain(t *testing.T) {
	withNoColor(t)
	if got := Colored(); got != Version {
		t.Fatalf("Colored() = %q, want %q", got, Version)
	}
}

func TestColoredKeepsSuffix(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })
	origNoColor := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = origNoColor })

	Version = "1.2.3-rc1"
	got := Colored()
	if !strings.HasSuffix(got, "-rc1") {
		t.Fatalf("Colored() = %q, want suffix -rc1", got)
	}
	if !strings.Contains(got, "\x1b[") {
		t.Fatalf("Colored() = %q, want escape codes", got)
	}
}

func TestStringIncludesBuildInfo(t *testing.T) {
	withNoColor(t)
	origCommit, origDate := GitCommit, BuildDate
	t.Cleanup(func() { GitCommit, BuildDate = origCommit, origDate })

	GitCommit = "abc123"
	BuildDate = "2026-01-15T10:30:00Z"
	got := String()
	want := "loxmin " + Version + " (abc123) built 2026-01-15T10:30:00Z"
	if got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}

func TestJSON(t *testing.T) {
	data, err := JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if info.Version != Version || info.GoVersion == "" {
		t.Fatalf("info = %+v", info)
	}
}
