package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"loxmin/internal/driver"
)

func update(t *testing.T, m tea.Model, msg tea.Msg) *checkModel {
	t.Helper()
	next, _ := m.Update(msg)
	cm, ok := next.(*checkModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return cm
}

func TestCheckModelCountsResults(t *testing.T) {
	files := []string{"a.lox", "b.lox", "c.lox"}
	m := NewCheckModel("check", files, nil)

	cm := update(t, m, eventMsg{Path: "a.lox", Status: driver.CheckRunning})
	cm = update(t, cm, eventMsg{Path: "a.lox", Status: driver.CheckPassed})
	cm = update(t, cm, eventMsg{Path: "b.lox", Status: driver.CheckRunning})
	cm = update(t, cm, eventMsg{Path: "c.lox", Status: driver.CheckFailed})
	// unknown paths and late events for finished scripts are ignored
	cm = update(t, cm, eventMsg{Path: "zzz.lox", Status: driver.CheckFailed})
	cm = update(t, cm, eventMsg{Path: "a.lox", Status: driver.CheckRunning})

	if cm.passed != 1 || cm.failed != 1 {
		t.Fatalf("passed %d failed %d", cm.passed, cm.failed)
	}
	if cm.items[0].status != driver.CheckPassed {
		t.Fatalf("a.lox status = %v", cm.items[0].status)
	}

	view := cm.View()
	for _, want := range []string{"check (2/3)", "running", "b.lox", "fail", "c.lox", "1 passed", "1 failed"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "a.lox") {
		t.Fatalf("passed script listed:\n%s", view)
	}
}

func TestCheckModelQuitsWhenEventsClose(t *testing.T) {
	events := make(chan driver.CheckEvent)
	close(events)
	m := NewCheckModel("check", []string{"a.lox"}, events).(*checkModel)

	msg := m.listenForEvent()()
	if _, ok := msg.(doneMsg); !ok {
		t.Fatalf("closed channel produced %T", msg)
	}
	cm := update(t, m, msg)
	if !cm.done || !strings.Contains(cm.View(), "done: check") {
		t.Fatalf("model not done:\n%s", cm.View())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short.lox", 20); got != "short.lox" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("a/very/long/path/to/script.lox", 12); len(got) > 12 || !strings.HasSuffix(got, "...") {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("abcdef", 3); got != "abc" {
		t.Fatalf("truncate = %q", got)
	}
}
