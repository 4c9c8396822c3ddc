package logging

import (
	"bytes"
	"testing"
)

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)

	l.Debug("hidden")
	l.Warn("conflict on delegation d1")
	l.Error("boom")

	want := "warning: conflict on delegation d1\nerror: boom\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestLogger_DebugEnabled(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, true)

	l.Debug("parsed 3 events")

	if buf.String() != "debug: parsed 3 events\n" {
		t.Errorf("output = %q", buf.String())
	}
}
