package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestStatusWriter(t *testing.T) {
	var buf bytes.Buffer
	sw := NewStatusWriter(&buf, "Fetching toolchain catalog")
	time.Sleep(250 * time.Millisecond)

	ran := sw.Stop()
	if ran < 250*time.Millisecond {
		t.Errorf("expected Stop to report at least 250ms, got %s", ran)
	}
	out := buf.String()
	if !strings.Contains(out, "Fetching toolchain catalog") {
		t.Errorf("expected spinner message in output %q", out)
	}
	if !strings.HasSuffix(out, "\r\033[K") {
		t.Errorf("expected line to be cleared on stop, got %q", out)
	}

	written := buf.Len()
	sw.Stop()
	if buf.Len() != written {
		t.Error("expected second Stop to write nothing")
	}
}
