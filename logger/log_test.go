package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestTextLoggerFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := &TextLogger{Level: DEBUG, Writer: &buf}

	l.WithPrefix("gcs").Info("hello %s", "world")

	line := buf.String()
	for _, want := range []string{"INFO", "gcs", "hello world"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %q", line, want)
		}
	}
}

func TestTextLoggerLevelFilter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := &TextLogger{Level: WARN, Writer: &buf}

	l.Debug("quiet")
	l.Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("below-level logs were written: %q", buf.String())
	}

	l.Warn("loud")
	if !strings.Contains(buf.String(), "loud") {
		t.Errorf("warn log missing: %q", buf.String())
	}
}
