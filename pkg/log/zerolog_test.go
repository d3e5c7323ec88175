package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(zerolog.New(&buf))

	l.Info("deferred commit",
		Minor(7),
		Priority("low"),
		Bytes(30),
		Session(42),
		Duration("delay", 5*time.Second),
		Err(errors.New("boom")),
	)

	out := buf.String()
	for _, want := range []string{
		`"minor":7`,
		`"priority":"low"`,
		`"bytes":30`,
		`"session":42`,
		`"error":"boom"`,
		`"message":"deferred commit"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %s", out, want)
		}
	}
}

func TestConsoleAdapter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleAdapter(&buf, zerolog.WarnLevel)

	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}

	l.Warn("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("warn message not written: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"loud", zerolog.NoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
