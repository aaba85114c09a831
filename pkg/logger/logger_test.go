package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := context.Background()
	ctx = log.WithUserID(ctx, "user-123")
	ctx = log.WithComponent(ctx, "cart")

	log.Error(ctx, "boom", errors.New("boom"))

	if !bytes.Contains(buf.Bytes(), []byte("\"user_id\"")) {
		t.Fatalf("expected user_id to be preserved; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("\"component\"")) {
		t.Fatalf("expected component to be preserved; entry=%s", buf.String())
	}
}

func TestLoggerWithFieldsDoesNotMutateParentContext(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	parent := context.Background()
	_ = log.WithFields(parent, map[string]any{"operation": "add_item"})

	log.Info(parent, "plain entry")
	if bytes.Contains(buf.Bytes(), []byte("\"operation\"")) {
		t.Fatalf("parent context should not carry derived fields; entry=%s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected default info level, got %v", lvl)
	}
	if lvl := ParseLevel("warn"); lvl != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %v", lvl)
	}
	if lvl := ParseLevel("not-a-level"); lvl != zerolog.InfoLevel {
		t.Fatalf("invalid level should fall back to info, got %v", lvl)
	}
}
