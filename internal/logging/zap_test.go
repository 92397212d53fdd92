package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (*ZapLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return NewZapLogger(zap.New(core)), logs
}

func TestZapLogger_Levels(t *testing.T) {
	log, logs := newObservedLogger()
	ctx := context.Background()

	log.Info(ctx, "info msg", "k", "v")
	log.Warn(ctx, "warn msg")
	log.Error(ctx, "error msg")

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Message != "info msg" {
		t.Fatalf("unexpected message: %q", entries[0].Message)
	}
	if got := entries[0].ContextMap()["k"]; got != "v" {
		t.Fatalf("expected field k=v, got %v", got)
	}
	if entries[1].Level != zap.WarnLevel || entries[2].Level != zap.ErrorLevel {
		t.Fatalf("unexpected levels: %v, %v", entries[1].Level, entries[2].Level)
	}
}

func TestZapLogger_With(t *testing.T) {
	log, logs := newObservedLogger()

	child := log.With("module", "test")
	child.Info(context.Background(), "hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["module"]; got != "test" {
		t.Fatalf("expected module=test, got %v", got)
	}
}
