package core

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	logger := noopLogger{}
	logger.Debug("msg", "k", "v")
	logger.Info("msg", "k", "v")
	logger.Warn("msg", "k", "v")
	logger.Error("msg", "k", "v")
}

func TestSlogSatisfiesLogger(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	var logger Logger = slog.New(handler)
	svc := NewInMemoryService(NewRulesEngine(), WithLogger(logger))
	if _, _, err := svc.CreateDataset(context.Background(), Dataset{Title: "t"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(buf.String(), "create_dataset") {
		t.Fatalf("expected operation log line, got %s", buf.String())
	}
}
