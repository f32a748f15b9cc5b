package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log output is not JSON: %v (%s)", err, buf.String())
	}
	return record
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_FiltersBelowLevelAndTagsService(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: WARN, Output: &buf, Service: "bookings"})

	log.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info record should be filtered, got %s", buf.String())
	}

	log.Warn("kept")
	record := decodeRecord(t, &buf)
	if record[SERVICE] != "bookings" {
		t.Errorf("service = %v", record[SERVICE])
	}
	if record["msg"] != "kept" {
		t.Errorf("msg = %v", record["msg"])
	}
}

func TestCtx_AddsRequestAndTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(WithRequestID(context.Background(), "req-7"), sc)

	log.Ctx(ctx).Info("booking created")

	record := decodeRecord(t, &buf)
	if record[requestIDAttr] != "req-7" {
		t.Errorf("request_id = %v", record[requestIDAttr])
	}
	if record[traceIDAttr] != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("trace_id = %v", record[traceIDAttr])
	}
	if record[spanIDAttr] != "00f067aa0ba902b7" {
		t.Errorf("span_id = %v", record[spanIDAttr])
	}
}

func TestCtx_EmptyContextReturnsSameLogger(t *testing.T) {
	log := New(Config{})
	if log.Ctx(context.Background()) != log {
		t.Errorf("Ctx() without request data should reuse the logger")
	}
	if RequestID(context.Background()) != EMPTY {
		t.Errorf("RequestID() on empty context should be empty")
	}
}
