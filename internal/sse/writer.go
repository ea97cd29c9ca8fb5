// Package sse writes the fit-check pipeline's progress as Server-Sent
// Events. There is no established third-party SSE library in wide use for a
// wire format this thin (three lines of framing per event); the stdlib
// http.Flusher-based writer below is the idiomatic choice here.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/fitcheck/engine/internal/pipeline"
)

// Writer emits SSE frames to an http.ResponseWriter, flushing after every
// event so the browser sees each one immediately rather than buffered.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
	step    int
}

// NewWriter sets the SSE response headers and returns a Writer. Returns an
// error if the ResponseWriter doesn't support flushing (required for
// streaming).
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("sse: response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Writer{w: w, flusher: flusher}, nil
}

func (w *Writer) emit(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("sse: marshal payload", zap.String("event", event), zap.Error(err))
		return
	}
	if _, err := fmt.Fprintf(w.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		zap.L().Warn("sse: write event", zap.String("event", event), zap.Error(err))
		return
	}
	w.flusher.Flush()
}

// Status implements pipeline.EventSink.
func (w *Writer) Status(status, message string) {
	w.emit("status", map[string]string{"status": status, "message": message})
}

// PhaseStart implements pipeline.EventSink.
func (w *Writer) PhaseStart(phase string) {
	w.emit("phase_start", map[string]string{"phase": phase})
}

// PhaseComplete implements pipeline.EventSink.
func (w *Writer) PhaseComplete(phase string, data map[string]any) {
	w.emit("phase_complete", map[string]any{"phase": phase, "data": data})
}

// Thought implements pipeline.EventSink.
func (w *Writer) Thought(step int, kind, tool, input, content string) {
	payload := map[string]any{"step": step, "type": kind}
	if tool != "" {
		payload["tool"] = tool
	}
	if input != "" {
		payload["input"] = input
	}
	if content != "" {
		payload["content"] = content
	}
	w.emit("thought", payload)
}

// ResponseChunk implements pipeline.EventSink.
func (w *Writer) ResponseChunk(chunk string) {
	w.emit("response", map[string]string{"chunk": chunk})
}

// Complete implements pipeline.EventSink.
func (w *Writer) Complete(durationMs int64, finalStatus string) {
	w.emit("complete", map[string]any{"duration_ms": durationMs, "final_status": finalStatus})
}

// Error implements pipeline.EventSink.
func (w *Writer) Error(code, message string) {
	w.emit("error", map[string]string{"code": code, "message": message})
}

var _ pipeline.EventSink = (*Writer)(nil)
