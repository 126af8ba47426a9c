package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Writer emits events to an HTTP response, flushing after each one.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter sets the streaming headers on w and returns a Writer for it.
func NewWriter(w http.ResponseWriter) *Writer {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	f, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: f}
}

// WriteJSON writes v as the data of an unnamed event.
func (w *Writer) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("sse: marshal event: %w", err)
	}
	return w.WriteEvent(Event{Data: string(data)})
}

// WriteEvent writes ev verbatim.
func (w *Writer) WriteEvent(ev Event) error {
	if ev.Type != "" {
		if _, err := fmt.Fprintf(w.w, "event: %s\n", ev.Type); err != nil {
			return err
		}
	}
	if ev.ID != "" {
		if _, err := fmt.Fprintf(w.w, "id: %s\n", ev.ID); err != nil {
			return err
		}
	}
	for _, line := range strings.Split(ev.Data, "\n") {
		if _, err := fmt.Fprintf(w.w, "data: %s\n", line); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w.w, "\n"); err != nil {
		return err
	}
	w.Flush()
	return nil
}

// Flush pushes buffered bytes to the client when the writer supports it.
func (w *Writer) Flush() {
	if w.flusher != nil {
		w.flusher.Flush()
	}
}
