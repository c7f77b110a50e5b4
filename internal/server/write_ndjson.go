package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"example.com/aioforge/internal/rules"
)

// NDJSONWriter serializes values onto an HTTP response one JSON object
// per line. Verification streams diagnostics through it while the run
// is still in progress, so every line is flushed as soon as it is
// written.
type NDJSONWriter struct {
	mu   sync.Mutex
	resp http.ResponseWriter
	out  *json.Encoder
}

func NewNDJSONWriter(w http.ResponseWriter) *NDJSONWriter {
	return &NDJSONWriter{resp: w, out: json.NewEncoder(w)}
}

// WriteDiagnostic emits one finding as an NDJSON record.
func (w *NDJSONWriter) WriteDiagnostic(d rules.Diagnostic) error {
	return w.WriteObject(d)
}

// WriteObject writes v as one line and pushes it to the client.
func (w *NDJSONWriter) WriteObject(v any) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	// Encode appends the newline NDJSON requires.
	if err := w.out.Encode(v); err != nil {
		return err
	}
	if f, ok := w.resp.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
