// Package utils holds small HTTP helpers shared by the handlers.
package utils

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SSEWriter emits the data-only server-sent-event framing used by the chat
// stream: `data: <json>` per event, blank-line separated, terminated by a
// `data: [DONE]` sentinel.
type SSEWriter struct {
	writer  gin.ResponseWriter
	flusher http.Flusher
}

func NewSSEWriter(c *gin.Context) (*SSEWriter, error) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported by response writer")
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	return &SSEWriter{
		writer:  c.Writer,
		flusher: flusher,
	}, nil
}

// WriteData writes one event frame and flushes immediately.
func (w *SSEWriter) WriteData(payload []byte) error {
	if _, err := fmt.Fprintf(w.writer, "data: %s\n\n", payload); err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}

// Close writes the terminal sentinel.
func (w *SSEWriter) Close() error {
	if _, err := fmt.Fprint(w.writer, "data: [DONE]\n\n"); err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}
