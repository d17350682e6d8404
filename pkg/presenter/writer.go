package presenter

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Writer prints each status text as a line on its own Loop.
type Writer struct {
	loop   *Loop
	out    io.Writer
	prefix string
	stamp  bool
	logger *slog.Logger
}

// WriterOption customizes a Writer.
type WriterOption func(*Writer)

// WithPrefix prepends prefix to every line.
func WithPrefix(prefix string) WriterOption {
	return func(w *Writer) { w.prefix = prefix }
}

// WithTimestamp prefixes every line with the render time.
func WithTimestamp() WriterOption {
	return func(w *Writer) { w.stamp = true }
}

// WithLogger sets the logger used for write failures.
func WithLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) { w.logger = logger }
}

// NewWriter creates a Writer with its own loop.
func NewWriter(out io.Writer, opts ...WriterOption) *Writer {
	w := &Writer{
		loop:   NewLoop(),
		out:    out,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Render writes text synchronously on the writer's loop.
func (w *Writer) Render(text string) {
	err := w.loop.Do(func() {
		line := w.prefix + text
		if w.stamp {
			line = time.Now().Format(time.RFC3339) + " " + line
		}
		if _, err := fmt.Fprintln(w.out, line); err != nil {
			w.logger.Warn("Failed to write status", "error", err)
		}
	})
	if err != nil {
		w.logger.Debug("Render after close dropped", "text", text)
	}
}

// Available reports whether the writer is still open.
func (w *Writer) Available() bool {
	return !w.loop.Closed()
}

// Close disposes the writer.
func (w *Writer) Close() {
	w.loop.Close()
}
