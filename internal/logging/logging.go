// Package logging configures the component logger. Console output goes to
// stderr because stdout is reserved for sync action results; when the host
// injects a structured log sink address, records are shipped there as well.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	slogseq "github.com/sokkalf/slog-seq"
)

// multiHandler forwards log records to multiple handlers.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// Options select the log level and the optional host sink.
type Options struct {
	Debug bool
	// SinkAddr and SinkPort point at the host log collector. Shipping is
	// skipped when SinkAddr is empty.
	SinkAddr string
	SinkPort string
}

// Setup initializes the component logger and returns it together with a
// close function flushing the sink.
func Setup(opts Options) (*slog.Logger, func()) {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	consoleHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})

	if opts.SinkAddr == "" {
		return slog.New(consoleHandler), func() {}
	}

	endpoint := opts.SinkAddr
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	if opts.SinkPort != "" {
		endpoint = fmt.Sprintf("%s:%s", endpoint, opts.SinkPort)
	}

	_, seqHandler := slogseq.NewLogger(
		endpoint,
		slogseq.WithBatchSize(10),
		slogseq.WithFlushInterval(500*time.Millisecond),
		slogseq.WithHandlerOptions(&slog.HandlerOptions{Level: level}),
	)
	if seqHandler == nil {
		return slog.New(consoleHandler), func() {}
	}

	multi := &multiHandler{handlers: []slog.Handler{consoleHandler, seqHandler}}
	return slog.New(multi), func() { seqHandler.Close() }
}
