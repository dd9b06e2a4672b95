// Package logging builds the process logger and carries it through
// context.Context.
package logging

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// New creates a logger writing to w with "HH:MM:SS.ms" timestamps.
func New(w io.Writer, verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

type ctxKey int

const loggerKey ctxKey = 0

// WithLogger returns a copy of ctx carrying l.
func WithLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger attached to ctx, or log.Default().
func FromContext(ctx context.Context) *log.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
			return l
		}
	}
	return log.Default()
}

// Progress logs the completion of an operation with its elapsed time.
type Progress struct {
	logger *log.Logger
	start  time.Time
}

// Start begins timing an operation.
func Start(l *log.Logger) *Progress {
	return &Progress{logger: l, start: time.Now()}
}

// Done logs msg with the elapsed time, e.g. "Built 42 pages (1.234s)".
func (p *Progress) Done(msg string, keyvals ...any) {
	p.logger.Info(msg, append([]any{"elapsed", p.Elapsed().Round(time.Millisecond)}, keyvals...)...)
}

// Elapsed returns the time since Start.
func (p *Progress) Elapsed() time.Duration { return time.Since(p.start) }
