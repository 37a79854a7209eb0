package diag

import (
	"context"
	"log/slog"
)

type slogSink struct {
	logger *slog.Logger
}

// NewSlog reports events into the structured logger.
func NewSlog(logger *slog.Logger) Sink {
	return slogSink{logger}
}

func (s slogSink) Event(e Event) {
	level := slog.LevelError
	switch e.Kind {
	case ConnAccepted, ConnClosed:
		level = slog.LevelDebug
	case ParseError, WriteError:
		level = slog.LevelWarn
	}

	attrs := make([]slog.Attr, 0, 4)
	if e.Remote != nil {
		attrs = append(attrs, slog.String("remote", remote(e.Remote)))
	}

	if e.Err != nil {
		attrs = append(attrs, slog.String("error", e.Err.Error()))
	}

	if e.Kind == ConnClosed {
		attrs = append(attrs, slog.Int("requests", e.Requests), slog.Duration("elapsed", e.Elapsed))
	}

	s.logger.LogAttrs(context.Background(), level, e.Kind.String(), attrs...)
}
