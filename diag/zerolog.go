package diag

import (
	"github.com/rs/zerolog"
)

type zerologSink struct {
	logger zerolog.Logger
}

// NewZerolog reports events into the logger. Accepts and closes are logged at debug
// level, failures at warn or error.
func NewZerolog(logger zerolog.Logger) Sink {
	return zerologSink{logger}
}

func (z zerologSink) Event(e Event) {
	var entry *zerolog.Event

	switch e.Kind {
	case ConnAccepted, ConnClosed:
		entry = z.logger.Debug()
	case ParseError, WriteError:
		entry = z.logger.Warn()
	default:
		entry = z.logger.Error()
	}

	if e.Remote != nil {
		entry = entry.Str("remote", remote(e.Remote))
	}

	if e.Err != nil {
		entry = entry.Err(e.Err)
	}

	if e.Kind == ConnClosed {
		entry = entry.Int("requests", e.Requests).Dur("elapsed", e.Elapsed)
	}

	entry.Msg(e.Kind.String())
}
