package config

import (
	"io"
	"time"

	json "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

type (
	BufferSize struct {
		// Initial is the capacity every connection's read buffer starts with.
		Initial int
		// Maximal is the hard upper bound the read buffer may grow to. A request line,
		// a header line or a body which doesn't fit into it is rejected.
		Maximal int
	}

	Headers struct {
		// MaxNumber is the maximal number of headers a single request may carry.
		MaxNumber int
		// Prealloc is the initial number of seats for request and response headers.
		Prealloc int
		// MaxInterned limits how many distinct non-standard header names are interned
		// process-wide. Names past the limit are still accepted, just not cached.
		MaxInterned int
	}

	Body struct {
		// MaxSize is the maximal accepted Content-Length value.
		MaxSize int
	}

	URI struct {
		// ParamsPrealloc for http.Request.Query.
		ParamsPrealloc int
		// SegmentsPrealloc for http.Request.Segments.
		SegmentsPrealloc int
	}

	NET struct {
		// ReadTimeout controls the maximal lifetime of IDLE connections. If no data was
		// received in this period of time, the connection is closed.
		ReadTimeout time.Duration
		// WriteTimeout limits how long a single response commit may take.
		WriteTimeout time.Duration
		// AcceptLoopInterruptPeriod controls how often will the Accept() call be interrupted
		// in order to check whether it's time to stop.
		AcceptLoopInterruptPeriod time.Duration
		// ReusePort binds listeners with SO_REUSEPORT, so multiple processes may share a port.
		ReusePort bool `test:"nullable"`
		// Compression enables gzip for byte bodies if the client accepts it.
		Compression bool `test:"nullable"`
		// SmallBody is the minimal size of a body to be compressed.
		SmallBody int
	}
)

// Config holds limits and pre-allocations used across the engine.
//
// You must ALWAYS modify defaults (returned via Default()) and NEVER try to initialize the
// config manually, because zero limits reject every request.
type Config struct {
	Buffer  BufferSize
	Headers Headers
	Body    Body
	URI     URI
	NET     NET
}

// Default returns default config.
func Default() *Config {
	return &Config{
		Buffer: BufferSize{
			Initial: 4 * 1024,
			// a request line or a single header must fit in 16kb, which is fairly tolerant,
			// as most web-entities limit it to 4-8kb.
			Maximal: 16 * 1024,
		},
		Headers: Headers{
			MaxNumber:   50,
			Prealloc:    10,
			MaxInterned: 4096,
		},
		Body: Body{
			// bodies are read into the connection buffer as a whole, so they can't exceed it.
			MaxSize: 16 * 1024,
		},
		URI: URI{
			ParamsPrealloc:   5,
			SegmentsPrealloc: 8,
		},
		NET: NET{
			ReadTimeout:               90 * time.Second,
			WriteTimeout:              30 * time.Second,
			AcceptLoopInterruptPeriod: 5 * time.Second,
			SmallBody:                 4 * 1024,
		},
	}
}

// FromJSON overlays the JSON document on top of defaults. Durations are accepted in
// nanoseconds, as encoding of time.Duration is.
func FromJSON(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := json.ConfigCompatibleWithStandardLibrary.NewDecoder(r).Decode(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	return cfg, cfg.Validate()
}

// Validate reports whether the config can actually be used.
func (c *Config) Validate() error {
	switch {
	case c.Buffer.Initial <= 0:
		return errors.New("buffer initial size must be positive")
	case c.Buffer.Initial > c.Buffer.Maximal:
		return errors.Errorf(
			"buffer initial size (%d) exceeds the maximal one (%d)", c.Buffer.Initial, c.Buffer.Maximal,
		)
	case c.Body.MaxSize > c.Buffer.Maximal:
		return errors.Errorf(
			"body max size (%d) exceeds buffer maximal size (%d)", c.Body.MaxSize, c.Buffer.Maximal,
		)
	case c.Headers.MaxNumber <= 0:
		return errors.New("headers max number must be positive")
	}

	return nil
}
