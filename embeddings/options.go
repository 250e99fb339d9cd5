package embeddings

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

type options struct {
	StripNewLines  bool
	BatchSize      int
	MaxConcurrency int
	Limiter        *rate.Limiter
	Timeout        time.Duration
	Logger         *slog.Logger
}

type Option func(*options)

func defaultOptions() options {
	return options{
		StripNewLines:  true,
		BatchSize:      32,
		MaxConcurrency: 8,
		Logger:         slog.Default(),
	}
}

func WithBatchSize(size int) Option {
	return func(opts *options) {
		opts.BatchSize = size
	}
}

func WithStripNewLines(strip bool) Option {
	return func(opts *options) {
		opts.StripNewLines = strip
	}
}

// WithMaxConcurrency bounds how many batches are in flight at once.
func WithMaxConcurrency(n int) Option {
	return func(opts *options) {
		opts.MaxConcurrency = n
	}
}

// WithRateLimit allows at most perMinute provider calls per minute.
// Zero or a negative value disables throttling.
func WithRateLimit(perMinute int) Option {
	return func(opts *options) {
		if perMinute <= 0 {
			opts.Limiter = nil
			return
		}
		opts.Limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
}

// WithTimeout bounds each provider call. Zero disables the limit.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		if timeout >= 0 {
			opts.Timeout = timeout
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		if logger != nil {
			opts.Logger = logger
		}
	}
}
