package qdrant

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultCollectionName = "langchain"
	DefaultBatchSize      = 100
	DefaultMaxConcurrency = 4
	DefaultRetryAttempts  = 3

	defaultHost          = "localhost"
	defaultPort          = 6334
	defaultRetryDelay    = time.Second
	defaultMaxRetryDelay = 30 * time.Second
)

var ErrInvalidURL = errors.New("qdrant: invalid URL provided")

type options struct {
	collectionName string
	host           string
	port           int
	apiKey         string
	useTLS         bool
	batchSize      int
	maxConcurrency int
	retryAttempts  int
	retryDelay     time.Duration
	logger         *slog.Logger
}

// Option configures the Qdrant store.
type Option func(*options)

func defaultOptions() options {
	return options{
		collectionName: DefaultCollectionName,
		host:           defaultHost,
		port:           defaultPort,
		batchSize:      DefaultBatchSize,
		maxConcurrency: DefaultMaxConcurrency,
		retryAttempts:  DefaultRetryAttempts,
		retryDelay:     defaultRetryDelay,
		logger:         slog.Default(),
	}
}

func WithCollectionName(name string) Option {
	return func(o *options) {
		if name = strings.TrimSpace(name); name != "" {
			o.collectionName = name
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHostAndPort sets the gRPC endpoint of the Qdrant server.
func WithHostAndPort(host string, port int) Option {
	return func(o *options) {
		if host != "" {
			o.host = host
		}
		if port > 0 {
			o.port = port
		}
	}
}

func WithAPIKey(apiKey string) Option {
	return func(o *options) {
		o.apiKey = strings.TrimSpace(apiKey)
	}
}

func WithTLS(useTLS bool) Option {
	return func(o *options) {
		o.useTLS = useTLS
	}
}

// WithBatchSize sets how many points are sent per upsert.
func WithBatchSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.batchSize = size
		}
	}
}

// WithMaxConcurrency bounds the number of upserts in flight.
func WithMaxConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConcurrency = n
		}
	}
}

// WithRetry sets how many times a failed upsert is retried and the first
// backoff delay. The delay grows by half on every attempt.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(o *options) {
		if attempts >= 0 {
			o.retryAttempts = attempts
		}
		if delay > 0 {
			o.retryDelay = delay
		}
	}
}

// WithURL configures the endpoint from a connection string of the form
// qdrant://host:port?api_key=KEY. The qdrants scheme enables TLS.
func WithURL(raw string) (Option, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	switch u.Scheme {
	case "qdrant", "qdrants":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		host = defaultHost
	}
	port := defaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 {
			return nil, fmt.Errorf("%w: invalid port %q", ErrInvalidURL, p)
		}
	}
	apiKey := u.Query().Get("api_key")
	useTLS := u.Scheme == "qdrants"

	return func(o *options) {
		o.host = host
		o.port = port
		o.useTLS = useTLS
		if apiKey != "" {
			o.apiKey = apiKey
		}
	}, nil
}
