package nekocache

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/LavishGent/nekocache/internal/storage"
	"github.com/LavishGent/nekocache/internal/types"
)

type clientOptions struct {
	logger       *zerolog.Logger
	metrics      MetricsRecorder
	publisher    Publisher
	serializer   Serializer
	httpClient   *http.Client
	store        storage.BlobStore
	backend      string
	redisAddress string
	noResilience bool
}

// Option configures a Client.
type Option func(*clientOptions)

// WithLogger replaces the logger built from the logging config.
func WithLogger(log zerolog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = &log
	}
}

// WithMetrics sends entry cache, storage and fetch events to metrics
// instead of the built-in tracker.
func WithMetrics(metrics MetricsRecorder) Option {
	return func(o *clientOptions) {
		o.metrics = metrics
	}
}

// WithPublisher replaces the publisher selected by the metrics config.
func WithPublisher(publisher Publisher) Option {
	return func(o *clientOptions) {
		o.publisher = publisher
	}
}

func WithSerializer(serializer Serializer) Option {
	return func(o *clientOptions) {
		o.serializer = serializer
	}
}

// WithHTTPClient is used for both upstream APIs.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = hc
	}
}

// WithStore persists the entry table in store instead of the configured backend.
// The client closes it.
func WithStore(store BlobStore) Option {
	return func(o *clientOptions) {
		o.store = store
	}
}

func WithStorageBackend(backend string) Option {
	return func(o *clientOptions) {
		o.backend = backend
	}
}

func WithRedisAddress(addr string) Option {
	return func(o *clientOptions) {
		o.redisAddress = addr
		if o.backend == "" {
			o.backend = types.BackendRedis.String()
		}
	}
}

// WithoutResilience turns off the circuit breaker and the bulkhead.
func WithoutResilience() Option {
	return func(o *clientOptions) {
		o.noResilience = true
	}
}
