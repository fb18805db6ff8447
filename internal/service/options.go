package service

import (
	"io"
	"log/slog"

	"github.com/alexanderramin/awp4d/internal/repository"
	"github.com/jonboulle/clockwork"
)

// Option configures the ambient collaborators of a service.
type Option func(*serviceConfig)

type serviceConfig struct {
	logger      *slog.Logger
	observer    UseCaseObserver
	clock       clockwork.Clock
	isTransient func(error) bool
}

func newServiceConfig(opts []Option) serviceConfig {
	cfg := serviceConfig{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		observer:    NoopUseCaseObserver{},
		clock:       clockwork.NewRealClock(),
		isTransient: repository.IsTransient,
	}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// WithLogger sets the logger for row-level diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *serviceConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver sets the use-case observer.
func WithObserver(observers ...UseCaseObserver) Option {
	return func(c *serviceConfig) {
		c.observer = useCaseObserverOrNoop(observers)
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *serviceConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithTransientClassifier replaces the retry classifier used by the
// property writer.
func WithTransientClassifier(fn func(error) bool) Option {
	return func(c *serviceConfig) {
		if fn != nil {
			c.isTransient = fn
		}
	}
}
