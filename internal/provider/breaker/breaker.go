package breaker

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"cmcproxy/internal/provider"
)

// Config controls when the breaker trips.
type Config struct {
	// Failures is the number of consecutive upstream failures that opens the breaker.
	Failures int
	// OpenTimeout is how long the breaker stays open before a trial request.
	OpenTimeout time.Duration
}

// Provider wraps a provider.Provider and fails fast while the upstream is down.
// Only transport failures and 5xx answers count against the upstream; caller
// mistakes reported by CMC (4xx, embedded errors) do not.
type Provider struct {
	P  provider.Provider
	cb *gobreaker.CircuitBreaker
}

func New(p provider.Provider, cfg Config, logger *zap.Logger) *Provider {
	if cfg.Failures <= 0 {
		cfg.Failures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	failures := uint32(cfg.Failures) //nolint:gosec // positive, checked above
	settings := gobreaker.Settings{
		Name:        p.Name(),
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return !countsAsFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &Provider{P: p, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *Provider) Name() string { return b.P.Name() }

func (b *Provider) Latest(ctx context.Context, q provider.Query) ([]byte, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.P.Latest(ctx, q)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &provider.NetworkError{Err: err}
		}
		return nil, err
	}
	return out.([]byte), nil
}

// State reports the current breaker state, e.g. "closed" or "open".
func (b *Provider) State() string { return b.cb.State().String() }

func countsAsFailure(err error) bool {
	// A caller that went away says nothing about the upstream.
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *provider.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError
	}
	var netErr *provider.NetworkError
	return errors.As(err, &netErr)
}
