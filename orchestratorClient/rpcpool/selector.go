package rpcpool

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pushchain/orchestrator-rpc/orchestratorClient/errors"
	"github.com/pushchain/orchestrator-rpc/orchestratorClient/transport"
)

// ErrAllEndpointsFailed is returned when every endpoint failed during one
// round-robin cycle.
var ErrAllEndpointsFailed = errors.New("all endpoints failed")

// DialObserver is told about every dial attempt made by ConnectNextAvailable.
// err is nil for a successful dial.
type DialObserver func(index int, url string, err error)

type selectOptions struct {
	dialTimeout time.Duration
	observer    DialObserver
}

// SelectOption configures ConnectNextAvailable
type SelectOption func(*selectOptions)

// WithDialTimeout bounds each individual dial. Zero means no per-dial bound.
func WithDialTimeout(d time.Duration) SelectOption {
	return func(o *selectOptions) { o.dialTimeout = d }
}

// WithDialObserver registers a callback for every dial attempt
func WithDialObserver(fn DialObserver) SelectOption {
	return func(o *selectOptions) { o.observer = fn }
}

// ConnectNextAvailable dials each endpoint exactly once, in list order starting
// at start mod len(endpoints), and returns the absolute index and connection of
// the first one that succeeds.
//
// The returned error wraps ErrAllEndpointsFailed when the whole cycle failed,
// or the context error when ctx ended first.
func ConnectNextAvailable(
	ctx context.Context,
	endpoints []string,
	start int,
	dialer transport.Dialer,
	logger zerolog.Logger,
	opts ...SelectOption,
) (int, transport.Conn, error) {
	if len(endpoints) == 0 {
		return 0, nil, errors.NewValidationError("no RPC endpoints configured")
	}

	var o selectOptions
	for _, opt := range opts {
		opt(&o)
	}

	n := len(endpoints)
	offset := start % n
	if offset < 0 {
		offset += n
	}

	dialErrs := errors.NewErrorGroup()
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}

		idx := (offset + i) % n
		url := endpoints[idx]

		conn, err := dial(ctx, dialer, url, o.dialTimeout)
		if o.observer != nil {
			o.observer(idx, url, err)
		}
		if err != nil {
			logger.Debug().
				Err(err).
				Int("index", idx).
				Str("url", url).
				Msg("failed to connect to RPC endpoint")
			dialErrs.Add(errors.NewNetworkError(url, "dial failed", err))
			continue
		}

		logger.Info().
			Int("index", idx).
			Str("url", url).
			Msg("connected to RPC endpoint")
		return idx, conn, nil
	}

	return 0, nil, errors.NewClientError(
		errors.ErrCodeExhausted,
		"",
		fmt.Sprintf("tried %d endpoints starting at index %d", n, offset),
		fmt.Errorf("%w: %w", ErrAllEndpointsFailed, dialErrs),
	)
}

func dial(ctx context.Context, dialer transport.Dialer, url string, timeout time.Duration) (transport.Conn, error) {
	if timeout <= 0 {
		return dialer.Dial(ctx, url)
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return dialer.Dial(dialCtx, url)
}
