package elasticsearch

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const (
	connectMaxRetries   = 10
	connectInitialDelay = 2 * time.Second
	connectMaxDelay     = 30 * time.Second
)

// Connect creates a client and pings it with exponential backoff, then ensures every index exists.
func Connect(ctx context.Context, addr, prefix string, log *slog.Logger) (*Client, error) {
	return connect(ctx, addr, prefix, log, connectMaxRetries, connectInitialDelay)
}

func connect(ctx context.Context, addr, prefix string, log *slog.Logger, maxRetries int, retryDelay time.Duration) (*Client, error) {
	client, err := New(addr, prefix, log)
	if err != nil {
		return nil, err
	}
	log = client.log

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		lastErr = client.Ping(pingCtx)
		cancel()
		if lastErr == nil {
			break
		}

		log.Warn("elasticsearch ping failed, retrying",
			slog.Any("err", lastErr),
			slog.Int("attempt", i+1),
			slog.Int("max_retries", maxRetries),
			slog.Duration("retry_in", retryDelay),
		)

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		retryDelay *= 2
		if retryDelay > connectMaxDelay {
			retryDelay = connectMaxDelay
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("connect to elasticsearch after %d attempts: %w", maxRetries, lastErr)
	}

	log.Info("connected to elasticsearch", slog.String("addr", addr))

	if err := client.EnsureIndices(ctx); err != nil {
		return nil, fmt.Errorf("ensure indices: %w", err)
	}
	return client, nil
}
