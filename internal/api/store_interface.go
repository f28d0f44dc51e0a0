package api

import (
	"context"
	"time"

	"github.com/soaringjerry/epds/internal/platform/logger"
	"github.com/soaringjerry/epds/internal/services"
)

// Store is a session backend the server can own and shut down.
type Store interface {
	services.SessionStore
	Close() error
}

// Sweeper is implemented by backends that need expired rows removed
// explicitly. Redis expires keys by itself and does not implement it.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// RunJanitor sweeps s every interval until ctx is done.
func RunJanitor(ctx context.Context, s Sweeper, every time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx)
			if err != nil {
				log.Warn("session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				log.Debug("expired sessions removed", "count", n)
			}
		}
	}
}
