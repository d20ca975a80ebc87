package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tazhibayda/posts-service/internal/log"
	"github.com/tazhibayda/posts-service/internal/metrics"
)

// ExpireDue flips every Live post whose expiration time has passed.
func (s *Posts) ExpireDue(ctx context.Context) (int64, error) {
	n, err := s.Store.ExpireDue(ctx, s.now())
	if err != nil {
		return 0, storeError("expire due posts", err)
	}
	if n > 0 {
		metrics.PostsExpired.WithLabelValues("sweep").Add(float64(n))
	}
	return n, nil
}

// RunSweeper calls ExpireDue every interval until ctx is done. It is off
// unless configured: by default expiration is only evaluated on access.
func (s *Posts) RunSweeper(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.ExpireDue(ctx)
			if err != nil {
				log.L().Error("expiry sweep", zap.Error(err))
				continue
			}
			if n > 0 {
				log.L().Info("expiry sweep", zap.Int64("expired", n))
			}
		}
	}
}
