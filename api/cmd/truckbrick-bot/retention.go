package main

import (
	"context"
	"time"

	"truckbrick/api/internal/logger"
)

const retentionEvery = 6 * time.Hour

type purger interface {
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// runRetention deletes archived guides older than maxAge, once at start and then
// on every tick, until ctx is done.
func runRetention(ctx context.Context, repo purger, maxAge, every time.Duration, log logger.Logger) {
	purge := func() {
		pctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		n, err := repo.PurgeOlderThan(pctx, maxAge)
		if err != nil {
			if ctx.Err() == nil {
				log.WithError(err).Warn("guide purge failed", nil)
			}
			return
		}
		if n > 0 {
			log.Info("old guides purged", map[string]interface{}{"deleted": n, "older_than": maxAge.String()})
		}
	}

	purge()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			purge()
		}
	}
}
