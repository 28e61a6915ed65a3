package aggregator

import (
	"context"
	"time"

	"feed_aggregator/internal/logger"
	"feed_aggregator/internal/models"
)

// StartPolling строит ленту сразу и затем каждые interval, передавая каждую новую ленту в sink.
// Прогоны не пересекаются; выход — по отмене ctx.
func StartPolling(ctx context.Context, b Builder, interval time.Duration, sink func(models.Timeline)) {
	log := logger.Log.WithFields(logger.Fields{
		"service":  "poller",
		"interval": interval.String(),
	})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		log.Debug("Starting new polling cycle")
		timeline := b.Build(ctx)
		if ctx.Err() != nil {
			log.Info("Stopping poller by context")
			return
		}
		sink(timeline)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			log.Info("Stopping poller by context")
			return
		}
	}
}
