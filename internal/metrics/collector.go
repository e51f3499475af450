package metrics

import (
	"context"
	"log/slog"
	"time"
)

// MappingCounter reports stored mappings per value type.
type MappingCounter interface {
	CountByType(ctx context.Context) (map[string]int64, error)
}

// StartCollector periodically refreshes MappingsTotal until ctx is done.
func StartCollector(ctx context.Context, counter MappingCounter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on startup
	Collect(ctx, counter)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			Collect(ctx, counter)
		}
	}
}

// Collect updates MappingsTotal once.
func Collect(ctx context.Context, counter MappingCounter) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	counts, err := counter.CountByType(ctx)
	if err != nil {
		slog.Debug("failed to count mappings for metrics", "error", err)
		return
	}
	for valueType, n := range counts {
		MappingsTotal.WithLabelValues(valueType).Set(float64(n))
	}
}
