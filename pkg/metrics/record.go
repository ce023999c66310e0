package metrics

import (
	"context"
	"time"
)

// RecordEvent records a custom event against the New Relic application in
// ctx. It is a no-op when ctx carries none.
func RecordEvent(ctx context.Context, eventName string, kvPairs map[string]interface{}) {
	if nr, ok := fromContext(ctx); ok {
		nr.RecordCustomEvent(eventName, kvPairs)
	}
}

// RecordDuration records duration in milliseconds under metricName.
func RecordDuration(ctx context.Context, metricName string, duration time.Duration) {
	if nr, ok := fromContext(ctx); ok {
		nr.RecordCustomMetric(metricName, float64(duration.Milliseconds()))
	}
}
