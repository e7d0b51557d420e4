package observability

import (
	"log/slog"
	"time"
)

// TimeOperationResult runs fn and records its duration, count and error
// count under the operation tag. logger may be nil.
func TimeOperationResult[R any](logger *slog.Logger, metrics Metrics, operation string, fn func() (R, error)) (R, error) {
	start := time.Now()
	result, err := fn()
	duration := time.Since(start)

	if metrics != nil {
		tag := T("operation", operation)
		metrics.Timing(MetricOperationDuration, duration, tag)
		metrics.Counter(MetricOperationTotal, 1, tag)
		if err != nil {
			metrics.Counter(MetricOperationErrors, 1, tag)
		}
	}

	if logger != nil {
		if err != nil {
			logger.Debug("operation failed", OperationKey, operation, DurationKey, duration.Milliseconds(), ErrorKey, err)
		} else {
			logger.Debug("operation completed", OperationKey, operation, DurationKey, duration.Milliseconds())
		}
	}
	return result, err
}
