package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs a completed wiki API request
func LogRequest(l Logger, action string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"action":      action,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		l.DebugWithFields("API request completed", fields)
	case statusCode == 429 || (statusCode >= 400 && statusCode < 500):
		l.WarnWithFields("API request client error", fields)
	case statusCode >= 500:
		l.ErrorWithFields("API request server error", fields)
	default:
		l.WarnWithFields("API request failed", fields)
	}
}

// LogRateLimit logs a throttling signal from the wiki
func LogRateLimit(l Logger, action string, retryAfter time.Duration) {
	l.WithFields(map[string]interface{}{
		"action":      action,
		"retry_after": retryAfter,
		"event":       "throttled",
	}).Warn("Wiki throttled request, backing off")
}

// LogStageStart logs the start of a pipeline stage
func LogStageStart(l Logger, stage string, fields map[string]interface{}) {
	l.WithField("stage", stage).InfoWithFields("Stage started", fields)
}

// LogStageComplete logs the end of a pipeline stage
func LogStageComplete(l Logger, stage string, items int, duration time.Duration) {
	l.WithFields(map[string]interface{}{
		"stage":    stage,
		"items":    items,
		"duration": duration,
	}).Info("Stage completed")
}

// LogBatchProgress logs how far a batched stage has progressed
func LogBatchProgress(l Logger, stage string, done, total int) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(done) / float64(total) * 100
	}

	l.WithFields(map[string]interface{}{
		"stage":      stage,
		"done":       done,
		"total":      total,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	}).Info("Batch progress")
}

// LogMetrics logs summary counters for an operation
func LogMetrics(l Logger, operation string, metrics map[string]interface{}) {
	fields := map[string]interface{}{
		"operation": operation,
		"type":      "metrics",
	}
	for k, v := range metrics {
		fields[k] = v
	}
	l.InfoWithFields("Run metrics", fields)
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
