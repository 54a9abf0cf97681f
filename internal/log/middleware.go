package log

import (
	"context"
	"log/slog"
	"net/http"
)

// HTTPLogger logs request lifecycle events with the shared field vocabulary.
type HTTPLogger struct {
	logger *Logger
}

func NewHTTPLogger(logger *Logger) *HTTPLogger {
	return &HTTPLogger{logger: logger}
}

// LogRequest logs the completion of an HTTP request, escalating the level for
// client and server errors.
func (hl *HTTPLogger) LogRequest(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithComponent(ComponentHTTP)
	fields[FieldClientIP] = clientIP

	hl.logger.Logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}
