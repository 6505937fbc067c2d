package jira

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// RequestEvent describes a completed request. It is delivered to observers
// after every executed request, whether it succeeded or not.
type RequestEvent struct {
	ID          string
	URI         string
	Method      string
	Request     *http.Request
	RequestBody []byte
	Response    *Response
	Duration    time.Duration
}

// RequestObserver receives request-completed notifications. Observers are
// called synchronously on the requesting goroutine and must not block.
type RequestObserver interface {
	RequestCompleted(ctx context.Context, event RequestEvent)
}

// RequestObserverFunc adapts a function to RequestObserver.
type RequestObserverFunc func(ctx context.Context, event RequestEvent)

// RequestCompleted calls f.
func (f RequestObserverFunc) RequestCompleted(ctx context.Context, event RequestEvent) {
	f(ctx, event)
}

func (c *Client) notify(ctx context.Context, event RequestEvent) {
	for _, observer := range c.observers {
		observer.RequestCompleted(ctx, event)
	}
}

// LogObserver logs every request with slog.
type LogObserver struct {
	Logger *slog.Logger
}

// NewLogObserver creates a LogObserver. If logger is nil, uses the default
// slog logger.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{Logger: logger}
}

// RequestCompleted logs at debug level, or warn for failures.
func (o *LogObserver) RequestCompleted(ctx context.Context, event RequestEvent) {
	attrs := []slog.Attr{
		slog.String("request_id", event.ID),
		slog.String("method", event.Method),
		slog.String("uri", event.URI),
		slog.Duration("duration", event.Duration),
	}

	level := slog.LevelDebug
	switch {
	case event.Response == nil:
	case event.Response.Err != nil:
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", event.Response.Err.Error()))
	default:
		attrs = append(attrs, slog.Int("status", event.Response.StatusCode))
		if event.Response.StatusCode >= 400 {
			level = slog.LevelWarn
		}
	}

	o.Logger.LogAttrs(ctx, level, "jira request completed", attrs...)
}
