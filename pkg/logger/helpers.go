package logger

import (
	"context"

	"github.com/rs/zerolog"
)

// MaskKey hides all but the first and last four characters of a credential
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "********"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// LogUpstreamRequest records one outgoing upstream call and the credential it used
func LogUpstreamRequest(l Logger, url, key string) {
	l.InfoWithFields("upstream request", map[string]interface{}{
		"url":     url,
		"api_key": MaskKey(key),
	})
}

// LogStreamCollected summarizes one finished stream collection
func LogStreamCollected(l Logger, stream string, items, pages int) {
	l.DebugWithFields("stream collected", map[string]interface{}{
		"stream": stream,
		"items":  items,
		"pages":  pages,
	})
}

// ForComponent returns the global logger tagged with a component name
func ForComponent(component string) Logger {
	return GetLogger().WithField("component", component)
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
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
