// Package notify surfaces the outcome of mutating plugin operations to
// the user. Every mutating lifecycle operation ends in exactly one event.
package notify

import (
	"time"

	"go.uber.org/zap"
)

// Event is one user-visible notification.
type Event struct {
	Type      string    `json:"type"`
	PluginID  string    `json:"pluginId,omitempty"`
	Message   string    `json:"message"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

// Event types emitted by the lifecycle controller.
const (
	TypeInstalled   = "plugin.installed"
	TypeUninstalled = "plugin.uninstalled"
	TypeActivated   = "plugin.activated"
	TypeDeactivated = "plugin.deactivated"
	TypeSaved       = "plugin.saved"
	TypePublished   = "plugin.published"
	TypeDeleted     = "plugin.deleted"
	TypeError       = "plugin.error"
)

// Sink delivers events to a user's sessions.
type Sink interface {
	Notify(userID string, event Event)
}

// Success builds a success event.
func Success(eventType, pluginID, message string) Event {
	return Event{
		Type:      eventType,
		PluginID:  pluginID,
		Message:   message,
		Success:   true,
		Timestamp: time.Now(),
	}
}

// Failure builds an error event.
func Failure(pluginID, message string) Event {
	return Event{
		Type:      TypeError,
		PluginID:  pluginID,
		Message:   message,
		Success:   false,
		Timestamp: time.Now(),
	}
}

// LogSink writes events to the application log. Used on its own in the
// local-install variant and alongside the websocket hub otherwise.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(userID string, event Event) {
	fields := []zap.Field{
		zap.String("user_id", userID),
		zap.String("type", event.Type),
		zap.String("plugin_id", event.PluginID),
		zap.String("message", event.Message),
	}
	if event.Success {
		s.logger.Info("notification", fields...)
	} else {
		s.logger.Warn("notification", fields...)
	}
}

// MultiSink fans one event out to several sinks.
type MultiSink []Sink

func (m MultiSink) Notify(userID string, event Event) {
	for _, s := range m {
		s.Notify(userID, event)
	}
}
