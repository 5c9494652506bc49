// Package notify publishes best-effort domain events. Delivery is not
// guaranteed and publishing never blocks or fails the caller.
package notify

import (
	"context"
	"time"
)

// Event types.
const (
	EventUploadCompleted = "upload.completed"
	EventUploadCancelled = "upload.cancelled"
	EventFileDownloaded  = "file.downloaded"
	EventFileSummarized  = "file.summarized"
)

// Event is the wire payload of a notification.
type Event struct {
	Type      string         `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	Source    string         `json:"source"`
	UserID    string         `json:"user_id,omitempty"`
	Data      map[string]any `json:"data"`
}

// Publisher accepts events for delivery.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) {}
