package notify

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Kind distinguishes the consolidated due notice from the overdue reminder.
type Kind string

const (
	KindDue     Kind = "due"
	KindOverdue Kind = "overdue"
)

// Notification is one email addressed to one user.
type Notification struct {
	ID      string `json:"id"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Text    string `json:"text"`
	UserID  int64  `json:"user_id"`
	Kind    Kind   `json:"kind"`
}

// ToJSON converts the notification to JSON bytes
func (n Notification) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

// NotificationFromJSON creates a notification from JSON bytes
func NotificationFromJSON(data []byte) (Notification, error) {
	var n Notification
	err := json.Unmarshal(data, &n)
	return n, err
}

// Dispatcher delivers a composed notification.
type Dispatcher interface {
	Send(ctx context.Context, n Notification) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, n Notification) error

func (f DispatcherFunc) Send(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// LogDispatcher logs notifications instead of sending them.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Send(ctx context.Context, n Notification) error {
	d.logger.InfoContext(ctx, "Notification (log transport)",
		"id", n.ID,
		"to", n.To,
		"user_id", n.UserID,
		"kind", n.Kind,
		"subject", n.Subject,
		"text_bytes", len(n.Text))
	return nil
}
