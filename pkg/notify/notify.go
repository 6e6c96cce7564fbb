// Package notify delivers one-shot user-facing notifications (the toast of a
// browser UI) and renders their message templates.
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is a single message surfaced to the user.
type Notification struct {
	Level   Level
	Title   string
	Message string
	// Details carries field-level messages, e.g. server validation errors.
	Details map[string][]string
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function into a Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify calls fn.
func (fn NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return fn(ctx, n)
}

// Discard drops every notification.
var Discard Notifier = NotifierFunc(func(context.Context, Notification) error { return nil })

// LogNotifier writes notifications to a zap logger.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier returns a notifier backed by logger; nil uses a no-op logger.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs n at a level matching its severity.
func (l *LogNotifier) Notify(_ context.Context, n Notification) error {
	fields := []zap.Field{
		zap.String("level", string(n.Level)),
		zap.String("title", n.Title),
	}
	if len(n.Details) > 0 {
		fields = append(fields, zap.Any("details", n.Details))
	}
	switch n.Level {
	case LevelError:
		l.logger.Error(n.Message, fields...)
	case LevelWarning:
		l.logger.Warn(n.Message, fields...)
	default:
		l.logger.Info(n.Message, fields...)
	}
	return nil
}

// Theme captures message prefixes for terminal output.
type Theme struct {
	SuccessPrefix string
	InfoPrefix    string
	WarningPrefix string
	ErrorPrefix   string
}

// DefaultTheme is used by WriterNotifier when no theme is supplied.
var DefaultTheme = Theme{
	SuccessPrefix: "✔ ",
	InfoPrefix:    "• ",
	WarningPrefix: "! ",
	ErrorPrefix:   "✘ ",
}

// WriterNotifier prints notifications as lines of text.
type WriterNotifier struct {
	mu    sync.Mutex
	out   io.Writer
	theme Theme
}

// NewWriterNotifier prints to out using theme.
func NewWriterNotifier(out io.Writer, theme Theme) *WriterNotifier {
	return &WriterNotifier{out: out, theme: theme}
}

// Notify writes n followed by any detail lines.
func (w *WriterNotifier) Notify(_ context.Context, n Notification) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	prefix := w.theme.InfoPrefix
	switch n.Level {
	case LevelSuccess:
		prefix = w.theme.SuccessPrefix
	case LevelWarning:
		prefix = w.theme.WarningPrefix
	case LevelError:
		prefix = w.theme.ErrorPrefix
	}

	line := n.Message
	if n.Title != "" && n.Message != "" {
		line = n.Title + ": " + n.Message
	} else if n.Message == "" {
		line = n.Title
	}
	if _, err := fmt.Fprintf(w.out, "%s%s\n", prefix, line); err != nil {
		return err
	}
	for _, key := range sortedKeys(n.Details) {
		for _, msg := range n.Details[key] {
			if _, err := fmt.Fprintf(w.out, "  %s: %s\n", key, msg); err != nil {
				return err
			}
		}
	}
	return nil
}

// Recorder keeps notifications in memory. Handy in tests.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

// Notify records n.
func (r *Recorder) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

// Notifications returns a copy of what was recorded.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}

// Multi fans a notification out to several notifiers, returning the first
// error after attempting all of them.
func Multi(notifiers ...Notifier) Notifier {
	return NotifierFunc(func(ctx context.Context, n Notification) error {
		var first error
		for _, notifier := range notifiers {
			if notifier == nil {
				continue
			}
			if err := notifier.Notify(ctx, n); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}

// OnlyLevels forwards notifications whose level is listed and drops the rest.
func OnlyLevels(next Notifier, levels ...Level) Notifier {
	allowed := make(map[Level]struct{}, len(levels))
	for _, l := range levels {
		allowed[l] = struct{}{}
	}
	return NotifierFunc(func(ctx context.Context, n Notification) error {
		if _, ok := allowed[n.Level]; !ok || next == nil {
			return nil
		}
		return next.Notify(ctx, n)
	})
}
