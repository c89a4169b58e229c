package reconcile

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Level is the severity of a user-facing notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a message meant for the participant using the view.
type Notification struct {
	DivisionID string
	Level      Level
	Title      string
	Message    string
}

// Notifier receives notifications from a View. It is called without the view's
// lock held, so implementations may read the view.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier writes notifications to a zerolog logger.
type LogNotifier struct {
	Logger zerolog.Logger
}

// NewLogNotifier returns a notifier on the global logger.
func NewLogNotifier() LogNotifier {
	return LogNotifier{Logger: log.Logger}
}

func (l LogNotifier) Notify(n Notification) {
	var ev *zerolog.Event
	switch n.Level {
	case LevelError:
		ev = l.Logger.Error()
	case LevelWarning:
		ev = l.Logger.Warn()
	default:
		ev = l.Logger.Info()
	}
	ev.Str("division_id", n.DivisionID).
		Str("level", string(n.Level)).
		Str("title", n.Title).
		Msg(n.Message)
}

type discard struct{}

func (discard) Notify(Notification) {}
