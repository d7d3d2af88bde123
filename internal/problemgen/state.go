package problemgen

import (
	"time"

	"go.uber.org/zap"
)

// State is a step of one question-generation request.
type State string

const (
	StateComposing  State = "composing"
	StateInvoking   State = "invoking"
	StateSanitizing State = "sanitizing"
	StateValidating State = "validating"
	StateDeduping   State = "deduping"
	StatePersisting State = "persisting"
	StateRetrying   State = "retrying"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Event describes one state transition.
type Event struct {
	UserID   string
	Attempt  int
	From     State
	To       State
	Category Category

	// Err is the failure behind a Retrying or Failed transition.
	Err error

	// Backoff is the wait before the next attempt (Retrying only).
	Backoff time.Duration
}

// Observer receives every transition of every request.
// Implementations must be safe for concurrent use.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// Observers fans events out to each non-nil observer in order.
func Observers(obs ...Observer) Observer {
	return ObserverFunc(func(e Event) {
		for _, o := range obs {
			if o != nil {
				o.Observe(e)
			}
		}
	})
}

// LogObserver logs retries and terminal transitions; intermediate steps
// go to debug.
func LogObserver(logger *zap.Logger) Observer {
	return ObserverFunc(func(e Event) {
		fields := []zap.Field{
			zap.String("user_id", e.UserID),
			zap.Int("attempt", e.Attempt),
			zap.String("from", string(e.From)),
			zap.String("to", string(e.To)),
		}
		if e.Category != "" {
			fields = append(fields, zap.String("category", string(e.Category)))
		}
		switch e.To {
		case StateRetrying:
			logger.Warn("question generation attempt failed",
				append(fields, zap.String("kind", string(KindOf(e.Err))), zap.Duration("backoff", e.Backoff), zap.Error(e.Err))...)
		case StateFailed:
			logger.Error("question generation failed", append(fields, zap.Error(e.Err))...)
		case StateDone:
			logger.Info("question generated", fields...)
		default:
			logger.Debug("question generation step", fields...)
		}
	})
}
