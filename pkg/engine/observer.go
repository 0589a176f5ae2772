package engine

import (
	"time"

	"go.uber.org/zap"
)

// Progress describes a completed phase. Count depends on the phase: traces
// built, matrix dimension, features removed, nodes assigned, or cliques formed.
type Progress struct {
	State   State
	Count   int
	Elapsed time.Duration
}

// Observer receives phase progress from an Engine.
type Observer interface {
	PhaseDone(Progress)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Progress)

// PhaseDone implements Observer.
func (f ObserverFunc) PhaseDone(p Progress) { f(p) }

// LogObserver logs each phase at debug level.
func LogObserver(log *zap.Logger) Observer {
	return ObserverFunc(func(p Progress) {
		log.Debug("phase done",
			zap.Stringer("state", p.State),
			zap.Int("count", p.Count),
			zap.Duration("elapsed", p.Elapsed))
	})
}
