package filesystem

import "time"

// Outcome names the step an [Event] reports.
type Outcome string

const (
	// OutcomeDone marks the end of an operation, successful or not.
	OutcomeDone      Outcome = "done"
	OutcomeStale     Outcome = "stale"
	OutcomeRetry     Outcome = "retry"
	OutcomeRecovered Outcome = "recovered"
	OutcomeExhausted Outcome = "exhausted"
)

// Event describes one step of a filesystem operation. Elapsed is measured
// from the first attempt; Err is only set on OutcomeDone.
type Event struct {
	Volume    string
	Operation string
	Outcome   Outcome
	Elapsed   time.Duration
	Err       error
}

// Observer receives filesystem events. The metrics package implements it
// without importing this package's callers.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to [Observer].
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) { f(e) }

var observer Observer

// SetObserver installs the process-wide observer. A nil observer disables
// reporting.
func SetObserver(o Observer) {
	observer = o
}

func report(e Event) {
	if observer != nil {
		observer.Observe(e)
	}
}
