package service

import (
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/thinkfirst/coderunner/internal/executor"
)

// Stats counts executions by outcome over the process lifetime. Counters
// are striped (xsync.Counter), so hot concurrent increments from parallel
// executions don't contend on a single cache line.
type Stats struct {
	total     *xsync.Counter
	byOutcome map[executor.Outcome]*xsync.Counter
}

// NewStats returns a Stats with a counter preallocated per outcome. The
// map is never written after construction, which is what makes lock-free
// reads in Record safe.
func NewStats() *Stats {
	outcomes := []executor.Outcome{
		executor.OutcomeSuccess,
		executor.OutcomeCompileError,
		executor.OutcomeRuntimeError,
		executor.OutcomeTimeout,
		executor.OutcomeUnsupportedLanguage,
	}
	byOutcome := make(map[executor.Outcome]*xsync.Counter, len(outcomes))
	for _, o := range outcomes {
		byOutcome[o] = xsync.NewCounter()
	}
	return &Stats{
		total:     xsync.NewCounter(),
		byOutcome: byOutcome,
	}
}

// Record counts one finished execution.
func (s *Stats) Record(outcome executor.Outcome) {
	s.total.Inc()
	if c, ok := s.byOutcome[outcome]; ok {
		c.Inc()
	}
}

// StatsSnapshot is a point-in-time copy of the counters, shaped for the
// health endpoint.
type StatsSnapshot struct {
	Total     int64            `json:"total"`
	ByOutcome map[string]int64 `json:"byOutcome"`
}

// Snapshot reads all counters. Values are individually consistent, not a
// global atomic cut — close enough for monitoring.
func (s *Stats) Snapshot() StatsSnapshot {
	byOutcome := make(map[string]int64, len(s.byOutcome))
	for o, c := range s.byOutcome {
		byOutcome[string(o)] = c.Value()
	}
	return StatsSnapshot{
		Total:     s.total.Value(),
		ByOutcome: byOutcome,
	}
}
