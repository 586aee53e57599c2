package merge

import (
	"go.uber.org/zap"

	"github.com/google/uuid"
	"github.com/myscale/sparse-index/segment"
)

// Merger runs the tiered merge policy and executes the resulting merge;
// the orchestrator drives it on a scheduling tick from its own background
// goroutine, per §5's "dedicated background thread... at most one merge
// concurrently".
type Merger struct {
	Policy Policy
	Opts   segment.Options
	Log    *zap.SugaredLogger
}

func New(policy Policy, opts segment.Options, log *zap.SugaredLogger) *Merger {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Merger{Policy: policy, Opts: opts, Log: log}
}

// Result describes one successful merge: the new segment plus the ids of
// the sources it supersedes.
type Result struct {
	NewID    uuid.UUID
	NewName  string
	Replaced []uuid.UUID
}

// Tick runs one scheduling tick: select a tier, open its sources, merge
// them, and report the result. A failure is logged and returns nil
// — "retried at the next scheduling tick with no manifest change" — rather
// than propagating the error, since merge failures never touch the
// manifest.
func (m *Merger) Tick(candidates []Candidate, open func([]uuid.UUID) ([]*segment.ReadSegment, error)) *Result {
	selected := m.Policy.Select(candidates)
	if selected == nil {
		return nil
	}

	ids := make([]uuid.UUID, len(selected))
	for i, c := range selected {
		ids[i] = c.ID
	}

	sources, err := open(ids)
	if err != nil {
		m.Log.Warnw("merge: failed to open source segments, will retry", "err", err)
		return nil
	}

	newID, newName, err := Execute(m.Opts, sources)
	if err != nil {
		m.Log.Warnw("merge: execution failed, will retry", "err", err)
		return nil
	}

	m.Log.Infow("merge: completed", "new_segment", newID, "replaced", len(ids))
	return &Result{NewID: newID, NewName: newName, Replaced: ids}
}
