package sync

import "time"

// ---------------------------------------------------------------------------
// Outcome / SyncResult
// ---------------------------------------------------------------------------

// Outcome is the result of a single push or pull item.
type Outcome string

const (
	// OutcomeLinked means an existing remote record was matched and the
	// reference (re)stored locally.
	OutcomeLinked Outcome = "LINKED"
	// OutcomeCreated means a new record was created (remote on push, local
	// shadow on pull).
	OutcomeCreated Outcome = "CREATED"
	// OutcomeSkipped means the item required no action (kind not handled by
	// the system, nothing to push, ...).
	OutcomeSkipped Outcome = "SKIPPED"
	// OutcomeFailed means the attempt failed; the error is recorded and
	// never propagated to the caller.
	OutcomeFailed Outcome = "FAILED"
)

// SyncFailure describes one failed item in a batch.
type SyncFailure struct {
	ItemID  string       `json:"item_id"`
	Class   FailureClass `json:"class"`
	Message string       `json:"message"`
}

// SyncResult summarizes a sync invocation. It is returned to the caller and
// never persisted.
type SyncResult struct {
	Linked     int           `json:"linked"`
	Created    int           `json:"created"`
	Skipped    int           `json:"skipped"`
	Failed     int           `json:"failed"`
	Failures   []SyncFailure `json:"failures,omitempty"`
	FinishedAt time.Time     `json:"finished_at"`
}

// NewSyncResult returns an empty result.
func NewSyncResult() *SyncResult {
	return &SyncResult{Failures: make([]SyncFailure, 0)}
}

// Record tallies one item outcome. err may be nil unless the outcome is
// OutcomeFailed.
func (r *SyncResult) Record(itemID string, outcome Outcome, err error) {
	switch outcome {
	case OutcomeLinked:
		r.Linked++
	case OutcomeCreated:
		r.Created++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
		failure := SyncFailure{ItemID: itemID, Class: FailureUnknown}
		if err != nil {
			failure.Class = Classify(err)
			failure.Message = err.Error()
		}
		r.Failures = append(r.Failures, failure)
	}
}

// Merge folds another result into this one.
func (r *SyncResult) Merge(other *SyncResult) {
	if other == nil {
		return
	}
	r.Linked += other.Linked
	r.Created += other.Created
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.Failures = append(r.Failures, other.Failures...)
}

// Processed returns the number of items handled without failure.
func (r *SyncResult) Processed() int {
	return r.Linked + r.Created + r.Skipped
}

// Total returns the number of items attempted.
func (r *SyncResult) Total() int {
	return r.Processed() + r.Failed
}

// Finish stamps the completion time and returns the result for chaining.
func (r *SyncResult) Finish() *SyncResult {
	r.FinishedAt = time.Now()
	return r
}
