package inmemory

import (
	"sync"
)

type Snapshot struct {
	ActionTotal    uint64            `json:"action_total"`
	ActionSuccess  uint64            `json:"action_success"`
	ActionRejected uint64            `json:"action_rejected"`
	SaveConflict   uint64            `json:"save_conflict"`
	SaveFailure    uint64            `json:"save_failure"`
	SuccessByType  map[string]uint64 `json:"success_by_type"`
	RejectedByType map[string]uint64 `json:"rejected_by_type"`
}

// Recorder counts tap outcomes and storage trouble for the KPI endpoint.
type Recorder struct {
	mu         sync.Mutex
	success    uint64
	rejected   uint64
	conflict   uint64
	failure    uint64
	byType     map[string]uint64
	rejectedBy map[string]uint64
}

func NewRecorder() *Recorder {
	return &Recorder{
		byType:     map[string]uint64{},
		rejectedBy: map[string]uint64{},
	}
}

func (r *Recorder) RecordSuccess(actionType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.success++
	r.byType[actionType]++
}

func (r *Recorder) RecordRejected(actionType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected++
	r.rejectedBy[actionType]++
}

func (r *Recorder) RecordConflict() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflict++
}

func (r *Recorder) RecordFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failure++
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		ActionSuccess:  r.success,
		ActionRejected: r.rejected,
		ActionTotal:    r.success + r.rejected,
		SaveConflict:   r.conflict,
		SaveFailure:    r.failure,
		SuccessByType:  make(map[string]uint64, len(r.byType)),
		RejectedByType: make(map[string]uint64, len(r.rejectedBy)),
	}
	for k, v := range r.byType {
		out.SuccessByType[k] = v
	}
	for k, v := range r.rejectedBy {
		out.RejectedByType[k] = v
	}
	return out
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}
