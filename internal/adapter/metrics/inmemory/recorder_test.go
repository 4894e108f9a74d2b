package inmemory

import (
	"testing"
)

func TestRecorderSnapshot(t *testing.T) {
	r := NewRecorder()
	r.RecordSuccess("plant_crop")
	r.RecordSuccess("harvest")
	r.RecordSuccess("harvest")
	r.RecordRejected("none")
	r.RecordConflict()
	r.RecordFailure()

	s := r.Snapshot()
	if s.ActionTotal != 4 {
		t.Fatalf("expected total 4, got %d", s.ActionTotal)
	}
	if s.ActionSuccess != 3 {
		t.Fatalf("expected success 3, got %d", s.ActionSuccess)
	}
	if s.ActionRejected != 1 || s.RejectedByType["none"] != 1 {
		t.Fatalf("expected one rejected none, got %+v", s)
	}
	if s.SaveConflict != 1 {
		t.Fatalf("expected conflict 1, got %d", s.SaveConflict)
	}
	if s.SaveFailure != 1 {
		t.Fatalf("expected failure 1, got %d", s.SaveFailure)
	}
	if s.SuccessByType["harvest"] != 2 {
		t.Fatalf("expected harvest count 2")
	}

	s.SuccessByType["harvest"] = 99
	if r.Snapshot().SuccessByType["harvest"] != 2 {
		t.Fatalf("snapshot must not alias recorder state")
	}
}
