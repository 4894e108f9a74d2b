package history

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"tilefarm/internal/app/ports"
)

func TestUseCase_SummarizesHarvests(t *testing.T) {
	repo := &fakeRepo{events: []ports.EventRecord{
		{Type: "harvest", OccurredAt: time.Unix(30, 0), Payload: map[string]any{"row": 1, "col": 1, "value": 18.0}},
		{Type: "plant_crop", OccurredAt: time.Unix(20, 0), Payload: map[string]any{"row": 1, "col": 1}},
		{Type: "harvest", OccurredAt: time.Unix(10, 0), Payload: map[string]any{"value": 5}},
	}}

	out, err := UseCase{Events: repo}.Execute(context.Background(), Request{PlayerID: "plr_1"})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	want := Summary{Counts: map[string]int{"harvest": 2, "plant_crop": 1}, Harvests: 2, Earned: 23}
	if diff := cmp.Diff(want, out.Summary); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
	if len(out.Events) != 3 || repo.lastLimit != DefaultLimit {
		t.Fatalf("expected 3 events with default limit, got %d limit=%d", len(out.Events), repo.lastLimit)
	}
}

func TestUseCase_FiltersByTimeWindow(t *testing.T) {
	repo := &fakeRepo{events: []ports.EventRecord{
		{Type: "harvest", OccurredAt: time.Unix(30, 0)},
		{Type: "unlock_crop", OccurredAt: time.Unix(20, 0)},
		{Type: "harvest", OccurredAt: time.Unix(10, 0)},
	}}
	uc := UseCase{Events: repo}

	out, err := uc.Execute(context.Background(), Request{PlayerID: "plr_1", OccurredFrom: 15, OccurredTo: 25, Limit: 9999})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if len(out.Events) != 1 || out.Events[0].Type != "unlock_crop" {
		t.Fatalf("unexpected events: %+v", out.Events)
	}
	if repo.lastLimit != MaxLimit {
		t.Fatalf("expected limit clamped to %d, got %d", MaxLimit, repo.lastLimit)
	}

	if _, err := uc.Execute(context.Background(), Request{PlayerID: "plr_1", OccurredFrom: 30, OccurredTo: 10}); err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest for inverted window, got %v", err)
	}
	if _, err := uc.Execute(context.Background(), Request{PlayerID: " "}); err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

type fakeRepo struct {
	events    []ports.EventRecord
	lastLimit int
}

func (r *fakeRepo) Append(_ context.Context, _ string, _ []ports.EventRecord) error {
	return nil
}

func (r *fakeRepo) ListByPlayerID(_ context.Context, _ string, limit int) ([]ports.EventRecord, error) {
	r.lastLimit = limit
	return r.events, nil
}
