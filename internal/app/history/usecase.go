package history

import (
	"context"
	"errors"
	"strings"

	"tilefarm/internal/app/ports"
	"tilefarm/internal/domain/catalog"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

var ErrInvalidRequest = errors.New("invalid history request")

type UseCase struct {
	Events ports.EventLog
}

func (u UseCase) Execute(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.PlayerID) == "" || u.Events == nil {
		return Response{}, ErrInvalidRequest
	}
	if req.OccurredFrom > 0 && req.OccurredTo > 0 && req.OccurredFrom > req.OccurredTo {
		return Response{}, ErrInvalidRequest
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	records, err := u.Events.ListByPlayerID(ctx, req.PlayerID, limit)
	if err != nil {
		return Response{}, err
	}
	records = filterByTimeWindow(records, req.OccurredFrom, req.OccurredTo)
	events := make([]Event, 0, len(records))
	for _, r := range records {
		events = append(events, Event{Type: r.Type, OccurredAt: r.OccurredAt, Payload: r.Payload})
	}
	return Response{Events: events, Summary: summarize(records)}, nil
}

func filterByTimeWindow(events []ports.EventRecord, from, to int64) []ports.EventRecord {
	if from <= 0 && to <= 0 {
		return events
	}
	out := make([]ports.EventRecord, 0, len(events))
	for _, evt := range events {
		ts := evt.OccurredAt.Unix()
		if from > 0 && ts < from {
			continue
		}
		if to > 0 && ts > to {
			continue
		}
		out = append(out, evt)
	}
	return out
}

func summarize(events []ports.EventRecord) Summary {
	s := Summary{Counts: map[string]int{}}
	for _, evt := range events {
		s.Counts[evt.Type]++
		if evt.Type == "harvest" {
			s.Harvests++
			s.Earned += num(evt.Payload["value"])
		}
	}
	s.Earned = catalog.RoundCents(s.Earned)
	return s
}

// num reads numbers that went through a JSON column as well as ones that
// did not.
func num(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
