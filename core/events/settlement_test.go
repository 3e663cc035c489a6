package events

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"drippy/core/types"
)

func TestBoostUpdatedMarksCap(t *testing.T) {
	evt := BoostUpdated{Requested: 900, Multiplier: 500}.Event()
	if evt.Attr("capped") != "true" || evt.Attr("requested") != "900" {
		t.Fatalf("expected capped boost attributes, got %v", evt.Attributes)
	}
	evt = BoostUpdated{Requested: 200, Multiplier: 200}.Event()
	if evt.Attr("capped") != "" {
		t.Fatalf("uncapped boost should not carry capped attribute")
	}
}

func TestDistributionCompletedFlattensShares(t *testing.T) {
	evt := DistributionCompleted{
		Gross:  100,
		Net:    100,
		Shares: []PoolShare{{PoolID: "nft", Amount: 40}, {PoolID: "amm", Amount: 60}},
	}.Event()
	if evt.Attr("pool.nft") != "40" || evt.Attr("pool.amm") != "60" {
		t.Fatalf("unexpected attributes: %v", evt.Attributes)
	}
}

func TestRecorderLimit(t *testing.T) {
	rec := NewRecorder(2)
	for i := uint64(1); i <= 3; i++ {
		rec.Emit(DistributionSkipped{Amount: i, Floor: 10})
	}
	got := rec.Events()
	if len(got) != 2 {
		t.Fatalf("expected 2 buffered events, got %d", len(got))
	}
	if got[0].Attr("amount") != "2" || got[1].Attr("amount") != "3" {
		t.Fatalf("expected newest events to be kept, got %v %v", got[0].Attributes, got[1].Attributes)
	}
}

func TestFanoutAndLogEmitter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	counted := map[string]int{}
	rec := NewRecorder(0)
	fan := Fanout{rec, nil, LogEmitter{Logger: logger, Count: func(eventType string) { counted[eventType]++ }}}

	var actor types.AccountID
	actor[19] = 7
	fan.Emit(ClaimRejected{Actor: actor, Reason: "cooldown_active"})

	if len(rec.Events()) != 1 {
		t.Fatalf("recorder missed event")
	}
	if counted[TypeClaimRejected] != 1 {
		t.Fatalf("count callback not invoked: %v", counted)
	}
	line := buf.String()
	if !strings.Contains(line, `"event":"claim.rejected"`) || !strings.Contains(line, `"reason":"cooldown_active"`) {
		t.Fatalf("unexpected log line: %s", line)
	}
}
