package redis_batch

import (
	"testing"

	"github.com/emptyOVO/tripcount/trip"
)

func TestTripLineKeepsColumnPositions(t *testing.T) {
	line := tripLine([]interface{}{"r1", "classic_bike", "1/15/2024 8:30:00 AM", nil, "Clark St, North", "1", "State St", "2"})
	p, _ := trip.NewParser(trip.FormatUS)
	rec, outcome := p.Split(10, line)
	if outcome != trip.OK {
		t.Fatalf("expected OK, got %s for %q", outcome, line)
	}
	if s, _ := rec.StartStation(); s != "Clark St  North" {
		t.Fatalf("unexpected start station %q", s)
	}
	if s, _ := rec.EndStation(); s != "State St" {
		t.Fatalf("unexpected end station %q", s)
	}
}

func TestDefaults(t *testing.T) {
	var conn ConnConfig
	if got := conn.addr(); got != "127.0.0.1:6379" {
		t.Fatalf("unexpected addr %q", got)
	}
	var sink SinkConfig
	sink.WithDefaults()
	if hashKey(sink.KeyPrefix, "Clark St_MONDAY_08") != "tripcount:Clark St_MONDAY_08" {
		t.Fatalf("unexpected hash key")
	}
	var src SourceConfig
	src.WithDefaults()
	if src.KeyPattern != "trip:*" || src.ScanCount != 500 {
		t.Fatalf("unexpected source defaults %+v", src)
	}
}
