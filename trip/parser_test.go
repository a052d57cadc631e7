package trip

import (
	"testing"
	"time"
)

const header = "ride_id,rideable_type,started_at,ended_at,start_station_name,start_station_id,end_station_name,end_station_id,start_lat,start_lng,end_lat,end_lng,member_casual"

func line(startedAt, start, end string) string {
	return "A1,classic_bike," + startedAt + ",x," + start + ",1," + end + ",2,,,,,member"
}

func TestSplitHeader(t *testing.T) {
	p := Parser{Format: FormatISO}
	tests := []struct {
		name   string
		offset int64
		line   string
		want   Outcome
	}{
		{"header at zero", 0, header, SkipHeader},
		{"header with bom prefix", 0, "\ufeff" + header, SkipHeader},
		{"repeated header later", 512, header, SkipHeader},
		{"data at zero", 0, line("2024-01-15 08:30:00.000", "Clark St", "State St"), OK},
		{"blank", 10, "   ", SkipBlank},
		{"too few columns", 10, "a,b,c", SkipMalformed},
	}
	for _, tt := range tests {
		_, got := p.Split(tt.offset, tt.line)
		if got != tt.want {
			t.Fatalf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestSplitKeepsTrailingEmptyFields(t *testing.T) {
	p := Parser{Format: FormatISO}
	rec, outcome := p.Split(1, "a,b,c,d,e,f,,")
	if outcome != OK {
		t.Fatalf("expected ok, got %v", outcome)
	}
	if len(rec) != 8 {
		t.Fatalf("expected 8 fields, got %d", len(rec))
	}
	if _, ok := rec.EndStation(); ok {
		t.Fatalf("empty end station must be absent")
	}
}

func TestNormalizeStation(t *testing.T) {
	absent := []string{"", "  ", "NULL", "null", "Null", "NA", "na", " nA "}
	for _, s := range absent {
		if _, ok := NormalizeStation(s); ok {
			t.Fatalf("expected %q to be absent", s)
		}
	}
	got, ok := NormalizeStation("  Clark St ")
	if !ok || got != "Clark St" {
		t.Fatalf("expected trimmed station, got %q (%v)", got, ok)
	}
	if got, ok := NormalizeStation("NAVY PIER"); !ok || got != "NAVY PIER" {
		t.Fatalf("placeholder match must be exact, got %q (%v)", got, ok)
	}
}

func TestStartedAtFormats(t *testing.T) {
	tests := []struct {
		format  TimeFormat
		raw     string
		weekday time.Weekday
		hour    int
	}{
		{FormatISO, "2024-01-15 08:30:00.000", time.Monday, 8},
		{FormatISO, `"2024-01-21 23:59:59.999"`, time.Sunday, 23},
		{FormatUS, "1/15/2024 8:30:00 AM", time.Monday, 8},
		{FormatUS, " 1/16/2024 1:05:09 PM ", time.Tuesday, 13},
	}
	for _, tt := range tests {
		p := Parser{Format: tt.format}
		rec, outcome := p.Split(1, line(tt.raw, "Clark St", "State St"))
		if outcome != OK {
			t.Fatalf("%s: unexpected outcome %v", tt.raw, outcome)
		}
		got, err := p.StartedAt(rec)
		if err != nil {
			t.Fatalf("%s: %v", tt.raw, err)
		}
		if got.Weekday() != tt.weekday || got.Hour() != tt.hour {
			t.Fatalf("%s: expected %v/%d, got %v/%d", tt.raw, tt.weekday, tt.hour, got.Weekday(), got.Hour())
		}
	}
}

func TestStartedAtRejectsOtherFormat(t *testing.T) {
	iso := Parser{Format: FormatISO}
	rec, _ := iso.Split(1, line("1/15/2024 8:30:00 AM", "Clark St", "State St"))
	if _, err := iso.StartedAt(rec); err == nil {
		t.Fatalf("iso parser must not accept us timestamps")
	}
	us := Parser{Format: FormatUS}
	rec, _ = us.Split(1, line("2024-01-15 08:30:00.000", "Clark St", "State St"))
	if _, err := us.StartedAt(rec); err == nil {
		t.Fatalf("us parser must not accept iso timestamps")
	}
}

func TestParseTrip(t *testing.T) {
	p := Parser{Format: FormatISO}
	trip, outcome, err := p.ParseTrip(3, line("2024-01-15 08:30:00.000", " Clark St ", "State St"))
	if err != nil || outcome != OK {
		t.Fatalf("unexpected failure: %v %v", outcome, err)
	}
	if trip.StartStation != "Clark St" || trip.EndStation != "State St" {
		t.Fatalf("unexpected stations: %+v", trip)
	}
	_, outcome, err = p.ParseTrip(3, line("2024-01-15 08:30:00.000", "NULL", "State St"))
	if outcome != SkipMalformed || err == nil {
		t.Fatalf("expected malformed for missing start station, got %v %v", outcome, err)
	}
	_, outcome, err = p.ParseTrip(3, line("yesterday", "Clark St", "State St"))
	if outcome != SkipMalformed || err == nil {
		t.Fatalf("expected malformed for bad timestamp, got %v %v", outcome, err)
	}
}

func TestBucketKeyString(t *testing.T) {
	at := time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC)
	got := BucketFor("Clark St", at).String()
	if got != "Clark St_MONDAY_08" {
		t.Fatalf("unexpected bucket key %q", got)
	}
	if BucketFor("Clark St", at) != (BucketKey{Station: "Clark St", Weekday: time.Monday, Hour: 8}) {
		t.Fatalf("bucket keys with equal fields must be equal")
	}
}

func TestParseTimeFormat(t *testing.T) {
	if f, err := ParseTimeFormat(" ISO "); err != nil || f != FormatISO {
		t.Fatalf("expected iso, got %q %v", f, err)
	}
	if _, err := ParseTimeFormat("rfc3339"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
