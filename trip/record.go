package trip

import (
	"fmt"
	"strings"
	"time"
)

// HeaderSignature identifies the header row of a trip export by its first two columns.
const HeaderSignature = "ride_id,rideable_type"

// Delimiter separates the columns of a trip line.
const Delimiter = ","

// Column positions inside a trip line.
const (
	StartedAtIdx    = 2
	StartStationIdx = 4
	EndStationIdx   = 6
)

// Outcome tells the caller what to do with a line.
type Outcome int

const (
	OK Outcome = iota
	SkipHeader
	SkipBlank
	SkipMalformed
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case SkipHeader:
		return "header"
	case SkipBlank:
		return "blank"
	case SkipMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// RawRecord holds the fields of one line in column order.
type RawRecord []string

// Field returns the i-th column, trimmed.
func (r RawRecord) Field(i int) (string, bool) {
	if i < 0 || i >= len(r) {
		return "", false
	}
	return strings.TrimSpace(r[i]), true
}

// StartStation returns the normalized start station and whether it is present.
func (r RawRecord) StartStation() (string, bool) {
	v, _ := r.Field(StartStationIdx)
	return NormalizeStation(v)
}

// EndStation returns the normalized end station and whether it is present.
func (r RawRecord) EndStation() (string, bool) {
	v, _ := r.Field(EndStationIdx)
	return NormalizeStation(v)
}

// NormalizeStation trims a station name. Empty, NULL and NA names are absent.
func NormalizeStation(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "NULL") || strings.EqualFold(name, "NA") {
		return "", false
	}
	return name, true
}

// ParsedTrip is a record whose stations and start time were all decoded.
type ParsedTrip struct {
	StartStation string
	EndStation   string
	StartedAt    time.Time
}

// BucketKey groups trip starts by station, weekday and hour of day.
type BucketKey struct {
	Station string
	Weekday time.Weekday
	Hour    int
}

// BucketFor places a trip start into its bucket.
func BucketFor(station string, startedAt time.Time) BucketKey {
	return BucketKey{
		Station: station,
		Weekday: startedAt.Weekday(),
		Hour:    startedAt.Hour(),
	}
}

// String renders the grouping token, e.g. "Clark St_MONDAY_08".
func (k BucketKey) String() string {
	return fmt.Sprintf("%s_%s_%02d", k.Station, strings.ToUpper(k.Weekday.String()), k.Hour)
}
