package trip

import (
	"fmt"
	"strings"
	"time"
)

// TimeFormat selects the literal timestamp layout of an input batch.
type TimeFormat string

const (
	// FormatUS matches exports like "1/15/2024 8:30:00 AM".
	FormatUS TimeFormat = "us"
	// FormatISO matches exports like "2024-01-15 08:30:00.000".
	FormatISO TimeFormat = "iso"
)

var layouts = map[TimeFormat]string{
	FormatUS:  "1/2/2006 3:04:05 PM",
	FormatISO: "2006-01-02 15:04:05.000",
}

// ParseTimeFormat resolves a configured format name.
func ParseTimeFormat(name string) (TimeFormat, error) {
	f := TimeFormat(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := layouts[f]; !ok {
		return "", fmt.Errorf("unsupported time format: %q (expected us|iso)", name)
	}
	return f, nil
}

// Layout returns the time.Parse layout of f.
func (f TimeFormat) Layout() string {
	return layouts[f]
}

// Parser splits trip lines and decodes their start time with one fixed layout.
type Parser struct {
	Format TimeFormat
}

// NewParser returns a parser bound to format.
func NewParser(format TimeFormat) (Parser, error) {
	if _, ok := layouts[format]; !ok {
		return Parser{}, fmt.Errorf("unsupported time format: %q", format)
	}
	return Parser{Format: format}, nil
}

// Split breaks line into its columns. offset is the byte offset of the line
// inside its file; the header can only be reported at offset 0 unless the
// line starts with the header columns outright.
func (p Parser) Split(offset int64, line string) (RawRecord, Outcome) {
	if strings.TrimSpace(line) == "" {
		return nil, SkipBlank
	}
	if isHeader(offset, line) {
		return nil, SkipHeader
	}
	fields := strings.Split(line, Delimiter)
	if len(fields) <= EndStationIdx {
		return nil, SkipMalformed
	}
	return RawRecord(fields), OK
}

func isHeader(offset int64, line string) bool {
	if offset == 0 && strings.Contains(line, HeaderSignature) {
		return true
	}
	return strings.HasPrefix(strings.TrimSpace(line), HeaderSignature)
}

// StartedAt decodes the start timestamp of r.
func (p Parser) StartedAt(r RawRecord) (time.Time, error) {
	raw, ok := r.Field(StartedAtIdx)
	if !ok {
		return time.Time{}, fmt.Errorf("missing started_at column")
	}
	raw = strings.ReplaceAll(raw, `"`, "")
	layout := p.Format.Layout()
	if layout == "" {
		return time.Time{}, fmt.Errorf("parser has no time format")
	}
	t, err := time.Parse(layout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("started_at %q does not match %s layout: %w", raw, p.Format, err)
	}
	return t, nil
}

// ParseTrip decodes a full trip. Missing stations or a bad timestamp make the
// record malformed.
func (p Parser) ParseTrip(offset int64, line string) (ParsedTrip, Outcome, error) {
	rec, outcome := p.Split(offset, line)
	if outcome != OK {
		return ParsedTrip{}, outcome, nil
	}
	start, ok := rec.StartStation()
	if !ok {
		return ParsedTrip{}, SkipMalformed, fmt.Errorf("missing start station")
	}
	end, ok := rec.EndStation()
	if !ok {
		return ParsedTrip{}, SkipMalformed, fmt.Errorf("missing end station")
	}
	startedAt, err := p.StartedAt(rec)
	if err != nil {
		return ParsedTrip{}, SkipMalformed, err
	}
	return ParsedTrip{StartStation: start, EndStation: end, StartedAt: startedAt}, OK, nil
}
