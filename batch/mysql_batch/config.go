package mysql_batch

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DefaultColumns is the trip export column order. The position of every
// column matters to the record parser.
var DefaultColumns = []string{
	"ride_id",
	"rideable_type",
	"started_at",
	"ended_at",
	"start_station_name",
	"start_station_id",
	"end_station_name",
	"end_station_id",
}

// SourceConfig configures the export of a trip table into CSV shards.
type SourceConfig struct {
	Table      string   `json:"table"`
	PKColumn   string   `json:"pkcolumn"`
	Columns    []string `json:"columns"`
	Where      string   `json:"where"`
	Shards     int      `json:"shards"`
	Parallel   int      `json:"parallel"`
	OutputDir  string   `json:"outputdir"`
	FilePrefix string   `json:"fileprefix"`
	// TimeLayout formats DATETIME columns; it must match the layout the
	// mappers parse with.
	TimeLayout string `json:"-"`
}

func (c *SourceConfig) WithDefaults() {
	if c.PKColumn == "" {
		c.PKColumn = "id"
	}
	if len(c.Columns) == 0 {
		c.Columns = append([]string(nil), DefaultColumns...)
	}
	if c.Where == "" {
		c.Where = "1=1"
	}
	if c.Shards <= 0 {
		c.Shards = 16
	}
	if c.Parallel <= 0 {
		c.Parallel = 4
	}
	if c.OutputDir == "" {
		c.OutputDir = "txt/mysql_source"
	}
	if c.FilePrefix == "" {
		c.FilePrefix = "chunk"
	}
	if c.TimeLayout == "" {
		c.TimeLayout = "1/2/2006 3:04:05 PM"
	}
}

// SinkConfig configures the upsert of reduced counts into MySQL.
type SinkConfig struct {
	TargetTable string `json:"targettable"`
	KeyColumn   string `json:"keycolumn"`
	ValColumn   string `json:"valcolumn"`
	Replace     bool   `json:"replace"`
	BatchSize   int    `json:"batchsize"`
}

func (c *SinkConfig) WithDefaults() {
	if c.KeyColumn == "" {
		c.KeyColumn = "count_key"
	}
	if c.ValColumn == "" {
		c.ValColumn = "trip_count"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 2000
	}
}

// QuoteIdentifier backquotes a plain SQL identifier and rejects anything else.
func QuoteIdentifier(s string) (string, error) {
	if !identifierRe.MatchString(s) {
		return "", fmt.Errorf("invalid identifier: %s", s)
	}
	return "`" + s + "`", nil
}

// csvField renders one scanned column as a CSV field. Commas inside values
// would shift every later column, so they are replaced.
func csvField(v interface{}, layout string) string {
	var s string
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		s = string(t)
	case time.Time:
		return t.Format(layout)
	default:
		s = fmt.Sprint(t)
	}
	return strings.ReplaceAll(s, ",", " ")
}
