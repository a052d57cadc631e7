package redis_batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/emptyOVO/tripcount/batch/internal/shard"
	log "github.com/sirupsen/logrus"
)

// TripFields is the hash layout of one trip and the CSV column order.
var TripFields = []string{
	"ride_id",
	"rideable_type",
	"started_at",
	"ended_at",
	"start_station_name",
	"start_station_id",
	"end_station_name",
	"end_station_id",
}

// SourceConfig exports trips stored as one hash per ride.
type SourceConfig struct {
	KeyPattern string `json:"key_pattern"`
	ScanCount  int    `json:"scan_count"`
	OutputDir  string `json:"outputdir"`
	FilePrefix string `json:"fileprefix"`
}

func (c *SourceConfig) WithDefaults() {
	if c.KeyPattern == "" {
		c.KeyPattern = "trip:*"
	}
	if c.ScanCount <= 0 {
		c.ScanCount = 500
	}
	if c.OutputDir == "" {
		c.OutputDir = "txt/redis_source"
	}
	if c.FilePrefix == "" {
		c.FilePrefix = "chunk"
	}
}

// ExportSource scans the trip hashes into a single CSV file with a header.
// Timestamps are copied as stored; they must already use the layout the
// mappers parse with.
func ExportSource(ctx context.Context, connCfg ConnConfig, cfg SourceConfig) ([]string, error) {
	cfg.WithDefaults()
	c, err := openRedis(ctx, connCfg)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, err
	}
	pattern := filepath.Join(cfg.OutputDir, cfg.FilePrefix+"-*.csv")
	oldFiles, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	for _, f := range oldFiles {
		_ = os.Remove(f)
	}

	outFile := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s-%05d.csv", cfg.FilePrefix, 0))
	w, err := shard.Create(outFile, strings.Join(TripFields, ","))
	if err != nil {
		return nil, err
	}

	var rows int64
	iter := c.Scan(ctx, 0, cfg.KeyPattern, int64(cfg.ScanCount)).Iterator()
	for iter.Next(ctx) {
		vals, err := c.HMGet(ctx, iter.Val(), TripFields...).Result()
		if err != nil {
			log.WithField("key", iter.Val()).WithError(err).Warn("[Source] Skip unreadable trip hash")
			continue
		}
		if err := w.WriteLine(tripLine(vals)); err != nil {
			w.Abort()
			return nil, err
		}
		rows++
	}
	if err := iter.Err(); err != nil {
		w.Abort()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"pattern": cfg.KeyPattern, "rows": rows}).Info("[Source] Redis export finish")
	if rows == 0 {
		return []string{}, nil
	}
	return []string{outFile}, nil
}

func tripLine(vals []interface{}) string {
	fields := make([]string, len(vals))
	for i, v := range vals {
		fields[i] = strings.ReplaceAll(toString(v), ",", " ")
	}
	return strings.Join(fields, ",")
}
