package batch

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/emptyOVO/tripcount/batch/mysql_batch"
)

// PrepareSyntheticTrips creates a synthetic trip table for benchmark runs.
// Every 97th trip has no end station.
func PrepareSyntheticTrips(ctx context.Context, db *sql.DB, cfg PrepareConfig) error {
	cfg.withDefaults()
	table, err := mysql_batch.QuoteIdentifier(cfg.SourceTable)
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, table)); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE %s (
  id BIGINT NOT NULL,
  ride_id VARCHAR(32) NOT NULL,
  rideable_type VARCHAR(32) NOT NULL,
  started_at DATETIME(3) NOT NULL,
  ended_at DATETIME(3) NOT NULL,
  start_station_name VARCHAR(128) NULL,
  start_station_id VARCHAR(32) NULL,
  end_station_name VARCHAR(128) NULL,
  end_station_id VARCHAR(32) NULL,
  PRIMARY KEY (id)
) ENGINE=InnoDB
`, table)); err != nil {
		return err
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rideables := []string{"classic_bike", "electric_bike", "docked_bike"}
	const batchSize int64 = 2000
	for start := int64(0); start < cfg.Rows; start += batchSize {
		end := start + batchSize
		if end > cfg.Rows {
			end = cfg.Rows
		}
		rowN := end - start

		placeholders := make([]string, 0, rowN)
		args := make([]interface{}, 0, rowN*9)
		for i := start; i < end; i++ {
			startStation := i % cfg.Stations
			endStation := (i*7 + 3) % cfg.Stations
			startedAt := base.Add(time.Duration(i*37) * time.Second)
			var endName, endID interface{}
			if i%97 != 0 {
				endName = fmt.Sprintf("Station %04d", endStation)
				endID = fmt.Sprintf("S%04d", endStation)
			}
			placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				i+1,
				fmt.Sprintf("R%012d", i+1),
				rideables[i%int64(len(rideables))],
				startedAt,
				startedAt.Add(17*time.Minute),
				fmt.Sprintf("Station %04d", startStation),
				fmt.Sprintf("S%04d", startStation),
				endName,
				endID,
			)
		}

		insertSQL := fmt.Sprintf(
			"INSERT INTO %s (id, ride_id, rideable_type, started_at, ended_at, start_station_name, start_station_id, end_station_name, end_station_id) VALUES %s",
			table,
			strings.Join(placeholders, ","),
		)
		if _, err := db.ExecContext(ctx, insertSQL, args...); err != nil {
			return err
		}
	}

	_, err = db.ExecContext(ctx, fmt.Sprintf(`ANALYZE TABLE %s`, table))
	return err
}

// popularitySQL counts every present start and end station the way the
// popular app does: trimmed, with placeholder names dropped.
func popularitySQL(table, startCol, endCol string) string {
	station := func(col string) string {
		return fmt.Sprintf("TRIM(REPLACE(%s, ',', ' '))", col)
	}
	return fmt.Sprintf(`
SELECT station, COUNT(*) AS total
FROM (
  SELECT %s AS station FROM %s
  UNION ALL
  SELECT %s AS station FROM %s
) s
WHERE station IS NOT NULL AND station <> '' AND UPPER(station) NOT IN ('NULL', 'NA')
GROUP BY station
ORDER BY station`, station(startCol), table, station(endCol), table)
}

// ValidatePopularity checks the sink table against station counts computed
// directly from the trip table.
func ValidatePopularity(ctx context.Context, db *sql.DB, cfg ValidateConfig) error {
	cfg.withDefaults()
	if cfg.SourceTable == "" || cfg.TargetTable == "" {
		return fmt.Errorf("source table and target table are required")
	}

	srcTable, err := mysql_batch.QuoteIdentifier(cfg.SourceTable)
	if err != nil {
		return err
	}
	startCol, err := mysql_batch.QuoteIdentifier(cfg.StartColumn)
	if err != nil {
		return err
	}
	endCol, err := mysql_batch.QuoteIdentifier(cfg.EndColumn)
	if err != nil {
		return err
	}
	tgtTable, err := mysql_batch.QuoteIdentifier(cfg.TargetTable)
	if err != nil {
		return err
	}
	tgtKey, err := mysql_batch.QuoteIdentifier(cfg.TargetKey)
	if err != nil {
		return err
	}
	tgtVal, err := mysql_batch.QuoteIdentifier(cfg.TargetVal)
	if err != nil {
		return err
	}

	expectedSQL := popularitySQL(srcTable, startCol, endCol)
	actualSQL := fmt.Sprintf(`
SELECT %s, %s
FROM %s
ORDER BY %s`, tgtKey, tgtVal, tgtTable, tgtKey)

	expectedRows, err := db.QueryContext(ctx, expectedSQL)
	if err != nil {
		return err
	}
	defer expectedRows.Close()

	actualRows, err := db.QueryContext(ctx, actualSQL)
	if err != nil {
		return err
	}
	defer actualRows.Close()

	idx := 0
	for {
		eNext := expectedRows.Next()
		aNext := actualRows.Next()
		if !eNext || !aNext {
			if eNext != aNext {
				return fmt.Errorf("row count mismatch in validation")
			}
			break
		}
		idx++
		var ek string
		var ev int64
		if err := expectedRows.Scan(&ek, &ev); err != nil {
			return err
		}
		var ak string
		var av int64
		if err := actualRows.Scan(&ak, &av); err != nil {
			return err
		}
		if ek != ak || ev != av {
			return fmt.Errorf("validation mismatch at row %d: expected (%s,%d), actual (%s,%d)", idx, ek, ev, ak, av)
		}
	}
	if err := expectedRows.Err(); err != nil {
		return err
	}
	return actualRows.Err()
}
