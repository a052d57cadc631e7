package mysql_batch

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/emptyOVO/tripcount/worker"
	log "github.com/sirupsen/logrus"
)

// ImportCounts upserts reduced counts into the target table in batches.
func ImportCounts(ctx context.Context, db *sql.DB, cfg SinkConfig, kvs []worker.KV) error {
	cfg.WithDefaults()
	if cfg.TargetTable == "" {
		return fmt.Errorf("target table is required")
	}

	table, err := QuoteIdentifier(cfg.TargetTable)
	if err != nil {
		return err
	}
	keyCol, err := QuoteIdentifier(cfg.KeyColumn)
	if err != nil {
		return err
	}
	valCol, err := QuoteIdentifier(cfg.ValColumn)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  %s VARCHAR(255) NOT NULL,
  %s BIGINT NOT NULL,
  PRIMARY KEY (%s)
)`, table, keyCol, valCol, keyCol)); err != nil {
		return err
	}
	if cfg.Replace {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
			return err
		}
	}

	for start := 0; start < len(kvs); start += cfg.BatchSize {
		end := start + cfg.BatchSize
		if end > len(kvs) {
			end = len(kvs)
		}
		chunk := kvs[start:end]
		args := make([]interface{}, 0, len(chunk)*2)
		for _, kv := range chunk {
			args = append(args, kv.Key, kv.Count)
		}
		if _, err := tx.ExecContext(ctx, upsertSQL(table, keyCol, valCol, len(chunk)), args...); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.WithFields(log.Fields{"table": cfg.TargetTable, "rows": len(kvs)}).Info("[Sink] MySQL import finish")
	return nil
}

// upsertSQL builds one multi-row upsert for n (key, count) rows.
func upsertSQL(table, keyCol, valCol string, n int) string {
	valueSQL := make([]string, n)
	for i := range valueSQL {
		valueSQL[i] = "(?, ?)"
	}
	return fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES %s ON DUPLICATE KEY UPDATE %s=VALUES(%s)",
		table, keyCol, valCol, strings.Join(valueSQL, ","), valCol, valCol)
}
