package mysql_batch

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/emptyOVO/tripcount/batch/internal/shard"
	log "github.com/sirupsen/logrus"
)

// ExportSourceByPKRange exports trip rows into CSV shard files. Every shard
// starts with the header row, followed by one line per trip in column order.
func ExportSourceByPKRange(ctx context.Context, db *sql.DB, cfg SourceConfig) ([]string, error) {
	cfg.WithDefaults()
	if cfg.Table == "" {
		return nil, fmt.Errorf("source table is required")
	}

	table, err := QuoteIdentifier(cfg.Table)
	if err != nil {
		return nil, err
	}
	pk, err := QuoteIdentifier(cfg.PKColumn)
	if err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(cfg.Columns))
	for _, c := range cfg.Columns {
		q, err := QuoteIdentifier(c)
		if err != nil {
			return nil, err
		}
		cols = append(cols, q)
	}

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

	boundsSQL := fmt.Sprintf("SELECT COALESCE(MIN(%s),0), COALESCE(MAX(%s),0), COUNT(*) FROM %s WHERE %s", pk, pk, table, cfg.Where)
	var minID, maxID, rowCount int64
	if err := db.QueryRowContext(ctx, boundsSQL).Scan(&minID, &maxID, &rowCount); err != nil {
		return nil, err
	}
	if rowCount == 0 {
		return []string{}, nil
	}

	span := maxID - minID + 1
	step := (span + int64(cfg.Shards) - 1) / int64(cfg.Shards)
	if step < 1 {
		step = 1
	}

	type shardTask struct {
		start int64
		end   int64
		file  string
	}
	tasks := make([]shardTask, 0, cfg.Shards)
	for i := 0; i < cfg.Shards; i++ {
		start := minID + int64(i)*step
		if start > maxID {
			break
		}
		end := start + step
		file := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s-%05d.csv", cfg.FilePrefix, i))
		tasks = append(tasks, shardTask{start: start, end: end, file: file})
	}

	workerN := cfg.Parallel
	if workerN > len(tasks) {
		workerN = len(tasks)
	}
	if workerN < 1 {
		workerN = 1
	}

	jobs := make(chan shardTask)
	errCh := make(chan error, 1)
	var wg sync.WaitGroup

	header := strings.Join(cfg.Columns, ",")
	querySQL := fmt.Sprintf("SELECT %s FROM %s WHERE %s >= ? AND %s < ? AND %s ORDER BY %s",
		strings.Join(cols, ", "), table, pk, pk, cfg.Where, pk)
	for i := 0; i < workerN; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range jobs {
				if err := exportOneShard(ctx, db, querySQL, header, cfg.TimeLayout, len(cols), task.start, task.end, task.file); err != nil {
					select {
					case errCh <- err:
					default:
					}
					return
				}
			}
		}()
	}

	for _, task := range tasks {
		select {
		case err := <-errCh:
			close(jobs)
			wg.Wait()
			return nil, err
		default:
		}
		jobs <- task
	}
	close(jobs)
	wg.Wait()

	select {
	case err := <-errCh:
		return nil, err
	default:
	}

	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.file)
	}
	log.WithFields(log.Fields{"table": cfg.Table, "rows": rowCount, "shards": len(out)}).Info("[Source] MySQL export finish")
	return out, nil
}

func exportOneShard(ctx context.Context, db *sql.DB, querySQL, header, layout string, nCols int, start, end int64, outFile string) error {
	rows, err := db.QueryContext(ctx, querySQL, start, end)
	if err != nil {
		return err
	}
	defer rows.Close()

	w, err := shard.Create(outFile, header)
	if err != nil {
		return err
	}

	vals := make([]interface{}, nCols)
	ptrs := make([]interface{}, nCols)
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	fields := make([]string, nCols)
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			w.Abort()
			return err
		}
		for i, v := range vals {
			fields[i] = csvField(v, layout)
		}
		if err := w.WriteLine(strings.Join(fields, ",")); err != nil {
			w.Abort()
			return err
		}
	}
	if err := rows.Err(); err != nil {
		w.Abort()
		return err
	}
	return w.Close()
}
