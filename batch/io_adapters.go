package batch

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/emptyOVO/tripcount/batch/mysql_batch"
	"github.com/emptyOVO/tripcount/batch/redis_batch"
	"github.com/emptyOVO/tripcount/master"
	"github.com/emptyOVO/tripcount/worker"
	log "github.com/sirupsen/logrus"
)

const reduceOutputPattern = "mr-out-*.txt"

func ExportSourceByPKRange(ctx context.Context, db *sql.DB, cfg SourceConfig) ([]string, error) {
	return mysql_batch.ExportSourceByPKRange(ctx, db, cfg)
}

func ImportCounts(ctx context.Context, db *sql.DB, cfg SinkConfig, kvs []worker.KV) error {
	return mysql_batch.ImportCounts(ctx, db, cfg, kvs)
}

func ExportSourceFromRedis(ctx context.Context, connCfg RedisConnConfig, cfg RedisSourceConfig) ([]string, error) {
	return redis_batch.ExportSource(ctx, connCfg, cfg)
}

func ImportCountsToRedis(ctx context.Context, connCfg RedisConnConfig, cfg RedisSinkConfig, kvs []worker.KV) error {
	return redis_batch.ImportCounts(ctx, connCfg, cfg, kvs)
}

// WriteReduceOutputs writes one mr-out-<partition>.txt per reduce partition,
// each line "key\tcount". Outputs of a previous run in dir are removed first.
func WriteReduceOutputs(dir string, result master.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	cleanupReduceOutputs(filepath.Join(dir, reduceOutputPattern))

	files := make([]string, 0, len(result.Partitions))
	for r, kvs := range result.Partitions {
		name := filepath.Join(dir, fmt.Sprintf("mr-out-%d.txt", r))
		if err := writeReduceFile(name, kvs); err != nil {
			return nil, err
		}
		files = append(files, name)
	}
	log.WithFields(log.Fields{"dir": dir, "files": len(files)}).Info("[Sink] File output finish")
	return files, nil
}

func writeReduceFile(name string, kvs []worker.KV) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, kv := range kvs {
		if _, err := fmt.Fprintf(w, "%s\t%d\n", kv.Key, kv.Count); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadReduceOutputs reads every mr-out file in dir back into counts. Keys may
// contain spaces; the count is after the last tab.
func ReadReduceOutputs(dir string) (map[string]int64, error) {
	files, err := filepath.Glob(filepath.Join(dir, reduceOutputPattern))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no reduce output files matched: %s", filepath.Join(dir, reduceOutputPattern))
	}
	out := make(map[string]int64)
	for _, file := range files {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			i := strings.LastIndexByte(line, '\t')
			if i < 0 {
				f.Close()
				return nil, fmt.Errorf("%s: bad line %q", file, line)
			}
			n, err := strconv.ParseInt(line[i+1:], 10, 64)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("%s: bad count in %q", file, line)
			}
			out[line[:i]] += n
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return nil, err
		}
		f.Close()
	}
	return out, nil
}

func cleanupReduceOutputs(inputGlob string) {
	if outs, err := filepath.Glob(inputGlob); err == nil {
		for _, out := range outs {
			_ = os.Remove(out)
		}
	}
}
