package redis_batch

import (
	"context"
	"fmt"

	"github.com/emptyOVO/tripcount/worker"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// SinkConfig stores each count as one hash: <KeyPrefix><key> -> {ValueField: count}.
type SinkConfig struct {
	KeyPrefix  string `json:"key_prefix"`
	ValueField string `json:"value_field"`
	Replace    bool   `json:"replace"`
	BatchSize  int    `json:"batchsize"`
}

func (c *SinkConfig) WithDefaults() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "tripcount:"
	}
	if c.ValueField == "" {
		c.ValueField = "trip_count"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 1000
	}
}

// ImportCounts writes reduced counts with pipelined HSETs.
func ImportCounts(ctx context.Context, connCfg ConnConfig, cfg SinkConfig, kvs []worker.KV) error {
	cfg.WithDefaults()
	c, err := openRedis(ctx, connCfg)
	if err != nil {
		return err
	}
	defer c.Close()

	if cfg.Replace {
		if err := deleteByPrefix(ctx, c, cfg.KeyPrefix); err != nil {
			return err
		}
	}

	for start := 0; start < len(kvs); start += cfg.BatchSize {
		end := start + cfg.BatchSize
		if end > len(kvs) {
			end = len(kvs)
		}
		pipe := c.Pipeline()
		for _, kv := range kvs[start:end] {
			pipe.HSet(ctx, hashKey(cfg.KeyPrefix, kv.Key), cfg.ValueField, kv.Count)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("redis hset batch at %d: %w", start, err)
		}
	}
	log.WithFields(log.Fields{"prefix": cfg.KeyPrefix, "keys": len(kvs)}).Info("[Sink] Redis import finish")
	return nil
}

func hashKey(prefix, key string) string {
	return prefix + key
}

func deleteByPrefix(ctx context.Context, c *redis.Client, prefix string) error {
	iter := c.Scan(ctx, 0, prefix+"*", 1000).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= 1000 {
			if err := c.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.Del(ctx, batch...).Err()
	}
	return nil
}
