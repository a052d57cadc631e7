package redis_batch

import (
	"context"

	"github.com/emptyOVO/tripcount/worker"
)

type SourceAdapter struct {
	connCfg ConnConfig
	cfg     SourceConfig
}

func NewSourceAdapter(connCfg ConnConfig, cfg SourceConfig) SourceAdapter {
	return SourceAdapter{connCfg: connCfg, cfg: cfg}
}

func (a SourceAdapter) Export(ctx context.Context) ([]string, error) {
	return ExportSource(ctx, a.connCfg, a.cfg)
}

type SinkAdapter struct {
	connCfg ConnConfig
	cfg     SinkConfig
}

func NewSinkAdapter(connCfg ConnConfig, cfg SinkConfig) SinkAdapter {
	return SinkAdapter{connCfg: connCfg, cfg: cfg}
}

func (a SinkAdapter) Import(ctx context.Context, kvs []worker.KV) error {
	return ImportCounts(ctx, a.connCfg, a.cfg, kvs)
}
