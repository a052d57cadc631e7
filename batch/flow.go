package batch

import (
	"context"
	"time"

	"github.com/emptyOVO/tripcount/batch/mysql_batch"
	"github.com/emptyOVO/tripcount/batch/redis_batch"
	"github.com/emptyOVO/tripcount/master"
	"github.com/emptyOVO/tripcount/mrapps"
	"github.com/emptyOVO/tripcount/sideinput"
	"github.com/emptyOVO/tripcount/trip"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// FlowConfig describes a source -> count -> sink pipeline.
type FlowConfig struct {
	Version   string              `json:"version"`
	Source    FlowSourceConfig    `json:"source"`
	Transform FlowTransformConfig `json:"transform"`
	Sink      FlowSinkConfig      `json:"sink"`
}

type FlowSourceConfig struct {
	Type        string            `json:"type"`
	Paths       []string          `json:"paths"`
	DB          DBConfig          `json:"db"`
	Redis       RedisConnConfig   `json:"redis"`
	Config      SourceConfig      `json:"config"`
	RedisConfig RedisSourceConfig `json:"redis_config"`
}

type FlowTransformConfig struct {
	App             string                      `json:"app"`
	TimeFormat      string                      `json:"time_format"`
	SideInputs      []string                    `json:"side_inputs"`
	SideInputName   string                      `json:"side_input_name"`
	Discovery       string                      `json:"discovery"`
	ObjectStore     sideinput.ObjectStoreConfig `json:"object_store"`
	Reducers        int                         `json:"reducers"`
	Workers         int                         `json:"workers"`
	SplitSize       int64                       `json:"split_size"`
	InRAM           bool                        `json:"in_ram"`
	DisableCombiner bool                        `json:"disable_combiner"`
	Transport       string                      `json:"transport"`
	ScratchDir      string                      `json:"scratch_dir"`
}

type FlowSinkConfig struct {
	Type        string          `json:"type"`
	OutputDir   string          `json:"output_dir"`
	DB          DBConfig        `json:"db"`
	Redis       RedisConnConfig `json:"redis"`
	Config      SinkConfig      `json:"config"`
	RedisConfig RedisSinkConfig `json:"redis_config"`
}

func (c *FlowConfig) withDefaults() {
	if c.Source.Type == "" {
		c.Source.Type = "file"
	}
	if c.Sink.Type == "" {
		c.Sink.Type = "file"
	}
	if c.Sink.OutputDir == "" {
		c.Sink.OutputDir = "output"
	}
	if c.Transform.TimeFormat == "" {
		c.Transform.TimeFormat = string(trip.FormatUS)
	}
	if c.Transform.SideInputName == "" {
		c.Transform.SideInputName = sideinput.DefaultName
	}
	if c.Transform.Discovery == "" {
		c.Transform.Discovery = string(sideinput.DiscoverAlias)
	}
	if c.Transform.Reducers <= 0 {
		c.Transform.Reducers = 8
	}
	if c.Transform.Workers <= 0 {
		c.Transform.Workers = 16
	}
	if c.Transform.SplitSize <= 0 {
		c.Transform.SplitSize = master.DefaultSplitSize
	}
	if c.Transform.Transport == "" {
		c.Transform.Transport = string(master.TransportLocal)
	}
	if c.Transform.ObjectStore.Endpoint == "" {
		c.Transform.ObjectStore = sideinput.ObjectStoreConfigFromEnv()
	}
	c.Source.Config.WithDefaults()
	c.Source.RedisConfig.WithDefaults()
	c.Sink.Config.WithDefaults()
	c.Sink.RedisConfig.WithDefaults()
}

// FlowBenchmarkResult captures source/transform/sink stage durations.
type FlowBenchmarkResult struct {
	SourceDuration    time.Duration
	TransformDuration time.Duration
	SinkDuration      time.Duration
	TotalDuration     time.Duration
}

// RunFlow executes source -> transform -> sink defined by FlowConfig.
func RunFlow(ctx context.Context, cfg FlowConfig) error {
	_, err := runFlowInternal(ctx, cfg, false)
	return err
}

// RunFlowBenchmark executes a config-driven flow and reports stage durations.
func RunFlowBenchmark(ctx context.Context, cfg FlowConfig) (FlowBenchmarkResult, error) {
	return runFlowInternal(ctx, cfg, true)
}

func runFlowInternal(ctx context.Context, cfg FlowConfig, collectDur bool) (FlowBenchmarkResult, error) {
	var bench FlowBenchmarkResult
	started := time.Now()

	cfg.withDefaults()
	if err := ValidateFlowConfig(cfg); err != nil {
		return bench, err
	}
	// validated above
	format, _ := trip.ParseTimeFormat(cfg.Transform.TimeFormat)
	discovery, _ := sideinput.ParseDiscovery(cfg.Transform.Discovery)
	transport, _ := master.ParseTransport(cfg.Transform.Transport)

	logger := log.WithFields(log.Fields{"run": uuid.New().String(), "app": cfg.Transform.App})
	logger.Info("[Flow] Start flow")

	sSource := time.Now()
	files, err := exportSource(ctx, cfg.Source, format)
	if err != nil {
		return bench, err
	}
	if collectDur {
		bench.SourceDuration = time.Since(sSource)
	}
	if len(files) == 0 {
		logger.Warn("[Flow] Source is empty, nothing to count")
		return bench, nil
	}
	logger.WithField("files", len(files)).Info("[Flow] Source ready")

	sTransform := time.Now()
	result, err := RunMapReduce(ctx, MapReduceRunConfig{
		App:        cfg.Transform.App,
		Files:      files,
		SideInputs: cfg.Transform.SideInputs,
		Options: mrapps.Options{
			TimeFormat:    format,
			SideInputName: cfg.Transform.SideInputName,
			Discovery:     discovery,
			ObjectStore:   cfg.Transform.ObjectStore,
		},
		Reducers:        cfg.Transform.Reducers,
		Workers:         cfg.Transform.Workers,
		SplitSize:       cfg.Transform.SplitSize,
		InRAM:           cfg.Transform.InRAM,
		ScratchDir:      cfg.Transform.ScratchDir,
		DisableCombiner: cfg.Transform.DisableCombiner,
		Transport:       transport,
	})
	if err != nil {
		return bench, err
	}
	if collectDur {
		bench.TransformDuration = time.Since(sTransform)
	}

	sSink := time.Now()
	if err := writeSink(ctx, cfg.Sink, result); err != nil {
		return bench, err
	}
	if collectDur {
		bench.SinkDuration = time.Since(sSink)
		bench.TotalDuration = time.Since(started)
	}
	logger.WithField("elapsed", time.Since(started)).Info("[Flow] Flow finish")
	return bench, nil
}

func exportSource(ctx context.Context, src FlowSourceConfig, format trip.TimeFormat) ([]string, error) {
	switch src.Type {
	case "mysql":
		db, err := OpenForApp(ctx, src.DB)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		cfg := src.Config
		cfg.TimeLayout = format.Layout()
		return mysql_batch.NewSourceAdapter(cfg).Export(ctx, db)
	case "redis":
		return redis_batch.NewSourceAdapter(src.Redis, src.RedisConfig).Export(ctx)
	default:
		return src.Paths, nil
	}
}

func writeSink(ctx context.Context, sink FlowSinkConfig, result master.Result) error {
	switch sink.Type {
	case "mysql":
		db, err := OpenForApp(ctx, sink.DB)
		if err != nil {
			return err
		}
		defer db.Close()
		return mysql_batch.NewSinkAdapter(sink.Config).Import(ctx, db, result.Pairs())
	case "redis":
		return redis_batch.NewSinkAdapter(sink.Redis, sink.RedisConfig).Import(ctx, result.Pairs())
	default:
		_, err := WriteReduceOutputs(sink.OutputDir, result)
		return err
	}
}
