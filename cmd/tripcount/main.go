package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emptyOVO/tripcount/batch"
	"github.com/emptyOVO/tripcount/metrics"
	"github.com/emptyOVO/tripcount/mrapps"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type options struct {
	nReducer        int
	nWorker         int
	splitSize       int64
	inRAM           bool
	disableCombiner bool
	transport       string
	format          string
	discovery       string
	sideInputName   string
	sink            string
	scratchDir      string
	metricsAddr     string
	logLevel        string
	timeout         time.Duration
}

func getenvDefault(name, d string) string {
	v := os.Getenv(name)
	if v == "" {
		return d
	}
	return v
}

func getenvInt(name string, d int) int {
	v := os.Getenv(name)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func getenvBool(name string, d bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return d
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return d
	}
	return b
}

func getenvDuration(name string, d time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return d
	}
	td, err := time.ParseDuration(v)
	if err != nil {
		return d
	}
	return td
}

func main() {
	must(newRootCmd().Execute())
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	var metricsSrv *http.Server

	rootCmd := &cobra.Command{
		Use:   "tripcount",
		Short: "Count bike-share trips per station and per station hour",
		Long: `tripcount runs map/reduce counting jobs over bike-share trip exports.
"popular" counts how often each station is a trip start or end; "busiest" counts
trips leaving the top stations per weekday and hour.`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(level)
			log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
			if opts.metricsAddr != "" {
				metricsSrv = metrics.Serve(opts.metricsAddr)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if metricsSrv != nil {
				_ = metricsSrv.Close()
			}
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.IntVarP(&opts.nReducer, "reduce", "r", getenvInt("MR_REDUCERS", 8), "Number of Reducers")
	pf.IntVarP(&opts.nWorker, "worker", "w", getenvInt("MR_WORKERS", 16), "Number of Workers")
	pf.Int64Var(&opts.splitSize, "split-size", int64(getenvInt("MR_SPLIT_SIZE", 64<<20)), "Split size in bytes")
	pf.BoolVarP(&opts.inRAM, "inRAM", "m", getenvBool("MR_IN_RAM", false), "Whether write the intermediate file in RAM")
	pf.BoolVar(&opts.disableCombiner, "disable-combiner", getenvBool("MR_DISABLE_COMBINER", false), "Ship raw (key, 1) pairs to the reducers")
	pf.StringVar(&opts.transport, "transport", getenvDefault("MR_TRANSPORT", "local"), "Shuffle transport: local|grpc")
	pf.StringVar(&opts.format, "format", getenvDefault("TRIP_TIME_FORMAT", "us"), "Timestamp format of started_at: us|iso")
	pf.StringVar(&opts.discovery, "discovery", getenvDefault("SIDEINPUT_DISCOVERY", "alias"), "Side input discovery: alias|suffix")
	pf.StringVar(&opts.sideInputName, "side-input-name", getenvDefault("SIDEINPUT_NAME", "top_stations.txt"), "Logical name of the top stations file")
	pf.StringVar(&opts.sink, "sink", getenvDefault("SINK_TYPE", "file"), "Output sink: file|mysql|redis")
	pf.StringVar(&opts.scratchDir, "scratch-dir", os.Getenv("MR_SCRATCH_DIR"), "Directory for intermediate files when not in RAM")
	pf.StringVar(&opts.metricsAddr, "metrics-addr", os.Getenv("METRICS_ADDR"), "Expose prometheus metrics on this address")
	pf.StringVar(&opts.logLevel, "log-level", getenvDefault("LOG_LEVEL", "info"), "Log level")
	pf.DurationVar(&opts.timeout, "timeout", getenvDuration("MR_TIMEOUT", 2*time.Hour), "Abort the job after this long")

	rootCmd.AddCommand(
		newPopularCmd(opts),
		newBusiestCmd(opts),
		newRunCmd(opts),
		newPrepareCmd(opts),
		newValidateCmd(opts),
	)
	return rootCmd
}

func newPopularCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "popular <input> <output>",
		Short: "Count trip starts and ends per station",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runJob(opts, mrapps.AppPopular, args[0], args[1], nil)
		},
	}
}

func newBusiestCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "busiest <input> <output> <top-stations-uri>",
		Short: "Count trips leaving the top stations per weekday and hour",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runJob(opts, mrapps.AppBusiest, args[0], args[1], []string{args[2]})
		},
	}
}

// runJob runs one app over a file input. The output argument is a directory
// for the file sink, a table for mysql and a key prefix for redis.
func runJob(opts *options, app, input, output string, sideInputs []string) error {
	cfg := batch.FlowConfig{
		Version: batch.FlowVersionV1,
		Source:  batch.FlowSourceConfig{Type: "file", Paths: []string{input}},
		Transform: batch.FlowTransformConfig{
			App:             app,
			TimeFormat:      opts.format,
			SideInputs:      withAlias(sideInputs, opts.sideInputName),
			SideInputName:   opts.sideInputName,
			Discovery:       opts.discovery,
			Reducers:        opts.nReducer,
			Workers:         opts.nWorker,
			SplitSize:       opts.splitSize,
			InRAM:           opts.inRAM,
			DisableCombiner: opts.disableCombiner,
			Transport:       opts.transport,
			ScratchDir:      opts.scratchDir,
		},
		Sink: batch.FlowSinkConfig{Type: opts.sink},
	}
	switch opts.sink {
	case "mysql":
		cfg.Sink.DB = dbFromEnv("MYSQL_TARGET")
		cfg.Sink.Config = batch.SinkConfig{
			TargetTable: output,
			KeyColumn:   getenvDefault("TARGET_KEY_COL", "count_key"),
			ValColumn:   getenvDefault("TARGET_VALUE_COL", "trip_count"),
			Replace:     getenvBool("SINK_REPLACE", true),
			BatchSize:   getenvInt("SINK_BATCH_SIZE", 2000),
		}
	case "redis":
		cfg.Sink.Redis = redisFromEnv()
		cfg.Sink.RedisConfig = batch.RedisSinkConfig{
			KeyPrefix:  output,
			ValueField: getenvDefault("REDIS_VALUE_FIELD", "trip_count"),
			Replace:    getenvBool("SINK_REPLACE", true),
		}
	default:
		cfg.Sink.OutputDir = output
	}
	if err := batch.ValidateFlowConfig(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()
	if err := batch.RunFlow(ctx, cfg); err != nil {
		return err
	}
	fmt.Printf("%s done -> %s\n", app, output)
	return nil
}

// withAlias names every side-input location that has no #fragment after the
// logical side-input file, so the file itself may be called anything.
func withAlias(locations []string, alias string) []string {
	if len(locations) == 0 || alias == "" {
		return locations
	}
	out := make([]string, len(locations))
	for i, loc := range locations {
		if strings.Contains(loc, "#") {
			out[i] = loc
			continue
		}
		out[i] = loc + "#" + alias
	}
	return out
}

func newRunCmd(opts *options) *cobra.Command {
	var configPath string
	var checkOnly, benchmark bool
	cmd := &cobra.Command{
		Use:   "run --config flow.json",
		Short: "Run a flow described by a JSON config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg, err := loadFlowConfig(configPath)
			if err != nil {
				return err
			}
			if err := batch.ValidateFlowConfig(cfg); err != nil {
				return err
			}
			if checkOnly {
				fmt.Println("config check pass")
				return nil
			}
			ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
			defer cancel()
			if benchmark {
				result, err := batch.RunFlowBenchmark(ctx, cfg)
				if err != nil {
					return err
				}
				fmt.Printf("source=%s transform=%s sink=%s total=%s\n", result.SourceDuration, result.TransformDuration, result.SinkDuration, result.TotalDuration)
				return nil
			}
			if err := batch.RunFlow(ctx, cfg); err != nil {
				return err
			}
			fmt.Println("flow done")
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Flow config file path (JSON)")
	cmd.MarkFlagRequired("config")
	cmd.Flags().BoolVar(&checkOnly, "check", false, "Validate flow config schema only")
	cmd.Flags().BoolVar(&benchmark, "benchmark", false, "Report per-stage durations")
	return cmd
}

func newPrepareCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "prepare",
		Short: "Create a synthetic MySQL trip table for benchmarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
			defer cancel()
			db, err := batch.OpenForApp(ctx, dbFromEnv("MYSQL_SOURCE"))
			if err != nil {
				return err
			}
			defer db.Close()
			err = batch.PrepareSyntheticTrips(ctx, db, batch.PrepareConfig{
				SourceTable: getenvDefault("SOURCE_TABLE", "trips"),
				Rows:        int64(getenvInt("ROWS", 1000000)),
				Stations:    int64(getenvInt("STATIONS", 500)),
			})
			if err != nil {
				return err
			}
			fmt.Println("prepare done")
			return nil
		},
	}
}

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check a MySQL popularity table against the trip table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
			defer cancel()
			db, err := batch.OpenForApp(ctx, dbFromEnv("MYSQL"))
			if err != nil {
				return err
			}
			defer db.Close()
			err = batch.ValidatePopularity(ctx, db, batch.ValidateConfig{
				SourceTable: getenvDefault("SOURCE_TABLE", "trips"),
				TargetTable: getenvDefault("TARGET_TABLE", "station_popularity"),
				TargetKey:   getenvDefault("TARGET_KEY_COL", "count_key"),
				TargetVal:   getenvDefault("TARGET_VALUE_COL", "trip_count"),
			})
			if err != nil {
				return err
			}
			fmt.Println("validate pass")
			return nil
		},
	}
}

// dbFromEnv reads <prefix>_HOST etc., falling back to the shared MYSQL_* values.
func dbFromEnv(prefix string) batch.DBConfig {
	base := batch.DBConfig{
		Host:     getenvDefault("MYSQL_HOST", "127.0.0.1"),
		Port:     getenvInt("MYSQL_PORT", 3306),
		User:     getenvDefault("MYSQL_USER", "root"),
		Password: os.Getenv("MYSQL_PASSWORD"),
		Database: os.Getenv("MYSQL_DB"),
	}
	if prefix == "MYSQL" {
		return base
	}
	return batch.DBConfig{
		Host:     getenvDefault(prefix+"_HOST", base.Host),
		Port:     getenvInt(prefix+"_PORT", base.Port),
		User:     getenvDefault(prefix+"_USER", base.User),
		Password: getenvDefault(prefix+"_PASSWORD", base.Password),
		Database: getenvDefault(prefix+"_DB", base.Database),
	}
}

func redisFromEnv() batch.RedisConnConfig {
	return batch.RedisConnConfig{
		Host:     getenvDefault("REDIS_HOST", "127.0.0.1"),
		Port:     getenvInt("REDIS_PORT", 6379),
		Username: os.Getenv("REDIS_USERNAME"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getenvInt("REDIS_DB", 0),
	}
}

func must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadFlowConfig(path string) (batch.FlowConfig, error) {
	var cfg batch.FlowConfig
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	if strings.TrimSpace(cfg.Version) == "" {
		return cfg, fmt.Errorf("%s: version is required", path)
	}
	return cfg, nil
}
