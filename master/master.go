// Package master plans splits and drives the workers through the map and
// reduce phases of one run.
package master

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/emptyOVO/tripcount/metrics"
	"github.com/emptyOVO/tripcount/sideinput"
	"github.com/emptyOVO/tripcount/worker"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const DefaultSplitSize int64 = 64 << 20

// Transport selects how reducers read intermediate files.
type Transport string

const (
	TransportLocal Transport = "local"
	TransportGRPC  Transport = "grpc"
)

type Config struct {
	Inputs          []string
	SplitSize       int64
	Workers         int
	Reducers        int
	InRAM           bool
	ScratchDir      string
	DisableCombiner bool
	Transport       Transport
	CacheFiles      []sideinput.Candidate
	NewMapper       worker.MapperFactory
}

func (c Config) withDefaults() Config {
	if c.SplitSize <= 0 {
		c.SplitSize = DefaultSplitSize
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Reducers <= 0 {
		c.Reducers = 1
	}
	if c.Transport == "" {
		c.Transport = TransportLocal
	}
	return c
}

func (c Config) validate() error {
	if len(c.Inputs) == 0 {
		return errors.New("no input files")
	}
	if c.NewMapper == nil {
		return errors.New("no mapper")
	}
	switch c.Transport {
	case TransportLocal, TransportGRPC:
	default:
		return errors.Errorf("unsupported transport: %q", c.Transport)
	}
	return nil
}

// Result holds the reduced pairs of one run, one slice per reduce partition.
type Result struct {
	Partitions [][]worker.KV
}

// Pairs flattens every partition into one key-ordered slice.
func (r Result) Pairs() []worker.KV {
	var out []worker.KV
	for _, p := range r.Partitions {
		out = append(out, p...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Counts returns the result as a key to count map.
func (r Result) Counts() map[string]int64 {
	out := make(map[string]int64)
	for _, p := range r.Partitions {
		for _, kv := range p {
			out[kv.Key] = kv.Count
		}
	}
	return out
}

// PlanSplits cuts every file into byte ranges of at most splitSize. Ranges
// are not line aligned; the reader resolves ownership of straddling lines.
func PlanSplits(files []string, splitSize int64) ([]worker.Split, error) {
	if splitSize <= 0 {
		splitSize = DefaultSplitSize
	}
	var splits []worker.Split
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			return nil, errors.Wrapf(err, "stat input %s", f)
		}
		if info.IsDir() {
			return nil, errors.Errorf("input %s is a directory", f)
		}
		size := info.Size()
		for from := int64(0); from < size; from += splitSize {
			to := from + splitSize
			if to > size {
				to = size
			}
			splits = append(splits, worker.Split{Index: len(splits), File: f, From: from, To: to})
		}
	}
	return splits, nil
}

// Run executes one job and returns its reduced output.
func Run(ctx context.Context, cfg Config) (Result, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}
	start := time.Now()
	splits, err := PlanSplits(cfg.Inputs, cfg.SplitSize)
	if err != nil {
		return Result{}, err
	}
	log.WithFields(log.Fields{
		"inputs":  len(cfg.Inputs),
		"splits":  len(splits),
		"workers": cfg.Workers,
		"reduce":  cfg.Reducers,
	}).Info("[Master] Start job")

	workers, err := startWorkers(ctx, cfg)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		for _, w := range workers {
			w.Stop()
		}
	}()

	var fetcher worker.IMDFetcher = worker.LocalFetcher{}
	if cfg.Transport == TransportGRPC {
		fetcher = worker.NewGRPCFetcher()
	}
	defer fetcher.Close()

	outputs, err := mapPhase(ctx, workers, splits)
	if err != nil {
		return Result{}, err
	}
	locs := shuffle(outputs, cfg.Reducers)

	parts, err := reducePhase(ctx, workers, locs, fetcher)
	if err != nil {
		return Result{}, err
	}
	metrics.ObserveTask("job", start)
	log.WithField("elapsed", time.Since(start)).Info("[Master] Job finish")
	return Result{Partitions: parts}, nil
}

// startWorkers creates the workers and runs their setup in parallel. A
// worker whose setup fails is logged and left out.
func startWorkers(ctx context.Context, cfg Config) ([]*worker.Worker, error) {
	all := make([]*worker.Worker, cfg.Workers)
	errs := make([]error, cfg.Workers)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		all[i] = worker.New(worker.Config{
			ID:              i,
			NReduce:         cfg.Reducers,
			StoreInRAM:      cfg.InRAM,
			ScratchDir:      cfg.ScratchDir,
			DisableCombiner: cfg.DisableCombiner,
			NewMapper:       cfg.NewMapper,
			CacheFiles:      cfg.CacheFiles,
		})
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := all[i]
			if err := w.Setup(ctx); err != nil {
				errs[i] = err
				return
			}
			if cfg.Transport == TransportGRPC {
				errs[i] = w.Serve("127.0.0.1:0")
			}
		}(i)
	}
	wg.Wait()

	var healthy []*worker.Worker
	var firstErr error
	for i, w := range all {
		if errs[i] != nil {
			metrics.WorkerSetupFailures.Inc()
			log.WithField("worker", w.ID).WithError(errs[i]).Error("[Master] Worker setup failed")
			if firstErr == nil {
				firstErr = errs[i]
			}
			w.Stop()
			continue
		}
		healthy = append(healthy, w)
	}
	if len(healthy) == 0 {
		return nil, errors.Wrapf(firstErr, "no healthy worker, %d failed setup", cfg.Workers)
	}
	log.WithField("healthy", len(healthy)).Info("[Master] Workers ready")
	return healthy, nil
}

// mapPhase feeds every split through a queue drained by the healthy workers.
// Each worker handles one split at a time.
func mapPhase(ctx context.Context, workers []*worker.Worker, splits []worker.Split) ([]worker.MapOutput, error) {
	log.Info("[Master] Start Map phase")
	outputs := make([]worker.MapOutput, len(splits))
	tasks := make(chan worker.Split)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(tasks)
		for _, s := range splits {
			select {
			case tasks <- s:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for _, w := range workers {
		w := w
		g.Go(func() error {
			for s := range tasks {
				out, err := w.Map(gctx, s)
				if err != nil {
					return errors.Wrapf(err, "map split %d (%s)", s.Index, s.File)
				}
				outputs[s.Index] = out
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

// shuffle groups the intermediate files by reduce partition.
func shuffle(outputs []worker.MapOutput, nReduce int) [][]worker.IMDLocation {
	locs := make([][]worker.IMDLocation, nReduce)
	for _, out := range outputs {
		for r, f := range out.Files {
			locs[r] = append(locs[r], worker.IMDLocation{Addr: out.Addr, Filename: f})
		}
	}
	return locs
}

func reducePhase(ctx context.Context, workers []*worker.Worker, locs [][]worker.IMDLocation, fetcher worker.IMDFetcher) ([][]worker.KV, error) {
	log.Info("[Master] Start Reduce phase")
	parts := make([][]worker.KV, len(locs))
	tasks := make(chan int)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(tasks)
		for r := range locs {
			select {
			case tasks <- r:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for _, w := range workers {
		w := w
		g.Go(func() error {
			for r := range tasks {
				kvs, err := w.Reduce(gctx, r, locs[r], fetcher)
				if err != nil {
					return err
				}
				parts[r] = kvs
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}

func (t Transport) String() string { return string(t) }

// ParseTransport accepts "local" and "grpc"; empty means local.
func ParseTransport(s string) (Transport, error) {
	switch Transport(s) {
	case "":
		return TransportLocal, nil
	case TransportLocal, TransportGRPC:
		return Transport(s), nil
	default:
		return "", fmt.Errorf("unsupported transport: %q (expected local|grpc)", s)
	}
}
