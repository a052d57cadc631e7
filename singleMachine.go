package tripcount

import (
	"context"
	"fmt"
	"sync"

	"github.com/emptyOVO/tripcount/master"
	"github.com/emptyOVO/tripcount/mrapps"
	"github.com/emptyOVO/tripcount/sideinput"
	log "github.com/sirupsen/logrus"
)

var runtimeMu sync.Mutex

// JobConfig describes one in-process counting job.
type JobConfig struct {
	App             string
	Inputs          []string
	SideInputs      []string
	Options         mrapps.Options
	Workers         int
	Reducers        int
	SplitSize       int64
	InRAM           bool
	ScratchDir      string
	DisableCombiner bool
	Transport       master.Transport
}

// StartSingleMachineJob runs app over the inputs with every worker in this
// process. Inputs may be globs or directories.
func StartSingleMachineJob(ctx context.Context, cfg JobConfig) (master.Result, error) {
	inputs, err := ExpandInputs(cfg.Inputs)
	if err != nil {
		return master.Result{}, err
	}
	if len(inputs) == 0 {
		return master.Result{}, fmt.Errorf("no input files matched %v", cfg.Inputs)
	}
	factory, err := mrapps.NewMapperFactory(cfg.App, cfg.Options)
	if err != nil {
		return master.Result{}, err
	}
	cands, err := sideinput.ParseCandidates(cfg.SideInputs)
	if err != nil {
		return master.Result{}, err
	}
	if mrapps.NeedsSideInput(cfg.App) && len(cands) == 0 {
		return master.Result{}, fmt.Errorf("app %s needs a top stations side input", cfg.App)
	}

	// intermediate file names are unique per worker, the scratch dir and
	// /dev/shm are not; one job at a time keeps cleanup simple.
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	log.WithFields(log.Fields{"app": cfg.App, "inputs": len(inputs)}).Info("[Job] Start single machine job")
	return master.Run(ctx, master.Config{
		Inputs:          inputs,
		SplitSize:       cfg.SplitSize,
		Workers:         cfg.Workers,
		Reducers:        cfg.Reducers,
		InRAM:           cfg.InRAM,
		ScratchDir:      cfg.ScratchDir,
		DisableCombiner: cfg.DisableCombiner,
		Transport:       cfg.Transport,
		CacheFiles:      cands,
		NewMapper:       factory,
	})
}
