package batch

import (
	"context"
	"fmt"

	tripcount "github.com/emptyOVO/tripcount"
	"github.com/emptyOVO/tripcount/master"
)

// SingleMachineRunner runs every worker inside this process.
type SingleMachineRunner struct{}

func (SingleMachineRunner) Run(ctx context.Context, cfg MapReduceRunConfig) (master.Result, error) {
	if len(cfg.Files) == 0 {
		return master.Result{}, fmt.Errorf("no input files")
	}
	if cfg.Reducers <= 0 {
		return master.Result{}, fmt.Errorf("reducers must be > 0")
	}
	if cfg.Workers <= 0 {
		return master.Result{}, fmt.Errorf("workers must be > 0")
	}
	if err := ctx.Err(); err != nil {
		return master.Result{}, err
	}
	return tripcount.StartSingleMachineJob(ctx, tripcount.JobConfig{
		App:             cfg.App,
		Inputs:          cfg.Files,
		SideInputs:      cfg.SideInputs,
		Options:         cfg.Options,
		Workers:         cfg.Workers,
		Reducers:        cfg.Reducers,
		SplitSize:       cfg.SplitSize,
		InRAM:           cfg.InRAM,
		ScratchDir:      cfg.ScratchDir,
		DisableCombiner: cfg.DisableCombiner,
		Transport:       cfg.Transport,
	})
}
