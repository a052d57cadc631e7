package batch

import (
	"context"

	"github.com/emptyOVO/tripcount/master"
	"github.com/emptyOVO/tripcount/mrapps"
)

// MapReduceRunConfig describes a runtime invocation for a counting job.
type MapReduceRunConfig struct {
	App             string
	Files           []string
	SideInputs      []string
	Options         mrapps.Options
	Reducers        int
	Workers         int
	SplitSize       int64
	InRAM           bool
	ScratchDir      string
	DisableCombiner bool
	Transport       master.Transport
}

// Runner abstracts runtime startup strategy for map-reduce execution.
type Runner interface {
	Run(ctx context.Context, cfg MapReduceRunConfig) (master.Result, error)
}

var defaultRunner Runner = SingleMachineRunner{}

// SetDefaultRunner overrides the process-wide runtime strategy.
func SetDefaultRunner(r Runner) {
	if r == nil {
		return
	}
	defaultRunner = r
}

// DefaultRunner returns the current process-wide runtime strategy.
func DefaultRunner() Runner {
	return defaultRunner
}

// RunMapReduce executes map-reduce through the configured runner.
func RunMapReduce(ctx context.Context, cfg MapReduceRunConfig) (master.Result, error) {
	return DefaultRunner().Run(ctx, cfg)
}
