package mrapps

import (
	"context"

	"github.com/emptyOVO/tripcount/sideinput"
	"github.com/emptyOVO/tripcount/trip"
	"github.com/emptyOVO/tripcount/worker"
)

// PopularStations counts each station once per trip start and once per trip end.
type PopularStations struct {
	parser trip.Parser
}

func newPopularFactory(opts Options) (worker.MapperFactory, error) {
	format := opts.TimeFormat
	if format == "" {
		format = trip.FormatUS
	}
	parser, err := trip.NewParser(format)
	if err != nil {
		return nil, err
	}
	return func() worker.Mapper { return &PopularStations{parser: parser} }, nil
}

func (m *PopularStations) Setup(ctx context.Context, cacheFiles []sideinput.Candidate) error {
	return nil
}

// Map emits (start, 1) and (end, 1). A round trip to the same station emits
// two contributions; absent stations emit nothing.
func (m *PopularStations) Map(offset int64, line string, ctx worker.MrContext) {
	rec, outcome := m.parser.Split(offset, line)
	if outcome != trip.OK {
		skip(AppPopular, outcome, offset, nil)
		return
	}
	accept(AppPopular)
	if start, ok := rec.StartStation(); ok {
		ctx.EmitIntermediate(start, 1)
	}
	if end, ok := rec.EndStation(); ok {
		ctx.EmitIntermediate(end, 1)
	}
}
