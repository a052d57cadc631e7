package mrapps

import (
	"context"

	"github.com/emptyOVO/tripcount/sideinput"
	"github.com/emptyOVO/tripcount/trip"
	"github.com/emptyOVO/tripcount/worker"
)

// BusiestHour counts trip starts at the top stations per weekday and hour.
type BusiestHour struct {
	parser trip.Parser
	loader sideinput.Loader
	top    sideinput.StationSet
	ready  bool
}

func newBusiestFactory(opts Options) (worker.MapperFactory, error) {
	format := opts.TimeFormat
	if format == "" {
		format = trip.FormatUS
	}
	parser, err := trip.NewParser(format)
	if err != nil {
		return nil, err
	}
	discovery := opts.Discovery
	if discovery == "" {
		discovery = sideinput.DiscoverAlias
	}
	loader := sideinput.Loader{
		Name:        opts.SideInputName,
		Discovery:   discovery,
		ObjectStore: opts.ObjectStore,
	}
	return func() worker.Mapper { return &BusiestHour{parser: parser, loader: loader} }, nil
}

// Setup loads this worker's copy of the top station list.
func (m *BusiestHour) Setup(ctx context.Context, cacheFiles []sideinput.Candidate) error {
	top, err := m.loader.Load(ctx, cacheFiles)
	if err != nil {
		return err
	}
	m.top = top
	m.ready = true
	return nil
}

// Map emits one (station_WEEKDAY_HH, 1) for trips leaving a top station.
// Other trips are filtered out before their timestamp is looked at. Only
// started_at and the start station are read, but a line still needs the
// full record shape through the end station or it counts as malformed.
func (m *BusiestHour) Map(offset int64, line string, ctx worker.MrContext) {
	if !m.ready {
		panic("BusiestHour.Map called before Setup")
	}
	rec, outcome := m.parser.Split(offset, line)
	if outcome != trip.OK {
		skip(AppBusiest, outcome, offset, nil)
		return
	}
	station, ok := rec.StartStation()
	if !ok || !m.top.Contains(station) {
		accept(AppBusiest)
		return
	}
	startedAt, err := m.parser.StartedAt(rec)
	if err != nil {
		skip(AppBusiest, trip.SkipMalformed, offset, err)
		return
	}
	accept(AppBusiest)
	ctx.EmitIntermediate(trip.BucketFor(station, startedAt).String(), 1)
}
