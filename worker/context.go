package worker

import (
	"context"

	"github.com/emptyOVO/tripcount/sideinput"
)

// KV is one (key, count) contribution.
type KV struct {
	Key   string
	Count int64
}

// MrContext receives the pairs a mapper emits.
type MrContext interface {
	EmitIntermediate(key string, count int64)
}

// Mapper turns input lines into (key, count) pairs. Each worker owns its own
// Mapper; Setup runs once before the first Map call.
type Mapper interface {
	Setup(ctx context.Context, cacheFiles []sideinput.Candidate) error
	Map(offset int64, line string, ctx MrContext)
}

// MapperFactory builds a fresh Mapper for a worker.
type MapperFactory func() Mapper

type byKey []KV

func (a byKey) Len() int           { return len(a) }
func (a byKey) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byKey) Less(i, j int) bool { return a[i].Key < a[j].Key }
