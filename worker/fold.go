package worker

import "sort"

// Combine folds kvs into one pair per distinct key, ordered by key. Counts
// are summed, so applying Combine any number of times, to any grouping of
// the input, leaves the final per-key totals unchanged.
func Combine(kvs []KV) []KV {
	counts := make(map[string]int64, len(kvs))
	for _, kv := range kvs {
		counts[kv.Key] += kv.Count
	}
	return sortedPairs(counts)
}

// Sum adds up the counts of one key.
func Sum(counts []int64) int64 {
	var total int64
	for _, c := range counts {
		total += c
	}
	return total
}

func sortedPairs(counts map[string]int64) []KV {
	out := make([]KV, 0, len(counts))
	for k, v := range counts {
		out = append(out, KV{Key: k, Count: v})
	}
	sort.Sort(byKey(out))
	return out
}

// rawContext keeps every emitted pair, for runs with the combiner disabled.
type rawContext struct {
	kvs []KV
}

func (c *rawContext) EmitIntermediate(key string, count int64) {
	c.kvs = append(c.kvs, KV{Key: key, Count: count})
}

// combiningContext folds pairs as they are emitted.
type combiningContext struct {
	counts  map[string]int64
	emitted int64
}

func newCombiningContext() *combiningContext {
	return &combiningContext{counts: make(map[string]int64)}
}

func (c *combiningContext) EmitIntermediate(key string, count int64) {
	c.counts[key] += count
	c.emitted++
}

func (c *combiningContext) pairs() []KV {
	return sortedPairs(c.counts)
}
