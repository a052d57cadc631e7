package master

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/emptyOVO/tripcount/sideinput"
	"github.com/emptyOVO/tripcount/worker"
	"github.com/pkg/errors"
)

// firstField counts the first comma separated field of every line.
type firstField struct {
	fail bool
}

func (m *firstField) Setup(ctx context.Context, cacheFiles []sideinput.Candidate) error {
	if m.fail {
		return sideinput.ErrMissing
	}
	return nil
}

func (m *firstField) Map(offset int64, line string, ctx worker.MrContext) {
	if line == "" {
		return
	}
	ctx.EmitIntermediate(strings.SplitN(line, ",", 2)[0], 1)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestPlanSplitsCoversEveryByte(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", strings.Repeat("x", 10))
	b := writeFile(t, dir, "b.csv", "")
	c := writeFile(t, dir, "c.csv", strings.Repeat("y", 4))

	splits, err := PlanSplits([]string{a, b, c}, 4)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(splits) != 4 {
		t.Fatalf("expected 4 splits, got %d: %+v", len(splits), splits)
	}
	covered := map[string]int64{}
	for i, s := range splits {
		if s.Index != i {
			t.Fatalf("split %d has index %d", i, s.Index)
		}
		if s.To-s.From > 4 || s.To <= s.From {
			t.Fatalf("bad range %+v", s)
		}
		covered[s.File] += s.To - s.From
	}
	if covered[a] != 10 || covered[c] != 4 || covered[b] != 0 {
		t.Fatalf("unexpected coverage %v", covered)
	}

	if _, err := PlanSplits([]string{filepath.Join(dir, "nope.csv")}, 4); err == nil {
		t.Fatalf("expected error for missing input")
	}
}

func TestRunIsIndependentOfLayout(t *testing.T) {
	dir := t.TempDir()
	var lines []string
	want := map[string]int64{}
	for i := 0; i < 300; i++ {
		k := fmt.Sprintf("station-%d", i%17)
		lines = append(lines, k+",payload")
		want[k]++
	}
	half := len(lines) / 2
	in1 := writeFile(t, dir, "part-1.csv", strings.Join(lines[:half], "\n")+"\n")
	in2 := writeFile(t, dir, "part-2.csv", strings.Join(lines[half:], "\n"))

	cases := []Config{
		{Workers: 1, Reducers: 1, SplitSize: 1 << 20},
		{Workers: 3, Reducers: 2, SplitSize: 7},
		{Workers: 4, Reducers: 5, SplitSize: 64, DisableCombiner: true},
		{Workers: 2, Reducers: 3, SplitSize: 33, Transport: TransportGRPC},
	}
	for _, cfg := range cases {
		cfg.Inputs = []string{in1, in2}
		cfg.ScratchDir = t.TempDir()
		cfg.NewMapper = func() worker.Mapper { return &firstField{} }
		res, err := Run(context.Background(), cfg)
		if err != nil {
			t.Fatalf("%+v: run: %v", cfg, err)
		}
		if len(res.Partitions) != cfg.Reducers {
			t.Fatalf("expected %d partitions, got %d", cfg.Reducers, len(res.Partitions))
		}
		seen := map[string]bool{}
		for _, p := range res.Partitions {
			for _, kv := range p {
				if seen[kv.Key] {
					t.Fatalf("key %q appears in more than one partition", kv.Key)
				}
				seen[kv.Key] = true
			}
		}
		got := res.Counts()
		if len(got) != len(want) {
			t.Fatalf("%+v: expected %d keys, got %d", cfg, len(want), len(got))
		}
		for k, v := range want {
			if got[k] != v {
				t.Fatalf("%+v: key %q expected %d, got %d", cfg, k, v, got[k])
			}
		}
		pairs := res.Pairs()
		for i := 1; i < len(pairs); i++ {
			if pairs[i-1].Key >= pairs[i].Key {
				t.Fatalf("pairs not sorted at %d", i)
			}
		}
	}
}

func TestRunSurvivesPartialSetupFailure(t *testing.T) {
	in := writeFile(t, t.TempDir(), "in.csv", "a,1\nb,2\na,3\n")
	var n int32
	res, err := Run(context.Background(), Config{
		Inputs:     []string{in},
		Workers:    3,
		Reducers:   2,
		SplitSize:  3,
		ScratchDir: t.TempDir(),
		NewMapper: func() worker.Mapper {
			return &firstField{fail: atomic.AddInt32(&n, 1) != 2}
		},
	})
	if err != nil {
		t.Fatalf("run with one healthy worker: %v", err)
	}
	got := res.Counts()
	if got["a"] != 2 || got["b"] != 1 {
		t.Fatalf("unexpected counts %v", got)
	}
}

func TestRunFailsWithoutHealthyWorker(t *testing.T) {
	in := writeFile(t, t.TempDir(), "in.csv", "a,1\n")
	_, err := Run(context.Background(), Config{
		Inputs:     []string{in},
		Workers:    2,
		ScratchDir: t.TempDir(),
		NewMapper:  func() worker.Mapper { return &firstField{fail: true} },
	})
	if !errors.Is(err, sideinput.ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	if _, err := Run(context.Background(), Config{NewMapper: func() worker.Mapper { return &firstField{} }}); err == nil {
		t.Fatalf("expected error without inputs")
	}
	if _, err := Run(context.Background(), Config{Inputs: []string{"x"}, NewMapper: func() worker.Mapper { return &firstField{} }, Transport: "carrier-pigeon"}); err == nil {
		t.Fatalf("expected error for unknown transport")
	}
	if _, err := ParseTransport("grpc"); err != nil {
		t.Fatalf("parse grpc: %v", err)
	}
	if tr, _ := ParseTransport(""); tr != TransportLocal {
		t.Fatalf("empty transport must default to local, got %q", tr)
	}
}
