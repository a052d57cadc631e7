package tripcount

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/emptyOVO/tripcount/mrapps"
)

func touch(t *testing.T, p, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "in", "part-00000"), "x")
	touch(t, filepath.Join(dir, "in", "part-00001"), "y")
	touch(t, filepath.Join(dir, "in", "_SUCCESS"), "")
	touch(t, filepath.Join(dir, "in", ".part-00000.crc"), "")
	touch(t, filepath.Join(dir, "a.csv"), "z")

	got, err := ExpandInputs([]string{filepath.Join(dir, "in"), filepath.Join(dir, "*.csv"), filepath.Join(dir, "a.csv")})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.csv"),
		filepath.Join(dir, "in", "part-00000"),
		filepath.Join(dir, "in", "part-00001"),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	if _, err := ExpandInputs([]string{filepath.Join(dir, "missing.csv")}); err == nil {
		t.Fatalf("expected error for missing input")
	}
}

func TestStartSingleMachineJob(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "trips.csv"),
		"ride_id,rideable_type,started_at,ended_at,start_station_name,start_station_id,end_station_name,end_station_id\n"+
			"r1,classic_bike,1/15/2024 8:30:00 AM,1/15/2024 8:50:00 AM,Clark St,1,Clark St,1\n"+
			"r2,classic_bike,1/15/2024 9:30:00 AM,1/15/2024 9:50:00 AM,Clark St,1,State St,2\n")

	res, err := StartSingleMachineJob(context.Background(), JobConfig{
		App:        mrapps.AppPopular,
		Inputs:     []string{dir},
		Workers:    2,
		Reducers:   2,
		ScratchDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("job: %v", err)
	}
	got := res.Counts()
	if got["Clark St"] != 3 || got["State St"] != 1 || len(got) != 2 {
		t.Fatalf("unexpected counts %v", got)
	}

	if _, err := StartSingleMachineJob(context.Background(), JobConfig{App: mrapps.AppBusiest, Inputs: []string{dir}}); err == nil {
		t.Fatalf("busiest without side input must fail before running")
	}
	if _, err := StartSingleMachineJob(context.Background(), JobConfig{App: "unknown", Inputs: []string{dir}}); err == nil {
		t.Fatalf("unknown app must fail")
	}
}
