package sideinput

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestParseCandidate(t *testing.T) {
	tests := []struct {
		raw   string
		want  Candidate
		isErr bool
	}{
		{raw: "/data/cache/stations-2024.txt#top_stations.txt", want: Candidate{Path: "/data/cache/stations-2024.txt", Alias: "top_stations.txt"}},
		{raw: "file:///data/top_stations.txt", want: Candidate{Scheme: "file", Path: "/data/top_stations.txt"}},
		{raw: "s3://cache/top/top.txt#top_stations.txt", want: Candidate{Scheme: "s3", Host: "cache", Path: "top/top.txt", Alias: "top_stations.txt"}},
		{raw: "hdfs://nn/top.txt", isErr: true},
		{raw: "s3:///top.txt", isErr: true},
		{raw: "  ", isErr: true},
	}
	for _, tt := range tests {
		got, err := ParseCandidate(tt.raw)
		if tt.isErr {
			if err == nil {
				t.Fatalf("%q: expected error", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("%q: expected %+v, got %+v", tt.raw, tt.want, got)
		}
	}
}

func TestResolveAliasFallsBackToFileName(t *testing.T) {
	l := Loader{Name: DefaultName, Discovery: DiscoverAlias}
	cands := []Candidate{
		{Path: "/a/other.txt"},
		{Path: "/b/top_stations.txt"},
		{Path: "/c/x.txt", Alias: DefaultName},
	}
	got, err := l.Resolve(cands)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Path != "/c/x.txt" {
		t.Fatalf("alias must win over file name, got %s", got.Path)
	}
	got, err = l.Resolve(cands[:2])
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Path != "/b/top_stations.txt" {
		t.Fatalf("expected file name fallback, got %s", got.Path)
	}
}

func TestResolveSuffix(t *testing.T) {
	l := Loader{Discovery: DiscoverSuffix}
	cands := []Candidate{
		{Path: "/c/x.txt", Alias: DefaultName},
		{Path: "/hdfs/2024_top_stations.txt"},
	}
	got, err := l.Resolve(cands)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Path != "/hdfs/2024_top_stations.txt" {
		t.Fatalf("suffix discovery must ignore aliases, got %s", got.Path)
	}
}

func TestResolveMissing(t *testing.T) {
	l := Loader{}
	if _, err := l.Resolve(nil); !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing for no candidates, got %v", err)
	}
	if _, err := l.Resolve([]Candidate{{Path: "/a/b.txt"}}); !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing for unmatched candidates, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "stations.txt", " Clark St \nState St\n\nClark St\n")
	l := Loader{Name: DefaultName}
	set, err := l.Load(context.Background(), []Candidate{{Path: p, Alias: DefaultName}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("expected 2 stations, got %v", set.Names())
	}
	if !set.Contains("Clark St") || !set.Contains("State St") || set.Contains("") {
		t.Fatalf("unexpected members %v", set.Names())
	}
}

func TestLoadEmpty(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, DefaultName, "\n   \n")
	_, err := Loader{}.Load(context.Background(), []Candidate{{Path: p}})
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := Loader{}.Load(context.Background(), []Candidate{{Path: filepath.Join(dir, DefaultName)}})
	if !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
}

func TestReadLargeList(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 1000; i++ {
		b.WriteString("station ")
		b.WriteString(strings.Repeat("x", i%7))
		b.WriteString("\n")
	}
	set, err := Read(strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if set.Len() != 7 {
		t.Fatalf("duplicates must collapse, got %d", set.Len())
	}
}

func TestParseDiscovery(t *testing.T) {
	if d, err := ParseDiscovery(""); err != nil || d != DiscoverAlias {
		t.Fatalf("expected alias default, got %q %v", d, err)
	}
	if d, err := ParseDiscovery("SUFFIX"); err != nil || d != DiscoverSuffix {
		t.Fatalf("expected suffix, got %q %v", d, err)
	}
	if _, err := ParseDiscovery("glob"); err == nil {
		t.Fatalf("expected error")
	}
}
