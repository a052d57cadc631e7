// Package sideinput loads the broadcast station list that every worker joins
// trip records against.
package sideinput

import (
	"bufio"
	"context"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DefaultName is the logical name the top station list is distributed under.
const DefaultName = "top_stations.txt"

var (
	ErrMissing = errors.New("side-input missing")
	ErrEmpty   = errors.New("side-input empty")
)

// Discovery picks the candidate that holds the side input.
type Discovery string

const (
	// DiscoverAlias matches the URI fragment first and falls back to the file name.
	DiscoverAlias Discovery = "alias"
	// DiscoverSuffix matches candidates whose physical path ends with the name.
	DiscoverSuffix Discovery = "suffix"
)

// ParseDiscovery resolves a configured discovery strategy.
func ParseDiscovery(s string) (Discovery, error) {
	switch d := Discovery(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return DiscoverAlias, nil
	case DiscoverAlias, DiscoverSuffix:
		return d, nil
	default:
		return "", errors.Errorf("unsupported side-input discovery: %q (expected alias|suffix)", s)
	}
}

// Candidate is one file location offered to the workers, e.g.
// "/data/top.txt#top_stations.txt" or "s3://bucket/top.txt#top_stations.txt".
type Candidate struct {
	Scheme string
	Host   string
	Path   string
	Alias  string
}

// ParseCandidate parses a location URI. The fragment becomes the alias.
func ParseCandidate(raw string) (Candidate, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Candidate{}, errors.New("empty side-input location")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Candidate{}, errors.Wrapf(err, "parse side-input location %q", raw)
	}
	c := Candidate{
		Scheme: strings.ToLower(u.Scheme),
		Host:   u.Host,
		Path:   u.Path,
		Alias:  u.Fragment,
	}
	switch c.Scheme {
	case "", "file":
	case "s3":
		if c.Host == "" {
			return Candidate{}, errors.Errorf("s3 location %q has no bucket", raw)
		}
		c.Path = strings.TrimPrefix(c.Path, "/")
	default:
		return Candidate{}, errors.Errorf("unsupported side-input scheme %q", u.Scheme)
	}
	if c.Path == "" {
		return Candidate{}, errors.Errorf("side-input location %q has no path", raw)
	}
	return c, nil
}

// ParseCandidates parses every location in raws.
func ParseCandidates(raws []string) ([]Candidate, error) {
	out := make([]Candidate, 0, len(raws))
	for _, r := range raws {
		c, err := ParseCandidate(r)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// FileName is the base name of the physical path.
func (c Candidate) FileName() string {
	return path.Base(filepath.ToSlash(c.Path))
}

func (c Candidate) String() string {
	s := c.Path
	if c.Scheme != "" {
		s = c.Scheme + "://" + c.Host + "/" + strings.TrimPrefix(c.Path, "/")
	}
	if c.Alias != "" {
		s += "#" + c.Alias
	}
	return s
}

// StationSet is the read-only set of allowed stations.
type StationSet struct {
	names map[string]struct{}
}

// NewStationSet builds a set from names, trimming each and dropping blanks.
func NewStationSet(names ...string) StationSet {
	s := StationSet{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			s.names[n] = struct{}{}
		}
	}
	return s
}

func (s StationSet) Contains(name string) bool {
	_, ok := s.names[name]
	return ok
}

func (s StationSet) Len() int {
	return len(s.names)
}

// Names returns the members in sorted order.
func (s StationSet) Names() []string {
	out := make([]string, 0, len(s.names))
	for n := range s.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Read builds a set from one station name per line.
func Read(r io.Reader) (StationSet, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		names = append(names, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return StationSet{}, errors.Wrap(err, "read side-input")
	}
	return NewStationSet(names...), nil
}

// Loader resolves and reads the side input for one worker.
type Loader struct {
	Name        string
	Discovery   Discovery
	ObjectStore ObjectStoreConfig
}

func (l Loader) name() string {
	if l.Name == "" {
		return DefaultName
	}
	return l.Name
}

// Resolve selects the candidate that holds the side input.
func (l Loader) Resolve(candidates []Candidate) (Candidate, error) {
	name := l.name()
	if len(candidates) == 0 {
		return Candidate{}, errors.Wrapf(ErrMissing, "no cache files offered for %s", name)
	}
	switch l.Discovery {
	case DiscoverSuffix:
		for _, c := range candidates {
			if strings.HasSuffix(c.Path, name) {
				return c, nil
			}
		}
	default:
		for _, c := range candidates {
			if c.Alias == name {
				return c, nil
			}
		}
		for _, c := range candidates {
			if c.FileName() == name {
				return c, nil
			}
		}
	}
	return Candidate{}, errors.Wrapf(ErrMissing, "%s not among %d cache files", name, len(candidates))
}

// Load resolves, opens and reads the side input. A missing or empty file is
// an error; callers must not process records without a populated set.
func (l Loader) Load(ctx context.Context, candidates []Candidate) (StationSet, error) {
	c, err := l.Resolve(candidates)
	if err != nil {
		return StationSet{}, err
	}
	rc, err := l.open(ctx, c)
	if err != nil {
		return StationSet{}, err
	}
	defer rc.Close()

	set, err := Read(rc)
	if err != nil {
		return StationSet{}, err
	}
	if set.Len() == 0 {
		return StationSet{}, errors.Wrapf(ErrEmpty, "%s", c)
	}
	log.WithField("source", c.String()).Infof("[SideInput] Loaded %d top stations", set.Len())
	return set, nil
}

func (l Loader) open(ctx context.Context, c Candidate) (io.ReadCloser, error) {
	switch c.Scheme {
	case "s3":
		return openObject(ctx, l.ObjectStore, c)
	default:
		f, err := os.Open(c.Path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Wrapf(ErrMissing, "%s", c)
			}
			return nil, errors.Wrapf(err, "open side-input %s", c)
		}
		return f, nil
	}
}
