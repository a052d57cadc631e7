// Package tripcount counts bike-share trips per station and per station hour
// on an in-process map/reduce engine.
package tripcount

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ExpandInputs resolves globs and directories into a sorted, de-duplicated
// list of regular files. Files whose names start with "_" or "." are
// bookkeeping (e.g. _SUCCESS) and are skipped inside directories.
func ExpandInputs(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(p string) {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		files = append(files, abs)
	}

	for _, pattern := range patterns {
		// expand the file path
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "bad input pattern %q", pattern)
		}
		if len(matches) == 0 {
			return nil, errors.Errorf("input %s: no such file", pattern)
		}
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil {
				return nil, errors.Wrapf(err, "stat input %s", m)
			}
			if !info.IsDir() {
				add(m)
				continue
			}
			entries, err := os.ReadDir(m)
			if err != nil {
				return nil, errors.Wrapf(err, "read input dir %s", m)
			}
			for _, e := range entries {
				if e.IsDir() || hidden(e.Name()) {
					continue
				}
				add(filepath.Join(m, e.Name()))
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")
}
