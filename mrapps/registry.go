// Package mrapps holds the map functions of the trip-counting jobs.
package mrapps

import (
	"fmt"
	"sort"
	"strings"

	"github.com/emptyOVO/tripcount/metrics"
	"github.com/emptyOVO/tripcount/sideinput"
	"github.com/emptyOVO/tripcount/trip"
	"github.com/emptyOVO/tripcount/worker"
	log "github.com/sirupsen/logrus"
)

const (
	AppPopular = "popular"
	AppBusiest = "busiest"
)

// Options configures the mappers of one run.
type Options struct {
	TimeFormat    trip.TimeFormat
	SideInputName string
	Discovery     sideinput.Discovery
	ObjectStore   sideinput.ObjectStoreConfig
}

type app struct {
	needsSideInput bool
	factory        func(opts Options) (worker.MapperFactory, error)
}

var apps = map[string]app{
	AppPopular: {factory: newPopularFactory},
	AppBusiest: {needsSideInput: true, factory: newBusiestFactory},
}

func normalizeAppName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Names lists the registered apps.
func Names() []string {
	out := make([]string, 0, len(apps))
	for n := range apps {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// NeedsSideInput reports whether the app joins against the top station list.
func NeedsSideInput(name string) bool {
	return apps[normalizeAppName(name)].needsSideInput
}

// NewMapperFactory returns the mapper factory of a registered app.
func NewMapperFactory(name string, opts Options) (worker.MapperFactory, error) {
	a, ok := apps[normalizeAppName(name)]
	if !ok {
		return nil, fmt.Errorf("unsupported app: %q (expected %s)", name, strings.Join(Names(), "|"))
	}
	return a.factory(opts)
}

// skip records a line the mapper drops. Headers and blanks are routine,
// malformed lines are worth a warning.
func skip(appName string, outcome trip.Outcome, offset int64, reason error) {
	metrics.RecordsTotal.WithLabelValues(appName, outcome.String()).Inc()
	if outcome != trip.SkipMalformed {
		log.WithFields(log.Fields{"app": appName, "offset": offset}).Debugf("[Map] Skip %s line", outcome)
		return
	}
	entry := log.WithFields(log.Fields{"app": appName, "offset": offset})
	if reason != nil {
		entry = entry.WithError(reason)
	}
	entry.Warn("[Map] Skip malformed record")
}

func accept(appName string) {
	metrics.RecordsTotal.WithLabelValues(appName, trip.OK.String()).Inc()
}
