package logging

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// maxSampleSources bounds the "path" values kept per summarised event.
const maxSampleSources = 5

type aggregateKey struct {
	component string
	event     string
}

// aggregateEntry counts one event and the distinct files it came from.
type aggregateEntry struct {
	count   int64
	sources map[string]int64
	fields  []slog.Attr
}

// Aggregator turns per-line events, such as a malformed transcript line,
// into one summary per event and window. Events carrying a "path" attr
// are also counted per file.
type Aggregator struct {
	logger   *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	entries map[aggregateKey]*aggregateEntry

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewAggregator creates an aggregator that flushes every intervalSecs
// seconds. With a nil logger, recorded events are dropped.
func NewAggregator(logger *slog.Logger, intervalSecs int) *Aggregator {
	if intervalSecs <= 0 {
		intervalSecs = 30
	}
	return &Aggregator{
		logger:   logger,
		interval: time.Duration(intervalSecs) * time.Second,
		entries:  make(map[aggregateKey]*aggregateEntry),
		done:     make(chan struct{}),
	}
}

// Start begins the background flush goroutine.
func (a *Aggregator) Start() {
	a.wg.Add(1)
	go a.flushLoop()
}

// Stop ends the flush goroutine and writes what is left. Safe to call
// more than once.
func (a *Aggregator) Stop() {
	a.stopOnce.Do(func() {
		close(a.done)
		a.wg.Wait()
		a.flush()
	})
}

// Record counts one occurrence of event. A "path" attr is tallied per
// file; other fields replace those of earlier calls.
func (a *Aggregator) Record(component, event string, fields ...slog.Attr) {
	if a.logger == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	key := aggregateKey{component: component, event: event}
	entry, ok := a.entries[key]
	if !ok {
		entry = &aggregateEntry{sources: make(map[string]int64)}
		a.entries[key] = entry
	}
	entry.count++

	var rest []slog.Attr
	for _, f := range fields {
		if f.Key == "path" {
			entry.sources[f.Value.String()]++
			continue
		}
		rest = append(rest, f)
	}
	if len(rest) > 0 {
		entry.fields = rest
	}
}

func (a *Aggregator) flushLoop() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.flush()
		case <-a.done:
			return
		}
	}
}

func (a *Aggregator) flush() {
	a.mu.Lock()
	entries := a.entries
	a.entries = make(map[aggregateKey]*aggregateEntry)
	a.mu.Unlock()

	if a.logger == nil {
		return
	}
	for key, entry := range entries {
		attrs := []any{
			slog.String("component", key.component),
			slog.String("event", key.event),
			slog.Int64("count", entry.count),
			slog.Int("window_seconds", int(a.interval.Seconds())),
		}
		if len(entry.sources) > 0 {
			attrs = append(attrs,
				slog.Int("files", len(entry.sources)),
				slog.Any("top_files", topSources(entry.sources, maxSampleSources)))
		}
		for _, f := range entry.fields {
			attrs = append(attrs, f)
		}
		a.logger.Info("event_summary", attrs...)
	}
}

// topSources returns up to n paths with the highest counts, ties by name.
func topSources(sources map[string]int64, n int) []string {
	paths := make([]string, 0, len(sources))
	for p := range sources {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		if sources[paths[i]] != sources[paths[j]] {
			return sources[paths[i]] > sources[paths[j]]
		}
		return paths[i] < paths[j]
	})
	return paths[:min(n, len(paths))]
}
