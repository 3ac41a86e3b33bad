package history

import (
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/asheshgoplani/agent-history/internal/logging"
)

var searchLog = logging.ForComponent(logging.CompSearch)

const (
	DefaultMaxContent = 4000
	DefaultMaxTotal   = 40000
)

// SearchOptions describes one search call.
type SearchOptions struct {
	Query         string
	Regex         bool
	CaseSensitive bool

	Scope    Scope
	Sessions []string // full session ids or ref prefixes
	Types    []string
	Lines    LineRanges
	Window   TimeWindow

	Page Page
}

func (o *SearchOptions) applyDefaults() {
	if o.Page.MaxContent <= 0 {
		o.Page.MaxContent = DefaultMaxContent
	}
	if o.Page.MaxTotal <= 0 {
		o.Page.MaxTotal = DefaultMaxTotal
	}
}

// Search scans every transcript in scope in parallel and returns one page
// of matches ordered by timestamp.
func (c *Corpus) Search(opts SearchOptions) (*SearchResponse, error) {
	start := time.Now()
	opts.applyDefaults()

	projects, err := c.searchProjects(opts.Scope)
	if err != nil {
		return nil, err
	}
	matcher, err := CompileQuery(opts.Query, opts.Regex, opts.CaseSensitive)
	if err != nil {
		return nil, err
	}

	files := c.searchFiles(projects, opts.Sessions)
	f := newFilter(matcher, opts.Types, opts.Window, opts.Lines)
	scans := c.scanAll(files, f)

	resp := aggregate(scans, opts.Page)
	resp.Stats.TimeMS = time.Since(start).Milliseconds()

	searchLog.Debug("search_done",
		slog.Int("projects", len(projects)),
		slog.Int("files", resp.Stats.FilesScanned),
		slog.Int("lines", resp.Stats.LinesScanned),
		slog.Int("matches", resp.Stats.TotalMatches),
		slog.Int64("time_ms", resp.Stats.TimeMS))
	return &resp, nil
}

// searchFiles lists session and sub-agent transcripts of the given
// projects, keeping only the requested sessions when a list is given.
func (c *Corpus) searchFiles(projects []string, sessions []string) []SessionFile {
	wanted := func(id string) bool {
		if len(sessions) == 0 {
			return true
		}
		prefix := RefPrefix(id)
		for _, s := range sessions {
			if s == id || s == prefix {
				return true
			}
		}
		return false
	}

	var files []SessionFile
	for _, pid := range projects {
		for _, sf := range c.Sessions(pid) {
			if wanted(sf.SessionID) {
				files = append(files, sf)
			}
		}
		for _, sf := range c.Subagents(pid) {
			if wanted(sf.Parent) {
				files = append(files, sf)
			}
		}
	}
	return files
}

func (c *Corpus) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// scanAll runs one scan per file on a bounded pool and waits for all of
// them. Each task writes only its own slot.
func (c *Corpus) scanAll(files []SessionFile, f *filter) []fileScan {
	scans := make([]fileScan, len(files))
	var g errgroup.Group
	g.SetLimit(c.workers())
	for i, sf := range files {
		g.Go(func() error {
			scans[i] = scanFile(sf, f)
			return nil
		})
	}
	_ = g.Wait()
	return scans
}
