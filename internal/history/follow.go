package history

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/asheshgoplani/agent-history/internal/logging"
)

var followLog = logging.ForComponent(logging.CompFollow)

const (
	defaultFollowDebounce = 300 * time.Millisecond
	defaultRescanRate     = 10
)

// FollowOptions selects the messages a Follower reports.
type FollowOptions struct {
	Query         string
	Regex         bool
	CaseSensitive bool
	Scope         Scope
	Types         []string
	Window        TimeWindow

	// Debounce delays a rescan until a file has been quiet this long.
	Debounce time.Duration
	// RescansPerSecond bounds how often changed files are re-read.
	RescansPerSecond float64
}

type tailState struct {
	offset int64
	lines  int
}

// Follower watches the session files of a scope and reports messages
// appended after it started. Its state lives only as long as the watch.
type Follower struct {
	filter   *filter
	projects map[string]bool
	watcher  *fsnotify.Watcher
	limiter  *rate.Limiter
	debounce time.Duration

	tails map[string]tailState
}

// NewFollower resolves the scope, starts watching its project directories
// and records the current end of every session file.
func (c *Corpus) NewFollower(opts FollowOptions) (*Follower, error) {
	projects, err := c.searchProjects(opts.Scope)
	if err != nil {
		return nil, err
	}
	matcher, err := CompileQuery(opts.Query, opts.Regex, opts.CaseSensitive)
	if err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultFollowDebounce
	}
	if opts.RescansPerSecond <= 0 {
		opts.RescansPerSecond = defaultRescanRate
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ioError(err, "cannot start file watcher")
	}
	f := &Follower{
		filter:   newFilter(matcher, opts.Types, opts.Window, nil),
		projects: make(map[string]bool, len(projects)),
		watcher:  watcher,
		limiter:  rate.NewLimiter(rate.Limit(opts.RescansPerSecond), 5),
		debounce: opts.Debounce,
		tails:    make(map[string]tailState),
	}
	for _, pid := range projects {
		if err := watcher.Add(c.ProjectDir(pid)); err != nil {
			followLog.Warn("watch_failed",
				slog.String("project", pid),
				slog.String("error", err.Error()))
			continue
		}
		f.projects[pid] = true
		for _, sf := range c.Sessions(pid) {
			f.tails[sf.Path] = primeTail(sf.Path)
		}
	}
	if len(f.projects) == 0 {
		_ = watcher.Close()
		return nil, newError(KindIO, "no project directory could be watched")
	}
	return f, nil
}

// primeTail records the complete lines already present in path.
func primeTail(path string) tailState {
	var st tailState
	fh, err := os.Open(path)
	if err != nil {
		return st
	}
	defer fh.Close()
	consumeLines(fh, &st, func(int, []byte) {})
	return st
}

// consumeLines reads complete lines from r, advancing st past each one.
// A trailing line without a newline is left for the next read.
func consumeLines(r io.Reader, st *tailState, fn func(n int, line []byte)) {
	reader := bufio.NewReaderSize(r, readBufferSize)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}
		st.offset += int64(len(line))
		st.lines++
		line = bytes.TrimSuffix(line[:len(line)-1], []byte("\r"))
		fn(st.lines, line)
	}
}

// Run delivers new matches to fn until ctx is cancelled. fn is called from
// the Run goroutine only.
func (f *Follower) Run(ctx context.Context, fn func(SearchResult)) error {
	defer f.watcher.Close()

	pending := make(chan string, 64)
	var mu sync.Mutex
	timers := make(map[string]*time.Timer)
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-f.watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, sessionExt) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name := event.Name
			mu.Lock()
			if t, exists := timers[name]; exists {
				t.Stop()
			}
			timers[name] = time.AfterFunc(f.debounce, func() {
				mu.Lock()
				delete(timers, name)
				mu.Unlock()
				select {
				case pending <- name:
				case <-ctx.Done():
				}
			})
			mu.Unlock()
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return nil
			}
			followLog.Warn("watcher_error", slog.String("error", err.Error()))
		case path := <-pending:
			if err := f.limiter.Wait(ctx); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil
				}
				return err
			}
			f.rescan(path, fn)
		}
	}
}

// rescan reads the lines appended to path since the last visit.
func (f *Follower) rescan(path string, fn func(SearchResult)) {
	projectID := filepath.Base(filepath.Dir(path))
	sessionID := sessionIDFromFilename(filepath.Base(path))
	if sessionID == "" || !f.projects[projectID] {
		return
	}

	fh, err := os.Open(path)
	if err != nil {
		return
	}
	defer fh.Close()

	st := f.tails[path]
	if info, err := fh.Stat(); err == nil && info.Size() < st.offset {
		st = tailState{}
	}
	if _, err := fh.Seek(st.offset, io.SeekStart); err != nil {
		return
	}

	sf := SessionFile{ProjectID: projectID, SessionID: sessionID, Path: path}
	emitted := 0
	consumeLines(fh, &st, func(n int, line []byte) {
		if res, ok := f.filter.evaluate(sf, n, line); ok {
			emitted++
			fn(res)
		}
	})
	f.tails[path] = st
	followLog.Debug("rescan",
		slog.String("path", path),
		slog.Int("lines", st.lines),
		slog.Int("emitted", emitted))
}

// Close stops the watch without running it.
func (f *Follower) Close() error {
	return f.watcher.Close()
}
