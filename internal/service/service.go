// Package service maps the string arguments shared by the CLI, the MCP
// tools and the HTTP API onto history operations.
package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/asheshgoplani/agent-history/internal/history"
)

// Args holds the raw arguments of one call, keyed by the MCP argument
// names (pattern, project, all, since, ref, ...).
type Args map[string]string

func (a Args) String(key string) string {
	return strings.TrimSpace(a[key])
}

func (a Args) Bool(key string) (bool, error) {
	v := a.String(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, invalidArg(key, v)
	}
	return b, nil
}

func (a Args) Int(key string, def int) (int, error) {
	v := a.String(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		// JSON clients send whole numbers as floats.
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, invalidArg(key, v)
		}
		n = int(f)
	}
	return n, nil
}

func invalidArg(key, value string) error {
	return &history.Error{
		Kind:    history.KindInvalidArgument,
		Message: fmt.Sprintf("invalid value %q for %s", value, key),
	}
}

// SplitList splits a comma-separated argument, dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Defaults are the configured fallbacks for omitted arguments.
type Defaults struct {
	MaxContent        int
	MaxTotal          int
	Types             []string
	ContextMaxContent int
	ContextMaxTotal   int
	RescansPerSecond  float64
}

// Service runs history operations for one corpus. Cwd is the directory
// the process was started in; a per-call "cwd" argument overrides it.
type Service struct {
	Corpus   *history.Corpus
	Cwd      string
	Defaults Defaults

	// Now is used for relative since/until values. Nil means time.Now.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Scope resolves project, all and cwd into an explicit per-call scope.
func (s *Service) Scope(a Args) (history.Scope, error) {
	all, err := a.Bool("all")
	if err != nil {
		return history.Scope{}, err
	}
	cwd := a.String("cwd")
	if cwd == "" {
		cwd = s.Cwd
	}
	return history.Scope{
		Projects: SplitList(a.String("project")),
		All:      all,
		Current:  s.Corpus.CurrentProject(cwd),
	}, nil
}

func (s *Service) window(a Args) (history.TimeWindow, error) {
	var w history.TimeWindow
	now := s.now()
	if v := a.String("since"); v != "" {
		t, err := history.ParseTimeBound(v, now)
		if err != nil {
			return w, err
		}
		w.Since = t
	}
	if v := a.String("until"); v != "" {
		t, err := history.ParseTimeBound(v, now)
		if err != nil {
			return w, err
		}
		w.Until = t
	}
	return w, nil
}

func (s *Service) types(a Args) []string {
	if types := SplitList(a.String("types")); len(types) > 0 {
		return types
	}
	return s.Defaults.Types
}

// SearchOptions builds the options of a search call.
func (s *Service) SearchOptions(a Args) (history.SearchOptions, error) {
	var opts history.SearchOptions
	var err error
	if opts.Scope, err = s.Scope(a); err != nil {
		return opts, err
	}
	if opts.Regex, err = a.Bool("regex"); err != nil {
		return opts, err
	}
	if opts.CaseSensitive, err = a.Bool("case_sensitive"); err != nil {
		return opts, err
	}
	if opts.Window, err = s.window(a); err != nil {
		return opts, err
	}
	if opts.Page.Offset, err = a.Int("offset", 0); err != nil {
		return opts, err
	}
	if opts.Page.Limit, err = a.Int("limit", 0); err != nil {
		return opts, err
	}
	if opts.Page.MaxContent, err = a.Int("max_content", s.Defaults.MaxContent); err != nil {
		return opts, err
	}
	if opts.Page.MaxTotal, err = a.Int("max_total", s.Defaults.MaxTotal); err != nil {
		return opts, err
	}
	opts.Query = a.String("pattern")
	opts.Sessions = SplitList(a.String("sessions"))
	opts.Types = s.types(a)
	opts.Lines = history.ParseRanges(a.String("lines"))
	return opts, nil
}

// Search runs history_search.
func (s *Service) Search(a Args) (*history.SearchResponse, error) {
	opts, err := s.SearchOptions(a)
	if err != nil {
		return nil, err
	}
	return s.Corpus.Search(opts)
}

// Get runs history_get.
func (s *Service) Get(a Args) (*history.GetResponse, error) {
	scope, err := s.Scope(a)
	if err != nil {
		return nil, err
	}
	opts := history.GetOptions{
		Ref:       a.String("ref"),
		Scope:     scope,
		OutputDir: a.String("output"),
	}
	if v := a.String("range"); v != "" {
		r, err := history.ParseCharRange(v)
		if err != nil {
			return nil, err
		}
		opts.Range = &r
	}
	return s.Corpus.Get(opts)
}

// Context runs history_context.
func (s *Service) Context(a Args) (*history.ContextResponse, error) {
	opts := history.ContextOptions{
		Ref:       a.String("ref"),
		UntilType: a.String("until_type"),
		Direction: a.String("direction"),
		Types:     SplitList(a.String("types")),
	}
	var err error
	if opts.Scope, err = s.Scope(a); err != nil {
		return nil, err
	}
	if opts.Before, err = a.Int("before", 0); err != nil {
		return nil, err
	}
	if opts.After, err = a.Int("after", 0); err != nil {
		return nil, err
	}
	if opts.MaxContent, err = a.Int("max_content", s.Defaults.ContextMaxContent); err != nil {
		return nil, err
	}
	if opts.MaxTotal, err = a.Int("max_total", s.Defaults.ContextMaxTotal); err != nil {
		return nil, err
	}
	return s.Corpus.Context(opts)
}

// Projects runs history_projects.
func (s *Service) Projects() (*history.ProjectsResponse, error) {
	return s.Corpus.Projects()
}

// Sessions runs history_sessions.
func (s *Service) Sessions(a Args) (*history.SessionsResponse, error) {
	scope, err := s.Scope(a)
	if err != nil {
		return nil, err
	}
	return s.Corpus.SessionList(scope)
}

// FollowOptions builds the options of a live follow.
func (s *Service) FollowOptions(a Args) (history.FollowOptions, error) {
	opts, err := s.SearchOptions(a)
	if err != nil {
		return history.FollowOptions{}, err
	}
	return history.FollowOptions{
		Query:            opts.Query,
		Regex:            opts.Regex,
		CaseSensitive:    opts.CaseSensitive,
		Scope:            opts.Scope,
		Types:            opts.Types,
		Window:           opts.Window,
		RescansPerSecond: s.Defaults.RescansPerSecond,
	}, nil
}

// ErrorBody is the JSON shape of a failed call.
type ErrorBody struct {
	Error     string               `json:"error"`
	Message   string               `json:"message"`
	Available []history.ProjectRef `json:"available,omitempty"`
}

// NewErrorBody converts err into its JSON shape. Errors that are not
// history errors are reported as io_error.
func NewErrorBody(err error) ErrorBody {
	var he *history.Error
	if errors.As(err, &he) {
		return ErrorBody{Error: string(he.Kind), Message: he.Message, Available: he.Available}
	}
	return ErrorBody{Error: string(history.KindIO), Message: err.Error()}
}
