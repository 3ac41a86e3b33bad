package history

import (
	"log/slog"
	"unicode/utf8"

	"github.com/asheshgoplani/agent-history/internal/logging"
)

// DefaultTypes are the message types searched when none are given.
var DefaultTypes = []string{"assistant", "user", "summary"}

// SearchResult is one matching message.
type SearchResult struct {
	Ref         string      `json:"ref"`
	Session     string      `json:"session"`
	Line        int         `json:"line"`
	UUID        string      `json:"uuid"`
	Type        string      `json:"type"`
	Timestamp   string      `json:"timestamp"`
	Content     string      `json:"content"`
	ContentSize int         `json:"content_size"`
	Truncated   bool        `json:"truncated"`
	ImageCount  int         `json:"image_count"`
	Images      []ImageInfo `json:"images,omitempty"`
	Project     string      `json:"project"`
}

// filter is the read-only per-call state shared by every file scan.
type filter struct {
	matcher Matcher
	types   map[string]bool
	window  TimeWindow
	lines   LineRanges
}

func newFilter(matcher Matcher, types []string, window TimeWindow, lines LineRanges) *filter {
	if len(types) == 0 {
		types = DefaultTypes
	}
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return &filter{matcher: matcher, types: set, window: window, lines: lines}
}

// evaluate decodes one line and returns its result when it passes every
// filter. The line-range check is done by the caller before decoding.
func (f *filter) evaluate(sf SessionFile, n int, line []byte) (SearchResult, bool) {
	rec, err := DecodeRecord(line)
	if err != nil {
		logging.Aggregate(logging.CompSearch, "malformed_line_skipped", slog.String("path", sf.Path))
		return SearchResult{}, false
	}
	if !f.types[rec.Type] {
		return SearchResult{}, false
	}
	if !f.window.Contains(rec.Timestamp) {
		return SearchResult{}, false
	}
	content := rec.Body.Render()
	if !f.matcher.Match(content) {
		return SearchResult{}, false
	}
	images := rec.Body.Images()
	return SearchResult{
		Ref:         NewRef(sf.SessionID, n).String(),
		Session:     sf.SessionID,
		Line:        n,
		UUID:        rec.UUID,
		Type:        rec.Type,
		Timestamp:   rec.Timestamp,
		Content:     content,
		ContentSize: utf8.RuneCountInString(content),
		ImageCount:  len(images),
		Images:      images,
		Project:     sf.ProjectID,
	}, true
}

// fileScan is the outcome of scanning one file.
type fileScan struct {
	lines   int
	results []SearchResult
}

// scanFile scans one transcript. An unreadable file contributes nothing.
func scanFile(sf SessionFile, f *filter) fileScan {
	var out fileScan
	err := eachLine(sf.Path, func(n int, line []byte) bool {
		out.lines++
		if !f.lines.Accepts(n) {
			return true
		}
		if res, ok := f.evaluate(sf, n, line); ok {
			out.results = append(out.results, res)
		}
		return true
	})
	if err != nil {
		logging.Aggregate(logging.CompSearch, "file_unreadable",
			slog.String("path", sf.Path),
			slog.String("error", err.Error()))
		if out.lines == 0 {
			return fileScan{}
		}
	}
	return out
}
