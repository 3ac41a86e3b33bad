package history

import (
	"sort"
	"unicode/utf8"
)

// SearchStats summarises the work done by one search.
type SearchStats struct {
	FilesScanned  int   `json:"files_scanned"`
	LinesScanned  int   `json:"lines_scanned"`
	TotalMatches  int   `json:"total_matches"`
	ReturnedCount int   `json:"returned_count"`
	TimeMS        int64 `json:"time_ms"`
}

// SearchResponse is one page of search results.
type SearchResponse struct {
	Stats      SearchStats    `json:"stats"`
	Results    []SearchResult `json:"results"`
	HasMore    bool           `json:"has_more"`
	NextOffset int            `json:"next_offset"`
}

// Page controls pagination and size budgets. A Limit of zero or less is
// unbounded.
type Page struct {
	Offset     int
	Limit      int
	MaxContent int
	MaxTotal   int
}

// truncateRunes cuts s to at most max characters.
func truncateRunes(s string, max int) (string, bool) {
	if max < 0 {
		max = 0
	}
	if utf8.RuneCountInString(s) <= max {
		return s, false
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i], true
		}
		n++
	}
	return s, false
}

// aggregate merges per-file scans into a response page. Results are
// ordered by timestamp string; the first result on a page is always
// returned even when it alone exceeds MaxTotal.
func aggregate(scans []fileScan, page Page) SearchResponse {
	var stats SearchStats
	var all []SearchResult
	for _, s := range scans {
		stats.FilesScanned++
		stats.LinesScanned += s.lines
		all = append(all, s.results...)
	}
	stats.TotalMatches = len(all)

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp < all[j].Timestamp
	})

	offset := page.Offset
	if offset < 0 {
		offset = 0
	}
	start := min(offset, len(all))
	window := all[start:]
	if page.Limit > 0 && len(window) > page.Limit {
		window = window[:page.Limit]
	}

	results := make([]SearchResult, 0, len(window))
	total := 0
	for _, r := range window {
		content, cut := truncateRunes(r.Content, page.MaxContent)
		r.Content = content
		r.Truncated = r.Truncated || cut
		size := utf8.RuneCountInString(content)
		if total+size > page.MaxTotal && len(results) > 0 {
			break
		}
		total += size
		results = append(results, r)
	}

	stats.ReturnedCount = len(results)
	remaining := max(stats.TotalMatches-offset, 0)
	return SearchResponse{
		Stats:      stats,
		Results:    results,
		HasMore:    len(results) < remaining,
		NextOffset: offset + len(results),
	}
}
