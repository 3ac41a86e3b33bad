package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/asheshgoplani/agent-history/internal/history"
)

var (
	refStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	typeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
	anchorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	headerStyle = lipgloss.NewStyle().Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

const maxColumnWidth = 60

// column pads or truncates s to width terminal cells.
func column(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

// columnWidth returns the widest cell of a column, capped at maxColumnWidth.
func columnWidth(header string, cells []string) int {
	w := runewidth.StringWidth(header)
	for _, c := range cells {
		w = max(w, runewidth.StringWidth(c))
	}
	return min(w, maxColumnWidth)
}

func indent(s string) string {
	if s == "" {
		return "  " + dimStyle.Render("(empty)")
	}
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}

// renderResult prints one search or follow result.
func renderResult(w io.Writer, r history.SearchResult) {
	parts := []string{refStyle.Render(r.Ref), typeStyle.Render(r.Type)}
	if r.Timestamp != "" {
		parts = append(parts, dimStyle.Render(r.Timestamp))
	}
	parts = append(parts, dimStyle.Render(r.Project))
	fmt.Fprintln(w, strings.Join(parts, "  "))
	fmt.Fprintln(w, indent(r.Content))
	if r.Truncated {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("  … %d chars, see: agent-history get %s", r.ContentSize, r.Ref)))
	}
	if r.ImageCount > 0 {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("  %d image(s)", r.ImageCount)))
	}
}

func renderSearch(w io.Writer, resp *history.SearchResponse) {
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No matches")
	}
	for i, r := range resp.Results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		renderResult(w, r)
	}
	s := resp.Stats
	fmt.Fprintln(w)
	fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("%d of %d matches %s %d files %s %d lines %s %dms",
		s.ReturnedCount, s.TotalMatches, bulletSymbol, s.FilesScanned, bulletSymbol, s.LinesScanned, bulletSymbol, s.TimeMS)))
	if resp.HasMore {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("More results: --offset %d", resp.NextOffset)))
	}
}

func renderGet(w io.Writer, resp *history.GetResponse) {
	switch {
	case resp.TooLarge:
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("Message %s is too large to print (%d chars)", resp.Ref, resp.ContentSize)))
		fmt.Fprintln(w, resp.Suggestion)
	case resp.Output != nil:
		fmt.Fprintf(w, "Wrote %s\n", resp.Output.Content)
		for _, img := range resp.Output.Images {
			fmt.Fprintf(w, "Wrote %s\n", img)
		}
	default:
		fmt.Fprintf(w, "%s  %s  %s\n", refStyle.Render(resp.Ref), typeStyle.Render(resp.Type),
			dimStyle.Render(fmt.Sprintf("%d chars", resp.ContentSize)))
		fmt.Fprintln(w, resp.Content)
	}
}

func renderContext(w io.Writer, resp *history.ContextResponse) {
	for i, m := range resp.Messages {
		if i > 0 {
			fmt.Fprintln(w)
		}
		marker := " "
		ref := refStyle.Render(m.Ref)
		if m.IsAnchor {
			marker = anchorStyle.Render(anchorSymbol)
			ref = anchorStyle.Render(m.Ref)
		}
		fmt.Fprintf(w, "%s %s  %s\n", marker, ref, typeStyle.Render(m.Type))
		fmt.Fprintln(w, indent(m.Content))
	}
	if resp.Truncated {
		fmt.Fprintln(w)
		fmt.Fprintln(w, dimStyle.Render("Window cut short by --max-total"))
	}
}

func renderProjects(w io.Writer, resp *history.ProjectsResponse) {
	if len(resp.Projects) == 0 {
		fmt.Fprintln(w, "No projects")
		return
	}
	ids := make([]string, len(resp.Projects))
	for i, p := range resp.Projects {
		ids[i] = p.ID
	}
	idWidth := columnWidth("PROJECT", ids)

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s  %8s  %s", column("PROJECT", idWidth), "SESSIONS", "LAST ACTIVITY")))
	for _, p := range resp.Projects {
		fmt.Fprintf(w, "%s  %8d  %s\n", column(p.ID, idWidth), p.SessionCount, p.LastActivity)
	}
}

func renderSessions(w io.Writer, resp *history.SessionsResponse) {
	fmt.Fprintf(w, "Project: %s\n\n", resp.Project)
	if len(resp.Sessions) == 0 {
		fmt.Fprintln(w, "No sessions")
		return
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s  %6s  %-20s  %-20s  %s",
		column("REF", 8), "LINES", "START", "END", "SIZE")))
	for _, s := range resp.Sessions {
		fmt.Fprintf(w, "%s  %6d  %s  %s  %s\n",
			refStyle.Render(column(s.RefPrefix, 8)),
			s.LineCount,
			column(s.StartTime, 20),
			column(s.EndTime, 20),
			humanize.IBytes(uint64(max(s.SizeBytes, 0))))
	}
}
