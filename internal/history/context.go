package history

import (
	"log/slog"
	"unicode/utf8"

	"github.com/asheshgoplani/agent-history/internal/logging"
)

var contextLog = logging.ForComponent(logging.CompContext)

// Directions for boundary-mode context windows.
const (
	DirectionForward  = "forward"
	DirectionBackward = "backward"
)

// ContextOptions describes a context window around an anchor ref. When
// UntilType is set the window runs from the anchor to the nearest message
// of that type in Direction; otherwise Before and After count messages of
// the allowed Types on each side.
type ContextOptions struct {
	Ref   string
	Scope Scope

	Before    int
	After     int
	UntilType string
	Direction string
	Types     []string

	MaxContent int
	MaxTotal   int
}

// ContextMessage is one message of a context window.
type ContextMessage struct {
	Ref      string `json:"ref"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	IsAnchor bool   `json:"is_anchor,omitempty"`
}

// ContextResponse is the ordered window around the anchor. Truncated is
// set when the total budget cut the window short.
type ContextResponse struct {
	AnchorRef string           `json:"anchor_ref"`
	Messages  []ContextMessage `json:"messages"`
	Truncated bool             `json:"truncated,omitempty"`
}

type entry struct {
	line    int
	typ     string
	content string
}

// Context returns the messages surrounding a ref.
func (c *Corpus) Context(opts ContextOptions) (*ContextResponse, error) {
	if opts.MaxContent <= 0 {
		opts.MaxContent = DefaultMaxContent
	}
	if opts.MaxTotal <= 0 {
		opts.MaxTotal = DefaultMaxTotal
	}
	switch opts.Direction {
	case "":
		opts.Direction = DirectionForward
	case DirectionForward, DirectionBackward:
	default:
		return nil, newError(KindInvalidArgument, "invalid direction %q, expected forward or backward", opts.Direction)
	}

	ref, err := ParseRef(opts.Ref)
	if err != nil {
		return nil, err
	}
	sf, err := c.FindSession(opts.Scope, ref.Prefix)
	if err != nil {
		return nil, err
	}
	entries, err := loadEntries(sf)
	if err != nil {
		return nil, err
	}

	anchor := -1
	for i, e := range entries {
		if e.line == ref.Line {
			anchor = i
			break
		}
	}
	if anchor < 0 {
		return nil, newError(KindRefNotFound, "ref not found: %s", opts.Ref)
	}

	allowed := typeSet(opts.Types)
	var start, end int
	if opts.UntilType != "" {
		start, end = boundaryWindow(entries, anchor, opts.UntilType, opts.Direction)
	} else {
		start, end = countedWindow(entries, anchor, opts.Before, opts.After, allowed)
	}

	resp := emitWindow(entries[start:end+1], anchor-start, sf.SessionID, allowed, opts.MaxContent, opts.MaxTotal)
	resp.AnchorRef = opts.Ref
	contextLog.Debug("context_done",
		slog.String("ref", opts.Ref),
		slog.Int("messages", len(resp.Messages)),
		slog.Bool("truncated", resp.Truncated))
	return resp, nil
}

// loadEntries decodes a whole session, skipping malformed lines.
func loadEntries(sf SessionFile) ([]entry, error) {
	var entries []entry
	err := eachLine(sf.Path, func(n int, line []byte) bool {
		rec, err := DecodeRecord(line)
		if err != nil {
			return true
		}
		entries = append(entries, entry{line: n, typ: rec.Type, content: rec.Body.Render()})
		return true
	})
	if err != nil {
		return nil, ioError(err, "cannot read session %s", sf.SessionID)
	}
	return entries, nil
}

// typeSet returns nil for an empty list, meaning every type is allowed.
func typeSet(types []string) map[string]bool {
	if len(types) == 0 {
		return nil
	}
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

func allowedType(allowed map[string]bool, typ string) bool {
	return allowed == nil || allowed[typ]
}

// boundaryWindow returns inclusive indices from the anchor to the nearest
// entry of untilType in the given direction, or just the anchor.
func boundaryWindow(entries []entry, anchor int, untilType, direction string) (int, int) {
	if direction == DirectionBackward {
		for i := anchor - 1; i >= 0; i-- {
			if entries[i].typ == untilType {
				return i, anchor
			}
		}
		return anchor, anchor
	}
	for i := anchor + 1; i < len(entries); i++ {
		if entries[i].typ == untilType {
			return anchor, i
		}
	}
	return anchor, anchor
}

// countedWindow extends the window by up to before/after allowed entries
// on each side of the anchor.
func countedWindow(entries []entry, anchor, before, after int, allowed map[string]bool) (int, int) {
	start, end := anchor, anchor
	for i, n := anchor-1, 0; i >= 0 && n < before; i-- {
		if allowedType(allowed, entries[i].typ) {
			n++
			start = i
		}
	}
	for i, n := anchor+1, 0; i < len(entries) && n < after; i++ {
		if allowedType(allowed, entries[i].typ) {
			n++
			end = i
		}
	}
	return start, end
}

// emitWindow renders the window. Other entries stop once the next one
// would exceed maxTotal; the anchor is emitted regardless.
func emitWindow(window []entry, anchor int, sessionID string, allowed map[string]bool, maxContent, maxTotal int) *ContextResponse {
	resp := &ContextResponse{Messages: []ContextMessage{}}
	total := 0
	for i, e := range window {
		isAnchor := i == anchor
		if !isAnchor && (resp.Truncated || !allowedType(allowed, e.typ)) {
			if resp.Truncated && i > anchor {
				break
			}
			continue
		}
		content, _ := truncateRunes(e.content, maxContent)
		size := utf8.RuneCountInString(content)
		if !isAnchor && total+size > maxTotal {
			resp.Truncated = true
			if i > anchor {
				break
			}
			continue
		}
		total += size
		resp.Messages = append(resp.Messages, ContextMessage{
			Ref:      NewRef(sessionID, e.line).String(),
			Type:     e.typ,
			Content:  content,
			IsAnchor: isAnchor,
		})
	}
	return resp
}
