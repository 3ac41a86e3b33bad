package history

import (
	"math"
	"strconv"
	"strings"
)

// LineRange is an inclusive interval of 1-based line numbers.
type LineRange struct {
	Start   int
	End     int
	Exclude bool
}

func (r LineRange) contains(line int) bool {
	return line >= r.Start && line <= r.End
}

// LineRanges is a parsed range expression such as "1-100,200-,!150-160".
type LineRanges []LineRange

// ParseRanges parses a comma-separated range expression. Items whose
// numbers cannot be parsed are dropped; a non-numeric side of a "-" item
// is treated as an open bound.
func ParseRanges(expr string) LineRanges {
	var out LineRanges
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		exclude := strings.HasPrefix(part, "!")
		part = strings.TrimPrefix(part, "!")

		if lo, hi, ok := strings.Cut(part, "-"); ok {
			out = append(out, LineRange{
				Start:   parseBound(lo, 0),
				End:     parseBound(hi, math.MaxInt),
				Exclude: exclude,
			})
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		out = append(out, LineRange{Start: n, End: n, Exclude: exclude})
	}
	return out
}

func parseBound(s string, open int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return open
	}
	return n
}

// Accepts reports whether line passes the expression. Exclusions always
// win; an expression with only exclusions accepts everything else.
func (rs LineRanges) Accepts(line int) bool {
	if len(rs) == 0 {
		return true
	}
	hasInclude := false
	for _, r := range rs {
		if r.Exclude {
			if r.contains(line) {
				return false
			}
			continue
		}
		hasInclude = true
	}
	if !hasInclude {
		return true
	}
	for _, r := range rs {
		if !r.Exclude && r.contains(line) {
			return true
		}
	}
	return false
}
