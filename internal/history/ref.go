package history

import (
	"fmt"
	"strconv"
	"strings"
)

// RefPrefixLen is the number of leading session-id characters used in a ref.
const RefPrefixLen = 8

// Ref addresses one message: the 8-character session prefix and a 1-based line.
type Ref struct {
	Prefix string
	Line   int
}

// ParseRef parses "<prefix>:<line>".
func ParseRef(s string) (Ref, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return Ref{}, newError(KindInvalidRef, "invalid ref %q, expected <session-prefix>:<line>", s)
	}
	line, err := strconv.Atoi(parts[1])
	if err != nil || line <= 0 {
		return Ref{}, newError(KindInvalidRef, "invalid ref %q, line must be a positive integer", s)
	}
	return Ref{Prefix: parts[0], Line: line}, nil
}

func (r Ref) String() string {
	return fmt.Sprintf("%s:%d", r.Prefix, r.Line)
}

// RefPrefix returns the first RefPrefixLen characters of a session id.
func RefPrefix(sessionID string) string {
	n := 0
	for i := range sessionID {
		if n == RefPrefixLen {
			return sessionID[:i]
		}
		n++
	}
	return sessionID
}

// NewRef builds the ref of a line in the given session.
func NewRef(sessionID string, line int) Ref {
	return Ref{Prefix: RefPrefix(sessionID), Line: line}
}
