package history

import (
	"regexp"
	"strings"
)

// Matcher decides whether rendered message content matches a query.
type Matcher interface {
	Match(content string) bool
}

// Pattern is the compiled form of a boolean query: every MustHave term,
// at least one term of each AnyOf group, and no MustNot term.
type Pattern struct {
	MustHave      []string
	AnyOf         [][]string
	MustNot       []string
	CaseSensitive bool
}

// ParsePattern splits a boolean query on whitespace. "!term" excludes,
// "a|b" requires any of a or b, a bare token is required.
func ParsePattern(query string, caseSensitive bool) *Pattern {
	fold := func(s string) string {
		if caseSensitive {
			return s
		}
		return strings.ToLower(s)
	}

	p := &Pattern{CaseSensitive: caseSensitive}
	for _, tok := range strings.Fields(query) {
		switch {
		case strings.HasPrefix(tok, "!"):
			if term := tok[1:]; term != "" {
				p.MustNot = append(p.MustNot, fold(term))
			}
		case strings.Contains(tok, "|"):
			var group []string
			for _, alt := range strings.Split(tok, "|") {
				if alt != "" {
					group = append(group, fold(alt))
				}
			}
			if len(group) > 0 {
				p.AnyOf = append(p.AnyOf, group)
			}
		default:
			p.MustHave = append(p.MustHave, fold(tok))
		}
	}
	return p
}

// Match applies substring containment for every term class.
func (p *Pattern) Match(content string) bool {
	if !p.CaseSensitive {
		content = strings.ToLower(content)
	}
	for _, term := range p.MustHave {
		if !strings.Contains(content, term) {
			return false
		}
	}
	for _, group := range p.AnyOf {
		if !containsAny(content, group) {
			return false
		}
	}
	for _, term := range p.MustNot {
		if strings.Contains(content, term) {
			return false
		}
	}
	return true
}

func containsAny(content string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(content, term) {
			return true
		}
	}
	return false
}

type regexMatcher struct {
	re *regexp.Regexp
}

func (m regexMatcher) Match(content string) bool { return m.re.MatchString(content) }

type matchAll struct{}

func (matchAll) Match(string) bool { return true }

// CompileQuery turns a raw query into a Matcher. An empty query matches
// everything; regex mode compiles the query case-insensitively unless
// caseSensitive is set.
func CompileQuery(query string, regex, caseSensitive bool) (Matcher, error) {
	if query == "" {
		return matchAll{}, nil
	}
	if !regex {
		return ParsePattern(query, caseSensitive), nil
	}
	expr := query
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &Error{Kind: KindInvalidPattern, Message: "invalid regex: " + err.Error(), Err: err}
	}
	return regexMatcher{re: re}, nil
}
