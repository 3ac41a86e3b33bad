package main

import (
	"fmt"
	"io"

	"github.com/asheshgoplani/agent-history/internal/service"
)

func usage(a *argFlags, line, about string, examples ...string) {
	a.fs.Usage = func() {
		w := a.fs.Output()
		fmt.Fprintf(w, "Usage: agent-history %s\n\n%s\n\nOptions:\n", line, about)
		a.fs.PrintDefaults()
		if len(examples) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Examples:")
			for _, ex := range examples {
				fmt.Fprintf(w, "  %s\n", ex)
			}
		}
	}
}

// addScopeFlags registers the project selection flags.
func addScopeFlags(a *argFlags) {
	a.String("project", "Project id(s), comma-separated (default: current directory's project)")
	a.Bool("all", "Search every project")
}

// addFilterFlags registers the match filters shared by search and follow.
func addFilterFlags(a *argFlags) {
	a.String("pattern", "Query (alternative to the positional pattern)")
	a.String("types", "Message types, comma-separated (default: assistant,user,summary)")
	a.String("since", "Only messages at or after: RFC3339, YYYY-MM-DD, today, week, month")
	a.String("until", "Only messages at or before (same formats as --since)")
	a.Bool("regex", "Treat the pattern as one regular expression")
	a.Bool("case_sensitive", "Match case exactly")
}

// patternArgs uses the positional words as the pattern unless --pattern
// was given.
func patternArgs(a *argFlags) service.Args {
	args := a.Args()
	if _, ok := args["pattern"]; !ok {
		if p := a.Positional(); p != "" {
			args["pattern"] = p
		}
	}
	return args
}

// refArgs takes the ref from --ref or the first positional argument.
func refArgs(a *argFlags) service.Args {
	args := a.Args()
	if _, ok := args["ref"]; !ok && a.fs.NArg() > 0 {
		args["ref"] = a.fs.Arg(0)
	}
	return args
}

func runSearch(svc *service.Service, args []string, stdout, stderr io.Writer) int {
	a := newArgFlags("search", stderr)
	addScopeFlags(a)
	addFilterFlags(a)
	a.String("sessions", "Session ids or ref prefixes, comma-separated")
	a.String("lines", "Line ranges, e.g. 1-50,!10-20")
	a.String("offset", "Skip this many matches")
	a.String("limit", "Return at most this many matches")
	a.String("max_content", "Characters kept per message")
	a.String("max_total", "Characters kept across all messages")
	usage(a, "search [pattern] [options]", "Search messages in the current project, or the selected projects.",
		`agent-history search "deploy error"`,
		`agent-history search "error|warning !timeout" --since week`,
		"agent-history search --all --types user --limit 20 --json")
	if code, stop := parseFlags(a, args); stop {
		return code
	}

	out := NewCLIOutput(*a.json, stdout, stderr)
	resp, err := svc.Search(patternArgs(a))
	if err != nil {
		return out.Error(err)
	}
	out.Print(func(w io.Writer) { renderSearch(w, resp) }, resp)
	return 0
}

func runGet(svc *service.Service, args []string, stdout, stderr io.Writer) int {
	a := newArgFlags("get", stderr)
	a.String("ref", "Message ref (alternative to the positional ref)")
	a.String("range", "Character range start-end")
	a.String("output", "Write the content and images into this directory")
	a.String("project", "Project id to look the ref up in")
	usage(a, "get <ref> [options]", "Show the full content of one message.",
		"agent-history get abcd1234:42",
		"agent-history get abcd1234:42 --range 0-5000",
		"agent-history get abcd1234:42 --output ./export")
	if code, stop := parseFlags(a, args); stop {
		return code
	}

	out := NewCLIOutput(*a.json, stdout, stderr)
	resp, err := svc.Get(refArgs(a))
	if err != nil {
		return out.Error(err)
	}
	out.Print(func(w io.Writer) { renderGet(w, resp) }, resp)
	return 0
}

func runContext(svc *service.Service, args []string, stdout, stderr io.Writer) int {
	a := newArgFlags("context", stderr)
	a.String("ref", "Anchor ref (alternative to the positional ref)")
	a.String("before", "Messages before the anchor")
	a.String("after", "Messages after the anchor")
	a.String("until_type", "Extend to the nearest message of this type instead")
	a.String("direction", "Direction for --until-type: forward or backward")
	a.String("types", "Message types counted and shown (default: all)")
	a.String("project", "Project id to look the ref up in")
	a.String("max_content", "Characters kept per message")
	a.String("max_total", "Characters kept across the window")
	usage(a, "context <ref> [options]", "Show the messages around a ref.",
		"agent-history context abcd1234:42 --before 3 --after 3",
		"agent-history context abcd1234:42 --until-type user --direction backward")
	if code, stop := parseFlags(a, args); stop {
		return code
	}

	out := NewCLIOutput(*a.json, stdout, stderr)
	resp, err := svc.Context(refArgs(a))
	if err != nil {
		return out.Error(err)
	}
	out.Print(func(w io.Writer) { renderContext(w, resp) }, resp)
	return 0
}

func runProjects(svc *service.Service, args []string, stdout, stderr io.Writer) int {
	a := newArgFlags("projects", stderr)
	usage(a, "projects [options]", "List projects, most recently active first.")
	if code, stop := parseFlags(a, args); stop {
		return code
	}

	out := NewCLIOutput(*a.json, stdout, stderr)
	resp, err := svc.Projects()
	if err != nil {
		return out.Error(err)
	}
	out.Print(func(w io.Writer) { renderProjects(w, resp) }, resp)
	return 0
}

func runSessions(svc *service.Service, args []string, stdout, stderr io.Writer) int {
	a := newArgFlags("sessions", stderr)
	a.String("project", "Project id (default: current directory's project)")
	usage(a, "sessions [options]", "List the sessions of a project, latest first.")
	if code, stop := parseFlags(a, args); stop {
		return code
	}

	out := NewCLIOutput(*a.json, stdout, stderr)
	resp, err := svc.Sessions(a.Args())
	if err != nil {
		return out.Error(err)
	}
	out.Print(func(w io.Writer) { renderSessions(w, resp) }, resp)
	return 0
}
