package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/asheshgoplani/agent-history/internal/history"
	"github.com/asheshgoplani/agent-history/internal/service"
)

// runFollow prints messages matching the pattern as they are appended,
// until ctx is cancelled. --json prints one result object per line.
func runFollow(ctx context.Context, svc *service.Service, args []string, stdout, stderr io.Writer) int {
	a := newArgFlags("follow", stderr)
	addScopeFlags(a)
	addFilterFlags(a)
	usage(a, "follow [pattern] [options]", "Print new matching messages as sessions are written. Stop with Ctrl+C.",
		"agent-history follow error",
		"agent-history follow --all --types user")
	if code, stop := parseFlags(a, args); stop {
		return code
	}

	out := NewCLIOutput(*a.json, stdout, stderr)
	opts, err := svc.FollowOptions(patternArgs(a))
	if err != nil {
		return out.Error(err)
	}
	follower, err := svc.Corpus.NewFollower(opts)
	if err != nil {
		return out.Error(err)
	}

	if !*a.json {
		io.WriteString(stderr, dimStyle.Render("Following new messages, Ctrl+C to stop")+"\n")
	}
	enc := json.NewEncoder(stdout)
	first := true
	err = follower.Run(ctx, func(res history.SearchResult) {
		if *a.json {
			_ = enc.Encode(res)
			return
		}
		if !first {
			io.WriteString(stdout, "\n")
		}
		first = false
		renderResult(stdout, res)
	})
	if err != nil {
		return out.Error(err)
	}
	return 0
}
