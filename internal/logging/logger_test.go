package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// records decodes JSONL output, failing on any line that is not JSON.
func records(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("invalid JSON record %q: %v", sc.Text(), err)
		}
		out = append(out, rec)
	}
	return out
}

func findRecord(t *testing.T, data []byte, msg string) map[string]any {
	t.Helper()
	for _, rec := range records(t, data) {
		if rec["msg"] == msg {
			return rec
		}
	}
	return nil
}

func TestInitWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	Init(Config{Debug: true, LogDir: dir})
	defer Shutdown()

	Logger().Info("search_done", "matches", 2)

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	rec := findRecord(t, data, "search_done")
	if rec == nil {
		t.Fatalf("record missing from %s", data)
	}
	if rec["matches"] != float64(2) {
		t.Errorf("matches = %v, want 2", rec["matches"])
	}
}

func TestInitWithoutSinkDiscards(t *testing.T) {
	Init(Config{})
	defer Shutdown()

	if Logger() != discardLogger {
		t.Error("expected the discarding logger without any sink")
	}
	ForComponent(CompSearch).Info("dropped")

	path := filepath.Join(t.TempDir(), "dump.jsonl")
	if err := DumpRingBuffer(path); err != nil {
		t.Fatalf("DumpRingBuffer: %v", err)
	}
	data, _ := os.ReadFile(path)
	if len(data) != 0 {
		t.Errorf("expected an empty dump, got %q", data)
	}
}

func TestForComponentDeclaredBeforeInit(t *testing.T) {
	Shutdown()
	log := ForComponent(CompFollow)

	var buf bytes.Buffer
	Init(Config{Stderr: &buf})
	defer Shutdown()

	log.Info("rescan", "lines", 4)

	rec := findRecord(t, buf.Bytes(), "rescan")
	if rec == nil {
		t.Fatalf("record missing from %q", buf.String())
	}
	if rec["component"] != CompFollow {
		t.Errorf("component = %v, want %s", rec["component"], CompFollow)
	}
}

func TestForComponentAttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Stderr: &buf})
	defer Shutdown()

	ForComponent(CompSearch).
		With("path", "a.jsonl").
		WithGroup("scan").
		Info("file_done", "lines", 3)

	rec := findRecord(t, buf.Bytes(), "file_done")
	if rec == nil {
		t.Fatalf("record missing from %q", buf.String())
	}
	if rec["component"] != CompSearch || rec["path"] != "a.jsonl" {
		t.Errorf("unexpected top-level attrs: %v", rec)
	}
	group, ok := rec["scan"].(map[string]any)
	if !ok || group["lines"] != float64(3) {
		t.Errorf("scan group = %v, want lines=3", rec["scan"])
	}
}

func TestParseLevel(t *testing.T) {
	for _, tc := range []struct {
		name string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	} {
		if got := parseLevel(tc.name); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Stderr: &buf, Level: "warn"})
	defer Shutdown()

	log := ForComponent(CompCorpus)
	log.Info("project_listed")
	log.Warn("project_unreadable")

	if findRecord(t, buf.Bytes(), "project_listed") != nil {
		t.Error("info record should be filtered at warn level")
	}
	if findRecord(t, buf.Bytes(), "project_unreadable") == nil {
		t.Error("warn record should be written")
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Stderr: &buf, Format: "text"})
	defer Shutdown()

	ForComponent(CompCLI).Info("command_start", "command", "search")

	out := buf.String()
	if !strings.Contains(out, "msg=command_start") || !strings.Contains(out, "component=cli") {
		t.Errorf("unexpected text output %q", out)
	}
}

func TestInitReplacesPreviousSetup(t *testing.T) {
	var first, second bytes.Buffer
	Init(Config{Stderr: &first})
	Init(Config{Stderr: &second})
	defer Shutdown()

	Logger().Info("after_reinit")

	if findRecord(t, first.Bytes(), "after_reinit") != nil {
		t.Error("old sink should no longer receive records")
	}
	if findRecord(t, second.Bytes(), "after_reinit") == nil {
		t.Error("new sink should receive records")
	}
}

func TestDumpRingBufferKeepsValidRecords(t *testing.T) {
	dir := t.TempDir()
	Init(Config{Debug: true, RingBufferSize: 512})
	defer Shutdown()

	log := ForComponent(CompSearch)
	for i := range 50 {
		log.Info("scan_progress", "file", i)
	}

	dumpPath := filepath.Join(dir, "crash-dump.jsonl")
	if err := DumpRingBuffer(dumpPath); err != nil {
		t.Fatalf("DumpRingBuffer: %v", err)
	}
	data, err := os.ReadFile(dumpPath)
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	recs := records(t, data)
	if len(recs) == 0 || len(recs) == 50 {
		t.Fatalf("expected some but not all records, got %d", len(recs))
	}
	if last := recs[len(recs)-1]["file"]; last != float64(49) {
		t.Errorf("last record file = %v, want 49", last)
	}
}

func TestStderrOnlyWritesNoLogFile(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Stderr: &buf})
	defer Shutdown()

	ForComponent(CompHTTP).Info("serve_start")

	if findRecord(t, buf.Bytes(), "serve_start") == nil {
		t.Errorf("expected stderr to contain the record, got %q", buf.String())
	}
	if logFile != nil {
		t.Error("expected no rotated log file without a log dir")
	}
}

func TestShutdownFlushesAggregates(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Stderr: &buf, AggregateIntervalSecs: 3600})

	for range 3 {
		Aggregate(CompSearch, "malformed_line_skipped", slog.String("path", "s.jsonl"))
	}
	Shutdown()

	rec := findRecord(t, buf.Bytes(), "event_summary")
	if rec == nil {
		t.Fatalf("summary missing from %q", buf.String())
	}
	if rec["event"] != "malformed_line_skipped" || rec["count"] != float64(3) {
		t.Errorf("unexpected summary %v", rec)
	}
}
