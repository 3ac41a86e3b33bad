package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func readRecords(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log: %v", err)
	}
	var records []map[string]any
	start := 0
	for i, b := range data {
		if b == '\n' {
			var r map[string]any
			if err := json.Unmarshal(data[start:i], &r); err == nil {
				records = append(records, r)
			}
			start = i + 1
		}
	}
	return records
}

func TestBridgeWriterParsesPrefix(t *testing.T) {
	Shutdown()

	dir := t.TempDir()
	Init(Config{
		Debug:  true,
		LogDir: dir,
	})
	defer Shutdown()

	bw := NewBridgeWriter(CompCLI)

	tests := []struct {
		input    string
		wantComp string
		wantMsg  string
	}{
		{"http: TLS handshake error from 127.0.0.1:5000: EOF\n", CompHTTP, "TLS handshake error from 127.0.0.1:5000: EOF"},
		{"stdio: failed to read request\n", CompMCP, "failed to read request"},
		{"plain message without prefix\n", CompCLI, "plain message without prefix"},
		{"unknown: stays whole\n", CompCLI, "unknown: stays whole"},
		{"two words: not a prefix\n", CompCLI, "two words: not a prefix"},
	}

	for _, tt := range tests {
		_, _ = bw.Write([]byte(tt.input))
	}

	records := readRecords(t, filepath.Join(dir, "debug.log"))
	if len(records) != len(tests) {
		t.Fatalf("expected %d records, got %d", len(tests), len(records))
	}
	for i, tt := range tests {
		r := records[i]
		if r["component"] != tt.wantComp {
			t.Errorf("input %q: expected component=%s, got %v", tt.input, tt.wantComp, r["component"])
		}
		if r["msg"] != tt.wantMsg {
			t.Errorf("input %q: expected msg=%q, got %v", tt.input, tt.wantMsg, r["msg"])
		}
		if r["level"] != "WARN" {
			t.Errorf("input %q: expected level=WARN, got %v", tt.input, r["level"])
		}
	}
}

func TestStdLoggerStripsTimestamp(t *testing.T) {
	Shutdown()

	dir := t.TempDir()
	Init(Config{
		Debug:  true,
		LogDir: dir,
	})
	defer Shutdown()

	_, _ = NewBridgeWriter(CompMCP).Write([]byte("2025/01/02 15:04:05 http: accept error\n"))

	records := readRecords(t, filepath.Join(dir, "debug.log"))
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0]["msg"] != "accept error" {
		t.Errorf("expected msg='accept error', got %v", records[0]["msg"])
	}
	if records[0]["component"] != CompHTTP {
		t.Errorf("expected component=%s, got %v", CompHTTP, records[0]["component"])
	}
}

func TestNewStdLogger(t *testing.T) {
	Shutdown()

	dir := t.TempDir()
	Init(Config{
		Debug:  true,
		LogDir: dir,
	})
	defer Shutdown()

	NewStdLogger(CompMCP).Printf("transport closed: %s", "eof")

	records := readRecords(t, filepath.Join(dir, "debug.log"))
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0]["component"] != CompMCP {
		t.Errorf("expected component=%s, got %v", CompMCP, records[0]["component"])
	}
}

func TestBridgeWriterEmptyInput(t *testing.T) {
	Shutdown()

	dir := t.TempDir()
	Init(Config{
		Debug:  true,
		LogDir: dir,
	})
	defer Shutdown()

	bw := NewBridgeWriter(CompCLI)
	n, err := bw.Write([]byte("   \n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 4 {
		t.Errorf("expected n=4, got %d", n)
	}

	data, _ := os.ReadFile(filepath.Join(dir, "debug.log"))
	if len(data) > 0 {
		t.Errorf("expected empty log for whitespace input, got %q", string(data))
	}
}

func TestStripLogTimestamp(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2025/01/02 15:04:05 hello", "hello"},
		{"15:04:05 hello", "hello"},
		{"no timestamp here", "no timestamp here"},
	}

	for _, tt := range tests {
		got := stripLogTimestamp(tt.input)
		if got != tt.want {
			t.Errorf("stripLogTimestamp(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
