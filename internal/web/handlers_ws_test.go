package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func wsURL(baseURL, path string) string {
	if strings.HasPrefix(baseURL, "https://") {
		return "wss://" + strings.TrimPrefix(baseURL, "https://") + path
	}
	return "ws://" + strings.TrimPrefix(baseURL, "http://") + path
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		t.Fatalf("append session: %v", err)
	}
}

func dialFollow(t *testing.T, baseURL, query string, headers http.Header) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(baseURL, "/ws/follow"+query), headers)
	if err != nil {
		if resp != nil {
			t.Fatalf("dial failed with status %d: %v", resp.StatusCode, err)
		}
		t.Fatalf("dial failed: %v", err)
	}
	return conn
}

func TestWSFollowUnauthorized(t *testing.T) {
	srv, _ := newTestServer(t, "secret-token")

	testServer := httptest.NewServer(srv.Handler())
	defer testServer.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(testServer.URL, "/ws/follow"), nil)
	if err == nil {
		t.Fatal("expected websocket dial error for unauthorized request")
	}
	if resp == nil {
		t.Fatal("expected HTTP response for unauthorized websocket upgrade")
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestWSFollowAuthorizedWithQueryToken(t *testing.T) {
	srv, _ := newTestServer(t, "secret-token")

	testServer := httptest.NewServer(srv.Handler())
	defer testServer.Close()

	conn := dialFollow(t, testServer.URL, "?token=secret-token", nil)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	expectWSStatusEvent(t, conn, "connected")
}

func TestWSFollowAuthorizedWithBearerToken(t *testing.T) {
	srv, _ := newTestServer(t, "secret-token")

	testServer := httptest.NewServer(srv.Handler())
	defer testServer.Close()

	headers := http.Header{}
	headers.Set("Authorization", "Bearer secret-token")
	conn := dialFollow(t, testServer.URL, "", headers)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	expectWSStatusEvent(t, conn, "connected")
}

func TestWSFollowRejectsCrossOrigin(t *testing.T) {
	srv, _ := newTestServer(t, "")

	testServer := httptest.NewServer(srv.Handler())
	defer testServer.Close()

	headers := http.Header{}
	headers.Set("Origin", "https://evil.example")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(testServer.URL, "/ws/follow"), headers)
	if err == nil {
		t.Fatal("expected websocket dial error for cross-origin request")
	}
	if resp == nil {
		t.Fatal("expected HTTP response for rejected cross-origin websocket upgrade")
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, resp.StatusCode)
	}
}

func TestWSFollowInvalidScope(t *testing.T) {
	srv, _ := newTestServer(t, "")

	testServer := httptest.NewServer(srv.Handler())
	defer testServer.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(testServer.URL, "/ws/follow?project=missing"), nil)
	if err == nil {
		t.Fatal("expected websocket dial error for unknown project")
	}
	if resp == nil {
		t.Fatal("expected HTTP response for rejected follow")
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestWSFollowStreamsAppendedMatches(t *testing.T) {
	srv, sessionPath := newTestServer(t, "")

	testServer := httptest.NewServer(srv.Handler())
	defer testServer.Close()

	conn := dialFollow(t, testServer.URL, "?pattern=rollback", nil)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	expectWSStatusEvent(t, conn, "connected")

	appendLine(t, sessionPath, transcriptLine(t, "3", "user", "2025-05-01T00:00:02Z", "noise"))
	appendLine(t, sessionPath, transcriptLine(t, "4", "assistant", "2025-05-01T00:00:03Z", "starting rollback now"))

	var msg wsServerMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read result message: %v", err)
	}
	if msg.Type != "result" || msg.Result == nil {
		t.Fatalf("expected result message, got: %+v", msg)
	}
	if msg.Result.Ref != "abcd1234:4" || msg.Result.Project != testProject {
		t.Fatalf("unexpected result: %+v", msg.Result)
	}
}

func TestWSFollowPingAndUnsupported(t *testing.T) {
	srv, _ := newTestServer(t, "")

	testServer := httptest.NewServer(srv.Handler())
	defer testServer.Close()

	conn := dialFollow(t, testServer.URL, "", nil)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	expectWSStatusEvent(t, conn, "connected")

	if err := conn.WriteJSON(wsClientMessage{Type: "ping"}); err != nil {
		t.Fatalf("failed to write ping message: %v", err)
	}
	expectWSStatusEvent(t, conn, "pong")

	if err := conn.WriteJSON(wsClientMessage{Type: "input"}); err != nil {
		t.Fatalf("failed to write message: %v", err)
	}
	var msg wsServerMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read ws response: %v", err)
	}
	if msg.Type != "error" || msg.Code != "UNSUPPORTED_MESSAGE" {
		t.Fatalf("unexpected ws response: %+v", msg)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("failed to write message: %v", err)
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read ws response: %v", err)
	}
	if msg.Code != "INVALID_MESSAGE" {
		t.Fatalf("unexpected ws response: %+v", msg)
	}
}

func TestAllowWSOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://example.com", true},
		{"http://EXAMPLE.com", true},
		{"http://other.com", false},
		{"::bad", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "http://example.com/ws/follow", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := allowWSOrigin(r); got != tt.want {
			t.Errorf("allowWSOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func expectWSStatusEvent(t *testing.T, conn *websocket.Conn, event string) {
	t.Helper()

	var msg wsServerMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read ws status message: %v", err)
	}
	if msg.Type != "status" || msg.Event != event {
		t.Fatalf("expected status=%q message, got: %+v", event, msg)
	}
}
