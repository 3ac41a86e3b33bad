package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/asheshgoplani/agent-history/internal/history"
)

type wsClientMessage struct {
	Type string `json:"type"`
}

type wsServerMessage struct {
	Type    string                `json:"type"` // status, result, error
	Event   string                `json:"event,omitempty"`
	Code    string                `json:"code,omitempty"`
	Message string                `json:"message,omitempty"`
	Result  *history.SearchResult `json:"result,omitempty"`
	Time    time.Time             `json:"time,omitempty"`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     allowWSOrigin,
}

func allowWSOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil || originURL.Host == "" {
		return false
	}

	return strings.EqualFold(originURL.Host, r.Host)
}

// wsConnWriter serializes writes from the follower and the read loop.
type wsConnWriter struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func newWSConnWriter(conn *websocket.Conn) *wsConnWriter {
	return &wsConnWriter{conn: conn}
}

func (w *wsConnWriter) WriteJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.conn.WriteJSON(v)
}

// newFollower starts watching the scope described by the query string.
func (s *Server) newFollower(r *http.Request) (*history.Follower, error) {
	opts, err := s.svc.FollowOptions(argsFromQuery(r.URL.Query()))
	if err != nil {
		return nil, err
	}
	return s.svc.Corpus.NewFollower(opts)
}

// handleFollowWS streams new matches as {"type":"result"} messages until
// the client disconnects. Clients may send {"type":"ping"}.
func (s *Server) handleFollowWS(w http.ResponseWriter, r *http.Request) {
	follower, err := s.newFollower(r)
	if err != nil {
		writeHistoryError(w, r, err)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		_ = follower.Close()
		return
	}
	defer conn.Close()

	writer := newWSConnWriter(conn)
	_ = writer.WriteJSON(wsServerMessage{
		Type:  "status",
		Event: "connected",
		Time:  time.Now().UTC(),
	})

	ctx, cancel := context.WithCancel(r.Context())
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := follower.Run(ctx, func(res history.SearchResult) {
			msg := wsServerMessage{Type: "result", Result: &res, Time: time.Now().UTC()}
			if err := writer.WriteJSON(msg); err != nil {
				cancel()
			}
		})
		if err != nil {
			webLog.Warn("follow_stopped", slog.String("error", err.Error()))
		}
		// Unblocks the read loop when the server shuts down.
		_ = conn.Close()
	}()
	defer func() {
		cancel()
		<-done
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) && ctx.Err() == nil {
				webLog.Warn("websocket_closed_unexpectedly", slog.String("error", err.Error()))
			}
			return
		}

		var msg wsClientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			_ = writer.WriteJSON(wsServerMessage{
				Type:    "error",
				Code:    "INVALID_MESSAGE",
				Message: "invalid json payload",
				Time:    time.Now().UTC(),
			})
			continue
		}

		switch msg.Type {
		case "ping":
			_ = writer.WriteJSON(wsServerMessage{
				Type:  "status",
				Event: "pong",
				Time:  time.Now().UTC(),
			})
		default:
			_ = writer.WriteJSON(wsServerMessage{
				Type:    "error",
				Code:    "UNSUPPORTED_MESSAGE",
				Message: "supported message types: ping",
				Time:    time.Now().UTC(),
			})
		}
	}
}
