package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newHubServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.URL.Query().Get("user"), 10, 64)
		if err != nil {
			http.Error(w, "bad user", http.StatusBadRequest)
			return
		}
		_ = hub.Join(w, r, userID)
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, userID int64) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + strconv.FormatInt(userID, 10)
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn) (string, map[string]any) {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev struct {
		Event   string          `json:"event"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := ws.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	var payload map[string]any
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
	}
	return ev.Event, payload
}

func waitForUsers(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.UserCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("user count stuck at %d, want %d", hub.UserCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestJoinAnnouncesUserCount(t *testing.T) {
	hub, srv := newHubServer(t)

	ws := dial(t, srv, 1)
	waitForUsers(t, hub, 1)

	event, payload := readEvent(t, ws)
	if event != "UpdateUserCount" {
		t.Fatalf("event=%q want UpdateUserCount", event)
	}
	if payload["count"] != float64(1) {
		t.Fatalf("count=%v want 1", payload["count"])
	}
}

func TestBroadcastReachesAllUsers(t *testing.T) {
	hub, srv := newHubServer(t)

	ws1 := dial(t, srv, 1)
	ws2 := dial(t, srv, 2)
	waitForUsers(t, hub, 2)

	// Drain the connect-time counter updates.
	readEvent(t, ws1)
	readEvent(t, ws2)
	if event, _ := readEvent(t, ws1); event != "UpdateUserCount" {
		t.Fatalf("expected second counter update on ws1, got %q", event)
	}

	hub.Broadcast("NewHighScore", map[string]any{"username": "Player2", "new_score": 160})

	for _, ws := range []*websocket.Conn{ws1, ws2} {
		event, payload := readEvent(t, ws)
		if event != "NewHighScore" {
			t.Fatalf("event=%q want NewHighScore", event)
		}
		if payload["username"] != "Player2" || payload["new_score"] != float64(160) {
			t.Fatalf("unexpected payload: %v", payload)
		}
	}
}

func TestSendToUserIsTargeted(t *testing.T) {
	hub, srv := newHubServer(t)

	ws1 := dial(t, srv, 1)
	ws2 := dial(t, srv, 2)
	waitForUsers(t, hub, 2)

	readEvent(t, ws1)
	readEvent(t, ws2)
	readEvent(t, ws1)

	if !hub.SendToUser(2, "ScoreUpdate", map[string]any{"count": 42}) {
		t.Fatalf("delivery to a connected user must succeed")
	}

	event, payload := readEvent(t, ws2)
	if event != "ScoreUpdate" || payload["count"] != float64(42) {
		t.Fatalf("unexpected targeted event: %q %v", event, payload)
	}

	// The other user sees nothing.
	ws1.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	var discard any
	if err := ws1.ReadJSON(&discard); err == nil {
		t.Fatalf("user 1 received a message meant for user 2: %v", discard)
	}
}

func TestSendToDisconnectedUser(t *testing.T) {
	hub, _ := newHubServer(t)
	if hub.SendToUser(99, "ScoreUpdate", nil) {
		t.Fatalf("delivery to an absent user must report false")
	}
}

func TestConnectedUserIDs(t *testing.T) {
	hub, srv := newHubServer(t)

	dial(t, srv, 5)
	dial(t, srv, 9)
	// Two connections for the same user count once.
	dial(t, srv, 5)
	waitForUsers(t, hub, 2)

	ids := hub.ConnectedUserIDs()
	if len(ids) != 2 {
		t.Fatalf("ids=%v want two distinct users", ids)
	}
	seen := map[int64]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen[5] || !seen[9] {
		t.Fatalf("ids=%v want 5 and 9", ids)
	}
}

func TestDisconnectUpdatesCount(t *testing.T) {
	hub, srv := newHubServer(t)

	ws := dial(t, srv, 1)
	waitForUsers(t, hub, 1)
	ws.Close()
	waitForUsers(t, hub, 0)
}
