package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rtxbroker/fixcore/internal/auth"
	"github.com/rtxbroker/fixcore/logging"
)

func TestHubBroadcastsOrderChangedToConnectedClient(t *testing.T) {
	issuer := auth.NewTokenIssuer([]byte("test-secret"), time.Hour)
	hub := NewHub(issuer, logging.NewLogger(logging.INFO))

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWs))
	defer server.Close()

	token, err := issuer.Issue("operator")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		n := len(hub.clients)
		hub.mu.RUnlock()
		if n == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.OnOrderChanged(42)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var evt orderChangedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if evt.Type != "order_changed" || evt.OrderInternalID != 42 {
		t.Fatalf("unexpected event: %+v", evt)
	}
}
