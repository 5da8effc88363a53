package notification

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newConnPair(t *testing.T, hub *Hub, userID uint) (*websocket.Conn, *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	serverSide := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		hub.Register(userID, conn)
		serverSide <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	select {
	case server := <-serverSide:
		return server, client
	case <-time.After(2 * time.Second):
		t.Fatal("server side connection never arrived")
		return nil, nil
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHubNotifyDeliversToAllUserConnections(t *testing.T) {
	hub := NewHub(testLogger())
	_, clientA := newConnPair(t, hub, 1)
	_, clientB := newConnPair(t, hub, 1)
	_, otherClient := newConnPair(t, hub, 2)

	if got := hub.ConnectionCount(1); got != 2 {
		t.Fatalf("expected 2 connections for user 1, got %d", got)
	}

	hub.Notify(context.Background(), 1, Event{Type: "group_invite", GroupID: 7})

	for _, client := range []*websocket.Conn{clientA, clientB} {
		_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
		var ev Event
		if err := client.ReadJSON(&ev); err != nil {
			t.Fatalf("read event: %v", err)
		}
		if ev.Type != "group_invite" || ev.GroupID != 7 {
			t.Fatalf("unexpected event: %+v", ev)
		}
		if ev.SentAt.IsZero() {
			t.Fatal("event must carry a send timestamp")
		}
	}

	// The other user must not receive anything.
	_ = otherClient.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := otherClient.ReadMessage(); err == nil {
		t.Fatal("user 2 must not receive user 1's event")
	}
}

func TestHubNotifyDropsDeadConnections(t *testing.T) {
	hub := NewHub(testLogger())
	server, client := newConnPair(t, hub, 1)

	_ = client.Close()
	_ = server.Close()

	hub.Notify(context.Background(), 1, Event{Type: "group_invite"})
	if got := hub.ConnectionCount(1); got != 0 {
		t.Fatalf("expected dead connection to be dropped, got %d", got)
	}
}

func TestHubNotifySerializesConcurrentWrites(t *testing.T) {
	hub := NewHub(testLogger())
	_, client := newConnPair(t, hub, 1)

	const writers = 8
	var wg sync.WaitGroup
	wg.Add(writers)
	for range writers {
		go func() {
			defer wg.Done()
			hub.Notify(context.Background(), 1, Event{Type: "group_invite", GroupID: 7})
		}()
	}
	wg.Wait()

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := range writers {
		var ev Event
		if err := client.ReadJSON(&ev); err != nil {
			t.Fatalf("read event %d: %v", i, err)
		}
		if ev.Type != "group_invite" || ev.GroupID != 7 {
			t.Fatalf("unexpected event: %+v", ev)
		}
	}
	if got := hub.ConnectionCount(1); got != 1 {
		t.Fatalf("connection must survive concurrent notifies, got %d", got)
	}
}

func TestHubUnregisterRemovesConnection(t *testing.T) {
	hub := NewHub(testLogger())
	server, _ := newConnPair(t, hub, 1)

	hub.Unregister(1, server)
	if got := hub.ConnectionCount(1); got != 0 {
		t.Fatalf("expected 0 connections after unregister, got %d", got)
	}
	// Unregister is idempotent.
	hub.Unregister(1, server)
}

func TestHubNotifyAllFansOut(t *testing.T) {
	hub := NewHub(testLogger())
	_, clientA := newConnPair(t, hub, 1)
	_, clientB := newConnPair(t, hub, 2)

	hub.NotifyAll(context.Background(), []uint{1, 2}, Event{Type: "car_parked", GroupID: 3})

	for _, client := range []*websocket.Conn{clientA, clientB} {
		_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
		var ev Event
		if err := client.ReadJSON(&ev); err != nil {
			t.Fatalf("read event: %v", err)
		}
		if ev.Type != "car_parked" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	}
}
