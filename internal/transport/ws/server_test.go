package ws

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"gridstead/internal/protocol"
	"gridstead/internal/sim/catalogs"
	"gridstead/internal/sim/tuning"
	"gridstead/internal/sim/world"
)

func startTestServer(t *testing.T) (*world.World, string) {
	t.Helper()
	c, err := catalogs.Load("../../../configs", "../../../schemas")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	w, err := world.New(world.Config{
		ID:         "test",
		Seed:       7,
		Width:      64,
		Height:     64,
		TickRateHz: 50,
		Storage:    tuning.StorageDefaults{DefaultInputCapacity: 50, DefaultOutputCapacity: 50},
	}, c)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = w.Run(ctx) }()

	srv := httptest.NewServer(NewServer(w, log.New(io.Discard, "", 0)).Handler())
	t.Cleanup(srv.Close)

	return w, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitForClients(t *testing.T, w *world.World, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if w.Metrics().Clients == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("clients = %d, want %d", w.Metrics().Clients, want)
}

func TestServer_HandshakeDeliversWelcomeCatalogsAndState(t *testing.T) {
	w, url := startTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "tester",
	}
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("write hello: %v", err)
	}

	var welcome protocol.WelcomeMsg
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	if welcome.Type != protocol.TypeWelcome || welcome.ClientID == "" || welcome.ResumeToken == "" {
		t.Fatalf("welcome = %+v", welcome)
	}

	for i := 0; i < 3; i++ {
		var cm protocol.CatalogMsg
		if err := conn.ReadJSON(&cm); err != nil {
			t.Fatalf("read catalog %d: %v", i, err)
		}
		if cm.Type != protocol.TypeCatalog || cm.Digest == "" {
			t.Fatalf("catalog %d = %+v", i, cm)
		}
	}

	var state protocol.StateMsg
	if err := conn.ReadJSON(&state); err != nil {
		t.Fatalf("read state: %v", err)
	}
	if state.Type != protocol.TypeState || state.Digest == "" {
		t.Fatalf("state = %+v", state)
	}

	waitForClients(t, w, 1)
}

func TestServer_DroppedConnectionLeavesWorld(t *testing.T) {
	w, url := startTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "tester",
	}
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	// Drop the connection before reading anything. Whether the server fails
	// mid-handshake or in the reader loop, the session must not stay
	// subscribed to broadcasts.
	_ = conn.Close()

	waitForClients(t, w, 0)
}

func TestServer_NonHelloHandshakeIsRejectedWithoutJoining(t *testing.T) {
	w, url := startTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	cmd := protocol.CmdMsg{Type: protocol.TypeCmd, ProtocolVersion: protocol.Version}
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatalf("write: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the server to close the connection")
	}

	time.Sleep(100 * time.Millisecond)
	if got := w.Metrics().Clients; got != 0 {
		t.Fatalf("clients = %d after rejected handshake", got)
	}
}
