package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/emshotton/knobz/internal/knobs"
	"github.com/emshotton/knobz/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Bus:         "/dev/i2c-1",
		Address:     "0x48",
		TickUs:      250,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		Topic:       "knobz",
		HTTPAddr:    ":80",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, srv, tr
}

func getStatus(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, _, tr := newTestServer(t)
	tr.SetChannel(knobs.A1, knobs.Within255, true)
	tr.RecordChange(time.Now(), knobs.Change{Channel: knobs.A1, Value: 200})
	tr.SetStats(knobs.Stats{Samples: 10, Changes: 1})
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	sj := getStatus(t, ts.URL)
	k := sj.Status.Knobs[1]
	if k.Value != 200 || k.Range != "0-255" || !k.Inverted || k.Changes != 1 {
		t.Errorf("A1: got %+v", k)
	}
	if sj.Status.Stats.Samples != 10 {
		t.Errorf("Stats.Samples: got %d, want 10", sj.Status.Stats.Samples)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Config.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("Config.Broker: got %q", sj.Status.Config.Broker)
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, _, tr := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"})

	sj := getStatus(t, ts.URL)
	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpoint(t *testing.T) {
	ts, _, tr := newTestServer(t)
	tr.SetChannel(knobs.A3, knobs.Full, false)
	tr.RecordChange(time.Now(), knobs.Change{Channel: knobs.A3, Value: 13213})

	for _, path := range []string{"/", "/index.html"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != 200 {
			t.Errorf("%s status: got %d, want 200", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("%s Content-Type: got %q, want text/html", path, ct)
		}
		for _, want := range []string{"A3", "13213", "full", "width: 49%"} {
			if !strings.Contains(string(body), want) {
				t.Errorf("%s: body missing %q", path, want)
			}
		}
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func waitSubscribers(t *testing.T, tr *status.Tracker, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for tr.Subscribers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers: got %d, want %d", tr.Subscribers(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketStreamsChanges(t *testing.T) {
	ts, _, tr := newTestServer(t)
	tr.RecordChange(time.Now(), knobs.Change{Channel: knobs.A0, Value: 11})

	conn := dialWS(t, ts)

	var first status.StatusJSON
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial status: %v", err)
	}
	if first.Status.Knobs[0].Value != 11 {
		t.Errorf("initial A0: got %d, want 11", first.Status.Knobs[0].Value)
	}

	waitSubscribers(t, tr, 1)
	tr.RecordChange(time.Now(), knobs.Change{Channel: knobs.A2, Value: 640})

	var msg status.ChangeJSON
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read change: %v", err)
	}
	if msg.Change.Channel != "A2" || msg.Change.Value != 640 {
		t.Errorf("change: got %+v", msg.Change)
	}
}

func TestWebSocketUnsubscribesOnClose(t *testing.T) {
	ts, _, tr := newTestServer(t)
	conn := dialWS(t, ts)
	waitSubscribers(t, tr, 1)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	waitSubscribers(t, tr, 0)
}

func TestShutdownClosesWebSockets(t *testing.T) {
	ts, srv, tr := newTestServer(t)
	conn := dialWS(t, ts)
	waitSubscribers(t, tr, 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	srv.Shutdown(ctx)

	// Drain the initial status, then expect the connection to end.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	waitSubscribers(t, tr, 0)
}
