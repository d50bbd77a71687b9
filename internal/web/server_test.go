package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/touch-keys/internal/capsense"
	"github.com/sweeney/touch-keys/internal/keys"
	"github.com/sweeney/touch-keys/internal/status"
)

func newTestServer(t *testing.T, recal chan<- int) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Name:        "hall",
		Keys:        keys.DefaultKeys,
		TickMs:      4,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":80",
		Params:      capsense.DefaultParams(),
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr, recal)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func testChannels() []capsense.ChannelInfo {
	return []capsense.ChannelInfo{
		{Index: 0, Pin: 8, Low: 100, High: 104, Pressed: true, Calibrations: 1},
		{Index: 1, Pin: 9, Low: 0, High: 3, Calibrations: 1, Pinned: true},
	}
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t, nil)
	tr.Update(testChannels(), 1, keys.Counts{Down: 5, Up: 4})
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

	sj := getJSON(t, ts.URL+"/index.json")
	if !sj.Status.Ready {
		t.Error("expected Ready=true")
	}
	if !sj.Status.MQTT.Connected || sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("unexpected mqtt: %+v", sj.Status.MQTT)
	}
	if sj.Status.Counts.KeyDown != 5 || sj.Status.Counts.KeyUp != 4 {
		t.Errorf("unexpected counts: %+v", sj.Status.Counts)
	}
	if len(sj.Status.Channels) != 2 || sj.Status.Channels[0].Key != "up" {
		t.Errorf("unexpected channels: %+v", sj.Status.Channels)
	}
	if sj.Status.Config.Name != "hall" || sj.Status.Config.TickMs != 4 {
		t.Errorf("unexpected config: %+v", sj.Status.Config)
	}
}

func TestJSONNotReadyBeforeFirstTick(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Ready {
		t.Error("expected Ready=false before first tick")
	}
	if len(sj.Status.Channels) != 0 {
		t.Errorf("expected no channels, got %d", len(sj.Status.Channels))
	}
}

func TestHTMLEndpoint(t *testing.T) {
	ts, tr := newTestServer(t, nil)
	tr.Update(testChannels(), 1, keys.Counts{})

	for _, path := range []string{"/", "/index.html"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + path)
			if err != nil {
				t.Fatalf("GET %s: %v", path, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != 200 {
				t.Errorf("status: got %d, want 200", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type: got %q, want text/html", ct)
			}

			body, _ := io.ReadAll(resp.Body)
			for _, want := range []string{"Touch Keys (hall)", "<td>up</td>", "PRESSED", "<td>down</td>", `class="warn"`} {
				if !strings.Contains(string(body), want) {
					t.Errorf("expected body to contain %q", want)
				}
			}
		})
	}
}

func TestHTMLNoPads(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "no pads sampled yet") {
		t.Error("expected empty pad table message")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestRecalibrate(t *testing.T) {
	recal := make(chan int, 1)
	ts, tr := newTestServer(t, recal)
	tr.Update(testChannels(), 0, keys.Counts{})

	tests := []struct {
		name   string
		method string
		query  string
		want   int
	}{
		{"wrong method", http.MethodGet, "?channel=1", http.StatusMethodNotAllowed},
		{"missing channel", http.MethodPost, "", http.StatusBadRequest},
		{"out of range", http.MethodPost, "?channel=2", http.StatusBadRequest},
		{"negative", http.MethodPost, "?channel=-1", http.StatusBadRequest},
		{"accepted", http.MethodPost, "?channel=1", http.StatusAccepted},
		{"queue full", http.MethodPost, "?channel=0", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, ts.URL+"/recalibrate"+tt.query, nil)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status: got %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}

	select {
	case ch := <-recal:
		if ch != 1 {
			t.Errorf("queued channel: got %d, want 1", ch)
		}
	default:
		t.Error("expected a queued recalibration")
	}
}

func TestRecalibrateDisabled(t *testing.T) {
	ts, tr := newTestServer(t, nil)
	tr.Update(testChannels(), 0, keys.Counts{})

	resp, err := http.Post(ts.URL+"/recalibrate?channel=0", "text/plain", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t, nil)

	if getJSON(t, ts.URL+"/index.json").Status.Ready {
		t.Error("expected Ready=false initially")
	}

	tr.Update(testChannels(), 1, keys.Counts{Down: 1})
	tr.SetMQTTConnected(true)

	sj := getJSON(t, ts.URL+"/index.json")
	if !sj.Status.Ready {
		t.Error("expected Ready=true after update")
	}
	if len(sj.Status.Pressed) != 1 || sj.Status.Pressed[0] != "up" {
		t.Errorf("pressed: got %v", sj.Status.Pressed)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}
