package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/ergo-tacho/internal/logic"
	"github.com/sweeney/ergo-tacho/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Source:       "serial",
		Device:       "/dev/ttyUSB1",
		SampleRateHz: 4,
		RevsPerMetre: 5,
		SpeedPerRPM:  12.0 / 900.0,
		HistorySize:  16,
		Curve:        "gerono",
		StepCount:    200,
		LapDistance:  6097.3,
		HeartbeatMs:  900000,
		Broker:       "tcp://192.168.1.200:1883",
		HTTPAddr:     ":80",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
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

func getBody(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(logic.Metrics{Count: 5000, RPM: 240, Speed: 3.2, Distance: 1000, Elapsed: 90 * time.Second},
		logic.LapState{Pointer: 33, Laps: 1}, logic.Counts{Samples: 360, Skipped: 2})
	tr.SetSession("f00d", time.Date(2026, 1, 1, 0, 0, 10, 0, time.UTC))
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
	if sj.Status.RPM != 240 {
		t.Errorf("RPM: got %v, want 240", sj.Status.RPM)
	}
	if sj.Status.Elapsed != "00:01:30" {
		t.Errorf("Elapsed: got %q, want 00:01:30", sj.Status.Elapsed)
	}
	if sj.Status.Lap.Laps != 1 || sj.Status.Lap.Waypoint != 33 {
		t.Errorf("Lap: got %+v", sj.Status.Lap)
	}
	if sj.Status.Session != "f00d" {
		t.Errorf("Session: got %q", sj.Status.Session)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Config.Device != "/dev/ttyUSB1" {
		t.Errorf("Config.Device: got %q", sj.Status.Config.Device)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(logic.Metrics{RPM: 240, Speed: 3.2, Distance: 1234, Elapsed: 3725 * time.Second},
		logic.LapState{Pointer: 12, Laps: 4}, logic.Counts{})

	resp, body := getBody(t, ts.URL+"/")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	for _, want := range []string{
		`<meta http-equiv="refresh" content="1">`,
		`<span id="speed" class="big">3.2</span>`,
		`<span id="rpm" class="big">240</span>`,
		`<span id="distance" class="big">1.23</span>`,
		`<span id="elapsed" class="big">01:02:05</span>`,
		`<td id="laps">4</td>`,
		`<td id="waypoint">12 / 200</td>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestHTMLHidesCourseWhenDisabled(t *testing.T) {
	tr := status.NewTracker(time.Now(), status.Config{})
	ts := httptest.NewServer(New(":0", tr).Handler())
	t.Cleanup(ts.Close)

	_, body := getBody(t, ts.URL+"/")
	if strings.Contains(body, `id="laps"`) {
		t.Error("course section should be hidden when lap tracking is disabled")
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := getBody(t, ts.URL+"/index.html")
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := getBody(t, ts.URL+"/nonexistent")
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	sj1 := getJSON(t, ts.URL+"/index.json")
	if sj1.Status.Counts.Samples != 0 {
		t.Errorf("expected no samples initially, got %d", sj1.Status.Counts.Samples)
	}

	tr.Update(logic.Metrics{Distance: 42}, logic.LapState{}, logic.Counts{Samples: 1, Resets: 1})
	tr.SetMQTTConnected(true)

	sj2 := getJSON(t, ts.URL+"/index.json")
	if sj2.Status.Counts.Samples != 1 || sj2.Status.Counts.Resets != 1 {
		t.Errorf("Counts: got %+v", sj2.Status.Counts)
	}
	if sj2.Status.DistanceM != 42 {
		t.Errorf("DistanceM: got %v, want 42", sj2.Status.DistanceM)
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}
