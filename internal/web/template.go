package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/ergo-tacho/internal/logic"
	"github.com/sweeney/ergo-tacho/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"elapsed": logic.FormatElapsed,
	"km": func(metres float64) string {
		return fmt.Sprintf("%.2f", metres/1000)
	},
	"fixed": func(prec int, v float64) string {
		return fmt.Sprintf("%.*f", prec, v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="1">
<title>Ergo Tacho</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.big { font-size: 2.4em; font-weight: bold; }
.unit { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Ergo Tacho</h1>

<table>
<tr><th>Speed</th><td><span id="speed" class="big">{{fixed 1 .Metrics.Speed}}</span> <span class="unit">kph</span></td></tr>
<tr><th>Cadence</th><td><span id="rpm" class="big">{{fixed 0 .Metrics.RPM}}</span> <span class="unit">rpm</span></td></tr>
<tr><th>Distance</th><td><span id="distance" class="big">{{km .Metrics.Distance}}</span> <span class="unit">km</span></td></tr>
<tr><th>Elapsed</th><td><span id="elapsed" class="big">{{elapsed .Metrics.Elapsed}}</span></td></tr>
</table>

{{if .Config.StepCount}}<h2>Course</h2>
<table>
<tr><th>Laps</th><td id="laps">{{.Lap.Laps}}</td></tr>
<tr><th>Next waypoint</th><td id="waypoint">{{.Lap.Pointer}} / {{.Config.StepCount}}</td></tr>
<tr><th>Lap length</th><td>{{km .Config.LapDistance}} km ({{.Config.Curve}})</td></tr>
</table>
{{end}}
<h2>Session</h2>
<table>
<tr><th>ID</th><td>{{.SessionID}}</td></tr>
<tr><th>Started</th><td>{{.SessionStart.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Raw count</th><td>{{.Metrics.Count}}</td></tr>
<tr><th>Samples</th><td>{{.Counts.Samples}}</td></tr>
<tr><th>Skipped</th><td>{{.Counts.Skipped}}</td></tr>
<tr><th>Resets</th><td>{{.Counts.Resets}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Source</th><td>{{.Config.Source}} {{.Config.Device}}</td></tr>
<tr><th>Calibration</th><td>{{.Config.SampleRateHz}} Hz, {{.Config.RevsPerMetre}} revs/m, {{.Config.HistorySize}} samples</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}{{if .Config.Broker}} ({{.Config.Broker}}){{end}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
