package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/touch-keys/internal/capsense"
	"github.com/sweeney/touch-keys/internal/status"
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
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Touch Keys{{if .Config.Name}} ({{.Config.Name}}){{end}}</title>
<style>
body { font-family: monospace; max-width: 800px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.warn { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Touch Keys{{if .Config.Name}} ({{.Config.Name}}){{end}}</h1>

<h2>Pads</h2>
<table>
<tr><th>Key</th><th>Pin</th><th>State</th><th>Low</th><th>High</th><th>Low sum</th><th>High sum</th><th>Gray</th><th>Calibrations</th></tr>
{{range .Keys}}<tr>
<td>{{.Name}}</td>
<td>{{.Pin}}</td>
<td class="{{if .Pressed}}on{{else}}off{{end}}">{{if .Pressed}}PRESSED{{else}}released{{end}}</td>
<td{{if .Degenerate}} class="warn"{{end}}>{{.Low}}</td>
<td{{if .Degenerate}} class="warn"{{end}}>{{.High}}</td>
<td>{{.LowSum}}</td>
<td>{{.HighSum}}</td>
<td>{{.GrayZoneTicks}}</td>
<td>{{.Calibrations}}{{if .NeedsCalibration}} (pending){{end}}</td>
</tr>
{{else}}<tr><td colspan="9">no pads sampled yet</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Config.NATSURL}}<tr><th>NATS</th><td>{{.Config.NATSURL}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>KEY_DOWN</th><td>{{.Counts.Down}}</td></tr>
<tr><th>KEY_UP</th><td>{{.Counts.Up}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Ticks</th><td>{{.Ticks}}</td></tr>
<tr><th>Read errors</th><td>{{.SourceErrors}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Samples</th><td>{{.Config.Params.SamplesNum}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

type keyRow struct {
	Name string
	capsense.ChannelInfo
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	rows := make([]keyRow, len(snap.Channels))
	for i, ch := range snap.Channels {
		rows[i] = keyRow{Name: snap.KeyName(ch.Index), ChannelInfo: ch}
	}

	// Snapshot has Uptime() and Ready() methods but the template needs fields.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Ready  bool
		Keys   []keyRow
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Ready:    snap.Ready(),
		Keys:     rows,
	}
	indexTmpl.Execute(w, data)
}
