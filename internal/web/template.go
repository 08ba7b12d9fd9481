package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/emshotton/knobz/internal/knobs"
	"github.com/emshotton/knobz/internal/status"
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
	"pct": func(k status.Knob) int {
		max := k.Range.Max()
		if max == 0 {
			return 0
		}
		return int(uint32(k.Value) * 100 / uint32(max))
	},
	"channel": func(i int) string {
		return knobs.Channel(i).String()
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>knobz</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 30%; }
.bar { background: #eee; height: 8px; width: 120px; display: inline-block; }
.bar span { background: #4a7; height: 8px; display: block; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>knobz {{.Config.Address}}<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Knobs</h2>
<table>
<tr><th>Channel</th><th>Value</th><th>Range</th><th>Changes</th></tr>
{{range $i, $k := .Knobs}}<tr><td>{{channel $i}}{{if $k.Inverted}} (inv){{end}}</td><td><span id="v{{$i}}">{{$k.Value}}</span> <span class="bar"><span id="b{{$i}}" data-max="{{$k.Range.Max}}" style="width: {{pct $k}}%"></span></span></td><td>{{$k.Range}}</td><td id="c{{$i}}">{{$k.Changes}}</td></tr>
{{end}}</table>

<h2>Controller</h2>
<table>
<tr><th>Samples</th><td>{{.Stats.Samples}}</td></tr>
<tr><th>Changes</th><td>{{.Stats.Changes}}</td></tr>
<tr><th>Read errors</th><td>{{.Stats.ReadErrors}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}} ({{.Config.Topic}}){{else}}none{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Bus</th><td>{{.Config.Bus}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickUs}}us</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var names = ["A0", "A1", "A2", "A3"];

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function show(i, value) {
    document.getElementById("v" + i).textContent = value;
    var bar = document.getElementById("b" + i);
    var max = parseInt(bar.getAttribute("data-max"), 10) || 1;
    bar.style.width = Math.min(100, Math.floor(value * 100 / max)) + "%";
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(e) {
      try {
        var msg = JSON.parse(e.data);
        if (msg.change) {
          var i = names.indexOf(msg.change.channel);
          if (i >= 0) {
            show(i, msg.change.value);
            var c = document.getElementById("c" + i);
            c.textContent = parseInt(c.textContent, 10) + 1;
          }
        } else if (msg.status) {
          msg.status.knobs.forEach(function(k, i) { show(i, k.value); });
        }
      } catch (err) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render index: %v", err)
	}
}
