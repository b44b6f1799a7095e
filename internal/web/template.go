package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/greenhouse/internal/status"
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
	"stateOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"stateClass": func(s string) string {
		switch s {
		case "ON", "OPEN":
			return "on"
		case "OFF", "CLOSED":
			return "off"
		}
		return "unknown"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Greenhouse</title>
<style>
:root { --leaf: #2e7d32; --muted: #777; --warn: #e65100; --danger: #c62828; }
body { font: 14px/1.4 system-ui, sans-serif; max-width: 760px; margin: 1.5em auto; padding: 0 1em; color: #222; }
header { display: flex; align-items: center; gap: .5em; border-bottom: 2px solid var(--leaf); }
header h1 { font-size: 1.3em; margin: .4em 0; color: var(--leaf); }
.grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(230px, 1fr)); gap: 1em; margin-top: 1em; }
section { border: 1px solid #ddd; border-radius: 6px; padding: .4em .8em; }
section h2 { font-size: 1em; margin: .3em 0 .5em; text-transform: uppercase; letter-spacing: .05em; color: var(--muted); }
dl { display: grid; grid-template-columns: auto 1fr; gap: .2em 1em; margin: 0 0 .4em; }
dt { color: var(--muted); }
dd { margin: 0; font-family: monospace; }
.on { color: var(--leaf); font-weight: bold; }
.off { color: var(--muted); }
.unknown { color: var(--warn); }
.banner { color: #fff; background: var(--danger); font-weight: bold; padding: .5em .8em; border-radius: 6px; margin: 1em 0 0; }
.hidden { display: none; }
#live { width: 9px; height: 9px; border-radius: 50%; background: var(--warn); }
#live.ok { background: var(--leaf); }
#live.err { background: var(--danger); }
footer { margin: 1.5em 0; color: var(--muted); }
</style>
</head>
<body>
<header><h1>Greenhouse</h1>{{if .Config.WSBroker}}<span id="live" title="connecting"></span>{{end}}</header>
<p id="fire" class="banner{{if not .FireAlarm}} hidden{{end}}">FIRE ALARM</p>
{{if .SensorFatal}}<p class="banner">SENSOR ERROR: {{.LastFault}}</p>{{end}}

<div class="grid">
<section>
<h2>Actuators</h2>
<dl>
{{with stateOrUnknown (printf "%s" .Actuators.Vent)}}<dt>Vent</dt><dd id="vent" class="{{stateClass .}}">{{.}}</dd>{{end}}
{{with stateOrUnknown (printf "%s" .Actuators.Sprinklers)}}<dt>Sprinklers</dt><dd id="sprinklers" class="{{stateClass .}}">{{.}}</dd>{{end}}
{{with stateOrUnknown (printf "%s" .Actuators.Buzzer)}}<dt>Buzzer</dt><dd id="buzzer" class="{{stateClass .}}">{{.}}</dd>{{end}}
<dt>Ready</dt><dd>{{if .Ready}}yes{{else}}no{{end}}</dd>
</dl>
</section>

<section>
<h2>Climate</h2>
<dl>
{{if .Reading}}<dt>Temperature</dt><dd id="temperature">{{printf "%.1f" .Reading.TemperatureF}} &deg;F</dd>
<dt>Humidity</dt><dd id="humidity">{{printf "%.1f" .Reading.HumidityPct}} %</dd>
<dt>Pressure</dt><dd id="pressure">{{printf "%.1f" .Reading.PressureHPa}} hPa</dd>
{{else}}<dt>Reading</dt><dd class="unknown">none yet</dd>{{end}}
<dt>Sensor faults</dt><dd>{{.SensorFaults}}{{if .LastFault}} ({{.LastFault}}){{end}}</dd>
<dt>Clock</dt><dd id="clock">{{.Clock.String}}</dd>
</dl>
</section>

<section>
<h2>Preferences</h2>
<dl>
<dt>Temperature</dt><dd id="pref-temperature">{{.Preferences.Temperature.Low}} - {{.Preferences.Temperature.High}} &deg;F</dd>
<dt>Humidity</dt><dd id="pref-humidity">{{.Preferences.Humidity.Low}}% - {{.Preferences.Humidity.High}}%</dd>
<dt>Watering</dt><dd id="pref-watering">{{.Preferences.Watering.String}}</dd>
</dl>
</section>

<section>
<h2>Event counts</h2>
<dl>
<dt>Vent opened</dt><dd id="count-vent_open">{{.Counts.VentOpen}}</dd>
<dt>Vent closed</dt><dd id="count-vent_closed">{{.Counts.VentClosed}}</dd>
<dt>Sprinklers on</dt><dd id="count-sprinklers_on">{{.Counts.SprinklersOn}}</dd>
<dt>Sprinklers off</dt><dd id="count-sprinklers_off">{{.Counts.SprinklersOff}}</dd>
<dt>Fire alarms</dt><dd id="count-fire_alarm">{{.Counts.FireAlarms}}</dd>
</dl>
</section>

<section>
<h2>Connectivity</h2>
<dl>
<dt>MQTT</dt><dd class="{{if .MQTTConnected}}on{{else}}off{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</dd>
<dt>Broker</dt><dd>{{.Config.Broker}}</dd>
{{if .Config.Kafka}}<dt>Kafka</dt><dd>{{.Config.Kafka}}</dd>{{end}}
{{if .Network}}<dt>Network</dt><dd>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</dd>
<dt>IP</dt><dd>{{.Network.IP}}</dd>{{end}}
</dl>
</section>

<section>
<h2>System</h2>
<dl>
<dt>Uptime</dt><dd>{{uptime .Uptime}}</dd>
<dt>Started</dt><dd>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</dd>
<dt>Last event</dt><dd id="last-event">{{if .LastEvent}}{{.LastEvent}}{{else}}none{{end}}</dd>
<dt>Base tick</dt><dd>{{.Config.BaseTickMs}}ms x {{.Config.PollTicks}}</dd>
<dt>Heartbeat</dt><dd>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</dd>
<dt>HTTP</dt><dd>{{.Config.HTTPAddr}}</dd>
</dl>
</section>
</div>

<footer><a href="/index.json">JSON</a>{{if .Config.Journal}} &middot; <a href="/events.json">Events</a>{{end}}</footer>
{{if .Config.WSBroker}}
<script src="https://unpkg.com/mqtt/dist/mqtt.min.js"></script>
<script>
(function() {
  var live = document.getElementById("live");
  var counters = { VENT_OPEN: "vent_open", VENT_CLOSED: "vent_closed", SPRINKLERS_ON: "sprinklers_on", SPRINKLERS_OFF: "sprinklers_off", FIRE_ALARM: "fire_alarm" };
  var $ = function(id) { return document.getElementById(id); };

  function text(id, v) { var el = $(id); if (el && v !== undefined) el.textContent = v; }
  function state(id, v) {
    var el = $(id);
    if (!el || !v) return;
    el.textContent = v;
    el.className = /^(ON|OPEN)$/.test(v) ? "on" : /^(OFF|CLOSED)$/.test(v) ? "off" : "unknown";
  }
  function link(cls, title) { live.className = cls; live.title = title; }
  function bump(ev) {
    var el = counters[ev] && $("count-" + counters[ev]);
    if (el) el.textContent = (parseInt(el.textContent, 10) || 0) + 1;
  }

  var client = mqtt.connect("{{.Config.WSBroker}}", { reconnectPeriod: 5000 });
  client.on("connect", function() { link("ok", "live"); client.subscribe("{{.Config.Topic}}"); });
  client.on("reconnect", function() { link("", "reconnecting"); });
  client.on("offline", function() { link("err", "offline"); });
  client.on("error", function() { link("err", "error"); });

  client.on("message", function(_, payload) {
    var g;
    try { g = JSON.parse(payload.toString()).greenhouse; } catch (e) { return; }
    if (!g) return;
    ["vent", "sprinklers", "buzzer"].forEach(function(k) { state(k, g[k]); });
    text("clock", g.clock);
    text("last-event", g.event);
    bump(g.event);
    if (g.event === "FIRE_ALARM") $("fire").classList.remove("hidden");
    if (g.event === "FIRE_CLEARED") $("fire").classList.add("hidden");
    if (g.reading) {
      text("temperature", g.reading.temperature_f.toFixed(1) + " \u00b0F");
      text("humidity", g.reading.humidity_pct.toFixed(1) + " %");
      text("pressure", g.reading.pressure_hpa.toFixed(1) + " hPa");
    }
    var p = g.preferences;
    if (p) {
      text("pref-temperature", p.temperature_f.low + " - " + p.temperature_f.high + " \u00b0F");
      text("pref-humidity", p.humidity_pct.low + "% - " + p.humidity_pct.high + "%");
      text("pref-watering", p.watering ? p.watering.start + " - " + p.watering.end : "None");
    }
  });
})();
</script>
{{end}}
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
