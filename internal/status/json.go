package status

import (
	"encoding/json"
	"time"

	"github.com/emshotton/knobz/internal/knobs"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	LastChange    string       `json:"last_change,omitempty"`
	Knobs         []KnobJSON   `json:"knobs"`
	Stats         StatsJSON    `json:"stats"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// KnobJSON is the JSON representation of one channel.
type KnobJSON struct {
	Channel  string `json:"channel"`
	Value    uint16 `json:"value"`
	Range    string `json:"range"`
	Max      uint16 `json:"max"`
	Inverted bool   `json:"inverted"`
	Changes  int    `json:"changes"`
}

// StatsJSON is the JSON representation of controller counters.
type StatsJSON struct {
	Samples    uint32 `json:"samples"`
	Changes    uint32 `json:"changes"`
	ReadErrors uint32 `json:"read_errors"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Bus         string `json:"bus"`
	Address     string `json:"address"`
	TickUs      int64  `json:"tick_us"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	Topic       string `json:"topic"`
	HTTPAddr    string `json:"http_addr"`
}

// ChangeJSON is the envelope streamed to live clients for each change.
type ChangeJSON struct {
	Change ChangeInner `json:"change"`
}

// ChangeInner contains one change.
type ChangeInner struct {
	Timestamp string `json:"timestamp"`
	Channel   string `json:"channel"`
	Value     uint16 `json:"value"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Knobs:         make([]KnobJSON, 0, len(snap.Knobs)),
		Stats: StatsJSON{
			Samples:    snap.Stats.Samples,
			Changes:    snap.Stats.Changes,
			ReadErrors: snap.Stats.ReadErrors,
		},
		MQTT: MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			Bus:         snap.Config.Bus,
			Address:     snap.Config.Address,
			TickUs:      snap.Config.TickUs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			Topic:       snap.Config.Topic,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
	if !snap.LastChange.IsZero() {
		inner.LastChange = snap.LastChange.UTC().Format(time.RFC3339)
	}
	for i, k := range snap.Knobs {
		inner.Knobs = append(inner.Knobs, KnobJSON{
			Channel:  knobs.Channel(i).String(),
			Value:    k.Value,
			Range:    k.Range.String(),
			Max:      k.Range.Max(),
			Inverted: k.Inverted,
			Changes:  k.Changes,
		})
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

// FormatChange returns the JSON message sent to live clients.
func FormatChange(c Change) []byte {
	data, _ := json.Marshal(ChangeJSON{Change: ChangeInner{
		Timestamp: c.Timestamp.UTC().Format(time.RFC3339Nano),
		Channel:   c.Channel.String(),
		Value:     c.Value,
	}})
	return data
}
