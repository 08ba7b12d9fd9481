// Command knobz polls four potentiometers through an ADS1115 and publishes
// value changes to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emshotton/knobz/internal/ads1115"
	"github.com/emshotton/knobz/internal/gpio"
	"github.com/emshotton/knobz/internal/i2cdev"
	"github.com/emshotton/knobz/internal/knobs"
	"github.com/emshotton/knobz/internal/mathx"
	"github.com/emshotton/knobz/internal/mqtt"
	"github.com/emshotton/knobz/internal/status"
	"github.com/emshotton/knobz/internal/web"
)

type options struct {
	bus        string
	address    knobs.Address
	tick       time.Duration
	ranges     map[knobs.Channel]knobs.Range
	invert     []knobs.Channel
	broker     string
	topic      string
	heartbeat  time.Duration
	httpAddr   string
	readyChip  string
	readyPin   int
	printState bool
}

func main() {
	bus := flag.String("bus", i2cdev.DefaultPath, "I2C adapter (/dev/i2c-N or periph bus name)")
	address := flag.String("address", "0x48", "ADS1115 address (0x48-0x4B)")
	tick := flag.Duration("tick", 250*time.Microsecond, "Controller update interval")
	ranges := flag.String("ranges", "", `Per-channel ranges, e.g. "a0=255,a3=full" (default 1023)`)
	invert := flag.String("invert", "", `Inverted channels, e.g. "a0,a3"`)
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	topic := flag.String("topic", mqtt.DefaultPrefix, "MQTT topic prefix")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	readyChip := flag.String("ready-chip", gpio.DefaultChip, "GPIO chip for the ALERT/RDY line")
	readyPin := flag.Int("ready-pin", gpio.Disabled, "GPIO line wired to ALERT/RDY (-1 polls the config register)")
	printState := flag.Bool("print-state", false, "Sample every channel once, print and exit")

	flag.Parse()

	opts := options{
		bus:        *bus,
		tick:       *tick,
		broker:     *broker,
		topic:      *topic,
		heartbeat:  *heartbeat,
		httpAddr:   *httpAddr,
		readyChip:  *readyChip,
		readyPin:   *readyPin,
		printState: *printState,
	}
	var err error
	if opts.address, err = knobs.ParseAddress(*address); err != nil {
		log.Fatalf("fatal: -address: %v", err)
	}
	if opts.ranges, err = parseRanges(*ranges); err != nil {
		log.Fatalf("fatal: -ranges: %v", err)
	}
	if opts.invert, err = parseChannels(*invert); err != nil {
		log.Fatalf("fatal: -invert: %v", err)
	}
	if opts.tick <= 0 {
		log.Fatalf("fatal: -tick must be positive")
	}

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(opts options) error {
	bus, err := i2cdev.Open(opts.bus)
	if err != nil {
		return fmt.Errorf("init i2c: %w", err)
	}
	// Closed by runLoop once the controller hands it back; this covers early returns.
	defer bus.Close()

	var cfg ads1115.Config
	if opts.readyPin != gpio.Disabled {
		pin, err := gpio.NewRealReadyPin(opts.readyChip, opts.readyPin)
		if err != nil {
			return fmt.Errorf("init ready pin: %w", err)
		}
		defer pin.Close()
		cfg.Ready = pin
	}

	ctrl, err := knobs.New(bus, opts.address, cfg)
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	configure(ctrl, opts.ranges, opts.invert)

	if opts.printState {
		printState(os.Stdout, ctrl)
		return nil
	}

	publisher, err := mqtt.NewRealPublisher(opts.broker, opts.topic, "knobz-"+opts.address.String())
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Bus:         opts.bus,
		Address:     opts.address.String(),
		TickUs:      opts.tick.Microseconds(),
		HeartbeatMs: opts.heartbeat.Milliseconds(),
		Broker:      opts.broker,
		Topic:       opts.topic,
		HTTPAddr:    opts.httpAddr,
	})
	for ch := knobs.A0; ch.Valid(); ch++ {
		tracker.SetChannel(ch, ctrl.Range(ch), ctrl.Inverted(ch))
	}
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetMQTTConnected(publisher.IsConnected())

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", opts.httpAddr)
	}

	log.Printf("started: bus=%s address=%s tick=%v broker=%s heartbeat=%v",
		opts.bus, opts.address, opts.tick, opts.broker, opts.heartbeat)

	ticker := time.NewTicker(opts.tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctrl, publisher, publisher, tracker, opts.heartbeat, time.Now, ticker.C, sigCh)
}

func configure(ctrl *knobs.Controller, ranges map[knobs.Channel]knobs.Range, invert []knobs.Channel) {
	for ch, r := range ranges {
		ctrl.SetChannelRange(ch, r)
	}
	for _, ch := range invert {
		ctrl.SetInvertChannel(ch, true)
	}
}

// printState takes one sample of every channel and prints the scaled values.
func printState(w io.Writer, ctrl *knobs.Controller) {
	for i := 0; i < knobs.NumChannels; i++ {
		ctrl.Update(knobs.SampleInterval)
	}
	for ch := knobs.A0; ch.Valid(); ch++ {
		inv := ""
		if ctrl.Inverted(ch) {
			inv = " inverted"
		}
		fmt.Fprintf(w, "%s: %d (%s%s)\n", ch, ctrl.Value(ch), ctrl.Range(ch), inv)
	}
	if s := ctrl.Stats(); s.ReadErrors > 0 {
		fmt.Fprintf(w, "read errors: %d\n", s.ReadErrors)
	}
}

// elapsedMicros converts the time since the previous tick into the
// controller's unit. A clock step backwards counts as no time.
func elapsedMicros(d time.Duration) uint32 {
	return uint32(mathx.Clamp(d.Microseconds(), 0, math.MaxUint32))
}

func runLoop(ctrl *knobs.Controller, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	last := now()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			tracker.SetStats(ctrl.Stats())
			snap := tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "SHUTDOWN",
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}

			if bus, ok := ctrl.Destroy().(io.Closer); ok {
				if err := bus.Close(); err != nil {
					log.Printf("close i2c bus: %v", err)
				}
			}
			return nil

		case <-tick:
			t := now()
			dt := elapsedMicros(t.Sub(last))
			last = t

			if change, ok := ctrl.Update(dt); ok {
				tracker.RecordChange(t, change)
				event := mqtt.NewEvent(t, change, ctrl.Range(change.Channel), ctrl.Inverted(change.Channel))
				if err := publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			tracker.SetStats(ctrl.Stats())
			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}

			if tracker.CheckHeartbeat(t, heartbeat) {
				snap := tracker.Snapshot()
				log.Printf("heartbeat: uptime=%v samples=%d changes=%d read_errors=%d",
					snap.Uptime().Truncate(time.Second), snap.Stats.Samples, snap.Stats.Changes, snap.Stats.ReadErrors)

				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				hbEvent := mqtt.SystemEvent{
					Timestamp:  t,
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", ""),
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
