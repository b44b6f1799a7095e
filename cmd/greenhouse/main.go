// Command greenhouse runs the greenhouse controller on real hardware and
// publishes its events to MQTT, Kafka and a local journal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/greenhouse/internal/config"
	"github.com/sweeney/greenhouse/internal/controller"
	"github.com/sweeney/greenhouse/internal/display"
	"github.com/sweeney/greenhouse/internal/gpio"
	"github.com/sweeney/greenhouse/internal/journal"
	"github.com/sweeney/greenhouse/internal/kafka"
	"github.com/sweeney/greenhouse/internal/logic"
	"github.com/sweeney/greenhouse/internal/mqtt"
	"github.com/sweeney/greenhouse/internal/sensor"
	"github.com/sweeney/greenhouse/internal/status"
	"github.com/sweeney/greenhouse/internal/telemetry"
	"github.com/sweeney/greenhouse/internal/web"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file (empty for built-in defaults)")
	flag.StringVar(&configPath, "c", "", "Path to configuration file (shorthand)")
	printState := flag.Bool("print-state", false, "Print input levels and one sensor reading, then exit")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			log.Fatal().Err(err).Str("config", configPath).Msg("failed to load configuration")
		}
	}

	setupLogging(cfg.Log)

	if err := run(cfg, *printState); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

func setupLogging(c config.LogConfig) {
	zerolog.TimeFieldFormat = time.RFC3339

	if c.UseJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !c.Colors,
		})
	}

	level, err := zerolog.ParseLevel(c.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func run(cfg *config.Config, printState bool) error {
	inputs, err := gpio.NewRealReader(cfg.GPIO.Chip, inputPins(cfg.GPIO))
	if err != nil {
		return fmt.Errorf("init gpio inputs: %w", err)
	}
	defer inputs.Close()

	sens := sensor.NewBME280(cfg.Sensor.Bus, cfg.Sensor.Address)
	defer sens.Close()

	if printState {
		return printCurrentState(inputs, sens)
	}

	outputs, err := gpio.NewRealWriter(cfg.GPIO.Chip, outputPins(cfg.GPIO))
	if err != nil {
		return fmt.Errorf("init gpio outputs: %w", err)
	}
	defer outputs.Close()

	lcd, err := display.NewHD44780(cfg.GPIO.Chip, display.Pins{
		RS: cfg.Display.RS, E: cfg.Display.E,
		D4: cfg.Display.D4, D5: cfg.Display.D5, D6: cfg.Display.D6, D7: cfg.Display.D7,
	})
	if err != nil {
		return fmt.Errorf("init display: %w", err)
	}
	defer lcd.Close()

	p, err := cfg.Preferences.Build()
	if err != nil {
		return err
	}

	// Publishers
	var (
		pubs []telemetry.Publisher
		conn telemetry.ConnectionStatus
		jrnl *journal.Journal
	)
	if cfg.MQTT.Broker != "" {
		pub := mqtt.NewRealPublisher(mqtt.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Topic:       cfg.MQTT.Topic,
			TopicSystem: cfg.MQTT.TopicSystem,
			BufferSize:  cfg.MQTT.BufferSize,
		})
		pubs = append(pubs, pub)
		conn = pub
	}
	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := kafka.NewPublisher(kafka.Config{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.Topic,
			TopicSystem: cfg.Kafka.TopicSystem,
			Key:         cfg.Kafka.Key,
		})
		if err != nil {
			return fmt.Errorf("init kafka: %w", err)
		}
		pubs = append(pubs, pub)
	}
	if cfg.Journal.Path != "" {
		jrnl, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		pubs = append(pubs, jrnl)
	}

	dispatcher := telemetry.NewDispatcher(telemetry.DefaultQueueSize, pubs...)
	defer dispatcher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg), p)
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	d := &daemon{dispatcher: dispatcher, tracker: tracker, conn: conn, now: time.Now}

	ctrl := controller.New(
		controller.Hardware{Inputs: inputs, Outputs: outputs, Display: lcd, Sensor: sens},
		controller.WithTiming(timing(cfg.Loop)),
		controller.WithPreferences(p),
		controller.WithSink(controller.Sinks{tracker, dispatcher}),
		controller.WithHeartbeat(d.heartbeat),
	)

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		var events web.EventSource
		if jrnl != nil {
			events = jrnl
		}
		srv := web.New(cfg.HTTP.Addr, tracker, events)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("http status server listening")
	}

	if jrnl != nil {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go runJournalCleanup(ctx, jrnl, cfg.Journal.RetentionDays, cfg.Journal.CleanupInterval.Duration())
	}

	log.Info().
		Dur("base_tick", cfg.Loop.BaseTick.Duration()).
		Int("poll_ticks", cfg.Loop.PollTicks).
		Dur("heartbeat", cfg.Loop.Heartbeat.Duration()).
		Str("broker", cfg.MQTT.Broker).
		Strs("kafka", cfg.Kafka.Brokers).
		Str("journal", cfg.Journal.Path).
		Msg("started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return serve(ctrl, d, sigCh)
}

// runner is the part of the controller serve drives.
type runner interface {
	Run(ctx context.Context) error
}

// serve publishes STARTUP, runs the controller until a signal arrives, then
// publishes SHUTDOWN and drains the telemetry queue.
func serve(ctrl runner, d *daemon, sig <-chan os.Signal) error {
	pubCtx, stopPub := context.WithCancel(context.Background())
	go d.dispatcher.Run(pubCtx)

	d.publishSystem("STARTUP", "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- ctrl.Run(ctx) }()

	var (
		runErr error
		reason = "UNKNOWN"
	)
	select {
	case s := <-sig:
		log.Info().Stringer("signal", s).Msg("shutting down")
		reason = signalName(s)
		cancel()
		runErr = <-errCh
	case runErr = <-errCh:
		// Run only returns early if ctx was cancelled elsewhere.
	}

	if errors.Is(runErr, controller.ErrSensorFatal) && reason == "UNKNOWN" {
		reason = "SENSOR_FATAL"
	}
	d.stopHeartbeats()
	d.publishSystem("SHUTDOWN", reason)

	stopPub()
	d.dispatcher.Wait()
	return runErr
}

// daemon holds what the lifecycle events need.
type daemon struct {
	dispatcher *telemetry.Dispatcher
	tracker    *status.Tracker
	conn       telemetry.ConnectionStatus // nil without MQTT
	now        func() time.Time

	mu         sync.Mutex
	stopping   bool
	heartbeats sync.WaitGroup
}

// stopHeartbeats refuses further heartbeat publishes and waits for any in
// flight, so SHUTDOWN is the last system event.
func (d *daemon) stopHeartbeats() {
	d.mu.Lock()
	d.stopping = true
	d.mu.Unlock()
	d.heartbeats.Wait()
}

func (d *daemon) refresh() {
	if d.conn != nil {
		d.tracker.SetMQTTConnected(d.conn.IsConnected())
	}
	if net := readNetworkInfo(); net != nil {
		d.tracker.SetNetwork(net)
	}
}

// publishSystem sends a retained lifecycle event with a full status snapshot.
func (d *daemon) publishSystem(event, reason string) {
	d.refresh()
	snap := d.tracker.Snapshot()
	d.dispatcher.PublishSystem(telemetry.SystemEvent{
		Timestamp:  d.now(),
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	log.Info().Str("event", event).Str("reason", reason).Msg("published system event")
}

// heartbeat is called from the controller loop and must not block.
func (d *daemon) heartbeat(hb logic.HeartbeatData) {
	log.Info().
		Dur("uptime", hb.Uptime).
		Int("vent_open", hb.Counts.VentOpen).
		Int("vent_closed", hb.Counts.VentClosed).
		Int("sprinklers_on", hb.Counts.SprinklersOn).
		Int("sprinklers_off", hb.Counts.SprinklersOff).
		Int("fire_alarms", hb.Counts.FireAlarms).
		Msg("heartbeat")

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopping {
		return
	}
	d.heartbeats.Add(1)
	go func() {
		defer d.heartbeats.Done()
		d.refresh()
		snap := d.tracker.Snapshot()
		d.dispatcher.PublishSystem(telemetry.SystemEvent{
			Timestamp:  hb.Timestamp,
			Event:      "HEARTBEAT",
			RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
		})
	}()
}

// runJournalCleanup periodically deletes journal entries past retention.
func runJournalCleanup(ctx context.Context, j *journal.Journal, retentionDays int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().AddDate(0, 0, -retentionDays)
			n, err := j.Prune(cutoff)
			if err != nil {
				log.Error().Err(err).Msg("journal cleanup failed")
				continue
			}
			if n > 0 {
				log.Info().Int64("deleted", n).Time("before", cutoff).Msg("journal cleanup")
			}
		}
	}
}

func printCurrentState(inputs gpio.Reader, s sensor.Sensor) error {
	in, err := inputs.Read()
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}
	fmt.Printf("UP: %s, DOWN: %s, SELECT: %s, SMOKE: %s\n",
		levelString(in.Up), levelString(in.Down), levelString(in.Select), levelString(in.Smoke))

	if err := s.Configure(); err != nil {
		return fmt.Errorf("configure sensor: %w", err)
	}
	r, err := s.Read()
	if err != nil {
		return fmt.Errorf("read sensor: %w", err)
	}
	fmt.Printf("Temperature: %.1fF, Humidity: %.1f%%, Pressure: %.1f hPa\n",
		r.TemperatureF, r.HumidityPct, r.PressureHPa)
	return nil
}

func inputPins(g config.GPIOConfig) gpio.Pins {
	return gpio.Pins{Up: g.Up, Down: g.Down, Select: g.Select, Smoke: g.Smoke}
}

func outputPins(g config.GPIOConfig) gpio.Pins {
	return gpio.Pins{Buzzer: g.Buzzer, Vent: g.Vent, Sprinklers: g.Sprinklers}
}

func timing(l config.LoopConfig) controller.Timing {
	t := controller.DefaultTiming()
	t.BaseTick = l.BaseTick.Duration()
	t.PollTicks = l.PollTicks
	t.CooldownTicks = l.CooldownTicks
	t.EditCadence = l.EditCadence.Duration()
	t.AlarmPeriod = l.AlarmPeriod.Duration()
	t.Heartbeat = l.Heartbeat.Duration()
	return t
}

func statusConfig(cfg *config.Config) status.Config {
	sc := status.Config{
		BaseTickMs:  cfg.Loop.BaseTick.Duration().Milliseconds(),
		PollTicks:   cfg.Loop.PollTicks,
		HeartbeatMs: cfg.Loop.Heartbeat.Duration().Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		Kafka:       strings.Join(cfg.Kafka.Brokers, ","),
		HTTPAddr:    cfg.HTTP.Addr,
		Journal:     cfg.Journal.Path,
	}
	if sc.Broker != "" {
		sc.Topic = cfg.MQTT.Topic
		if sc.Topic == "" {
			sc.Topic = mqtt.Topic
		}
		sc.WSBroker = resolveWSBroker(cfg.MQTT.WSBroker, sc.Broker)
	}
	return sc
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
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

func levelString(on bool) string {
	if on {
		return "HIGH"
	}
	return "LOW"
}

// resolveWSBroker converts the ws_broker setting into a concrete URL.
// "" or "=broker" derives ws://host:9001 from the TCP broker address; "off" disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != "" && ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.Warn().Err(err).Str("broker", broker).Msg("ws_broker: cannot parse broker")
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
