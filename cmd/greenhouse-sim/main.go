// Command greenhouse-sim runs the controller against a simulated greenhouse
// in the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/greenhouse/internal/config"
	"github.com/sweeney/greenhouse/internal/controller"
	"github.com/sweeney/greenhouse/internal/logic"
	"github.com/sweeney/greenhouse/internal/sim"
	"github.com/sweeney/greenhouse/internal/status"
	"github.com/sweeney/greenhouse/internal/web"
)

const defaultLogFile = "greenhouse-sim.log"

func main() {
	configPath := flag.String("config", "", "Path to configuration file (empty for built-in defaults)")
	httpAddr := flag.String("http", "", "Serve the status page on this address (empty to disable)")
	startTemp := flag.Float64("temp", 75, "Starting air temperature in °F")
	startHumidity := flag.Float64("humidity", 60, "Starting relative humidity in %")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	logFile, err := setupLogging(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	if err := run(cfg, *httpAddr, logic.Reading{TemperatureF: *startTemp, HumidityPct: *startHumidity}); err != nil {
		log.Error().Err(err).Msg("simulator failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging sends logs to a file so they don't tear the TUI.
func setupLogging(c config.LogConfig) (*os.File, error) {
	path := c.File
	if path == "" {
		path = defaultLogFile
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if c.UseJSON {
		log.Logger = zerolog.New(f).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        f,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    true,
		})
	}

	level, err := zerolog.ParseLevel(c.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	return f, nil
}

func run(cfg *config.Config, httpAddr string, start logic.Reading) error {
	p, err := cfg.Preferences.Build()
	if err != nil {
		return err
	}

	gh := sim.New(sim.DefaultWeather, start)
	tracker := status.NewTracker(time.Now(), status.Config{
		BaseTickMs:  cfg.Loop.BaseTick.Duration().Milliseconds(),
		PollTicks:   cfg.Loop.PollTicks,
		HeartbeatMs: cfg.Loop.Heartbeat.Duration().Milliseconds(),
		HTTPAddr:    httpAddr,
	}, p)

	tm := controller.DefaultTiming()
	tm.BaseTick = cfg.Loop.BaseTick.Duration()
	tm.PollTicks = cfg.Loop.PollTicks
	tm.CooldownTicks = cfg.Loop.CooldownTicks
	tm.EditCadence = cfg.Loop.EditCadence.Duration()
	tm.AlarmPeriod = cfg.Loop.AlarmPeriod.Duration()
	tm.Heartbeat = cfg.Loop.Heartbeat.Duration()

	ctrl := controller.New(
		controller.Hardware{Inputs: gh.Panel, Outputs: gh.Relays, Display: gh.LCD, Sensor: gh.Climate},
		controller.WithTiming(tm),
		controller.WithPreferences(p),
		controller.WithSink(tracker),
	)

	if httpAddr != "" {
		srv := web.New(httpAddr, tracker, nil)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	log.Info().Float64("temperature_f", start.TemperatureF).Float64("humidity_pct", start.HumidityPct).Msg("simulator started")

	_, uiErr := tea.NewProgram(sim.NewModel(gh, tracker), tea.WithAltScreen()).Run()

	cancel()
	if err := <-done; err != nil {
		return err
	}
	return uiErr
}
