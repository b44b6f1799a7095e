// Package config loads the greenhouse daemon configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/greenhouse/internal/prefs"
)

// Config represents the application configuration
type Config struct {
	GPIO        GPIOConfig        `yaml:"gpio"`
	Display     DisplayConfig     `yaml:"display"`
	Sensor      SensorConfig      `yaml:"sensor"`
	Loop        LoopConfig        `yaml:"loop"`
	Preferences PreferencesConfig `yaml:"preferences"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	HTTP        HTTPConfig        `yaml:"http"`
	Journal     JournalConfig     `yaml:"journal"`
	Log         LogConfig         `yaml:"log"`
}

// GPIOConfig names the character device and BCM line offsets for the
// buttons, smoke detector and actuators.
type GPIOConfig struct {
	Chip       string `yaml:"chip"`
	Up         int    `yaml:"up"`
	Down       int    `yaml:"down"`
	Select     int    `yaml:"select"`
	Smoke      int    `yaml:"smoke"`
	Buzzer     int    `yaml:"buzzer"`
	Vent       int    `yaml:"vent"`
	Sprinklers int    `yaml:"sprinklers"`
}

// DisplayConfig contains the HD44780 4-bit bus lines.
type DisplayConfig struct {
	RS int `yaml:"rs"`
	E  int `yaml:"e"`
	D4 int `yaml:"d4"`
	D5 int `yaml:"d5"`
	D6 int `yaml:"d6"`
	D7 int `yaml:"d7"`
}

// SensorConfig contains the BME280 bus settings
type SensorConfig struct {
	Bus     string `yaml:"bus"`     // I2C bus name, empty for the first available
	Address uint16 `yaml:"address"` // 0x76 or 0x77
}

// LoopConfig contains the controller cadences
type LoopConfig struct {
	BaseTick      Duration `yaml:"base_tick"`
	PollTicks     int      `yaml:"poll_ticks"`
	CooldownTicks int      `yaml:"cooldown_ticks"`
	EditCadence   Duration `yaml:"edit_cadence"`
	AlarmPeriod   Duration `yaml:"alarm_period"`
	Heartbeat     Duration `yaml:"heartbeat"` // 0 disables heartbeats
}

// PreferencesConfig holds the power-on thresholds. Watering is "HH:MM-HH:MM"
// or empty for no window.
type PreferencesConfig struct {
	TemperatureLow  uint8  `yaml:"temperature_low"`
	TemperatureHigh uint8  `yaml:"temperature_high"`
	HumidityLow     uint8  `yaml:"humidity_low"`
	HumidityHigh    uint8  `yaml:"humidity_high"`
	Watering        string `yaml:"watering"`
}

// MQTTConfig contains broker settings. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Topic       string `yaml:"topic"`
	TopicSystem string `yaml:"topic_system"`
	BufferSize  int    `yaml:"buffer_size"`
	WSBroker    string `yaml:"ws_broker"` // websocket URL for the live status page
}

// KafkaConfig contains Kafka settings. No brokers disables Kafka.
type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	Topic       string   `yaml:"topic"`
	TopicSystem string   `yaml:"topic_system"`
	Key         string   `yaml:"key"`
}

// HTTPConfig contains status server settings. An empty address disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// JournalConfig contains event journal settings. An empty path disables it.
type JournalConfig struct {
	Path            string   `yaml:"path"`
	RetentionDays   int      `yaml:"retention_days"`
	CleanupInterval Duration `yaml:"cleanup_interval"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	UseJSON bool   `yaml:"json"`
	Colors  bool   `yaml:"colors"`
	File    string `yaml:"file"` // simulator only
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration in time.Duration notation.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := base()
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses YAML configuration, expanding ${VAR} and ${VAR:default}
// references and filling in defaults.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := base()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// base is the configuration before the file is applied. Line offsets start
// at -1 since 0 is a valid line; keys where zero means "off" are prefilled.
func base() *Config {
	return &Config{
		GPIO:    GPIOConfig{Up: -1, Down: -1, Select: -1, Smoke: -1, Buzzer: -1, Vent: -1, Sprinklers: -1},
		Display: DisplayConfig{RS: -1, E: -1, D4: -1, D5: -1, D6: -1, D7: -1},
		Loop:    LoopConfig{Heartbeat: Duration(15 * time.Minute)},
		HTTP:    HTTPConfig{Addr: ":80"},
	}
}

func orLine(v *int, def int) {
	if *v < 0 {
		*v = def
	}
}

func (cfg *Config) applyDefaults() {
	// GPIO defaults (BCM numbering)
	if cfg.GPIO.Chip == "" {
		cfg.GPIO.Chip = "gpiochip0"
	}
	orLine(&cfg.GPIO.Up, 17)
	orLine(&cfg.GPIO.Down, 27)
	orLine(&cfg.GPIO.Select, 22)
	orLine(&cfg.GPIO.Smoke, 4)
	orLine(&cfg.GPIO.Buzzer, 5)
	orLine(&cfg.GPIO.Vent, 6)
	orLine(&cfg.GPIO.Sprinklers, 13)

	// Display defaults
	orLine(&cfg.Display.RS, 25)
	orLine(&cfg.Display.E, 24)
	orLine(&cfg.Display.D4, 23)
	orLine(&cfg.Display.D5, 18)
	orLine(&cfg.Display.D6, 15)
	orLine(&cfg.Display.D7, 14)

	// Sensor defaults
	if cfg.Sensor.Address == 0 {
		cfg.Sensor.Address = 0x76
	}

	// Loop defaults
	if cfg.Loop.BaseTick == 0 {
		cfg.Loop.BaseTick = Duration(10 * time.Millisecond)
	}
	if cfg.Loop.PollTicks == 0 {
		cfg.Loop.PollTicks = 100
	}
	if cfg.Loop.CooldownTicks == 0 {
		cfg.Loop.CooldownTicks = 50
	}
	if cfg.Loop.EditCadence == 0 {
		cfg.Loop.EditCadence = Duration(500 * time.Millisecond)
	}
	if cfg.Loop.AlarmPeriod == 0 {
		cfg.Loop.AlarmPeriod = Duration(time.Second)
	}

	// Preference defaults
	def := prefs.Default()
	if cfg.Preferences.TemperatureLow == 0 && cfg.Preferences.TemperatureHigh == 0 {
		cfg.Preferences.TemperatureLow = def.Temperature.Low
		cfg.Preferences.TemperatureHigh = def.Temperature.High
	}
	if cfg.Preferences.HumidityLow == 0 && cfg.Preferences.HumidityHigh == 0 {
		cfg.Preferences.HumidityLow = def.Humidity.Low
		cfg.Preferences.HumidityHigh = def.Humidity.High
	}

	// MQTT defaults
	if cfg.MQTT.BufferSize == 0 {
		cfg.MQTT.BufferSize = 500
	}

	// Journal defaults
	if cfg.Journal.RetentionDays == 0 {
		cfg.Journal.RetentionDays = 30
	}
	if cfg.Journal.CleanupInterval == 0 {
		cfg.Journal.CleanupInterval = Duration(24 * time.Hour)
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate checks values that would stall or break the controller loop.
func (cfg *Config) Validate() error {
	var errs []error
	if cfg.Loop.BaseTick <= 0 {
		errs = append(errs, errors.New("loop.base_tick must be positive"))
	}
	if cfg.Loop.PollTicks <= 0 {
		errs = append(errs, errors.New("loop.poll_ticks must be positive"))
	}
	if cfg.Loop.CooldownTicks < 0 {
		errs = append(errs, errors.New("loop.cooldown_ticks must not be negative"))
	}
	if cfg.Loop.Heartbeat < 0 {
		errs = append(errs, errors.New("loop.heartbeat must not be negative"))
	}
	if _, err := cfg.Preferences.Build(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Build converts the configured preferences, with the clock at its
// power-on default.
func (p PreferencesConfig) Build() (prefs.Preferences, error) {
	out := prefs.Default()
	out.Temperature = prefs.ThresholdRange{Low: p.TemperatureLow, High: p.TemperatureHigh}
	out.Humidity = prefs.ThresholdRange{Low: p.HumidityLow, High: p.HumidityHigh}
	if p.Watering != "" {
		w, err := parseWindow(p.Watering)
		if err != nil {
			return prefs.Preferences{}, err
		}
		out.Watering = w
	}
	if err := out.Validate(); err != nil {
		return prefs.Preferences{}, fmt.Errorf("preferences: %w", err)
	}
	return out, nil
}

var windowRe = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})\s*-\s*(\d{1,2}):(\d{2})\s*$`)

func parseWindow(s string) (prefs.WateringWindow, error) {
	m := windowRe.FindStringSubmatch(s)
	if m == nil {
		return prefs.WateringWindow{}, fmt.Errorf("preferences.watering: %q is not HH:MM-HH:MM", s)
	}
	var v [4]uint8
	for i := range v {
		n, _ := strconv.Atoi(m[i+1])
		if n > 59 {
			return prefs.WateringWindow{}, fmt.Errorf("preferences.watering: %q out of range", s)
		}
		v[i] = uint8(n)
	}
	start := prefs.TimeOfDay{Hour: v[0], Minute: v[1]}
	end := prefs.TimeOfDay{Hour: v[2], Minute: v[3]}
	if start.Hour > 23 || end.Hour > 23 || start.Minute > 59 || end.Minute > 59 {
		return prefs.WateringWindow{}, fmt.Errorf("preferences.watering: %q out of range", s)
	}
	w := prefs.NewWateringWindow(start, end)
	w.Normalize()
	return w, nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
