package scheduler

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/devskill-org/sunclock/daytable"
	"github.com/devskill-org/sunclock/ephemeris"
	"gopkg.in/yaml.v3"
)

// StartDateLayout is the layout of Config.StartDate
const StartDateLayout = "2006-01-02"

// Config represents the configuration for the sunrise clock
type Config struct {
	// Observer settings
	Latitude  float64 `json:"latitude" yaml:"latitude"`   // Observer latitude, north is positive
	Longitude float64 `json:"longitude" yaml:"longitude"` // Observer longitude, west is negative
	Location  string  `json:"location" yaml:"location"`   // Timezone location string (e.g., "America/Los_Angeles"), empty to derive from longitude

	// Simulated days
	StartDate   string        `json:"start_date" yaml:"start_date"`     // First simulated day, YYYY-MM-DD
	Days        int           `json:"days" yaml:"days"`                 // How many days to simulate
	DayInterval int           `json:"day_interval" yaml:"day_interval"` // Days between two simulated days
	PreRise     time.Duration `json:"pre_rise" yaml:"pre_rise"`         // Simulated time before sunrise
	PostSet     time.Duration `json:"post_set" yaml:"post_set"`         // Simulated time after sunset

	// Clock settings
	TickInterval time.Duration `json:"tick_interval" yaml:"tick_interval"` // Wall clock time between ticks
	TickStep     time.Duration `json:"tick_step" yaml:"tick_step"`         // Simulated time per tick

	// Display settings
	TrackSegments int  `json:"track_segments" yaml:"track_segments"` // Segments of the sun track curve
	Headless      bool `json:"headless" yaml:"headless"`             // Do not draw on the terminal

	// Web server settings
	HealthCheckPort   int           `json:"health_check_port" yaml:"health_check_port"`   // Port for the web server (0 = disabled)
	BroadcastInterval time.Duration `json:"broadcast_interval" yaml:"broadcast_interval"` // Minimum time between websocket updates

	// Logging settings
	LogLevel  string `json:"log_level" yaml:"log_level"`   // Log level: debug, info, warn, error
	LogFormat string `json:"log_format" yaml:"log_format"` // Log format: text, json
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Latitude:          34.4,   // UCSB
		Longitude:         -119.8, // UCSB
		Location:          "",
		StartDate:         "2019-12-21",
		Days:              7,
		DayInterval:       30,
		PreRise:           1 * time.Hour,
		PostSet:           1 * time.Hour,
		TickInterval:      80 * time.Millisecond,
		TickStep:          15 * time.Minute,
		TrackSegments:     32,
		Headless:          false,
		HealthCheckPort:   0,
		BroadcastInterval: 500 * time.Millisecond,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// LoadConfig loads configuration from a JSON file, or a YAML file when the
// name ends in .yaml or .yml
func LoadConfig(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return LoadConfigFromYAML(file)
	default:
		return LoadConfigFromReader(file)
	}
}

// LoadConfigFromYAML loads configuration from YAML. Durations are written
// the same way as in JSON, e.g. "15m".
func LoadConfigFromYAML(reader io.Reader) (*Config, error) {
	config := DefaultConfig()

	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)
	if err := decoder.Decode(config); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode config YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadConfigFromReader loads configuration from an io.Reader
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	config := DefaultConfig()

	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config JSON: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to a JSON file
func (c *Config) SaveConfig(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	return c.SaveConfigToWriter(file)
}

// SaveConfigToWriter saves the configuration to an io.Writer
func (c *Config) SaveConfigToWriter(writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config JSON: %w", err)
	}

	return nil
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := (ephemeris.Observer{Latitude: c.Latitude, Longitude: c.Longitude}).Validate(); err != nil {
		return err
	}

	if _, err := time.Parse(StartDateLayout, c.StartDate); err != nil {
		return fmt.Errorf("invalid start_date: %s, must be YYYY-MM-DD", c.StartDate)
	}

	if c.Days < 1 || c.Days > 365 {
		return fmt.Errorf("days must be between 1 and 365, got: %d", c.Days)
	}

	if c.DayInterval < 1 || c.DayInterval > 365 {
		return fmt.Errorf("day_interval must be between 1 and 365, got: %d", c.DayInterval)
	}

	if c.PreRise < 0 {
		return fmt.Errorf("pre_rise must be non-negative, got: %s", c.PreRise)
	}

	if c.PostSet < 0 {
		return fmt.Errorf("post_set must be non-negative, got: %s", c.PostSet)
	}

	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be greater than 0, got: %s", c.TickInterval)
	}

	if c.TickStep <= 0 {
		return fmt.Errorf("tick_step must be greater than 0, got: %s", c.TickStep)
	}

	if c.TrackSegments < 1 {
		return fmt.Errorf("track_segments must be at least 1, got: %d", c.TrackSegments)
	}

	if c.HealthCheckPort < 0 || c.HealthCheckPort > 65535 {
		return fmt.Errorf("health_check_port must be between 0 and 65535, got: %d", c.HealthCheckPort)
	}

	if c.BroadcastInterval < 0 {
		return fmt.Errorf("broadcast_interval must be non-negative, got: %s", c.BroadcastInterval)
	}

	if c.Location != "" {
		if _, err := time.LoadLocation(c.Location); err != nil {
			return fmt.Errorf("invalid location: %s: %w", c.Location, err)
		}
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level: %s, must be one of: debug, info, warn, error", c.LogLevel)
	}

	// Validate log format
	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("invalid log_format: %s, must be one of: text, json", c.LogFormat)
	}

	return nil
}

// Observer returns the configured observer location
func (c *Config) Observer() ephemeris.Observer {
	return ephemeris.Observer{Latitude: c.Latitude, Longitude: c.Longitude}
}

// TimeLocation returns the timezone used to display simulated times. When no
// location is configured the standard timezone of the longitude is used.
func (c *Config) TimeLocation() (*time.Location, error) {
	if c.Location != "" {
		loc, err := time.LoadLocation(c.Location)
		if err != nil {
			return nil, fmt.Errorf("failed to load location %s: %w", c.Location, err)
		}
		return loc, nil
	}
	return StandardZone(c.Longitude), nil
}

// StandardZone returns the fixed standard timezone of a longitude: one hour
// per 15 degrees, rounded to the nearest meridian.
func StandardZone(longitude float64) *time.Location {
	hours := math.Floor(longitude / 15)
	if longitude-hours*15 > 7.5 {
		hours++
	}
	return time.FixedZone(fmt.Sprintf("UTC%+03d", int(hours)), int(hours)*3600)
}

// StartNoon returns local noon of the first simulated day
func (c *Config) StartNoon(loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(StartDateLayout, c.StartDate, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start_date: %w", err)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, loc), nil
}

// TableParams returns the day table parameters for the configuration
func (c *Config) TableParams(loc *time.Location) (daytable.Params, error) {
	noon, err := c.StartNoon(loc)
	if err != nil {
		return daytable.Params{}, err
	}

	return daytable.Params{
		StartOffset: ephemeris.DayOffset(noon),
		DayCount:    c.Days,
		DayStride:   c.DayInterval,
		PreRoll:     c.PreRise,
		PostRoll:    c.PostSet,
	}, nil
}

// Acceleration returns how much faster than real time the clock runs
func (c *Config) Acceleration() float64 {
	if c.TickInterval <= 0 {
		return 0
	}
	return float64(c.TickStep) / float64(c.TickInterval)
}

// MarshalJSON implements custom JSON marshaling to handle durations
func (c *Config) MarshalJSON() ([]byte, error) {
	type Alias Config
	return json.Marshal(&struct {
		*Alias
		PreRise           string `json:"pre_rise" yaml:"pre_rise"`
		PostSet           string `json:"post_set" yaml:"post_set"`
		TickInterval      string `json:"tick_interval" yaml:"tick_interval"`
		TickStep          string `json:"tick_step" yaml:"tick_step"`
		BroadcastInterval string `json:"broadcast_interval" yaml:"broadcast_interval"`
	}{
		Alias:             (*Alias)(c),
		PreRise:           c.PreRise.String(),
		PostSet:           c.PostSet.String(),
		TickInterval:      c.TickInterval.String(),
		TickStep:          c.TickStep.String(),
		BroadcastInterval: c.BroadcastInterval.String(),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling to handle durations
func (c *Config) UnmarshalJSON(data []byte) error {
	type Alias Config
	aux := &struct {
		*Alias
		PreRise           string `json:"pre_rise" yaml:"pre_rise"`
		PostSet           string `json:"post_set" yaml:"post_set"`
		TickInterval      string `json:"tick_interval" yaml:"tick_interval"`
		TickStep          string `json:"tick_step" yaml:"tick_step"`
		BroadcastInterval string `json:"broadcast_interval" yaml:"broadcast_interval"`
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if aux.PreRise != "" {
		if c.PreRise, err = time.ParseDuration(aux.PreRise); err != nil {
			return fmt.Errorf("invalid pre_rise: %w", err)
		}
	}

	if aux.PostSet != "" {
		if c.PostSet, err = time.ParseDuration(aux.PostSet); err != nil {
			return fmt.Errorf("invalid post_set: %w", err)
		}
	}

	if aux.TickInterval != "" {
		if c.TickInterval, err = time.ParseDuration(aux.TickInterval); err != nil {
			return fmt.Errorf("invalid tick_interval: %w", err)
		}
	}

	if aux.TickStep != "" {
		if c.TickStep, err = time.ParseDuration(aux.TickStep); err != nil {
			return fmt.Errorf("invalid tick_step: %w", err)
		}
	}

	if aux.BroadcastInterval != "" {
		if c.BroadcastInterval, err = time.ParseDuration(aux.BroadcastInterval); err != nil {
			return fmt.Errorf("invalid broadcast_interval: %w", err)
		}
	}

	return nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
