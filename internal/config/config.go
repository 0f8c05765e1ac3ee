// Package config holds the tachometer settings: calibration, pulse source and
// virtual course. Values come from defaults, an optional JSON file, and
// command-line flags, in that order of precedence.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sweeney/ergo-tacho/internal/geo"
	"github.com/sweeney/ergo-tacho/internal/logic"
	"github.com/sweeney/ergo-tacho/internal/pulse"
)

// Source kinds.
const (
	SourceSerial = "serial"
	SourceGPIO   = "gpio"
)

// Config is the full daemon configuration.
type Config struct {
	// Calibration
	SampleRateHz float64 `json:"sample_rate_hz"`
	RevsPerMetre float64 `json:"revs_per_metre"`
	SpeedPerRPM  float64 `json:"speed_per_rpm"`
	HistorySize  int     `json:"history_size"`

	// Pulse source
	Source      string            `json:"source"`
	Device      string            `json:"device"`
	Framing     string            `json:"framing"`
	Port        pulse.PortOptions `json:"port"`
	ReadTimeout Duration          `json:"read_timeout"`
	GPIOChip    string            `json:"gpio_chip"`
	GPIOPin     int               `json:"gpio_pin"`
	Debounce    Duration          `json:"debounce"`

	// MaxReadErrors consecutive device errors stop the daemon; 0 retries forever.
	MaxReadErrors int `json:"max_read_errors"`

	// Virtual course
	Origin        geo.Point `json:"origin"`
	StepCount     int       `json:"step_count"`
	Curve         string    `json:"curve"`
	CurveRadiusKm float64   `json:"curve_radius_km"`

	// Outputs
	ActivityLog string   `json:"activity_log"`
	Export      string   `json:"export"`
	Broker      string   `json:"broker"`
	Heartbeat   Duration `json:"heartbeat"`
	HTTPAddr    string   `json:"http_addr"`
}

// Defaults matches the kayak ergometer on the counter board at /dev/ttyUSB1.
func Defaults() Config {
	cal := logic.DefaultCalibration()
	return Config{
		SampleRateHz:  cal.SampleRateHz,
		RevsPerMetre:  cal.RevsPerMetre,
		SpeedPerRPM:   cal.SpeedPerRPM,
		HistorySize:   logic.DefaultHistorySize,
		Source:        SourceSerial,
		Device:        "/dev/ttyUSB1",
		Framing:       string(pulse.FramingBinary),
		ReadTimeout:   Duration(pulse.DefaultReadTimeout),
		GPIOChip:      "gpiochip0",
		GPIOPin:       7,
		Debounce:      Duration(200 * time.Microsecond),
		MaxReadErrors: 20,
		Origin:        geo.Point{Lat: 53.810016, Lon: -1.959652}, // Oxenhope
		StepCount:     200,
		Curve:         "gerono",
		CurveRadiusKm: 1.0,
		ActivityLog:   "activity.kyk",
		Heartbeat:     Duration(15 * time.Minute),
		HTTPAddr:      ":8080",
	}
}

// Load reads a JSON file and overlays it on cfg. Fields omitted from the
// file keep their current values, so partial configs are safe.
func Load(path string, cfg *Config) error {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if info.Size() > maxFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", cleanPath, err)
	}
	return nil
}

// Calibration returns the calibration constants.
func (c Config) Calibration() logic.Calibration {
	return logic.Calibration{
		SampleRateHz: c.SampleRateHz,
		RevsPerMetre: c.RevsPerMetre,
		SpeedPerRPM:  c.SpeedPerRPM,
	}
}

// Validate checks everything that must be right before the tick loop starts.
func (c Config) Validate() error {
	if err := c.Calibration().Validate(); err != nil {
		return err
	}
	if c.HistorySize < 1 {
		return fmt.Errorf("%w: history size must be at least 1, got %d", logic.ErrInvalidConfiguration, c.HistorySize)
	}

	switch c.Source {
	case SourceSerial:
		if c.Device == "" {
			return fmt.Errorf("%w: serial source requires a device path", logic.ErrInvalidConfiguration)
		}
		if _, err := pulse.ParseFraming(c.Framing); err != nil {
			return fmt.Errorf("%w: %v", logic.ErrInvalidConfiguration, err)
		}
		if _, err := c.Port.Normalize(); err != nil {
			return fmt.Errorf("%w: %v", logic.ErrInvalidConfiguration, err)
		}
	case SourceGPIO:
		if c.GPIOPin < 0 {
			return fmt.Errorf("%w: gpio pin must be non-negative, got %d", logic.ErrInvalidConfiguration, c.GPIOPin)
		}
	default:
		return fmt.Errorf("%w: unknown source %q (want %q or %q)", logic.ErrInvalidConfiguration, c.Source, SourceSerial, SourceGPIO)
	}

	if c.MaxReadErrors < 0 {
		return fmt.Errorf("%w: max read errors must not be negative, got %d", logic.ErrInvalidConfiguration, c.MaxReadErrors)
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("%w: heartbeat must not be negative", logic.ErrInvalidConfiguration)
	}
	if c.StepCount < 0 {
		return fmt.Errorf("%w: step count must not be negative, got %d", logic.ErrInvalidConfiguration, c.StepCount)
	}
	if c.StepCount > 0 {
		if _, err := geo.CurveByName(c.Curve, c.CurveRadiusKm); err != nil {
			return fmt.Errorf("%w: %v", logic.ErrInvalidConfiguration, err)
		}
	}
	return nil
}

// TickInterval is the sampling period implied by the sample rate.
func (c Config) TickInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.SampleRateHz)
}

// DeviceLabel names the pulse source for logs and the status page.
func (c Config) DeviceLabel() string {
	if c.Source == SourceGPIO {
		return fmt.Sprintf("%s:%d", c.GPIOChip, c.GPIOPin)
	}
	return c.Device
}

// Path builds the virtual course. It returns nil when lap tracking is
// disabled (step count 0).
func (c Config) Path() (*geo.Path, error) {
	if c.StepCount == 0 {
		return nil, nil
	}
	curve, err := geo.CurveByName(c.Curve, c.CurveRadiusKm)
	if err != nil {
		return nil, err
	}
	return geo.BuildPath(c.Origin, curve, c.StepCount)
}

// Duration is a time.Duration that reads and writes JSON as a string
// like "500ms".
type Duration time.Duration

// MarshalJSON encodes d as a duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"500ms\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
