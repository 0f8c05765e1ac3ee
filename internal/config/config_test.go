package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/ergo-tacho/internal/logic"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultsValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 16, cfg.HistorySize)
	assert.Equal(t, 4.0, cfg.SampleRateHz)
	assert.Equal(t, 5.0, cfg.RevsPerMetre)
	assert.InDelta(t, 12.0/900.0, cfg.SpeedPerRPM, 1e-12)
	assert.Equal(t, 20, cfg.MaxReadErrors)
}

func TestLoadPartialOverlay(t *testing.T) {
	path := writeConfig(t, "bike.json", `{
		"sample_rate_hz": 10,
		"speed_per_rpm": 0.06,
		"framing": "text",
		"read_timeout": "2s",
		"origin": {"lat": 21.2765, "lon": -157.846},
		"port": {"baud_rate": 115200}
	}`)

	cfg := Defaults()
	require.NoError(t, Load(path, &cfg))

	assert.Equal(t, 10.0, cfg.SampleRateHz)
	assert.Equal(t, 0.06, cfg.SpeedPerRPM)
	assert.Equal(t, "text", cfg.Framing)
	assert.Equal(t, Duration(2*time.Second), cfg.ReadTimeout)
	assert.Equal(t, 21.2765, cfg.Origin.Lat)
	assert.Equal(t, 115200, cfg.Port.BaudRate)

	// Untouched fields keep their defaults.
	assert.Equal(t, 5.0, cfg.RevsPerMetre)
	assert.Equal(t, 16, cfg.HistorySize)
	assert.Equal(t, "/dev/ttyUSB1", cfg.Device)
}

func TestLoadRejectsExtension(t *testing.T) {
	path := writeConfig(t, "bike.yaml", `{}`)
	cfg := Defaults()
	err := Load(path, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".json")
}

func TestLoadRejectsLargeFile(t *testing.T) {
	path := writeConfig(t, "big.json", `{"device": "`+strings.Repeat("x", 1024*1024)+`"}`)
	cfg := Defaults()
	err := Load(path, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoadBadJSON(t *testing.T) {
	cfg := Defaults()
	require.Error(t, Load(writeConfig(t, "bad.json", `{"sample_rate_hz": "fast"}`), &cfg))
	require.Error(t, Load(writeConfig(t, "bad.json", `{"read_timeout": 5}`), &cfg))
	require.Error(t, Load(filepath.Join(t.TempDir(), "missing.json"), &cfg))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.SampleRateHz = 0 }},
		{"negative revs per metre", func(c *Config) { c.RevsPerMetre = -5 }},
		{"zero speed ratio", func(c *Config) { c.SpeedPerRPM = 0 }},
		{"zero history", func(c *Config) { c.HistorySize = 0 }},
		{"unknown source", func(c *Config) { c.Source = "usb" }},
		{"empty device", func(c *Config) { c.Device = "" }},
		{"bad framing", func(c *Config) { c.Framing = "hex" }},
		{"bad parity", func(c *Config) { c.Port.Parity = "mark" }},
		{"bad gpio pin", func(c *Config) { c.Source = SourceGPIO; c.GPIOPin = -1 }},
		{"unknown curve", func(c *Config) { c.Curve = "spiral" }},
		{"zero radius", func(c *Config) { c.CurveRadiusKm = 0 }},
		{"negative step count", func(c *Config) { c.StepCount = -1 }},
		{"negative heartbeat", func(c *Config) { c.Heartbeat = Duration(-time.Second) }},
		{"negative max read errors", func(c *Config) { c.MaxReadErrors = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, logic.ErrInvalidConfiguration), "got %v", err)
		})
	}
}

func TestValidateGPIOIgnoresSerialSettings(t *testing.T) {
	cfg := Defaults()
	cfg.Source = SourceGPIO
	cfg.Device = ""
	cfg.Framing = ""
	assert.NoError(t, cfg.Validate())
}

func TestTickIntervalAndDeviceLabel(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, "/dev/ttyUSB1", cfg.DeviceLabel())

	cfg.Source = SourceGPIO
	assert.Equal(t, "gpiochip0:7", cfg.DeviceLabel())
}

func TestValidateStepCountZeroSkipsCurve(t *testing.T) {
	cfg := Defaults()
	cfg.StepCount = 0
	cfg.Curve = "spiral"
	assert.NoError(t, cfg.Validate())
}

func TestPath(t *testing.T) {
	cfg := Defaults()
	path, err := cfg.Path()
	require.NoError(t, err)
	require.NotNil(t, path)
	assert.Equal(t, 200, path.Len())
	assert.Greater(t, path.LapDistance, 0.0)

	cfg.StepCount = 0
	path, err = cfg.Path()
	require.NoError(t, err)
	assert.Nil(t, path, "step count 0 disables lap tracking")
}

func TestDurationJSONRoundTrip(t *testing.T) {
	b, err := Duration(1500 * time.Millisecond).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1.5s"`, string(b))

	var d Duration
	require.NoError(t, d.UnmarshalJSON(b))
	assert.Equal(t, Duration(1500*time.Millisecond), d)
}
