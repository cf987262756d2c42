package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
transport = "SPJS"
port = "/dev/ttyUSB1"
timeout = "2s"
retries = 20
backoff = "exponential"
backoff_max = "1s"
line_delay = "0s"

[mqtt]
broker = "tcp://localhost:1883"
`))
	require.NoError(t, err)
	assert.Equal(t, TransportSPJS, cfg.Transport)
	assert.Equal(t, "/dev/ttyUSB1", cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.Timeout.Duration)
	assert.Equal(t, 20, cfg.Retries)
	assert.Equal(t, time.Duration(0), cfg.LineDelay.Duration)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)

	// unset keys keep their defaults
	assert.Equal(t, 115200, cfg.Baud)
	assert.Equal(t, "lasersend", cfg.MQTT.Topic)
	assert.Equal(t, 100*time.Millisecond, cfg.BackoffMin.Duration)

	p := cfg.RetryPolicy()
	assert.Equal(t, 20, p.MaxAttempts)
	require.NotNil(t, p.BackOff)
	b := p.BackOff()
	assert.LessOrEqual(t, b.NextBackOff(), 150*time.Millisecond)
}

func TestParse_Invalid(t *testing.T) {
	for _, doc := range []string{
		`transport = "usb"`,
		`backoff = "random"`,
		`baud = 0`,
		`timeout = "0s"`,
		`timeout = "soon"`,
		`retries = -1`,
		`transport = `,
	} {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `line_delay = "10ms"`)

	cfg.Retries = 7
	cfg.Port = "COM3"
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestConfig_HistoryPath(t *testing.T) {
	cfg := Default()
	cfg.History = "/tmp/jobs.db"
	p, err := cfg.HistoryPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/jobs.db", p)

	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	t.Setenv("HOME", "/tmp/home")
	cfg.History = ""
	p, err = cfg.HistoryPath()
	require.NoError(t, err)
	assert.Equal(t, "history.db", filepath.Base(p))
}
