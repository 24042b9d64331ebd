package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(WithDefaults())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", config.BindAddress)
	assert.Equal(t, "/dev/ttyUSB0", config.SerialPort)
	assert.Equal(t, 115200, config.BaudRate)
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, 100, config.PollTimeoutMS)
	assert.Equal(t, 5000, config.CommandTimeoutMS)
	assert.Empty(t, config.MQTTBroker)
	assert.Equal(t, "atgw", config.MQTTTopic)
}

func TestLoadConfigEnvOverridesDefaults(t *testing.T) {
	t.Setenv("SERIAL_PORT", "/dev/ttyACM3")
	t.Setenv("BAUD_RATE", "9600")
	t.Setenv("MQTT_BROKER", "tcp://broker.local:1883")
	t.Setenv("MQTT_USERNAME", "gw")
	t.Setenv("MQTT_PASSWORD", "secret")

	config, err := LoadConfig(WithDefaults(), WithEnv())
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM3", config.SerialPort)
	assert.Equal(t, 9600, config.BaudRate)
	assert.Equal(t, "tcp://broker.local:1883", config.MQTTBroker)
	assert.Equal(t, "gw", config.MQTTUsername)
	assert.Equal(t, "secret", config.MQTTPassword)
	// untouched values keep their defaults
	assert.Equal(t, "0.0.0.0:8080", config.BindAddress)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	contents := `
serial_port: /dev/ttyS1
baud_rate: 57600
log_level: debug
command_timeout_ms: 2000
events:
  - name: ring
    pattern: RING
  - name: signal
    pattern: '\+CSQ: (\d+),(\d+)'
    rule: regex
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	config, err := LoadConfig(WithDefaults(), WithFile(path))
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyS1", config.SerialPort)
	assert.Equal(t, 57600, config.BaudRate)
	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, 2000, config.CommandTimeoutMS)
	require.Len(t, config.Events, 2)
	assert.Equal(t, EventConfig{Name: "ring", Pattern: "RING"}, config.Events[0])
	assert.Equal(t, "regex", config.Events[1].Rule)
}

func TestLoadConfigFileMissing(t *testing.T) {
	_, err := LoadConfig(WithDefaults(), WithFile(filepath.Join(t.TempDir(), "nope.yaml")))
	assert.Error(t, err)
}

func TestLoadConfigEmptyFilePathIsNoop(t *testing.T) {
	config, err := LoadConfig(WithDefaults(), WithFile(""))
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", config.SerialPort)
}

func TestLoadConfigFlags(t *testing.T) {
	fSet := flag.NewFlagSet("test", flag.ContinueOnError)
	fSet.String("serial-port", "/dev/ttyUSB0", "")
	fSet.Int("baud-rate", 115200, "")
	fSet.String("bind-address", "0.0.0.0:8080", "")
	fSet.String("mqtt-broker", "", "")
	require.NoError(t, fSet.Parse([]string{
		"-serial-port", "/dev/ttyAMA0",
		"-mqtt-broker", "tcp://localhost:1883",
	}))

	config, err := LoadConfig(WithDefaults(), WithFlags(fSet))
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyAMA0", config.SerialPort)
	assert.Equal(t, "tcp://localhost:1883", config.MQTTBroker)
	// flags left at their default are not visited and must not clobber
	assert.Equal(t, 115200, config.BaudRate)
	assert.Equal(t, "0.0.0.0:8080", config.BindAddress)
}
