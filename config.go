package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the gateway configuration
type Config struct {
	// BindAddress is the address the HTTP server listens on (e.g. "0.0.0.0:8080")
	BindAddress string `yaml:"bind_address"`
	// SerialPort is the path to the device's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string `yaml:"serial_port"`
	// BaudRate is the baud rate for serial communication (e.g. 115200)
	BaudRate int `yaml:"baud_rate"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `yaml:"log_level"`
	// PollTimeoutMS is the transport read poll interval in milliseconds
	PollTimeoutMS int `yaml:"poll_timeout_ms"`
	// CommandTimeoutMS is the timeout applied to the init commands in milliseconds
	CommandTimeoutMS int `yaml:"command_timeout_ms"`

	// MQTTBroker is the broker URL; empty disables the MQTT surface
	MQTTBroker string `yaml:"mqtt_broker"`
	// MQTTClientID identifies this gateway on the broker
	MQTTClientID string `yaml:"mqtt_client_id"`
	// MQTTTopic is the base topic; commands arrive on <topic>/command,
	// results go to <topic>/result and events to <topic>/event
	MQTTTopic string `yaml:"mqtt_topic"`
	// MQTTUsername and MQTTPassword are optional broker credentials
	MQTTUsername string `yaml:"mqtt_username"`
	MQTTPassword string `yaml:"mqtt_password"`

	// Events are the unsolicited lines the gateway watches for and fans
	// out to its subscribers
	Events []EventConfig `yaml:"events"`
}

// EventConfig declares an unsolicited line to watch for.
type EventConfig struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	// Rule is "exact" or "regex"; empty means exact
	Rule string `yaml:"rule"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 115200
		c.LogLevel = "info"
		c.PollTimeoutMS = 100
		c.CommandTimeoutMS = 5000
		c.MQTTClientID = "atgw-1"
		c.MQTTTopic = "atgw"
		return nil
	}
}

// WithFile loads configuration from a YAML file. An empty path is a no-op
// so the option can be applied unconditionally.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}

		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if poll := os.Getenv("POLL_TIMEOUT_MS"); poll != "" {
			if p, err := strconv.Atoi(poll); err == nil {
				c.PollTimeoutMS = p
			}
		}

		if broker := os.Getenv("MQTT_BROKER"); broker != "" {
			c.MQTTBroker = broker
		}

		if id := os.Getenv("MQTT_CLIENT_ID"); id != "" {
			c.MQTTClientID = id
		}

		if topic := os.Getenv("MQTT_TOPIC"); topic != "" {
			c.MQTTTopic = topic
		}

		if user := os.Getenv("MQTT_USERNAME"); user != "" {
			c.MQTTUsername = user
		}

		if pass := os.Getenv("MQTT_PASSWORD"); pass != "" {
			c.MQTTPassword = pass
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "log-level":
				c.LogLevel = f.Value.String()
			case "poll-timeout-ms":
				if p, err := strconv.Atoi(f.Value.String()); err == nil {
					c.PollTimeoutMS = p
				}
			case "command-timeout-ms":
				if t, err := strconv.Atoi(f.Value.String()); err == nil {
					c.CommandTimeoutMS = t
				}
			case "mqtt-broker":
				c.MQTTBroker = f.Value.String()
			}

		})
		return nil
	}

}
