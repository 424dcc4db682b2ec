package controller

import (
	"fmt"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config has the settings used to connect to the panel. BaudRate is a string so it can be
// bound directly to text inputs
type Config struct {
	SerialPort     string        `env:"SERIAL_PORT"`
	BaudRate       string        `env:"BAUD_RATE" envDefault:"115200"`
	CommandTimeout time.Duration `env:"COMMAND_TIMEOUT" envDefault:"10s"`
}

// ConfigFromEnv reads the Config from environment variables
func ConfigFromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("error parsing config from env: %w", err)
	}
	return cfg, nil
}

func (c Config) baudRate() (int, error) {
	if c.BaudRate == "" {
		return 115200, nil
	}
	rate, err := strconv.Atoi(c.BaudRate)
	if err != nil || rate <= 0 {
		return 0, fmt.Errorf("invalid baud rate %q", c.BaudRate)
	}
	return rate, nil
}

func (c Config) commandTimeout() time.Duration {
	if c.CommandTimeout <= 0 {
		return 10 * time.Second
	}
	return c.CommandTimeout
}
