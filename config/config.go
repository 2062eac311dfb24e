// Package config loads service settings from defaults, an optional
// YAML file, a .env file and CHARTER_* environment variables, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	// Host prefixes the player links in evaluation contexts.
	Host string `yaml:"host"`

	Listen    string `yaml:"listen"`
	DBPath    string `yaml:"db"`
	ScriptDir string `yaml:"scripts"`

	// Timezone is the default for trips without one.
	Timezone string `yaml:"timezone"`

	TickInterval time.Duration `yaml:"tick_interval"`
	MaxTimers    int           `yaml:"max_timers"`

	MQTTBroker   string `yaml:"mqtt_broker"`
	MQTTClientID string `yaml:"mqtt_client_id"`
	MQTTPrefix   string `yaml:"mqtt_prefix"`

	Verbose bool `yaml:"verbose"`
}

func Default() *Config {
	return &Config{
		Host:         "http://localhost:8080",
		Listen:       ":8080",
		DBPath:       "charter.db",
		ScriptDir:    "scripts",
		Timezone:     "UTC",
		TickInterval: time.Minute,
		MaxTimers:    1000,
		MQTTClientID: "charter",
		MQTTPrefix:   "charter",
	}
}

// Load reads the YAML file at path, when path isn't empty, and then
// the environment.  A missing .env is fine; a missing YAML file is
// not.
func Load(path string) (*Config, error) {
	// .env is optional.
	godotenv.Load()

	c := Default()
	if path != "" {
		bs, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err = yaml.Unmarshal(bs, c); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	c.Host = getEnv("CHARTER_HOST", c.Host)
	c.Listen = getEnv("CHARTER_LISTEN", c.Listen)
	c.DBPath = getEnv("CHARTER_DB", c.DBPath)
	c.ScriptDir = getEnv("CHARTER_SCRIPTS", c.ScriptDir)
	c.Timezone = getEnv("CHARTER_TIMEZONE", c.Timezone)
	c.TickInterval = getEnvDuration("CHARTER_TICK_INTERVAL", c.TickInterval)
	c.MaxTimers = getEnvInt("CHARTER_MAX_TIMERS", c.MaxTimers)
	c.MQTTBroker = getEnv("CHARTER_MQTT_BROKER", c.MQTTBroker)
	c.MQTTClientID = getEnv("CHARTER_MQTT_CLIENT_ID", c.MQTTClientID)
	c.MQTTPrefix = getEnv("CHARTER_MQTT_PREFIX", c.MQTTPrefix)
	c.Verbose = getEnvBool("CHARTER_VERBOSE", c.Verbose)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return errors.New("tick interval must be positive")
	}
	if c.MaxTimers <= 0 {
		return errors.New("max timers must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return d
}
