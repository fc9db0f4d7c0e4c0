package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/mtlsim/transitsync/internal/seed"
)

// Config represents the complete transitsync configuration
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Network  NetworkConfig  `mapstructure:"network"`
	Scenario ScenarioConfig `mapstructure:"scenario"`
}

// LoggingConfig controls structured logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
}

// NetworkConfig describes the seeded transit network. When Buses, Stops and
// Passengers are all zero the built-in demo network is used instead.
type NetworkConfig struct {
	// Buses is the number of buses, named B1..Bn
	Buses int `mapstructure:"buses"`
	// BusCapacity is the seat count per bus
	BusCapacity int `mapstructure:"bus_capacity"`
	// Stops is the number of stops, named S1..Sn
	Stops int `mapstructure:"stops"`
	// StopCapacity is the passenger ceiling per stop
	StopCapacity int `mapstructure:"stop_capacity"`
	// Passengers is the number of passengers, named P1..Pn
	Passengers int `mapstructure:"passengers"`
	// InitialBalance is each passenger's starting balance
	InitialBalance float64 `mapstructure:"initial_balance"`
	// Fare is the single-ride price
	Fare float64 `mapstructure:"fare"`
	// PassPrice is the monthly pass price
	PassPrice float64 `mapstructure:"pass_price"`
	// StopConcurrency is how many buses a stop serves at once
	StopConcurrency int `mapstructure:"stop_concurrency"`
}

// ScenarioConfig controls the demo scenario driver
type ScenarioConfig struct {
	// Trips is the number of stop cycles each bus runs (default: 3)
	Trips int `mapstructure:"trips"`
	// WaitTimeoutMs bounds each passenger's wait for a bus (in milliseconds)
	WaitTimeoutMs int `mapstructure:"wait_timeout_ms"`
	// RandSeed fixes the driver's random choices; 0 means time-seeded
	RandSeed int64 `mapstructure:"rand_seed"`
}

// WaitTimeout returns the passenger wait timeout as a time.Duration
func (s *ScenarioConfig) WaitTimeout() time.Duration {
	return time.Duration(s.WaitTimeoutMs) * time.Millisecond
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
		Network: NetworkConfig{
			Buses:           0, // 0/0/0 means the built-in demo network
			BusCapacity:     10,
			Stops:           0,
			StopCapacity:    20,
			Passengers:      0,
			InitialBalance:  10.00,
			Fare:            seed.DefaultFare,
			PassPrice:       seed.DefaultPassPrice,
			StopConcurrency: seed.DefaultStopConcurrency,
		},
		Scenario: ScenarioConfig{
			Trips:         3,
			WaitTimeoutMs: 2000,
			RandSeed:      0,
		},
	}
}

// Seed builds the network seed described by this configuration. A network
// section with zero buses, stops and passengers yields the demo network.
func (c *Config) Seed() *seed.Seed {
	n := c.Network
	if n.Buses == 0 && n.Stops == 0 && n.Passengers == 0 {
		sd := seed.Default()
		sd.Fare = n.Fare
		sd.PassPrice = n.PassPrice
		sd.StopConcurrency = n.StopConcurrency
		return sd
	}

	sd := &seed.Seed{
		Buses:           make(map[string]seed.Bus, n.Buses),
		Stops:           make(map[string]seed.Stop, n.Stops),
		Passengers:      make(map[string]seed.Passenger, n.Passengers),
		Fare:            n.Fare,
		PassPrice:       n.PassPrice,
		StopConcurrency: n.StopConcurrency,
	}
	for i := 1; i <= n.Buses; i++ {
		sd.Buses[fmt.Sprintf("B%d", i)] = seed.Bus{Capacity: n.BusCapacity}
	}
	for i := 1; i <= n.Stops; i++ {
		sd.Stops[fmt.Sprintf("S%d", i)] = seed.Stop{Capacity: n.StopCapacity}
	}
	for i := 1; i <= n.Passengers; i++ {
		sd.Passengers[fmt.Sprintf("P%d", i)] = seed.Passenger{Balance: n.InitialBalance}
	}
	return sd
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)

	// Network defaults
	viper.SetDefault("network.buses", defaults.Network.Buses)
	viper.SetDefault("network.bus_capacity", defaults.Network.BusCapacity)
	viper.SetDefault("network.stops", defaults.Network.Stops)
	viper.SetDefault("network.stop_capacity", defaults.Network.StopCapacity)
	viper.SetDefault("network.passengers", defaults.Network.Passengers)
	viper.SetDefault("network.initial_balance", defaults.Network.InitialBalance)
	viper.SetDefault("network.fare", defaults.Network.Fare)
	viper.SetDefault("network.pass_price", defaults.Network.PassPrice)
	viper.SetDefault("network.stop_concurrency", defaults.Network.StopConcurrency)

	// Scenario defaults
	viper.SetDefault("scenario.trips", defaults.Scenario.Trips)
	viper.SetDefault("scenario.wait_timeout_ms", defaults.Scenario.WaitTimeoutMs)
	viper.SetDefault("scenario.rand_seed", defaults.Scenario.RandSeed)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "transitsync")
	}
	// Fall back to ~/.config/transitsync
	home, err := os.UserHomeDir()
	if err != nil {
		return ".transitsync"
	}
	return filepath.Join(home, ".config", "transitsync")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
