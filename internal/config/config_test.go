package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if !cfg.Logging.Enabled {
		t.Error("Logging.Enabled should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}

	if cfg.Network.Fare != 3.50 {
		t.Errorf("Network.Fare = %v, want 3.50", cfg.Network.Fare)
	}
	if cfg.Network.PassPrice != 45.00 {
		t.Errorf("Network.PassPrice = %v, want 45.00", cfg.Network.PassPrice)
	}
	if cfg.Network.StopConcurrency != 2 {
		t.Errorf("Network.StopConcurrency = %d, want 2", cfg.Network.StopConcurrency)
	}

	if cfg.Scenario.Trips != 3 {
		t.Errorf("Scenario.Trips = %d, want 3", cfg.Scenario.Trips)
	}
}

func TestWaitTimeout(t *testing.T) {
	s := ScenarioConfig{WaitTimeoutMs: 1500}
	if got := s.WaitTimeout(); got != 1500*time.Millisecond {
		t.Errorf("WaitTimeout() = %v, want 1.5s", got)
	}
}

func TestSeedDemoNetwork(t *testing.T) {
	cfg := Default()
	sd := cfg.Seed()

	if len(sd.Buses) == 0 || len(sd.Stops) == 0 || len(sd.Passengers) == 0 {
		t.Fatal("demo seed should not be empty")
	}
	if sd.Fare != cfg.Network.Fare {
		t.Errorf("seed fare = %v, want %v", sd.Fare, cfg.Network.Fare)
	}
	if err := sd.Validate(); err != nil {
		t.Errorf("demo seed should validate: %v", err)
	}
}

func TestSeedGeneratedNetwork(t *testing.T) {
	cfg := Default()
	cfg.Network.Buses = 4
	cfg.Network.Stops = 5
	cfg.Network.Passengers = 12
	cfg.Network.InitialBalance = 7.25

	sd := cfg.Seed()
	if len(sd.Buses) != 4 {
		t.Errorf("len(Buses) = %d, want 4", len(sd.Buses))
	}
	if len(sd.Stops) != 5 {
		t.Errorf("len(Stops) = %d, want 5", len(sd.Stops))
	}
	if len(sd.Passengers) != 12 {
		t.Errorf("len(Passengers) = %d, want 12", len(sd.Passengers))
	}

	b, ok := sd.Buses["B4"]
	if !ok {
		t.Fatal("generated seed missing bus B4")
	}
	if b.Capacity != cfg.Network.BusCapacity {
		t.Errorf("B4 capacity = %d, want %d", b.Capacity, cfg.Network.BusCapacity)
	}
	p, ok := sd.Passengers["P12"]
	if !ok {
		t.Fatal("generated seed missing passenger P12")
	}
	if p.Balance != 7.25 {
		t.Errorf("P12 balance = %v, want 7.25", p.Balance)
	}

	if err := sd.Validate(); err != nil {
		t.Errorf("generated seed should validate: %v", err)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	SetDefaults()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Network.Fare != 3.50 {
		t.Errorf("Network.Fare = %v, want 3.50", cfg.Network.Fare)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	SetDefaults()
	viper.Set("network.fare", -1.0)

	if _, err := Load(); err == nil {
		t.Error("Load() should reject a negative fare")
	}
}
