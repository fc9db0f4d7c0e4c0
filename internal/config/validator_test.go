package config

import (
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	cfg := Default()
	errs := cfg.Validate()
	if len(errs) != 0 {
		t.Errorf("Default config should validate cleanly, got %d errors: %v", len(errs), ValidationErrors(errs))
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "bad log level",
			mutate:    func(c *Config) { c.Logging.Level = "loud" },
			wantField: "logging.level",
		},
		{
			name:      "negative buses",
			mutate:    func(c *Config) { c.Network.Buses = -1 },
			wantField: "network.buses",
		},
		{
			name: "zero bus capacity with buses",
			mutate: func(c *Config) {
				c.Network.Buses = 2
				c.Network.BusCapacity = 0
			},
			wantField: "network.bus_capacity",
		},
		{
			name: "zero stop capacity with stops",
			mutate: func(c *Config) {
				c.Network.Stops = 2
				c.Network.StopCapacity = 0
			},
			wantField: "network.stop_capacity",
		},
		{
			name:      "negative initial balance",
			mutate:    func(c *Config) { c.Network.InitialBalance = -0.01 },
			wantField: "network.initial_balance",
		},
		{
			name:      "zero fare",
			mutate:    func(c *Config) { c.Network.Fare = 0 },
			wantField: "network.fare",
		},
		{
			name:      "negative pass price",
			mutate:    func(c *Config) { c.Network.PassPrice = -45 },
			wantField: "network.pass_price",
		},
		{
			name:      "zero stop concurrency",
			mutate:    func(c *Config) { c.Network.StopConcurrency = 0 },
			wantField: "network.stop_concurrency",
		},
		{
			name:      "zero trips",
			mutate:    func(c *Config) { c.Scenario.Trips = 0 },
			wantField: "scenario.trips",
		},
		{
			name:      "zero wait timeout",
			mutate:    func(c *Config) { c.Scenario.WaitTimeoutMs = 0 },
			wantField: "scenario.wait_timeout_ms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			errs := cfg.Validate()
			if len(errs) == 0 {
				t.Fatalf("expected a validation error for %s", tt.wantField)
			}
			found := false
			for _, e := range errs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected an error for field %s, got: %v", tt.wantField, ValidationErrors(errs))
			}
		})
	}
}

func TestValidLogLevels(t *testing.T) {
	levels := ValidLogLevels()
	if len(levels) != 4 {
		t.Errorf("ValidLogLevels() returned %d levels, want 4", len(levels))
	}
}
