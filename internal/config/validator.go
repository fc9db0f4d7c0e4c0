package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "network.bus_capacity")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateNetwork()...)
	errors = append(errors, c.validateScenario()...)

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateNetwork() []ValidationError {
	var errors []ValidationError
	n := c.Network

	if n.Buses < 0 {
		errors = append(errors, ValidationError{
			Field:   "network.buses",
			Value:   n.Buses,
			Message: "must not be negative",
		})
	}
	if n.Stops < 0 {
		errors = append(errors, ValidationError{
			Field:   "network.stops",
			Value:   n.Stops,
			Message: "must not be negative",
		})
	}
	if n.Passengers < 0 {
		errors = append(errors, ValidationError{
			Field:   "network.passengers",
			Value:   n.Passengers,
			Message: "must not be negative",
		})
	}
	if n.Buses > 0 && n.BusCapacity < 1 {
		errors = append(errors, ValidationError{
			Field:   "network.bus_capacity",
			Value:   n.BusCapacity,
			Message: "must be at least 1",
		})
	}
	if n.Stops > 0 && n.StopCapacity < 1 {
		errors = append(errors, ValidationError{
			Field:   "network.stop_capacity",
			Value:   n.StopCapacity,
			Message: "must be at least 1",
		})
	}
	if n.InitialBalance < 0 {
		errors = append(errors, ValidationError{
			Field:   "network.initial_balance",
			Value:   n.InitialBalance,
			Message: "must not be negative",
		})
	}
	if n.Fare <= 0 {
		errors = append(errors, ValidationError{
			Field:   "network.fare",
			Value:   n.Fare,
			Message: "must be positive",
		})
	}
	if n.PassPrice <= 0 {
		errors = append(errors, ValidationError{
			Field:   "network.pass_price",
			Value:   n.PassPrice,
			Message: "must be positive",
		})
	}
	if n.StopConcurrency < 1 {
		errors = append(errors, ValidationError{
			Field:   "network.stop_concurrency",
			Value:   n.StopConcurrency,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateScenario() []ValidationError {
	var errors []ValidationError

	if c.Scenario.Trips < 1 {
		errors = append(errors, ValidationError{
			Field:   "scenario.trips",
			Value:   c.Scenario.Trips,
			Message: "must be at least 1",
		})
	}
	if c.Scenario.WaitTimeoutMs < 1 {
		errors = append(errors, ValidationError{
			Field:   "scenario.wait_timeout_ms",
			Value:   c.Scenario.WaitTimeoutMs,
			Message: "must be at least 1",
		})
	}

	return errors
}
