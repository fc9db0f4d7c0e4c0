package coordination

import (
	"time"

	"github.com/mtlsim/transitsync/internal/logging"
	"github.com/mtlsim/transitsync/internal/metrics"
)

// hubConfig holds optional configuration for a Hub.
type hubConfig struct {
	collector    metrics.Collector
	logger       *logging.Logger
	joinTimeout  time.Duration
	pollInterval time.Duration
}

// Option configures a Hub.
type Option func(*hubConfig)

// WithCollector replaces the default aggregating recorder with a
// caller-supplied collector. Hub.Metrics returns nil when this is set.
func WithCollector(c metrics.Collector) Option {
	return func(hc *hubConfig) { hc.collector = c }
}

// WithLogger sets the logger shared by all three coordinators.
func WithLogger(lg *logging.Logger) Option {
	return func(hc *hubConfig) { hc.logger = lg }
}

// WithJoinTimeout bounds how long Stop waits for coordinator waiters to
// drain. A value of 0 uses each coordinator's default.
func WithJoinTimeout(d time.Duration) Option {
	return func(hc *hubConfig) { hc.joinTimeout = d }
}

// WithPollInterval sets the capacity gate's queue poll interval.
// A value of 0 uses the gate default.
func WithPollInterval(d time.Duration) Option {
	return func(hc *hubConfig) { hc.pollInterval = d }
}
