// Package rtgpclient is the client-side orchestrator (Section 4.6): it
// wires the wire codec/validator, the reliable channel, and the connection
// state machine to an abstract transport.Socket, exposing a small
// send/poll API to the application.
package rtgpclient

import (
	"time"

	"github.com/rtype-net/rtgp/internal/connstate"
	"github.com/rtype-net/rtgp/internal/reliable"
	"github.com/rtype-net/rtgp/internal/telemetry"
)

// Config holds everything an orchestrator needs to run, following the
// teacher's loadConfig() -> Config struct shape (core/main.go) generalized
// into exported, composable functional options instead of one hardcoded
// constructor body (TOML parsing itself is out of scope; see SPEC_FULL.md
// §1.4).
type Config struct {
	Logger         telemetry.Sink
	Collector      *telemetry.Collector
	ConnState      connstate.Config
	Reliable       reliable.Config
	TickInterval   time.Duration
	EventQueueSize int
}

// DefaultConfig returns sane defaults: the protocol's documented timers
// (connstate.DefaultConfig, reliable.DefaultConfig), a 50ms tick interval,
// a no-op logger, and no metrics collector.
func DefaultConfig() Config {
	return Config{
		Logger:         telemetry.NoopSink{},
		ConnState:      connstate.DefaultConfig(),
		Reliable:       reliable.DefaultConfig(),
		TickInterval:   50 * time.Millisecond,
		EventQueueSize: 256,
	}
}

// Option configures a Config in place.
type Option func(*Config)

// WithLogger installs a telemetry.Sink for lifecycle/error events.
func WithLogger(s telemetry.Sink) Option {
	return func(c *Config) { c.Logger = s }
}

// WithCollector installs a telemetry.Collector for metrics.
func WithCollector(m *telemetry.Collector) Option {
	return func(c *Config) { c.Collector = m }
}

// WithConnStateConfig overrides the connection state machine's timers.
func WithConnStateConfig(cfg connstate.Config) Option {
	return func(c *Config) { c.ConnState = cfg }
}

// WithReliableConfig overrides the reliable channel's retransmit tuning.
func WithReliableConfig(cfg reliable.Config) Option {
	return func(c *Config) { c.Reliable = cfg }
}

// WithTickInterval overrides how often Run drives Tick.
func WithTickInterval(d time.Duration) Option {
	return func(c *Config) { c.TickInterval = d }
}

// WithEventQueueSize overrides the buffered event channel's capacity.
func WithEventQueueSize(n int) Option {
	return func(c *Config) { c.EventQueueSize = n }
}
