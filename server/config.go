// Package rtgpserver is the server-side orchestrator (Section 4.7): one
// Server accepts connections from many clients over a single bound socket,
// tracking a connstate.Machine and reliable.Channel per peer plus a
// server-wide security.Context for anti-replay and user-id binding.
package rtgpserver

import (
	"errors"
	"time"

	"github.com/rtype-net/rtgp/internal/connstate"
	"github.com/rtype-net/rtgp/internal/reliable"
	"github.com/rtype-net/rtgp/internal/telemetry"
)

// ErrNoFreeUserIDs is returned when every id in the client range is already
// assigned to a live peer.
var ErrNoFreeUserIDs = errors.New("rtgpserver: no free user ids")

// ErrServerFull is returned by the connect handler when MaxPlayers is
// already reached.
var ErrServerFull = errors.New("rtgpserver: server full")

// BanPredicate reports whether a connecting endpoint/user should be
// rejected outright, for the optional ban-integration collaborator
// (Section 4.7) — e.g. backed by a persistence layer outside this module.
type BanPredicate func(endpoint string, userID uint32) bool

// Config holds everything the server orchestrator needs to run.
type Config struct {
	Logger                 telemetry.Sink
	Collector              *telemetry.Collector
	ConnState              connstate.Config
	Reliable               reliable.Config
	TickInterval           time.Duration
	MaxPlayers             int
	StaleConnectionTimeout time.Duration
	EventQueueSize         int
	IsBanned               BanPredicate
}

// DefaultConfig returns the protocol's documented defaults, a 16-player
// cap, a 30s stale-connection sweep window, and no ban predicate.
func DefaultConfig() Config {
	return Config{
		Logger:                 telemetry.NoopSink{},
		ConnState:              connstate.DefaultConfig(),
		Reliable:               reliable.DefaultConfig(),
		TickInterval:           50 * time.Millisecond,
		MaxPlayers:             16,
		StaleConnectionTimeout: 30 * time.Second,
		EventQueueSize:         1024,
	}
}

// Option configures a Config in place.
type Option func(*Config)

func WithLogger(s telemetry.Sink) Option           { return func(c *Config) { c.Logger = s } }
func WithCollector(m *telemetry.Collector) Option  { return func(c *Config) { c.Collector = m } }
func WithConnStateConfig(cfg connstate.Config) Option {
	return func(c *Config) { c.ConnState = cfg }
}
func WithReliableConfig(cfg reliable.Config) Option { return func(c *Config) { c.Reliable = cfg } }
func WithTickInterval(d time.Duration) Option       { return func(c *Config) { c.TickInterval = d } }
func WithMaxPlayers(n int) Option                   { return func(c *Config) { c.MaxPlayers = n } }
func WithStaleConnectionTimeout(d time.Duration) Option {
	return func(c *Config) { c.StaleConnectionTimeout = d }
}
func WithEventQueueSize(n int) Option    { return func(c *Config) { c.EventQueueSize = n } }
func WithBanPredicate(p BanPredicate) Option { return func(c *Config) { c.IsBanned = p } }
