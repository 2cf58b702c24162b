// Package reliable implements the per-peer selective-repeat reliable channel
// (Section 5 of the protocol): outgoing frame tracking with retransmit
// timers, and incoming duplicate/anti-replay tracking with a sliding window
// of recently-seen sequence ids. It holds no socket and sends nothing
// itself — Tick reports which frames are due for retransmission or have
// exceeded their retry budget, and the orchestrator (client/server package)
// does the actual write.
//
// The map-of-pending-frames-by-sequence-id shape follows the teacher's
// Session.PendingACK design (source/protocol/raknet.go): a mutex-guarded map
// keyed by sequence number, with explicit Store/Get/Delete accessors rather
// than exposing the map directly.
package reliable

import (
	"sync"
	"time"
)

// Config tunes the channel's retransmit behavior (Section 5.2 defaults).
type Config struct {
	RetransmitTimeout time.Duration
	MaxRetries        int
	ReplayWindowSize  int
}

// DefaultConfig returns the protocol's documented defaults.
func DefaultConfig() Config {
	return Config{
		RetransmitTimeout: 200 * time.Millisecond,
		MaxRetries:        5,
		ReplayWindowSize:  1000,
	}
}

// outgoingFrame tracks one reliable frame awaiting acknowledgment.
type outgoingFrame struct {
	data    []byte
	sentAt  time.Time
	retries int
	acked   bool
}

// Channel is the reliable-delivery state for a single peer: one instance per
// connection, not shared across peers.
type Channel struct {
	cfg Config

	mu       sync.Mutex
	outgoing map[uint16]*outgoingFrame
	nextSeq  uint16

	received        map[uint16]struct{}
	receivedOrder   []uint16
	lastReceivedSeq uint16
	haveReceived    bool
}

// New creates a Channel with cfg. Pass DefaultConfig() for the protocol's
// standard timings.
func New(cfg Config) *Channel {
	return &Channel{
		cfg:      cfg,
		outgoing: make(map[uint16]*outgoingFrame),
		received: make(map[uint16]struct{}),
	}
}

// NextSeq returns the next outgoing sequence id and advances the counter,
// wrapping at 16 bits.
func (c *Channel) NextSeq() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	seq := c.nextSeq
	c.nextSeq++
	return seq
}

// TrackOutgoing records data as sent under seq, so Tick can retransmit it
// until it is acked or the retry budget is exhausted.
func (c *Channel) TrackOutgoing(seq uint16, data []byte, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	c.outgoing[seq] = &outgoingFrame{data: buf, sentAt: now}
}

// RecordAck marks seq as acknowledged, removing it from retransmission
// tracking. Acking an unknown or already-acked seq is a no-op.
func (c *Channel) RecordAck(seq uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.outgoing, seq)
}

// PendingCount reports how many outgoing frames are still awaiting ack.
func (c *Channel) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.outgoing)
}

// RetransmitDue is one frame Tick determined needs to be resent.
type RetransmitDue struct {
	SeqID uint16
	Data  []byte
}

// Tick advances retransmit timers and returns the frames due for resend, and
// the sequence ids of frames that have exceeded MaxRetries (the caller
// should treat these as a fatal reliability failure for the connection —
// Section 5.2). Expired frames are removed from tracking so they are not
// reported again.
func (c *Channel) Tick(now time.Time) (due []RetransmitDue, expired []uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for seq, f := range c.outgoing {
		if now.Sub(f.sentAt) < c.cfg.RetransmitTimeout {
			continue
		}
		if f.retries >= c.cfg.MaxRetries {
			expired = append(expired, seq)
			delete(c.outgoing, seq)
			continue
		}
		f.retries++
		f.sentAt = now
		due = append(due, RetransmitDue{SeqID: seq, Data: f.data})
	}
	return due, expired
}

// seqGreater reports whether a is later than b in sequence-id space, using
// the wrap-aware 16-bit signed-difference comparison named in Section 5.3:
// treating the difference as an int16 correctly handles one wraparound of
// the 16-bit space in either direction.
func seqGreater(a, b uint16) bool {
	return int16(a-b) > 0
}

// IsDuplicate reports whether seq has already been delivered on this
// channel — either because it falls outside the replay window behind the
// highest sequence seen, or because it is explicitly recorded as received.
func (c *Channel) IsDuplicate(seq uint16) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isDuplicateLocked(seq)
}

func (c *Channel) isDuplicateLocked(seq uint16) bool {
	if _, ok := c.received[seq]; ok {
		return true
	}
	if !c.haveReceived {
		return false
	}
	// Anything at or behind the trailing edge of the window is treated as a
	// replay even if we never individually recorded it (it aged out).
	if !seqGreater(seq, c.lastReceivedSeq) && c.lastReceivedSeq != seq {
		distance := uint16(c.lastReceivedSeq - seq)
		if int(distance) >= c.cfg.ReplayWindowSize {
			return true
		}
	}
	return false
}

// RecordReceived marks seq as delivered, advancing the high-water mark and
// evicting the oldest entries once the window exceeds its configured size
// (Section 5.3). Returns false without modifying state if seq is a
// duplicate.
func (c *Channel) RecordReceived(seq uint16) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isDuplicateLocked(seq) {
		return false
	}
	c.received[seq] = struct{}{}
	c.receivedOrder = append(c.receivedOrder, seq)
	if !c.haveReceived || seqGreater(seq, c.lastReceivedSeq) {
		c.lastReceivedSeq = seq
		c.haveReceived = true
	}
	c.evictLocked()
	return true
}

func (c *Channel) evictLocked() {
	for len(c.receivedOrder) > c.cfg.ReplayWindowSize {
		oldest := c.receivedOrder[0]
		c.receivedOrder = c.receivedOrder[1:]
		delete(c.received, oldest)
	}
}

// LastReceivedSeqID returns the highest sequence id accepted so far, and
// whether any frame has been received at all (the channel's initial state
// has no "last" id to compare against).
func (c *Channel) LastReceivedSeqID() (uint16, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastReceivedSeq, c.haveReceived
}

// Clear drops all outgoing and incoming tracking state — used when a
// connection resets (Section 5.4: a fresh Connect gets a fresh channel).
func (c *Channel) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outgoing = make(map[uint16]*outgoingFrame)
	c.received = make(map[uint16]struct{})
	c.receivedOrder = nil
	c.lastReceivedSeq = 0
	c.haveReceived = false
	c.nextSeq = 0
}
