package rtgpserver

import (
	"github.com/rtype-net/rtgp/internal/connstate"
	"github.com/rtype-net/rtgp/internal/reliable"
)

// peer is the server's per-connection state: one per connected client,
// keyed by its transport endpoint string.
type peer struct {
	endpoint string
	userID   uint32
	traceID  string
	machine  *connstate.Machine
	channel  *reliable.Channel
}
