package telemetry

import "github.com/rs/xid"

// NewTraceID returns a short, sortable, lexicographically-ordered id for a
// single peer's lifetime, used as a log/metrics correlation key that (unlike
// the endpoint address) carries no PII — following the xid usage in
// runZeroInc-sockstats's cmd/exporter_example2.
func NewTraceID() string {
	return xid.New().String()
}
