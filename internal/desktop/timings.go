package desktop

import "time"

// Timings carries monotonic microsecond stamps through the pipeline. Capture
// and NetworkRecv are "sided": each host only knows its own half, so they are
// always serialised as an absent value on the wire (see protocol package).
type Timings struct {
	Capture      int64
	EncodeBegin  int64
	EncodeEnd    int64
	NetworkSend  int64
	NetworkRecv  int64
	DecodeBegin  int64
	DecodeEnd    int64
	Present      int64
}

var clockBase = time.Now()

// NowMicros returns a monotonic microsecond timestamp suitable for Timings
// fields. It is not portable across processes or hosts.
func NowMicros() int64 {
	return time.Since(clockBase).Microseconds()
}
