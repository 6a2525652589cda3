package channel

import "errors"

// ErrNoChannelAvailable is returned by Open when a full sweep of the 16-bit
// id space finds every id already in use (spec.md §4.5).
var ErrNoChannelAvailable = errors.New("channel: no channel id available")
