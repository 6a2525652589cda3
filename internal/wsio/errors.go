package wsio

import "errors"

// ErrQueueFull names a saturated subscriber outbound queue. Nothing in this
// package returns it: Deliver reports a full queue by returning false, and
// the channel evicts that subscriber (spec.md §4.8) instead of surfacing an
// error up the call stack.
var ErrQueueFull = errors.New("wsio: outbound queue full")
