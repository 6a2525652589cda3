package desktop

// Update is a single tick of the capture stream, parameterised over whatever
// representation the current pipeline stage works with: *Image (raw),
// []byte (compressed), or struct{} (cursor-only). Ported from the original
// source's DesktopUpdate<T> (util/desktop_update.rs).
type Update[T any] struct {
	Cursor  *CursorState
	Timings Timings
	Desktop T
}

// WithDesktop replaces the desktop payload, producing an Update over a new
// type R while keeping cursor/timings untouched.
func WithDesktop[T, R any](u Update[T], desktop R) Update[R] {
	return Update[R]{Cursor: u.Cursor, Timings: u.Timings, Desktop: desktop}
}

// AndThenDesktop fallibly maps the desktop payload. If fn returns an error,
// the zero Update[R] and that error are returned.
func AndThenDesktop[T, R any](u Update[T], fn func(T) (R, error)) (Update[R], error) {
	desktop, err := fn(u.Desktop)
	if err != nil {
		var zero Update[R]
		return zero, err
	}
	return Update[R]{Cursor: u.Cursor, Timings: u.Timings, Desktop: desktop}, nil
}

// CollapseFrom merges a dropped earlier update (prev) into u, which is the
// newer value about to replace it in a coalescing slot. The desktop field of
// u always wins (it is strictly newer); the cursor position is taken from
// whichever update carries one, preferring u, and the cursor shape is the
// most recent non-nil shape between the two.
func (u *Update[T]) CollapseFrom(prev Update[T]) {
	if u.Cursor == nil {
		u.Cursor = prev.Cursor
		return
	}
	if prev.Cursor != nil && u.Cursor.Shape == nil {
		u.Cursor.Shape = prev.Cursor.Shape
	}
}

// CollapseFromIter merges a batch of dropped earlier updates into u, in the
// order they were produced. This is the multi-update drain variant used when
// more than one update accumulated behind a stalled consumer.
func (u *Update[T]) CollapseFromIter(prev []Update[T]) {
	var cursor *CursorState
	var shape *CursorShape

	for _, p := range prev {
		if p.Cursor != nil {
			c := *p.Cursor
			if c.Shape != nil {
				shape = c.Shape
				c.Shape = nil
			}
			cursor = &c
		}
	}

	if u.Cursor == nil {
		u.Cursor = cursor
	}
	if u.Cursor != nil && u.Cursor.Shape == nil {
		u.Cursor.Shape = shape
	}
}
