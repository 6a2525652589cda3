package desktop

// CursorShape is the cursor bitmap plus blend mode and hotspot. It is only
// attached to a CursorState when the OS reports the shape actually changed.
type CursorShape struct {
	Image    *Image
	XOR      bool
	HotspotX float32
	HotspotY float32
}

// CursorState is the cursor half of a DesktopUpdate. Shape is present only
// when it changed since the previous update; receivers must memoise the
// last-seen shape (§9 "cursor shape memoisation").
type CursorState struct {
	Visible bool
	X       uint32
	Y       uint32
	Shape   *CursorShape
}

// Clone deep-copies the cursor state, including the shape image if present.
func (c *CursorState) Clone() *CursorState {
	if c == nil {
		return nil
	}
	out := &CursorState{Visible: c.Visible, X: c.X, Y: c.Y}
	if c.Shape != nil {
		out.Shape = &CursorShape{
			Image:    c.Shape.Image.Clone(),
			XOR:      c.Shape.XOR,
			HotspotX: c.Shape.HotspotX,
			HotspotY: c.Shape.HotspotY,
		}
	}
	return out
}
