package desktop

// MonitorInfo describes one capturable display, matching the wire shape
// returned by GET /capture/desktop.
type MonitorInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	RefreshRate Rational `json:"refreshRate"`
}
