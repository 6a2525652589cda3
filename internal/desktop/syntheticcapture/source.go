// Package syntheticcapture is the one reference desktop.CaptureSource this
// repo ships. Real GDI/DXGI/Quartz backends are an explicit non-goal; this
// backend renders a procedurally animated desktop so the capture→encode→
// multiplex pipeline can be driven and tested without platform FFI.
package syntheticcapture

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/jsonmona/twilight/internal/desktop"
	"github.com/jsonmona/twilight/internal/logging"
)

var log = logging.L("syntheticcapture")

// captureTimeout mirrors the 250ms OS-capture poll timeout from spec.md §4.1.
const captureTimeout = 250 * time.Millisecond

// Source is a desktop.CaptureSource that paints a moving gradient and a
// blinking synthetic cursor at a configured refresh rate.
type Source struct {
	width, height int
	refreshHz     float64

	mu      sync.Mutex
	sink    desktop.Sink
	stop    context.CancelFunc
	wg      sync.WaitGroup
	started bool

	lastImage *desktop.Image
	lastShape *desktop.CursorShape
	frame     int
}

// New creates a synthetic source rendering at width x height and refreshHz.
func New(width, height int, refreshHz float64) *Source {
	if refreshHz <= 0 {
		refreshHz = 30
	}
	return &Source{width: width, height: height, refreshHz: refreshHz}
}

func (s *Source) Resolution() (w, h int) {
	return s.width, s.height
}

func (s *Source) RefreshRate() desktop.Rational {
	// Represent refreshHz as a rational with a millihertz denominator so
	// fractional rates (e.g. 29.97) survive without loss.
	return desktop.Rational{Num: uint32(s.refreshHz * 1000), Den: 1000}
}

func (s *Source) SetSink(sink desktop.Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

// TightLoop reports false: this backend paces itself with a ticker rather
// than blocking on a real OS primitive.
func (s *Source) TightLoop() bool { return false }

func (s *Source) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	ctx, cancel := context.WithCancel(ctx)
	s.stop = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

func (s *Source) Stop() {
	s.mu.Lock()
	stop := s.stop
	s.started = false
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	s.wg.Wait()
}

func (s *Source) loop(ctx context.Context) {
	defer s.wg.Done()

	interval := time.Duration(float64(time.Second) / s.refreshHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("synthetic capture stopped")
			return
		case <-ticker.C:
			s.tick()
		case <-time.After(captureTimeout):
			// The 250ms timer is re-armed on every iteration, so this
			// cursor-only path runs only when no tick arrives within
			// 250ms, i.e. when the configured rate is below 4 Hz.
			s.cursorOnlyTick()
		}
	}
}

func (s *Source) tick() {
	s.mu.Lock()
	sink := s.sink
	s.frame++
	frame := s.frame
	s.mu.Unlock()

	if sink == nil {
		return
	}

	img := s.render(frame)
	cursor := s.cursorState(frame)

	s.mu.Lock()
	s.lastImage = img
	s.mu.Unlock()

	sink.Accept(desktop.Update[*desktop.Image]{
		Cursor:  cursor,
		Timings: desktop.Timings{Capture: desktop.NowMicros()},
		Desktop: img,
	})
}

// cursorOnlyTick re-sends the last captured image (not re-sampled) together
// with the current cursor position, for the "no present since last frame
// but cursor changed" branch of spec.md §4.1.
func (s *Source) cursorOnlyTick() {
	s.mu.Lock()
	sink := s.sink
	last := s.lastImage
	frame := s.frame
	s.mu.Unlock()

	if sink == nil || last == nil {
		return
	}

	sink.Accept(desktop.Update[*desktop.Image]{
		Cursor:  s.cursorState(frame),
		Timings: desktop.Timings{Capture: desktop.NowMicros()},
		Desktop: last,
	})
}

// render paints a diagonally scrolling gradient into a fresh BGRA8888 image.
func (s *Source) render(frame int) *desktop.Image {
	stride := (s.width*4 + 3) &^ 3
	pix := make([]byte, stride*s.height)
	offset := byte(frame * 2)

	for y := 0; y < s.height; y++ {
		row := pix[y*stride:]
		for x := 0; x < s.width; x++ {
			i := x * 4
			row[i+0] = byte(x) + offset        // B
			row[i+1] = byte(y) + offset         // G
			row[i+2] = byte(x+y) - offset       // R
			row[i+3] = 0xFF                     // A
		}
	}

	img, err := desktop.NewImage(s.width, s.height, stride, desktop.PixelFormatBGRA8888, pix)
	if err != nil {
		// NewImage only fails on programmer error in the constants above.
		panic(err)
	}
	return img
}

// cursorState produces a blinking cursor that moves in a small circle, with
// a shape attached only every 30 frames to simulate a real OS's infrequent
// shape-change signal.
func (s *Source) cursorState(frame int) *desktop.CursorState {
	const radius = 40
	angle := float64(frame) * 0.05
	cx := s.width/2 + int(radius*math.Cos(angle))
	cy := s.height/2 + int(radius*math.Sin(angle))

	state := &desktop.CursorState{
		Visible: (frame/15)%2 == 0,
		X:       uint32(max(cx, 0)),
		Y:       uint32(max(cy, 0)),
	}

	if frame%30 == 0 {
		s.mu.Lock()
		s.lastShape = newArrowShape()
		s.mu.Unlock()
	}
	s.mu.Lock()
	shape := s.lastShape
	s.mu.Unlock()
	if frame%30 == 0 {
		state.Shape = shape
	}

	return state
}

func newArrowShape() *desktop.CursorShape {
	const size = 16
	stride := size * 4
	pix := make([]byte, stride*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size-y; x++ {
			i := y*stride + x*4
			pix[i+0] = 0xFF
			pix[i+1] = 0xFF
			pix[i+2] = 0xFF
			pix[i+3] = 0xFF
		}
	}
	img, _ := desktop.NewImage(size, size, stride, desktop.PixelFormatBGRA8888, pix)
	return &desktop.CursorShape{Image: img, XOR: false, HotspotX: 0, HotspotY: 0}
}
