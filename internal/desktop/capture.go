package desktop

import (
	"context"
	"errors"
)

// Rational is a refresh-rate fraction (numerator/denominator), e.g. 60000/1001
// for 59.94Hz.
type Rational struct {
	Num uint32
	Den uint32
}

// Sink receives DesktopUpdate[*Image] values produced by a CaptureSource.
type Sink interface {
	Accept(Update[*Image])
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(Update[*Image])

func (f SinkFunc) Accept(u Update[*Image]) { f(u) }

// CaptureSource produces DesktopUpdate[*Image] at display rate. Concrete
// platform backends (GDI/DXGI/Quartz) are an explicit non-goal; this repo
// ships exactly one reference backend (syntheticcapture.Source).
type CaptureSource interface {
	Resolution() (w, h int)
	RefreshRate() Rational
	SetSink(sink Sink)
	Start(ctx context.Context) error
	Stop()
}

// ErrCaptureFailed is returned by a CaptureSource when the underlying OS
// capture primitive fails fatally. It is not used for the 250ms poll
// timeout, which is not an error condition.
var ErrCaptureFailed = errors.New("desktop: capture failed")

// TightLoopHint is implemented by capture sources that internally block
// waiting for the next frame (e.g. a real DXGI AcquireNextFrame backend),
// letting the caller skip its own pacing ticker.
type TightLoopHint interface {
	TightLoop() bool
}

// CursorProvider is implemented by capture sources that can report cursor
// position independent of the video frame rate.
type CursorProvider interface {
	CursorPosition() (x, y uint32, visible bool)
}
