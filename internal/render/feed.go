// Package render implements the renderer feed (C12): a single-slot
// coalescing channel between the decode stage and a presentation
// callback, reusing pipeline.Slot — the same coalescing primitive C4
// uses on the capture side (spec.md §4.11).
package render

import (
	"context"
	"sync"

	"github.com/jsonmona/twilight/internal/desktop"
	"github.com/jsonmona/twilight/internal/pipeline"
)

// PresentFunc is invoked once for each coalesced frame the present loop
// receives; there is no display tick or vsync pacing. Because a concrete GPU compositor is a non-goal, this
// repo's only consumer is a structured-log/PNG-dump sink, but the type is
// the same shape a real window surface would implement.
type PresentFunc func(img *desktop.Image, cursor *desktop.CursorState)

func collapse(newer, older desktop.Update[*desktop.Image]) desktop.Update[*desktop.Image] {
	newer.CollapseFrom(older)
	return newer
}

// Feed wraps a pipeline.Slot on the receive side: the decode goroutine
// calls Accept, and a dedicated present loop calls the configured
// PresentFunc at its own pace, coalescing frames per spec.md §4.3 when it
// falls behind.
type Feed struct {
	slot    *pipeline.Slot[desktop.Update[*desktop.Image]]
	present PresentFunc

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewFeed builds a Feed that calls present for every coalesced frame.
func NewFeed(present PresentFunc) *Feed {
	return &Feed{slot: pipeline.NewSlot(collapse), present: present}
}

// Accept implements desktop.Sink, letting the decode stage feed this Feed
// directly.
func (f *Feed) Accept(u desktop.Update[*desktop.Image]) {
	f.slot.TrySend(u)
}

// Start launches the present loop, which blocks on Recv and calls
// present for every frame until ctx is cancelled or Stop is called.
func (f *Feed) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		for {
			update, ok := f.slot.Recv()
			if !ok {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			f.present(update.Desktop, update.Cursor)
		}
	}()
}

// Stop closes the feed and waits for the present loop to exit.
func (f *Feed) Stop() {
	if f.cancel != nil {
		f.cancel()
	}
	f.slot.Close()
	f.wg.Wait()
}
