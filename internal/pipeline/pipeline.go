package pipeline

import (
	"context"
	"sync"

	"github.com/jsonmona/twilight/internal/desktop"
	"github.com/jsonmona/twilight/internal/logging"
)

var log = logging.L("pipeline")

// collapseImage merges a dropped *desktop.Image update into its newer
// replacement, matching Update.CollapseFrom's semantics.
func collapseImage(newer, older desktop.Update[*desktop.Image]) desktop.Update[*desktop.Image] {
	newer.CollapseFrom(older)
	return newer
}

// collapseBytes is the same merge for the post-encode stage, where the
// desktop payload is already compressed bytes.
func collapseBytes(newer, older desktop.Update[[]byte]) desktop.Update[[]byte] {
	newer.CollapseFrom(older)
	return newer
}

// Pipeline wires a CaptureSource into an Encoder through a coalescing Slot,
// and exposes the encoded output through a second Slot for C6 (the channel
// multiplexer) to drain. Ported from the original source's
// video/capture_pipeline.rs two-stage thread/channel wiring, generalized
// into goroutines over pipeline.Slot.
type Pipeline struct {
	source  desktop.CaptureSource
	encoder desktop.Encoder

	rawSlot     *Slot[desktop.Update[*desktop.Image]]
	encodedSlot *Slot[desktop.Update[[]byte]]

	cancel context.CancelFunc
	wg     sync.WaitGroup

	errMu sync.Mutex
	err   error
}

// New builds a Pipeline over source and encoder. Neither is started until
// Start is called.
func New(source desktop.CaptureSource, encoder desktop.Encoder) *Pipeline {
	return &Pipeline{
		source:      source,
		encoder:     encoder,
		rawSlot:     NewSlot(collapseImage),
		encodedSlot: NewSlot(collapseBytes),
	}
}

// sinkAdapter adapts the raw Slot to the desktop.Sink interface the capture
// source writes to.
type sinkAdapter struct {
	slot *Slot[desktop.Update[*desktop.Image]]
}

func (a sinkAdapter) Accept(u desktop.Update[*desktop.Image]) {
	a.slot.TrySend(u)
}

// Start launches the capture source and the encode goroutine. Recv on the
// returned encoded Slot (via Encoded()) yields the pipeline's output.
func (p *Pipeline) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.source.SetSink(sinkAdapter{p.rawSlot})
	if err := p.source.Start(ctx); err != nil {
		cancel()
		return err
	}

	p.wg.Add(1)
	go p.encodeLoop(ctx)

	return nil
}

// Encoded returns the Slot carrying the pipeline's compressed output,
// ready for C6 to drain and fan out to subscribers.
func (p *Pipeline) Encoded() *Slot[desktop.Update[[]byte]] {
	return p.encodedSlot
}

// Err returns the fatal error that tore the pipeline down, if any. An
// encode failure (for example a resolution change) sets this before the
// encoded slot closes.
func (p *Pipeline) Err() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.err
}

func (p *Pipeline) setErr(err error) {
	p.errMu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.errMu.Unlock()
}

// Stop tears the pipeline down: stops the capture source, cancels the
// encode loop, and closes the encoded slot so downstream consumers unblock.
func (p *Pipeline) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.source.Stop()
	p.rawSlot.Close()
	p.wg.Wait()
	p.encodedSlot.Close()
}

func (p *Pipeline) encodeLoop(ctx context.Context) {
	defer p.wg.Done()
	defer p.encodedSlot.Close()

	for {
		update, ok := p.rawSlot.Recv()
		if !ok {
			return
		}

		select {
		case <-ctx.Done():
			return
		default:
		}

		update.Timings.EncodeBegin = desktop.NowMicros()
		encoded, err := p.encoder.Encode(update.Desktop)
		if err != nil {
			log.Error("encode failed, tearing down pipeline", "error", err)
			p.setErr(err)
			return
		}
		out := desktop.WithDesktop(update, encoded)
		out.Timings.EncodeEnd = desktop.NowMicros()

		if !p.encodedSlot.TrySend(out) {
			return
		}
	}
}
