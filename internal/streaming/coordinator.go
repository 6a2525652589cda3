// Package streaming wires a capture pipeline onto a session's channel:
// it implements controlplane.CaptureStarter, translating
// pipeline.Pipeline output into wire frames via internal/protocol and
// publishing them through channel.Multiplexer.Send. This is the
// concrete "server begins publishing to ch" step named in spec.md §4.7.
package streaming

import (
	"context"
	"fmt"
	"sync"

	"github.com/jsonmona/twilight/internal/desktop"
	"github.com/jsonmona/twilight/internal/logging"
	"github.com/jsonmona/twilight/internal/pipeline"
	"github.com/jsonmona/twilight/internal/protocol"
	"github.com/jsonmona/twilight/internal/session"
)

var log = logging.L("streaming")

// SourceFactory builds a fresh capture source for the given monitor id.
type SourceFactory func(monitorID string) (desktop.CaptureSource, error)

// EncoderFactory builds a fresh encoder for a new pipeline. A fresh
// encoder per pipeline keeps each stream's resolution-lock independent.
type EncoderFactory func() desktop.Encoder

// Coordinator starts and tracks one capture pipeline per (session,
// channel) pair.
type Coordinator struct {
	newSource  SourceFactory
	newEncoder EncoderFactory

	mu     sync.Mutex
	active map[key]*running
}

type key struct {
	session session.ID
	channel uint16
}

type running struct {
	pipeline *pipeline.Pipeline
	cancel   context.CancelFunc
}

// NewCoordinator builds a Coordinator using the given factories.
func NewCoordinator(newSource SourceFactory, newEncoder EncoderFactory) *Coordinator {
	return &Coordinator{
		newSource:  newSource,
		newEncoder: newEncoder,
		active:     make(map[key]*running),
	}
}

// StartCapture implements controlplane.CaptureStarter: it builds a
// pipeline for monitorID, starts it, and spawns a forwarding goroutine
// that turns each encoded update into wire frames sent on ch.
func (c *Coordinator) StartCapture(sess *session.Session, ch uint16, monitorID string) error {
	k := key{session: sess.ID, channel: ch}

	c.mu.Lock()
	if _, exists := c.active[k]; exists {
		c.mu.Unlock()
		return fmt.Errorf("streaming: capture already running on channel %d", ch)
	}
	c.mu.Unlock()

	source, err := c.newSource(monitorID)
	if err != nil {
		return fmt.Errorf("streaming: building capture source: %w", err)
	}
	encoder := c.newEncoder()

	p := pipeline.New(source, encoder)
	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx); err != nil {
		cancel()
		return fmt.Errorf("streaming: starting pipeline: %w", err)
	}

	r := &running{pipeline: p, cancel: cancel}
	c.mu.Lock()
	c.active[k] = r
	c.mu.Unlock()

	w, h := source.Resolution()
	start := protocol.NotifyVideoStart{Stream: ch, Width: uint32(w), Height: uint32(h), Codec: protocol.CodecJPEG}
	startFrame := protocol.BuildFrame(ch, protocol.EncodeSchema(protocol.KindNotifyVideoStart, start.Marshal()), nil)
	sess.Channels.Send(ch, startFrame)

	go c.forward(sess, ch, p)

	return nil
}

// forward drains the pipeline's encoded Slot and publishes a VideoFrame
// wire message for each update, until the pipeline tears itself down
// (capture failure, resolution change) or the channel is closed.
func (c *Coordinator) forward(sess *session.Session, ch uint16, p *pipeline.Pipeline) {
	defer func() {
		c.mu.Lock()
		delete(c.active, key{session: sess.ID, channel: ch})
		c.mu.Unlock()
		p.Stop()
	}()

	var lastShape *desktop.CursorShape

	for {
		update, ok := p.Encoded().Recv()
		if !ok {
			if err := p.Err(); err != nil {
				log.Warn("pipeline ended with error", "channel", ch, "error", err)
			}
			return
		}
		if _, open := sess.Channels.Get(ch); !open {
			return
		}

		msg := protocol.VideoFrame{
			VideoBytes: uint64(len(update.Desktop)),
			Timings:    desktopTimingsToWire(update.Timings),
		}

		if update.Cursor != nil {
			cu := &protocol.CursorUpdate{X: update.Cursor.X, Y: update.Cursor.Y, Visible: update.Cursor.Visible}
			if update.Cursor.Shape != nil && update.Cursor.Shape != lastShape {
				cu.Shape = cursorShapeToWire(update.Cursor.Shape)
				lastShape = update.Cursor.Shape
			}
			msg.Cursor = cu
		}

		schema := protocol.EncodeSchema(protocol.KindVideoFrame, msg.Marshal())
		wire := protocol.BuildFrame(ch, schema, update.Desktop)
		sess.Channels.Send(ch, wire)
	}
}

func desktopTimingsToWire(t desktop.Timings) protocol.Timings {
	return protocol.Timings{
		Capture:     t.Capture,
		EncodeBegin: t.EncodeBegin,
		EncodeEnd:   t.EncodeEnd,
		NetworkSend: t.NetworkSend,
		NetworkRecv: t.NetworkRecv,
		DecodeBegin: t.DecodeBegin,
		DecodeEnd:   t.DecodeEnd,
		Present:     t.Present,
	}
}

func cursorShapeToWire(s *desktop.CursorShape) *protocol.CursorShape {
	if s.Image == nil {
		return &protocol.CursorShape{XOR: s.XOR, HotspotX: s.HotspotX, HotspotY: s.HotspotY}
	}
	return &protocol.CursorShape{
		Image:    s.Image.Pix,
		Codec:    protocol.CodecJPEG,
		XOR:      s.XOR,
		HotspotX: s.HotspotX,
		HotspotY: s.HotspotY,
		Width:    uint32(s.Image.Width),
		Height:   uint32(s.Image.Height),
	}
}

// Stop tears down every active capture on sess.
func (c *Coordinator) Stop(sess *session.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, r := range c.active {
		if k.session == sess.ID {
			r.cancel()
			r.pipeline.Stop()
			delete(c.active, k)
		}
	}
}
