package protocol

import (
	"bytes"
	"crypto/rand"
	"testing"
)

// TestFrameRoundTrip covers property 5: a frame built from a channel id,
// schema body, and payload decodes back to the exact same three parts.
func TestFrameRoundTrip(t *testing.T) {
	schema := VideoFrame{VideoBytes: 42}.Marshal()
	payload := []byte("hello world")

	raw := BuildFrame(7, schema, payload)

	got, err := ParseFrame(raw)
	if err != nil {
		t.Fatalf("ParseFrame failed: %v", err)
	}
	if got.Channel != 7 {
		t.Fatalf("channel = %d, want 7", got.Channel)
	}
	if !bytes.Equal(got.Schema, schema) {
		t.Fatalf("schema mismatch")
	}
	if !bytes.Equal(got.Payload, payload) {
		t.Fatalf("payload mismatch")
	}
}

// TestVideoFramePayloadFraming is scenario S6: a VideoFrame with
// video_bytes=N followed by exactly N random bytes decodes to a payload
// slice of length N equal to the input (property 5: frame integrity).
func TestVideoFramePayloadFraming(t *testing.T) {
	const n = 4096
	payload := make([]byte, n)
	if _, err := rand.Read(payload); err != nil {
		t.Fatal(err)
	}

	schema := VideoFrame{VideoBytes: n}.Marshal()
	raw := BuildFrame(3, schema, payload)

	frame, err := ParseFrame(raw)
	if err != nil {
		t.Fatal(err)
	}

	msg, err := UnmarshalVideoFrame(frame.Schema)
	if err != nil {
		t.Fatal(err)
	}
	if msg.VideoBytes != n {
		t.Fatalf("video_bytes = %d, want %d", msg.VideoBytes, n)
	}
	if uint64(len(frame.Payload)) != msg.VideoBytes {
		t.Fatalf("len(payload) = %d, want %d", len(frame.Payload), msg.VideoBytes)
	}
	if !bytes.Equal(frame.Payload, payload) {
		t.Fatal("payload bytes mismatch")
	}
}

func TestVideoFrameWithCursorRoundTrip(t *testing.T) {
	orig := VideoFrame{
		VideoBytes: 10,
		Cursor: &CursorUpdate{
			X: 100, Y: 200, Visible: true,
			Shape: &CursorShape{
				Image:    []byte{1, 2, 3, 4},
				Codec:    CodecJPEG,
				XOR:      true,
				HotspotX: 0.5,
				HotspotY: 0.25,
				Width:    32,
				Height:   32,
			},
		},
		Timings: Timings{Capture: 100, EncodeBegin: 150, EncodeEnd: 200},
	}

	encoded := orig.Marshal()
	got, err := UnmarshalVideoFrame(encoded)
	if err != nil {
		t.Fatal(err)
	}

	if got.VideoBytes != orig.VideoBytes {
		t.Fatalf("VideoBytes mismatch")
	}
	if got.Cursor == nil || got.Cursor.X != 100 || got.Cursor.Y != 200 || !got.Cursor.Visible {
		t.Fatalf("cursor fields mismatch: %+v", got.Cursor)
	}
	if got.Cursor.Shape == nil || !bytes.Equal(got.Cursor.Shape.Image, orig.Cursor.Shape.Image) {
		t.Fatalf("cursor shape image mismatch")
	}
	if got.Cursor.Shape.HotspotX != 0.5 || got.Cursor.Shape.HotspotY != 0.25 {
		t.Fatalf("hotspot mismatch: %+v", got.Cursor.Shape)
	}
	// Capture is a sided stamp and is not sent on the wire.
	if got.Timings.Capture != 0 || got.Timings.EncodeBegin != 150 || got.Timings.EncodeEnd != 200 {
		t.Fatalf("timings mismatch: %+v", got.Timings)
	}
}

func TestCursorUpdateOmitsShapeWhenUnchanged(t *testing.T) {
	orig := VideoFrame{
		VideoBytes: 0,
		Cursor:     &CursorUpdate{X: 1, Y: 2, Visible: true, Shape: nil},
	}
	got, err := UnmarshalVideoFrame(orig.Marshal())
	if err != nil {
		t.Fatal(err)
	}
	if got.Cursor.Shape != nil {
		t.Fatalf("expected nil shape, got %+v", got.Cursor.Shape)
	}
}

func TestParseFrameRejectsTruncated(t *testing.T) {
	if _, err := ParseFrame([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for too-short frame")
	}

	// Claims a schema length longer than the remaining buffer.
	raw := BuildFrame(1, []byte{0, 0, 0, 0, 0}, nil)
	raw[2] = 0xFF
	raw[3] = 0xFF
	if _, err := ParseFrame(raw); err == nil {
		t.Fatal("expected error for schema length overrun")
	}
}

func TestNotifyVideoStartRoundTrip(t *testing.T) {
	orig := NotifyVideoStart{Stream: 5, Width: 1920, Height: 1080, Codec: CodecJPEG}
	got, err := UnmarshalNotifyVideoStart(orig.Marshal())
	if err != nil {
		t.Fatal(err)
	}
	if got != orig {
		t.Fatalf("got %+v, want %+v", got, orig)
	}
}
