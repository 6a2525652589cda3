package metrics

import (
	"testing"
	"time"
)

func TestSnapshotComputesBandwidth(t *testing.T) {
	m := NewStreamMetrics()
	m.RecordCapture(5 * time.Millisecond)
	m.RecordEncode(10*time.Millisecond, 2048)
	m.RecordSend(2048)
	m.RecordDrop()

	snap := m.Snapshot()
	if snap.FramesCaptured != 1 || snap.FramesEncoded != 1 || snap.FramesSent != 1 || snap.FramesDropped != 1 {
		t.Fatalf("unexpected counters: %+v", snap)
	}
	if snap.LastFrameSize != 2048 {
		t.Fatalf("LastFrameSize = %d, want 2048", snap.LastFrameSize)
	}
	if snap.CaptureMs != 5 || snap.EncodeMs != 10 {
		t.Fatalf("timing mismatch: %+v", snap)
	}
}
