package pipeline

import (
	"testing"
	"time"

	"github.com/jsonmona/twilight/internal/desktop"
)

func collapseImageUpdate(newer, older desktop.Update[int]) desktop.Update[int] {
	newer.CollapseFrom(older)
	return newer
}

// TestCoalesceUnderStall is scenario S4: three updates pushed while the
// consumer stalls collapse into one carrying the newest position and the
// most recent non-nil cursor shape.
func TestCoalesceUnderStall(t *testing.T) {
	slot := NewSlot(collapseImageUpdate)

	shape := &desktop.CursorShape{}
	u1 := desktop.Update[int]{Cursor: &desktop.CursorState{X: 1, Y: 1}, Desktop: 1}
	u2 := desktop.Update[int]{Cursor: &desktop.CursorState{X: 2, Y: 2, Shape: shape}, Desktop: 2}
	u3 := desktop.Update[int]{Cursor: &desktop.CursorState{X: 3, Y: 3}, Desktop: 3}

	if !slot.TrySend(u1) {
		t.Fatal("first send should succeed")
	}
	if !slot.TrySend(u2) {
		t.Fatal("second send should succeed")
	}
	if !slot.TrySend(u3) {
		t.Fatal("third send should succeed")
	}

	got, ok := slot.Recv()
	if !ok {
		t.Fatal("expected a value")
	}
	if got.Desktop != 3 {
		t.Fatalf("desktop = %d, want 3 (newest)", got.Desktop)
	}
	if got.Cursor.X != 3 || got.Cursor.Y != 3 {
		t.Fatalf("cursor pos = (%d,%d), want (3,3)", got.Cursor.X, got.Cursor.Y)
	}
	if got.Cursor.Shape != shape {
		t.Fatalf("cursor shape not inherited from u2")
	}
}

// TestAtMostOneBehind is property 2: with an instantly-draining consumer,
// every send is observed individually with no extra buffering.
func TestAtMostOneBehind(t *testing.T) {
	slot := NewSlot(collapseImageUpdate)
	done := make(chan struct{})
	received := make([]int, 0, 5)

	go func() {
		for i := 0; i < 5; i++ {
			v, ok := slot.Recv()
			if !ok {
				break
			}
			received = append(received, v.Desktop)
		}
		close(done)
	}()

	for i := 1; i <= 5; i++ {
		for !slot.TrySend(desktop.Update[int]{Desktop: i}) {
		}
		time.Sleep(time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for receiver")
	}

	if len(received) != 5 {
		t.Fatalf("received %d values, want 5: %v", len(received), received)
	}
	for i, v := range received {
		if v != i+1 {
			t.Fatalf("received[%d] = %d, want %d", i, v, i+1)
		}
	}
}

func TestRecvUnblocksOnClose(t *testing.T) {
	slot := NewSlot(collapseImageUpdate)
	done := make(chan bool, 1)

	go func() {
		_, ok := slot.Recv()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	slot.Close()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected ok=false after close with no pending value")
		}
	case <-time.After(time.Second):
		t.Fatal("Recv did not unblock after Close")
	}
}

func TestTrySendAfterCloseFails(t *testing.T) {
	slot := NewSlot(collapseImageUpdate)
	slot.Close()
	if slot.TrySend(desktop.Update[int]{Desktop: 1}) {
		t.Fatal("TrySend should fail after Close")
	}
}
