package adaptive

import (
	"testing"
	"time"
)

type stubEncoder struct {
	quality int
}

func (s *stubEncoder) SetQuality(q int) { s.quality = q }
func (s *stubEncoder) Quality() int     { return s.quality }

func newTestController(initial, min, max int) (*Controller, *stubEncoder) {
	stub := &stubEncoder{quality: initial}
	c, err := NewController(Config{
		Encoder:    stub,
		MinQuality: min,
		MaxQuality: max,
		Cooldown:   time.Nanosecond,
	})
	if err != nil {
		panic(err)
	}
	return c, stub
}

// warmup feeds clean samples past the 3-sample EWMA warmup.
func warmup(c *Controller, rtt time.Duration, loss float64) {
	for i := 0; i < 3; i++ {
		c.Update(rtt, loss)
	}
}

func TestDegradeOnSustainedLoss(t *testing.T) {
	c, stub := newTestController(80, 10, 90)
	warmup(c, 20*time.Millisecond, 0.10)

	if stub.quality >= 80 {
		t.Fatalf("expected quality to drop below 80 under sustained loss, got %d", stub.quality)
	}
}

func TestUpgradeAfterStablePeriod(t *testing.T) {
	c, stub := newTestController(40, 10, 90)
	warmup(c, 10*time.Millisecond, 0.0)

	// One more clean sample to cross the stableRequired threshold.
	c.Update(10*time.Millisecond, 0.0)

	if stub.quality <= 40 {
		t.Fatalf("expected quality to rise above 40 after stable clean samples, got %d", stub.quality)
	}
}

func TestQualityNeverExceedsBounds(t *testing.T) {
	c, stub := newTestController(88, 10, 90)
	for i := 0; i < 50; i++ {
		c.Update(5*time.Millisecond, 0.0)
	}
	if stub.quality > 90 {
		t.Fatalf("quality exceeded max bound: %d", stub.quality)
	}
}

func TestQualityNeverBelowMin(t *testing.T) {
	c, stub := newTestController(12, 10, 90)
	for i := 0; i < 50; i++ {
		c.Update(5*time.Millisecond, 0.5)
	}
	if stub.quality < 10 {
		t.Fatalf("quality dropped below min bound: %d", stub.quality)
	}
}
