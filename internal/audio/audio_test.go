package audio

import "testing"

func TestNullCapturerYieldsNoSamples(t *testing.T) {
	var c Capturer = NullCapturer{}

	ch, err := c.Start()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := <-ch; ok {
		t.Fatal("expected NullCapturer's channel to be closed immediately")
	}

	c.Stop() // must not panic
}
