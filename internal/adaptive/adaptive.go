// Package adaptive implements the adaptive quality controller (C18): an
// EWMA-smoothed AIMD controller reacting to viewer-reported RTT/loss,
// independent of the core coalescing pipeline. Adapted from the
// teacher's remote/desktop/adaptive.go AdaptiveBitrate, generalized from
// encoder bitrate/FPS control to the one tunable this repo's JPEG codec
// actually exposes: quality 1-100.
package adaptive

import (
	"errors"
	"sync"
	"time"

	"github.com/jsonmona/twilight/internal/logging"
)

var log = logging.L("adaptive")

// QualitySetter is implemented by desktop.JPEGEncoder; kept as a small
// interface here so this package doesn't need to import desktop just for
// one setter method.
type QualitySetter interface {
	SetQuality(q int)
	Quality() int
}

// Config bounds and tunes a Controller.
type Config struct {
	Encoder     QualitySetter
	MinQuality  int // default 10
	MaxQuality  int // default 90
	Cooldown    time.Duration
}

const ewmaAlpha = 0.3
const stableRequired = 2

// Controller adjusts JPEG quality using AIMD: multiplicative decrease on
// sustained loss, additive increase on sustained clean samples, with EWMA
// smoothing so a single transient spike doesn't trigger an adjustment.
type Controller struct {
	mu         sync.Mutex
	encoder    QualitySetter
	minQuality int
	maxQuality int
	cooldown   time.Duration
	lastAdjust time.Time

	smoothedLoss float64
	smoothedRTT  time.Duration
	samplesCount int
	stableCount  int
}

// NewController builds a Controller, seeding the encoder's current
// quality as the starting point.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Encoder == nil {
		return nil, errors.New("adaptive: encoder is required")
	}
	minQ, maxQ := cfg.MinQuality, cfg.MaxQuality
	if minQ <= 0 {
		minQ = 10
	}
	if maxQ <= 0 {
		maxQ = 90
	}
	if minQ > maxQ {
		minQ, maxQ = maxQ, minQ
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = 500 * time.Millisecond
	}

	return &Controller{
		encoder:    cfg.Encoder,
		minQuality: minQ,
		maxQuality: maxQ,
		cooldown:   cooldown,
	}, nil
}

// Update feeds a new RTT/loss sample (e.g. from a periodic viewer
// acknowledgement) and adjusts quality in place when warranted.
func (c *Controller) Update(rtt time.Duration, packetLoss float64) {
	if packetLoss < 0 {
		packetLoss = 0
	}
	if packetLoss > 1 {
		packetLoss = 1
	}

	c.mu.Lock()

	now := time.Now()
	if !c.lastAdjust.IsZero() && now.Sub(c.lastAdjust) < c.cooldown {
		c.updateEWMA(rtt, packetLoss)
		c.mu.Unlock()
		return
	}
	c.updateEWMA(rtt, packetLoss)

	if c.samplesCount < 3 {
		c.mu.Unlock()
		return
	}

	loss := c.smoothedLoss
	smoothRTT := c.smoothedRTT

	degrade := loss >= 0.05 || (smoothRTT >= 300*time.Millisecond && loss >= 0.02)
	upgrade := loss <= 0.01

	if degrade {
		c.stableCount = 0
	} else if upgrade {
		c.stableCount++
	} else if c.stableCount > 0 {
		c.stableCount--
	}

	current := c.encoder.Quality()
	newQuality := current
	action := "hold"

	switch {
	case degrade:
		action = "degrade"
		newQuality = clampInt(int(float64(current)*0.85), c.minQuality, c.maxQuality)
	case c.stableCount >= stableRequired && current < c.maxQuality:
		action = "upgrade"
		newQuality = clampInt(current+5, c.minQuality, c.maxQuality)
		c.stableCount = 0
	}

	if newQuality == current {
		c.mu.Unlock()
		return
	}

	c.lastAdjust = now
	encoder := c.encoder
	c.mu.Unlock()

	encoder.SetQuality(newQuality)
	log.Info("adaptive quality adjustment",
		"action", action, "quality", newQuality, "prev", current,
		"smoothedLoss", loss, "smoothedRTT", smoothRTT.Round(time.Millisecond))
}

func (c *Controller) updateEWMA(rtt time.Duration, loss float64) {
	c.samplesCount++
	if c.samplesCount == 1 {
		c.smoothedLoss = loss
		c.smoothedRTT = rtt
		return
	}
	c.smoothedLoss = ewmaAlpha*loss + (1-ewmaAlpha)*c.smoothedLoss
	c.smoothedRTT = time.Duration(ewmaAlpha*float64(rtt) + (1-ewmaAlpha)*float64(c.smoothedRTT))
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
