// Package dsp provides optional capture-side signal conditioning: a noise
// gate that silences frames below a threshold, and an automatic gain control
// stage that normalizes level before the signal is packed onto the wire.
// Both operate on mono float32 frames in [-1, 1].
package dsp

import "math"

// RMS returns the root-mean-square level of a float32 PCM frame.
func RMS(frame []float32) float32 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(frame))))
}

const (
	// gateThreshold is the RMS level below which a frame is zeroed (~-40 dBFS).
	gateThreshold = float32(0.01)
	// gateHold is the number of frames the gate stays open after level drops
	// below threshold, at one call per capture chunk.
	gateHold = 10
)

// Gate is a hard noise gate: frames below threshold are zeroed once the hold
// period expires, so between-word mic hiss never reaches the wire.
type Gate struct {
	remaining int
	enabled   bool
}

// NewGate returns a Gate enabled by default.
func NewGate() *Gate {
	return &Gate{enabled: true}
}

// SetEnabled turns the gate on or off; disabled is a pass-through.
func (g *Gate) SetEnabled(enabled bool) {
	g.enabled = enabled
	if !enabled {
		g.remaining = 0
	}
}

// Process gates frame in place and returns its pre-gate RMS, for level
// metering.
func (g *Gate) Process(frame []float32) float32 {
	rms := RMS(frame)
	if !g.enabled {
		return rms
	}

	if rms >= gateThreshold {
		g.remaining = gateHold
		return rms
	}
	if g.remaining > 0 {
		g.remaining--
		return rms
	}

	for i := range frame {
		frame[i] = 0
	}
	return rms
}

const (
	// agcTarget is the desired RMS level, linear amplitude (~-14 dBFS).
	agcTarget  = 0.20
	agcMinGain = 0.1
	agcMaxGain = 10.0
	// agcAttack governs how fast gain is pulled down on a loud frame;
	// agcRelease governs how slowly it recovers, to avoid pumping.
	agcAttack  = 0.80
	agcRelease = 0.02
	agcMinRMS  = 0.001
)

// AGC is a single-channel automatic gain control stage with asymmetric
// attack/release smoothing.
type AGC struct {
	gain    float64
	enabled bool
}

// NewAGC returns an AGC at unity gain, enabled by default.
func NewAGC() *AGC {
	return &AGC{gain: 1.0, enabled: true}
}

// SetEnabled turns AGC on or off; disabled is a pass-through.
func (a *AGC) SetEnabled(enabled bool) {
	a.enabled = enabled
}

// Process applies the current gain to frame in place and updates the gain
// estimate from its RMS.
func (a *AGC) Process(frame []float32) {
	if !a.enabled || len(frame) == 0 {
		return
	}

	rms := float64(RMS(frame))
	for i, s := range frame {
		v := s * float32(a.gain)
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		frame[i] = v
	}

	if rms < agcMinRMS {
		return
	}

	desired := agcTarget / rms
	if desired < agcMinGain {
		desired = agcMinGain
	} else if desired > agcMaxGain {
		desired = agcMaxGain
	}

	coeff := agcRelease
	if desired < a.gain {
		coeff = agcAttack
	}
	a.gain += coeff * (desired - a.gain)
}

// Chain runs a noise gate followed by AGC over a mono float32 capture frame.
type Chain struct {
	Gate *Gate
	AGC  *AGC
}

// NewChain returns a Chain with both stages enabled.
func NewChain() *Chain {
	return &Chain{Gate: NewGate(), AGC: NewAGC()}
}

// Process runs frame through the gate then AGC, in place.
func (c *Chain) Process(frame []float32) {
	c.Gate.Process(frame)
	c.AGC.Process(frame)
}
