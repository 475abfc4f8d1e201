// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package dsp implements the capture-path front end: noise reduction, AGC,
// optional VAD gating, and resampling to the rate the codec expects.
package dsp

import "math"

// NoiseGate drops frames whose RMS energy falls below a floor, so steady
// background hiss never reaches the encoder.
type NoiseGate struct {
	floorRMS float64
}

// NewNoiseGate builds a gate with the given RMS floor (0..32767 scale).
func NewNoiseGate(floorRMS float64) *NoiseGate {
	return &NoiseGate{floorRMS: floorRMS}
}

// Filter returns pcm unchanged if it's above the floor, or nil if it's been
// gated out.
func (g *NoiseGate) Filter(pcm []int16) []int16 {
	if rms(pcm) < g.floorRMS {
		return nil
	}
	return pcm
}

// AGC normalizes frame loudness toward a target RMS, with a bounded gain so
// a near-silent frame isn't amplified into clipping noise.
type AGC struct {
	targetRMS float64
	maxGain   float64
	gain      float64
}

// NewAGC builds an AGC targeting targetRMS with gain capped at maxGain. gain
// starts at 1.0 and is smoothed frame-to-frame to avoid audible pumping.
func NewAGC(targetRMS, maxGain float64) *AGC {
	return &AGC{targetRMS: targetRMS, maxGain: maxGain, gain: 1.0}
}

// Apply adjusts pcm in place toward the target loudness.
func (a *AGC) Apply(pcm []int16) {
	current := rms(pcm)
	if current < 1 {
		return
	}

	desired := a.targetRMS / current
	if desired > a.maxGain {
		desired = a.maxGain
	}
	if desired < 1.0/a.maxGain {
		desired = 1.0 / a.maxGain
	}

	// Smooth toward the desired gain rather than snapping, avoiding a
	// click at frame boundaries.
	a.gain = a.gain*0.8 + desired*0.2

	for i, s := range pcm {
		scaled := float64(s) * a.gain
		if scaled > math.MaxInt16 {
			scaled = math.MaxInt16
		}
		if scaled < math.MinInt16 {
			scaled = math.MinInt16
		}
		pcm[i] = int16(scaled)
	}
}

func rms(pcm []int16) float64 {
	if len(pcm) == 0 {
		return 0
	}
	var sum float64
	for _, s := range pcm {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(pcm)))
}
