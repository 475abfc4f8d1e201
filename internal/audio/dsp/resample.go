// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package dsp

import (
	"fmt"

	resampler "github.com/tphakala/go-audio-resampler"
)

// Resampler converts PCM16 between sample rates when the underlying device
// can't deliver the codec's required rate natively.
type Resampler struct {
	r       *resampler.Resampler
	inRate  int
	outRate int
}

// NewResampler builds a converter from inRate to outRate, mono.
func NewResampler(inRate, outRate int) (*Resampler, error) {
	if inRate == outRate {
		return &Resampler{inRate: inRate, outRate: outRate}, nil
	}
	r, err := resampler.New(resampler.Config{
		InputRate:  inRate,
		OutputRate: outRate,
		Channels:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing resampler %d->%d: %w", inRate, outRate, err)
	}
	return &Resampler{r: r, inRate: inRate, outRate: outRate}, nil
}

// Process converts one frame. If input and output rates match, pcm is
// returned unchanged.
func (rs *Resampler) Process(pcm []int16) ([]int16, error) {
	if rs.r == nil {
		return pcm, nil
	}
	out, err := rs.r.Resample(pcm)
	if err != nil {
		return nil, fmt.Errorf("resampling %d->%d: %w", rs.inRate, rs.outRate, err)
	}
	return out, nil
}
