// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package device

import "context"

// Fake is an in-memory Device used by tests and by the pipeline's unit
// tests: ReadFrame/WriteFrame move samples through a channel instead of
// touching real hardware.
type Fake struct {
	rate   int
	frames chan []int16
	closed bool
}

// NewFake builds a Fake device at the given sample rate with a small
// internal buffer.
func NewFake(sampleHz int) *Fake {
	return &Fake{rate: sampleHz, frames: make(chan []int16, 8)}
}

// Push makes pcm available to the next ReadFrame call, simulating hardware
// delivering a captured frame.
func (f *Fake) Push(pcm []int16) {
	cp := make([]int16, len(pcm))
	copy(cp, pcm)
	f.frames <- cp
}

// Pop retrieves the oldest frame written via WriteFrame that has not yet been
// consumed, simulating hardware consuming a playback frame. Returns nil if
// no frame is buffered.
func (f *Fake) Pop() []int16 {
	select {
	case pcm := <-f.frames:
		return pcm
	default:
		return nil
	}
}

func (f *Fake) ReadFrame(ctx context.Context, samples []int16) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case pcm := <-f.frames:
		copy(samples, pcm)
		return nil
	}
}

func (f *Fake) WriteFrame(ctx context.Context, samples []int16) error {
	cp := make([]int16, len(samples))
	copy(cp, samples)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case f.frames <- cp:
		return nil
	}
}

func (f *Fake) SampleRate() int { return f.rate }

func (f *Fake) Close() error {
	f.closed = true
	return nil
}
