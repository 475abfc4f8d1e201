// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package device abstracts capture/playback hardware behind one interface
// so I2S and USB soundcards are handled identically, with no codec-specific
// code paths above this layer.
package device

import "context"

// Device is a single-direction PCM16 audio device: a capture device only
// ever has ReadFrame called, a playback device only ever has WriteFrame
// called.
type Device interface {
	// ReadFrame blocks until one frame of samples has been captured.
	ReadFrame(ctx context.Context, samples []int16) error
	// WriteFrame blocks until one frame of samples has been written.
	WriteFrame(ctx context.Context, samples []int16) error
	// SampleRate returns the device's native sample rate.
	SampleRate() int
	Close() error
}

// DefaultName is the device name used when no explicit device is
// configured, matching the ALSA "default" PCM.
const DefaultName = "default"
