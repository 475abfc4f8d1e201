// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package device

import (
	"context"
	"fmt"

	"github.com/gen2brain/malgo"
)

// malgoDevice adapts miniaudio's callback-driven I/O to the pull-based
// Device interface: the capture callback pushes frames onto a buffered
// channel, and the playback callback pulls from one. Supports I2S and USB
// soundcards identically — miniaudio picks the backend, this layer never
// needs to know which.
type malgoDevice struct {
	ctx        *malgo.AllocatedContext
	dev        *malgo.Device
	sampleHz   int
	frameSize  int
	capture    bool

	frames chan []int16
}

// NewCapture opens name (or the system default) for 16kHz mono PCM16
// capture, read in 60ms frames.
func NewCapture(name string, sampleHz, frameSize int) (Device, error) {
	return newMalgoDevice(name, sampleHz, frameSize, true)
}

// NewPlayback opens name (or the system default) for mono PCM16 playback
// at the server-negotiated rate.
func NewPlayback(name string, sampleHz, frameSize int) (Device, error) {
	return newMalgoDevice(name, sampleHz, frameSize, false)
}

func newMalgoDevice(name string, sampleHz, frameSize int, capture bool) (Device, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, fmt.Errorf("initializing audio context: %w", err)
	}

	d := &malgoDevice{
		ctx:       ctx,
		sampleHz:  sampleHz,
		frameSize: frameSize,
		capture:   capture,
		frames:    make(chan []int16, 4),
	}

	deviceType := malgo.Playback
	if capture {
		deviceType = malgo.Capture
	}

	cfg := malgo.DefaultDeviceConfig(deviceType)
	cfg.SampleRate = uint32(sampleHz)
	cfg.PeriodSizeInFrames = uint32(frameSize)
	cfg.Alsa.NoMMap = 1
	if capture {
		cfg.Capture.Format = malgo.FormatS16
		cfg.Capture.Channels = 1
		if name != "" && name != DefaultName {
			cfg.Capture.DeviceID = deviceIDFromName(ctx, malgo.Capture, name)
		}
	} else {
		cfg.Playback.Format = malgo.FormatS16
		cfg.Playback.Channels = 1
		if name != "" && name != DefaultName {
			cfg.Playback.DeviceID = deviceIDFromName(ctx, malgo.Playback, name)
		}
	}

	callbacks := malgo.DeviceCallbacks{
		Data: d.onFrames,
	}

	dev, err := malgo.InitDevice(ctx.Context, cfg, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		return nil, fmt.Errorf("initializing audio device: %w", err)
	}
	d.dev = dev

	if err := dev.Start(); err != nil {
		dev.Uninit()
		_ = ctx.Uninit()
		return nil, fmt.Errorf("starting audio device: %w", err)
	}

	return d, nil
}

// onFrames is miniaudio's audio thread callback. outputSamples is nil on a
// capture-only device and inputSamples is nil on a playback-only device.
func (d *malgoDevice) onFrames(outputSamples, inputSamples []byte, frames uint32) {
	if d.capture {
		pcm := bytesToInt16(inputSamples)
		select {
		case d.frames <- pcm:
		default:
			// Overrun: drop the oldest buffered frame to make room for the
			// new one rather than blocking the audio callback thread.
			select {
			case <-d.frames:
			default:
			}
			d.frames <- pcm
		}
		return
	}

	select {
	case pcm := <-d.frames:
		int16ToBytes(pcm, outputSamples)
	default:
		// Underrun: miniaudio already zeroed the output buffer.
	}
}

func (d *malgoDevice) ReadFrame(ctx context.Context, samples []int16) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case pcm := <-d.frames:
		copy(samples, pcm)
		return nil
	}
}

func (d *malgoDevice) WriteFrame(ctx context.Context, samples []int16) error {
	cp := make([]int16, len(samples))
	copy(cp, samples)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case d.frames <- cp:
		return nil
	}
}

func (d *malgoDevice) SampleRate() int { return d.sampleHz }

func (d *malgoDevice) Close() error {
	if d.dev != nil {
		d.dev.Uninit()
	}
	return d.ctx.Uninit()
}

func bytesToInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(uint16(b[2*i]) | uint16(b[2*i+1])<<8)
	}
	return out
}

func int16ToBytes(samples []int16, dst []byte) {
	n := len(dst) / 2
	if n > len(samples) {
		n = len(samples)
	}
	for i := 0; i < n; i++ {
		dst[2*i] = byte(samples[i])
		dst[2*i+1] = byte(samples[i] >> 8)
	}
}

// deviceIDFromName resolves a configured device name to a miniaudio device
// ID by enumerating the requested direction's devices and matching on name.
// Falls back to the zero value (system default) if nothing matches.
func deviceIDFromName(ctx *malgo.AllocatedContext, kind malgo.DeviceType, name string) malgo.DeviceID {
	infos, err := ctx.Devices(kind)
	if err != nil {
		return malgo.DeviceID{}
	}
	for _, info := range infos {
		if info.Name() == name {
			return info.ID
		}
	}
	return malgo.DeviceID{}
}
