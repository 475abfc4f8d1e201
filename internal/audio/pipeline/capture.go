// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package pipeline runs the capture and playback loops on their own
// goroutines, each independent of the Controller's goroutine. Frame cadence is driven by hardware availability, not wall clock.
package pipeline

import (
	"context"
	"time"

	"github.com/rapidaai/xiaozhi-go-client/internal/audio/codec"
	"github.com/rapidaai/xiaozhi-go-client/internal/audio/device"
	"github.com/rapidaai/xiaozhi-go-client/internal/audio/dsp"
	"github.com/rapidaai/xiaozhi-go-client/internal/commons"
)

// Capture reads from a capture Device, runs noise gate + AGC + optional VAD
// + resample, Opus-encodes, and emits frames on Frames. It never forwards
// anything anywhere by itself — whether a frame is actually used is the
// Controller's decision alone.
type Capture struct {
	logger commons.Logger
	dev    device.Device
	gate   *dsp.NoiseGate
	agc    *dsp.AGC
	vad    *dsp.VAD
	resamp *dsp.Resampler
	enc    *codec.Encoder

	Frames  chan []byte // Opus packets
	Silence chan struct{}

	enabled bool
}

// NewCapture wires a capture device into an encode pipeline. vad may be nil
// if listen.detect mode is disabled.
func NewCapture(logger commons.Logger, dev device.Device, targetHz int, vad *dsp.VAD) (*Capture, error) {
	resamp, err := dsp.NewResampler(dev.SampleRate(), targetHz)
	if err != nil {
		return nil, err
	}
	enc, err := codec.NewEncoder(targetHz)
	if err != nil {
		return nil, err
	}

	return &Capture{
		logger:  logger,
		dev:     dev,
		gate:    dsp.NewNoiseGate(80),
		agc:     dsp.NewAGC(4000, 8),
		vad:     vad,
		resamp:  resamp,
		enc:     enc,
		Frames:  make(chan []byte, 4),
		Silence: make(chan struct{}, 4),
		enabled: false,
	}, nil
}

// SetEnabled turns capture streaming on or off. The device keeps being read
// regardless (so AGC/VAD state stays warm), but frames are only pushed to
// Frames while enabled — the capture-side half of the Listening gate.
func (c *Capture) SetEnabled(enabled bool) {
	c.enabled = enabled
}

// Run blocks reading frames until ctx is cancelled.
func (c *Capture) Run(ctx context.Context, frameSamples int) {
	raw := make([]int16, frameSamples)
	for {
		if err := ctx.Err(); err != nil {
			return
		}

		if err := c.dev.ReadFrame(ctx, raw); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Errorf("capture device read error: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		pcm, err := c.resamp.Process(raw)
		if err != nil {
			c.logger.Errorf("capture resample error: %v", err)
			continue
		}

		filtered := c.gate.Filter(pcm)
		if filtered == nil {
			continue
		}
		c.agc.Apply(filtered)

		if c.vad != nil {
			speech, err := c.vad.IsSpeech(filtered)
			if err != nil {
				c.logger.Warnf("VAD error, passing frame through: %v", err)
			} else if !speech {
				nonBlockingSend(c.Silence, struct{}{})
				continue
			}
		}

		if !c.enabled {
			continue
		}

		packet, err := c.enc.Encode(filtered)
		if err != nil {
			c.logger.Errorf("opus encode error: %v", err)
			continue
		}

		c.pushFrame(packet)
	}
}

// pushFrame drops the oldest buffered frame on persistent overrun, the same
// policy the playback queue uses, generalized to the uplink direction.
func (c *Capture) pushFrame(packet []byte) {
	select {
	case c.Frames <- packet:
		return
	default:
	}

	select {
	case <-c.Frames:
		c.logger.Warnf("uplink frame queue full, dropped oldest frame")
	default:
	}
	select {
	case c.Frames <- packet:
	default:
	}
}

func nonBlockingSend[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}
