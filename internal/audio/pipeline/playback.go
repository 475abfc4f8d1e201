// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package pipeline

import (
	"context"

	"github.com/rapidaai/xiaozhi-go-client/internal/audio/codec"
	"github.com/rapidaai/xiaozhi-go-client/internal/audio/device"
	"github.com/rapidaai/xiaozhi-go-client/internal/audio/dsp"
	"github.com/rapidaai/xiaozhi-go-client/internal/commons"
)

// Playback decodes Opus packets at the server-negotiated rate and writes
// PCM to the output device, resampling if the device's native rate
// differs. The queue is bounded; on persistent overrun the oldest frame is
// dropped.
type Playback struct {
	logger commons.Logger
	dev    device.Device
	dec    *codec.Decoder
	resamp *dsp.Resampler

	Packets chan []byte
	Drained chan struct{}
}

// NewPlayback wires a playback device into a decode pipeline for the
// negotiated downlink rate.
func NewPlayback(logger commons.Logger, dev device.Device, negotiatedHz, frameSamples int) (*Playback, error) {
	dec, err := codec.NewDecoder(negotiatedHz, frameSamples)
	if err != nil {
		return nil, err
	}
	resamp, err := dsp.NewResampler(negotiatedHz, dev.SampleRate())
	if err != nil {
		return nil, err
	}

	return &Playback{
		logger:  logger,
		dev:     dev,
		dec:     dec,
		resamp:  resamp,
		Packets: make(chan []byte, 4),
		Drained: make(chan struct{}, 1),
	}, nil
}

// Enqueue offers packet to the playback queue, dropping the oldest buffered
// packet on persistent overrun rather than blocking the transport's read
// loop.
func (p *Playback) Enqueue(packet []byte) {
	select {
	case p.Packets <- packet:
		return
	default:
	}

	select {
	case <-p.Packets:
		p.logger.Warnf("downlink frame queue full, dropped oldest frame")
	default:
	}
	select {
	case p.Packets <- packet:
	default:
	}
}

// Reset drains any buffered packets without playing them, used when the
// controller aborts speaking (tts.stop, abort, or disconnect).
func (p *Playback) Reset() {
	for {
		select {
		case <-p.Packets:
		default:
			return
		}
	}
}

// Run blocks decoding and writing packets until ctx is cancelled. When the
// queue empties after having had data, it signals Drained so the
// controller can transition out of Speaking.
func (p *Playback) Run(ctx context.Context) {
	hadData := false
	for {
		select {
		case <-ctx.Done():
			return
		case packet, ok := <-p.Packets:
			if !ok {
				return
			}
			hadData = true
			p.write(ctx, packet)
		default:
			if hadData {
				hadData = false
				select {
				case p.Drained <- struct{}{}:
				default:
				}
			}
			select {
			case <-ctx.Done():
				return
			case packet, ok := <-p.Packets:
				if !ok {
					return
				}
				hadData = true
				p.write(ctx, packet)
			}
		}
	}
}

func (p *Playback) write(ctx context.Context, packet []byte) {
	pcm, err := p.dec.Decode(packet)
	if err != nil {
		p.logger.Errorf("opus decode error: %v", err)
		return
	}

	out, err := p.resamp.Process(pcm)
	if err != nil {
		p.logger.Errorf("playback resample error: %v", err)
		return
	}

	if err := p.dev.WriteFrame(ctx, out); err != nil && ctx.Err() == nil {
		p.logger.Errorf("playback device write error: %v", err)
	}
}
