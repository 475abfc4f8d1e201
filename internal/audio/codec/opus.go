// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package codec wraps hraban/opus.v2 for the uplink encoder and downlink
// decoder, each configured for voice at the negotiated sample rate.
package codec

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"
)

// Encoder wraps an Opus encoder fixed to one sample rate, mono, voice
// application mode.
type Encoder struct {
	enc      *opus.Encoder
	sampleHz int
}

// NewEncoder builds an Opus encoder for mono voice at sampleHz (16kHz on
// the capture path).
func NewEncoder(sampleHz int) (*Encoder, error) {
	enc, err := opus.NewEncoder(sampleHz, 1, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("creating opus encoder: %w", err)
	}
	return &Encoder{enc: enc, sampleHz: sampleHz}, nil
}

// Encode compresses one 60ms PCM16 frame into an Opus packet.
func (e *Encoder) Encode(pcm []int16) ([]byte, error) {
	out := make([]byte, 4000)
	n, err := e.enc.Encode(pcm, out)
	if err != nil {
		return nil, fmt.Errorf("opus encode: %w", err)
	}
	return out[:n], nil
}

// Decoder wraps an Opus decoder fixed to the negotiated downlink rate.
type Decoder struct {
	dec        *opus.Decoder
	sampleHz   int
	frameSamples int
}

// NewDecoder builds an Opus decoder for the server-negotiated sample rate.
// frameSamples is the number of mono samples in one 60ms frame at that
// rate (e.g. 1440 at 24kHz).
func NewDecoder(sampleHz, frameSamples int) (*Decoder, error) {
	dec, err := opus.NewDecoder(sampleHz, 1)
	if err != nil {
		return nil, fmt.Errorf("creating opus decoder: %w", err)
	}
	return &Decoder{dec: dec, sampleHz: sampleHz, frameSamples: frameSamples}, nil
}

// Decode expands one Opus packet into a 60ms PCM16 frame.
func (d *Decoder) Decode(packet []byte) ([]int16, error) {
	out := make([]int16, d.frameSamples)
	n, err := d.dec.Decode(packet, out)
	if err != nil {
		return nil, fmt.Errorf("opus decode: %w", err)
	}
	return out[:n], nil
}

// SampleRate returns the decoder's configured rate.
func (d *Decoder) SampleRate() int { return d.sampleHz }
