// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package dsp

import (
	"fmt"

	sv "github.com/streamer45/silero-vad-go/speech"
)

// VAD gates the capture path when listen.detect mode is configured,
// surfacing per-frame speech/silence decisions instead of streaming every
// frame to the cloud unconditionally.
type VAD struct {
	detector *sv.Detector
}

// NewVAD loads the Silero ONNX model at modelPath for the given sample
// rate. Returns an error if VAD is requested but the model is missing —
// the caller should treat that as a non-fatal config problem and fall back
// to always-on streaming.
func NewVAD(modelPath string, sampleRate int) (*VAD, error) {
	detector, err := sv.NewDetector(sv.DetectorConfig{
		ModelPath:            modelPath,
		SampleRate:           sampleRate,
		Threshold:            0.5,
		MinSilenceDurationMs: 300,
		SpeechPadMs:          30,
	})
	if err != nil {
		return nil, fmt.Errorf("loading VAD model: %w", err)
	}
	return &VAD{detector: detector}, nil
}

// IsSpeech reports whether frame contains speech.
func (v *VAD) IsSpeech(frame []int16) (bool, error) {
	floats := make([]float32, len(frame))
	for i, s := range frame {
		floats[i] = float32(s) / 32768.0
	}

	segments, err := v.detector.Detect(floats)
	if err != nil {
		return false, fmt.Errorf("running VAD: %w", err)
	}
	return len(segments) > 0, nil
}

// Close releases the underlying ONNX runtime session.
func (v *VAD) Close() error {
	return v.detector.Destroy()
}
