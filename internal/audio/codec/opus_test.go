// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func sineWave(samples, sampleHz int, freqHz float64) []int16 {
	out := make([]int16, samples)
	for i := range out {
		t := float64(i) / float64(sampleHz)
		out[i] = int16(8000 * math.Sin(2*math.Pi*freqHz*t))
	}
	return out
}

func TestEncodeDecode_RoundTripIsNearIdentity(t *testing.T) {
	const sampleHz = 16000
	const frameSamples = 960 // 60ms @ 16kHz

	enc, err := NewEncoder(sampleHz)
	require.NoError(t, err)
	dec, err := NewDecoder(sampleHz, frameSamples)
	require.NoError(t, err)

	input := sineWave(frameSamples, sampleHz, 440)

	packet, err := enc.Encode(input)
	require.NoError(t, err)
	require.NotEmpty(t, packet)

	output, err := dec.Decode(packet)
	require.NoError(t, err)
	require.Len(t, output, frameSamples)

	var signal, noise float64
	for i, s := range input {
		diff := float64(output[i]) - float64(s)
		signal += float64(s) * float64(s)
		noise += diff * diff
	}
	require.Greater(t, signal, 0.0)

	snr := 10 * math.Log10(signal/math.Max(noise, 1))
	require.Greater(t, snr, 10.0, "opus round-trip should preserve most of the signal energy")
}
