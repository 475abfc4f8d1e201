// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/xiaozhi-go-client/internal/audio/codec"
	"github.com/rapidaai/xiaozhi-go-client/internal/audio/device"
	"github.com/rapidaai/xiaozhi-go-client/internal/commons"
)

func testLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewLogger("debug", true)
	require.NoError(t, err)
	return logger
}

func TestCapture_DoesNotEmitFramesUntilEnabled(t *testing.T) {
	logger := testLogger(t)
	fake := device.NewFake(16000)

	capturePipeline, err := NewCapture(logger, fake, 16000, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go capturePipeline.Run(ctx, 960)

	// A steady non-silent frame, loud enough to pass the noise gate.
	frame := make([]int16, 960)
	for i := range frame {
		frame[i] = 1000
	}

	fake.Push(frame)

	select {
	case <-capturePipeline.Frames:
		t.Fatal("capture must not emit frames while disabled")
	case <-time.After(50 * time.Millisecond):
	}

	capturePipeline.SetEnabled(true)
	fake.Push(frame)

	select {
	case <-capturePipeline.Frames:
	case <-time.After(time.Second):
		t.Fatal("expected a frame once capture is enabled")
	}
}

func TestPlayback_DrainedFiresAfterQueueEmpties(t *testing.T) {
	logger := testLogger(t)
	fake := device.NewFake(24000)

	pb, err := NewPlayback(logger, fake, 24000, 1440)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pb.Run(ctx)

	enc, err := codec.NewEncoder(24000)
	require.NoError(t, err)
	packet, err := enc.Encode(make([]int16, 1440))
	require.NoError(t, err)

	pb.Enqueue(packet)

	select {
	case <-pb.Drained:
	case <-time.After(time.Second):
		t.Fatal("expected playback to report drained after consuming its only packet")
	}
}

func TestPlayback_ResetDropsBufferedPackets(t *testing.T) {
	logger := testLogger(t)
	fake := device.NewFake(24000)

	pb, err := NewPlayback(logger, fake, 24000, 1440)
	require.NoError(t, err)

	enc, err := codec.NewEncoder(24000)
	require.NoError(t, err)
	packet, err := enc.Encode(make([]int16, 1440))
	require.NoError(t, err)

	pb.Enqueue(packet)
	pb.Enqueue(packet)
	pb.Reset()

	select {
	case <-pb.Packets:
		t.Fatal("Reset should have drained the queue")
	default:
	}
}
