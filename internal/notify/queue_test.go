// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package notify

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/xiaozhi-go-client/internal/commons"
	"github.com/rapidaai/xiaozhi-go-client/internal/model"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	srv, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	logger, err := commons.NewLogger("debug", true)
	require.NoError(t, err)

	q := NewQueue(srv.Addr(), "", 0, "device-1", logger)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestQueue_PushDrainPreservesOrder(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Push(ctx, model.PendingNotification{ToolName: "weather", Payload: "rain"}))
	require.NoError(t, q.Push(ctx, model.PendingNotification{ToolName: "timer", Payload: "done"}))

	out, err := q.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "weather", out[0].ToolName)
	require.Equal(t, "timer", out[1].ToolName)

	empty, err := q.Drain(ctx)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestQueue_LenReflectsDepth(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	n, err := q.Len(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, q.Push(ctx, model.PendingNotification{ToolName: "weather"}))
	n, err = q.Len(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
}
