// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package tool

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/xiaozhi-go-client/internal/commons"
	"github.com/rapidaai/xiaozhi-go-client/internal/config"
	"github.com/rapidaai/xiaozhi-go-client/internal/model"
)

func newTestGateway(t *testing.T, tools []config.ToolConfig) (*Gateway, chan model.PendingNotification) {
	t.Helper()
	registry, err := NewRegistry(tools)
	require.NoError(t, err)

	logger, err := commons.NewLogger("debug", true)
	require.NoError(t, err)

	notifications := make(chan model.PendingNotification, 8)
	return NewGateway(registry, logger, notifications), notifications
}

func TestHandle_UnknownToolReturnsMethodNotFound(t *testing.T) {
	gw, _ := newTestGateway(t, nil)

	resp := gw.Handle(context.Background(), model.ToolCallRequest{
		ID:     "9",
		Method: "tools/call",
		Params: model.ToolCallParams{Name: "nope"},
	})

	require.NotNil(t, resp.Error)
	assert.Equal(t, model.ErrCodeMethodNotFound, resp.Error.Code)
	assert.Equal(t, "method_not_found", resp.Error.Message)
}

func TestHandle_SyncSubprocessReturnsResult(t *testing.T) {
	gw, _ := newTestGateway(t, []config.ToolConfig{
		{
			Name:       "get_system_status",
			Transport:  "subprocess",
			Executable: "echo",
			Args:       []string{"-n", "load 0.5"},
			Mode:       "sync",
			TimeoutMs:  2000,
		},
	})

	resp := gw.Handle(context.Background(), model.ToolCallRequest{
		ID:     "7",
		Method: "tools/call",
		Params: model.ToolCallParams{Name: "get_system_status", Arguments: map[string]interface{}{}},
	})

	require.Nil(t, resp.Error)
	assert.Equal(t, "load 0.5", resp.Result)
}

func TestHandle_BackgroundReturnsStartedImmediately(t *testing.T) {
	gw, notifications := newTestGateway(t, []config.ToolConfig{
		{
			Name:       "long_time_write_task",
			Transport:  "subprocess",
			Executable: "sleep",
			Args:       []string{"0.05"},
			Mode:       "background",
			TimeoutMs:  2000,
		},
	})

	start := time.Now()
	resp := gw.Handle(context.Background(), model.ToolCallRequest{
		ID:     "8",
		Method: "tools/call",
		Params: model.ToolCallParams{Name: "long_time_write_task", Arguments: map[string]interface{}{"file_path": "/tmp/x", "text": "y"}},
	})
	elapsed := time.Since(start)

	require.Nil(t, resp.Error)
	assert.Equal(t, map[string]string{"status": "started"}, resp.Result)
	assert.Less(t, elapsed, 50*time.Millisecond)

	select {
	case n := <-notifications:
		assert.Equal(t, "long_time_write_task", n.ToolName)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a pending notification after background completion")
	}
}

func TestHandle_InvalidArgumentsRejected(t *testing.T) {
	gw, _ := newTestGateway(t, []config.ToolConfig{
		{
			Name:      "strict_tool",
			Transport: "subprocess",
			Executable: "echo",
			Mode:      "sync",
			InputSchema: map[string]interface{}{
				"required": []interface{}{"file_path"},
			},
		},
	})

	resp := gw.Handle(context.Background(), model.ToolCallRequest{
		ID:     "1",
		Method: "tools/call",
		Params: model.ToolCallParams{Name: "strict_tool", Arguments: map[string]interface{}{}},
	})

	require.NotNil(t, resp.Error)
	assert.Equal(t, model.ErrCodeInvalidParams, resp.Error.Code)
}

func TestHandle_ToolsListReturnsRegisteredTools(t *testing.T) {
	gw, _ := newTestGateway(t, []config.ToolConfig{
		{
			Name:        "get_system_status",
			Description: "reports board load",
			Transport:   "subprocess",
			Executable:  "echo",
			Mode:        "sync",
			InputSchema: map[string]interface{}{
				"required": []interface{}{"verbose"},
			},
		},
	})

	resp := gw.Handle(context.Background(), model.ToolCallRequest{
		ID:     "3",
		Method: model.MethodToolsList,
	})

	require.Nil(t, resp.Error)
	listed, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	tools, ok := listed["tools"].([]mcp.Tool)
	require.True(t, ok)
	require.Len(t, tools, 1)
	assert.Equal(t, "get_system_status", tools[0].Name)
}

func TestHandle_DuplicateIDWhileOutstandingRejected(t *testing.T) {
	gw, _ := newTestGateway(t, []config.ToolConfig{
		{
			Name:       "slow_tool",
			Transport:  "subprocess",
			Executable: "sleep",
			Args:       []string{"0.2"},
			Mode:       "sync",
			TimeoutMs:  2000,
		},
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		gw.Handle(context.Background(), model.ToolCallRequest{
			ID:     "dup",
			Params: model.ToolCallParams{Name: "slow_tool", Arguments: map[string]interface{}{}},
		})
	}()

	time.Sleep(20 * time.Millisecond)
	resp := gw.Handle(context.Background(), model.ToolCallRequest{
		ID:     "dup",
		Params: model.ToolCallParams{Name: "slow_tool", Arguments: map[string]interface{}{}},
	})
	<-done

	require.NotNil(t, resp.Error)
	assert.Equal(t, model.ErrCodeInvalidParams, resp.Error.Code)
}
