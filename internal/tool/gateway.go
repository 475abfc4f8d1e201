// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package tool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rapidaai/xiaozhi-go-client/internal/commons"
	"github.com/rapidaai/xiaozhi-go-client/internal/model"
)

// Gateway dispatches incoming tools/call requests to the registry's
// descriptors. Besides the read-only registry and the outbound notification
// channel, its only shared mutable state is the mutex-guarded set of
// in-flight request ids, so a hung or crashed tool can never wedge it.
type Gateway struct {
	registry      *Registry
	logger        commons.Logger
	notifications chan<- model.PendingNotification

	mu        sync.Mutex
	inflight  map[string]struct{} // request ids with an outstanding call
}

// NewGateway builds a Gateway backed by registry. notifications receives a
// PendingNotification every time a Background-mode tool finishes.
func NewGateway(registry *Registry, logger commons.Logger, notifications chan<- model.PendingNotification) *Gateway {
	return &Gateway{
		registry:      registry,
		logger:        logger,
		notifications: notifications,
		inflight:      make(map[string]struct{}),
	}
}

// Handle processes one tools/call or tools/list request and returns the
// JSON-RPC response. For Background-mode tools, tools/call returns in well
// under 50ms; the actual execution continues on a detached goroutine.
func (g *Gateway) Handle(ctx context.Context, req model.ToolCallRequest) model.ToolCallResponse {
	if req.Method == model.MethodToolsList {
		return model.ToolCallResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{"tools": g.registry.MCPTools()},
		}
	}

	if !g.claim(req.ID) {
		return errorResponse(req.ID, model.ErrCodeInvalidParams, "invalid_params")
	}

	descriptor, ok := g.registry.Lookup(req.Params.Name)
	if !ok {
		g.release(req.ID)
		return errorResponse(req.ID, model.ErrCodeMethodNotFound, "method_not_found")
	}

	if err := validateArguments(descriptor, req.Params.Arguments); err != nil {
		g.release(req.ID)
		g.logger.Warnf("tool %q argument validation failed: %v", descriptor.Name, err)
		return errorResponse(req.ID, model.ErrCodeInvalidParams, "invalid_params")
	}

	if descriptor.Mode == model.ModeBackground {
		g.startBackground(descriptor, req)
		return model.ToolCallResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]string{"status": "started"},
		}
	}

	defer g.release(req.ID)
	return g.runSync(ctx, descriptor, req)
}

func (g *Gateway) runSync(ctx context.Context, d model.ToolDescriptor, req model.ToolCallRequest) model.ToolCallResponse {
	exec, err := executorFor(d)
	if err != nil {
		return errorResponse(req.ID, model.ErrCodeInvalidParams, err.Error())
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, d.EffectiveTimeout())
	defer cancel()

	result, err := exec.execute(timeoutCtx, d, req.Params.Arguments)
	if err != nil {
		if timeoutCtx.Err() != nil {
			return errorResponse(req.ID, model.ErrCodeTimeout, "timeout")
		}
		return errorResponse(req.ID, -32000, err.Error())
	}

	return model.ToolCallResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
	}
}

// startBackground spawns a detached goroutine that uses only the
// descriptor, the request and the gateway's logger, in-flight set and
// notification channel — it never touches controller state directly.
func (g *Gateway) startBackground(d model.ToolDescriptor, req model.ToolCallRequest) {
	go func() {
		defer g.release(req.ID)

		exec, err := executorFor(d)
		if err != nil {
			g.logger.Errorf("background tool %q: %v", d.Name, err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), d.EffectiveTimeout())
		defer cancel()

		result, err := exec.execute(ctx, d, req.Params.Arguments)
		payload := result
		if err != nil {
			g.logger.Errorf("background tool %q failed: %v", d.Name, err)
			payload = fmt.Sprintf("error: %v", err)
		}

		notification := model.PendingNotification{
			ToolName: d.Name,
			Payload:  payload,
			QueuedAt: time.Now(),
		}

		select {
		case g.notifications <- notification:
		default:
			g.logger.Warnf("pending-notification queue full, dropping result for %q", d.Name)
		}

		g.deliverSideChannel(d, notification, err)
	}()
}

// deliverSideChannel handles the configured NotifyMethod in addition to the
// controller-mediated PendingNotification queue. Disabled means log-only.
func (g *Gateway) deliverSideChannel(d model.ToolDescriptor, n model.PendingNotification, execErr error) {
	switch d.Notify {
	case model.NotifyWebhook:
		if d.WebhookURL == "" {
			g.logger.Warnf("tool %q configured for webhook notify with no webhook_url", d.Name)
			return
		}
		if _, err := sharedHTTPClient().R().SetBody(map[string]interface{}{
			"tool":    n.ToolName,
			"payload": n.Payload,
			"error":   execErr != nil,
		}).Post(d.WebhookURL); err != nil {
			g.logger.Errorf("webhook notify for %q failed: %v", d.Name, err)
		}
	case model.NotifyLocalSocket, model.NotifyMQTT:
		g.logger.Warnf("notify method %q not implemented, logging only for %q", d.Notify, d.Name)
	default:
		g.logger.Debugf("tool %q finished, notify disabled: %s", d.Name, n.Payload)
	}
}

// claim records req.ID as outstanding. Only one pending call per id is
// permitted at a time; a repeated id is a protocol violation.
func (g *Gateway) claim(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.inflight[id]; exists {
		return false
	}
	g.inflight[id] = struct{}{}
	return true
}

func (g *Gateway) release(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inflight, id)
}

func errorResponse(id string, code int, message string) model.ToolCallResponse {
	return model.ToolCallResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &model.ToolCallError{Code: code, Message: message},
	}
}
