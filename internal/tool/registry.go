// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package tool implements the external-tool gateway: registration from
// configuration, JSON-RPC dispatch, and the three transport-specific
// executors (subprocess, http, tcp) in both sync and background mode.
package tool

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rapidaai/xiaozhi-go-client/internal/config"
	"github.com/rapidaai/xiaozhi-go-client/internal/model"
)

// Registry is the immutable, name-keyed map of ToolDescriptors built once at
// startup. It is never mutated after NewRegistry returns.
type Registry struct {
	tools map[string]model.ToolDescriptor
}

// NewRegistry builds a Registry from the configuration's mcp.tools list.
// Names must be unique; a duplicate name is a fatal startup error.
func NewRegistry(cfgTools []config.ToolConfig) (*Registry, error) {
	tools := make(map[string]model.ToolDescriptor, len(cfgTools))
	for _, t := range cfgTools {
		if _, exists := tools[t.Name]; exists {
			return nil, fmt.Errorf("duplicate tool name %q in configuration", t.Name)
		}
		tools[t.Name] = toDescriptor(t)
	}
	return &Registry{tools: tools}, nil
}

func toDescriptor(t config.ToolConfig) model.ToolDescriptor {
	notify := model.NotifyDisabled
	if t.Notify != "" {
		notify = model.NotifyMethod(t.Notify)
	}
	mode := model.ModeSync
	if t.Mode != "" {
		mode = model.ExecutionMode(t.Mode)
	}
	return model.ToolDescriptor{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.InputSchema,
		Transport:   model.ToolTransportKind(t.Transport),
		Executable:  t.Executable,
		Args:        t.Args,
		URL:         t.URL,
		Method:      t.Method,
		Address:     t.Address,
		Mode:        mode,
		TimeoutMs:   t.TimeoutMs,
		Notify:      notify,
		WebhookURL:  t.WebhookURL,
	}
}

// Lookup returns the descriptor for name, or false if no such tool exists.
func (r *Registry) Lookup(name string) (model.ToolDescriptor, bool) {
	d, ok := r.tools[name]
	return d, ok
}

// MCPTools renders the registry as mcp-go's Tool shape, for advertising the
// tool list in the hello message or a list-tools reply.
func (r *Registry) MCPTools() []mcp.Tool {
	out := make([]mcp.Tool, 0, len(r.tools))
	for _, d := range r.tools {
		props := map[string]any{}
		if schemaProps, ok := d.InputSchema["properties"].(map[string]interface{}); ok {
			for k, v := range schemaProps {
				props[k] = v
			}
		}
		var required []string
		if list, ok := d.InputSchema["required"].([]interface{}); ok {
			for _, r := range list {
				if name, ok := r.(string); ok {
					required = append(required, name)
				}
			}
		}
		out = append(out, mcp.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: props,
				Required:   required,
			},
		})
	}
	return out
}
