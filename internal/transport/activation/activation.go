// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package activation performs the one-shot HTTPS device-activation
// handshake that precedes opening the streaming session.
package activation

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rapidaai/xiaozhi-go-client/internal/commons"
	"github.com/rapidaai/xiaozhi-go-client/internal/identity"
)

// Response is the activation server's JSON body.
type Response struct {
	Activated bool   `json:"activated"`
	Code      string `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Client drives the activation handshake against activationURL, retrying
// with backoff while the server returns a not-yet-activated verification
// code.
type Client struct {
	http          *resty.Client
	activationURL string
	logger        commons.Logger
	onCode        func(code string)
}

// NewClient builds an activation Client. onCode, if non-nil, is invoked
// with the human-facing verification code so the GUI bridge can display it.
func NewClient(activationURL string, logger commons.Logger, onCode func(code string)) *Client {
	http := resty.New().
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second)

	return &Client{http: http, activationURL: activationURL, logger: logger, onCode: onCode}
}

// Activate polls the activation endpoint until it reports activated=true or
// ctx is cancelled. Safe to call repeatedly: once a device is activated,
// the server is expected to keep returning activated=true without
// regenerating anything client-side.
func (c *Client) Activate(ctx context.Context, id *identity.Identity) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		resp, err := c.request(ctx, id)
		if err != nil {
			c.logger.Warnf("activation request failed: %v", err)
		} else if resp.Activated {
			return nil
		} else {
			if resp.Code != "" && c.onCode != nil {
				c.onCode(resp.Code)
			}
			c.logger.Infof("activation pending: %s", resp.Message)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (c *Client) request(ctx context.Context, id *identity.Identity) (*Response, error) {
	var out Response
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"client_id":    id.ClientID,
			"device_id":    id.DeviceID,
			"mac_address":  id.DeviceID,
		}).
		SetResult(&out).
		Post(c.activationURL)
	if err != nil {
		return nil, fmt.Errorf("posting activation request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("activation endpoint returned %d", resp.StatusCode())
	}
	return &out, nil
}
