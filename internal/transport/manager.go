// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package transport owns the reconnect loop around one session.Session:
// exponential backoff, re-running hello on every reconnect, and forwarding
// inbound frames to the Controller.
package transport

import (
	"context"
	"time"

	"github.com/rapidaai/xiaozhi-go-client/internal/commons"
	"github.com/rapidaai/xiaozhi-go-client/internal/identity"
	"github.com/rapidaai/xiaozhi-go-client/internal/model"
	"github.com/rapidaai/xiaozhi-go-client/internal/transport/session"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// Manager keeps a session.Session alive, reconnecting with exponential
// backoff on every disconnect and re-running the hello handshake — no
// attempt is made to resume the prior session_id.
type Manager struct {
	sessionURL      string
	authBearer      string
	protocolVersion string
	logger          commons.Logger
	idStore         *identity.Store

	current *session.Session

	OnConnected    func()
	OnDisconnected func(err error)
	OnHelloReady   func(s *session.Session)
	OnText         func(model.CloudMessage)
	OnBinary       func([]byte)
}

// NewManager builds a reconnect-managing transport Manager.
func NewManager(sessionURL, authBearer, protocolVersion string, idStore *identity.Store, logger commons.Logger) *Manager {
	return &Manager{
		sessionURL:      sessionURL,
		authBearer:      authBearer,
		protocolVersion: protocolVersion,
		idStore:         idStore,
		logger:          logger,
	}
}

// Run dials, re-dials on disconnect with backoff, and pumps inbound frames
// to the registered callbacks until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		id, err := m.idStore.Load()
		if err != nil {
			return err
		}

		s, err := session.Dial(ctx, m.sessionURL, id, m.authBearer, m.protocolVersion, m.logger)
		if err != nil {
			m.logger.Warnf("cloud session dial failed: %v", err)
			if m.OnDisconnected != nil {
				m.OnDisconnected(err)
			}
			if !m.sleep(ctx, &backoff) {
				return ctx.Err()
			}
			continue
		}

		m.logger.Infof("cloud session established: session_id=%s downlink_rate=%d", s.SessionID, s.NegotiatedSampleHz)
		backoff = initialBackoff
		m.current = s

		if m.OnConnected != nil {
			m.OnConnected()
		}
		if m.OnHelloReady != nil {
			m.OnHelloReady(s)
		}

		m.pump(ctx, s)

		m.current = nil
		if m.OnDisconnected != nil {
			m.OnDisconnected(nil)
		}

		if !m.sleep(ctx, &backoff) {
			return ctx.Err()
		}
	}
}

// pump drains text and binary frames until either stream closes.
func (m *Manager) pump(ctx context.Context, s *session.Session) {
	textOpen, binaryOpen := true, true
	for textOpen || binaryOpen {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.Inbound:
			if !ok {
				textOpen = false
				continue
			}
			if m.OnText != nil {
				m.OnText(msg)
			}
		case data, ok := <-s.Binary:
			if !ok {
				binaryOpen = false
				continue
			}
			if m.OnBinary != nil {
				m.OnBinary(data)
			}
		}
	}
}

// sleep waits the current backoff, doubling it for next time (capped), and
// returns false if ctx was cancelled first — making reconnect backoff
// interruptible by shutdown.
func (m *Manager) sleep(ctx context.Context, backoff *time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(*backoff):
	}
	*backoff *= 2
	if *backoff > maxBackoff {
		*backoff = maxBackoff
	}
	return true
}

// Send forwards a text control message to the active session, if any.
func (m *Manager) Send(msg model.CloudMessage) error {
	if m.current == nil {
		return nil
	}
	return m.current.SendText(msg)
}

// SendBinary forwards an Opus packet to the active session, if any.
func (m *Manager) SendBinary(packet []byte) error {
	if m.current == nil {
		return nil
	}
	return m.current.SendBinary(packet)
}
