// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package bridge implements the thin, best-effort UDP datagram transports
// to the sibling GUI and IoT processes: no acknowledgment, no retry.
package bridge

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/rapidaai/xiaozhi-go-client/internal/commons"
)

// sender is a fire-and-forget UDP datagram writer shared by the GUI and IoT
// outbound bridges.
type sender struct {
	conn   *net.UDPConn
	logger commons.Logger
}

func newSender(host string, port int, logger commons.Logger) (*sender, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, fmt.Errorf("resolving udp bridge address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dialing udp bridge: %w", err)
	}
	return &sender{conn: conn, logger: logger}, nil
}

// sendJSON marshals v and fires it at the bridge's peer, logging (never
// returning) on failure — best-effort only.
func (s *sender) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Errorf("marshaling udp bridge datagram: %v", err)
		return
	}
	if _, err := s.conn.Write(data); err != nil {
		s.logger.Warnf("udp bridge send failed: %v", err)
	}
}

func (s *sender) Close() error {
	return s.conn.Close()
}
