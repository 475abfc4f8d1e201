// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package bridge

import (
	"encoding/json"
	"fmt"
	"net"

	"github.com/rapidaai/xiaozhi-go-client/internal/commons"
)

// GUI is the outbound (status/toast/code) and inbound (user text/trigger)
// UDP bridge to the optional sibling GUI process.
type GUI struct {
	out    *sender
	in     *net.UDPConn
	logger commons.Logger

	Text    chan string
	Trigger chan struct{}
}

// NewGUI binds the inbound port and dials the outbound port.
func NewGUI(host string, outPort, inPort int, logger commons.Logger) (*GUI, error) {
	out, err := newSender(host, outPort, logger)
	if err != nil {
		return nil, err
	}

	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, inPort))
	if err != nil {
		return nil, fmt.Errorf("resolving gui inbound address: %w", err)
	}
	in, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("binding gui inbound port: %w", err)
	}

	g := &GUI{
		out:     out,
		in:      in,
		logger:  logger,
		Text:    make(chan string, 8),
		Trigger: make(chan struct{}, 8),
	}
	go g.readLoop()
	return g, nil
}

// SendState emits {"event":"state","value":...}.
func (g *GUI) SendState(value string) {
	g.out.sendJSON(map[string]string{"event": "state", "value": value})
}

// SendToast emits {"event":"toast","text":...}.
func (g *GUI) SendToast(text string) {
	g.out.sendJSON(map[string]string{"event": "toast", "text": text})
}

// SendCode emits {"event":"code","value":...} for device activation.
func (g *GUI) SendCode(code string) {
	g.out.sendJSON(map[string]string{"event": "code", "value": code})
}

type inboundEvent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func (g *GUI) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, _, err := g.in.ReadFromUDP(buf)
		if err != nil {
			return
		}
		var ev inboundEvent
		if err := json.Unmarshal(buf[:n], &ev); err != nil {
			g.logger.Warnf("discarding malformed gui datagram: %v", err)
			continue
		}
		switch ev.Type {
		case "text":
			select {
			case g.Text <- ev.Text:
			default:
			}
		case "trigger":
			select {
			case g.Trigger <- struct{}{}:
			default:
			}
		}
	}
}

// Close releases both sockets.
func (g *GUI) Close() error {
	_ = g.out.Close()
	return g.in.Close()
}
