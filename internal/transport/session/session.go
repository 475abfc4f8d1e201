// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package session implements the persistent full-duplex cloud channel: one
// gorilla/websocket connection carrying textual JSON control messages and
// binary Opus frames.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rapidaai/xiaozhi-go-client/internal/commons"
	"github.com/rapidaai/xiaozhi-go-client/internal/identity"
	"github.com/rapidaai/xiaozhi-go-client/internal/model"
)

// outboundFrame is either a text control message or a binary audio packet.
// Only one of Text/Binary is set.
type outboundFrame struct {
	text   *model.CloudMessage
	binary []byte
}

// Session owns one websocket connection for its lifetime. All outbound
// writes funnel through a single writer goroutine reading from out, so
// concurrent senders never interleave writes on the same connection.
type Session struct {
	logger commons.Logger
	url    string
	proto  string

	conn *websocket.Conn
	out  chan outboundFrame

	Inbound chan model.CloudMessage
	Binary  chan []byte

	SessionID         string
	NegotiatedSampleHz int
}

// Dial opens the streaming session, sends hello with the uplink audio params
// (opus, 16kHz, mono, 60ms frames), and waits for the server's hello reply.
func Dial(ctx context.Context, sessionURL string, id *identity.Identity, auth, protocolVersion string, logger commons.Logger) (*Session, error) {
	headers := http.Header{}
	headers.Set("authorization", "Bearer "+auth)
	headers.Set("device-id", id.DeviceID)
	headers.Set("client-id", id.ClientID)
	headers.Set("protocol-version", protocolVersion)

	u, err := url.Parse(sessionURL)
	if err != nil {
		return nil, fmt.Errorf("parsing session url: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		return nil, fmt.Errorf("dialing cloud session: %w", err)
	}

	conn.SetReadLimit(4 << 20)

	s := &Session{
		logger:  logger,
		url:     sessionURL,
		proto:   protocolVersion,
		conn:    conn,
		out:     make(chan outboundFrame, 32),
		Inbound: make(chan model.CloudMessage, 32),
		Binary:  make(chan []byte, 32),
	}

	go s.writerLoop(ctx)
	go s.readerLoop(ctx)

	if err := s.sendHello(); err != nil {
		s.Close()
		return nil, err
	}

	helloReply, err := s.awaitHello(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.SessionID = helloReply.Hello.SessionID
	s.NegotiatedSampleHz = helloReply.Hello.AudioParams.SampleRate

	return s, nil
}

func (s *Session) sendHello() error {
	hello := model.CloudMessage{
		Type: model.MsgHello,
		Hello: &model.HelloPayload{
			Transport: "websocket",
			AudioParams: model.AudioParams{
				Format:          "opus",
				SampleRate:      16000,
				Channels:        1,
				FrameDurationMs: model.FrameDurationMs,
			},
		},
	}
	return s.SendText(hello)
}

// awaitHello blocks for the server's hello reply, which carries session_id
// and the negotiated downlink sample rate.
func (s *Session) awaitHello(ctx context.Context) (*model.CloudMessage, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case msg := <-s.Inbound:
			if msg.Type == model.MsgHello && msg.Hello != nil {
				return &msg, nil
			}
			// Any non-hello message before the handshake completes is a
			// protocol violation: log and discard.
			s.logger.Warnf("discarding message type %q received before hello handshake completed", msg.Type)
		}
	}
}

// SendText enqueues a control message for the writer goroutine.
func (s *Session) SendText(msg model.CloudMessage) error {
	select {
	case s.out <- outboundFrame{text: &msg}:
		return nil
	default:
		return fmt.Errorf("outbound queue full, dropping text message type %q", msg.Type)
	}
}

// SendBinary enqueues one Opus packet. One packet per message, no outer
// framing.
func (s *Session) SendBinary(packet []byte) error {
	select {
	case s.out <- outboundFrame{binary: packet}:
		return nil
	default:
		return fmt.Errorf("outbound queue full, dropping binary frame")
	}
}

func (s *Session) writerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-s.out:
			var err error
			if frame.text != nil {
				var data []byte
				data, err = json.Marshal(frame.text)
				if err == nil {
					err = s.conn.WriteMessage(websocket.TextMessage, data)
				}
			} else {
				err = s.conn.WriteMessage(websocket.BinaryMessage, frame.binary)
			}
			if err != nil {
				s.logger.Errorf("cloud session write error: %v", err)
				return
			}
		}
	}
}

func (s *Session) readerLoop(ctx context.Context) {
	defer close(s.Inbound)
	defer close(s.Binary)

	for {
		if ctx.Err() != nil {
			return
		}

		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warnf("cloud session read error: %v", err)
			}
			return
		}

		switch kind {
		case websocket.TextMessage:
			var msg model.CloudMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				// Malformed message: log, discard, stay connected.
				s.logger.Warnf("discarding malformed cloud message: %v", err)
				continue
			}
			select {
			case s.Inbound <- msg:
			case <-ctx.Done():
				return
			}
		case websocket.BinaryMessage:
			select {
			case s.Binary <- data:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Close sends a goodbye frame and tears down the connection.
func (s *Session) Close() error {
	_ = s.SendText(model.CloudMessage{Type: model.MsgGoodbye})
	return s.conn.Close()
}
