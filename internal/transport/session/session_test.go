// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/xiaozhi-go-client/internal/commons"
	"github.com/rapidaai/xiaozhi-go-client/internal/identity"
	"github.com/rapidaai/xiaozhi-go-client/internal/model"
)

var upgrader = websocket.Upgrader{}

// fakeServer accepts one connection, replies to hello with a hello whose
// session_id and negotiated sample rate are fixed, then echoes any binary
// frame it receives back unchanged.
func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var hello model.CloudMessage
		require.NoError(t, json.Unmarshal(data, &hello))
		require.Equal(t, model.MsgHello, hello.Type)

		reply := model.CloudMessage{
			Type: model.MsgHello,
			Hello: &model.HelloPayload{
				SessionID: "sess-123",
				AudioParams: model.AudioParams{
					Format:     "opus",
					SampleRate: 24000,
					Channels:   1,
				},
			},
		}
		replyData, _ := json.Marshal(reply)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, replyData))

		for {
			kind, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind == websocket.BinaryMessage {
				_ = conn.WriteMessage(websocket.BinaryMessage, msg)
			}
		}
	}))
}

func TestDial_NegotiatesHello(t *testing.T) {
	srv := fakeServer(t)
	defer srv.Close()

	logger, err := commons.NewLogger("debug", true)
	require.NoError(t, err)

	id := &identity.Identity{ClientID: "client-1", DeviceID: "device-1"}
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := Dial(ctx, url, id, "token", "1", logger)
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, "sess-123", s.SessionID)
	require.Equal(t, 24000, s.NegotiatedSampleHz)
}

func TestSession_BinaryRoundTrip(t *testing.T) {
	srv := fakeServer(t)
	defer srv.Close()

	logger, err := commons.NewLogger("debug", true)
	require.NoError(t, err)

	id := &identity.Identity{ClientID: "client-1", DeviceID: "device-1"}
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := Dial(ctx, url, id, "token", "1", logger)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SendBinary([]byte{1, 2, 3}))

	select {
	case got := <-s.Binary:
		require.Equal(t, []byte{1, 2, 3}, got)
	case <-time.After(2 * time.Second):
		t.Fatal("expected echoed binary frame")
	}
}
