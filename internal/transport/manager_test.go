// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/xiaozhi-go-client/internal/commons"
	"github.com/rapidaai/xiaozhi-go-client/internal/identity"
	"github.com/rapidaai/xiaozhi-go-client/internal/model"
)

var testUpgrader = websocket.Upgrader{}

// reconnectingServer accepts connections, completes hello, then closes the
// connection right after — forcing the Manager to observe a disconnect and
// redial.
func reconnectingServer(t *testing.T, connectCount *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		atomic.AddInt32(connectCount, 1)

		_, _, err = conn.ReadMessage()
		if err != nil {
			return
		}
		reply := model.CloudMessage{
			Type: model.MsgHello,
			Hello: &model.HelloPayload{
				SessionID:   "sess",
				AudioParams: model.AudioParams{SampleRate: 24000},
			},
		}
		data, _ := json.Marshal(reply)
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}))
}

func TestManager_ReconnectsAfterDisconnect(t *testing.T) {
	var connects int32
	srv := reconnectingServer(t, &connects)
	defer srv.Close()

	logger, err := commons.NewLogger("debug", true)
	require.NoError(t, err)

	idPath := filepath.Join(t.TempDir(), "identity.json")
	idStore := identity.NewStore(idPath, logger)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	m := NewManager(url, "token", "1", idStore, logger)

	connectedCount := int32(0)
	m.OnConnected = func() { atomic.AddInt32(&connectedCount, 1) }

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&connectedCount) >= 2
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	<-done
}
