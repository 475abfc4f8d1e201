// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package bridge

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/xiaozhi-go-client/internal/commons"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.ListenUDP("udp", &net.UDPAddr{})
	require.NoError(t, err)
	defer l.Close()
	return l.LocalAddr().(*net.UDPAddr).Port
}

func TestGUI_InboundTextDeliveredOnChannel(t *testing.T) {
	logger, err := commons.NewLogger("debug", true)
	require.NoError(t, err)

	outPort := freePort(t)
	inPort := freePort(t)

	gui, err := NewGUI("127.0.0.1", outPort, inPort, logger)
	require.NoError(t, err)
	defer gui.Close()

	conn, err := net.Dial("udp", "127.0.0.1:"+itoa(inPort))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(`{"type":"text","text":"hello"}`))
	require.NoError(t, err)

	select {
	case text := <-gui.Text:
		require.Equal(t, "hello", text)
	case <-time.After(2 * time.Second):
		t.Fatal("expected inbound text event")
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [12]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
