// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package bridge

import "github.com/rapidaai/xiaozhi-go-client/internal/commons"

// IoT is the outbound-only UDP passthrough of cloud IoT commands.
type IoT struct {
	out *sender
}

// NewIoT dials the IoT bridge's UDP port.
func NewIoT(host string, port int, logger commons.Logger) (*IoT, error) {
	out, err := newSender(host, port, logger)
	if err != nil {
		return nil, err
	}
	return &IoT{out: out}, nil
}

// Forward passes a decoded IoT command payload straight through.
func (i *IoT) Forward(command map[string]interface{}) {
	i.out.sendJSON(command)
}

// Close releases the outbound socket.
func (i *IoT) Close() error {
	return i.out.Close()
}
