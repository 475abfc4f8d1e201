// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package tool

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/rapidaai/xiaozhi-go-client/internal/model"
)

// tcpExecutor opens a connection, sends the arguments JSON followed by a
// single newline, and reads the response until newline or connection close.
type tcpExecutor struct{}

func (tcpExecutor) execute(ctx context.Context, d model.ToolDescriptor, arguments map[string]interface{}) (string, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", d.Address)
	if err != nil {
		return "", fmt.Errorf("dialing tool %q at %s: %w", d.Name, d.Address, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	payload, err := json.Marshal(arguments)
	if err != nil {
		return "", fmt.Errorf("marshaling tool arguments: %w", err)
	}
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return "", fmt.Errorf("writing to tool %q: %w", d.Name, err)
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading from tool %q: %w", d.Name, err)
	}
	return line, nil
}
