// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/rapidaai/xiaozhi-go-client/internal/model"
)

// subprocessExecutor spawns executable args…, writes the arguments JSON to
// its stdin, closes stdin, and collects stdout until exit. This blocks the
// calling goroutine on OS process I/O, so callers must run it off the
// controller's goroutine.
type subprocessExecutor struct{}

func (subprocessExecutor) execute(ctx context.Context, d model.ToolDescriptor, arguments map[string]interface{}) (string, error) {
	payload, err := json.Marshal(arguments)
	if err != nil {
		return "", fmt.Errorf("marshaling tool arguments: %w", err)
	}

	cmd := exec.CommandContext(ctx, d.Executable, d.Args...)
	cmd.Stdin = bytes.NewReader(payload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("tool %q timed out: %w", d.Name, ctx.Err())
		}
		return "", fmt.Errorf("tool %q exited with error: %s", d.Name, stderr.String())
	}
	return stdout.String(), nil
}
