// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package tool

import (
	"context"
	"fmt"

	"github.com/rapidaai/xiaozhi-go-client/internal/model"
)

// executor is the uniform execution contract every transport backend
// satisfies: takes arguments, returns a result string or an error, and must
// honor ctx's deadline.
type executor interface {
	execute(ctx context.Context, d model.ToolDescriptor, arguments map[string]interface{}) (string, error)
}

// executorFor resolves the transport-specific executor for a descriptor.
func executorFor(d model.ToolDescriptor) (executor, error) {
	switch d.Transport {
	case model.TransportSubprocess:
		return subprocessExecutor{}, nil
	case model.TransportHTTP:
		return httpExecutor{client: sharedHTTPClient()}, nil
	case model.TransportTCP:
		return tcpExecutor{}, nil
	default:
		return nil, fmt.Errorf("unknown tool transport %q", d.Transport)
	}
}
