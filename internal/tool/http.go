// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package tool

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/rapidaai/xiaozhi-go-client/internal/model"
)

var (
	httpClientOnce sync.Once
	httpClient     *resty.Client
)

// sharedHTTPClient returns the resty client used by both the Http tool
// executor and the webhook notify side channel.
func sharedHTTPClient() *resty.Client {
	httpClientOnce.Do(func() {
		httpClient = resty.New()
	})
	return httpClient
}

// httpExecutor sends the arguments as the request body (POST) or query
// string (GET); the response body becomes the result.
type httpExecutor struct {
	client *resty.Client
}

func (e httpExecutor) execute(ctx context.Context, d model.ToolDescriptor, arguments map[string]interface{}) (string, error) {
	method := strings.ToUpper(d.Method)
	if method == "" {
		method = "POST"
	}

	req := e.client.R().SetContext(ctx)

	var resp *resty.Response
	var err error
	switch method {
	case "GET":
		query := make(map[string]string, len(arguments))
		for k, v := range arguments {
			query[k] = fmt.Sprintf("%v", v)
		}
		resp, err = req.SetQueryParams(query).Get(d.URL)
	default:
		resp, err = req.SetBody(arguments).Post(d.URL)
	}
	if err != nil {
		return "", fmt.Errorf("calling tool %q over http: %w", d.Name, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("tool %q returned http %d: %s", d.Name, resp.StatusCode(), resp.String())
	}
	return resp.String(), nil
}
