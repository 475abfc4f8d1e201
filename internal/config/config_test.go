// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testYAML = `
cloud:
  activation_url: https://activate.example.com
  session_url: wss://session.example.com
  auth_bearer: secret-token
  protocol_version: "1"
audio:
  capture_rate_hz: 16000
  playback_rate_hz: 24000
`

func TestLoad_ValidConfigPopulatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testYAML), 0o644))

	v, err := InitConfig(path)
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)

	require.Equal(t, "https://activate.example.com", cfg.Cloud.ActivationURL)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "default", cfg.Audio.CaptureDevice)
	require.Equal(t, 7701, cfg.Bridge.GUIOutPort)
	require.False(t, cfg.Notify.Enabled)
}

func TestLoad_MissingRequiredFieldFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: dev\n"), 0o644))

	v, err := InitConfig(path)
	require.NoError(t, err)

	_, err = Load(v)
	require.Error(t, err)
}
