// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package identity

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/xiaozhi-go-client/internal/commons"
)

func testLogger(t *testing.T) commons.Logger {
	t.Helper()
	logger, err := commons.NewLogger("debug", true)
	require.NoError(t, err)
	return logger
}

func TestLoad_CreatesIdentityOnFirstBoot(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "identity.json"), testLogger(t))

	id, err := store.Load()
	require.NoError(t, err)
	assert.NotEmpty(t, id.ClientID)
	assert.False(t, id.Activated)
}

func TestLoad_ClientIDNeverRegenerated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	logger := testLogger(t)

	first, err := NewStore(path, logger).Load()
	require.NoError(t, err)

	second, err := NewStore(path, logger).Load()
	require.NoError(t, err)

	assert.Equal(t, first.ClientID, second.ClientID)
}

func TestSetActivated_MergesIntoExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	logger := testLogger(t)
	store := NewStore(path, logger)

	id, err := store.Load()
	require.NoError(t, err)
	require.NoError(t, store.SetActivated(true))

	reloaded, err := store.Load()
	require.NoError(t, err)
	assert.True(t, reloaded.Activated)
	assert.Equal(t, id.ClientID, reloaded.ClientID)
}

func TestLoad_MacOverrideTakesPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	logger := testLogger(t)
	store := NewStore(path, logger)

	_, err := store.Load()
	require.NoError(t, err)

	id, err := store.read()
	require.NoError(t, err)
	id.MacOverride = "aa:bb:cc:dd:ee:ff"
	require.NoError(t, store.write(id))

	reloaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", reloaded.DeviceID)
}
