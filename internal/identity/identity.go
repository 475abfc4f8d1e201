// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package identity manages the on-disk DeviceIdentity: a client_id generated
// once and never regenerated, plus the device's MAC-derived device_id.
package identity

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rapidaai/xiaozhi-go-client/internal/commons"
)

// Identity is the persisted client_id and device_id (the colon-lowercase
// MAC address, also sent as mac_address during activation), an optional MAC
// override, plus the activation flag set once activation succeeds.
type Identity struct {
	ClientID    string `json:"client_id"`
	DeviceID    string `json:"device_id"`
	MacOverride string `json:"mac_override,omitempty"`
	Activated   bool   `json:"activated"`
}

// Store loads, persists and mutates the Identity file. A mutation decodes the
// existing file into Identity, changes the one field and writes the struct
// back whole; JSON fields that Identity does not declare are not preserved.
type Store struct {
	path   string
	logger commons.Logger
	mu     sync.Mutex
}

// NewStore opens (or lazily prepares to create) the identity file at path.
func NewStore(path string, logger commons.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Load reads the identity file, creating it with a fresh client_id and
// detected device_id if it does not yet exist. The client_id, once written,
// is never regenerated for the life of the installation.
func (s *Store) Load() (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.read()
	if err == nil {
		return id, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading identity file: %w", err)
	}

	s.logger.Infof("no identity file at %s, provisioning new device identity", s.path)
	mac, macErr := detectMAC()
	if macErr != nil {
		s.logger.Warnf("detecting MAC address: %v", macErr)
	}

	fresh := &Identity{
		ClientID: uuid.New().String(),
		DeviceID: mac,
	}
	if err := s.write(fresh); err != nil {
		return nil, fmt.Errorf("persisting new identity: %w", err)
	}
	return fresh, nil
}

// SetActivated persists the activation flag, merging into whatever is
// already on disk.
func (s *Store) SetActivated(activated bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.read()
	if err != nil {
		return fmt.Errorf("reading identity file before update: %w", err)
	}
	id.Activated = activated
	return s.write(id)
}

func (s *Store) read() (*Identity, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("parsing identity file: %w", err)
	}
	if id.MacOverride != "" {
		id.DeviceID = id.MacOverride
	}
	return &id, nil
}

// write persists id atomically: write to a temp file in the same directory,
// then rename over the target, so a crash never leaves a half-written file.
func (s *Store) write(id *Identity) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating identity directory: %w", err)
	}

	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling identity: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing identity temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("renaming identity temp file: %w", err)
	}
	return nil
}

// detectMAC returns the colon-lowercase MAC address of the first interface
// that has a non-zero hardware address and is not loopback.
func detectMAC() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("listing network interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if len(iface.HardwareAddr) == 0 {
			continue
		}
		return strings.ToLower(iface.HardwareAddr.String()), nil
	}
	return "", fmt.Errorf("no interface with a hardware address found")
}
