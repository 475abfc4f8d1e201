// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package controller owns SessionState and arbitrates every other
// subsystem's right to produce audio, inject text, or update the state.
// It is the single writer of session state: every other task interacts
// with it only by sending events over its inbound channel.
package controller

import "github.com/rapidaai/xiaozhi-go-client/internal/model"

// Event is the sum type of everything the Controller can react to. Exactly
// one field is meaningful per value; Kind says which.
type Event struct {
	Kind EventKind

	CloudMessage   *model.CloudMessage
	OpusFrame      []byte
	GUIText        string
	GUITrigger     bool
	ToolCompletion *model.PendingNotification
	TransportErr   error
}

// EventKind discriminates Event.
type EventKind int

const (
	EventCloudMessage EventKind = iota
	EventFrameReady
	EventPlaybackDrained
	EventSilenceDetected
	EventGUIText
	EventGUITrigger
	EventToolCompletion
	EventTransportConnected
	EventTransportDisconnected
	EventHelloSucceeded
	EventUserCancel
)

// Command is the sum type of everything the Controller emits to other
// subsystems.
type Command struct {
	Kind CommandKind

	SendText   *model.CloudMessage
	SendBinary []byte
	CaptureOn  bool
	GUIUpdate  map[string]interface{}
	IoTForward map[string]interface{}
	ToolCall   *model.ToolCallRequest
}

// CommandKind discriminates Command.
type CommandKind int

const (
	CommandSendText CommandKind = iota
	CommandSendBinary
	CommandSetCapture
	CommandResetPlayback
	CommandGUIUpdate
	CommandIoTForward
	CommandToolInvoke
)
