// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package model holds the wire and session types shared across subsystems:
// SessionState, AudioFrame, CloudMessage and the tool-gateway descriptors.
package model

import "time"

// SessionState is the Controller's enumerated state.
type SessionState int

const (
	StateIdle SessionState = iota
	StateListening
	StateProcessing
	StateSpeaking
	StateNetworkError
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	case StateSpeaking:
		return "speaking"
	case StateNetworkError:
		return "error"
	default:
		return "unknown"
	}
}

// Audio framing constants. A frame is always 60ms.
const (
	FrameDurationMs = 60
	CaptureSamples  = 960  // 60ms @ 16kHz
	PlaybackSamples = 1440 // 60ms @ 24kHz
)

// AudioFrame is a fixed-duration chunk of mono PCM16 audio.
type AudioFrame struct {
	PCM       []int16
	SampleHz  int
	Timestamp time.Time
}

// CloudMessageType discriminates the text-channel sum type.
type CloudMessageType string

const (
	MsgHello        CloudMessageType = "hello"
	MsgListen       CloudMessageType = "listen"
	MsgAbort        CloudMessageType = "abort"
	MsgTTS          CloudMessageType = "tts"
	MsgSTT          CloudMessageType = "stt"
	MsgIoTCommand   CloudMessageType = "iot"
	MsgToolRequest  CloudMessageType = "tool_request"
	MsgToolResponse CloudMessageType = "tool_response"
	MsgGoodbye      CloudMessageType = "goodbye"
)

// AudioParams describes the negotiated codec parameters of one direction.
type AudioParams struct {
	Format         string `json:"format"`
	SampleRate     int    `json:"sample_rate"`
	Channels       int    `json:"channels"`
	FrameDurationMs int   `json:"frame_duration"`
}

// HelloPayload is the handshake message, client->server and server->client.
type HelloPayload struct {
	Transport   string      `json:"transport,omitempty"`
	AudioParams AudioParams `json:"audio_params"`
	SessionID   string      `json:"session_id,omitempty"`
}

// ListenPayload carries listen.start / listen.stop / listen.detect.
type ListenPayload struct {
	Mode string `json:"mode"` // "start", "stop", "detect"
}

// TTSPayload describes a TTS lifecycle event from the cloud.
type TTSPayload struct {
	Event string `json:"event"` // start, stop, sentence_start, sentence_end
	Text  string `json:"text,omitempty"`
}

// SttPayload carries a recognized transcript from the cloud.
type SttPayload struct {
	Text string `json:"text"`
}

// CloudMessage is the envelope for every textual control message.
type CloudMessage struct {
	Type      CloudMessageType `json:"type"`
	Hello     *HelloPayload    `json:"hello,omitempty"`
	Listen    *ListenPayload   `json:"listen,omitempty"`
	TTS       *TTSPayload      `json:"tts,omitempty"`
	Stt       *SttPayload      `json:"stt,omitempty"`
	IoT       map[string]interface{} `json:"iot,omitempty"`
	ToolCall  *ToolCallRequest `json:"tool_call,omitempty"`
	ToolReply *ToolCallResponse `json:"tool_reply,omitempty"`
}

// ToolTransportKind is the closed set of backends a ToolDescriptor may use.
type ToolTransportKind string

const (
	TransportSubprocess ToolTransportKind = "subprocess"
	TransportHTTP       ToolTransportKind = "http"
	TransportTCP        ToolTransportKind = "tcp"
)

// ExecutionMode governs whether a tool call blocks for its result.
type ExecutionMode string

const (
	ModeSync       ExecutionMode = "sync"
	ModeBackground ExecutionMode = "background"
)

// NotifyMethod is the post-hoc side channel for Background results.
type NotifyMethod string

const (
	NotifyDisabled    NotifyMethod = "disabled"
	NotifyWebhook     NotifyMethod = "webhook"
	NotifyLocalSocket NotifyMethod = "local_socket"
	NotifyMQTT        NotifyMethod = "mqtt"
)

// ToolDescriptor is the immutable, registry-held definition of one tool.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
	Transport   ToolTransportKind
	Executable  string
	Args        []string
	URL         string
	Method      string
	Address     string
	Mode        ExecutionMode
	TimeoutMs   uint32
	Notify      NotifyMethod
	WebhookURL  string
}

// EffectiveTimeout applies the default tool-call timeout of 5000ms.
func (d ToolDescriptor) EffectiveTimeout() time.Duration {
	ms := d.TimeoutMs
	if ms == 0 {
		ms = 5000
	}
	return time.Duration(ms) * time.Millisecond
}

// JSON-RPC 2.0 methods the tool gateway dispatches on.
const (
	MethodToolsCall = "tools/call"
	MethodToolsList = "tools/list"
)

// ToolCallRequest is the JSON-RPC 2.0 request shape for both "tools/call"
// and "tools/list"; Params is empty for a list request.
type ToolCallRequest struct {
	JSONRPC string                 `json:"jsonrpc"`
	ID      string                 `json:"id"`
	Method  string                 `json:"method"`
	Params  ToolCallParams         `json:"params"`
}

// ToolCallParams is the params object of a tools/call request.
type ToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ToolCallResponse is the JSON-RPC 2.0 reply, success or error.
type ToolCallResponse struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      string         `json:"id"`
	Result  interface{}    `json:"result,omitempty"`
	Error   *ToolCallError `json:"error,omitempty"`
}

// ToolCallError is the JSON-RPC error object.
type ToolCallError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Standard JSON-RPC error codes used by the gateway.
const (
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeTimeout        = -32000
)

// PendingNotification is a queued post-hoc background-tool result.
type PendingNotification struct {
	ToolName string
	Payload  string
	QueuedAt time.Time
}
