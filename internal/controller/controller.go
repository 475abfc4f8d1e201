// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package controller

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rapidaai/xiaozhi-go-client/internal/commons"
	"github.com/rapidaai/xiaozhi-go-client/internal/identity"
	"github.com/rapidaai/xiaozhi-go-client/internal/model"
)

const (
	heartbeatInterval = 15 * time.Second
	idleTimeout       = 45 * time.Second
)

// Controller is the single owner of SessionState and the pending
// notification queue. It processes events serially on one goroutine; this
// serialization is the entire lock discipline — no other goroutine mutates
// session state directly.
type Controller struct {
	logger commons.Logger

	events  chan Event
	command func(Command)

	mu    sync.RWMutex
	state model.SessionState

	pending            []model.PendingNotification
	injectedThisIdle   bool
	lastMessageAt      time.Time

	onTransition func(from, to model.SessionState)
}

// New builds a Controller. command is invoked (from the Controller's own
// goroutine) for every outbound command; callers must not block in it for
// long since it delays event processing.
func New(logger commons.Logger, command func(Command)) *Controller {
	return &Controller{
		logger:  logger,
		events:  make(chan Event, 64),
		command: command,
		state:   model.StateIdle,
	}
}

// OnTransition registers a hook invoked after every state change. Used by
// the GUI bridge and by tests; optional.
func (c *Controller) OnTransition(fn func(from, to model.SessionState)) {
	c.onTransition = fn
}

// State returns the current SessionState. Safe for concurrent use.
func (c *Controller) State() model.SessionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Submit enqueues an event for the controller's goroutine to process. Never
// blocks the caller for long: the channel is generously buffered and full
// only under sustained overload, at which point the event is dropped and
// logged — better than wedging the caller's own task.
func (c *Controller) Submit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warnf("controller event queue full, dropping event kind=%d", ev.Kind)
	}
}

// Run loads the device identity as its errgroup-supervised startup step
// (mirroring the teacher's errgroup-based Initialize) and then runs the
// serial event loop. It blocks until ctx is cancelled.
func (c *Controller) Run(ctx context.Context, idStore *identity.Store) error {
	g, gCtx := errgroup.WithContext(ctx)

	var loadedIdentity *identity.Identity
	g.Go(func() error {
		id, err := idStore.Load()
		if err != nil {
			return err
		}
		loadedIdentity = id
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	c.logger.Infof("device identity loaded: client_id=%s device_id=%s", loadedIdentity.ClientID, loadedIdentity.DeviceID)

	return c.loop(gCtx)
}

func (c *Controller) loop(ctx context.Context) error {
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	idleCheck := time.NewTicker(5 * time.Second)
	defer idleCheck.Stop()

	c.lastMessageAt = time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-heartbeat.C:
			c.command(Command{
				Kind:     CommandSendText,
				SendText: &model.CloudMessage{Type: "ping"},
			})

		case <-idleCheck.C:
			if time.Since(c.lastMessageAt) > idleTimeout {
				c.logger.Warnf("no peer message for %s, treating as disconnect", idleTimeout)
				c.handleTransportDisconnected()
			}

		case ev := <-c.events:
			c.lastMessageAt = time.Now()
			c.handle(ev)
		}
	}
}

func (c *Controller) handle(ev Event) {
	switch ev.Kind {
	case EventCloudMessage:
		c.handleCloudMessage(ev.CloudMessage)
	case EventFrameReady:
		c.handleFrameReady(ev.OpusFrame)
	case EventPlaybackDrained:
		c.transition(model.StateIdle)
	case EventSilenceDetected:
		// VAD-driven end of utterance: Listening moves on to Processing.
		if c.State() == model.StateListening {
			c.transition(model.StateProcessing)
		}
	case EventGUIText:
		c.handleUserSpeechLike()
	case EventGUITrigger:
		c.handleUserSpeechLike()
	case EventToolCompletion:
		c.enqueueNotification(*ev.ToolCompletion)
		c.maybeDrainNotification()
	case EventTransportConnected:
		// No state change yet; wait for hello to succeed.
	case EventTransportDisconnected:
		c.handleTransportDisconnected()
	case EventHelloSucceeded:
		if c.State() == model.StateNetworkError {
			c.transition(model.StateIdle)
		}
	case EventUserCancel:
		if c.State() == model.StateListening {
			c.transition(model.StateIdle)
		}
	}
}

// handleCloudMessage implements the state transitions driven by the
// cloud's text channel.
func (c *Controller) handleCloudMessage(msg *model.CloudMessage) {
	if msg == nil {
		return
	}
	switch msg.Type {
	case model.MsgListen:
		if msg.Listen != nil && msg.Listen.Mode == "start" {
			c.transition(model.StateListening)
			c.command(Command{Kind: CommandSetCapture, CaptureOn: true})
		}
		if msg.Listen != nil && msg.Listen.Mode == "stop" {
			c.command(Command{Kind: CommandSetCapture, CaptureOn: false})
		}
	case model.MsgAbort:
		c.transition(model.StateIdle)
		c.command(Command{Kind: CommandSetCapture, CaptureOn: false})
	case model.MsgTTS:
		if msg.TTS != nil {
			switch msg.TTS.Event {
			case "start":
				c.transition(model.StateSpeaking)
				c.command(Command{Kind: CommandSetCapture, CaptureOn: false})
			case "stop":
				c.transition(model.StateIdle)
				c.command(Command{Kind: CommandResetPlayback})
			}
		}
	case model.MsgSTT:
		if c.State() == model.StateListening {
			c.transition(model.StateProcessing)
		}
	case model.MsgIoTCommand:
		c.command(Command{Kind: CommandIoTForward, IoTForward: msg.IoT})
	case model.MsgToolRequest:
		if msg.ToolCall != nil {
			c.command(Command{Kind: CommandToolInvoke, ToolCall: msg.ToolCall})
		}
	case model.MsgGoodbye:
		c.transition(model.StateIdle)
	}
}

// handleFrameReady forwards an encoded Opus frame to the transport only
// while the Controller is in Listening; frames captured in any other
// state are discarded.
func (c *Controller) handleFrameReady(frame []byte) {
	if c.State() != model.StateListening {
		return
	}
	c.command(Command{Kind: CommandSendBinary, SendBinary: frame})
}

// handleUserSpeechLike covers both "user speaks" and a GUI manual trigger:
// from Idle it starts listening; during an idle notification drain it
// cancels further injection for this window.
func (c *Controller) handleUserSpeechLike() {
	c.mu.Lock()
	c.injectedThisIdle = true
	c.mu.Unlock()

	if c.State() == model.StateIdle {
		c.transition(model.StateListening)
		c.command(Command{Kind: CommandSetCapture, CaptureOn: true})
	}
}

func (c *Controller) handleTransportDisconnected() {
	c.command(Command{Kind: CommandResetPlayback})
	c.command(Command{Kind: CommandSetCapture, CaptureOn: false})
	c.transition(model.StateNetworkError)
}

// transition is the single place SessionState changes.
func (c *Controller) transition(to model.SessionState) {
	c.mu.Lock()
	from := c.state
	if from == to {
		c.mu.Unlock()
		return
	}
	c.state = to
	if to == model.StateIdle {
		c.injectedThisIdle = false
	}
	c.mu.Unlock()

	c.logger.Infof("session state %s -> %s", from, to)
	if c.onTransition != nil {
		c.onTransition(from, to)
	}
	if to == model.StateIdle {
		c.maybeDrainNotification()
	}
}

func (c *Controller) enqueueNotification(n model.PendingNotification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, n)
}

// maybeDrainNotification injects at most one queued notification per Idle
// entry, as a synthetic text prompt, and only while no user speech or
// tts.start has arrived during this idle window.
func (c *Controller) maybeDrainNotification() {
	c.mu.Lock()
	if c.state != model.StateIdle || c.injectedThisIdle || len(c.pending) == 0 {
		c.mu.Unlock()
		return
	}
	next := c.pending[0]
	c.pending = c.pending[1:]
	c.injectedThisIdle = true
	c.mu.Unlock()

	c.command(Command{
		Kind: CommandSendText,
		SendText: &model.CloudMessage{
			Type: model.MsgSTT,
			Stt:  &model.SttPayload{Text: "Background task \"" + next.ToolName + "\" finished: " + next.Payload},
		},
	})
}
