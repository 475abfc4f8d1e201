// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Command xiaozhi is the embedded-board voice assistant client: it owns the
// microphone and speaker, maintains one persistent connection to the cloud,
// and dispatches tool calls the cloud asks it to run locally.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rapidaai/xiaozhi-go-client/internal/audio/device"
	"github.com/rapidaai/xiaozhi-go-client/internal/audio/dsp"
	"github.com/rapidaai/xiaozhi-go-client/internal/audio/pipeline"
	"github.com/rapidaai/xiaozhi-go-client/internal/bridge"
	"github.com/rapidaai/xiaozhi-go-client/internal/commons"
	"github.com/rapidaai/xiaozhi-go-client/internal/config"
	"github.com/rapidaai/xiaozhi-go-client/internal/controller"
	"github.com/rapidaai/xiaozhi-go-client/internal/identity"
	"github.com/rapidaai/xiaozhi-go-client/internal/model"
	"github.com/rapidaai/xiaozhi-go-client/internal/notify"
	"github.com/rapidaai/xiaozhi-go-client/internal/tool"
	"github.com/rapidaai/xiaozhi-go-client/internal/transport"
	"github.com/rapidaai/xiaozhi-go-client/internal/transport/activation"
	"github.com/rapidaai/xiaozhi-go-client/internal/transport/session"
)

func main() {
	configPath := parseFlags()

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	logger, err := commons.NewLogger(cfg.LogLevel, cfg.Environment != "production")
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Infof("shutdown signal received")
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil && ctx.Err() == nil {
		logger.Errorf("fatal: %v", err)
		os.Exit(1)
	}
}

func parseFlags() string {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config.yaml (defaults to ENV_PATH or ./config.yaml)")
	flag.Parse()
	return configPath
}

func loadConfig(path string) (*config.AppConfig, error) {
	v, err := config.InitConfig(path)
	if err != nil {
		return nil, err
	}
	return config.Load(v)
}

// run wires every subsystem together and blocks until ctx is cancelled or a
// startup step fails. The device identity is resolved once up front since
// both activation and the transport layer need it.
func run(ctx context.Context, cfg *config.AppConfig, logger commons.Logger) error {
	idStore := identity.NewStore(cfg.IdentityPath, logger)
	id, err := idStore.Load()
	if err != nil {
		return err
	}

	guiBridge, err := bridge.NewGUI(cfg.Bridge.Host, cfg.Bridge.GUIOutPort, cfg.Bridge.GUIInPort, logger)
	if err != nil {
		return err
	}
	defer guiBridge.Close()

	iotBridge, err := bridge.NewIoT(cfg.Bridge.Host, cfg.Bridge.IoTOutPort, logger)
	if err != nil {
		return err
	}
	defer iotBridge.Close()

	if !id.Activated {
		activationClient := activation.NewClient(cfg.Cloud.ActivationURL, logger, guiBridge.SendCode)
		if err := activationClient.Activate(ctx, id); err != nil {
			return err
		}
		if err := idStore.SetActivated(true); err != nil {
			return err
		}
	}

	notifications := make(chan model.PendingNotification, 16)
	var notifyQueue *notify.Queue
	if cfg.Notify.Enabled {
		notifyQueue = notify.NewQueue(cfg.Notify.Addr, cfg.Notify.Password, cfg.Notify.DB, id.DeviceID, logger)
		defer notifyQueue.Close()
	}

	registry, err := tool.NewRegistry(cfg.MCP.Tools)
	if err != nil {
		return err
	}
	gateway := tool.NewGateway(registry, logger, notifications)

	captureDev, err := device.NewCapture(cfg.Audio.CaptureDevice, cfg.Audio.CaptureRateHz, model.CaptureSamples)
	if err != nil {
		return err
	}
	defer captureDev.Close()

	playbackDev, err := device.NewPlayback(cfg.Audio.PlaybackDevice, cfg.Audio.PlaybackRateHz, model.PlaybackSamples)
	if err != nil {
		return err
	}
	defer playbackDev.Close()

	var vad *dsp.VAD
	if cfg.Audio.VADEnabled {
		vad, err = dsp.NewVAD(cfg.Audio.VADModelPath, cfg.Audio.CaptureRateHz)
		if err != nil {
			logger.Warnf("VAD disabled: %v", err)
			vad = nil
		} else {
			defer vad.Close()
		}
	}

	captureStage, err := pipeline.NewCapture(logger, captureDev, cfg.Audio.CaptureRateHz, vad)
	if err != nil {
		return err
	}
	playbackStage, err := pipeline.NewPlayback(logger, playbackDev, cfg.Audio.PlaybackRateHz, model.PlaybackSamples)
	if err != nil {
		return err
	}

	manager := transport.NewManager(cfg.Cloud.SessionURL, cfg.Cloud.AuthBearer, cfg.Cloud.ProtocolVersion, idStore, logger)

	ctrl := controller.New(logger, func(cmd controller.Command) {
		dispatchCommand(ctx, cmd, manager, captureStage, playbackStage, guiBridge, iotBridge, gateway, logger)
	})
	ctrl.OnTransition(func(_, to model.SessionState) {
		guiBridge.SendState(to.String())
	})

	manager.OnConnected = func() { ctrl.Submit(controller.Event{Kind: controller.EventTransportConnected}) }
	manager.OnDisconnected = func(error) { ctrl.Submit(controller.Event{Kind: controller.EventTransportDisconnected}) }
	manager.OnHelloReady = func(s *session.Session) {
		logger.Infof("hello handshake complete: session_id=%s", s.SessionID)
		ctrl.Submit(controller.Event{Kind: controller.EventHelloSucceeded})
	}
	manager.OnText = func(msg model.CloudMessage) {
		ctrl.Submit(controller.Event{Kind: controller.EventCloudMessage, CloudMessage: &msg})
	}
	manager.OnBinary = func(data []byte) {
		playbackStage.Enqueue(data)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return manager.Run(gCtx) })
	g.Go(func() error { return ctrl.Run(gCtx, idStore) })
	g.Go(func() error { captureStage.Run(gCtx, model.CaptureSamples); return nil })
	g.Go(func() error { playbackStage.Run(gCtx); return nil })
	g.Go(func() error { pumpCapture(gCtx, captureStage, ctrl); return nil })
	g.Go(func() error { pumpPlayback(gCtx, playbackStage, ctrl); return nil })
	g.Go(func() error { pumpGUI(gCtx, guiBridge, ctrl); return nil })
	g.Go(func() error { pumpToolCompletions(gCtx, notifications, notifyQueue, ctrl); return nil })

	if notifyQueue != nil {
		g.Go(func() error { return replayQueuedNotifications(gCtx, notifyQueue, ctrl) })
	}

	logger.Infof("xiaozhi client started: device_id=%s", id.DeviceID)
	return g.Wait()
}

func pumpCapture(ctx context.Context, c *pipeline.Capture, ctrl *controller.Controller) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-c.Frames:
			ctrl.Submit(controller.Event{Kind: controller.EventFrameReady, OpusFrame: frame})
		case <-c.Silence:
			ctrl.Submit(controller.Event{Kind: controller.EventSilenceDetected})
		}
	}
}

func pumpPlayback(ctx context.Context, p *pipeline.Playback, ctrl *controller.Controller) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.Drained:
			ctrl.Submit(controller.Event{Kind: controller.EventPlaybackDrained})
		}
	}
}

func pumpGUI(ctx context.Context, g *bridge.GUI, ctrl *controller.Controller) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-g.Text:
			ctrl.Submit(controller.Event{Kind: controller.EventGUIText, GUIText: text})
		case <-g.Trigger:
			ctrl.Submit(controller.Event{Kind: controller.EventGUITrigger, GUITrigger: true})
		}
	}
}

// pumpToolCompletions relays every finished background tool call to the
// controller and, when durability is enabled, persists it first so a crash
// between the tool finishing and the controller draining it isn't lost.
func pumpToolCompletions(ctx context.Context, notifications <-chan model.PendingNotification, q *notify.Queue, ctrl *controller.Controller) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-notifications:
			if q != nil {
				if err := q.Push(ctx, n); err != nil {
					ctrl.Submit(controller.Event{Kind: controller.EventToolCompletion, ToolCompletion: &n})
					continue
				}
			}
			ctrl.Submit(controller.Event{Kind: controller.EventToolCompletion, ToolCompletion: &n})
		}
	}
}

// replayQueuedNotifications loads anything left over from a prior process
// lifetime once at startup, so a reboot doesn't silently swallow results
// that finished while the client was down.
func replayQueuedNotifications(ctx context.Context, q *notify.Queue, ctrl *controller.Controller) error {
	pending, err := q.Drain(ctx)
	if err != nil {
		return err
	}
	for i := range pending {
		ctrl.Submit(controller.Event{Kind: controller.EventToolCompletion, ToolCompletion: &pending[i]})
	}
	<-ctx.Done()
	return ctx.Err()
}

func dispatchCommand(
	ctx context.Context,
	cmd controller.Command,
	manager *transport.Manager,
	capture *pipeline.Capture,
	playback *pipeline.Playback,
	gui *bridge.GUI,
	iot *bridge.IoT,
	gateway *tool.Gateway,
	logger commons.Logger,
) {
	switch cmd.Kind {
	case controller.CommandSendText:
		if cmd.SendText != nil {
			if err := manager.Send(*cmd.SendText); err != nil {
				logger.Warnf("sending control message: %v", err)
			}
		}
	case controller.CommandSendBinary:
		if err := manager.SendBinary(cmd.SendBinary); err != nil {
			logger.Warnf("sending audio frame: %v", err)
		}
	case controller.CommandSetCapture:
		capture.SetEnabled(cmd.CaptureOn)
	case controller.CommandResetPlayback:
		playback.Reset()
	case controller.CommandGUIUpdate:
		if v, ok := cmd.GUIUpdate["toast"].(string); ok {
			gui.SendToast(v)
		}
	case controller.CommandIoTForward:
		iot.Forward(cmd.IoTForward)
	case controller.CommandToolInvoke:
		if cmd.ToolCall != nil {
			toolCall := *cmd.ToolCall
			go func() {
				reply := gateway.Handle(ctx, toolCall)
				if err := manager.Send(model.CloudMessage{Type: model.MsgToolResponse, ToolReply: &reply}); err != nil {
					logger.Warnf("sending tool reply: %v", err)
				}
			}()
		}
	}
}
