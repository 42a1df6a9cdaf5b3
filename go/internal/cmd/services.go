package main

import (
	"fmt"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/buffring/go/internal/buff"
	"github.com/mcdev12/buffring/go/internal/command"
	"github.com/mcdev12/buffring/go/internal/config"
	"github.com/mcdev12/buffring/go/internal/gateway"
	"github.com/mcdev12/buffring/go/internal/overlay"
)

type Services struct {
	Controller *buff.Controller
	Scene      *overlay.Scene
	Receiver   *command.Receiver
	Gateway    *gateway.Service
}

func setupServices(cfg *config.Config, recorder command.Recorder) (*Services, error) {
	// Wire up the pipeline
	// Transports → Receiver → Controller → Sinks (scene, websocket, console)
	clock := clockwork.NewRealClock()

	scene := overlay.NewScene(clock, cfg.Overlay.Timing)
	markup := overlay.NewMarkup(cfg.Overlay.Geometry, cfg.Overlay.Timing)

	sinks := []buff.Sink{scene}
	if cfg.Console {
		sinks = append(sinks, overlay.NewConsole(os.Stdout))
	}

	controller := buff.NewController(
		cfg.BuffConfig(),
		buff.WithClock(clock),
		buff.WithSinks(sinks...),
	)
	receiver := command.NewReceiver(controller, recorder)

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.JetStreamEnabled = cfg.NATS.Enabled
	gatewayConfig.JetStreamConfig.URL = cfg.NATS.URL
	gatewayConfig.JetStreamConfig.StreamName = cfg.NATS.Stream
	gatewayConfig.JetStreamConfig.ConsumerName = cfg.NATS.Consumer
	gatewayConfig.JetStreamConfig.SubjectFilter = cfg.NATS.Subject

	gatewayService, err := gateway.NewService(gatewayConfig, receiver, controller, scene, markup)
	if err != nil {
		return nil, fmt.Errorf("failed to create overlay gateway: %w", err)
	}
	controller.AddSink(gatewayService.Sink())
	if reader, ok := recorder.(gateway.JournalReader); ok {
		gatewayService.UseJournal(reader)
	}

	return &Services{
		Controller: controller,
		Scene:      scene,
		Receiver:   receiver,
		Gateway:    gatewayService,
	}, nil
}
