// Package gateway carries buff commands in and overlay frames out: the
// overlay WebSocket, the JetStream command consumer, the Connect service and
// the JSON state endpoints
package gateway

import (
	"context"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/mcdev12/buffring/go/internal/buff"
	"github.com/mcdev12/buffring/go/internal/command"
	"github.com/mcdev12/buffring/go/internal/overlay"
	"github.com/rs/zerolog/log"
)

// Service is the overlay gateway that handles client connections and command intake
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	commandConsumer   *CommandConsumer
	stateHandler      *StateHandler
	receiver          *command.Receiver
	stateProvider     StateProvider
	handlerOptions    []connect.HandlerOption
}

// Config holds configuration for the overlay gateway
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig
	JetStreamEnabled bool
}

// DefaultConfig returns default configuration for the overlay gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
		JetStreamEnabled: true,
	}
}

// NewService creates a new overlay gateway service. scene and markup may be
// nil when no server-side rendering is wanted
func NewService(config Config, receiver *command.Receiver, stateProvider StateProvider, scene SceneProvider, markup *overlay.Markup, opts ...connect.HandlerOption) (*Service, error) {
	connectionManager := NewConnectionManager(config.ConnectionConfig, receiver, stateProvider)

	s := &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		stateHandler:      NewStateHandler(stateProvider, scene, markup),
		receiver:          receiver,
		stateProvider:     stateProvider,
		handlerOptions:    opts,
	}

	if config.JetStreamEnabled {
		consumer, err := NewCommandConsumer(receiver, config.JetStreamConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create command consumer: %w", err)
		}
		s.commandConsumer = consumer
	}

	return s, nil
}

// UseJournal exposes the command journal on GET /api/journal. Without it the
// route answers 503
func (s *Service) UseJournal(j JournalReader) {
	s.stateHandler.journal = j
}

// Sink returns the controller sink that feeds overlay clients
func (s *Service) Sink() buff.Sink {
	return s.connectionManager
}

// Start runs the gateway until ctx is cancelled
func (s *Service) Start(ctx context.Context) error {
	log.Info().
		Bool("jetstream", s.commandConsumer != nil).
		Msg("starting overlay gateway service")

	go s.connectionManager.Start(ctx)

	if s.commandConsumer != nil {
		go func() {
			if err := s.commandConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("command consumer failed")
			}
		}()
	}

	<-ctx.Done()

	log.Info().Msg("overlay gateway service shutting down")
	return s.Stop()
}

// Stop gracefully shuts down the gateway service
func (s *Service) Stop() error {
	if s.commandConsumer != nil {
		if err := s.commandConsumer.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop command consumer")
		}
	}

	// Connection manager will stop when context is cancelled
	log.Info().Msg("overlay gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket, Connect and state routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterRoutes(mux)

	path, handler := NewBuffServiceHandler(s.receiver, s.stateProvider, s.handlerOptions...)
	mux.Handle(path, handler)

	log.Info().Str("connect_path", path).Msg("overlay gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() map[string]interface{} {
	stats := s.connectionManager.GetConnectionStats()
	stats["service"] = "buff_overlay"
	stats["status"] = "running"
	stats["jetstream"] = s.commandConsumer != nil
	stats["buffs"] = s.stateProvider.Stats()
	stats["journal"] = s.stateHandler.journal != nil
	return stats
}
