package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mcdev12/buffring/go/internal/command"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// JetStreamConsumerConfig holds configuration for the JetStream command consumer
type JetStreamConsumerConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string
	SubjectFilter string        // e.g., "buff.commands.>"
	CreateStream  bool          // Create the stream when it does not exist
	MaxDeliver    int           // Max delivery attempts
	AckWait       time.Duration // How long to wait for ack
	MaxAckPending int           // Max messages pending ack
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultJetStreamConsumerConfig returns default JetStream consumer configuration
func DefaultJetStreamConsumerConfig() JetStreamConsumerConfig {
	return JetStreamConsumerConfig{
		URL:           nats.DefaultURL,
		StreamName:    "BUFF_COMMANDS",
		ConsumerName:  "buff-overlay",
		SubjectFilter: "buff.commands.>",
		CreateStream:  true,
		MaxDeliver:    3,
		AckWait:       10 * time.Second,
		MaxAckPending: 100,
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// CommandConsumer consumes buff commands from JetStream and hands them to the receiver
type CommandConsumer struct {
	receiver *command.Receiver
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	config   JetStreamConsumerConfig
}

// NewCommandConsumer connects to NATS and ensures the durable consumer exists
func NewCommandConsumer(receiver *command.Receiver, config JetStreamConsumerConfig) (*CommandConsumer, error) {
	opts := []nats.Option{
		nats.Name("buffring"),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	cc := &CommandConsumer{
		receiver: receiver,
		nc:       nc,
		js:       js,
		config:   config,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := cc.ensureConsumer(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}

	return cc, nil
}

// ensureStream returns the command stream, creating it when allowed
func (cc *CommandConsumer) ensureStream(ctx context.Context) (jetstream.Stream, error) {
	stream, err := cc.js.Stream(ctx, cc.config.StreamName)
	if err == nil {
		return stream, nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) || !cc.config.CreateStream {
		return nil, fmt.Errorf("get stream: %w", err)
	}

	stream, err = cc.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        cc.config.StreamName,
		Description: "Buff overlay commands",
		Subjects:    []string{cc.config.SubjectFilter},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      time.Hour,
		Storage:     jetstream.MemoryStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("create stream: %w", err)
	}
	log.Info().
		Str("stream", cc.config.StreamName).
		Str("subjects", cc.config.SubjectFilter).
		Msg("created JetStream stream")
	return stream, nil
}

// ensureConsumer creates or gets the JetStream consumer
func (cc *CommandConsumer) ensureConsumer(ctx context.Context) error {
	stream, err := cc.ensureStream(ctx)
	if err != nil {
		return err
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          cc.config.ConsumerName,
		Durable:       cc.config.ConsumerName,
		Description:   "Buff overlay command consumer",
		FilterSubject: cc.config.SubjectFilter,
		// Buffs are not persisted, so commands from before startup are stale
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    cc.config.MaxDeliver,
		AckWait:       cc.config.AckWait,
		MaxAckPending: cc.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	consumer, err := stream.Consumer(ctx, cc.config.ConsumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().
			Str("consumer", cc.config.ConsumerName).
			Str("stream", cc.config.StreamName).
			Msg("created JetStream consumer")
	} else {
		log.Info().
			Str("consumer", cc.config.ConsumerName).
			Str("stream", cc.config.StreamName).
			Msg("using existing JetStream consumer")
	}

	cc.consumer = consumer
	return nil
}

// Start begins consuming commands from JetStream. It blocks until ctx is done
func (cc *CommandConsumer) Start(ctx context.Context) error {
	log.Info().
		Str("consumer", cc.config.ConsumerName).
		Str("stream", cc.config.StreamName).
		Msg("starting JetStream command consumer")

	messageCh := make(chan jetstream.Msg, 100)

	consumeCtx, err := cc.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("command consumer shutting down")
			return nil
		case msg := <-messageCh:
			cc.handleMessage(ctx, msg.Subject(), msg.Data())
			// Malformed commands are dropped; redelivery would not fix them
			if ackErr := msg.Ack(); ackErr != nil {
				log.Error().Err(ackErr).Msg("failed to ACK message")
			}
		}
	}
}

// handleMessage applies one command payload and reports whether it was recognised
func (cc *CommandConsumer) handleMessage(ctx context.Context, subject string, data []byte) bool {
	ok := cc.receiver.ReceiveJSON(ctx, "nats", data)
	if !ok {
		log.Warn().
			Str("subject", subject).
			Int("bytes", len(data)).
			Msg("dropping unrecognised command message")
	}
	return ok
}

// Stop gracefully shuts down the command consumer
func (cc *CommandConsumer) Stop() error {
	log.Info().Msg("stopping command consumer")

	if cc.nc != nil {
		return cc.nc.Drain()
	}

	return nil
}
