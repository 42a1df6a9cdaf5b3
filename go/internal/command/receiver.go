package command

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Lifecycle is what the receiver drives; buff.Controller satisfies it.
type Lifecycle interface {
	Add(name string, duration int)
	Extend(name string, extra int)
	Remove(name string)
}

// Recorder keeps an audit trail of accepted commands.
type Recorder interface {
	Record(ctx context.Context, source string, cmd Command) error
}

// Receiver decodes inbound messages from any transport and applies them.
type Receiver struct {
	lifecycle Lifecycle
	recorder  Recorder
}

// NewReceiver creates a receiver. recorder may be nil.
func NewReceiver(lifecycle Lifecycle, recorder Recorder) *Receiver {
	return &Receiver{
		lifecycle: lifecycle,
		recorder:  recorder,
	}
}

// Receive decodes msg and applies it. It reports whether a command ran.
func (r *Receiver) Receive(ctx context.Context, source string, msg map[string]any) bool {
	cmd, ok := Decode(msg)
	if !ok {
		log.Debug().
			Str("source", source).
			Interface("message", msg).
			Msg("ignoring unrecognised command")
		return false
	}
	r.Apply(ctx, source, cmd)
	return true
}

// ReceiveJSON is Receive for raw JSON payloads.
func (r *Receiver) ReceiveJSON(ctx context.Context, source string, data []byte) bool {
	cmd, ok := DecodeJSON(data)
	if !ok {
		log.Debug().
			Str("source", source).
			Int("bytes", len(data)).
			Msg("ignoring unrecognised command")
		return false
	}
	r.Apply(ctx, source, cmd)
	return true
}

// Apply dispatches an already decoded command.
func (r *Receiver) Apply(ctx context.Context, source string, cmd Command) {
	log.Debug().
		Str("source", source).
		Str("action", string(cmd.Action)).
		Str("buff", cmd.Buff).
		Int("duration", cmd.Duration).
		Msg("applying command")

	switch cmd.Action {
	case ActionAdd:
		r.lifecycle.Add(cmd.Buff, cmd.Duration)
	case ActionExtend:
		r.lifecycle.Extend(cmd.Buff, cmd.Duration)
	case ActionRemove:
		r.lifecycle.Remove(cmd.Buff)
	default:
		return
	}

	if r.recorder == nil {
		return
	}
	if err := r.recorder.Record(ctx, source, cmd); err != nil {
		log.Error().
			Err(err).
			Str("source", source).
			Str("action", string(cmd.Action)).
			Str("buff", cmd.Buff).
			Msg("failed to journal command")
	}
}
