package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/buffring/go/internal/buff"
)

// OverlayFrame is the envelope pushed to overlay clients
//
// Seq orders frames against the tray state. A Sync frame carries the Seq of
// the last event its snapshot already includes, and a client drops any later
// frame whose Seq is not above it. Event frames queued before the snapshot
// was taken reach a new client after the Sync frame
type OverlayFrame struct {
	ID        string          `json:"id"`        // Frame UUID
	Seq       uint64          `json:"seq"`       // Controller event sequence
	Type      FrameType       `json:"type"`      // Frame type
	Timestamp time.Time       `json:"timestamp"` // Frame creation time
	Data      json.RawMessage `json:"data"`      // Frame-specific payload
}

// FrameType represents the type of overlay frame
type FrameType string

const (
	FrameTypeCreated  FrameType = "BuffCreated"
	FrameTypeProgress FrameType = "BuffProgress"
	FrameTypeExtended FrameType = "BuffExtended"
	FrameTypeRemoving FrameType = "BuffRemoving"
	FrameTypeSync     FrameType = "Sync"
)

// SyncPayload carries the full tray state for a (re)connecting client
type SyncPayload struct {
	Buffs []buff.View `json:"buffs"`
}

func frameTypeFor(t buff.EventType) (FrameType, error) {
	switch t {
	case buff.EventTypeCreated:
		return FrameTypeCreated, nil
	case buff.EventTypeProgress:
		return FrameTypeProgress, nil
	case buff.EventTypeExtended:
		return FrameTypeExtended, nil
	case buff.EventTypeRemoving:
		return FrameTypeRemoving, nil
	default:
		return "", fmt.Errorf("unknown event type: %s", t)
	}
}

// NewEventFrame wraps a controller event for the wire
func NewEventFrame(ev buff.Event) (*OverlayFrame, error) {
	frameType, err := frameTypeFor(ev.Type)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	return &OverlayFrame{
		ID:        uuid.New().String(),
		Seq:       ev.Seq,
		Type:      frameType,
		Timestamp: ev.At,
		Data:      data,
	}, nil
}

// NewSyncFrame wraps a registry snapshot taken at event sequence seq
func NewSyncFrame(views []buff.View, seq uint64, at time.Time) (*OverlayFrame, error) {
	if views == nil {
		views = []buff.View{}
	}
	data, err := json.Marshal(SyncPayload{Buffs: views})
	if err != nil {
		return nil, fmt.Errorf("marshal sync payload: %w", err)
	}
	return &OverlayFrame{
		ID:        uuid.New().String(),
		Seq:       seq,
		Type:      FrameTypeSync,
		Timestamp: at,
		Data:      data,
	}, nil
}
