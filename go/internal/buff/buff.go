package buff

import (
	"time"

	"github.com/google/uuid"
)

// Buff is the live state of one active status effect.
type Buff struct {
	ID        uuid.UUID
	Name      string
	Icon      string
	Duration  int // seconds, grows on extend
	TimeLeft  int // seconds
	Perimeter float64
	AddedAt   time.Time

	// ticker is the buff's entry in the controller schedule. It is cancelled
	// exactly once, when the buff leaves the registry.
	ticker *tickHandle
}

// Ratio is the fraction of life remaining.
func (b *Buff) Ratio() float64 {
	return Ratio(b.TimeLeft, b.Duration)
}

// Offset is the current stroke-dashoffset of the foreground ring.
func (b *Buff) Offset() float64 {
	return Offset(b.TimeLeft, b.Duration, b.Perimeter)
}

// View is a read-only copy of a Buff for snapshots and transports.
type View struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon"`
	Duration  int       `json:"duration"`
	TimeLeft  int       `json:"time_left"`
	Perimeter float64   `json:"perimeter"`
	Offset    float64   `json:"offset"`
	Ratio     float64   `json:"ratio"`
	AddedAt   time.Time `json:"added_at"`
}

func (b *Buff) view() View {
	return View{
		ID:        b.ID.String(),
		Name:      b.Name,
		Icon:      b.Icon,
		Duration:  b.Duration,
		TimeLeft:  b.TimeLeft,
		Perimeter: b.Perimeter,
		Offset:    b.Offset(),
		Ratio:     b.Ratio(),
		AddedAt:   b.AddedAt,
	}
}
