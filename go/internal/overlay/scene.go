// Package overlay is the rendering layer of the buff tray. It observes
// controller events and owns element lifetime and animation state.
package overlay

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/buffring/go/internal/buff"
	"github.com/rs/zerolog/log"
)

// ElementState is the visual state of a buff element.
type ElementState string

const (
	ElementActive   ElementState = "active"
	ElementRemoving ElementState = "removing"
)

// Timing holds the animation constants of the overlay.
type Timing struct {
	Fade       time.Duration `yaml:"fade"`
	Pulse      time.Duration `yaml:"pulse"`
	PulseScale float64       `yaml:"pulse_scale"`
}

// DefaultTiming matches the overlay stylesheet: 0.3s fade, 0.2s pulse at 1.15.
func DefaultTiming() Timing {
	return Timing{
		Fade:       300 * time.Millisecond,
		Pulse:      200 * time.Millisecond,
		PulseScale: 1.15,
	}
}

// Element is one rendered buff: background ring, foreground ring and icon.
type Element struct {
	ID        string       `json:"id"`
	Buff      string       `json:"buff"`
	Icon      string       `json:"icon"`
	Perimeter float64      `json:"perimeter"`
	Offset    float64      `json:"offset"`
	Duration  int          `json:"duration"`
	TimeLeft  int          `json:"time_left"`
	Scale     float64      `json:"scale"`
	State     ElementState `json:"state"`

	pulseUntil time.Time
	detachAt   time.Time
}

// ElementID is the DOM id of a buff element.
func ElementID(name string) string {
	return "buff-" + name
}

// Scene is the display list. An element removed from the registry stays in
// the scene, fading, until its detach time passes.
type Scene struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	timing   Timing
	elements []*Element
	active   map[string]*Element
}

// NewScene creates an empty scene.
func NewScene(clock clockwork.Clock, timing Timing) *Scene {
	return &Scene{
		clock:  clock,
		timing: timing,
		active: make(map[string]*Element),
	}
}

// Apply implements buff.Sink.
func (s *Scene) Apply(ev buff.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case buff.EventTypeCreated:
		el := &Element{
			ID:        ElementID(ev.Buff),
			Buff:      ev.Buff,
			Icon:      ev.Icon,
			Perimeter: ev.Perimeter,
			Scale:     1,
			State:     ElementActive,
		}
		el.update(ev)
		s.elements = append(s.elements, el)
		s.active[ev.Buff] = el

	case buff.EventTypeProgress:
		if el, ok := s.active[ev.Buff]; ok {
			el.update(ev)
		}

	case buff.EventTypeExtended:
		el, ok := s.active[ev.Buff]
		if !ok {
			return
		}
		el.update(ev)
		el.Scale = s.timing.PulseScale
		el.pulseUntil = ev.At.Add(s.timing.Pulse)
		s.scheduleSweep(s.timing.Pulse)

	case buff.EventTypeRemoving:
		el, ok := s.active[ev.Buff]
		if !ok {
			return
		}
		delete(s.active, ev.Buff)
		el.update(ev)
		el.State = ElementRemoving
		el.detachAt = ev.At.Add(s.timing.Fade)
		s.scheduleSweep(s.timing.Fade)

	default:
		log.Warn().Str("event_type", string(ev.Type)).Msg("unknown render event - ignoring")
	}
}

func (el *Element) update(ev buff.Event) {
	el.Offset = ev.Offset
	el.Duration = ev.Duration
	el.TimeLeft = ev.TimeLeft
}

// Sweep ends pulses and detaches faded elements whose time has come. It
// returns the number of elements detached.
func (s *Scene) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.elements[:0]
	detached := 0
	for _, el := range s.elements {
		if el.Scale != 1 && !now.Before(el.pulseUntil) {
			el.Scale = 1
		}
		if el.State == ElementRemoving && !now.Before(el.detachAt) {
			detached++
			log.Debug().Str("buff", el.Buff).Msg("detached faded element")
			continue
		}
		kept = append(kept, el)
	}
	for i := len(kept); i < len(s.elements); i++ {
		s.elements[i] = nil
	}
	s.elements = kept
	return detached
}

func (s *Scene) scheduleSweep(after time.Duration) {
	s.clock.AfterFunc(after, func() {
		s.Sweep(s.clock.Now())
	})
}

// Elements returns copies of the displayed elements in display order.
func (s *Scene) Elements() []Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Element, len(s.elements))
	for i, el := range s.elements {
		out[i] = *el
	}
	return out
}

// Active returns the live element for a buff name.
func (s *Scene) Active(name string) (Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.active[name]
	if !ok {
		return Element{}, false
	}
	return *el, true
}

// Len returns the number of displayed elements, fading ones included.
func (s *Scene) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.elements)
}
