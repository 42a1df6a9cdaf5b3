package buff

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

const idlePollDuration = 5 * time.Second

// Config holds the static inputs of the controller.
type Config struct {
	Geometry     RingGeometry
	Icons        IconTable
	TickInterval time.Duration
}

// DefaultConfig returns the geometry, icons and 1s tick of the overlay.
func DefaultConfig() Config {
	return Config{
		Geometry:     DefaultGeometry(),
		Icons:        DefaultIcons(),
		TickInterval: time.Second,
	}
}

// Stats counts controller activity since start.
type Stats struct {
	Active   int    `json:"active"`
	Timers   int    `json:"timers"`
	Added    uint64 `json:"added"`
	Extended uint64 `json:"extended"`
	Removed  uint64 `json:"removed"`
	Expired  uint64 `json:"expired"`
	Ticks    uint64 `json:"ticks"`
}

// Controller owns the buff registry and every buff timer. All entry points
// (commands, ticks, snapshots) take the same lock and run to completion.
type Controller struct {
	mu       sync.Mutex
	registry *Registry
	schedule *schedule
	geometry RingGeometry
	icons    IconTable
	clock    Clock
	sinks    Sinks
	stats    Stats
	seq      uint64

	wakeCh     chan struct{}
	instanceID string
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the real clock.
func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithSinks registers render sinks at construction.
func WithSinks(sinks ...Sink) Option {
	return func(c *Controller) { c.sinks = append(c.sinks, sinks...) }
}

// NewController creates a controller with an empty registry.
func NewController(cfg Config, opts ...Option) *Controller {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	c := &Controller{
		registry:   NewRegistry(),
		schedule:   newSchedule(cfg.TickInterval),
		geometry:   cfg.Geometry,
		icons:      cfg.Icons,
		clock:      clockwork.NewRealClock(),
		wakeCh:     make(chan struct{}, 1),
		instanceID: uuid.New().String()[:8],
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddSink registers another render sink.
func (c *Controller) AddSink(s Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinks = append(c.sinks, s)
}

// Add activates name for duration seconds. A second add for an active name is
// merged into it as an extend.
func (c *Controller) Add(name string, duration int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add(name, duration)
}

// Extend adds extra seconds to an active buff, or creates it when absent.
func (c *Controller) Extend(name string, extra int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.extend(name, extra)
}

// Remove cancels the buff's timer and drops it from the registry. The fade is
// left to the rendering layer. Removing an unknown name is a no-op.
func (c *Controller) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(name, ReasonRemoved)
}

func (c *Controller) add(name string, duration int) {
	if _, ok := c.registry.Get(name); ok {
		c.extend(name, duration)
		return
	}
	if duration <= 0 {
		log.Debug().Str("buff", name).Int("duration", duration).Msg("ignoring add with non-positive duration")
		return
	}

	now := c.clock.Now()
	b := &Buff{
		ID:        uuid.New(),
		Name:      name,
		Icon:      c.icons.Lookup(name),
		Duration:  duration,
		TimeLeft:  duration,
		Perimeter: c.geometry.Perimeter(),
		AddedAt:   now,
	}
	b.ticker = c.schedule.start(name, now)
	c.registry.Put(b)
	c.stats.Added++

	// Initial render: full ring, offset 0.
	c.emit(EventTypeCreated, b, "")
	c.wake()

	log.Info().
		Str("buff", name).
		Str("buff_id", b.ID.String()).
		Int("duration", duration).
		Float64("perimeter", b.Perimeter).
		Msg("added buff")
}

func (c *Controller) extend(name string, extra int) {
	b, ok := c.registry.Get(name)
	if !ok {
		c.add(name, extra)
		return
	}
	if extra <= 0 {
		log.Debug().Str("buff", name).Int("duration", extra).Msg("ignoring extend with non-positive duration")
		return
	}

	b.TimeLeft += extra
	b.Duration += extra
	c.stats.Extended++
	c.emit(EventTypeExtended, b, "")

	log.Info().
		Str("buff", name).
		Int("extra", extra).
		Int("time_left", b.TimeLeft).
		Int("duration", b.Duration).
		Msg("extended buff")
}

func (c *Controller) remove(name string, reason RemovalReason) bool {
	b, ok := c.registry.Get(name)
	if !ok {
		log.Debug().Str("buff", name).Msg("remove for inactive buff - ignoring")
		return false
	}

	c.schedule.cancel(b.ticker)
	c.registry.Delete(name)
	switch reason {
	case ReasonExpired:
		c.stats.Expired++
	default:
		c.stats.Removed++
	}
	c.emit(EventTypeRemoving, b, reason)

	log.Info().
		Str("buff", name).
		Str("reason", string(reason)).
		Int("time_left", b.TimeLeft).
		Msg("removed buff")
	return true
}

// tick runs one update step for the buff owning h.
func (c *Controller) tick(h *tickHandle) {
	b, ok := c.registry.Get(h.name)
	if !ok || b.ticker != h {
		return
	}
	c.stats.Ticks++

	b.TimeLeft--
	if b.TimeLeft <= 0 {
		c.remove(b.Name, ReasonExpired)
		return
	}

	c.schedule.requeue(h)
	c.emit(EventTypeProgress, b, "")

	log.Debug().
		Str("buff", b.Name).
		Int("time_left", b.TimeLeft).
		Float64("offset", b.Offset()).
		Msg("buff tick")
}

// Advance fires every tick due at or before now, in fire-time order, and
// returns how many ran. A buff that is several intervals behind ticks once
// per missed interval.
func (c *Controller) Advance(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	fired := 0
	for {
		h, ok := c.schedule.popDue(now)
		if !ok {
			return fired
		}
		c.tick(h)
		fired++
	}
}

// NextDeadline returns when the next tick is due.
func (c *Controller) NextDeadline() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schedule.nextDeadline()
}

// Get returns a snapshot of the named buff.
func (c *Controller) Get(name string) (View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.registry.Get(name)
	if !ok {
		return View{}, false
	}
	return b.view(), true
}

// Snapshot returns every active buff, oldest first.
func (c *Controller) Snapshot() []View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Views()
}

// SnapshotSeq is Snapshot plus the Seq of the last event already reflected
// in it. Events with a Seq at or below it carry nothing new.
func (c *Controller) SnapshotSeq() ([]View, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Views(), c.seq
}

// Len returns the number of active buffs.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Len()
}

// Stats returns activity counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Active = c.registry.Len()
	s.Timers = c.schedule.pending()
	return s
}

// Close removes every active buff and cancels its timer.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range c.registry.Names() {
		c.remove(name, ReasonShutdown)
	}
}

// Run sleeps until the earliest tick is due and fires it, until ctx is done.
// Schedule changes wake it early.
func (c *Controller) Run(ctx context.Context) error {
	log.Info().
		Str("instance", c.instanceID).
		Msg("buff scheduler started")

	timer := c.clock.NewTimer(idlePollDuration)
	defer timer.Stop()

	for {
		wait := idlePollDuration
		if next, ok := c.NextDeadline(); ok {
			wait = next.Sub(c.clock.Now())
			if wait < 0 {
				wait = 0
			}
		}
		stopAndDrainTimer(timer)
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			log.Info().Str("instance", c.instanceID).Msg("buff scheduler shutting down")
			c.Close()
			return nil
		case <-c.wakeCh:
			log.Debug().Str("instance", c.instanceID).Msg("woken up early - schedule changed")
			continue
		case <-timer.Chan():
			if n := c.Advance(c.clock.Now()); n > 0 {
				log.Debug().Str("instance", c.instanceID).Int("ticks", n).Msg("fired due ticks")
			}
		}
	}
}

func (c *Controller) wake() {
	select {
	case c.wakeCh <- struct{}{}:
	default:
	}
}

func (c *Controller) emit(t EventType, b *Buff, reason RemovalReason) {
	c.seq++
	if len(c.sinks) == 0 {
		return
	}
	c.sinks.Apply(Event{
		Seq:       c.seq,
		Type:      t,
		Buff:      b.Name,
		Icon:      b.Icon,
		Duration:  b.Duration,
		TimeLeft:  b.TimeLeft,
		Perimeter: b.Perimeter,
		Offset:    b.Offset(),
		Reason:    reason,
		At:        c.clock.Now(),
	})
}

// stopAndDrainTimer stops a timer and drains its channel so a stale fire is
// not observed after Reset.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
