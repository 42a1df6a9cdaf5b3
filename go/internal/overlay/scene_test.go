package overlay

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/buffring/go/internal/buff"
)

func newScene(t *testing.T) (*buff.Controller, *Scene, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	scene := NewScene(clock, DefaultTiming())
	c := buff.NewController(buff.DefaultConfig(), buff.WithClock(clock), buff.WithSinks(scene))
	return c, scene, clock
}

func TestSceneCreatesElementAtFullRing(t *testing.T) {
	c, scene, _ := newScene(t)
	c.Add("speed", 10)

	el, ok := scene.Active("speed")
	if !ok {
		t.Fatal("no element for speed")
	}
	if el.ID != "buff-speed" || el.Offset != 0 || el.Scale != 1 || el.State != ElementActive {
		t.Errorf("element = %+v", el)
	}
}

func TestSceneTracksProgress(t *testing.T) {
	c, scene, clock := newScene(t)
	c.Add("focus", 4)

	clock.Advance(time.Second)
	c.Advance(clock.Now())

	el, _ := scene.Active("focus")
	if el.TimeLeft != 3 {
		t.Errorf("time_left = %d, want 3", el.TimeLeft)
	}
	if want := 0.25 * el.Perimeter; el.Offset != want {
		t.Errorf("offset = %v, want %v", el.Offset, want)
	}
}

func TestScenePulseOnExtend(t *testing.T) {
	c, scene, clock := newScene(t)
	c.Add("speed", 10)
	c.Add("speed", 5)

	el, _ := scene.Active("speed")
	if el.Scale != 1.15 {
		t.Fatalf("scale = %v, want 1.15", el.Scale)
	}
	if el.Duration != 15 || el.TimeLeft != 15 {
		t.Errorf("element timing = %d/%d, want 15/15", el.TimeLeft, el.Duration)
	}

	clock.Advance(200 * time.Millisecond)
	scene.Sweep(clock.Now())
	el, _ = scene.Active("speed")
	if el.Scale != 1 {
		t.Errorf("scale after pulse = %v, want 1", el.Scale)
	}
	if c.Len() != 1 {
		t.Error("pulse changed registry")
	}
}

func TestSceneFadesBeforeDetach(t *testing.T) {
	c, scene, clock := newScene(t)
	c.Add("strength", 10)

	c.Remove("strength")

	if c.Len() != 0 {
		t.Fatal("registry entry survived remove")
	}
	els := scene.Elements()
	if len(els) != 1 || els[0].State != ElementRemoving {
		t.Fatalf("elements = %+v, want one fading element", els)
	}
	if _, ok := scene.Active("strength"); ok {
		t.Error("fading element still reported as active")
	}

	clock.Advance(299 * time.Millisecond)
	scene.Sweep(clock.Now())
	if scene.Len() != 1 {
		t.Fatal("element detached before fade finished")
	}

	clock.Advance(time.Millisecond)
	scene.Sweep(clock.Now())
	if scene.Len() != 0 {
		t.Errorf("element still attached after fade: %+v", scene.Elements())
	}
}

func TestSceneExpiryFadesOut(t *testing.T) {
	c, scene, clock := newScene(t)
	c.Add("stamina", 2)

	clock.Advance(2 * time.Second)
	c.Advance(clock.Now())

	els := scene.Elements()
	if len(els) != 1 || els[0].State != ElementRemoving || els[0].Offset != els[0].Perimeter {
		t.Fatalf("elements = %+v, want one empty fading ring", els)
	}
}

func TestSceneReAddDuringFade(t *testing.T) {
	c, scene, _ := newScene(t)
	c.Add("speed", 10)
	c.Remove("speed")
	c.Add("speed", 4)

	els := scene.Elements()
	if len(els) != 2 {
		t.Fatalf("elements = %d, want fading + new", len(els))
	}
	if els[0].State != ElementRemoving || els[1].State != ElementActive {
		t.Errorf("states = %s, %s", els[0].State, els[1].State)
	}
	el, ok := scene.Active("speed")
	if !ok || el.Duration != 4 {
		t.Errorf("active element = %+v", el)
	}
}
