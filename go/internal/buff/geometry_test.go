package buff

import (
	"math"
	"testing"
)

func TestPerimeter(t *testing.T) {
	tests := []struct {
		name string
		geom RingGeometry
		want float64
	}{
		{"default overlay ring", RingGeometry{Size: 50, Radius: 10}, 120 + 20*math.Pi},
		{"square corners", RingGeometry{Size: 40, Radius: 0}, 160},
		{"larger ring", RingGeometry{Size: 64, Radius: 12}, 2*(64-24)*2 + 24*math.Pi},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.geom.Perimeter(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Perimeter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultPerimeterValue(t *testing.T) {
	got := DefaultGeometry().Perimeter()
	if math.Abs(got-182.83185307) > 1e-6 {
		t.Errorf("default perimeter = %v, want ~182.83", got)
	}
}

func TestOffset(t *testing.T) {
	const perimeter = 100.0
	tests := []struct {
		name     string
		timeLeft int
		duration int
		want     float64
	}{
		{"full ring", 10, 10, 0},
		{"half", 5, 10, 50},
		{"one second left", 1, 10, 90},
		{"expired", 0, 10, perimeter},
		{"zero duration renders empty", 0, 0, perimeter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Offset(tt.timeLeft, tt.duration, perimeter); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Offset(%d, %d) = %v, want %v", tt.timeLeft, tt.duration, got, tt.want)
			}
		})
	}
}

func TestIconLookup(t *testing.T) {
	icons := DefaultIcons()

	if got := icons.Lookup("speed"); got != `<i class="fa-solid fa-bolt"></i>` {
		t.Errorf("speed icon = %q", got)
	}
	if got := icons.Lookup("invisibility"); got != FallbackGlyph {
		t.Errorf("unmapped icon = %q, want fallback", got)
	}

	empty := IconTable{}
	if got := empty.Lookup("speed"); got != FallbackGlyph {
		t.Errorf("empty table icon = %q, want fallback", got)
	}
}
