package buff

import "math"

// RingGeometry describes the rounded square the progress ring is drawn on.
type RingGeometry struct {
	Size   float64 `yaml:"size" json:"size"`
	Radius float64 `yaml:"radius" json:"radius"`
}

// DefaultGeometry is the 50px square with 10px corners used by the overlay.
func DefaultGeometry() RingGeometry {
	return RingGeometry{Size: 50, Radius: 10}
}

// Perimeter returns the stroke length of the ring outline.
//
// The straight segments are counted as if the corners were square and the
// full corner circle is added on top. The overlay CSS animates against this
// number, so it must not be replaced by the exact rounded-rectangle length.
func (g RingGeometry) Perimeter() float64 {
	straight := 2 * (g.Size - 2*g.Radius) * 2
	curved := 2 * math.Pi * g.Radius
	return straight + curved
}

// Ratio is the fraction of life remaining.
func Ratio(timeLeft, duration int) float64 {
	if duration <= 0 {
		return 0
	}
	return float64(timeLeft) / float64(duration)
}

// Offset converts the remaining-time ratio into a stroke-dashoffset: 0 for a
// full ring, perimeter for an empty one.
func Offset(timeLeft, duration int, perimeter float64) float64 {
	return (1 - Ratio(timeLeft, duration)) * perimeter
}
