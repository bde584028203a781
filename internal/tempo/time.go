package tempo

// Beat is a quarter note count from the start of the song.
type Beat float64

// Measure is a measure count from the start of the song, governed by the
// time signatures in the sync track.
type Measure float64

// Second is a real time offset from the start of the song.
type Second float64

func (b Beat) Value() float64    { return float64(b) }
func (m Measure) Value() float64 { return float64(m) }
func (s Second) Value() float64  { return float64(s) }

// Position is a point in the song on both the beat and measure axes. The
// two components must agree under the tempo map that produced them.
type Position struct {
	Beat    Beat
	Measure Measure
}
