package engine

import (
	"fmt"
	"math"
	"strings"
)

type Kind int

const (
	ChGuitar Kind = iota
	Gh1Guitar
	RbGuitar
	ChDrums
	Ghl
)

type SustainRounding int

const (
	RoundUp SustainRounding = iota
	RoundToNearest
)

type windowStyle int

const (
	constantWindow windowStyle = iota
	halfGapWindow
)

// Engine describes the scoring and Star Power rules of one game. The
// behavioural differences between games live here as data so the rest
// of the pipeline stays engine-agnostic.
type Engine struct {
	Kind Kind

	BaseNoteValue           int
	BaseCymbalValue         int
	MaxMultiplier           int
	ComboPerMultiplierLevel int

	SustPointsPerBeat      int
	RoundTickGap           bool
	ChordsMultiplySustains bool
	SustainRounding        SustainRounding
	// Sustains shorter than BurstSize beats score as a single hit.
	BurstSize float64

	windowStyle windowStyle
	windowSize  float64 // seconds

	SpGainRate        float64 // bars per beat of whammy
	SpDrainRate       float64 // bars per measure during an activation
	SpPhraseAmount    float64 // bars granted by a completed phrase
	HasUnisonBonuses  bool
	HasBres           bool
	MergeUnevenSustains     bool
	DelayedMultiplier       bool
	Overlaps                bool
	IgnoreAverageMultiplier bool
}

func (e *Engine) IsDrums() bool { return e.Kind == ChDrums }

// EarlyTimingWindow is the early half-width of a note's hit window in
// seconds, given the second gaps to the neighbouring notes.
func (e *Engine) EarlyTimingWindow(earlyGap, lateGap float64) float64 {
	if e.windowStyle == halfGapWindow {
		return math.Min(e.windowSize, earlyGap/2)
	}
	return e.windowSize
}

func (e *Engine) LateTimingWindow(earlyGap, lateGap float64) float64 {
	if e.windowStyle == halfGapWindow {
		return math.Min(e.windowSize, lateGap/2)
	}
	return e.windowSize
}

func ChGuitarEngine() *Engine {
	return &Engine{
		Kind:                    ChGuitar,
		BaseNoteValue:           50,
		MaxMultiplier:           4,
		ComboPerMultiplierLevel: 10,
		SustPointsPerBeat:       25,
		SustainRounding:         RoundToNearest,
		windowStyle:             constantWindow,
		windowSize:              0.07,
		SpGainRate:              1.0 / 30,
		SpDrainRate:             1.0 / 8,
		SpPhraseAmount:          0.25,
		Overlaps:                true,
	}
}

func Gh1GuitarEngine() *Engine {
	return &Engine{
		Kind:                    Gh1Guitar,
		BaseNoteValue:           50,
		MaxMultiplier:           4,
		ComboPerMultiplierLevel: 10,
		SustPointsPerBeat:       25,
		RoundTickGap:            true,
		ChordsMultiplySustains:  true,
		SustainRounding:         RoundUp,
		windowStyle:             halfGapWindow,
		windowSize:              0.1,
		SpGainRate:              1.0 / 30,
		SpDrainRate:             1.0 / 8,
		SpPhraseAmount:          0.5,
		MergeUnevenSustains:     true,
		DelayedMultiplier:       true,
	}
}

func RbGuitarEngine() *Engine {
	return &Engine{
		Kind:                    RbGuitar,
		BaseNoteValue:           25,
		MaxMultiplier:           4,
		ComboPerMultiplierLevel: 10,
		SustPointsPerBeat:       12,
		SustainRounding:         RoundUp,
		BurstSize:               0.25,
		windowStyle:             constantWindow,
		windowSize:              0.1,
		SpGainRate:              1.0 / 30,
		SpDrainRate:             1.0 / 8,
		SpPhraseAmount:          0.25,
		HasUnisonBonuses:        true,
		HasBres:                 true,
		MergeUnevenSustains:     true,
		IgnoreAverageMultiplier: true,
	}
}

func ChDrumsEngine() *Engine {
	return &Engine{
		Kind:                    ChDrums,
		BaseNoteValue:           50,
		BaseCymbalValue:         65,
		MaxMultiplier:           4,
		ComboPerMultiplierLevel: 10,
		windowStyle:             constantWindow,
		windowSize:              0.07,
		SpGainRate:              1.0 / 30,
		SpDrainRate:             1.0 / 8,
		SpPhraseAmount:          0.25,
		Overlaps:                true,
	}
}

func GhlEngine() *Engine {
	return &Engine{
		Kind:                    Ghl,
		BaseNoteValue:           50,
		MaxMultiplier:           4,
		ComboPerMultiplierLevel: 10,
		SustPointsPerBeat:       25,
		SustainRounding:         RoundToNearest,
		windowStyle:             constantWindow,
		windowSize:              0.07,
		SpGainRate:              1.0 / 30,
		SpDrainRate:             1.0 / 8,
		SpPhraseAmount:          0.25,
		Overlaps:                true,
	}
}

// ParseKind maps the --engine flag value to an engine preset.
func ParseKind(name string) (*Engine, error) {
	switch strings.ToLower(name) {
	case "ch", "chguitar", "clonehero":
		return ChGuitarEngine(), nil
	case "gh1", "gh2", "classic":
		return Gh1GuitarEngine(), nil
	case "rb", "rockband":
		return RbGuitarEngine(), nil
	case "drums", "chdrums":
		return ChDrumsEngine(), nil
	case "ghl":
		return GhlEngine(), nil
	}
	return nil, fmt.Errorf("unknown engine %q", name)
}

// SqueezeSettings are the player timing assumptions, all normalised:
// squeeze and early whammy are fractions in [0, 1], the rest seconds.
type SqueezeSettings struct {
	Squeeze     float64
	EarlyWhammy float64
	LazyWhammy  float64
	WhammyDelay float64
	VideoLag    float64
}

func DefaultSqueezeSettings() SqueezeSettings {
	return SqueezeSettings{Squeeze: 1.0, EarlyWhammy: 1.0}
}

type DrumSettings struct {
	EnableDoubleKick bool
	DisableKick      bool
	ProDrums         bool
	EnableDynamics   bool
}

func DefaultDrumSettings() DrumSettings {
	return DrumSettings{EnableDoubleKick: true, ProDrums: true}
}
