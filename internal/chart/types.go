package chart

import (
	"golang.org/x/exp/slices"
)

// Tick is an integer offset from the start of the song, interpreted
// through the song resolution.
type Tick uint32

type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
	Expert
)

type TrackType int

const (
	FiveFret TrackType = iota
	SixFret
	Drums
)

// Lanes for five fret tracks.
const (
	LaneGreen uint8 = iota
	LaneRed
	LaneYellow
	LaneBlue
	LaneOrange
	LaneOpen
)

// Lanes for six fret (GHL) tracks.
const (
	LaneWhiteLow uint8 = iota
	LaneWhiteMid
	LaneWhiteHigh
	LaneBlackLow
	LaneBlackMid
	LaneBlackHigh
	LaneGhlOpen
)

// Lanes for drum tracks.
const (
	LaneDrumRed uint8 = iota
	LaneDrumYellow
	LaneDrumBlue
	LaneDrumGreen
	LaneKick
	LaneDoubleKick
)

type NoteFlags uint8

const (
	FlagCymbal NoteFlags = 1 << iota
	FlagAccent
	FlagGhost
)

type Note struct {
	Position Tick
	Length   Tick
	Lane     uint8
	Flags    NoteFlags
}

func (n Note) IsKick() bool {
	return n.Lane == LaneKick || n.Lane == LaneDoubleKick
}

func (n Note) IsCymbal() bool {
	return n.Flags&FlagCymbal != 0
}

func (n Note) HasDynamics() bool {
	return n.Flags&(FlagAccent|FlagGhost) != 0
}

type TimeSignature struct {
	Position    Tick
	Numerator   uint32
	Denominator uint32
}

type Bpm struct {
	Position Tick
	// Micro-bpm, so 120 BPM is 120000000.
	Bpm uint32
}

type StarPower struct {
	Position Tick
	Length   Tick
}

func (p StarPower) Contains(position Tick) bool {
	return position >= p.Position && position < p.Position+p.Length
}

type Solo struct {
	Start Tick
	End   Tick
	Value int
}

type DrumFill struct {
	Position Tick
	Length   Tick
}

type BigRockEnding struct {
	Start Tick
	End   Tick
}

// NoteTrack is a single instrument/difficulty's notes plus its phrase
// data. Notes are sorted by position; phrases are sorted, non-overlapping
// and each contains at least one note.
type NoteTrack struct {
	Type       TrackType
	Resolution int
	Notes      []Note
	SpPhrases  []StarPower
	Solos      []Solo
	DrumFills  []DrumFill
	Bre        *BigRockEnding
}

// NewNoteTrack normalises the raw track data so the invariants above
// hold.
func NewNoteTrack(trackType TrackType, resolution int, notes []Note,
	phrases []StarPower, solos []Solo, fills []DrumFill,
	bre *BigRockEnding) NoteTrack {
	slices.SortStableFunc(notes, func(p, q Note) bool {
		if p.Position != q.Position {
			return p.Position < q.Position
		}
		return p.Lane < q.Lane
	})
	slices.SortStableFunc(phrases, func(p, q StarPower) bool {
		return p.Position < q.Position
	})

	// Clip overlapping phrases and drop the ones with no note inside.
	trimmed := make([]StarPower, 0, len(phrases))
	for i, phrase := range phrases {
		if i+1 < len(phrases) {
			next := phrases[i+1].Position
			if phrase.Position+phrase.Length > next {
				phrase.Length = next - phrase.Position
			}
		}
		hasNote := false
		for _, note := range notes {
			if phrase.Contains(note.Position) {
				hasNote = true
				break
			}
			if note.Position >= phrase.Position+phrase.Length {
				break
			}
		}
		if hasNote {
			trimmed = append(trimmed, phrase)
		}
	}

	slices.SortStableFunc(solos, func(p, q Solo) bool {
		return p.Start < q.Start
	})
	slices.SortStableFunc(fills, func(p, q DrumFill) bool {
		return p.Position < q.Position
	})

	return NoteTrack{
		Type:       trackType,
		Resolution: resolution,
		Notes:      notes,
		SpPhrases:  trimmed,
		Solos:      solos,
		DrumFills:  fills,
		Bre:        bre,
	}
}

// SyncTrack is the tempo information for a song.
type SyncTrack struct {
	TimeSigs []TimeSignature
	Bpms     []Bpm
}

type Instrument int

const (
	Guitar Instrument = iota
	GuitarCoop
	Bass
	Rhythm
	Keys
	GhlGuitar
	GhlBass
	DrumKit
)

type TrackKey struct {
	Instrument Instrument
	Difficulty Difficulty
}

// Song is the normalised parser output the optimiser pipeline consumes.
type Song struct {
	Name       string
	Artist     string
	Charter    string
	Resolution int
	Sync       SyncTrack
	OdBeats    []Tick
	Tracks     map[TrackKey]NoteTrack
}

// UnisonPhrasePositions returns the positions of SP phrases that appear
// in more than one instrument's chart at the same tick.
func (s *Song) UnisonPhrasePositions() []Tick {
	counts := map[Tick]map[Instrument]bool{}
	for key, track := range s.Tracks {
		for _, phrase := range track.SpPhrases {
			if counts[phrase.Position] == nil {
				counts[phrase.Position] = map[Instrument]bool{}
			}
			counts[phrase.Position][key.Instrument] = true
		}
	}
	unisons := []Tick{}
	for position, instruments := range counts {
		if len(instruments) > 1 {
			unisons = append(unisons, position)
		}
	}
	slices.Sort(unisons)
	return unisons
}
