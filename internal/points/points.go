package points

import (
	"math"

	"golang.org/x/exp/slices"

	"git.lost.host/meutraa/spot/internal/chart"
	"git.lost.host/meutraa/spot/internal/engine"
	"git.lost.host/meutraa/spot/internal/tempo"
)

// Point is a single scoring event: a note head or one tick of a held
// sustain. Hold points step along their parent note's sustain and are
// worth one point each before the multiplier, except a trailing burst
// point, which carries all the sustain ticks left over.
type Point struct {
	Position       tempo.Position
	HitWindowStart tempo.Position
	HitWindowEnd   tempo.Position
	// Set on the drum point an activation fill ends on.
	FillStart *tempo.Second
	Value     int
	BaseValue int

	IsHoldPoint      bool
	IsSpGrantingNote bool
	IsUnisonSpEnder  bool

	// End beat of the SP phrase this point's note sits in, or -Inf.
	phraseEndBeat tempo.Beat
}

// SoloBoost is a solo section's score, credited at its end position
// regardless of activations.
type SoloBoost struct {
	Position tempo.Position
	Value    int
}

// PointSet is the sorted scoring ledger for one track, along with the
// index arrays the optimiser leans on. Immutable after construction.
type PointSet struct {
	points              []Point
	nextNonHoldPoint    []int
	nextSpGrantingNote  []int
	firstAfterCurrentSp []int
	cumulativeScores    []int
	soloBoosts          []SoloBoost
}

func New(track chart.NoteTrack, converter *tempo.TimeConverter,
	unisonPhrases []chart.Tick, squeeze engine.SqueezeSettings,
	drums engine.DrumSettings, eng *engine.Engine) *PointSet {
	set := &PointSet{
		points: pointsFromTrack(track, converter, unisonPhrases, squeeze, drums, eng),
	}

	if eng.IsDrums() {
		addDrumActivationPoints(track, converter, set.points)
	}

	applyMultiplier(set.points, eng)
	shiftPointsByVideoLag(set.points, converter, tempo.Second(squeeze.VideoLag))

	set.nextNonHoldPoint = nextMatchingIndices(set.points, func(p *Point) bool {
		return !p.IsHoldPoint
	})
	set.nextSpGrantingNote = nextMatchingIndices(set.points, func(p *Point) bool {
		return p.IsSpGrantingNote
	})
	set.firstAfterCurrentSp = firstAfterPhraseIndices(set.points)

	set.cumulativeScores = make([]int, len(set.points)+1)
	for i, p := range set.points {
		set.cumulativeScores[i+1] = set.cumulativeScores[i] + p.Value
	}

	set.soloBoosts = soloBoostsFromSolos(track, converter)

	return set
}

func (s *PointSet) Len() int          { return len(s.points) }
func (s *PointSet) At(i int) *Point   { return &s.points[i] }
func (s *PointSet) SoloBoosts() []SoloBoost { return s.soloBoosts }

// NextNonHoldPoint returns the least index j >= i holding a non-hold
// point, or Len() when there is none. Indices up to Len() are valid.
func (s *PointSet) NextNonHoldPoint(i int) int {
	if i >= len(s.points) {
		return len(s.points)
	}
	return s.nextNonHoldPoint[i]
}

func (s *PointSet) NextSpGrantingNote(i int) int {
	if i >= len(s.points) {
		return len(s.points)
	}
	return s.nextSpGrantingNote[i]
}

// FirstAfterCurrentPhrase returns the first index whose beat is past
// the end of the SP phrase containing point i, or i+1 when point i is
// not in a phrase.
func (s *PointSet) FirstAfterCurrentPhrase(i int) int {
	if i >= len(s.points) {
		return len(s.points)
	}
	return s.firstAfterCurrentSp[i]
}

// RangeScore is the sum of values of points [start, end).
func (s *PointSet) RangeScore(start, end int) int {
	return s.cumulativeScores[end] - s.cumulativeScores[start]
}

// BaseScore is the track's score with no Star Power at all.
func (s *PointSet) BaseScore() int {
	return s.cumulativeScores[len(s.points)]
}

func skipKick(note chart.Note, trackType chart.TrackType, drums engine.DrumSettings) bool {
	if trackType != chart.Drums {
		return false
	}
	if note.Lane == chart.LaneKick {
		return drums.DisableKick
	}
	if note.Lane == chart.LaneDoubleKick {
		return !drums.EnableDoubleKick
	}
	return false
}

func pointsFromTrack(track chart.NoteTrack, converter *tempo.TimeConverter,
	unisonPhrases []chart.Tick, squeeze engine.SqueezeSettings,
	drums engine.DrumSettings, eng *engine.Engine) []Point {
	notes := make([]chart.Note, 0, len(track.Notes))
	for _, note := range track.Notes {
		if skipKick(note, track.Type, drums) {
			continue
		}
		notes = append(notes, note)
	}

	points := []Point{}
	currentPhrase := 0
	for p := 0; p < len(notes); {
		if eng.HasBres && track.Bre != nil && notes[p].Position >= track.Bre.Start {
			break
		}
		q := p + 1
		if !eng.IsDrums() {
			// Drum notes score one at a time; everything else scores
			// as chords grouped by tick.
			for q < len(notes) && notes[q].Position == notes[p].Position {
				q++
			}
		}
		isSpEnder := false
		isUnisonEnder := false
		if currentPhrase < len(track.SpPhrases) {
			phrase := track.SpPhrases[currentPhrase]
			if phrase.Contains(notes[p].Position) &&
				(q == len(notes) || !phrase.Contains(notes[q].Position)) {
				isSpEnder = true
				if eng.HasUnisonBonuses && slices.Contains(unisonPhrases, phrase.Position) {
					isUnisonEnder = true
				}
				currentPhrase++
			}
		}
		points = appendNotePoints(points, notes, p, q, track, converter,
			isSpEnder, isUnisonEnder, squeeze.Squeeze, drums, eng)
		p = q
	}

	slices.SortStableFunc(points, func(x, y Point) bool {
		return x.Position.Beat < y.Position.Beat
	})

	return points
}

func appendNotePoints(points []Point, notes []chart.Note, first, last int,
	track chart.NoteTrack, converter *tempo.TimeConverter,
	isSpEnder, isUnisonEnder bool, squeeze float64,
	drums engine.DrumSettings, eng *engine.Engine) []Point {
	resolution := float64(track.Resolution)

	noteValue := eng.BaseNoteValue
	if eng.IsDrums() {
		if notes[first].IsCymbal() && drums.ProDrums {
			noteValue = eng.BaseCymbalValue
		}
		if notes[first].HasDynamics() && drums.EnableDynamics {
			noteValue *= 2
		}
	}
	chordSize := last - first

	position := notes[first].Position
	beat := tempo.Beat(float64(position) / resolution)
	measure := converter.BeatsToMeasures(beat)
	noteSeconds := converter.BeatsToSeconds(beat)

	earlyGap := math.Inf(1)
	if first > 0 {
		prevBeat := tempo.Beat(float64(notes[first-1].Position) / resolution)
		earlyGap = float64(noteSeconds - converter.BeatsToSeconds(prevBeat))
	}
	lateGap := math.Inf(1)
	if last < len(notes) {
		nextBeat := tempo.Beat(float64(notes[last].Position) / resolution)
		lateGap = float64(converter.BeatsToSeconds(nextBeat) - noteSeconds)
	}

	earlyWindow := tempo.Second(eng.EarlyTimingWindow(earlyGap, lateGap) * squeeze)
	lateWindow := tempo.Second(eng.LateTimingWindow(earlyGap, lateGap) * squeeze)
	earlyBeat := converter.SecondsToBeats(noteSeconds - earlyWindow)
	lateBeat := converter.SecondsToBeats(noteSeconds + lateWindow)

	phraseEnd := tempo.Beat(math.Inf(-1))
	for _, phrase := range track.SpPhrases {
		if phrase.Contains(position) {
			phraseEnd = tempo.Beat(float64(phrase.Position+phrase.Length) / resolution)
			break
		}
	}

	points = append(points, Point{
		Position:         tempo.Position{Beat: beat, Measure: measure},
		HitWindowStart:   tempo.Position{Beat: earlyBeat, Measure: converter.BeatsToMeasures(earlyBeat)},
		HitWindowEnd:     tempo.Position{Beat: lateBeat, Measure: converter.BeatsToMeasures(lateBeat)},
		Value:            noteValue * chordSize,
		BaseValue:        noteValue * chordSize,
		IsSpGrantingNote: isSpEnder,
		IsUnisonSpEnder:  isUnisonEnder,
		phraseEndBeat:    phraseEnd,
	})

	if eng.SustPointsPerBeat == 0 {
		return points
	}

	minLength, maxLength := notes[first].Length, notes[first].Length
	for i := first + 1; i < last; i++ {
		if notes[i].Length < minLength {
			minLength = notes[i].Length
		}
		if notes[i].Length > maxLength {
			maxLength = notes[i].Length
		}
	}
	if minLength == maxLength || eng.MergeUnevenSustains {
		points = appendSustainPoints(points, position, minLength, track.Resolution,
			chordSize, converter, phraseEnd, eng)
	} else {
		for i := first; i < last; i++ {
			points = appendSustainPoints(points, position, notes[i].Length,
				track.Resolution, chordSize, converter, phraseEnd, eng)
		}
	}

	return points
}

func songTickGap(resolution int, eng *engine.Engine) float64 {
	quotient := float64(resolution) / float64(eng.SustPointsPerBeat)
	if eng.RoundTickGap {
		quotient = math.Floor(quotient)
	}
	return math.Max(quotient, 1.0)
}

func appendSustainPoints(points []Point, position, length chart.Tick,
	resolution, chordSize int, converter *tempo.TimeConverter,
	phraseEnd tempo.Beat, eng *engine.Engine) []Point {
	const halfResOffset = 0.5

	if length == 0 {
		return points
	}

	floatRes := float64(resolution)
	floatPos := float64(position)
	floatLen := float64(length)
	tickGap := songTickGap(resolution, eng)
	floatSustTicks := floatLen / tickGap
	switch eng.SustainRounding {
	case engine.RoundUp:
		floatSustTicks = math.Ceil(floatSustTicks)
	case engine.RoundToNearest:
		// Half counts round to even, so a 12.5 tick sustain is 12.
		floatSustTicks = math.RoundToEven(floatSustTicks)
	}
	sustTicks := int(floatSustTicks)
	if eng.ChordsMultiplySustains {
		tickGap /= float64(chordSize)
		sustTicks *= chordSize
	}

	holdPoint := func(beat tempo.Beat, value int) Point {
		pos := tempo.Position{Beat: beat, Measure: converter.BeatsToMeasures(beat)}
		return Point{
			Position:       pos,
			HitWindowStart: pos,
			HitWindowEnd:   pos,
			Value:          value,
			BaseValue:      value,
			IsHoldPoint:    true,
			phraseEndBeat:  phraseEnd,
		}
	}

	for floatLen > eng.BurstSize*floatRes && sustTicks > 0 {
		floatPos += tickGap
		floatLen -= tickGap
		sustTicks--
		points = append(points, holdPoint(tempo.Beat((floatPos-halfResOffset)/floatRes), 1))
	}
	if sustTicks > 0 {
		points = append(points, holdPoint(tempo.Beat((floatPos+halfResOffset)/floatRes), sustTicks))
	}

	return points
}

func applyMultiplier(points []Point, eng *engine.Engine) {
	combo := 0
	for i := range points {
		if !points[i].IsHoldPoint {
			combo++
		}
		multiplier := combo/eng.ComboPerMultiplierLevel + 1
		if !points[i].IsHoldPoint && eng.DelayedMultiplier {
			multiplier = (combo-1)/eng.ComboPerMultiplierLevel + 1
		}
		if multiplier > eng.MaxMultiplier {
			multiplier = eng.MaxMultiplier
		}
		points[i].Value *= multiplier
	}
}

func shiftPointsByVideoLag(points []Point, converter *tempo.TimeConverter,
	videoLag tempo.Second) {
	if videoLag == 0 {
		return
	}
	shift := func(position *tempo.Position) {
		seconds := converter.BeatsToSeconds(position.Beat) + videoLag
		position.Beat = converter.SecondsToBeats(seconds)
		position.Measure = converter.BeatsToMeasures(position.Beat)
	}
	for i := range points {
		if points[i].IsHoldPoint {
			continue
		}
		shift(&points[i].Position)
		shift(&points[i].HitWindowStart)
		shift(&points[i].HitWindowEnd)
	}
}

// closestPointTo finds the point a drum fill ending at fillEnd should
// attach to: the nearest by beat, taking the later point when gaps tie.
func closestPointTo(points []Point, fillEnd tempo.Beat) int {
	nearest := 0
	bestGap := math.Abs(float64(points[0].Position.Beat - fillEnd))
	for i := 1; i < len(points); i++ {
		if points[i].Position.Beat <= points[nearest].Position.Beat {
			continue
		}
		gap := math.Abs(float64(points[i].Position.Beat - fillEnd))
		if gap > bestGap {
			break
		}
		nearest = i
		bestGap = gap
	}
	return nearest
}

func addDrumActivationPoints(track chart.NoteTrack, converter *tempo.TimeConverter,
	points []Point) {
	if len(points) == 0 {
		return
	}
	resolution := float64(track.Resolution)
	for _, fill := range track.DrumFills {
		fillStart := tempo.Beat(float64(fill.Position) / resolution)
		fillEnd := tempo.Beat(float64(fill.Position+fill.Length) / resolution)
		best := closestPointTo(points, fillEnd)
		hasNonKick := false
		for _, note := range track.Notes {
			if note.IsKick() {
				continue
			}
			noteBeat := tempo.Beat(float64(note.Position) / resolution)
			if noteBeat < points[best].Position.Beat {
				continue
			}
			if noteBeat > points[best].Position.Beat {
				break
			}
			hasNonKick = true
			break
		}
		if hasNonKick {
			seconds := converter.BeatsToSeconds(fillStart)
			points[best].FillStart = &seconds
		}
	}
}

func nextMatchingIndices(points []Point, predicate func(*Point) bool) []int {
	indices := make([]int, len(points))
	next := len(points)
	for i := len(points) - 1; i >= 0; i-- {
		if predicate(&points[i]) {
			next = i
		}
		indices[i] = next
	}
	return indices
}

func firstAfterPhraseIndices(points []Point) []int {
	indices := make([]int, len(points))
	for i := range points {
		if math.IsInf(float64(points[i].phraseEndBeat), -1) {
			indices[i] = i + 1
			continue
		}
		j := i + 1
		for j < len(points) && points[j].Position.Beat <= points[i].phraseEndBeat {
			j++
		}
		indices[i] = j
	}
	return indices
}

func soloBoostsFromSolos(track chart.NoteTrack, converter *tempo.TimeConverter) []SoloBoost {
	boosts := make([]SoloBoost, 0, len(track.Solos))
	for _, solo := range track.Solos {
		endBeat := tempo.Beat(float64(solo.End) / float64(track.Resolution))
		boosts = append(boosts, SoloBoost{
			Position: tempo.Position{Beat: endBeat, Measure: converter.BeatsToMeasures(endBeat)},
			Value:    solo.Value,
		})
	}
	return boosts
}
