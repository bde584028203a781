package processed

import (
	"fmt"
	"math"
	"strings"

	"git.lost.host/meutraa/spot/internal/chart"
	"git.lost.host/meutraa/spot/internal/engine"
	"git.lost.host/meutraa/spot/internal/points"
	"git.lost.host/meutraa/spot/internal/sp"
	"git.lost.host/meutraa/spot/internal/tempo"
)

// ActivationCandidate is a proposed activation the validator judges.
// Points are indices into the song's PointSet.
type ActivationCandidate struct {
	ActStart                int
	ActEnd                  int
	EarliestActivationPoint tempo.Position
	SpBar                   sp.SpBar
}

// Activation is a validated activation in a finished path.
type Activation struct {
	ActStart  int
	ActEnd    int
	WhammyEnd tempo.Beat
	SpStart   tempo.Beat
	SpEnd     tempo.Beat
}

type ActValidity int

const (
	Success ActValidity = iota
	InsufficientSp
	SurplusSp
)

// ActResult reports whether an activation is feasible and, if so, the
// earliest position it can end.
type ActResult struct {
	EndingPosition tempo.Position
	Validity       ActValidity
}

type Path struct {
	Activations []Activation
	ScoreBoost  int
}

const (
	// A drum activation pop may trail its fill point by this long.
	drumFillFlex = tempo.Second(0.25)

	breBaseBoost      = 750
	breBoostPerSecond = 500
)

func NegInfPosition() tempo.Position {
	return tempo.Position{Beat: tempo.Beat(math.Inf(-1)), Measure: tempo.Measure(math.Inf(-1))}
}

// ProcessedSong composes the tempo map, point set and SP data for one
// track and exposes the contract surface the optimiser works against.
type ProcessedSong struct {
	tempoMap  tempo.TempoMap
	converter tempo.TimeConverter
	points    *points.PointSet
	spData    *sp.SpData
	eng       *engine.Engine

	totalSoloBoost int
	totalBreBoost  int
	baseScore      int
	breStart       *tempo.Position
}

func NewProcessedSong(track chart.NoteTrack, sync chart.SyncTrack,
	squeeze engine.SqueezeSettings, drums engine.DrumSettings,
	eng *engine.Engine, odBeats []chart.Tick,
	unisonPhrases []chart.Tick, speed int) (*ProcessedSong, error) {
	tempoMap, err := tempo.NewTempoMap(sync, track.Resolution)
	if nil != err {
		return nil, fmt.Errorf("unable to build tempo map: %w", err)
	}
	if speed != 100 {
		tempoMap = tempoMap.Speedup(speed)
	}
	converter := tempo.NewTimeConverter(tempoMap, odBeats)

	song := &ProcessedSong{
		tempoMap:  tempoMap,
		converter: converter,
		points:    points.New(track, &converter, unisonPhrases, squeeze, drums, eng),
		spData:    sp.New(track, &converter, squeeze, eng),
		eng:       eng,
	}

	for _, solo := range track.Solos {
		song.totalSoloBoost += solo.Value
	}
	if eng.HasBres && track.Bre != nil {
		startBeat := tempoMap.TicksToBeats(track.Bre.Start)
		endBeat := tempoMap.TicksToBeats(track.Bre.End)
		duration := converter.BeatsToSeconds(endBeat) - converter.BeatsToSeconds(startBeat)
		song.totalBreBoost = breBaseBoost + int(float64(breBoostPerSecond)*float64(duration))
		position := converter.PositionAt(startBeat)
		song.breStart = &position
	}
	song.baseScore = song.points.BaseScore()

	return song, nil
}

func (s *ProcessedSong) Points() *points.PointSet       { return s.points }
func (s *ProcessedSong) SpData() *sp.SpData             { return s.spData }
func (s *ProcessedSong) Converter() *tempo.TimeConverter { return &s.converter }
func (s *ProcessedSong) TempoMap() tempo.TempoMap       { return s.tempoMap }
func (s *ProcessedSong) Engine() *engine.Engine         { return s.eng }
func (s *ProcessedSong) IsDrums() bool                  { return s.eng.IsDrums() }
func (s *ProcessedSong) TotalSoloBoost() int            { return s.totalSoloBoost }
func (s *ProcessedSong) TotalBreBoost() int             { return s.totalBreBoost }
func (s *ProcessedSong) BaseScore() int                 { return s.baseScore }

func (s *ProcessedSong) phraseAmountAt(p int) float64 {
	amount := s.spData.PhraseAmount()
	if s.points.At(p).IsUnisonSpEnder {
		amount *= 2
	}
	return amount
}

// TotalAvailableSp is the minimum and maximum SP acquirable between
// start and the activation start point, not counting the activation
// point itself. All whammy up to requiredWhammyEnd is mandatory.
func (s *ProcessedSong) TotalAvailableSp(start tempo.Beat, firstPoint,
	actStart int, requiredWhammyEnd tempo.Beat) sp.SpBar {
	bar := sp.SpBar{}
	for p := firstPoint; p < actStart; p++ {
		if s.points.At(p).IsSpGrantingNote {
			bar.AddPhrase(s.phraseAmountAt(p))
		}
	}
	actBeat := s.points.At(actStart).Position.Beat
	if requiredWhammyEnd > start {
		forced := tempo.Beat(math.Min(float64(requiredWhammyEnd), float64(actBeat)))
		bar.Min = math.Min(1, bar.Min+s.spData.AvailableWhammy(start, forced))
	}
	bar.Max = math.Min(1, bar.Max+s.spData.AvailableWhammy(start, actBeat))
	if bar.Min > bar.Max {
		bar.Min = bar.Max
	}
	return bar
}

// TotalAvailableSpWithEarliestPos is TotalAvailableSp with no whammy
// required, except that as soon as half a bar is held at some position
// no earlier than earliestPotentialPos, that position and the SP held
// there are returned instead.
func (s *ProcessedSong) TotalAvailableSpWithEarliestPos(start tempo.Beat,
	firstPoint, actStart int,
	earliestPotentialPos tempo.Position) (sp.SpBar, tempo.Position) {
	actBeat := s.points.At(actStart).Position.Beat

	crossing := tempo.Beat(math.Inf(1))
	total := 0.0
	cursor := start
	found := false
	for p := firstPoint; p <= actStart && !found; p++ {
		boundary := actBeat
		grant := 0.0
		if p < actStart {
			if !s.points.At(p).IsSpGrantingNote {
				continue
			}
			// A phrase is complete as soon as its last note can be
			// hit, which is the early edge of that note's window.
			boundary = s.points.At(p).HitWindowStart.Beat
			grant = s.phraseAmountAt(p)
		}
		if need := 0.5 - total; need > 0 {
			if cross, ok := s.spData.WhammyPropagationPoint(cursor, need, boundary); ok {
				crossing = cross
				found = true
				break
			}
		}
		total = math.Min(1, total+s.spData.AvailableWhammy(cursor, boundary))
		total = math.Min(1, total+grant)
		cursor = boundary
		if total >= 0.5 {
			crossing = boundary
			found = true
		}
	}

	if !found {
		return s.TotalAvailableSp(start, firstPoint, actStart, tempo.Beat(math.Inf(-1))),
			s.points.At(actStart).Position
	}

	position := tempo.Beat(math.Max(float64(crossing), float64(earliestPotentialPos.Beat)))
	if position > actBeat {
		position = actBeat
	}
	grants := 0.0
	for p := firstPoint; p < actStart; p++ {
		point := s.points.At(p)
		if point.IsSpGrantingNote && point.HitWindowStart.Beat <= position {
			grants = math.Min(1, grants+s.phraseAmountAt(p))
		}
	}
	bar := sp.SpBar{
		Min: grants,
		Max: math.Min(1, grants+s.spData.AvailableWhammy(start, position)),
	}
	return bar, s.converter.PositionAt(position)
}

// AdjustedHitWindowStart is the position (100*(1-squeeze))% of the way
// from the early edge of the point's timing window to the point.
func (s *ProcessedSong) AdjustedHitWindowStart(p int, squeeze float64) tempo.Position {
	point := s.points.At(p)
	windowSeconds := s.converter.BeatsToSeconds(point.HitWindowStart.Beat)
	noteSeconds := s.converter.BeatsToSeconds(point.Position.Beat)
	seconds := windowSeconds*tempo.Second(squeeze) + noteSeconds*tempo.Second(1-squeeze)
	return s.converter.PositionAt(s.converter.SecondsToBeats(seconds))
}

// AdjustedHitWindowEnd is the position (100*squeeze)% of the way from
// the point to the late edge of its timing window.
func (s *ProcessedSong) AdjustedHitWindowEnd(p int, squeeze float64) tempo.Position {
	point := s.points.At(p)
	windowSeconds := s.converter.BeatsToSeconds(point.HitWindowEnd.Beat)
	noteSeconds := s.converter.BeatsToSeconds(point.Position.Beat)
	seconds := windowSeconds*tempo.Second(squeeze) + noteSeconds*tempo.Second(1-squeeze)
	return s.converter.PositionAt(s.converter.SecondsToBeats(seconds))
}

// IsCandidateValid decides whether the candidate can be played as a
// real activation. Squeezes are checked against the given amount only.
func (s *ProcessedSong) IsCandidateValid(cand ActivationCandidate,
	squeeze float64, requiredWhammyEnd tempo.Position) ActResult {
	if cand.ActEnd < cand.ActStart {
		panic("activation ends before it starts")
	}
	nullPosition := tempo.Position{}
	if !cand.SpBar.FullEnoughToActivate() {
		return ActResult{nullPosition, InsufficientSp}
	}

	actPosition := s.AdjustedHitWindowStart(cand.ActStart, squeeze)
	if cand.EarliestActivationPoint.Beat > actPosition.Beat {
		actPosition = cand.EarliestActivationPoint
	}

	// SP measured at the earliest activation point has drained by the
	// time the activation reaches its first scored note. Whammy before
	// that is already part of the candidate's bar.
	bar := cand.SpBar
	if drainMeasures := float64(actPosition.Measure - cand.EarliestActivationPoint.Measure); drainMeasures > 0 {
		drain := s.spData.DrainRate() * drainMeasures
		bar.Min = math.Max(0, bar.Min-drain)
		bar.Max = bar.Max - drain
		if bar.Max < 0 {
			return ActResult{nullPosition, InsufficientSp}
		}
	}

	// Drum activations pop on a fill; the pop must land between the
	// fill starting and shortly after its attached point.
	if fillStart := s.points.At(cand.ActStart).FillStart; s.IsDrums() && fillStart != nil {
		actSeconds := s.converter.BeatsToSeconds(actPosition.Beat)
		pointSeconds := s.converter.BeatsToSeconds(s.points.At(cand.ActStart).Position.Beat)
		if actSeconds < *fillStart {
			return ActResult{nullPosition, InsufficientSp}
		}
		if actSeconds > pointSeconds+drumFillFlex {
			return ActResult{nullPosition, SurplusSp}
		}
	}

	endMax := s.spData.ActivationEndPoint(actPosition, bar.Max, tempo.Beat(math.Inf(1)))
	endMin := s.spData.ActivationEndPoint(actPosition, bar.Min, requiredWhammyEnd.Beat)
	if s.breStart != nil {
		if endMax.Beat > s.breStart.Beat {
			endMax = *s.breStart
		}
		if endMin.Beat > s.breStart.Beat {
			endMin = *s.breStart
		}
	}

	windowStart := s.AdjustedHitWindowStart(cand.ActEnd, squeeze)
	windowEnd := s.AdjustedHitWindowEnd(cand.ActEnd, squeeze)

	if endMax.Beat < windowStart.Beat {
		return ActResult{nullPosition, InsufficientSp}
	}

	ending := endMin
	if windowStart.Beat > ending.Beat {
		ending = windowStart
	}

	if endMin.Beat > windowEnd.Beat && !s.eng.Overlaps {
		// The activation cannot be brought to an end inside the end
		// point's window; engines without overlaps reject it.
		return ActResult{nullPosition, SurplusSp}
	}

	return ActResult{ending, Success}
}

// PathSummary renders the optimal path in the compact text form.
func (s *ProcessedSong) PathSummary(path Path) string {
	var builder strings.Builder
	summaries := s.actSummaries(path)
	builder.WriteString("Path: ")
	if len(summaries) == 0 {
		builder.WriteString("None")
	} else {
		builder.WriteString(strings.Join(summaries, "-"))
	}
	builder.WriteString("\n\n")
	fmt.Fprintf(&builder, "No SP score: %d\n", s.baseScore+s.totalSoloBoost)
	fmt.Fprintf(&builder, "Total score: %d\n",
		s.baseScore+s.totalSoloBoost+path.ScoreBoost)
	for i, act := range path.Activations {
		start := s.points.At(act.ActStart).Position.Measure
		end := s.points.At(act.ActEnd).Position.Measure
		fmt.Fprintf(&builder, "Activation %d: Measure %.1f to Measure %.1f\n",
			i+1, float64(start)+1, float64(end)+1)
	}
	return builder.String()
}

// actSummaries names each activation by how many SP sources are passed
// over before it: phrases for guitar engines, fills for drums.
func (s *ProcessedSong) actSummaries(path Path) []string {
	summaries := make([]string, 0, len(path.Activations))
	cursor := 0
	for _, act := range path.Activations {
		skipped := 0
		for p := cursor; p < act.ActStart; p++ {
			point := s.points.At(p)
			if s.IsDrums() && point.FillStart != nil {
				skipped++
			}
			if !s.IsDrums() && point.IsSpGrantingNote {
				skipped++
			}
		}
		summaries = append(summaries, fmt.Sprintf("%d", skipped))
		cursor = s.points.NextNonHoldPoint(act.ActEnd + 1)
	}
	return summaries
}
