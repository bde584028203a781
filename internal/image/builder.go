package image

import (
	"math"

	"git.lost.host/meutraa/spot/internal/chart"
	"git.lost.host/meutraa/spot/internal/points"
	"git.lost.host/meutraa/spot/internal/processed"
	"git.lost.host/meutraa/spot/internal/sp"
	"git.lost.host/meutraa/spot/internal/tempo"
)

const maxBeatsPerRow = 16.0

// DrawnRow is one horizontal strip of the diagram, in beats.
type DrawnRow struct {
	Start float64
	End   float64
}

// DrawnNote is a note placed on the diagram.
type DrawnNote struct {
	Beat   float64
	Length float64
	Lane   uint8
	Flags  chart.NoteFlags
	IsSp   bool
}

// Range is a highlighted beat interval.
type Range struct {
	Start float64
	End   float64
}

// Builder accumulates everything the drawing layer needs: rows, lines,
// notes, highlighted ranges and the per-measure SP readings. It holds
// plain beats so the drawing layer stays unit free.
type Builder struct {
	SongName string
	Artist   string
	Charter  string

	Rows          []DrawnRow
	MeasureLines  []float64
	BeatLines     []float64
	HalfBeatLines []float64
	Bpms          [][2]float64
	TimeSigs      []TimeSigLabel

	Notes []DrawnNote

	GreenRanges  []Range // SP phrases
	BlueRanges   []Range // activations
	YellowRanges []Range // solos
	RedRanges    []Range // drum fills

	BaseValues      []int
	ScoreValues     []int
	SpPercentValues []float64
}

type TimeSigLabel struct {
	Beat        float64
	Numerator   int
	Denominator int
}

func NewBuilder(song *chart.Song, track chart.NoteTrack,
	converter *tempo.TimeConverter) *Builder {
	builder := &Builder{
		SongName: song.Name,
		Artist:   song.Artist,
		Charter:  song.Charter,
	}
	builder.addRows(song, track, converter)
	builder.addNotes(track)
	builder.addSpPhrases(track)
	builder.addSolos(track)
	builder.addFills(track)
	builder.addBpms(song)
	builder.addTimeSigs(song)
	return builder
}

// lastBeat is the final beat the diagram must cover.
func lastBeat(track chart.NoteTrack) float64 {
	resolution := float64(track.Resolution)
	last := 0.0
	for _, note := range track.Notes {
		end := float64(note.Position+note.Length) / resolution
		if end > last {
			last = end
		}
	}
	return last
}

func (b *Builder) addRows(song *chart.Song, track chart.NoteTrack,
	converter *tempo.TimeConverter) {
	end := lastBeat(track)
	lastMeasure := math.Ceil(float64(converter.BeatsToMeasures(tempo.Beat(end))))
	if lastMeasure < 1 {
		lastMeasure = 1
	}

	// Measures chunked into rows, never splitting a measure and never
	// exceeding the row width.
	rowStart := 0.0
	previous := 0.0
	for m := 1.0; m <= lastMeasure; m++ {
		beat := float64(converter.MeasuresToBeats(tempo.Measure(m)))
		b.MeasureLines = append(b.MeasureLines, previous)
		if beat-rowStart > maxBeatsPerRow {
			b.Rows = append(b.Rows, DrawnRow{Start: rowStart, End: previous})
			rowStart = previous
		}
		previous = beat
	}
	b.Rows = append(b.Rows, DrawnRow{Start: rowStart, End: previous})

	for beat := 0.0; beat < previous; beat += 1.0 {
		b.BeatLines = append(b.BeatLines, beat)
		b.HalfBeatLines = append(b.HalfBeatLines, beat+0.5)
	}
}

func (b *Builder) addNotes(track chart.NoteTrack) {
	resolution := float64(track.Resolution)
	for _, note := range track.Notes {
		isSp := false
		for _, phrase := range track.SpPhrases {
			if phrase.Contains(note.Position) {
				isSp = true
				break
			}
		}
		b.Notes = append(b.Notes, DrawnNote{
			Beat:   float64(note.Position) / resolution,
			Length: float64(note.Length) / resolution,
			Lane:   note.Lane,
			Flags:  note.Flags,
			IsSp:   isSp,
		})
	}
}

func (b *Builder) addSpPhrases(track chart.NoteTrack) {
	resolution := float64(track.Resolution)
	for _, phrase := range track.SpPhrases {
		b.GreenRanges = append(b.GreenRanges, Range{
			Start: float64(phrase.Position) / resolution,
			End:   float64(phrase.Position+phrase.Length) / resolution,
		})
	}
}

func (b *Builder) addSolos(track chart.NoteTrack) {
	resolution := float64(track.Resolution)
	for _, solo := range track.Solos {
		b.YellowRanges = append(b.YellowRanges, Range{
			Start: float64(solo.Start) / resolution,
			End:   float64(solo.End) / resolution,
		})
	}
}

func (b *Builder) addFills(track chart.NoteTrack) {
	resolution := float64(track.Resolution)
	for _, fill := range track.DrumFills {
		b.RedRanges = append(b.RedRanges, Range{
			Start: float64(fill.Position) / resolution,
			End:   float64(fill.Position+fill.Length) / resolution,
		})
	}
}

func (b *Builder) addBpms(song *chart.Song) {
	resolution := float64(song.Resolution)
	for _, bpm := range song.Sync.Bpms {
		b.Bpms = append(b.Bpms, [2]float64{
			float64(bpm.Position) / resolution,
			float64(bpm.Bpm) / 1000000,
		})
	}
}

func (b *Builder) addTimeSigs(song *chart.Song) {
	resolution := float64(song.Resolution)
	for _, ts := range song.Sync.TimeSigs {
		b.TimeSigs = append(b.TimeSigs, TimeSigLabel{
			Beat:        float64(ts.Position) / resolution,
			Numerator:   int(ts.Numerator),
			Denominator: int(ts.Denominator),
		})
	}
}

// AddSpActs highlights the activations of a path.
func (b *Builder) AddSpActs(path processed.Path) {
	for _, act := range path.Activations {
		b.BlueRanges = append(b.BlueRanges, Range{
			Start: float64(act.SpStart),
			End:   float64(act.SpEnd),
		})
	}
}

// AddMeasureValues records the per-measure base and pathed scores.
func (b *Builder) AddMeasureValues(pts *points.PointSet, path processed.Path) {
	b.BaseValues = make([]int, len(b.MeasureLines))
	b.ScoreValues = make([]int, len(b.MeasureLines))
	measureEnd := func(i int) float64 {
		if i+1 < len(b.MeasureLines) {
			return b.MeasureLines[i+1]
		}
		return math.Inf(1)
	}

	doubled := func(beat float64) bool {
		for _, act := range path.Activations {
			start := float64(pts.At(act.ActStart).Position.Beat)
			end := float64(pts.At(act.ActEnd).Position.Beat)
			if beat >= start && beat <= end {
				return true
			}
		}
		return false
	}

	measure := 0
	for i := 0; i < pts.Len(); i++ {
		point := pts.At(i)
		beat := float64(point.Position.Beat)
		for measure+1 < len(b.MeasureLines) && beat >= measureEnd(measure) {
			measure++
		}
		b.BaseValues[measure] += point.BaseValue
		value := point.Value
		if doubled(beat) {
			value *= 2
		}
		b.ScoreValues[measure] += value
	}
}

// AddSpPercentValues samples the SP bar at the end of every measure:
// phrase grants land at the granting note's late window edge, and
// inside an activation the bar interpolates linearly in measure space
// down to zero at the activation's end.
func (b *Builder) AddSpPercentValues(spData *sp.SpData,
	converter *tempo.TimeConverter, pts *points.PointSet,
	path processed.Path) {
	type grant struct {
		beat   float64
		amount float64
	}
	grants := []grant{}
	for i := 0; i < pts.Len(); i++ {
		point := pts.At(i)
		if point.IsSpGrantingNote {
			amount := spData.PhraseAmount()
			if point.IsUnisonSpEnder {
				amount *= 2
			}
			grants = append(grants, grant{
				beat:   float64(point.HitWindowEnd.Beat),
				amount: amount,
			})
		}
	}

	covering := func(beat float64) (processed.Activation, bool) {
		for _, act := range path.Activations {
			if beat >= float64(act.SpStart) && beat < float64(act.SpEnd) {
				return act, true
			}
		}
		return processed.Activation{}, false
	}

	b.SpPercentValues = make([]float64, len(b.MeasureLines))
	for i := range b.MeasureLines {
		sample := b.Rows[len(b.Rows)-1].End
		if i+1 < len(b.MeasureLines) {
			sample = b.MeasureLines[i+1]
		}

		if act, ok := covering(sample); ok {
			endMeasure := float64(converter.BeatsToMeasures(tempo.Beat(act.SpEnd)))
			sampleMeasure := float64(converter.BeatsToMeasures(tempo.Beat(sample)))
			b.SpPercentValues[i] = (endMeasure - sampleMeasure) * spData.DrainRate()
			continue
		}

		// SP spent by earlier activations is gone; what remains is the
		// grants since the last activation ended.
		lastEnd := math.Inf(-1)
		for _, act := range path.Activations {
			if end := float64(act.SpEnd); end <= sample && end > lastEnd {
				lastEnd = end
			}
		}
		held := 0.0
		for _, g := range grants {
			if g.beat > lastEnd && g.beat <= sample {
				held = math.Min(1, held+g.amount)
			}
		}
		b.SpPercentValues[i] = held
	}
}
