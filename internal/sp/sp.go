package sp

import (
	"math"
	"sort"

	"git.lost.host/meutraa/spot/internal/chart"
	"git.lost.host/meutraa/spot/internal/engine"
	"git.lost.host/meutraa/spot/internal/tempo"
)

const minimumSpAmount = 0.5

// SpBar is the minimum and maximum Star Power held at a position, in
// units of full bars. Surplus beyond a full bar is lost.
type SpBar struct {
	Min float64
	Max float64
}

func (b *SpBar) AddPhrase(amount float64) {
	b.Min = clampBar(b.Min + amount)
	b.Max = clampBar(b.Max + amount)
}

func (b SpBar) FullEnoughToActivate() bool {
	return b.Min >= minimumSpAmount
}

func clampBar(value float64) float64 {
	return math.Max(0, math.Min(1, value))
}

type whammyRange struct {
	start tempo.Beat
	end   tempo.Beat
}

// SpData answers how much SP can be gained over any beat interval and
// how SP evolves while an activation drains it. Immutable after
// construction.
type SpData struct {
	converter    *tempo.TimeConverter
	ranges       []whammyRange
	gainRate     float64 // bars per beat
	drainRate    float64 // bars per measure
	phraseAmount float64
}

func New(track chart.NoteTrack, converter *tempo.TimeConverter,
	squeeze engine.SqueezeSettings, eng *engine.Engine) *SpData {
	data := &SpData{
		converter:    converter,
		gainRate:     eng.SpGainRate,
		drainRate:    eng.SpDrainRate,
		phraseAmount: eng.SpPhraseAmount,
	}

	resolution := float64(track.Resolution)
	earlyWindow := eng.EarlyTimingWindow(math.Inf(1), math.Inf(1)) *
		squeeze.Squeeze * squeeze.EarlyWhammy

	raw := []whammyRange{}
	for _, note := range track.Notes {
		if note.Length == 0 {
			continue
		}
		inPhrase := false
		for _, phrase := range track.SpPhrases {
			if phrase.Contains(note.Position) {
				inPhrase = true
				break
			}
		}
		if !inPhrase {
			continue
		}
		noteBeat := tempo.Beat(float64(note.Position) / resolution)
		endBeat := tempo.Beat(float64(note.Position+note.Length) / resolution)
		startSeconds := converter.BeatsToSeconds(noteBeat) -
			tempo.Second(earlyWindow) + tempo.Second(squeeze.WhammyDelay)
		endSeconds := converter.BeatsToSeconds(endBeat) - tempo.Second(squeeze.LazyWhammy)
		if endSeconds <= startSeconds {
			continue
		}
		raw = append(raw, whammyRange{
			start: converter.SecondsToBeats(startSeconds),
			end:   converter.SecondsToBeats(endSeconds),
		})
	}

	sort.SliceStable(raw, func(i, j int) bool { return raw[i].start < raw[j].start })
	for _, r := range raw {
		if n := len(data.ranges); n > 0 && r.start <= data.ranges[n-1].end {
			if r.end > data.ranges[n-1].end {
				data.ranges[n-1].end = r.end
			}
			continue
		}
		data.ranges = append(data.ranges, r)
	}

	return data
}

func (d *SpData) PhraseAmount() float64 { return d.phraseAmount }
func (d *SpData) DrainRate() float64    { return d.drainRate }

// WhammyRangeStarts lists the beats at which whammy income becomes
// available, one per merged range.
func (d *SpData) WhammyRangeStarts() []tempo.Beat {
	starts := make([]tempo.Beat, 0, len(d.ranges))
	for _, r := range d.ranges {
		starts = append(starts, r.start)
	}
	return starts
}

func (d *SpData) IsInWhammyRanges(beat tempo.Beat) bool {
	for _, r := range d.ranges {
		if beat >= r.start && beat < r.end {
			return true
		}
		if r.start > beat {
			break
		}
	}
	return false
}

// AvailableWhammy is the whammy SP obtainable between two beats.
func (d *SpData) AvailableWhammy(start, end tempo.Beat) float64 {
	total := 0.0
	for _, r := range d.ranges {
		if r.start >= end {
			break
		}
		lo := math.Max(float64(r.start), float64(start))
		hi := math.Min(float64(r.end), float64(end))
		if hi > lo {
			total += (hi - lo) * d.gainRate
		}
	}
	return total
}

// WhammyPropagationPoint is the earliest beat no later than limit at
// which the whammy accumulated since start reaches amount.
func (d *SpData) WhammyPropagationPoint(start tempo.Beat, amount float64,
	limit tempo.Beat) (tempo.Beat, bool) {
	remaining := amount
	for _, r := range d.ranges {
		if r.start >= limit {
			break
		}
		lo := math.Max(float64(r.start), float64(start))
		hi := math.Min(float64(r.end), float64(limit))
		if hi <= lo {
			continue
		}
		gain := (hi - lo) * d.gainRate
		if gain >= remaining {
			return tempo.Beat(lo + remaining/d.gainRate), true
		}
		remaining -= gain
	}
	return 0, false
}

// segment is a piece of the timeline on which SP changes linearly:
// whammy state and measure slope are both constant inside it.
type segment struct {
	start     tempo.Position
	end       tempo.Position
	whammying bool
}

func (d *SpData) segmentsBetween(start, end tempo.Position,
	whammyEnd tempo.Beat) []segment {
	boundaries := []tempo.Beat{}
	for _, r := range d.ranges {
		boundaries = append(boundaries, r.start, r.end)
	}
	if !math.IsInf(float64(whammyEnd), 0) {
		boundaries = append(boundaries, whammyEnd)
	}
	boundaries = append(boundaries,
		d.converter.MeasureBoundariesBetween(start.Beat, end.Beat)...)

	cut := []tempo.Beat{start.Beat}
	for _, b := range boundaries {
		if b > start.Beat && b < end.Beat {
			cut = append(cut, b)
		}
	}
	cut = append(cut, end.Beat)
	sort.Slice(cut, func(i, j int) bool { return cut[i] < cut[j] })

	segments := make([]segment, 0, len(cut)-1)
	prev := start
	for _, b := range cut[1:] {
		if b == prev.Beat {
			continue
		}
		pos := d.converter.PositionAt(b)
		mid := tempo.Beat((float64(prev.Beat) + float64(b)) / 2)
		segments = append(segments, segment{
			start:     prev,
			end:       pos,
			whammying: d.IsInWhammyRanges(mid) && mid < whammyEnd,
		})
		prev = pos
	}
	if len(segments) > 0 {
		segments[len(segments)-1].end = end
	}
	return segments
}

// Propagate integrates drain and whammy gain between two positions.
// All whammy contributes to the maximum; only the whammy forced up to
// requiredWhammyEnd contributes to the minimum. Both components stay
// clamped to [0, 1].
func (d *SpData) Propagate(bar SpBar, start, end tempo.Position,
	requiredWhammyEnd tempo.Beat) SpBar {
	if end.Beat <= start.Beat {
		return bar
	}
	for _, seg := range d.segmentsBetween(start, end, tempo.Beat(math.Inf(1))) {
		drain := d.drainRate * float64(seg.end.Measure-seg.start.Measure)
		gain := 0.0
		if seg.whammying {
			gain = d.gainRate * float64(seg.end.Beat-seg.start.Beat)
		}
		bar.Max = clampBar(bar.Max + gain - drain)
		forcedGain := 0.0
		if seg.whammying && seg.start.Beat < requiredWhammyEnd {
			forced := math.Min(float64(seg.end.Beat), float64(requiredWhammyEnd))
			forcedGain = d.gainRate * (forced - float64(seg.start.Beat))
		}
		bar.Min = clampBar(bar.Min + forcedGain - drain)
	}
	if bar.Min > bar.Max {
		bar.Min = bar.Max
	}
	return bar
}

// ActivationEndPoint is the earliest position at which an activation
// holding sp bars at start runs dry, whammying every range before
// whammyEnd along the way.
func (d *SpData) ActivationEndPoint(start tempo.Position, sp float64,
	whammyEnd tempo.Beat) tempo.Position {
	if sp <= 0 {
		return start
	}

	horizon := d.horizonAfter(start.Beat, whammyEnd)
	for _, seg := range d.segmentsBetween(start, horizon, whammyEnd) {
		db := float64(seg.end.Beat - seg.start.Beat)
		dm := float64(seg.end.Measure - seg.start.Measure)
		rate := -d.drainRate * dm / db
		if seg.whammying {
			rate += d.gainRate
		}
		delta := rate * db
		if sp+delta > 0 {
			sp = math.Min(1, sp+delta)
			continue
		}
		crossing := tempo.Beat(float64(seg.start.Beat) + sp/-rate)
		return d.converter.PositionAt(crossing)
	}

	// Past every whammy range and time signature change SP drains
	// linearly in measure space.
	end := d.converter.PositionAt(horizon.Beat)
	measure := end.Measure + tempo.Measure(sp/d.drainRate)
	return tempo.Position{Beat: d.converter.MeasuresToBeats(measure), Measure: measure}
}

// horizonAfter is a beat past the last boundary that could matter when
// walking forward from start.
func (d *SpData) horizonAfter(start, whammyEnd tempo.Beat) tempo.Position {
	last := float64(start)
	for _, r := range d.ranges {
		if float64(r.end) > last && r.start < whammyEnd {
			last = float64(r.end)
		}
	}
	for _, b := range d.converter.MeasureBoundariesBetween(start, tempo.Beat(math.Inf(1))) {
		if float64(b) > last {
			last = float64(b)
		}
	}
	return d.converter.PositionAt(tempo.Beat(last + 1))
}
