package tempo

import (
	"sort"

	"git.lost.host/meutraa/spot/internal/chart"
)

type beatTimestamp struct {
	beat Beat
	time Second
}

type measureTimestamp struct {
	measure Measure
	beat    Beat
}

// TimeConverter is the lookup service over a TempoMap. It provides a
// total, strictly monotone bijection between beats, seconds and
// measures by interpolating the piecewise linear breakpoint tables
// built at construction.
type TimeConverter struct {
	beatTimestamps    []beatTimestamp
	measureTimestamps []measureTimestamp
	lastBpm           uint32  // micro-bpm past the final change
	lastBeatRate      float64 // beats per measure past the final change
}

// NewTimeConverter builds the breakpoint tables. An od beat list, when
// non-empty, defines the measure mapping directly at four beats per
// measure and replaces the time signature derivation.
func NewTimeConverter(tempoMap TempoMap, odBeats []chart.Tick) TimeConverter {
	converter := TimeConverter{}

	lastTick := chart.Tick(0)
	lastBpm := uint32(defaultBpm)
	lastTime := 0.0
	for _, bpm := range tempoMap.Bpms() {
		lastTime += float64(bpm.Position-lastTick) * 60000000.0 /
			(float64(tempoMap.Resolution()) * float64(lastBpm))
		converter.beatTimestamps = append(converter.beatTimestamps, beatTimestamp{
			beat: tempoMap.TicksToBeats(bpm.Position),
			time: Second(lastTime),
		})
		lastBpm = bpm.Bpm
		lastTick = bpm.Position
	}
	converter.lastBpm = lastBpm

	if len(odBeats) > 0 {
		for i, odBeat := range odBeats {
			converter.measureTimestamps = append(converter.measureTimestamps, measureTimestamp{
				measure: Measure(float64(i) / defaultBeatRate),
				beat:    tempoMap.TicksToBeats(odBeat),
			})
		}
		converter.lastBeatRate = defaultBeatRate
		return converter
	}

	lastTick = 0
	lastBeatRate := defaultBeatRate
	lastMeasure := 0.0
	for _, ts := range tempoMap.TimeSigs() {
		lastMeasure += float64(ts.Position-lastTick) /
			(float64(tempoMap.Resolution()) * lastBeatRate)
		converter.measureTimestamps = append(converter.measureTimestamps, measureTimestamp{
			measure: Measure(lastMeasure),
			beat:    tempoMap.TicksToBeats(ts.Position),
		})
		lastBeatRate = defaultBeatRate * float64(ts.Numerator) / float64(ts.Denominator)
		lastTick = ts.Position
	}
	converter.lastBeatRate = lastBeatRate

	return converter
}

func (c *TimeConverter) BeatsToSeconds(beats Beat) Second {
	i := sort.Search(len(c.beatTimestamps), func(i int) bool {
		return c.beatTimestamps[i].beat >= beats
	})
	if i == len(c.beatTimestamps) {
		back := c.beatTimestamps[len(c.beatTimestamps)-1]
		return back.time + Second(float64(beats-back.beat)*60000000.0/float64(c.lastBpm))
	}
	if i == 0 {
		front := c.beatTimestamps[0]
		return front.time - Second(float64(front.beat-beats)*60000000.0/float64(defaultBpm))
	}
	prev, next := c.beatTimestamps[i-1], c.beatTimestamps[i]
	return prev.time + Second(float64(next.time-prev.time)*
		float64(beats-prev.beat)/float64(next.beat-prev.beat))
}

func (c *TimeConverter) SecondsToBeats(seconds Second) Beat {
	i := sort.Search(len(c.beatTimestamps), func(i int) bool {
		return c.beatTimestamps[i].time >= seconds
	})
	if i == len(c.beatTimestamps) {
		back := c.beatTimestamps[len(c.beatTimestamps)-1]
		return back.beat + Beat(float64(seconds-back.time)*float64(c.lastBpm)/60000000.0)
	}
	if i == 0 {
		front := c.beatTimestamps[0]
		return front.beat - Beat(float64(front.time-seconds)*float64(defaultBpm)/60000000.0)
	}
	prev, next := c.beatTimestamps[i-1], c.beatTimestamps[i]
	return prev.beat + Beat(float64(next.beat-prev.beat)*
		float64(seconds-prev.time)/float64(next.time-prev.time))
}

func (c *TimeConverter) BeatsToMeasures(beats Beat) Measure {
	i := sort.Search(len(c.measureTimestamps), func(i int) bool {
		return c.measureTimestamps[i].beat >= beats
	})
	if i == len(c.measureTimestamps) {
		back := c.measureTimestamps[len(c.measureTimestamps)-1]
		return back.measure + Measure(float64(beats-back.beat)/c.lastBeatRate)
	}
	if i == 0 {
		front := c.measureTimestamps[0]
		return front.measure - Measure(float64(front.beat-beats)/defaultBeatRate)
	}
	prev, next := c.measureTimestamps[i-1], c.measureTimestamps[i]
	return prev.measure + Measure(float64(next.measure-prev.measure)*
		float64(beats-prev.beat)/float64(next.beat-prev.beat))
}

func (c *TimeConverter) MeasuresToBeats(measures Measure) Beat {
	i := sort.Search(len(c.measureTimestamps), func(i int) bool {
		return c.measureTimestamps[i].measure >= measures
	})
	if i == len(c.measureTimestamps) {
		back := c.measureTimestamps[len(c.measureTimestamps)-1]
		return back.beat + Beat(float64(measures-back.measure)*c.lastBeatRate)
	}
	if i == 0 {
		front := c.measureTimestamps[0]
		return front.beat - Beat(float64(front.measure-measures)*defaultBeatRate)
	}
	prev, next := c.measureTimestamps[i-1], c.measureTimestamps[i]
	return prev.beat + Beat(float64(next.beat-prev.beat)*
		float64(measures-prev.measure)/float64(next.measure-prev.measure))
}

func (c *TimeConverter) MeasuresToSeconds(measures Measure) Second {
	return c.BeatsToSeconds(c.MeasuresToBeats(measures))
}

func (c *TimeConverter) SecondsToMeasures(seconds Second) Measure {
	return c.BeatsToMeasures(c.SecondsToBeats(seconds))
}

// PositionAt bundles a beat with its measure.
func (c *TimeConverter) PositionAt(beat Beat) Position {
	return Position{Beat: beat, Measure: c.BeatsToMeasures(beat)}
}

// MeasureBoundariesBetween returns the beats strictly inside (start,
// end) at which the measure slope changes. Callers integrating per
// measure split their segments here so the beat to measure mapping is
// linear on every piece.
func (c *TimeConverter) MeasureBoundariesBetween(start, end Beat) []Beat {
	boundaries := []Beat{}
	for _, stamp := range c.measureTimestamps {
		if stamp.beat > start && stamp.beat < end {
			boundaries = append(boundaries, stamp.beat)
		}
	}
	return boundaries
}
