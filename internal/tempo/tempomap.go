package tempo

import (
	"errors"

	"golang.org/x/exp/slices"

	"git.lost.host/meutraa/spot/internal/chart"
)

// ErrInvalidSync is returned when a sync track cannot produce a valid
// tempo map.
var ErrInvalidSync = errors.New("sync track has no valid tempo information")

const (
	defaultBpm      = 120000000 // micro-bpm
	defaultBeatRate = 4.0       // beats per measure under 4/4
)

// TempoMap is the normalised sync track for one song: sorted time
// signatures and BPM changes plus the resolution they are read through.
// Immutable after construction.
type TempoMap struct {
	resolution int
	timeSigs   []chart.TimeSignature
	bpms       []chart.Bpm
}

func NewTempoMap(sync chart.SyncTrack, resolution int) (TempoMap, error) {
	if resolution <= 0 {
		return TempoMap{}, ErrInvalidSync
	}

	timeSigs := slices.Clone(sync.TimeSigs)
	slices.SortStableFunc(timeSigs, func(p, q chart.TimeSignature) bool {
		return p.Position < q.Position
	})
	timeSigs = dedupeByPosition(timeSigs, func(ts chart.TimeSignature) chart.Tick {
		return ts.Position
	})
	if len(timeSigs) == 0 || timeSigs[0].Position != 0 {
		timeSigs = append([]chart.TimeSignature{{Position: 0, Numerator: 4, Denominator: 4}}, timeSigs...)
	}
	for _, ts := range timeSigs {
		if ts.Numerator == 0 || ts.Denominator == 0 {
			return TempoMap{}, ErrInvalidSync
		}
	}

	bpms := slices.Clone(sync.Bpms)
	slices.SortStableFunc(bpms, func(p, q chart.Bpm) bool {
		return p.Position < q.Position
	})
	bpms = dedupeByPosition(bpms, func(b chart.Bpm) chart.Tick { return b.Position })
	if len(bpms) == 0 || bpms[0].Position != 0 {
		bpms = append([]chart.Bpm{{Position: 0, Bpm: defaultBpm}}, bpms...)
	}
	for _, bpm := range bpms {
		if bpm.Bpm == 0 {
			return TempoMap{}, ErrInvalidSync
		}
	}

	return TempoMap{resolution: resolution, timeSigs: timeSigs, bpms: bpms}, nil
}

// Later entries win on duplicate positions, matching how the games read
// repeated sync events.
func dedupeByPosition[T any](events []T, position func(T) chart.Tick) []T {
	deduped := events[:0:0]
	for i, event := range events {
		if i+1 < len(events) && position(events[i+1]) == position(event) {
			continue
		}
		deduped = append(deduped, event)
	}
	return deduped
}

func (m TempoMap) Resolution() int                    { return m.resolution }
func (m TempoMap) TimeSigs() []chart.TimeSignature    { return m.timeSigs }
func (m TempoMap) Bpms() []chart.Bpm                  { return m.bpms }
func (m TempoMap) TicksToBeats(position chart.Tick) Beat {
	return Beat(float64(position) / float64(m.resolution))
}

// Speedup returns a copy of the map with every BPM scaled by speed
// percent, the way video playback rates work.
func (m TempoMap) Speedup(speed int) TempoMap {
	scaled := TempoMap{resolution: m.resolution, timeSigs: m.timeSigs}
	scaled.bpms = make([]chart.Bpm, 0, len(m.bpms))
	for _, bpm := range m.bpms {
		scaled.bpms = append(scaled.bpms, chart.Bpm{
			Position: bpm.Position,
			Bpm:      uint32(uint64(bpm.Bpm) * uint64(speed) / 100),
		})
	}
	return scaled
}
