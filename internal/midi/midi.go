package midi

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gitlab.com/gomidi/midi/v2/smf"

	"git.lost.host/meutraa/spot/internal/chart"
)

const (
	spPhraseNote  = 116
	soloNote      = 103
	fillFirstNote = 120
	fillLastNote  = 124
	tomFirstNote  = 110

	ghostVelocity  = 1
	accentVelocity = 127
)

var trackNames = map[string]chart.Instrument{
	"PART GUITAR":      chart.Guitar,
	"PART GUITAR COOP": chart.GuitarCoop,
	"PART BASS":        chart.Bass,
	"PART RHYTHM":      chart.Rhythm,
	"PART KEYS":        chart.Keys,
	"PART DRUMS":       chart.DrumKit,
	"PART GUITAR GHL":  chart.GhlGuitar,
	"PART BASS GHL":    chart.GhlBass,
}

var difficultyBases = map[chart.Difficulty]uint8{
	chart.Easy:   60,
	chart.Medium: 72,
	chart.Hard:   84,
	chart.Expert: 96,
}

type DefaultParser struct{}

func (p *DefaultParser) Parse(file string) (s *chart.Song, e error) {
	// The smf reader can panic on truncated files.
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if r, ok := recover().(string); ok {
			e = errors.New(r)
		}
	}()

	data, err := os.ReadFile(file)
	if nil != err {
		return nil, err
	}
	mf, err := smf.ReadFrom(bytes.NewReader(data))
	if nil != err {
		return nil, fmt.Errorf("unable to parse midi file: %w", err)
	}
	return songFromSmf(mf)
}

type rawEvent struct {
	tick     chart.Tick
	key      uint8
	velocity uint8
	on       bool
}

func songFromSmf(mf *smf.SMF) (*chart.Song, error) {
	metric, ok := mf.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, errors.New("midi file does not use metric time")
	}

	song := &chart.Song{
		Resolution: int(metric.Resolution()),
		Tracks:     map[chart.TrackKey]chart.NoteTrack{},
	}

	for i, track := range mf.Tracks {
		name := ""
		events := []rawEvent{}
		absTicks := uint64(0)
		for _, event := range track {
			absTicks += uint64(event.Delta)
			var text string
			var channel, key, velocity uint8
			var bpm float64
			var num, denom uint8
			switch {
			case event.Message.GetMetaTrackName(&text):
				name = strings.TrimSpace(text)
			case event.Message.GetMetaTempo(&bpm):
				song.Sync.Bpms = append(song.Sync.Bpms, chart.Bpm{
					Position: chart.Tick(absTicks),
					Bpm:      uint32(bpm * 1000000),
				})
			case event.Message.GetMetaMeter(&num, &denom):
				song.Sync.TimeSigs = append(song.Sync.TimeSigs, chart.TimeSignature{
					Position:    chart.Tick(absTicks),
					Numerator:   uint32(num),
					Denominator: uint32(denom),
				})
			case event.Message.GetNoteOn(&channel, &key, &velocity):
				events = append(events, rawEvent{
					tick: chart.Tick(absTicks), key: key, velocity: velocity,
					on: velocity > 0,
				})
			case event.Message.GetNoteOff(&channel, &key, &velocity):
				events = append(events, rawEvent{
					tick: chart.Tick(absTicks), key: key,
				})
			}
		}

		if i == 0 && name != "" && song.Name == "" {
			song.Name = name
		}
		if name == "BEAT" {
			song.OdBeats = odBeatsFromEvents(events)
			continue
		}
		instrument, ok := trackNames[name]
		if !ok {
			continue
		}
		for difficulty := chart.Easy; difficulty <= chart.Expert; difficulty++ {
			track := noteTrackFromEvents(instrument, difficulty, song.Resolution, events)
			if len(track.Notes) == 0 {
				continue
			}
			song.Tracks[chart.TrackKey{Instrument: instrument, Difficulty: difficulty}] = track
		}
	}

	return song, nil
}

func odBeatsFromEvents(events []rawEvent) []chart.Tick {
	beats := []chart.Tick{}
	for _, event := range events {
		if event.on && (event.key == 12 || event.key == 13) {
			beats = append(beats, event.tick)
		}
	}
	return beats
}

type openNote struct {
	tick     chart.Tick
	velocity uint8
}

func noteTrackFromEvents(instrument chart.Instrument, difficulty chart.Difficulty,
	resolution int, events []rawEvent) chart.NoteTrack {
	trackType := chart.FiveFret
	laneCount := uint8(5)
	switch instrument {
	case chart.GhlGuitar, chart.GhlBass:
		trackType = chart.SixFret
		laneCount = 6
	case chart.DrumKit:
		trackType = chart.Drums
		laneCount = 5
	}
	base := difficultyBases[difficulty]

	notes := []chart.Note{}
	phrases := []chart.StarPower{}
	solos := []chart.Solo{}
	fills := []chart.DrumFill{}
	var bre *chart.BigRockEnding

	open := map[uint8]openNote{}
	tomRanges := map[uint8][][2]chart.Tick{}
	soloPositions := map[chart.Tick]bool{}

	flush := func(key uint8, end chart.Tick) {
		started, ok := open[key]
		if !ok {
			return
		}
		delete(open, key)

		switch {
		case key >= base && key < base+laneCount:
			lane := key - base
			length := end - started.tick
			// Sustains of a sixteenth or less are bursts in disguise.
			if int(length) <= resolution/4 {
				length = 0
			}
			note := chart.Note{Position: started.tick, Length: length, Lane: lane}
			if trackType == chart.Drums {
				note = drumNote(started, lane)
			}
			notes = append(notes, note)
		case trackType == chart.Drums && key == 95 && difficulty == chart.Expert:
			notes = append(notes, chart.Note{Position: started.tick, Lane: chart.LaneDoubleKick})
		case key == spPhraseNote:
			phrases = append(phrases, chart.StarPower{
				Position: started.tick, Length: end - started.tick,
			})
		case key == soloNote:
			value := 0
			for position := range soloPositions {
				if position >= started.tick && position <= end {
					value++
				}
			}
			solos = append(solos, chart.Solo{Start: started.tick, End: end, Value: value * 100})
		case key >= tomFirstNote && key < tomFirstNote+3:
			pad := uint8(key-tomFirstNote) + chart.LaneDrumYellow
			tomRanges[pad] = append(tomRanges[pad], [2]chart.Tick{started.tick, end})
		case key >= fillFirstNote && key <= fillLastNote:
			if trackType == chart.Drums {
				if key == fillFirstNote {
					fills = append(fills, chart.DrumFill{
						Position: started.tick, Length: end - started.tick,
					})
				}
			} else if bre == nil {
				bre = &chart.BigRockEnding{Start: started.tick, End: end}
			}
		}
	}

	for _, event := range events {
		if event.on {
			open[event.key] = openNote{tick: event.tick, velocity: event.velocity}
			if event.key >= base && event.key < base+laneCount {
				soloPositions[event.tick] = true
			}
			continue
		}
		flush(event.key, event.tick)
	}

	if trackType == chart.Drums {
		applyTomMarkers(notes, tomRanges)
	}

	return chart.NewNoteTrack(trackType, resolution, notes, phrases, solos, fills, bre)
}

// drumNote maps an expert drum lane: the first key is the kick and the
// rest are the pads, cymbals by default on yellow through green until a
// tom marker says otherwise. Velocity extremes carry the dynamics.
func drumNote(started openNote, lane uint8) chart.Note {
	note := chart.Note{Position: started.tick}
	if lane == 0 {
		note.Lane = chart.LaneKick
		return note
	}
	note.Lane = lane - 1
	if note.Lane >= chart.LaneDrumYellow && note.Lane <= chart.LaneDrumGreen {
		note.Flags |= chart.FlagCymbal
	}
	switch started.velocity {
	case ghostVelocity:
		note.Flags |= chart.FlagGhost
	case accentVelocity:
		note.Flags |= chart.FlagAccent
	}
	return note
}

func applyTomMarkers(notes []chart.Note, tomRanges map[uint8][][2]chart.Tick) {
	for i := range notes {
		if notes[i].Flags&chart.FlagCymbal == 0 {
			continue
		}
		for _, span := range tomRanges[notes[i].Lane] {
			if notes[i].Position >= span[0] && notes[i].Position < span[1] {
				notes[i].Flags &^= chart.FlagCymbal
				break
			}
		}
	}
}
