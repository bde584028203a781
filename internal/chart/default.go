package chart

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	defaultResolution = 192
	soloNoteValue     = 100
)

var noteSectionSuffixes = map[string]Instrument{
	"Single":       Guitar,
	"DoubleGuitar": GuitarCoop,
	"DoubleBass":   Bass,
	"DoubleRhythm": Rhythm,
	"Keyboard":     Keys,
	"Drums":        DrumKit,
	"GHLGuitar":    GhlGuitar,
	"GHLBass":      GhlBass,
}

var difficultyPrefixes = map[string]Difficulty{
	"Easy":   Easy,
	"Medium": Medium,
	"Hard":   Hard,
	"Expert": Expert,
}

// ParseChart reads the .chart text format: bracketed sections of
// "key = value" lines, one section per track.
func ParseChart(input string) (*Song, error) {
	song := &Song{
		Resolution: defaultResolution,
		Tracks:     map[TrackKey]NoteTrack{},
	}

	input = strings.ReplaceAll(input, "\r", "")
	input = strings.TrimPrefix(input, "\ufeff")
	sections, err := splitSections(input)
	if nil != err {
		return nil, err
	}

	for _, section := range sections {
		switch {
		case section.name == "Song":
			if err := parseSongSection(song, section.lines); nil != err {
				return nil, err
			}
		case section.name == "SyncTrack":
			if err := parseSyncTrack(song, section.lines); nil != err {
				return nil, err
			}
		case section.name == "Events":
			// Global events carry nothing the optimiser consumes.
		default:
			key, ok := noteSectionKey(section.name)
			if !ok {
				continue
			}
			track, err := parseNoteSection(song.Resolution, key, section.lines)
			if nil != err {
				return nil, fmt.Errorf("unable to parse section %v: %w", section.name, err)
			}
			song.Tracks[key] = track
		}
	}

	return song, nil
}

type section struct {
	name  string
	lines []string
}

func splitSections(input string) ([]section, error) {
	sections := []section{}
	lines := strings.Split(input, "\n")
	for i := 0; i < len(lines); {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
			i++
			continue
		}
		name := line[1 : len(line)-1]
		i++
		for i < len(lines) && strings.TrimSpace(lines[i]) != "{" {
			i++
		}
		if i == len(lines) {
			return nil, fmt.Errorf("section %v has no body", name)
		}
		i++
		body := []string{}
		for i < len(lines) && strings.TrimSpace(lines[i]) != "}" {
			body = append(body, strings.TrimSpace(lines[i]))
			i++
		}
		sections = append(sections, section{name: name, lines: body})
	}
	return sections, nil
}

func noteSectionKey(name string) (TrackKey, bool) {
	for prefix, difficulty := range difficultyPrefixes {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		instrument, ok := noteSectionSuffixes[strings.TrimPrefix(name, prefix)]
		if !ok {
			return TrackKey{}, false
		}
		return TrackKey{Instrument: instrument, Difficulty: difficulty}, true
	}
	return TrackKey{}, false
}

func splitKeyValue(line string) (string, string, bool) {
	key, value, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	return strings.TrimSpace(key), strings.TrimSpace(value), true
}

func parseSongSection(song *Song, lines []string) error {
	for _, line := range lines {
		key, value, ok := splitKeyValue(line)
		if !ok {
			continue
		}
		switch key {
		case "Resolution":
			resolution, err := strconv.Atoi(value)
			if nil != err {
				return fmt.Errorf("unable to parse resolution: %w", err)
			}
			song.Resolution = resolution
		case "Name":
			song.Name = strings.Trim(value, "\"")
		case "Artist":
			song.Artist = strings.Trim(value, "\"")
		case "Charter":
			song.Charter = strings.Trim(value, "\"")
		}
	}
	return nil
}

func parseSyncTrack(song *Song, lines []string) error {
	for _, line := range lines {
		key, value, ok := splitKeyValue(line)
		if !ok {
			continue
		}
		position, err := strconv.ParseUint(key, 10, 32)
		if nil != err {
			return fmt.Errorf("unable to parse sync position: %w", err)
		}
		fields := strings.Fields(value)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "B":
			// Stored as milli-bpm in the file.
			milliBpm, err := strconv.ParseUint(fields[1], 10, 32)
			if nil != err {
				return fmt.Errorf("unable to parse bpm: %w", err)
			}
			song.Sync.Bpms = append(song.Sync.Bpms, Bpm{
				Position: Tick(position),
				Bpm:      uint32(milliBpm * 1000),
			})
		case "TS":
			numerator, err := strconv.ParseUint(fields[1], 10, 32)
			if nil != err {
				return fmt.Errorf("unable to parse time signature: %w", err)
			}
			denominator := uint64(4)
			if len(fields) > 2 {
				// The second value is the log2 of the denominator.
				power, err := strconv.ParseUint(fields[2], 10, 32)
				if nil != err {
					return fmt.Errorf("unable to parse time signature: %w", err)
				}
				denominator = 1 << power
			}
			song.Sync.TimeSigs = append(song.Sync.TimeSigs, TimeSignature{
				Position:    Tick(position),
				Numerator:   uint32(numerator),
				Denominator: uint32(denominator),
			})
		}
	}
	return nil
}

type chartEvent struct {
	position Tick
	kind     string
	fields   []string
}

func parseNoteSection(resolution int, key TrackKey, lines []string) (NoteTrack, error) {
	events := []chartEvent{}
	for _, line := range lines {
		k, value, ok := splitKeyValue(line)
		if !ok {
			continue
		}
		position, err := strconv.ParseUint(k, 10, 32)
		if nil != err {
			return NoteTrack{}, fmt.Errorf("unable to parse event position: %w", err)
		}
		fields := strings.Fields(value)
		if len(fields) < 2 {
			continue
		}
		events = append(events, chartEvent{
			position: Tick(position),
			kind:     fields[0],
			fields:   fields[1:],
		})
	}

	trackType := FiveFret
	switch key.Instrument {
	case GhlGuitar, GhlBass:
		trackType = SixFret
	case DrumKit:
		trackType = Drums
	}

	notes := []Note{}
	phrases := []StarPower{}
	fills := []DrumFill{}
	cymbalTicks := map[Tick][]uint8{}
	soloStarts := []Tick{}
	soloEnds := []Tick{}

	for _, event := range events {
		switch event.kind {
		case "N":
			lane, err := strconv.Atoi(event.fields[0])
			if nil != err {
				return NoteTrack{}, fmt.Errorf("unable to parse note: %w", err)
			}
			length := Tick(0)
			if len(event.fields) > 1 {
				parsed, err := strconv.ParseUint(event.fields[1], 10, 32)
				if nil != err {
					return NoteTrack{}, fmt.Errorf("unable to parse note length: %w", err)
				}
				length = Tick(parsed)
			}
			note, modifier, ok := mapChartNote(trackType, lane, event.position, length)
			if modifier != nil {
				cymbalTicks[event.position] = append(cymbalTicks[event.position], *modifier)
				continue
			}
			if ok {
				notes = append(notes, note)
			}
		case "S":
			kind, err := strconv.Atoi(event.fields[0])
			if nil != err {
				return NoteTrack{}, fmt.Errorf("unable to parse special phrase: %w", err)
			}
			length := Tick(0)
			if len(event.fields) > 1 {
				parsed, err := strconv.ParseUint(event.fields[1], 10, 32)
				if nil != err {
					return NoteTrack{}, fmt.Errorf("unable to parse phrase length: %w", err)
				}
				length = Tick(parsed)
			}
			switch kind {
			case 2:
				phrases = append(phrases, StarPower{Position: event.position, Length: length})
			case 64:
				fills = append(fills, DrumFill{Position: event.position, Length: length})
			}
		case "E":
			switch event.fields[0] {
			case "solo":
				soloStarts = append(soloStarts, event.position)
			case "soloend":
				soloEnds = append(soloEnds, event.position)
			}
		}
	}

	for tick, lanes := range cymbalTicks {
		for i := range notes {
			if notes[i].Position != tick {
				continue
			}
			for _, lane := range lanes {
				if notes[i].Lane == lane {
					notes[i].Flags |= FlagCymbal
				}
			}
		}
	}

	solos := solosFromEvents(notes, soloStarts, soloEnds)

	return NewNoteTrack(trackType, resolution, notes, phrases, solos, fills, nil), nil
}

// mapChartNote translates a lane number from the file to a note, or to
// a modifier lane for the drum cymbal markers.
func mapChartNote(trackType TrackType, lane int, position, length Tick) (Note, *uint8, bool) {
	switch trackType {
	case FiveFret:
		switch {
		case lane >= 0 && lane <= 4:
			return Note{Position: position, Length: length, Lane: uint8(lane)}, nil, true
		case lane == 7:
			return Note{Position: position, Length: length, Lane: LaneOpen}, nil, true
		}
	case SixFret:
		switch {
		case lane >= 0 && lane <= 5:
			return Note{Position: position, Length: length, Lane: uint8(lane)}, nil, true
		case lane == 7:
			return Note{Position: position, Length: length, Lane: LaneGhlOpen}, nil, true
		}
	case Drums:
		switch {
		case lane == 0:
			return Note{Position: position, Lane: LaneKick}, nil, true
		case lane >= 1 && lane <= 4:
			return Note{Position: position, Lane: uint8(lane - 1)}, nil, true
		case lane == 32:
			return Note{Position: position, Lane: LaneDoubleKick}, nil, true
		case lane >= 66 && lane <= 68:
			modifier := uint8(lane - 65) // yellow, blue, green pads
			return Note{}, &modifier, false
		}
	}
	return Note{}, nil, false
}

func solosFromEvents(notes []Note, starts, ends []Tick) []Solo {
	solos := []Solo{}
	for i, start := range starts {
		if i >= len(ends) {
			break
		}
		end := ends[i]
		positions := map[Tick]bool{}
		for _, note := range notes {
			if note.Position >= start && note.Position <= end {
				positions[note.Position] = true
			}
		}
		if len(positions) == 0 {
			continue
		}
		solos = append(solos, Solo{
			Start: start,
			End:   end,
			Value: len(positions) * soloNoteValue,
		})
	}
	return solos
}
