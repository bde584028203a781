package chart

import (
	"testing"
)

const fixture = `[Song]
{
  Resolution = 192
  Name = "Fixture"
}
[SyncTrack]
{
  0 = TS 4
  768 = TS 6 3
  0 = B 120000
}
[ExpertSingle]
{
  0 = N 0 0
  0 = S 2 50
  192 = N 0 0
  192 = N 1 0
  384 = N 2 96
  384 = N 7 0
  768 = N 3 0
  768 = E solo
  960 = N 4 0
  960 = E soloend
}
[ExpertDrums]
{
  0 = N 0 0
  0 = N 1 0
  192 = N 2 0
  192 = N 66 0
  384 = N 32 0
  192 = S 64 192
}
`

func parseFixture(t *testing.T) *Song {
	song, err := ParseChart(fixture)
	if nil != err {
		t.Fatal("unable to parse chart", err)
	}
	return song
}

func TestParseSongSection(t *testing.T) {
	song := parseFixture(t)
	if song.Resolution != 192 || song.Name != "Fixture" {
		t.Log("song", song.Resolution, song.Name)
		t.Fail()
	}
}

func TestParseSyncTrack(t *testing.T) {
	song := parseFixture(t)
	if len(song.Sync.Bpms) != 1 || song.Sync.Bpms[0].Bpm != 120000000 {
		t.Log("bpms", song.Sync.Bpms)
		t.Fail()
	}
	if len(song.Sync.TimeSigs) != 2 {
		t.Fatal("time sigs", song.Sync.TimeSigs)
	}
	second := song.Sync.TimeSigs[1]
	if second.Position != 768 || second.Numerator != 6 || second.Denominator != 8 {
		t.Log("time sig", second)
		t.Fail()
	}
}

func TestParseGuitarTrack(t *testing.T) {
	song := parseFixture(t)
	track, ok := song.Tracks[TrackKey{Instrument: Guitar, Difficulty: Expert}]
	if !ok {
		t.Fatal("missing expert guitar track")
	}
	if len(track.Notes) != 7 {
		t.Fatal("notes", track.Notes)
	}
	if track.Notes[4].Lane != LaneOpen {
		t.Log("open note lane", track.Notes[4])
		t.Fail()
	}
	if track.Notes[3].Length != 96 {
		t.Log("sustain length", track.Notes[3])
		t.Fail()
	}
	if len(track.SpPhrases) != 1 {
		t.Log("phrases", track.SpPhrases)
		t.Fail()
	}
	if len(track.Solos) != 1 || track.Solos[0].Value != 200 {
		t.Log("solos", track.Solos)
		t.Fail()
	}
}

func TestParseDrumTrack(t *testing.T) {
	song := parseFixture(t)
	track, ok := song.Tracks[TrackKey{Instrument: DrumKit, Difficulty: Expert}]
	if !ok {
		t.Fatal("missing expert drum track")
	}
	if len(track.Notes) != 4 {
		t.Fatal("notes", track.Notes)
	}
	lanes := map[uint8]bool{}
	for _, note := range track.Notes {
		lanes[note.Lane] = true
	}
	if !lanes[LaneKick] || !lanes[LaneDoubleKick] || !lanes[LaneDrumRed] {
		t.Log("lanes", track.Notes)
		t.Fail()
	}
	var yellow *Note
	for i := range track.Notes {
		if track.Notes[i].Lane == LaneDrumYellow {
			yellow = &track.Notes[i]
		}
	}
	if yellow == nil || !yellow.IsCymbal() {
		t.Log("yellow cymbal", yellow)
		t.Fail()
	}
	if len(track.DrumFills) != 1 || track.DrumFills[0].Length != 192 {
		t.Log("fills", track.DrumFills)
		t.Fail()
	}
}

func TestNewNoteTrackInvariants(t *testing.T) {
	notes := []Note{
		{Position: 192, Lane: 1},
		{Position: 0, Lane: 0},
	}
	phrases := []StarPower{
		{Position: 0, Length: 300},
		{Position: 192, Length: 50},
		{Position: 5000, Length: 50}, // no note inside, dropped
	}
	track := NewNoteTrack(FiveFret, 192, notes, phrases, nil, nil, nil)

	if track.Notes[0].Position != 0 {
		t.Log("notes unsorted", track.Notes)
		t.Fail()
	}
	if len(track.SpPhrases) != 2 {
		t.Fatal("phrases", track.SpPhrases)
	}
	// The first phrase is clipped so the two do not overlap.
	first := track.SpPhrases[0]
	if first.Position+first.Length != 192 {
		t.Log("clipped phrase", first)
		t.Fail()
	}
}

func TestUnisonPhrasePositions(t *testing.T) {
	song := &Song{Tracks: map[TrackKey]NoteTrack{
		{Guitar, Expert}: {SpPhrases: []StarPower{{Position: 0, Length: 10}, {Position: 400, Length: 10}}},
		{Bass, Expert}:   {SpPhrases: []StarPower{{Position: 0, Length: 10}}},
	}}
	unisons := song.UnisonPhrasePositions()
	if len(unisons) != 1 || unisons[0] != 0 {
		t.Log("unisons", unisons)
		t.Fail()
	}
}
