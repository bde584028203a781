package midi

import (
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"git.lost.host/meutraa/spot/internal/chart"
)

func testSmf(t *testing.T) *smf.SMF {
	var mf smf.SMF
	mf.TimeFormat = smf.MetricTicks(192)

	var sync smf.Track
	sync.Add(0, smf.MetaTrackSequenceName("fixture"))
	sync.Add(0, smf.MetaTempo(120))
	sync.Add(0, smf.MetaMeter(4, 4))
	sync.Close(0)
	mf.Add(sync)

	var guitar smf.Track
	guitar.Add(0, smf.MetaTrackSequenceName("PART GUITAR"))
	// An SP phrase and a solo open at zero, along with a green note
	// sustained for a beat; a red note follows a beat later.
	guitar.Add(0, gomidi.NoteOn(0, 116, 100))
	guitar.Add(0, gomidi.NoteOn(0, 103, 100))
	guitar.Add(0, gomidi.NoteOn(0, 96, 100))
	guitar.Add(50, gomidi.NoteOff(0, 116))
	guitar.Add(142, gomidi.NoteOff(0, 96))
	guitar.Add(0, gomidi.NoteOn(0, 97, 100))
	guitar.Add(10, gomidi.NoteOff(0, 97))
	guitar.Add(0, gomidi.NoteOff(0, 103))
	guitar.Close(0)
	mf.Add(guitar)

	var drums smf.Track
	drums.Add(0, smf.MetaTrackSequenceName("PART DRUMS"))
	drums.Add(0, gomidi.NoteOn(0, 96, 100)) // kick
	drums.Add(10, gomidi.NoteOff(0, 96))
	drums.Add(182, gomidi.NoteOn(0, 98, 127)) // accented yellow cymbal
	drums.Add(10, gomidi.NoteOff(0, 98))
	drums.Close(0)
	mf.Add(drums)

	var beat smf.Track
	beat.Add(0, smf.MetaTrackSequenceName("BEAT"))
	beat.Add(0, gomidi.NoteOn(0, 12, 100))
	beat.Add(10, gomidi.NoteOff(0, 12))
	beat.Add(182, gomidi.NoteOn(0, 13, 100))
	beat.Add(10, gomidi.NoteOff(0, 13))
	beat.Close(0)
	mf.Add(beat)

	return &mf
}

func TestSongFromSmf(t *testing.T) {
	song, err := songFromSmf(testSmf(t))
	if nil != err {
		t.Fatal("unable to convert", err)
	}

	if song.Resolution != 192 {
		t.Log("resolution", song.Resolution)
		t.Fail()
	}
	if len(song.Sync.Bpms) != 1 || song.Sync.Bpms[0].Bpm != 120000000 {
		t.Log("bpms", song.Sync.Bpms)
		t.Fail()
	}
	if len(song.OdBeats) != 2 {
		t.Log("od beats", song.OdBeats)
		t.Fail()
	}

	track, ok := song.Tracks[chart.TrackKey{Instrument: chart.Guitar, Difficulty: chart.Expert}]
	if !ok {
		t.Fatal("missing expert guitar")
	}
	if len(track.Notes) != 2 {
		t.Fatal("notes", track.Notes)
	}
	// The sustained note keeps its length; the red note's ten tick
	// tail is trimmed to a burst.
	if track.Notes[0].Length != 192 || track.Notes[1].Length != 0 {
		t.Log("lengths", track.Notes)
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

func TestDrumTrackFromSmf(t *testing.T) {
	song, err := songFromSmf(testSmf(t))
	if nil != err {
		t.Fatal("unable to convert", err)
	}
	track, ok := song.Tracks[chart.TrackKey{Instrument: chart.DrumKit, Difficulty: chart.Expert}]
	if !ok {
		t.Fatal("missing expert drums")
	}
	if len(track.Notes) != 2 {
		t.Fatal("notes", track.Notes)
	}
	if track.Notes[0].Lane != chart.LaneKick {
		t.Log("kick lane", track.Notes[0])
		t.Fail()
	}
	yellow := track.Notes[1]
	if yellow.Lane != chart.LaneDrumYellow || !yellow.IsCymbal() {
		t.Log("yellow", yellow)
		t.Fail()
	}
	if yellow.Flags&chart.FlagAccent == 0 {
		t.Log("accent lost", yellow)
		t.Fail()
	}
}
