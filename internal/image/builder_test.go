package image

import (
	"math"
	"testing"

	"git.lost.host/meutraa/spot/internal/chart"
	"git.lost.host/meutraa/spot/internal/engine"
	"git.lost.host/meutraa/spot/internal/points"
	"git.lost.host/meutraa/spot/internal/processed"
	"git.lost.host/meutraa/spot/internal/sp"
	"git.lost.host/meutraa/spot/internal/tempo"
)

func closeTo(p, q float64) bool {
	return math.Abs(p-q) < 1e-6
}

// The track from the nearly overlapped phrases case: the third phrase
// sits a hair after the only activation dies.
func fixture(t *testing.T) (*chart.Song, chart.NoteTrack, *tempo.TimeConverter,
	*points.PointSet, *sp.SpData) {
	track := chart.NewNoteTrack(chart.FiveFret, 192, []chart.Note{
		{Position: 0, Lane: 0},
		{Position: 192, Lane: 0},
		{Position: 384, Lane: 0},
		{Position: 3224, Lane: 0},
		{Position: 3456, Lane: 0},
	}, []chart.StarPower{
		{Position: 0, Length: 10},
		{Position: 192, Length: 10},
		{Position: 3224, Length: 10},
	}, nil, nil, nil)
	song := &chart.Song{
		Name:       "Fixture",
		Resolution: 192,
		Tracks:     map[chart.TrackKey]chart.NoteTrack{},
	}
	tempoMap, err := tempo.NewTempoMap(chart.SyncTrack{}, 192)
	if nil != err {
		t.Fatal("unable to build tempo map", err)
	}
	converter := tempo.NewTimeConverter(tempoMap, nil)
	pts := points.New(track, &converter, nil, engine.DefaultSqueezeSettings(),
		engine.DefaultDrumSettings(), engine.ChGuitarEngine())
	spData := sp.New(track, &converter, engine.DefaultSqueezeSettings(),
		engine.ChGuitarEngine())
	return song, track, &converter, pts, spData
}

func TestRowsAndMeasureLines(t *testing.T) {
	song, track, converter, _, _ := fixture(t)
	builder := NewBuilder(song, track, converter)

	if len(builder.Rows) != 2 {
		t.Fatal("rows", builder.Rows)
	}
	if builder.Rows[0].Start != 0 || builder.Rows[0].End != 16 {
		t.Log("first row", builder.Rows[0])
		t.Fail()
	}
	if builder.Rows[1].End != 20 {
		t.Log("last row", builder.Rows[1])
		t.Fail()
	}
	expected := []float64{0, 4, 8, 12, 16}
	if len(builder.MeasureLines) != len(expected) {
		t.Fatal("measure lines", builder.MeasureLines)
	}
	for i, line := range expected {
		if builder.MeasureLines[i] != line {
			t.Log("measure line", i, builder.MeasureLines[i])
			t.Fail()
		}
	}
	if len(builder.GreenRanges) != 3 {
		t.Log("green ranges", builder.GreenRanges)
		t.Fail()
	}
	if len(builder.Notes) != 5 || !builder.Notes[0].IsSp {
		t.Log("notes", builder.Notes)
		t.Fail()
	}
}

func TestAddSpActs(t *testing.T) {
	song, track, converter, _, _ := fixture(t)
	builder := NewBuilder(song, track, converter)
	builder.AddSpActs(processed.Path{Activations: []processed.Activation{
		{ActStart: 2, ActEnd: 2, SpStart: 0.86, SpEnd: 16.86},
	}})
	if len(builder.BlueRanges) != 1 {
		t.Fatal("blue ranges", builder.BlueRanges)
	}
	if builder.BlueRanges[0].Start != 0.86 || builder.BlueRanges[0].End != 16.86 {
		t.Log("blue range", builder.BlueRanges[0])
		t.Fail()
	}
}

func TestAddMeasureValues(t *testing.T) {
	song, track, converter, pts, _ := fixture(t)
	builder := NewBuilder(song, track, converter)
	path := processed.Path{
		Activations: []processed.Activation{
			{ActStart: 2, ActEnd: 2, SpStart: 0.86, SpEnd: 16.86},
		},
		ScoreBoost: 50,
	}
	builder.AddMeasureValues(pts, path)

	expectedBase := []int{150, 0, 0, 0, 100}
	expectedScore := []int{200, 0, 0, 0, 100}
	for i := range expectedBase {
		if builder.BaseValues[i] != expectedBase[i] {
			t.Log("base", i, builder.BaseValues[i])
			t.Fail()
		}
		if builder.ScoreValues[i] != expectedScore[i] {
			t.Log("score", i, builder.ScoreValues[i])
			t.Fail()
		}
	}
}

func TestAddSpPercentValues(t *testing.T) {
	song, track, converter, pts, spData := fixture(t)
	builder := NewBuilder(song, track, converter)
	path := processed.Path{
		Activations: []processed.Activation{
			{ActStart: 2, ActEnd: 2, SpStart: 0.86, SpEnd: 16.86},
		},
		ScoreBoost: 50,
	}
	builder.AddSpPercentValues(spData, converter, pts, path)

	// During the activation the bar interpolates to zero in measure
	// space; the third phrase lands just after it dies and survives.
	expected := []float64{0.401875, 0.276875, 0.151875, 0.026875, 0.25}
	if len(builder.SpPercentValues) != len(expected) {
		t.Fatal("sp percents", builder.SpPercentValues)
	}
	for i := range expected {
		if !closeTo(builder.SpPercentValues[i], expected[i]) {
			t.Log("sample  ", i, builder.SpPercentValues[i])
			t.Log("expected", expected[i])
			t.Fail()
		}
	}
}

func TestAddSpPercentValuesWithoutPath(t *testing.T) {
	song, track, converter, pts, spData := fixture(t)
	builder := NewBuilder(song, track, converter)
	builder.AddSpPercentValues(spData, converter, pts, processed.Path{})

	// Grants accumulate and clamp to a full bar, never draining.
	expected := []float64{0.5, 0.5, 0.5, 0.5, 0.75}
	for i := range expected {
		if !closeTo(builder.SpPercentValues[i], expected[i]) {
			t.Log("sample  ", i, builder.SpPercentValues[i])
			t.Log("expected", expected[i])
			t.Fail()
		}
	}
}
