package sp

import (
	"math"
	"testing"

	"git.lost.host/meutraa/spot/internal/chart"
	"git.lost.host/meutraa/spot/internal/engine"
	"git.lost.host/meutraa/spot/internal/tempo"
)

func near(p, q float64) bool {
	return math.Abs(p-q) < 1e-9
}

func converter(t *testing.T) *tempo.TimeConverter {
	tempoMap, err := tempo.NewTempoMap(chart.SyncTrack{}, 192)
	if nil != err {
		t.Fatal("unable to build tempo map", err)
	}
	c := tempo.NewTimeConverter(tempoMap, nil)
	return &c
}

func newData(t *testing.T, notes []chart.Note, phrases []chart.StarPower,
	squeeze engine.SqueezeSettings) *SpData {
	track := chart.NewNoteTrack(chart.FiveFret, 192, notes, phrases, nil, nil, nil)
	return New(track, converter(t), squeeze, engine.ChGuitarEngine())
}

func TestPhraseGrantIdempotence(t *testing.T) {
	bar := SpBar{Min: 1, Max: 1}
	bar.AddPhrase(0.25)
	bar.AddPhrase(0.25)
	if bar.Min != 1 || bar.Max != 1 {
		t.Log("bar", bar)
		t.Fail()
	}
}

func TestFullEnoughToActivate(t *testing.T) {
	if (SpBar{Min: 0.25, Max: 0.75}).FullEnoughToActivate() {
		t.Fail()
	}
	if !(SpBar{Min: 0.5, Max: 0.5}).FullEnoughToActivate() {
		t.Fail()
	}
}

func TestAvailableWhammy(t *testing.T) {
	// One sustained note inside a phrase, one beat long.
	data := newData(t, []chart.Note{{Position: 0, Lane: 0, Length: 192}},
		[]chart.StarPower{{Position: 0, Length: 50}},
		engine.DefaultSqueezeSettings())

	if out := data.AvailableWhammy(0, 1); !near(out, 1.0/30) {
		t.Log("whammy over the sustain", out)
		t.Fail()
	}
	// Monotone in the end beat.
	if data.AvailableWhammy(0, 0.5) > data.AvailableWhammy(0, 1.0) {
		t.Log("whammy not monotone")
		t.Fail()
	}
	if out := data.AvailableWhammy(2, 8); out != 0 {
		t.Log("whammy past the sustain", out)
		t.Fail()
	}
}

func TestSustainOutsidePhraseGivesNoWhammy(t *testing.T) {
	data := newData(t, []chart.Note{{Position: 768, Lane: 0, Length: 192}},
		[]chart.StarPower{{Position: 0, Length: 50}},
		engine.DefaultSqueezeSettings())
	if out := data.AvailableWhammy(0, 32); out != 0 {
		t.Log("whammy", out)
		t.Fail()
	}
}

func TestLazyWhammyShortensTail(t *testing.T) {
	squeeze := engine.DefaultSqueezeSettings()
	squeeze.LazyWhammy = 0.25 // half of the one beat sustain at 120 bpm
	data := newData(t, []chart.Note{{Position: 0, Lane: 0, Length: 192}},
		[]chart.StarPower{{Position: 0, Length: 50}}, squeeze)
	if out := data.AvailableWhammy(0, 1); !near(out, 0.5/30) {
		t.Log("lazy whammy", out)
		t.Fail()
	}
}

func TestWhammyDelayShortensHead(t *testing.T) {
	base := newData(t, []chart.Note{{Position: 0, Lane: 0, Length: 192}},
		[]chart.StarPower{{Position: 0, Length: 50}},
		engine.DefaultSqueezeSettings())
	squeeze := engine.DefaultSqueezeSettings()
	squeeze.WhammyDelay = 0.07
	delayed := newData(t, []chart.Note{{Position: 0, Lane: 0, Length: 192}},
		[]chart.StarPower{{Position: 0, Length: 50}}, squeeze)
	if !near(delayed.AvailableWhammy(-1, 1)+0.14/30, base.AvailableWhammy(-1, 1)) {
		t.Log("base   ", base.AvailableWhammy(-1, 1))
		t.Log("delayed", delayed.AvailableWhammy(-1, 1))
		t.Fail()
	}
}

func TestWhammyPropagationPoint(t *testing.T) {
	data := newData(t, []chart.Note{{Position: 0, Lane: 0, Length: 384}},
		[]chart.StarPower{{Position: 0, Length: 50}},
		engine.DefaultSqueezeSettings())

	// One thirtieth of a bar per beat: half a thirtieth needs half a
	// beat of whammy.
	beat, ok := data.WhammyPropagationPoint(0, 0.5/30, 8)
	if !ok || !near(float64(beat), 0.5) {
		t.Log("propagation point", beat, ok)
		t.Fail()
	}
	if _, ok := data.WhammyPropagationPoint(0, 1, 8); ok {
		t.Log("unreachable amount found")
		t.Fail()
	}
}

func TestPropagateDrainOnly(t *testing.T) {
	data := newData(t, nil, nil, engine.DefaultSqueezeSettings())
	c := converter(t)

	bar := data.Propagate(SpBar{Min: 1, Max: 1},
		c.PositionAt(0), c.PositionAt(8), tempo.Beat(math.Inf(-1)))
	if !near(bar.Min, 0.75) || !near(bar.Max, 0.75) {
		t.Log("bar", bar)
		t.Fail()
	}

	// Drain clamps at empty.
	bar = data.Propagate(SpBar{Min: 0.1, Max: 0.1},
		c.PositionAt(0), c.PositionAt(32), tempo.Beat(math.Inf(-1)))
	if bar.Min != 0 || bar.Max != 0 {
		t.Log("drained bar", bar)
		t.Fail()
	}
}

func TestPropagateWhammyMinMax(t *testing.T) {
	data := newData(t, []chart.Note{{Position: 0, Lane: 0, Length: 768}},
		[]chart.StarPower{{Position: 0, Length: 50}},
		engine.DefaultSqueezeSettings())
	c := converter(t)

	bar := data.Propagate(SpBar{Min: 0.5, Max: 0.5},
		c.PositionAt(0), c.PositionAt(4), tempo.Beat(math.Inf(-1)))
	// Max gains four beats of whammy net of drain, min only drains.
	if !near(bar.Max, 0.5+4.0/30-0.125) {
		t.Log("max", bar.Max)
		t.Fail()
	}
	if !near(bar.Min, 0.5-0.125) {
		t.Log("min", bar.Min)
		t.Fail()
	}

	// Forcing whammy up to beat 2 moves only the minimum.
	forced := data.Propagate(SpBar{Min: 0.5, Max: 0.5},
		c.PositionAt(0), c.PositionAt(4), 2)
	if !near(forced.Min, 0.5+2.0/30-0.125) {
		t.Log("forced min", forced.Min)
		t.Fail()
	}
	if !near(forced.Max, bar.Max) {
		t.Log("forced max", forced.Max)
		t.Fail()
	}
}

func TestPropagateClamp(t *testing.T) {
	data := newData(t, []chart.Note{{Position: 0, Lane: 0, Length: 38400}},
		[]chart.StarPower{{Position: 0, Length: 50}},
		engine.DefaultSqueezeSettings())
	c := converter(t)

	bar := data.Propagate(SpBar{Min: 0, Max: 0.9},
		c.PositionAt(0), c.PositionAt(190), tempo.Beat(math.Inf(1)))
	if bar.Max < 0 || bar.Max > 1 || bar.Min < 0 || bar.Min > bar.Max {
		t.Log("clamp", bar)
		t.Fail()
	}
}

func TestActivationEndPointDrainOnly(t *testing.T) {
	data := newData(t, nil, nil, engine.DefaultSqueezeSettings())
	c := converter(t)

	// Half a bar from beat 2 lasts four measures.
	end := data.ActivationEndPoint(c.PositionAt(2), 0.5, tempo.Beat(math.Inf(-1)))
	if !near(float64(end.Beat), 18) {
		t.Log("end", end)
		t.Fail()
	}

	full := data.ActivationEndPoint(c.PositionAt(0), 1, tempo.Beat(math.Inf(-1)))
	if !near(float64(full.Beat), 32) {
		t.Log("full bar end", full)
		t.Fail()
	}
}

func TestActivationEndPointWithWhammy(t *testing.T) {
	// A three beat whammy window starting at the activation.
	data := newData(t, []chart.Note{{Position: 0, Lane: 0, Length: 576}},
		[]chart.StarPower{{Position: 0, Length: 50}},
		engine.DefaultSqueezeSettings())
	c := converter(t)

	end := data.ActivationEndPoint(c.PositionAt(0), 0.5, tempo.Beat(math.Inf(1)))
	// Net rate inside the window is 1/30 - 1/32 bars per beat, so the
	// bar holds 0.50625 at beat 3 and drains dry 4.05 measures later.
	if !near(float64(end.Beat), 19.2) {
		t.Log("end with whammy", end.Beat)
		t.Fail()
	}

	// Without whammy the same bar dies at beat 16.
	dry := data.ActivationEndPoint(c.PositionAt(0), 0.5, tempo.Beat(math.Inf(-1)))
	if !near(float64(dry.Beat), 16) {
		t.Log("end without whammy", dry.Beat)
		t.Fail()
	}
}
