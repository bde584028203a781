package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	out := Load(t.TempDir())
	if out != Defaults() {
		t.Log("out", out)
		t.Fail()
	}
}

func TestLoadMalformedFileGivesDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "settings.json"),
		[]byte("{not json"), 0o644); nil != err {
		t.Fatal(err)
	}
	if out := Load(dir); out != Defaults() {
		t.Log("out", out)
		t.Fail()
	}
}

func TestOutOfRangeValuesFallBack(t *testing.T) {
	dir := t.TempDir()
	data := `{"squeeze": 150, "early_whammy": -5, "lazy_whammy": 20,
	          "whammy_delay": -1, "video_lag": 300, "lefty_flip": true}`
	if err := os.WriteFile(filepath.Join(dir, "settings.json"),
		[]byte(data), 0o644); nil != err {
		t.Fatal(err)
	}
	out := Load(dir)
	if out.Squeeze != 100 || out.EarlyWhammy != 100 {
		t.Log("percents", out)
		t.Fail()
	}
	if out.LazyWhammy != 20 || out.WhammyDelay != 0 || out.VideoLag != 0 {
		t.Log("times", out)
		t.Fail()
	}
	if !out.LeftyFlip {
		t.Log("lefty flip lost")
		t.Fail()
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := Settings{Squeeze: 80, EarlyWhammy: 50, LazyWhammy: 100,
		WhammyDelay: 10, VideoLag: -50, LeftyFlip: true}
	if err := Save(in, dir); nil != err {
		t.Fatal("unable to save", err)
	}
	if out := Load(dir); out != in {
		t.Log("in ", in)
		t.Log("out", out)
		t.Fail()
	}
}
