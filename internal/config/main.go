package config

import (
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	Directory   = kingpin.Arg("directory", "Song directory").Required().ExistingDir()
	EngineName  = kingpin.Flag("engine", "Game engine (ch, gh1, rb, drums, ghl)").Default("ch").Short('e').String()
	Difficulty  = kingpin.Flag("difficulty", "Chart difficulty").Default("expert").Short('d').String()
	Instrument  = kingpin.Flag("instrument", "Instrument track").Default("guitar").Short('i').String()
	Squeeze     = kingpin.Flag("squeeze", "Timing window usage percent").Default("-1").Int()
	EarlyWhammy = kingpin.Flag("early-whammy", "Early whammy percent").Default("-1").Int()
	LazyWhammy  = kingpin.Flag("lazy-whammy", "Lost tail whammy in ms").Default("-1").Int()
	WhammyDelay = kingpin.Flag("whammy-delay", "Delayed head whammy in ms").Default("-1").Int()
	VideoLag    = kingpin.Flag("video-lag", "Video calibration in ms").Default("-201").Int()
	Speed       = kingpin.Flag("speed", "Playback speed percent").Default("100").Int()
	LeftyFlip   = kingpin.Flag("lefty-flip", "Mirror the drawn image").Bool()

	EnableDoubleKick = kingpin.Flag("enable-double-kick", "Include 2x kicks").Default("true").Bool()
	DisableKick      = kingpin.Flag("disable-kick", "Drop single kicks").Bool()
	ProDrums         = kingpin.Flag("pro-drums", "Score cymbals separately").Default("true").Bool()
	EnableDynamics   = kingpin.Flag("enable-dynamics", "Double accented and ghost notes").Bool()

	ImagePath = kingpin.Flag("image", "Output image path").Default("path.png").Short('o').String()
	NoImage   = kingpin.Flag("no-image", "Skip drawing the path image").Bool()
	NoCache   = kingpin.Flag("no-cache", "Recompute even when a cached path exists").Bool()
	CachePath = kingpin.Flag("cache", "Path cache database").Default("paths.db").String()
)

func init() {
	kingpin.Version("0.1.0")
}

// Parse must run before any flag value is read. Flags left at their
// sentinel defaults fall back to the saved settings file.
func Parse() {
	kingpin.Parse()
}
