package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const (
	maxPercent  = 100
	maxVideoLag = 200
	minVideoLag = -200
	maxWhammyMs = 999999999
)

// Settings is the persisted player configuration. All values are as
// the user entered them: percents, milliseconds.
type Settings struct {
	Squeeze     int  `json:"squeeze"`
	EarlyWhammy int  `json:"early_whammy"`
	LazyWhammy  int  `json:"lazy_whammy"`
	WhammyDelay int  `json:"whammy_delay"`
	VideoLag    int  `json:"video_lag"`
	LeftyFlip   bool `json:"lefty_flip"`
}

func Defaults() Settings {
	return Settings{Squeeze: maxPercent, EarlyWhammy: maxPercent}
}

func Path(applicationDir string) string {
	return filepath.Join(applicationDir, "settings.json")
}

// Load reads saved settings, substituting the default for any value
// outside its permitted window. A missing or malformed file just
// yields the defaults.
func Load(applicationDir string) Settings {
	defaults := Defaults()

	data, err := os.ReadFile(Path(applicationDir))
	if nil != err {
		return defaults
	}
	loaded := defaults
	if err := json.Unmarshal(data, &loaded); nil != err {
		return defaults
	}

	loaded.Squeeze = inRange(loaded.Squeeze, 0, maxPercent, defaults.Squeeze)
	loaded.EarlyWhammy = inRange(loaded.EarlyWhammy, 0, maxPercent, defaults.EarlyWhammy)
	loaded.LazyWhammy = inRange(loaded.LazyWhammy, 0, maxWhammyMs, defaults.LazyWhammy)
	loaded.WhammyDelay = inRange(loaded.WhammyDelay, 0, maxWhammyMs, defaults.WhammyDelay)
	loaded.VideoLag = inRange(loaded.VideoLag, minVideoLag, maxVideoLag, defaults.VideoLag)

	return loaded
}

func Save(s Settings, applicationDir string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if nil != err {
		return err
	}
	return os.WriteFile(Path(applicationDir), data, 0o644)
}

func inRange(value, min, max, fallback int) int {
	if value < min || value > max {
		return fallback
	}
	return value
}
