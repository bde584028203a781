package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"git.lost.host/meutraa/spot/internal/chart"
	"git.lost.host/meutraa/spot/internal/config"
	"git.lost.host/meutraa/spot/internal/engine"
	"git.lost.host/meutraa/spot/internal/history"
	"git.lost.host/meutraa/spot/internal/image"
	"git.lost.host/meutraa/spot/internal/midi"
	"git.lost.host/meutraa/spot/internal/optimiser"
	"git.lost.host/meutraa/spot/internal/processed"
	"git.lost.host/meutraa/spot/internal/settings"
)

var instrumentNames = map[string]chart.Instrument{
	"guitar":     chart.Guitar,
	"coop":       chart.GuitarCoop,
	"bass":       chart.Bass,
	"rhythm":     chart.Rhythm,
	"keys":       chart.Keys,
	"drums":      chart.DrumKit,
	"ghl-guitar": chart.GhlGuitar,
	"ghl-bass":   chart.GhlBass,
}

var difficultyNames = map[string]chart.Difficulty{
	"easy":   chart.Easy,
	"medium": chart.Medium,
	"hard":   chart.Hard,
	"expert": chart.Expert,
}

type Program struct {
	ChartParser chart.Parser
	MidiParser  chart.Parser
	Store       *history.Store

	chartFile string
	midiFile  string

	song     *chart.Song
	settings settings.Settings
}

func configDir() string {
	dir, err := os.UserConfigDir()
	if nil != err {
		return "."
	}
	return filepath.Join(dir, "spot")
}

func (p *Program) Init() error {
	p.ChartParser = &chart.DefaultParser{}
	p.MidiParser = &midi.DefaultParser{}
	p.Store = &history.Store{}

	if err := filepath.Walk(*config.Directory, func(file string, info os.FileInfo, err error) error {
		if nil != err {
			return err
		}
		switch path.Ext(info.Name()) {
		case ".chart":
			p.chartFile = file
		case ".mid", ".midi":
			p.midiFile = file
		}
		return nil
	}); nil != err {
		return fmt.Errorf("unable to walk song directory: %w", err)
	}

	if p.chartFile == "" && p.midiFile == "" {
		return errors.New("unable to find .chart or .mid file in given directory")
	}

	var err error
	if p.chartFile != "" {
		p.song, err = p.ChartParser.Parse(p.chartFile)
	} else {
		p.song, err = p.MidiParser.Parse(p.midiFile)
	}
	if nil != err {
		return err
	}

	p.settings = p.loadSettings()

	if err := p.Store.Init(*config.CachePath); nil != err {
		return fmt.Errorf("unable to open path cache: %w", err)
	}

	return nil
}

func (p *Program) Deinit() {
	if p.Store != nil {
		p.Store.Deinit()
	}
}

// loadSettings merges saved settings with any flags set on the command
// line, and persists the result.
func (p *Program) loadSettings() settings.Settings {
	dir := configDir()
	loaded := settings.Load(dir)
	if *config.Squeeze >= 0 {
		loaded.Squeeze = *config.Squeeze
	}
	if *config.EarlyWhammy >= 0 {
		loaded.EarlyWhammy = *config.EarlyWhammy
	}
	if *config.LazyWhammy >= 0 {
		loaded.LazyWhammy = *config.LazyWhammy
	}
	if *config.WhammyDelay >= 0 {
		loaded.WhammyDelay = *config.WhammyDelay
	}
	if *config.VideoLag >= -200 {
		loaded.VideoLag = *config.VideoLag
	}
	if *config.LeftyFlip {
		loaded.LeftyFlip = true
	}
	if err := os.MkdirAll(dir, 0o755); nil == err {
		if err := settings.Save(loaded, dir); nil != err {
			log.Println("unable to save settings:", err)
		}
	}
	return loaded
}

func (p *Program) squeezeSettings() engine.SqueezeSettings {
	return engine.SqueezeSettings{
		Squeeze:     float64(p.settings.Squeeze) / 100,
		EarlyWhammy: float64(p.settings.EarlyWhammy) / 100,
		LazyWhammy:  float64(p.settings.LazyWhammy) / 1000,
		WhammyDelay: float64(p.settings.WhammyDelay) / 1000,
		VideoLag:    float64(p.settings.VideoLag) / 1000,
	}
}

func (p *Program) drumSettings() engine.DrumSettings {
	return engine.DrumSettings{
		EnableDoubleKick: *config.EnableDoubleKick,
		DisableKick:      *config.DisableKick,
		ProDrums:         *config.ProDrums,
		EnableDynamics:   *config.EnableDynamics,
	}
}

func (p *Program) Run() error {
	instrument, ok := instrumentNames[strings.ToLower(*config.Instrument)]
	if !ok {
		return fmt.Errorf("unknown instrument %q", *config.Instrument)
	}
	difficulty, ok := difficultyNames[strings.ToLower(*config.Difficulty)]
	if !ok {
		return fmt.Errorf("unknown difficulty %q", *config.Difficulty)
	}
	track, ok := p.song.Tracks[chart.TrackKey{Instrument: instrument, Difficulty: difficulty}]
	if !ok {
		return fmt.Errorf("song has no %v %v track", *config.Difficulty, *config.Instrument)
	}

	eng, err := engine.ParseKind(*config.EngineName)
	if nil != err {
		return err
	}
	if instrument == chart.DrumKit && !eng.IsDrums() {
		eng = engine.ChDrumsEngine()
	}

	song, err := processed.NewProcessedSong(track, p.song.Sync,
		p.squeezeSettings(), p.drumSettings(), eng, p.song.OdBeats,
		p.song.UnisonPhrasePositions(), *config.Speed)
	if nil != err {
		return err
	}

	path, totalScore, cached := processed.Path{}, 0, false
	if !*config.NoCache {
		path, totalScore, cached = p.Store.Load(track, *config.EngineName,
			p.settings, *config.Speed)
	}
	if !cached {
		opt := optimiser.New(song)
		path = opt.OptimalPath()
		totalScore = opt.TotalScore(path)
		p.Store.Save(track, *config.EngineName, p.settings, *config.Speed,
			path, totalScore)
	} else {
		log.Println("using cached path")
	}

	fmt.Print(song.PathSummary(path))
	fmt.Printf("Optimal score: %d\n", totalScore)

	if *config.NoImage {
		return nil
	}
	return p.drawImage(track, song, path)
}

func (p *Program) drawImage(track chart.NoteTrack,
	song *processed.ProcessedSong, path processed.Path) error {
	builder := image.NewBuilder(p.song, track, song.Converter())
	builder.AddSpActs(path)
	builder.AddMeasureValues(song.Points(), path)
	builder.AddSpPercentValues(song.SpData(), song.Converter(), song.Points(), path)
	if p.settings.LeftyFlip && track.Type == chart.FiveFret {
		for i := range builder.Notes {
			if builder.Notes[i].Lane < 5 {
				builder.Notes[i].Lane = 4 - builder.Notes[i].Lane
			}
		}
	}
	return image.Save(builder, *config.ImagePath)
}
