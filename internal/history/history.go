package history

import (
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"

	"git.lost.host/meutraa/spot/internal/chart"
	"git.lost.host/meutraa/spot/internal/processed"
	"git.lost.host/meutraa/spot/internal/settings"
	"git.lost.host/meutraa/spot/internal/tempo"
)

// Store caches computed paths per chart and settings so repeat runs on
// the same song come back instantly.
type Store struct {
	db *sql.DB
}

type cachedActivation struct {
	ActStart  int     `json:"act_start"`
	ActEnd    int     `json:"act_end"`
	WhammyEnd float64 `json:"whammy_end"`
	SpStart   float64 `json:"sp_start"`
	SpEnd     float64 `json:"sp_end"`
}

type cachedPath struct {
	Activations []cachedActivation `json:"activations"`
	ScoreBoost  int                `json:"score_boost"`
	TotalScore  int                `json:"total_score"`
}

func (s *Store) Init(file string) error {
	db, err := sql.Open("sqlite3", file)
	if nil != err {
		return err
	}

	initStatement := `
	create table if not exists paths
	  (
		  id integer not null primary key,
		  sum text,
		  engine text,
		  fingerprint text,
		  path bytearray
	  );
	`
	_, err = db.Exec(initStatement)
	if nil != err {
		return err
	}

	s.db = db
	return nil
}

func (s *Store) Deinit() {
	if nil != s.db {
		s.db.Close()
	}
}

func hashTrack(track chart.NoteTrack) string {
	data, err := json.Marshal(track)
	if nil != err {
		return ""
	}
	sum := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func fingerprint(cfg settings.Settings, speed int) string {
	return fmt.Sprintf("%d:%d:%d:%d:%d:%d", cfg.Squeeze, cfg.EarlyWhammy,
		cfg.LazyWhammy, cfg.WhammyDelay, cfg.VideoLag, speed)
}

// Save stores a computed path. Failures only cost the cache, so they
// are logged and swallowed.
func (s *Store) Save(track chart.NoteTrack, engineName string,
	cfg settings.Settings, speed int, path processed.Path, totalScore int) {
	cached := cachedPath{ScoreBoost: path.ScoreBoost, TotalScore: totalScore}
	for _, act := range path.Activations {
		cached.Activations = append(cached.Activations, cachedActivation{
			ActStart:  act.ActStart,
			ActEnd:    act.ActEnd,
			WhammyEnd: float64(act.WhammyEnd),
			SpStart:   float64(act.SpStart),
			SpEnd:     float64(act.SpEnd),
		})
	}
	data, err := json.Marshal(cached)
	if nil != err {
		log.Println("unable to marshal path", err)
		return
	}
	_, err = s.db.Exec(
		"insert into paths(sum, engine, fingerprint, path) values(?, ?, ?, ?)",
		hashTrack(track), engineName, fingerprint(cfg, speed), data)
	if nil != err {
		log.Println("unable to save path", err)
	}
}

// Load returns the cached path for this chart and configuration, if
// one exists.
func (s *Store) Load(track chart.NoteTrack, engineName string,
	cfg settings.Settings, speed int) (processed.Path, int, bool) {
	row := s.db.QueryRow(
		"select path from paths where sum = ? and engine = ? and fingerprint = ? order by id desc",
		hashTrack(track), engineName, fingerprint(cfg, speed))
	var data []byte
	if err := row.Scan(&data); nil != err {
		if err != sql.ErrNoRows {
			log.Println("unable to load path", err)
		}
		return processed.Path{}, 0, false
	}
	var cached cachedPath
	if err := json.Unmarshal(data, &cached); nil != err {
		log.Println("unable to unmarshal cached path", err)
		return processed.Path{}, 0, false
	}
	path := processed.Path{ScoreBoost: cached.ScoreBoost}
	for _, act := range cached.Activations {
		path.Activations = append(path.Activations, processed.Activation{
			ActStart:  act.ActStart,
			ActEnd:    act.ActEnd,
			WhammyEnd: tempo.Beat(act.WhammyEnd),
			SpStart:   tempo.Beat(act.SpStart),
			SpEnd:     tempo.Beat(act.SpEnd),
		})
	}
	return path, cached.TotalScore, true
}
