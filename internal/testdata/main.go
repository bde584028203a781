package testdata

import (
	"git.lost.host/meutraa/spot/internal/chart"
)

// GetSong parses the embedded fixture chart.
func GetSong() (*chart.Song, error) {
	return chart.ParseChart(data)
}

var data = `[Song]
{
  Resolution = 192
  Name = "Fixture"
  Artist = "Nobody"
  Charter = "tester"
}
[SyncTrack]
{
  0 = TS 4
  0 = B 120000
  768 = B 240000
}
[Events]
{
  0 = E "section intro"
}
[ExpertSingle]
{
  0 = N 0 0
  0 = S 2 50
  192 = N 0 0
  192 = N 1 0
  384 = N 2 96
  384 = S 2 50
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
  384 = N 4 0
  384 = N 32 0
  192 = S 64 192
}
`
