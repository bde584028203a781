package optimiser

import (
	"golang.org/x/exp/slices"

	"git.lost.host/meutraa/spot/internal/processed"
	"git.lost.host/meutraa/spot/internal/sp"
	"git.lost.host/meutraa/spot/internal/tempo"
)

// Optimiser finds the highest scoring set of non-overlapping
// activations for one processed song. It owns no shared state; one
// optimiser per song, one song per worker.
type Optimiser struct {
	song            *processed.ProcessedSong
	candidateStarts []int
	cache           map[cacheKey]cacheValue
}

// A cache key is where the search resumes: the first point SP can be
// collected from and the position the previous activation ended at.
type cacheKey struct {
	point int
	beat  float64
}

type cacheValue struct {
	acts  []processed.Activation
	score int
}

func New(song *processed.ProcessedSong) *Optimiser {
	return &Optimiser{
		song:            song,
		candidateStarts: candidateStarts(song),
		cache:           map[cacheKey]cacheValue{},
	}
}

// candidateStarts are the points worth considering as activation
// starts: activating later without new SP income only forfeits score,
// so only points directly after an SP source qualify. Drums activate
// on fills, so there the fill points are the candidates.
func candidateStarts(song *processed.ProcessedSong) []int {
	pts := song.Points()
	starts := []int{}

	if song.IsDrums() {
		for i := 0; i < pts.Len(); i++ {
			if pts.At(i).FillStart != nil {
				starts = append(starts, i)
			}
		}
		return starts
	}

	if first := pts.NextNonHoldPoint(0); first < pts.Len() {
		starts = append(starts, first)
	}
	for i := 0; i < pts.Len(); i++ {
		if pts.At(i).IsSpGrantingNote {
			if next := pts.NextNonHoldPoint(i + 1); next < pts.Len() {
				starts = append(starts, next)
			}
		}
	}
	for _, rangeStart := range song.SpData().WhammyRangeStarts() {
		i := 0
		for i < pts.Len() && pts.At(i).Position.Beat < rangeStart {
			i++
		}
		if next := pts.NextNonHoldPoint(i); next < pts.Len() {
			starts = append(starts, next)
		}
	}

	slices.Sort(starts)
	return slices.Compact(starts)
}

// OptimalPath runs the search and returns the best path found.
func (o *Optimiser) OptimalPath() processed.Path {
	value := o.partialPath(0, processed.NegInfPosition())
	return processed.Path{Activations: value.acts, ScoreBoost: value.score}
}

func (o *Optimiser) partialPath(point int, prevEnd tempo.Position) cacheValue {
	pts := o.song.Points()
	point = pts.NextNonHoldPoint(point)
	if point >= pts.Len() {
		return cacheValue{}
	}
	key := cacheKey{point, float64(prevEnd.Beat)}
	if value, ok := o.cache[key]; ok {
		return value
	}

	best := cacheValue{}
	for _, start := range o.candidateStarts {
		if start < point {
			continue
		}
		// SP only drains while active, so the pop happens no earlier
		// than the start point's own window.
		earliestPotential := o.song.AdjustedHitWindowStart(start, 1.0)
		if prevEnd.Beat > earliestPotential.Beat {
			earliestPotential = prevEnd
		}
		bar, earliest := o.song.TotalAvailableSpWithEarliestPos(
			prevEnd.Beat, point, start, earliestPotential)
		if bar.Max < 0.5 {
			continue
		}
		// Whammy needed to reach the half bar is treated as played.
		candBar := sp.SpBar{Min: bar.Max, Max: bar.Max}

		// An activation never spans an uncollected SP-granting note;
		// that phrase belongs to the next activation's budget.
		barrier := pts.NextSpGrantingNote(start + 1)

		for end := start; end < barrier; end++ {
			if pts.At(end).IsHoldPoint &&
				end+1 < pts.Len() && pts.At(end+1).IsHoldPoint {
				continue
			}
			result := o.song.IsCandidateValid(processed.ActivationCandidate{
				ActStart:                start,
				ActEnd:                  end,
				EarliestActivationPoint: earliest,
				SpBar:                   candBar,
			}, 1.0, processed.NegInfPosition())
			if result.Validity == processed.InsufficientSp {
				// A later end needs even more SP.
				break
			}
			if result.Validity == processed.SurplusSp {
				continue
			}

			gain := pts.RangeScore(start, pts.NextNonHoldPoint(end+1))
			nextPoint := pts.NextNonHoldPoint(end + 1)
			if after := pts.FirstAfterCurrentPhrase(end); after > nextPoint {
				nextPoint = after
			}
			sub := o.partialPath(nextPoint, result.EndingPosition)
			if gain+sub.score > best.score {
				act := processed.Activation{
					ActStart:  start,
					ActEnd:    end,
					WhammyEnd: result.EndingPosition.Beat,
					SpStart:   earliest.Beat,
					SpEnd:     result.EndingPosition.Beat,
				}
				best = cacheValue{
					acts:  append([]processed.Activation{act}, sub.acts...),
					score: gain + sub.score,
				}
			}
		}
	}

	o.cache[key] = best
	return best
}

// TotalScore is the final score of a path: base points, solos, the
// boost from the activations, and the big rock ending where one exists.
func (o *Optimiser) TotalScore(path processed.Path) int {
	return o.song.BaseScore() + o.song.TotalSoloBoost() +
		o.song.TotalBreBoost() + path.ScoreBoost
}
