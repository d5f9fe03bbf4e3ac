// Package runtime drives one trial's presentation clock, accepts timed user
// input, and classifies the outcome. It is purely logical: all timing comes
// in as millisecond offsets or an injected clock, so hit-testing is
// testable without a display.
package runtime

import "attention-trainer-service/internal/domain"

// PositionAt returns the interpolated position of a moving target at tMs.
// Before the first sample it clamps to the start, after the last to the
// end, so playback never extrapolates.
func PositionAt(path domain.MotionPath, tMs int) domain.Point {
	if len(path) == 0 {
		return domain.Point{}
	}
	if tMs <= path[0].TimeMs {
		return domain.Point{X: path[0].X, Y: path[0].Y}
	}
	last := path[len(path)-1]
	if tMs >= last.TimeMs {
		return domain.Point{X: last.X, Y: last.Y}
	}
	for i := 1; i < len(path); i++ {
		if path[i].TimeMs >= tMs {
			a, b := path[i-1], path[i]
			span := float64(b.TimeMs - a.TimeMs)
			frac := float64(tMs-a.TimeMs) / span
			return domain.Point{
				X: a.X + (b.X-a.X)*frac,
				Y: a.Y + (b.Y-a.Y)*frac,
			}
		}
	}
	return domain.Point{X: last.X, Y: last.Y}
}

// Ticker walks a fixed-step simulation clock over a stimulus duration,
// decoupled from any rendering cadence.
type Ticker struct {
	StepMs     int
	DurationMs int
	current    int
}

// Next advances one step and reports whether the clock is still within the
// stimulus duration.
func (t *Ticker) Next() (int, bool) {
	if t.current > t.DurationMs {
		return t.current, false
	}
	now := t.current
	t.current += t.StepMs
	return now, true
}
