package gen

import (
	"math"

	"attention-trainer-service/internal/domain"
	"attention-trainer-service/internal/rng"
)

// Continuous-motion families share one simulation: points move under
// reflected-velocity kinematics at a fixed sampling step, and scorable
// events are detected by proximity during generation.
const (
	simStepMs = 40
	// Near-simultaneous detections within this spacing collapse into one
	// scorable event.
	minEventSpacingMs = 1000
)

var overlapSpeedByLevel = []float64{0.12, 0.16, 0.20, 0.25, 0.30}

type mover struct {
	pos domain.Point
	vel domain.Point
}

func newMover(r *rng.Rand, speed float64) *mover {
	angle := r.Next() * 2 * math.Pi
	return &mover{
		pos: domain.Point{X: 0.2 + r.Next()*0.6, Y: 0.2 + r.Next()*0.6},
		vel: domain.Point{X: math.Cos(angle) * speed, Y: math.Sin(angle) * speed},
	}
}

// step advances one fixed step, reflecting off the unit-square walls.
func (m *mover) step() {
	dt := float64(simStepMs) / 1000
	m.pos.X += m.vel.X * dt
	m.pos.Y += m.vel.Y * dt
	if m.pos.X < 0 {
		m.pos.X, m.vel.X = -m.pos.X, -m.vel.X
	}
	if m.pos.X > 1 {
		m.pos.X, m.vel.X = 2-m.pos.X, -m.vel.X
	}
	if m.pos.Y < 0 {
		m.pos.Y, m.vel.Y = -m.pos.Y, -m.vel.Y
	}
	if m.pos.Y > 1 {
		m.pos.Y, m.vel.Y = 2-m.pos.Y, -m.vel.Y
	}
}

// simulate runs movers for the whole stimulus duration and records event
// timestamps where the predicate holds, deduplicated at minEventSpacingMs.
func simulate(movers []*mover, durationMs int, hit func(positions []domain.Point) bool) ([]domain.MotionPath, []int) {
	paths := make([]domain.MotionPath, len(movers))
	var events []int
	positions := make([]domain.Point, len(movers))
	for t := 0; t <= durationMs; t += simStepMs {
		for i, m := range movers {
			paths[i] = append(paths[i], domain.PathSample{X: m.pos.X, Y: m.pos.Y, TimeMs: t})
			positions[i] = m.pos
		}
		if hit(positions) {
			if len(events) == 0 || t-events[len(events)-1] >= minEventSpacingMs {
				events = append(events, t)
			}
		}
		for _, m := range movers {
			m.step()
		}
	}
	return paths, events
}

func dist(a, b domain.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// FootballGenerator simulates a bouncing ball that must be "shot" the
// moment it crosses the goal zone. Each entry into the zone is one scorable
// goal window.
type FootballGenerator struct{}

func (g *FootballGenerator) ExerciseID() string { return domain.ExerciseFootball }
func (g *FootballGenerator) Name() string       { return "Goal Time" }
func (g *FootballGenerator) Description() string {
	return "Tap exactly when the ball is in the goal."
}

func (g *FootballGenerator) Generate(seed int64, difficulty, _ int) (domain.TrialSpec, error) {
	difficulty = clampDifficulty(difficulty, 1, len(overlapSpeedByLevel))
	r := rng.New(seed)
	speed := overlapSpeedByLevel[difficulty-1]
	zone := domain.Point{X: 0.88, Y: 0.5}
	const zoneRadius = 0.12
	const stimulusMs = 15000

	// Deterministic retry: redraw the launch from the same rng stream
	// until the trajectory produces at least one goal window.
	var paths []domain.MotionPath
	var events []int
	for attempt := 0; attempt < 20; attempt++ {
		ball := newMover(r, speed)
		paths, events = simulate([]*mover{ball}, stimulusMs, func(p []domain.Point) bool {
			return dist(p[0], zone) < zoneRadius
		})
		if len(events) > 0 {
			break
		}
	}

	return domain.TrialSpec{
		StimulusMs:       stimulusMs,
		ResponseWindowMs: stimulusMs,
		InterTrialMs:     1000,
		Overlap: &domain.OverlapSpec{
			Paths:            paths,
			Radius:           0.04,
			TargetZone:       &zone,
			TargetRadius:     zoneRadius,
			OverlapTimesMs:   events,
			ToleranceMs:      500,
			RequiredFraction: 0.6,
		},
	}, nil
}

// TennisGenerator simulates a ball and a patrolling racket; the scorable
// moments are when the ball reaches the racket.
type TennisGenerator struct{}

func (g *TennisGenerator) ExerciseID() string { return domain.ExerciseTennis }
func (g *TennisGenerator) Name() string       { return "Racket Rally" }
func (g *TennisGenerator) Description() string {
	return "Tap exactly when the ball meets the racket."
}

func (g *TennisGenerator) Generate(seed int64, difficulty, _ int) (domain.TrialSpec, error) {
	difficulty = clampDifficulty(difficulty, 1, len(overlapSpeedByLevel))
	r := rng.New(seed)
	speed := overlapSpeedByLevel[difficulty-1]
	const stimulusMs = 15000
	const hitRadius = 0.09

	var paths []domain.MotionPath
	var events []int
	for attempt := 0; attempt < 20; attempt++ {
		ball := newMover(r, speed)
		racket := newMover(r, speed*0.6)
		paths, events = simulate([]*mover{ball, racket}, stimulusMs, func(p []domain.Point) bool {
			return dist(p[0], p[1]) < hitRadius
		})
		if len(events) > 0 {
			break
		}
	}

	return domain.TrialSpec{
		StimulusMs:       stimulusMs,
		ResponseWindowMs: stimulusMs,
		InterTrialMs:     1000,
		Overlap: &domain.OverlapSpec{
			Paths:            paths,
			Radius:           0.035,
			OverlapTimesMs:   events,
			ToleranceMs:      450,
			RequiredFraction: 0.6,
		},
	}, nil
}

// TwoCirclesGenerator simulates two drifting circles; the scorable moments
// are their overlaps.
type TwoCirclesGenerator struct{}

func (g *TwoCirclesGenerator) ExerciseID() string { return domain.ExerciseTwoCircles }
func (g *TwoCirclesGenerator) Name() string       { return "Meeting Circles" }
func (g *TwoCirclesGenerator) Description() string {
	return "Tap exactly when the two circles touch."
}

func (g *TwoCirclesGenerator) Generate(seed int64, difficulty, _ int) (domain.TrialSpec, error) {
	difficulty = clampDifficulty(difficulty, 1, len(overlapSpeedByLevel))
	r := rng.New(seed)
	speed := overlapSpeedByLevel[difficulty-1]
	const stimulusMs = 15000
	const circleRadius = 0.06

	var paths []domain.MotionPath
	var events []int
	for attempt := 0; attempt < 20; attempt++ {
		a := newMover(r, speed)
		b := newMover(r, speed*0.8)
		paths, events = simulate([]*mover{a, b}, stimulusMs, func(p []domain.Point) bool {
			return dist(p[0], p[1]) < 2*circleRadius
		})
		if len(events) > 0 {
			break
		}
	}

	return domain.TrialSpec{
		StimulusMs:       stimulusMs,
		ResponseWindowMs: stimulusMs,
		InterTrialMs:     1000,
		Overlap: &domain.OverlapSpec{
			Paths:            paths,
			Radius:           circleRadius,
			OverlapTimesMs:   events,
			ToleranceMs:      400,
			RequiredFraction: 0.5,
		},
	}, nil
}
