package gen

import (
	"fmt"

	"attention-trainer-service/internal/domain"
)

// ValidateTrial checks family invariants at generation time, before a trial
// can ever be presented. A failure here is a generator bug; plan
// construction must abort rather than ship a partially valid plan.
func ValidateTrial(spec domain.TrialSpec) error {
	if spec.StimulusMs <= 0 || spec.ResponseWindowMs <= 0 {
		return fmt.Errorf("%w: non-positive timing budget", domain.ErrMalformedTrialSpec)
	}
	switch spec.ExerciseID {
	case domain.ExerciseCoherentMotion:
		return validateCoherentMotion(spec.CoherentMotion)
	case domain.ExerciseVisualSearch:
		return validateVisualSearch(spec.VisualSearch)
	case domain.ExerciseLineTracking:
		return validateLineTracking(spec.LineTracking)
	case domain.ExerciseMazeTracking:
		return validateMazeTracking(spec.MazeTracking)
	case domain.ExerciseFootball, domain.ExerciseTennis, domain.ExerciseTwoCircles:
		return validateOverlap(spec.Overlap, spec.StimulusMs)
	case domain.ExerciseSaccades:
		return validateSaccades(spec.Saccades)
	case domain.ExerciseMemorySequence:
		return validateMemorySequence(spec.MemorySequence)
	case domain.ExercisePairSearch:
		return validatePairSearch(spec.PairSearch)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownExercise, spec.ExerciseID)
	}
}

func validateCoherentMotion(s *domain.CoherentMotionSpec) error {
	if s == nil || len(s.Dots) == 0 {
		return fmt.Errorf("%w: empty dot field", domain.ErrMalformedTrialSpec)
	}
	if s.CoherentSide != "left" && s.CoherentSide != "right" {
		return fmt.Errorf("%w: coherent side %q", domain.ErrMalformedTrialSpec, s.CoherentSide)
	}
	if s.CoherencePercent <= 0 || s.CoherencePercent > 100 {
		return fmt.Errorf("%w: coherence %d%%", domain.ErrMalformedTrialSpec, s.CoherencePercent)
	}
	return nil
}

func validateVisualSearch(s *domain.VisualSearchSpec) error {
	if s == nil || s.Rows < 1 || s.Cols < 1 {
		return fmt.Errorf("%w: empty search grid", domain.ErrMalformedTrialSpec)
	}
	if len(s.OddCells) != s.TotalDifferent {
		return fmt.Errorf("%w: %d odd cells for totalDifferent=%d", domain.ErrMalformedTrialSpec, len(s.OddCells), s.TotalDifferent)
	}
	seen := make(map[domain.GridCell]bool, len(s.OddCells))
	for _, c := range s.OddCells {
		if c.Row < 0 || c.Row >= s.Rows || c.Col < 0 || c.Col >= s.Cols {
			return fmt.Errorf("%w: odd cell %v outside grid", domain.ErrMalformedTrialSpec, c)
		}
		if seen[c] {
			return fmt.Errorf("%w: duplicate odd cell %v", domain.ErrMalformedTrialSpec, c)
		}
		seen[c] = true
	}
	return nil
}

func validateLineTracking(s *domain.LineTrackingSpec) error {
	if s == nil || len(s.Lines) != s.ItemCount || s.ItemCount == 0 {
		return fmt.Errorf("%w: line count mismatch", domain.ErrMalformedTrialSpec)
	}
	usedRight := make(map[int]bool, s.ItemCount)
	for _, l := range s.Lines {
		if l.RightIndex < 0 || l.RightIndex >= s.ItemCount {
			return fmt.Errorf("%w: right index %d out of range", domain.ErrMalformedTrialSpec, l.RightIndex)
		}
		if usedRight[l.RightIndex] {
			return fmt.Errorf("%w: right index %d matched twice", domain.ErrMalformedTrialSpec, l.RightIndex)
		}
		usedRight[l.RightIndex] = true
	}
	return nil
}

func validateMazeTracking(s *domain.MazeTrackingSpec) error {
	if s == nil || s.GridSize < 2 || len(s.Collectibles) == 0 {
		return fmt.Errorf("%w: degenerate maze", domain.ErrMalformedTrialSpec)
	}
	for i, c := range s.Collectibles {
		if c.Order != i+1 {
			return fmt.Errorf("%w: collectible order gap at %d", domain.ErrMalformedTrialSpec, i)
		}
		if c.Cell.Row < 0 || c.Cell.Row >= s.GridSize || c.Cell.Col < 0 || c.Cell.Col >= s.GridSize {
			return fmt.Errorf("%w: collectible outside maze", domain.ErrMalformedTrialSpec)
		}
	}
	return nil
}

func validateOverlap(s *domain.OverlapSpec, stimulusMs int) error {
	if s == nil || len(s.Paths) == 0 {
		return fmt.Errorf("%w: no motion paths", domain.ErrMalformedTrialSpec)
	}
	for i, path := range s.Paths {
		if len(path) == 0 {
			return fmt.Errorf("%w: empty motion path %d", domain.ErrMalformedTrialSpec, i)
		}
		last := -1
		for _, sample := range path {
			if sample.TimeMs <= last {
				return fmt.Errorf("%w: non-monotonic motion path %d", domain.ErrMalformedTrialSpec, i)
			}
			last = sample.TimeMs
		}
		if last < stimulusMs {
			return fmt.Errorf("%w: motion path %d covers %dms of %dms", domain.ErrMalformedTrialSpec, i, last, stimulusMs)
		}
	}
	if len(s.OverlapTimesMs) == 0 {
		return fmt.Errorf("%w: no scorable overlap events", domain.ErrMalformedTrialSpec)
	}
	for i := 1; i < len(s.OverlapTimesMs); i++ {
		if s.OverlapTimesMs[i]-s.OverlapTimesMs[i-1] < minEventSpacingMs {
			return fmt.Errorf("%w: overlap events closer than %dms", domain.ErrMalformedTrialSpec, minEventSpacingMs)
		}
	}
	if s.RequiredFraction <= 0 || s.RequiredFraction > 1 || s.ToleranceMs <= 0 {
		return fmt.Errorf("%w: bad scoring parameters", domain.ErrMalformedTrialSpec)
	}
	return nil
}

func validateSaccades(s *domain.SaccadesSpec) error {
	if s == nil || len(s.Targets) == 0 {
		return fmt.Errorf("%w: empty scan pattern", domain.ErrMalformedTrialSpec)
	}
	prev := -1
	for _, target := range s.Targets {
		if target.OnsetMs <= prev {
			return fmt.Errorf("%w: non-monotonic target onsets", domain.ErrMalformedTrialSpec)
		}
		if target.DurationMs <= 0 {
			return fmt.Errorf("%w: non-positive target duration", domain.ErrMalformedTrialSpec)
		}
		prev = target.OnsetMs
	}
	return nil
}

func validateMemorySequence(s *domain.MemorySequenceSpec) error {
	if s == nil || len(s.Sequence) == 0 {
		return fmt.Errorf("%w: empty sequence", domain.ErrMalformedTrialSpec)
	}
	if len(s.Grid) != len(s.Sequence)+len(s.Distractors) {
		return fmt.Errorf("%w: grid does not cover sequence plus distractors", domain.ErrMalformedTrialSpec)
	}
	inGrid := make(map[string]bool, len(s.Grid))
	for _, item := range s.Grid {
		inGrid[item] = true
	}
	for _, item := range s.Sequence {
		if !inGrid[item] {
			return fmt.Errorf("%w: sequence item %q missing from grid", domain.ErrMalformedTrialSpec, item)
		}
	}
	return nil
}

func validatePairSearch(s *domain.PairSearchSpec) error {
	if s == nil || s.GridSize < 2 || s.GridSize%2 != 0 {
		return fmt.Errorf("%w: grid size must be even and >= 2", domain.ErrMalformedTrialSpec)
	}
	cellCount := s.GridSize * s.GridSize
	if len(s.Pairs)*2 != cellCount {
		return fmt.Errorf("%w: %d pairs cannot fill %d cells", domain.ErrMalformedTrialSpec, len(s.Pairs), cellCount)
	}
	usedPos := make(map[int]bool, cellCount)
	usedItem := make(map[string]bool, len(s.Pairs))
	for _, p := range s.Pairs {
		if usedItem[p.ItemID] {
			return fmt.Errorf("%w: item %q used by two pairs", domain.ErrMalformedTrialSpec, p.ItemID)
		}
		usedItem[p.ItemID] = true
		for _, pos := range p.Positions {
			if pos < 0 || pos >= cellCount {
				return fmt.Errorf("%w: position %d outside grid", domain.ErrMalformedTrialSpec, pos)
			}
			if usedPos[pos] {
				return fmt.Errorf("%w: position %d used twice", domain.ErrMalformedTrialSpec, pos)
			}
			usedPos[pos] = true
		}
	}
	return nil
}
