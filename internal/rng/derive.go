package rng

// seedMask keeps derived seeds non-negative 31-bit integers.
const seedMask = 0x7fffffff

// DeriveSeed hashes (exercise id, difficulty, trial index) into a stable
// seed for New. The same triple always yields the same seed, independent of
// wall-clock time, so the same trial content can be regenerated on any
// machine. Every exercise family derives its seed here; none may fall back
// to time-based seeding.
func DeriveSeed(exerciseID string, difficulty, trialIndex int) int64 {
	h := int64(17)
	for _, ch := range exerciseID {
		h = (h*31 + int64(ch)) & seedMask
	}
	h = (h*31 + int64(difficulty)*1009) & seedMask
	h = (h*31 + int64(trialIndex)*9176) & seedMask
	return h
}
