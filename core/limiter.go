package core

// IterationLimiter enforces a maximum number of model round-trips per run.
// It is owned by a single run and therefore not synchronized.
type IterationLimiter struct {
	max   int
	count int
}

// NewIterationLimiter creates a limiter allowing max iterations. A negative
// max is treated as zero, so no iteration is ever allowed.
func NewIterationLimiter(max int) *IterationLimiter {
	if max < 0 {
		max = 0
	}
	return &IterationLimiter{max: max}
}

// Next starts a new iteration and reports whether it is within the limit.
// Once it returned false it keeps returning false.
func (l *IterationLimiter) Next() bool {
	if l.count > l.max {
		return false
	}
	l.count++
	return l.count <= l.max
}

// Used returns the number of iterations started within the limit.
func (l *IterationLimiter) Used() int {
	return min(l.count, l.max)
}

// Remaining returns how many iterations are left before hitting the limit.
func (l *IterationLimiter) Remaining() int {
	return l.max - l.Used()
}

// Max returns the configured limit.
func (l *IterationLimiter) Max() int { return l.max }
