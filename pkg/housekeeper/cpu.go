package housekeeper

import (
	"time"
)

// cpuSampler turns process CPU time deltas into a smoothed usage
// percentage. The first sample only primes the baseline.
type cpuSampler struct {
	lastWall time.Time
	lastCPU  time.Duration
	avg      float64
	primed   bool
}

func (s *cpuSampler) sample(wall time.Time) (float64, bool) {
	cpu, err := processCPUTime()
	if err != nil {
		return 0, false
	}
	if !s.primed {
		s.lastWall = wall
		s.lastCPU = cpu
		s.primed = true
		return 0, false
	}

	elapsed := wall.Sub(s.lastWall)
	if elapsed <= 0 {
		return 0, false
	}
	usage := 100 * float64(cpu-s.lastCPU) / float64(elapsed)
	s.lastWall = wall
	s.lastCPU = cpu

	// Moving average over roughly the last ten samples
	s.avg += (usage - s.avg) / 10
	return s.avg, true
}
