package schedule

import "time"

// JobInfo is a read-only view of one registration.
type JobInfo struct {
	Name    string
	Cadence string
	NextRun time.Time
}

// Snapshot lists registered jobs in registration order.
func (s *Scheduler) Snapshot() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, JobInfo{
			Name:    j.displayName(),
			Cadence: j.cadence.String(),
			NextRun: j.nextRunAt,
		})
	}
	return out
}
