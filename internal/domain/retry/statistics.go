package retry

// Statistics is a derived, read-only aggregate over retry histories in a
// time window.
type Statistics struct {
	Pending       int
	Retrying      int
	Successful    int
	FinallyFailed int

	AverageAttempts float64
	MaxAttempts     int

	SuccessRate float64
	FailureRate float64
}

// Compute derives statistics from the given histories. Success and failure
// rates cover terminal records only and are 0.0 when none exist.
func Compute(histories []*History) Statistics {
	var s Statistics
	var totalAttempts int

	for _, h := range histories {
		switch h.Status {
		case StatusPending:
			s.Pending++
		case StatusRetrying:
			s.Retrying++
		case StatusSuccessful:
			s.Successful++
		case StatusFinallyFailed:
			s.FinallyFailed++
		}
		totalAttempts += h.AttemptCount
		if h.AttemptCount > s.MaxAttempts {
			s.MaxAttempts = h.AttemptCount
		}
	}

	if len(histories) > 0 {
		s.AverageAttempts = float64(totalAttempts) / float64(len(histories))
	}

	completed := s.Successful + s.FinallyFailed
	if completed > 0 {
		s.SuccessRate = float64(s.Successful) / float64(completed)
		s.FailureRate = float64(s.FinallyFailed) / float64(completed)
	}
	return s
}
