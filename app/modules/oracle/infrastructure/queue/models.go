package oraclequeue

// FulfillRandomWordsJob fulfills one randomness request once its confirmation
// delay has passed.
type FulfillRandomWordsJob struct {
	RequestID int64 `json:"request_id"`
}

// Kind returns the job type identifier for River
func (FulfillRandomWordsJob) Kind() string { return "oracle_fulfill_random_words" }

// JobInfo represents information about a scheduled job (for debugging/monitoring)
type JobInfo struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	RequestID   int64  `json:"request_id"`
	State       string `json:"state"`
	ScheduledAt string `json:"scheduled_at"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
}
