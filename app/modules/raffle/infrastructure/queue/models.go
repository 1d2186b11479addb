package rafflequeue

// KeeperJob polls the upkeep predicate of one raffle and closes the round when
// it holds.
type KeeperJob struct {
	RaffleID string `json:"raffle_id"`
}

// Kind returns the job type identifier for River
func (KeeperJob) Kind() string { return "raffle_keeper" }

// Keeper run outcomes recorded in metrics.
const (
	OutcomeIdle      = "idle"
	OutcomeRequested = "requested"
	OutcomeSkipped   = "skipped"
	OutcomeError     = "error"
)
