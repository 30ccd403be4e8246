package hermes

import "time"

type RunStartedEvent struct {
	RunID          string `json:"run_id"`
	CandidateCount int    `json:"candidate_count"`
}

type RunCompletedEvent struct {
	RunID          string    `json:"run_id"`
	CandidateCount int       `json:"candidate_count"`
	StableCount    int       `json:"stable_count"`
	RejectedCount  int       `json:"rejected_count"`
	FrontierSize   int       `json:"frontier_size"`
	TopFormulas    []string  `json:"top_formulas"`
	CompletedAt    time.Time `json:"completed_at"`
}

type RunFailedEvent struct {
	RunID string `json:"run_id"`
	Error string `json:"error"`
}
