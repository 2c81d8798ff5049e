package model

import "time"

// RunStatus is the state of a stage run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// StageRun records one execution of a pipeline stage.
type StageRun struct {
	ID         string     `json:"id"`
	Stage      string     `json:"stage"`
	Input      string     `json:"input"`
	Output     string     `json:"output"`
	Status     RunStatus  `json:"status"`
	Stats      RunStats   `json:"stats"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunStats counts the items a stage handled.
type RunStats struct {
	Total     int     `json:"total"`
	Succeeded int     `json:"succeeded"`
	Failed    int     `json:"failed"`
	Skipped   int     `json:"skipped"`
	CostUSD   float64 `json:"cost_usd"`
}
