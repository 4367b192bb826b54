package storage

import (
	"encoding/json"
	"time"
)

// RunStatus represents the outcome of a clustering run.
type RunStatus string

const (
	RunCompleted   RunStatus = "completed"
	RunUnconverged RunStatus = "unconverged"
	RunFailed      RunStatus = "failed"
)

// Fixed-width so timestamps sort lexically.
const isoLayout = "2006-01-02T15:04:05.000000Z07:00"

func nowISO() string {
	return time.Now().UTC().Format(isoLayout)
}

// NowISO is the exported version of nowISO for use by other packages.
func NowISO() string {
	return nowISO()
}

// Run is a persisted clustering run.
type Run struct {
	ID           string    `json:"id"`
	K            int       `json:"k"`
	EntityCount  int       `json:"entity_count"`
	Policy       string    `json:"policy"`
	TotalCost    float64   `json:"total_cost"`
	Sweeps       int       `json:"sweeps"`
	Swaps        int       `json:"swaps"`
	Evaluations  int       `json:"evaluations"`
	Restarts     int       `json:"restarts"`
	Seed         int64     `json:"seed"`
	Medoids      []string  `json:"medoids"`
	Status       RunStatus `json:"status"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	CreatedAt    string    `json:"created_at"`
}

func (r Run) medoidsJSON() string {
	if r.Medoids == nil {
		return "[]"
	}
	b, _ := json.Marshal(r.Medoids)
	return string(b)
}

func NewRun(id string, k, entityCount int, policy string) Run {
	return Run{
		ID:          id,
		K:           k,
		EntityCount: entityCount,
		Policy:      policy,
		Status:      RunCompleted,
		CreatedAt:   nowISO(),
	}
}

// Membership records the cluster label of one entity in a run.
type Membership struct {
	Entity   string `json:"entity"`
	Label    int    `json:"label"`
	IsMedoid bool   `json:"is_medoid"`
}
