package simulation

import (
	"time"
)

// SimulationResult captures the final state of the simulation for reporting
type SimulationResult struct {
	ScenarioName   string                 `json:"scenario_name"`
	Duration       time.Duration          `json:"duration"`
	TotalRequests  uint64                 `json:"total_requests"`
	TotalSucceeded uint64                 `json:"total_succeeded"`
	TotalRejected  uint64                 `json:"total_rejected"`
	TotalErrors    uint64                 `json:"total_errors"`
	NodesCreated   uint64                 `json:"nodes_created"`
	NodesDeleted   uint64                 `json:"nodes_deleted"`
	RelsCreated    uint64                 `json:"rels_created"`
	AgentStats     map[string]*AgentStats `json:"agent_stats"`
	Invariants     []InvariantResult      `json:"invariants"`
	Success        bool                   `json:"success"`
}

type AgentStats struct {
	Requests  uint64 `json:"requests"`
	Succeeded uint64 `json:"succeeded"`
	Rejected  uint64 `json:"rejected"` // the graph refused the write (conflict, dangling, not found)
	Errors    uint64 `json:"errors"`
}

type InvariantResult struct {
	Metric   string `json:"metric"`
	Scope    string `json:"scope"`
	Expected string `json:"expected"` // e.g. "> 0.95"
	Actual   string `json:"actual"`   // e.g. "0.98"
	Passed   bool   `json:"passed"`
}

type Scenario struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Duration    time.Duration `json:"duration"`
	Seed        int64         `json:"seed"` // Deterministic seed
	Agents      []AgentConfig `json:"agents"`
	Invariants  []Invariant   `json:"invariants,omitempty"`
}

type Invariant struct {
	Metric    string  `json:"metric"`    // "success_rate", "rejection_rate", "error_rate"
	Condition string  `json:"condition"` // ">", "<", ">=", "<=", "=="
	Value     float64 `json:"value"`
	Scope     string  `json:"scope"` // "global" or specific agent name
}

// AgentConfig describes a group of concurrent writers.
type AgentConfig struct {
	Name     string        `json:"name"`
	Count    int           `json:"count"`
	Label    string        `json:"label"` // label of created nodes (default: "Item")
	Behavior BehaviorType  `json:"behavior"`
	Rate     int           `json:"rate"` // Writes per second
	Burst    int           `json:"burst"`
	Jitter   time.Duration `json:"jitter"`
}

type BehaviorType string

const (
	BehaviorPeriodic BehaviorType = "periodic"
	BehaviorGreedy   BehaviorType = "greedy"
	BehaviorPoisson  BehaviorType = "poisson"
	BehaviorBursty   BehaviorType = "bursty"
)
