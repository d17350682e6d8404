package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rmax-ai/graphbar/pkg/graph"
)

// RunScenario drives w from every configured agent until the scenario
// duration elapses or ctx is canceled.
func RunScenario(ctx context.Context, s Scenario, w graph.Writer) SimulationResult {
	if s.Seed == 0 {
		s.Seed = time.Now().UnixNano()
	}

	slog.Info("Running scenario", "name", s.Name, "seed", s.Seed, "duration", s.Duration)

	ctx, cancel := context.WithTimeout(ctx, s.Duration)
	defer cancel()

	res := SimulationResult{
		ScenarioName: s.Name,
		Duration:     s.Duration,
		AgentStats:   make(map[string]*AgentStats),
	}

	var statsMutex sync.Mutex
	getAgentStats := func(name string) *AgentStats {
		statsMutex.Lock()
		defer statsMutex.Unlock()
		if _, ok := res.AgentStats[name]; !ok {
			res.AgentStats[name] = &AgentStats{}
		}
		return res.AgentStats[name]
	}

	var wg sync.WaitGroup

	for agentIdx, agentCfg := range s.Agents {
		for i := 0; i < agentCfg.Count; i++ {
			wg.Add(1)
			agentID := fmt.Sprintf("%s-%d", agentCfg.Name, i)
			agentSeed := s.Seed + int64(agentIdx*1000) + int64(i)
			stats := getAgentStats(agentCfg.Name) // grouped by config name

			go func(cfg AgentConfig, aID string, seed int64, st *AgentStats) {
				defer wg.Done()
				a := &agent{id: aID, cfg: cfg, w: w, rng: rand.New(rand.NewSource(seed)), global: &res, stats: st}
				a.run(ctx)
			}(agentCfg, agentID, agentSeed, stats)
		}
	}

	wg.Wait()

	evaluateInvariants(&res, s.Invariants)

	res.Success = true
	for _, inv := range res.Invariants {
		if !inv.Passed {
			res.Success = false
			break
		}
	}

	return res
}

// agent is one simulated writer. It only touches nodes it created itself.
type agent struct {
	id     string
	cfg    AgentConfig
	w      graph.Writer
	rng    *rand.Rand
	global *SimulationResult
	stats  *AgentStats

	nodes []string
	seq   int
}

func (a *agent) run(ctx context.Context) {
	switch a.cfg.Behavior {
	case BehaviorGreedy:
		for ctx.Err() == nil {
			a.action(ctx)
		}
	case BehaviorPoisson:
		lambda := float64(a.cfg.Rate)
		if lambda <= 0 {
			lambda = 1
		}
		for {
			interval := time.Duration(-math.Log(1-a.rng.Float64()) / lambda * float64(time.Second))
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
				a.action(ctx)
			}
		}
	case BehaviorBursty:
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for k := 0; k < a.cfg.Burst && ctx.Err() == nil; k++ {
					a.action(ctx)
				}
			}
		}
	case BehaviorPeriodic:
		fallthrough
	default:
		interval := 10 * time.Millisecond
		if a.cfg.Rate > 0 {
			interval = time.Second / time.Duration(a.cfg.Rate)
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if a.cfg.Jitter > 0 {
					time.Sleep(time.Duration(a.rng.Int63n(int64(a.cfg.Jitter))))
				}
				a.action(ctx)
			}
		}
	}
}

// action performs one randomly chosen write: mostly creates, some updates
// and deletes so the counts move both ways.
func (a *agent) action(ctx context.Context) {
	roll := a.rng.Intn(100)
	switch {
	case len(a.nodes) < 2 || roll < 50:
		a.seq++
		id := fmt.Sprintf("%s-n%d", a.id, a.seq)
		err := a.w.CreateNode(ctx, graph.Node{ID: id, Label: a.label()})
		if a.track(ctx, err) {
			a.nodes = append(a.nodes, id)
			atomic.AddUint64(&a.global.NodesCreated, 1)
		}

	case roll < 80:
		a.seq++
		from := a.nodes[a.rng.Intn(len(a.nodes))]
		to := a.nodes[a.rng.Intn(len(a.nodes))]
		err := a.w.CreateRel(ctx, graph.Rel{ID: fmt.Sprintf("%s-r%d", a.id, a.seq), FromID: from, ToID: to, Type: "LINKS"})
		if a.track(ctx, err) {
			atomic.AddUint64(&a.global.RelsCreated, 1)
		}

	case roll < 90:
		id := a.nodes[a.rng.Intn(len(a.nodes))]
		err := a.w.UpdateNode(ctx, graph.Node{ID: id, Label: a.label(), Properties: map[string]string{"touched_by": a.id}})
		a.track(ctx, err)

	default:
		idx := a.rng.Intn(len(a.nodes))
		err := a.w.DeleteNode(ctx, a.nodes[idx])
		if a.track(ctx, err) {
			a.nodes = append(a.nodes[:idx], a.nodes[idx+1:]...)
			atomic.AddUint64(&a.global.NodesDeleted, 1)
		}
	}
}

func (a *agent) label() string {
	if a.cfg.Label == "" {
		return "Item"
	}
	return a.cfg.Label
}

// track records the outcome of a write and reports whether it succeeded.
// Writes cut short by the end of the scenario are not counted.
func (a *agent) track(ctx context.Context, err error) bool {
	if err != nil && ctx.Err() != nil {
		return false
	}
	atomic.AddUint64(&a.global.TotalRequests, 1)
	atomic.AddUint64(&a.stats.Requests, 1)
	switch {
	case err == nil:
		atomic.AddUint64(&a.global.TotalSucceeded, 1)
		atomic.AddUint64(&a.stats.Succeeded, 1)
		return true
	case errors.Is(err, graph.ErrExists), errors.Is(err, graph.ErrNotFound),
		errors.Is(err, graph.ErrDangling), errors.Is(err, graph.ErrInvalid):
		atomic.AddUint64(&a.global.TotalRejected, 1)
		atomic.AddUint64(&a.stats.Rejected, 1)
	default:
		atomic.AddUint64(&a.global.TotalErrors, 1)
		atomic.AddUint64(&a.stats.Errors, 1)
		slog.Debug("Simulated write failed", "agent", a.id, "error", err)
	}
	return false
}

func evaluateInvariants(res *SimulationResult, invariants []Invariant) {
	for _, inv := range invariants {
		var actual float64
		var passed bool

		var stats *AgentStats
		if inv.Scope == "global" || inv.Scope == "" {
			stats = &AgentStats{
				Requests:  atomic.LoadUint64(&res.TotalRequests),
				Succeeded: atomic.LoadUint64(&res.TotalSucceeded),
				Rejected:  atomic.LoadUint64(&res.TotalRejected),
				Errors:    atomic.LoadUint64(&res.TotalErrors),
			}
		} else {
			s, ok := res.AgentStats[inv.Scope]
			if !ok {
				res.Invariants = append(res.Invariants, InvariantResult{
					Metric: inv.Metric, Scope: inv.Scope, Expected: fmt.Sprintf("%s %.2f", inv.Condition, inv.Value), Actual: "N/A", Passed: false,
				})
				continue
			}
			stats = &AgentStats{
				Requests:  atomic.LoadUint64(&s.Requests),
				Succeeded: atomic.LoadUint64(&s.Succeeded),
				Rejected:  atomic.LoadUint64(&s.Rejected),
				Errors:    atomic.LoadUint64(&s.Errors),
			}
		}

		if stats.Requests > 0 {
			switch inv.Metric {
			case "success_rate":
				actual = float64(stats.Succeeded) / float64(stats.Requests)
			case "rejection_rate":
				actual = float64(stats.Rejected) / float64(stats.Requests)
			case "error_rate":
				actual = float64(stats.Errors) / float64(stats.Requests)
			}
		}

		switch inv.Condition {
		case ">":
			passed = actual > inv.Value
		case ">=":
			passed = actual >= inv.Value
		case "<":
			passed = actual < inv.Value
		case "<=":
			passed = actual <= inv.Value
		case "==":
			passed = math.Abs(actual-inv.Value) < 0.0001
		}

		res.Invariants = append(res.Invariants, InvariantResult{
			Metric:   inv.Metric,
			Scope:    inv.Scope,
			Expected: fmt.Sprintf("%s %.2f", inv.Condition, inv.Value),
			Actual:   fmt.Sprintf("%.4f", actual),
			Passed:   passed,
		})
	}
}
