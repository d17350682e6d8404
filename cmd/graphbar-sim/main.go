package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rmax-ai/graphbar/pkg/client"
	"github.com/rmax-ai/graphbar/pkg/simulation"
)

var errFailed = errors.New("simulation invariants failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errFailed) {
			log.Printf("graphbar-sim: %v", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		scenarioFile string
		apiURL       string
		token        string
		jsonOutput   bool
		outputFile   string
		settle       time.Duration
	)

	fs := flag.NewFlagSet("graphbar-sim", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&scenarioFile, "scenario", "", "Path to scenario JSON file")
	fs.StringVar(&apiURL, "api", "http://127.0.0.1:8090", "Base URL of graphbar-d API")
	fs.StringVar(&token, "token", os.Getenv("GRAPHBAR_TOKEN"), "Bearer token for writes")
	fs.BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	fs.StringVar(&outputFile, "out", "", "Write output to file instead of stdout")
	fs.DurationVar(&settle, "settle", 0, "Wait this long after the run and report the daemon's status line")
	if err := fs.Parse(args); err != nil {
		return err
	}

	scenario, err := loadScenario(scenarioFile, stderr)
	if err != nil {
		return err
	}

	var opts []client.Option
	if token != "" {
		opts = append(opts, client.WithToken(token))
	}
	c := client.NewClient(apiURL, opts...)

	result := simulation.RunScenario(ctx, scenario, c)

	var final string
	if settle > 0 {
		select {
		case <-time.After(settle):
		case <-ctx.Done():
		}
		st, err := c.Status(context.Background())
		if err != nil {
			return fmt.Errorf("fetch final status: %w", err)
		}
		final = st.Text
	}

	if err := writeReport(result, final, jsonOutput, outputFile, stdout); err != nil {
		return err
	}
	if !result.Success {
		return errFailed
	}
	return nil
}

func loadScenario(path string, stderr io.Writer) (simulation.Scenario, error) {
	var scenario simulation.Scenario
	if path == "" {
		fmt.Fprintln(stderr, "No scenario file provided, running default demo scenario...")
		return simulation.Scenario{
			Name:        "Default Demo",
			Duration:    10 * time.Second,
			Description: "Simple periodic writes",
			Agents: []simulation.AgentConfig{
				{
					Name:     "writer-default",
					Count:    5,
					Label:    "Item",
					Behavior: simulation.BehaviorPeriodic,
					Rate:     2,
				},
			},
			Invariants: []simulation.Invariant{
				{Metric: "error_rate", Condition: "==", Value: 0, Scope: "global"},
			},
		}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return scenario, fmt.Errorf("failed to read scenario file: %w", err)
	}
	if err := json.Unmarshal(data, &scenario); err != nil {
		return scenario, fmt.Errorf("failed to parse scenario file: %w", err)
	}
	if scenario.Duration <= 0 {
		return scenario, fmt.Errorf("scenario %q: duration must be positive", scenario.Name)
	}
	return scenario, nil
}

func writeReport(res simulation.SimulationResult, final string, jsonFmt bool, filePath string, stdout io.Writer) error {
	var output []byte

	if jsonFmt {
		report := struct {
			simulation.SimulationResult
			FinalStatus string `json:"final_status,omitempty"`
		}{res, final}
		var err error
		output, err = json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
	} else {
		var buf bytes.Buffer
		fmt.Fprintf(&buf, "\n--- Simulation Report: %s ---\n", res.ScenarioName)
		fmt.Fprintf(&buf, "Duration: %s\n", res.Duration)
		fmt.Fprintf(&buf, "Requests: %d | Succeeded: %d | Rejected: %d | Errors: %d\n",
			res.TotalRequests, res.TotalSucceeded, res.TotalRejected, res.TotalErrors)
		fmt.Fprintf(&buf, "Nodes: +%d -%d | Rels: +%d\n", res.NodesCreated, res.NodesDeleted, res.RelsCreated)
		if final != "" {
			fmt.Fprintf(&buf, "Final status: %s\n", final)
		}

		if len(res.Invariants) > 0 {
			buf.WriteString("\nInvariants:\n")
			for _, inv := range res.Invariants {
				status := "FAIL"
				if inv.Passed {
					status = "PASS"
				}
				fmt.Fprintf(&buf, "[%s] %s (%s): Expected %s, Got %s\n", status, inv.Metric, inv.Scope, inv.Expected, inv.Actual)
			}
		}
		output = buf.Bytes()
	}

	if filePath != "" {
		if err := os.WriteFile(filePath, output, 0644); err != nil {
			return fmt.Errorf("failed to write report to %s: %w", filePath, err)
		}
		fmt.Fprintf(stdout, "Report written to %s\n", filePath)
		return nil
	}
	fmt.Fprintln(stdout, string(output))
	return nil
}
