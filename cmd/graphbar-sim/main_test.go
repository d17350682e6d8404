package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rmax-ai/graphbar/pkg/api"
	"github.com/rmax-ai/graphbar/pkg/engine"
	"github.com/rmax-ai/graphbar/pkg/graph"
	"github.com/rmax-ai/graphbar/pkg/provider"
)

type fixedStatus struct{}

func (fixedStatus) Status() engine.Status {
	return engine.Status{Text: "n: 1 - r: 0", Kind: "success", Provider: "local", Bound: true}
}
func (fixedStatus) Refresh() {}

func newDaemon(t *testing.T, token string) (*graph.Memory, string) {
	t.Helper()
	g := graph.NewMemory()
	reg := provider.NewRegistry()
	srv := api.NewServer(fixedStatus{}, reg, g, "", nil)
	srv.SetToken(token)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return g, ts.URL
}

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.json")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

const steadyScenario = `{
  "name": "steady",
  "duration": 200000000,
  "seed": 7,
  "agents": [{"name": "w", "count": 2, "label": "Doc", "behavior": "periodic", "rate": 50}],
  "invariants": [{"metric": "success_rate", "condition": "==", "value": 1, "scope": "global"}]
}`

func TestRun_JSONReport(t *testing.T) {
	g, url := newDaemon(t, "")
	path := writeScenario(t, steadyScenario)

	var out, errOut bytes.Buffer
	err := run(context.Background(), []string{"-scenario", path, "-api", url, "-json", "-settle", "10ms"}, &out, &errOut)
	if err != nil {
		t.Fatalf("run failed: %v (stderr %q)", err, errOut.String())
	}

	var report struct {
		ScenarioName  string `json:"scenario_name"`
		TotalRequests uint64 `json:"total_requests"`
		NodesCreated  uint64 `json:"nodes_created"`
		NodesDeleted  uint64 `json:"nodes_deleted"`
		Success       bool   `json:"success"`
		FinalStatus   string `json:"final_status"`
	}
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("report is not JSON: %v\n%s", err, out.String())
	}
	if report.ScenarioName != "steady" || !report.Success || report.TotalRequests == 0 {
		t.Errorf("unexpected report %+v", report)
	}
	if report.FinalStatus != "n: 1 - r: 0" {
		t.Errorf("final status = %q", report.FinalStatus)
	}
	if nodes, _ := g.Counts(); nodes == 0 || report.NodesCreated == 0 {
		t.Errorf("graph has %d nodes, report created %d", nodes, report.NodesCreated)
	}
}

func TestRun_UnauthorizedFailsInvariant(t *testing.T) {
	_, url := newDaemon(t, "secret")
	path := writeScenario(t, steadyScenario)

	var out, errOut bytes.Buffer
	err := run(context.Background(), []string{"-scenario", path, "-api", url}, &out, &errOut)
	if !errors.Is(err, errFailed) {
		t.Fatalf("expected errFailed, got %v", err)
	}
	if !strings.Contains(out.String(), "[FAIL] success_rate") {
		t.Errorf("report missing failed invariant:\n%s", out.String())
	}
}

func TestRun_ReportToFile(t *testing.T) {
	_, url := newDaemon(t, "")
	path := writeScenario(t, steadyScenario)
	reportPath := filepath.Join(t.TempDir(), "report.txt")

	var out, errOut bytes.Buffer
	if err := run(context.Background(), []string{"-scenario", path, "-api", url, "-out", reportPath}, &out, &errOut); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "Simulation Report: steady") {
		t.Errorf("unexpected report:\n%s", data)
	}
	if !strings.Contains(out.String(), "Report written to") {
		t.Errorf("unexpected stdout %q", out.String())
	}
}

func TestLoadScenario_Errors(t *testing.T) {
	var errOut bytes.Buffer
	if _, err := loadScenario(filepath.Join(t.TempDir(), "missing.json"), &errOut); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := loadScenario(writeScenario(t, "{"), &errOut); err == nil {
		t.Error("expected error for bad JSON")
	}
	if _, err := loadScenario(writeScenario(t, `{"name":"x"}`), &errOut); err == nil {
		t.Error("expected error for zero duration")
	}
	s, err := loadScenario("", &errOut)
	if err != nil || s.Name != "Default Demo" {
		t.Errorf("default scenario = %+v, %v", s, err)
	}
}
