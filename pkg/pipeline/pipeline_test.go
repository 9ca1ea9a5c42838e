package pipeline

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/ruslano69/match-normalizer/pkg/etl"
	"github.com/ruslano69/match-normalizer/pkg/events"
	"github.com/ruslano69/match-normalizer/pkg/resultlog"
	"github.com/ruslano69/match-normalizer/pkg/storage"
)

const wwcConfigYAML = `
division: wwc
relevant_columns:
  date: date
  home_team: home_team
  away_team: away_team
  winner: winner
  home_score: home_score
  away_score: away_score
integer_columns: [home_score, away_score]
final_schema: [date, home_team, away_team, winner, home_score, away_score]
winner_policy: draw_only
`

const wwcMatches = `[
  {"date": "2023-07-20", "home_team": "New Zealand", "away_team": "Norway", "winner": "H", "home_score": 1, "away_score": 0},
  {"date": "2023-07-21", "home_team": "Nigeria", "away_team": "Canada", "winner": "D", "home_score": 0, "away_score": 0}
]`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testSettings(t *testing.T) *etl.Settings {
	t.Helper()
	dir := t.TempDir()
	configPath := filepath.Join(dir, "wwc.yaml")
	writeFile(t, configPath, wwcConfigYAML)

	s := &etl.Settings{
		ConfigPath: configPath,
		Containers: etl.ContainerConfig{Raw: "raw", Normalized: "normalized"},
		Storage:    etl.StorageConfig{Type: "local", Root: filepath.Join(dir, "store")},
	}
	s.SetDefaults()
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return s
}

func TestBuild_RunWithAllObservers(t *testing.T) {
	mr := miniredis.RunT(t)

	settings := testSettings(t)
	settings.ResultLog = etl.ResultLogConfig{Type: "redis", Address: mr.Addr(), Name: "wwc", TTL: 60}
	auditPath := filepath.Join(t.TempDir(), "audit.jsonl")
	settings.Audit = etl.AuditConfig{Enabled: true, Output: auditPath}

	writeFile(t, filepath.Join(settings.Storage.Root, "transient", "wwc", "matches.json"), wwcMatches)

	reg := prometheus.NewRegistry()
	p, err := Build(context.Background(), settings, zerolog.Nop(), Options{Registerer: reg})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	report, err := p.Orchestrator.Run(context.Background(), events.ObjectRef{Container: "transient", Key: "wwc/matches.json"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	local, err := storage.NewLocalStore(settings.Storage.Root)
	if err != nil {
		t.Fatal(err)
	}
	data, err := local.Get(context.Background(), "normalized", report.Keys.Normalized)
	if err != nil {
		t.Fatalf("normalized object: %v", err)
	}
	if !strings.Contains(string(data), "Nigeria,Canada,<draw>,0,0,wwc") {
		t.Errorf("normalized CSV:\n%s", data)
	}
	if _, err := local.Get(context.Background(), "transient", "wwc/matches.json"); err == nil {
		t.Error("transient object must be deleted")
	}

	if !mr.Exists(resultlog.StateKey("wwc")) {
		t.Error("result state key not published")
	}

	expected := `
# HELP normalizer_runs_total Total number of normalization runs by outcome
# TYPE normalizer_runs_total counter
normalizer_runs_total{division="wwc",status="success"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "normalizer_runs_total"); err != nil {
		t.Errorf("metrics: %v", err)
	}

	f, err := os.Open(auditPath)
	if err != nil {
		t.Fatalf("audit file: %v", err)
	}
	defer f.Close()
	lines := 0
	for sc := bufio.NewScanner(f); sc.Scan(); {
		lines++
	}
	if lines != 1 {
		t.Errorf("audit lines = %d, want 1", lines)
	}
}

func TestBuild_Errors(t *testing.T) {
	t.Run("missing config", func(t *testing.T) {
		s := testSettings(t)
		s.ConfigPath = filepath.Join(t.TempDir(), "absent.yaml")
		if _, err := Build(context.Background(), s, zerolog.Nop(), Options{}); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("audit directory not writable", func(t *testing.T) {
		s := testSettings(t)
		blocker := filepath.Join(t.TempDir(), "file")
		writeFile(t, blocker, "x")
		s.Audit = etl.AuditConfig{Enabled: true, Output: filepath.Join(blocker, "audit.jsonl")}
		if _, err := Build(context.Background(), s, zerolog.Nop(), Options{}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestBuild_InjectedStorage(t *testing.T) {
	s := testSettings(t)
	mem := storage.NewMemoryStore()
	gw, err := storage.NewGateway(mem, storage.GatewayOptions{})
	if err != nil {
		t.Fatal(err)
	}
	mem.Seed("transient", "wwc/m.json", []byte(wwcMatches))

	p, err := Build(context.Background(), s, zerolog.Nop(), Options{Storage: gw})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer p.Close()

	report, err := p.Orchestrator.Run(context.Background(), events.ObjectRef{Container: "transient", Key: "wwc/m.json"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Rows != 2 {
		t.Errorf("Rows = %d, want 2", report.Rows)
	}
	if p.Config.Division != "wwc" {
		t.Errorf("Division = %q", p.Config.Division)
	}
}
