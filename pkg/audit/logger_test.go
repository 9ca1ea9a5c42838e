package audit

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/ruslano69/match-normalizer/pkg/etl"
	"github.com/ruslano69/match-normalizer/pkg/events"
)

func successReport() *etl.Report {
	start := time.Date(2024, 3, 9, 22, 30, 0, 0, time.UTC)
	return &etl.Report{
		Source:    events.ObjectRef{Container: "transient", Key: "ligue1/matches.json"},
		Division:  "ligue1",
		RunID:     "1a2b3c4d",
		Keys:      etl.Keys{Normalized: "20240309/1a2b3c4d.csv", Raw: "20240309/1a2b3c4d.json"},
		Trace:     []etl.State{etl.StateIdle, etl.StateReading, etl.StateDone},
		State:     etl.StateDone,
		Rows:      3,
		StartTime: start,
		EndTime:   start.Add(1500 * time.Millisecond),
		Duration:  1500 * time.Millisecond,

		InputChecksum:  "aaaa",
		OutputChecksum: "bbbb",
	}
}

func failedReport() *etl.Report {
	r := successReport()
	r.State = etl.StateFailed
	r.FailedState = etl.StateTransforming
	r.Rows = 0
	r.Err = errors.New("cannot convert home_score")
	return r
}

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line is not JSON: %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	return out
}

func TestFromReport(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		e := FromReport(successReport(), "normalized")
		if e.Status != StatusSuccess || e.Operation != OpNormalize {
			t.Errorf("status/op = %s/%s", e.Status, e.Operation)
		}
		if e.Source != "transient/ligue1/matches.json" {
			t.Errorf("Source = %q", e.Source)
		}
		if e.Target != "normalized/20240309/1a2b3c4d.csv" {
			t.Errorf("Target = %q", e.Target)
		}
		if e.Resource != "ligue1" || e.RecordsAffected != 3 {
			t.Errorf("Resource/Records = %q/%d", e.Resource, e.RecordsAffected)
		}
		if e.Metadata["run_id"] != "1a2b3c4d" || e.Metadata["output_checksum"] != "bbbb" {
			t.Errorf("Metadata = %v", e.Metadata)
		}
		if _, ok := e.Metadata["failed_state"]; ok {
			t.Error("failed_state must be absent on success")
		}
		if !e.Timestamp.Equal(successReport().EndTime) {
			t.Errorf("Timestamp = %v", e.Timestamp)
		}
	})

	t.Run("failure", func(t *testing.T) {
		e := FromReport(failedReport(), "normalized")
		if e.Status != StatusFailure {
			t.Errorf("Status = %s", e.Status)
		}
		if e.Target != "" {
			t.Errorf("Target = %q, want empty", e.Target)
		}
		if e.ErrorMessage != "cannot convert home_score" {
			t.Errorf("ErrorMessage = %q", e.ErrorMessage)
		}
		if e.Metadata["failed_state"] != string(etl.StateTransforming) {
			t.Errorf("failed_state = %v", e.Metadata["failed_state"])
		}
	})
}

func TestEntry_FilterByLevel(t *testing.T) {
	e := FromReport(successReport(), "normalized")

	if got := e.FilterByLevel(LevelMinimal); got.Metadata != nil {
		t.Errorf("minimal level kept metadata: %v", got.Metadata)
	}
	if got := e.FilterByLevel(LevelStandard); len(got.Metadata) == 0 {
		t.Error("standard level dropped metadata")
	}
	if len(e.Metadata) == 0 {
		t.Error("filter must not modify the original entry")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"", LevelStandard, false},
		{"standard", LevelStandard, false},
		{"minimal", LevelMinimal, false},
		{"full", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFileAppender_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "runs.jsonl")

	appender, err := NewFileAppender(FileAppenderConfig{FilePath: path, Level: LevelStandard})
	if err != nil {
		t.Fatalf("NewFileAppender: %v", err)
	}
	defer appender.Close()

	ctx := context.Background()
	if err := appender.Append(ctx, FromReport(successReport(), "normalized")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := appender.Append(ctx, FromReport(failedReport(), "normalized")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0]["status"] != "success" || lines[1]["status"] != "failure" {
		t.Errorf("statuses = %v, %v", lines[0]["status"], lines[1]["status"])
	}
	if appender.CurrentSize() == 0 {
		t.Error("expected non-zero file size")
	}
}

func TestFileAppender_Rotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	appender, err := NewFileAppender(FileAppenderConfig{
		FilePath:   path,
		MaxSize:    200,
		MaxBackups: 2,
		Level:      LevelMinimal,
	})
	if err != nil {
		t.Fatalf("NewFileAppender: %v", err)
	}
	defer appender.Close()

	// каждая запись больше половины лимита, значит каждая новая вызывает ротацию
	for i := 0; i < 5; i++ {
		e := NewEntry(OpNormalize, StatusSuccess)
		e.Source = strings.Repeat("s", 120)
		if err := appender.Append(context.Background(), e); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	for _, p := range []string{path, path + ".1", path + ".2"} {
		if got := len(readLines(t, p)); got != 1 {
			t.Errorf("%s has %d lines, want 1", p, got)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Errorf("backup beyond MaxBackups exists: %v", err)
	}
}

func TestFileAppender_Closed(t *testing.T) {
	appender, err := NewFileAppender(FileAppenderConfig{FilePath: filepath.Join(t.TempDir(), "a.jsonl")})
	if err != nil {
		t.Fatal(err)
	}
	if err := appender.Close(); err != nil {
		t.Fatal(err)
	}
	if err := appender.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := appender.Append(context.Background(), NewEntry(OpNormalize, StatusSuccess)); !errors.Is(err, ErrAppenderClosed) {
		t.Errorf("Append after Close error = %v, want ErrAppenderClosed", err)
	}
}

type recordingAppender struct {
	entries []*Entry
	err     error
	closed  bool
}

func (r *recordingAppender) Append(_ context.Context, e *Entry) error {
	r.entries = append(r.entries, e)
	return r.err
}

func (r *recordingAppender) Close() error {
	r.closed = true
	return nil
}

func TestWriterAppender(t *testing.T) {
	var buf bytes.Buffer
	appender := NewWriterAppender(&buf, LevelMinimal)

	if err := appender.Append(context.Background(), FromReport(successReport(), "normalized")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	line := buf.String()
	if !strings.HasSuffix(line, "\n") || strings.Count(line, "\n") != 1 {
		t.Errorf("want exactly one JSON line, got %q", line)
	}
	if strings.Contains(line, "run_id") {
		t.Errorf("minimal level must drop metadata: %s", line)
	}
}

func TestMultiAppender(t *testing.T) {
	diskFull := errors.New("disk full")
	failing := &recordingAppender{err: diskFull}
	ok := &recordingAppender{}
	multi := NewMultiAppender(failing, ok)

	err := multi.Append(context.Background(), NewEntry(OpNormalize, StatusSuccess))
	if !errors.Is(err, diskFull) {
		t.Errorf("Append error = %v, want disk full", err)
	}
	if len(ok.entries) != 1 {
		t.Error("second appender must receive the entry despite the first failing")
	}

	if err := multi.Close(); err != nil {
		t.Fatal(err)
	}
	if !failing.closed || !ok.closed {
		t.Error("all appenders must be closed")
	}
}

func TestLogger_Observe(t *testing.T) {
	var logs bytes.Buffer
	rec := &recordingAppender{}
	logger := NewLogger(LoggerConfig{
		DefaultUser:         "normalizer",
		NormalizedContainer: "normalized",
		Logger:              zerolog.New(&logs),
	}, rec)

	logger.Observe(context.Background(), successReport())
	if len(rec.entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(rec.entries))
	}
	if rec.entries[0].User != "normalizer" {
		t.Errorf("User = %q", rec.entries[0].User)
	}

	rec.err = errors.New("disk full")
	logger.Observe(context.Background(), failedReport())
	if !strings.Contains(logs.String(), "failed to write audit entry") {
		t.Errorf("append failure not logged: %s", logs.String())
	}

	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}
	if err := logger.Log(context.Background(), NewEntry(OpNormalize, StatusSuccess)); err == nil {
		t.Error("expected error after Close")
	}
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	logger, err := NewFileLogger(etl.AuditConfig{Enabled: true, Output: path, Level: "minimal"}, "normalized", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}

	var observer etl.Observer = logger
	observer.Observe(context.Background(), successReport())
	if err := logger.Close(); err != nil {
		t.Fatal(err)
	}

	lines := readLines(t, path)
	if len(lines) != 1 {
		t.Fatalf("got %d lines", len(lines))
	}
	if _, ok := lines[0]["metadata"]; ok {
		t.Error("minimal level must omit metadata")
	}
	if lines[0]["user"] != "normalizer" {
		t.Errorf("user = %v", lines[0]["user"])
	}

	if _, err := NewFileLogger(etl.AuditConfig{Output: path, Level: "bogus"}, "n", zerolog.Nop()); err == nil {
		t.Error("expected error for unknown level")
	}
}
