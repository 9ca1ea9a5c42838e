package processors

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/goccy/go-json"

	"github.com/ruslano69/match-normalizer/pkg/table"
)

// mustTable строит таблицу из колонок и строк для тестов
func mustTable(t *testing.T, columns []string, rows ...[]any) *table.Table {
	t.Helper()
	tbl, err := table.New(columns...)
	if err != nil {
		t.Fatalf("table.New() error = %v", err)
	}
	for _, r := range rows {
		if err := tbl.AppendRow(r); err != nil {
			t.Fatalf("AppendRow() error = %v", err)
		}
	}
	return tbl
}

func TestColumnRenamer(t *testing.T) {
	tbl := mustTable(t, []string{"HomeTeam", "AwayTeam", "Referee"},
		[]any{"PSG", "OM", "Turpin"})

	r := NewColumnRenamer(map[string]string{"HomeTeam": "home_team", "AwayTeam": "away_team"})
	out, err := r.Process(context.Background(), tbl)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	want := []string{"home_team", "away_team", "Referee"}
	if got := out.Columns(); !reflect.DeepEqual(got, want) {
		t.Errorf("Columns() = %v, want %v", got, want)
	}
}

func TestColumnRenamer_Collision(t *testing.T) {
	tbl := mustTable(t, []string{"FTR", "result"})
	r := NewColumnRenamer(map[string]string{"FTR": "winner", "result": "winner"})

	_, err := r.Process(context.Background(), tbl)
	if !errors.Is(err, table.ErrDuplicateColumn) {
		t.Fatalf("Process() error = %v, want ErrDuplicateColumn", err)
	}
	var te *table.TransformError
	if !errors.As(err, &te) || te.Stage != "rename" {
		t.Errorf("Process() error = %#v, want rename TransformError", err)
	}
}

func TestWinnerRewriter(t *testing.T) {
	columns := []string{"home_team", "away_team", "winner"}
	rows := [][]any{
		{"PSG", "OM", "H"},
		{"Lyon", "Nice", "A"},
		{"Lens", "Lille", "D"},
		{"Brest", "Rennes", nil},
	}

	tests := []struct {
		policy WinnerPolicy
		want   []any
	}{
		{policy: WinnerDrawOnly, want: []any{"H", "A", DrawLabel, nil}},
		{policy: WinnerTeamSubstitution, want: []any{"PSG", "Nice", DrawLabel, nil}},
		{policy: WinnerNone, want: []any{"H", "A", "D", nil}},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			tbl := mustTable(t, columns, rows...)
			w, err := NewWinnerRewriter(tt.policy)
			if err != nil {
				t.Fatalf("NewWinnerRewriter() error = %v", err)
			}
			out, err := w.Process(context.Background(), tbl)
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			got, _ := out.Column(WinnerColumn)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("winner = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWinnerRewriter_TeamNamedLikeCode(t *testing.T) {
	// Команда с названием "D" не должна превращаться в "<draw>"
	tbl := mustTable(t, []string{"home_team", "away_team", "winner"}, []any{"D", "A", "H"})
	w, _ := NewWinnerRewriter(WinnerTeamSubstitution)

	out, err := w.Process(context.Background(), tbl)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if v, _ := out.Value(0, WinnerColumn); v != "D" {
		t.Errorf("winner = %v, want D", v)
	}
}

func TestWinnerRewriter_MissingColumns(t *testing.T) {
	tests := []struct {
		name    string
		policy  WinnerPolicy
		columns []string
		missing string
	}{
		{name: "no winner", policy: WinnerDrawOnly, columns: []string{"home_team"}, missing: WinnerColumn},
		{name: "no away team", policy: WinnerTeamSubstitution, columns: []string{"winner", "home_team"}, missing: AwayTeamColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := NewWinnerRewriter(tt.policy)
			_, err := w.Process(context.Background(), mustTable(t, tt.columns, make([]any, len(tt.columns))))
			var te *table.TransformError
			if !errors.As(err, &te) {
				t.Fatalf("Process() error = %v, want TransformError", err)
			}
			if te.Column != tt.missing || !errors.Is(err, table.ErrMissingColumn) {
				t.Errorf("Process() error = %v, want missing %s", err, tt.missing)
			}
		})
	}

	if _, err := NewWinnerRewriter("random"); err == nil {
		t.Error("NewWinnerRewriter() expected error for unknown policy")
	}
}

func TestToInt64(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    int64
		wantErr bool
	}{
		{name: "null", in: nil, want: 0},
		{name: "json integer", in: json.Number("3"), want: 3},
		{name: "json float", in: json.Number("2.9"), want: 2},
		{name: "json negative float", in: json.Number("-2.9"), want: -2},
		{name: "json exponent", in: json.Number("1e3"), want: 1000},
		{name: "numeric string", in: "2", want: 2},
		{name: "padded string", in: " 4 ", want: 4},
		{name: "bool", in: true, want: 1},
		{name: "int64", in: int64(7), want: 7},
		{name: "empty string", in: "", wantErr: true},
		{name: "fractional string", in: "2.5", wantErr: true},
		{name: "text", in: "two", wantErr: true},
		{name: "array", in: []any{json.Number("1")}, wantErr: true},
		{name: "overflow", in: json.Number("1e30"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToInt64(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ToInt64(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, table.ErrNotAnInteger) {
					t.Errorf("ToInt64(%v) error = %v, want ErrNotAnInteger", tt.in, err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ToInt64(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestIntegerCoercer(t *testing.T) {
	tbl := mustTable(t, []string{"home_score", "away_score"},
		[]any{json.Number("2"), "1"},
		[]any{nil, json.Number("0")},
	)

	out, err := NewIntegerCoercer([]string{"home_score", "away_score"}).Process(context.Background(), tbl)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	home, _ := out.Column("home_score")
	away, _ := out.Column("away_score")
	if !reflect.DeepEqual(home, []any{int64(2), int64(0)}) {
		t.Errorf("home_score = %#v", home)
	}
	if !reflect.DeepEqual(away, []any{int64(1), int64(0)}) {
		t.Errorf("away_score = %#v", away)
	}
}

func TestIntegerCoercer_FailsWithoutPartialWrite(t *testing.T) {
	tbl := mustTable(t, []string{"home_score", "away_score"},
		[]any{"2", "1"},
		[]any{"3", "abc"},
	)

	_, err := NewIntegerCoercer([]string{"home_score", "away_score"}).Process(context.Background(), tbl)
	var te *table.TransformError
	if !errors.As(err, &te) {
		t.Fatalf("Process() error = %v, want TransformError", err)
	}
	if te.Column != "away_score" || te.Row != 1 || te.Stage != "coerce" {
		t.Errorf("TransformError = %+v", te)
	}

	// home_score уже проверен, но не должен быть записан
	if v, _ := tbl.Value(0, "home_score"); v != "2" {
		t.Errorf("home_score row 0 = %#v, want untouched \"2\"", v)
	}
}

func TestIntegerCoercer_MissingColumn(t *testing.T) {
	tbl := mustTable(t, []string{"home_score"}, []any{"1"})
	_, err := NewIntegerCoercer([]string{"away_score"}).Process(context.Background(), tbl)
	if !errors.Is(err, table.ErrMissingColumn) {
		t.Errorf("Process() error = %v, want ErrMissingColumn", err)
	}
}

func TestProcessors_EmptyTable(t *testing.T) {
	winner, _ := NewWinnerRewriter(WinnerTeamSubstitution)
	validator, err := NewFieldValidator(map[string][]FieldValidationRule{
		"date": {{Type: ValidateRequired}},
	})
	if err != nil {
		t.Fatalf("NewFieldValidator() error = %v", err)
	}

	tests := []struct {
		name string
		proc Processor
	}{
		{"winner", winner},
		{"coerce", NewIntegerCoercer([]string{"home_score", "away_score"})},
		{"validate", validator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tt.proc.Process(context.Background(), mustTable(t, nil))
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if out.Len() != 0 || out.NumColumns() != 0 {
				t.Errorf("Process() = %v columns, %d rows, want empty table", out.Columns(), out.Len())
			}
		})
	}
}

func TestSchemaProjector(t *testing.T) {
	tbl := mustTable(t, []string{"winner", "extra", "date"}, []any{"H", "x", "2024-01-01"})

	out, err := NewSchemaProjector([]string{"date", "home_team", "winner"}).Process(context.Background(), tbl)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got := out.Columns(); !reflect.DeepEqual(got, []string{"date", "home_team", "winner"}) {
		t.Errorf("Columns() = %v", got)
	}
	if got := out.Row(0); !reflect.DeepEqual(got, []any{"2024-01-01", nil, "H"}) {
		t.Errorf("Row(0) = %v", got)
	}

	_, err = NewSchemaProjector(nil).Process(context.Background(), tbl)
	var se *table.SchemaError
	if !errors.As(err, &se) {
		t.Errorf("Process() with empty schema error = %v, want SchemaError", err)
	}
}

func TestFieldNormalizer(t *testing.T) {
	tbl := mustTable(t, []string{"home_team", "date", "away_team", "score"},
		[]any{"  Paris   SG ", "05/08/23", "om", json.Number("2")},
		[]any{nil, "not a date", "nice", nil},
	)

	n, err := NewFieldNormalizerFromRules(map[string]string{
		"home_team": "whitespace",
		"date":      "date",
		"away_team": "uppercase",
		"score":     "lowercase",
		"absent":    "trim",
	})
	if err != nil {
		t.Fatalf("NewFieldNormalizerFromRules() error = %v", err)
	}

	out, err := n.Process(context.Background(), tbl)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	want := [][]any{
		{"Paris SG", "2023-08-05", "OM", json.Number("2")},
		{nil, "not a date", "NICE", nil},
	}
	for i := range want {
		if got := out.Row(i); !reflect.DeepEqual(got, want[i]) {
			t.Errorf("Row(%d) = %v, want %v", i, got, want[i])
		}
	}

	if _, err := NewFieldNormalizerFromRules(map[string]string{"x": "phone"}); err == nil {
		t.Error("NewFieldNormalizerFromRules() expected error for unknown rule")
	}
}

func TestFactory_CreateChain(t *testing.T) {
	chain, err := NewFactory().CreateChain([]Config{
		{Type: "column_renamer", Params: map[string]any{"columns": map[string]any{"FTR": "winner"}}},
		{Type: "winner_rewriter", Params: map[string]any{"policy": "draw_only"}},
		{Type: "integer_coercer", Params: map[string]any{"columns": []any{"FTHG"}}},
		{Type: "field_normalizer", Params: map[string]any{"fields": map[string]any{"winner": "lowercase"}}},
	})
	if err != nil {
		t.Fatalf("CreateChain() error = %v", err)
	}

	wantNames := []string{"column_renamer", "winner_rewriter", "integer_coercer", "field_normalizer"}
	if got := chain.Names(); !reflect.DeepEqual(got, wantNames) {
		t.Errorf("Names() = %v, want %v", got, wantNames)
	}

	tbl := mustTable(t, []string{"FTR", "FTHG"}, []any{"D", "1"}, []any{"H", nil})
	out, err := chain.Process(context.Background(), tbl)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	winner, _ := out.Column("winner")
	if !reflect.DeepEqual(winner, []any{"<draw>", "h"}) {
		t.Errorf("winner = %v", winner)
	}
	goals, _ := out.Column("FTHG")
	if !reflect.DeepEqual(goals, []any{int64(1), int64(0)}) {
		t.Errorf("FTHG = %#v", goals)
	}
}

func TestFactory_Errors(t *testing.T) {
	f := NewFactory()

	if _, err := f.Create(Config{Type: "field_masker"}); !errors.Is(err, ErrUnknownProcessor) {
		t.Errorf("Create() error = %v, want ErrUnknownProcessor", err)
	}
	want := []string{"column_renamer", "field_normalizer", "field_validator", "integer_coercer", "winner_rewriter"}
	if got := f.Types(); !reflect.DeepEqual(got, want) {
		t.Errorf("Types() = %v, want %v", got, want)
	}
	if _, err := f.Create(Config{Type: "column_renamer", Params: map[string]any{}}); err == nil {
		t.Error("Create() expected error for missing columns")
	}
	if _, err := f.Create(Config{Type: "winner_rewriter", Params: map[string]any{"policy": "both"}}); err == nil {
		t.Error("Create() expected error for bad policy")
	}
}

func TestChain_StopsOnError(t *testing.T) {
	tbl := mustTable(t, []string{"score"}, []any{"x"})
	chain := NewChain(NewIntegerCoercer([]string{"score"}), NewSchemaProjector([]string{"score"}))

	_, err := chain.Process(context.Background(), tbl)
	var te *table.TransformError
	if !errors.As(err, &te) {
		t.Fatalf("Process() error = %v, want TransformError", err)
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Index != 0 || stepErr.Step != "integer_coercer" {
		t.Errorf("StepError = %+v", stepErr)
	}
}
