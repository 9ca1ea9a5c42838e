package table

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestFlatten_ListOfRecords(t *testing.T) {
	doc, err := DecodeJSON([]byte(`[
		{"Date": "2024-01-01", "teams": {"home": "PSG", "away": "OM"}, "FTR": "H"},
		{"Date": "2024-01-02", "teams": {"home": "OL"}, "extra": [1, 2]}
	]`))
	if err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}

	tbl, err := Flatten(doc, FlattenOptions{})
	if err != nil {
		t.Fatalf("Flatten() error = %v", err)
	}

	wantColumns := []string{"Date", "FTR", "teams.away", "teams.home", "extra"}
	if got := tbl.Columns(); !reflect.DeepEqual(got, wantColumns) {
		t.Errorf("Columns() = %v, want %v", got, wantColumns)
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}

	if v, _ := tbl.Value(0, "teams.home"); v != "PSG" {
		t.Errorf("row 0 teams.home = %v, want PSG", v)
	}
	if v, _ := tbl.Value(1, "teams.away"); v != nil {
		t.Errorf("row 1 teams.away = %v, want nil", v)
	}
	if v, _ := tbl.Value(1, "extra"); !reflect.DeepEqual(v, []any{json.Number("1"), json.Number("2")}) {
		t.Errorf("row 1 extra = %#v, want array cell", v)
	}
}

func TestFlatten_SingleObjectAndRecordPath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		opts     FlattenOptions
		wantRows int
		wantErr  error
	}{
		{
			name:     "object is one record",
			input:    `{"a": 1, "b": {"c": 2}}`,
			wantRows: 1,
		},
		{
			name:     "record path",
			input:    `{"meta": {"season": "2024"}, "data": {"matches": [{"a": 1}, {"a": 2}, {"a": 3}]}}`,
			opts:     FlattenOptions{RecordPath: "data.matches"},
			wantRows: 3,
		},
		{
			name:    "record path missing",
			input:   `{"data": {}}`,
			opts:    FlattenOptions{RecordPath: "data.matches"},
			wantErr: ErrRecordPath,
		},
		{
			name:    "record path to scalar",
			input:   `{"matches": 5}`,
			opts:    FlattenOptions{RecordPath: "matches"},
			wantErr: ErrRecordPath,
		},
		{
			name:    "scalar root",
			input:   `"hello"`,
			wantErr: ErrUnsupportedRoot,
		},
		{
			name:    "list of scalars",
			input:   `[1, 2]`,
			wantErr: ErrNotARecord,
		},
		{
			name:     "empty list",
			input:    `[]`,
			wantRows: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := DecodeJSON([]byte(tt.input))
			if err != nil {
				t.Fatalf("DecodeJSON() error = %v", err)
			}
			tbl, err := Flatten(doc, tt.opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Flatten() error = %v, want %v", err, tt.wantErr)
				}
				var te *TransformError
				if !errors.As(err, &te) {
					t.Errorf("Flatten() error is %T, want *TransformError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Flatten() error = %v", err)
			}
			if tbl.Len() != tt.wantRows {
				t.Errorf("Len() = %d, want %d", tbl.Len(), tt.wantRows)
			}
		})
	}
}

func TestFlatten_EmptyObjectHasNoColumns(t *testing.T) {
	doc, _ := DecodeJSON([]byte(`[{"a": {}, "b": 1}]`))
	tbl, err := Flatten(doc, FlattenOptions{})
	if err != nil {
		t.Fatalf("Flatten() error = %v", err)
	}
	if got := tbl.Columns(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("Columns() = %v, want [b]", got)
	}
}

func TestTable_RenameDuplicate(t *testing.T) {
	tbl, _ := New("HomeTeam", "home_team")
	err := tbl.Rename(map[string]string{"HomeTeam": "home_team"})
	if err == nil {
		t.Fatal("Rename() expected error for duplicate target")
	}
	if got := tbl.Columns(); !reflect.DeepEqual(got, []string{"HomeTeam", "home_team"}) {
		t.Errorf("Rename() modified table on error: %v", got)
	}
}

func TestTable_Reindex(t *testing.T) {
	tbl, _ := New("a", "b", "c")
	_ = tbl.AppendRow([]any{"1", "2", "3"})
	_ = tbl.AppendRow([]any{"4", "5", "6"})

	out, err := tbl.Reindex([]string{"c", "x", "a"})
	if err != nil {
		t.Fatalf("Reindex() error = %v", err)
	}
	if got := out.Columns(); !reflect.DeepEqual(got, []string{"c", "x", "a"}) {
		t.Errorf("Columns() = %v", got)
	}
	if got := out.Row(1); !reflect.DeepEqual(got, []any{"6", nil, "4"}) {
		t.Errorf("Row(1) = %v", got)
	}

	if _, err := tbl.Reindex([]string{"a", "a"}); err == nil {
		t.Error("Reindex() expected error for duplicate columns")
	}
}

func TestTable_AddColumnBroadcast(t *testing.T) {
	tbl, _ := New("a")
	_ = tbl.AppendRow([]any{"1"})
	_ = tbl.AppendRow([]any{"2"})

	if err := tbl.AddColumn("division", "ligue1"); err != nil {
		t.Fatalf("AddColumn() error = %v", err)
	}
	values, _ := tbl.Column("division")
	for i, v := range values {
		if v != "ligue1" {
			t.Errorf("row %d division = %v", i, v)
		}
	}
	if err := tbl.AddColumn("a", nil); err == nil {
		t.Error("AddColumn() expected error for existing column")
	}
}

func TestWriteCSV(t *testing.T) {
	tbl, _ := New("date", "winner", "home_score", "flag", "tags", "stamp")
	ts := time.Date(2024, 1, 1, 12, 30, 0, 123456000, time.UTC)
	_ = tbl.AppendRow([]any{"2024-01-01", "<draw>", int64(2), true, []any{"a", "b"}, ts})
	_ = tbl.AppendRow([]any{"2024-01-02", "Lyon, FC", nil, false, nil, ts})

	var buf bytes.Buffer
	if err := WriteCSV(&buf, tbl); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	want := strings.Join([]string{
		",date,winner,home_score,flag,tags,stamp",
		`0,2024-01-01,<draw>,2,True,"[""a"",""b""]",2024-01-01 12:30:00.123456+00:00`,
		`1,2024-01-02,"Lyon, FC",,False,,2024-01-01 12:30:00.123456+00:00`,
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Errorf("WriteCSV() =\n%s\nwant\n%s", got, want)
	}
}

func TestWriteCSV_EmptyTable(t *testing.T) {
	tbl, _ := New("a", "b")
	var buf bytes.Buffer
	if err := WriteCSV(&buf, tbl); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}
	if got := buf.String(); got != ",a,b\n" {
		t.Errorf("WriteCSV() = %q", got)
	}
}
