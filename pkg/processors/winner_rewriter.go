package processors

import (
	"context"
	"fmt"

	"github.com/ruslano69/match-normalizer/pkg/table"
)

// WinnerPolicy определяет правило переписывания кода победителя
type WinnerPolicy string

const (
	// WinnerDrawOnly заменяет только "D" на DrawLabel, "H"/"A" остаются как есть
	WinnerDrawOnly WinnerPolicy = "draw_only"
	// WinnerTeamSubstitution заменяет "H"/"A" названием команды, "D" на DrawLabel
	WinnerTeamSubstitution WinnerPolicy = "team_substitution"
	// WinnerNone отключает переписывание
	WinnerNone WinnerPolicy = "none"
)

// Коды исхода матча и колонки, с которыми работает WinnerRewriter
const (
	HomeWinCode = "H"
	AwayWinCode = "A"
	DrawCode    = "D"
	DrawLabel   = "<draw>"

	WinnerColumn   = "winner"
	HomeTeamColumn = "home_team"
	AwayTeamColumn = "away_team"
)

// Valid проверяет, что политика известна
func (p WinnerPolicy) Valid() bool {
	switch p {
	case WinnerDrawOnly, WinnerTeamSubstitution, WinnerNone:
		return true
	}
	return false
}

// WinnerRewriter переписывает категориальный код исхода в колонке winner
type WinnerRewriter struct {
	policy WinnerPolicy
}

// NewWinnerRewriter создает процессор для указанной политики
func NewWinnerRewriter(policy WinnerPolicy) (*WinnerRewriter, error) {
	if !policy.Valid() {
		return nil, fmt.Errorf("unknown winner policy: %s", policy)
	}
	return &WinnerRewriter{policy: policy}, nil
}

// Name возвращает имя процессора
func (w *WinnerRewriter) Name() string {
	return winnerRewriterName
}

// Process реализует интерфейс Processor.
// Каждая строка переписывается за один проход по исходному коду, поэтому
// команда с названием "D" не превращается в "<draw>".
// Пустой входной файл не содержит колонок, такая таблица пропускается.
func (w *WinnerRewriter) Process(_ context.Context, tbl *table.Table) (*table.Table, error) {
	if w.policy == WinnerNone || tbl.Len() == 0 {
		return tbl, nil
	}

	required := []string{WinnerColumn}
	if w.policy == WinnerTeamSubstitution {
		required = append(required, HomeTeamColumn, AwayTeamColumn)
	}
	for _, col := range required {
		if !tbl.HasColumn(col) {
			return nil, &table.TransformError{Stage: "winner", Column: col, Row: -1, Err: table.ErrMissingColumn}
		}
	}

	winnerIdx, _ := tbl.ColumnIndex(WinnerColumn)
	homeIdx, _ := tbl.ColumnIndex(HomeTeamColumn)
	awayIdx, _ := tbl.ColumnIndex(AwayTeamColumn)

	for i := 0; i < tbl.Len(); i++ {
		row := tbl.Row(i)
		code, ok := row[winnerIdx].(string)
		if !ok {
			continue
		}

		switch {
		case code == DrawCode:
			row[winnerIdx] = DrawLabel
		case w.policy == WinnerTeamSubstitution && code == HomeWinCode:
			row[winnerIdx] = row[homeIdx]
		case w.policy == WinnerTeamSubstitution && code == AwayWinCode:
			row[winnerIdx] = row[awayIdx]
		}
	}

	return tbl, nil
}

// NewWinnerRewriterFromConfig создает WinnerRewriter из конфигурации
func NewWinnerRewriterFromConfig(params map[string]any) (*WinnerRewriter, error) {
	policy := WinnerDrawOnly
	if raw, ok := params["policy"]; ok {
		policy = WinnerPolicy(fmt.Sprintf("%v", raw))
	}
	return NewWinnerRewriter(policy)
}
