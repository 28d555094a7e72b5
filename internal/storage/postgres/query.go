package postgres

import (
	"fmt"
	"strings"
)

// whereBuilder собирает WHERE с позиционными параметрами $n.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) add(format string, values ...any) {
	placeholders := make([]any, len(values))
	for i, v := range values {
		w.args = append(w.args, v)
		placeholders[i] = fmt.Sprintf("$%d", len(w.args))
	}
	w.clauses = append(w.clauses, fmt.Sprintf(format, placeholders...))
}

func (w *whereBuilder) sql() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// nextArg добавляет значение и возвращает его плейсхолдер.
func (w *whereBuilder) nextArg(v any) string {
	w.args = append(w.args, v)
	return fmt.Sprintf("$%d", len(w.args))
}

// orderBy возвращает ORDER BY только по колонкам из белого списка.
func orderBy(columns map[string]string, field string, desc bool, fallback string) string {
	column, ok := columns[field]
	if !ok {
		column = fallback
	}
	direction := "ASC"
	if desc {
		direction = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id %s", column, direction, direction)
}

func likePattern(search string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(search) + "%"
}
