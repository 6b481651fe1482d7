package sqlitestore

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// trace announces a statement to sqlTrace listeners and the debug log.
// Statements starting with "--" are passed through verbatim; everything
// else has its bound parameters expanded.
func (s *Store) trace(query string, args []any) {
	text := query
	if !strings.HasPrefix(strings.TrimSpace(query), "--") {
		text = ExpandSQL(query, args)
	}
	s.log.Debug("sql", "statement", text)
	s.dispatch(Event{Type: EventSQLTrace, SQL: text})
}

// ExpandSQL substitutes positional "?" parameters with SQL literals and
// collapses runs of whitespace in the statement text. Quoted literals and
// bound values are copied as they are; a "?" inside a literal is not a
// parameter.
func ExpandSQL(query string, args []any) string {
	var b strings.Builder
	next := 0
	inString := false
	space := false
	for _, r := range query {
		if !inString && unicode.IsSpace(r) {
			space = true
			continue
		}
		if space {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
		}
		switch {
		case r == '\'':
			inString = !inString
			b.WriteRune(r)
		case r == '?' && !inString && next < len(args):
			b.WriteString(literal(args[next]))
			next++
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case []byte:
		return fmt.Sprintf("X'%X'", x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
