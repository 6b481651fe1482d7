package sqlitestore

import "strings"

// SplitStatements cuts console input into single statements on top-level
// semicolons, the way the sqlite3 shell does. Quoted text, comments and
// CREATE TRIGGER bodies are kept whole. Pieces holding nothing but blanks
// and comments are dropped, as are the separating semicolons.
func SplitStatements(input string) []string {
	var (
		out     []string
		start   int
		hasCode bool
		words   int
		first   string
		trigger bool
		depth   int // BEGIN ... END nesting inside a trigger
		cases   int // CASE ... END nesting inside a trigger body
	)
	flush := func(end int) {
		if hasCode {
			out = append(out, strings.TrimSpace(input[start:end]))
		}
		start = end + 1
		hasCode, words, first, trigger, depth, cases = false, 0, "", false, 0, 0
	}

	for i := 0; i < len(input); i++ {
		c := input[i]
		switch {
		case c == '\'' || c == '"' || c == '`' || c == '[':
			hasCode = true
			closing := c
			if c == '[' {
				closing = ']'
			}
			if j := strings.IndexByte(input[i+1:], closing); j >= 0 {
				i += j + 1
			} else {
				i = len(input)
			}
		case c == '-' && i+1 < len(input) && input[i+1] == '-':
			if j := strings.IndexByte(input[i:], '\n'); j >= 0 {
				i += j
			} else {
				i = len(input)
			}
		case c == '/' && i+1 < len(input) && input[i+1] == '*':
			if j := strings.Index(input[i+2:], "*/"); j >= 0 {
				i += j + 3
			} else {
				i = len(input)
			}
		case c == ';' && depth == 0:
			flush(i)
		case isWordByte(c):
			j := i
			for j < len(input) && isWordByte(input[j]) {
				j++
			}
			w := strings.ToUpper(input[i:j])
			if words == 0 {
				first = w
			}
			switch {
			case first == "CREATE" && w == "TRIGGER" && words <= 3:
				trigger = true
			case trigger && w == "BEGIN":
				depth++
			case trigger && depth > 0 && w == "CASE":
				cases++
			case trigger && depth > 0 && w == "END":
				if cases > 0 {
					cases--
				} else {
					depth--
				}
			}
			hasCode = true
			words++
			i = j - 1
		case c != ' ' && c != '\t' && c != '\n' && c != '\r' && c != '\f' && c != '\v':
			hasCode = true
		}
	}
	flush(len(input))
	return out
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
