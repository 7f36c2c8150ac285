package sqlexec

import (
	"strings"
)

// Keywords that disqualify a statement regardless of position. Scanned as
// whole words over the comment-stripped text so column names like
// "updated_at" pass.
var forbiddenKeywords = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "MERGE": true,
	"DROP": true, "CREATE": true, "ALTER": true, "TRUNCATE": true,
	"GRANT": true, "REVOKE": true, "COPY": true, "VACUUM": true,
	"ANALYZE": true, "REINDEX": true, "CLUSTER": true, "LISTEN": true,
	"NOTIFY": true, "EXECUTE": true, "PREPARE": true, "DEALLOCATE": true,
	"CALL": true, "DO": true, "SET": true, "RESET": true, "LOCK": true,
}

// GuardReadOnly returns ErrNonReadOnly unless the statement is a single
// SELECT (optionally CTE-prefixed) with no data-modifying keywords.
func GuardReadOnly(query string) error {
	text := stripSQLComments(query)
	text = stripTrailingSemicolon(text)
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrNonReadOnly
	}

	// A semicolon left after trimming means more than one statement.
	if strings.Contains(text, ";") {
		return ErrNonReadOnly
	}

	upper := strings.ToUpper(text)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return ErrNonReadOnly
	}

	// String literals are data, not keywords
	for _, word := range splitSQLWords(stripStringLiterals(upper)) {
		if forbiddenKeywords[word] {
			return ErrNonReadOnly
		}
	}
	return nil
}

func stripTrailingSemicolon(query string) string {
	return strings.TrimRight(strings.TrimSpace(query), "; \t\r\n")
}

// stripSQLComments removes -- line comments and /* */ block comments so
// the keyword scan cannot be smuggled past inside one.
func stripSQLComments(query string) string {
	var out strings.Builder
	i := 0
	for i < len(query) {
		if strings.HasPrefix(query[i:], "--") {
			if idx := strings.IndexByte(query[i:], '\n'); idx >= 0 {
				i += idx + 1
				out.WriteByte(' ')
				continue
			}
			break
		}
		if strings.HasPrefix(query[i:], "/*") {
			if idx := strings.Index(query[i:], "*/"); idx >= 0 {
				i += idx + 2
				out.WriteByte(' ')
				continue
			}
			break
		}
		out.WriteByte(query[i])
		i++
	}
	return out.String()
}

func stripStringLiterals(text string) string {
	var out strings.Builder
	inString := false
	for i := 0; i < len(text); i++ {
		if text[i] == '\'' {
			inString = !inString
			out.WriteByte(' ')
			continue
		}
		if !inString {
			out.WriteByte(text[i])
		}
	}
	return out.String()
}

func splitSQLWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		isAlnum := (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
		return !isAlnum
	})
}
