package driver

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsafeQuery     = errors.New("unsafe query detected")
	ErrMultipleQueries = errors.New("multi-statement queries are not allowed")
	ErrNotSelect       = errors.New("only SELECT queries are allowed")
)

var forbiddenKeywords = []string{
	"DELETE", "DROP", "INSERT", "UPDATE", "ALTER", "TRUNCATE", "GRANT", "REVOKE",
	"CREATE", "REPLACE", "CALL", "DO", "HANDLER", "LOAD", "ATTACH", "DETACH", "PRAGMA",
	"USER(", "VERSION(", "DATABASE(", "LOAD_FILE(", "@@VERSION", "@@HOSTNAME",
}

var systemSchemas = []string{
	"INFORMATION_SCHEMA", "MYSQL", "PERFORMANCE_SCHEMA", "SYS", "PG_CATALOG", "SQLITE_MASTER",
}

// ValidateQuery accepts single read-only SELECT statements that stay out of system schemas.
// Keywords are matched as whole words, so a column like deleted_at passes.
func ValidateQuery(query string) error {
	q := strings.TrimSpace(query)
	upper := strings.ToUpper(q)

	if !strings.HasPrefix(upper, "SELECT") || (len(upper) > 6 && !isBoundary(upper[6])) {
		return ErrNotSelect
	}
	if strings.Contains(q, ";") {
		return ErrMultipleQueries
	}
	for _, word := range forbiddenKeywords {
		if containsWord(upper, word) {
			return fmt.Errorf("%w: forbidden keyword %s", ErrUnsafeQuery, word)
		}
	}
	for _, schema := range systemSchemas {
		if containsWord(upper, schema) {
			return fmt.Errorf("%w: access to system table %s", ErrUnsafeQuery, schema)
		}
	}
	return nil
}

// containsWord reports whether word occurs in s delimited by SQL boundaries. s must be
// uppercase.
func containsWord(s, word string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], word)
		if i == -1 {
			return false
		}
		start := idx + i
		end := start + len(word)

		startOK := start == 0 || isBoundary(s[start-1])
		// words ending in "(" carry their own right boundary
		endOK := end == len(s) || isBoundary(s[end]) || strings.HasSuffix(word, "(")
		if startOK && endOK {
			return true
		}
		idx = start + 1
	}
}

func isBoundary(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '(', ')', ',', '=', '<', '>', '`', '.', '"', '[', ']':
		return true
	}
	return false
}
