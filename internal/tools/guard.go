package tools

import (
	"fmt"
	"regexp"
	"strings"
)

// maxSQLRows caps what a raw SELECT may return to the model.
const maxSQLRows = 200

// defaultSQLLimit is appended to raw queries that carry no LIMIT clause.
const defaultSQLLimit = 5000

// Statements that can modify data or schema. Matched as standalone words
// so column names like "created_at" don't false-positive.
var dangerousKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE",
	"TRUNCATE", "GRANT", "REVOKE", "EXEC", "ATTACH", "PRAGMA",
}

// Tables holding credentials or per-user data the model must not read.
var restrictedTables = []string{
	"users", "api_keys", "settings", "notifications",
}

var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Guard validates a raw SQL statement for the run_sql_query tool and
// returns the statement to execute. Only single SELECT statements pass;
// a LIMIT is appended when the query has none.
func Guard(query string) (string, error) {
	q := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(query), ";"))
	if q == "" {
		return "", fmt.Errorf("query is empty")
	}

	upper := strings.ToUpper(q)
	if !strings.HasPrefix(upper, "SELECT") {
		return "", fmt.Errorf("only SELECT queries are allowed")
	}
	if strings.Contains(q, ";") {
		return "", fmt.Errorf("multiple statements are not allowed")
	}

	padded := " " + upper + " "
	for _, kw := range dangerousKeywords {
		if strings.Contains(padded, " "+kw+" ") || strings.Contains(padded, " "+kw+"(") {
			return "", fmt.Errorf("dangerous keyword %q detected, only read-only SELECT queries are allowed", kw)
		}
	}

	lower := strings.ToLower(q)
	for _, tbl := range restrictedTables {
		if containsWord(lower, tbl) {
			return "", fmt.Errorf("access to %q is restricted", tbl)
		}
	}

	if !strings.Contains(padded, " LIMIT ") {
		q = fmt.Sprintf("%s LIMIT %d", q, defaultSQLLimit)
	}
	return q, nil
}

// containsWord reports whether needle appears in haystack as a whole
// identifier, not as a substring of a longer one.
func containsWord(haystack, needle string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], needle)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(needle)
		beforeOK := start == 0 || !isIdentChar(haystack[start-1])
		afterOK := end == len(haystack) || !isIdentChar(haystack[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// validIdentifier reports whether s is safe to interpolate as a column name.
func validIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}
