// Package gate classifies SQL statements before they reach the database.
//
// The check is purely textual: a statement is admitted when its trimmed,
// case-normalized form starts with an approved keyword. Nothing after the
// leading keyword is inspected, so stacked statements pass. This is an
// advisory guard, not a security boundary.
package gate

import "strings"

// Result classifies a statement as admitted or rejected.
type Result struct {
	Allowed bool
	Reason  string
}

// Gate admits statements whose leading keyword is on an allow-list.
type Gate struct {
	prefixes []string
	reason   string
}

// New creates a gate that rejects with the given advisory reason unless the
// statement starts with one of the approved keywords.
func New(reason string, prefixes ...string) Gate {
	upper := make([]string, len(prefixes))
	for i, p := range prefixes {
		upper[i] = strings.ToUpper(p)
	}
	return Gate{prefixes: upper, reason: reason}
}

// Check classifies a statement. It never errors; rejection carries the
// gate's advisory reason.
func (g Gate) Check(statement string) Result {
	normalized := strings.ToUpper(strings.TrimSpace(statement))
	for _, p := range g.prefixes {
		if strings.HasPrefix(normalized, p) {
			return Result{Allowed: true}
		}
	}
	return Result{Allowed: false, Reason: g.reason}
}

// Canonical gates for the tool handlers.
var (
	// ReadQuery admits SELECT statements only.
	ReadQuery = New("Error: Only SELECT queries are allowed for safety reasons.", "SELECT")

	// TableCreation admits CREATE TABLE statements only.
	TableCreation = New("Error: Only CREATE TABLE statements are allowed.", "CREATE TABLE")
)
