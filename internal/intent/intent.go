package intent

import "strings"

// Intent is the closed set of message intents the router dispatches on.
type Intent int

const (
	// Continuation answers from the already-fetched result set.
	Continuation Intent = iota
	// QueryRefinement modifies the previously executed SQL.
	QueryRefinement
	// TableRequest exports the current result set as a file.
	TableRequest
	// NewDataQuery starts a fresh, self-contained data question.
	NewDataQuery
	// Informational asks about the assistant itself, not about data.
	Informational
)

var names = map[Intent]string{
	Continuation:    "continuation",
	QueryRefinement: "query_refinement",
	TableRequest:    "table_request",
	NewDataQuery:    "new_data_query",
	Informational:   "informational",
}

func (i Intent) String() string {
	if name, ok := names[i]; ok {
		return name
	}
	return "unknown"
}

// Parse maps a classifier label onto the closed intent set. The second
// return value is false for anything outside the set.
func Parse(label string) (Intent, bool) {
	label = strings.ToLower(strings.TrimSpace(label))
	for intent, name := range names {
		if label == name {
			return intent, true
		}
	}
	return NewDataQuery, false
}

// NeedsResult reports whether the intent is only valid while a result
// set is held in the session.
func (i Intent) NeedsResult() bool {
	switch i {
	case Continuation, QueryRefinement, TableRequest:
		return true
	}
	return false
}
