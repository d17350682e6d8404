package engine

import "fmt"

// Literal texts handed to the presenter.
const (
	TextUnknown = "- unknown -"
	TextError   = "- error -"
)

// OutcomeKind tags the result of a poll step.
type OutcomeKind int

const (
	OutcomeNone OutcomeKind = iota
	OutcomeSuccess
	OutcomeNoResult
	OutcomeNoConnection
	OutcomeQueryError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeNoResult:
		return "no_result"
	case OutcomeNoConnection:
		return "no_connection"
	case OutcomeQueryError:
		return "query_error"
	default:
		return "none"
	}
}

// Outcome is the result of one query attempt.
type Outcome struct {
	Kind  OutcomeKind
	Nodes int64
	Rels  int64
	Err   error
}

// Text formats the outcome for display. NoConnection and QueryError share
// the same text; Kind keeps them apart.
func (o Outcome) Text() string {
	switch o.Kind {
	case OutcomeSuccess:
		return fmt.Sprintf("n: %d - r: %d", o.Nodes, o.Rels)
	case OutcomeNoResult:
		return TextUnknown
	default:
		return TextError
	}
}
