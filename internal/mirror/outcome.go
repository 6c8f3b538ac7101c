package mirror

// Outcome classifies a best-effort step. Distinguishing "nothing to do"
// from "failed but deliberately ignored" lets tests and logs assert on
// the ignored case without turning it into an error.
type Outcome int

const (
	// Done means the step ran and succeeded.
	Done Outcome = iota

	// NotApplicable means the step had nothing to do (e.g. deleting a
	// stale branch that does not exist).
	NotApplicable

	// Ignored means the step failed and the failure was deliberately
	// swallowed, because its absence is a valid state.
	Ignored
)

func (o Outcome) String() string {
	switch o {
	case Done:
		return "done"
	case NotApplicable:
		return "not applicable"
	case Ignored:
		return "ignored failure"
	default:
		return "unknown"
	}
}
