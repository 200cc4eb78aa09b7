package script

import "fmt"

// Fault stages.
const (
	StageLoad      = "load"
	StageDecide    = "decide"
	StageValidate  = "validate"
	StageExecute   = "execute"
	StageTimeout   = "timeout"
	StageMalformed = "malformed"
)

// Fault is anything a script did wrong: a raised error, a blown execution
// budget, or a malformed return value. Faults are contained at the actor
// boundary; the caller substitutes a fallback action and logs exactly one
// diagnostic. A fault never carries engine-invariant meaning.
type Fault struct {
	Script string
	Stage  string
	Err    error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("script fault in %s (%s): %v", f.Script, f.Stage, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

func newFault(script, stage string, err error) *Fault {
	return &Fault{Script: script, Stage: stage, Err: err}
}

func faultf(script, stage, format string, args ...any) *Fault {
	return newFault(script, stage, fmt.Errorf(format, args...))
}
