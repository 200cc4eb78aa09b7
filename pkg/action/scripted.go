package action

import (
	"fmt"

	"github.com/scottsen/veinborn/pkg/event"
	"github.com/scottsen/veinborn/pkg/world"
)

// ScriptBackend is implemented by the script runtime bridge. Params is the
// flattened descriptor table. A returned error is a script fault; the
// wrapper maps it onto the action contract so callers see the same
// validate/execute protocol as for built-ins.
type ScriptBackend interface {
	ValidateAction(f *world.Facade, actorID int64, params map[string]any) (bool, string, error)
	ExecuteAction(f *world.Facade, actorID int64, params map[string]any) (event.Outcome, error)
}

// Scripted adapts a script's validate/execute entry points to the Action
// contract. From the registry's point of view it is indistinguishable from
// a built-in.
type Scripted struct {
	kind    string
	backend ScriptBackend
}

// NewScripted wraps a script backend as an action of the given kind.
func NewScripted(kind string, backend ScriptBackend) *Scripted {
	return &Scripted{kind: kind, backend: backend}
}

func (s *Scripted) Kind() string { return s.kind }

// Validate runs the script's validate entry against the read-only view it
// receives. A script fault during validation is an ordinary rejection:
// a faulty action must not execute.
func (s *Scripted) Validate(f *world.Facade, actorID int64, d Descriptor) (bool, string) {
	ok, reason, err := s.backend.ValidateAction(f, actorID, d.Params())
	if err != nil {
		return false, fmt.Sprintf("%s: script fault during validate", s.kind)
	}
	return ok, reason
}

// Execute runs the script's execute entry. A fault here comes back as a
// failed outcome rather than an engine error: the state the script managed
// to change before faulting has already been contained to facade
// operations, and the caller's fallback path takes over.
func (s *Scripted) Execute(f *world.Facade, actorID int64, d Descriptor) (event.Outcome, error) {
	out, err := s.backend.ExecuteAction(f, actorID, d.Params())
	if err != nil {
		return event.Failure(fmt.Sprintf("%s: script fault during execute", s.kind)), nil
	}
	return out, nil
}
