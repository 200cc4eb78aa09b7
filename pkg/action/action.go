package action

import (
	"fmt"

	"github.com/scottsen/veinborn/pkg/event"
	"github.com/scottsen/veinborn/pkg/world"
)

// Action is the two-phase contract every action implementation follows,
// built-in or script-backed. Callers cannot distinguish origin.
//
// Validate must be side-effect free; it receives a read-only facade so a
// buggy implementation cannot mutate anyway. A false result carries a
// human-readable reason and guarantees zero state change.
//
// Execute assumes validation already passed. It is the only place state
// mutation happens. A returned error is a broken-engine signal (invariant
// violation), never an expected gameplay failure, and must surface.
type Action interface {
	Kind() string
	Validate(f *world.Facade, actorID int64, d Descriptor) (bool, string)
	Execute(f *world.Facade, actorID int64, d Descriptor) (event.Outcome, error)
}

// Registry maps action-kind names to implementations.
type Registry struct {
	actions map[string]Action
}

// NewRegistry returns a registry pre-loaded with the built-in actions.
func NewRegistry() *Registry {
	r := &Registry{actions: make(map[string]Action)}
	for _, a := range builtins() {
		// Built-in kinds never collide.
		r.actions[a.Kind()] = a
	}
	return r
}

// Register adds an implementation. Each kind maps to exactly one
// implementation; re-registering a kind is an error.
func (r *Registry) Register(a Action) error {
	if _, exists := r.actions[a.Kind()]; exists {
		return fmt.Errorf("action kind %q already registered", a.Kind())
	}
	r.actions[a.Kind()] = a
	return nil
}

// Resolve looks up the implementation for a kind.
func (r *Registry) Resolve(kind string) (Action, bool) {
	a, ok := r.actions[kind]
	return a, ok
}

// Kinds returns the registered kind names.
func (r *Registry) Kinds() []string {
	out := make([]string, 0, len(r.actions))
	for k := range r.actions {
		out = append(out, k)
	}
	return out
}

// Perform runs the full two-phase protocol for one actor: validate against
// a read-only view, and only on success execute against the live world.
// A rejected action therefore can never partially apply.
//
// The returned error is reserved for engine invariant violations and must
// not be swallowed; expected failures come back as an unsuccessful outcome.
func (r *Registry) Perform(f *world.Facade, actorID int64, d Descriptor) (event.Outcome, error) {
	a, ok := r.Resolve(d.Kind)
	if !ok {
		return event.Failure(fmt.Sprintf("unknown action %q", d.Kind)), nil
	}
	if ok, reason := a.Validate(f.ReadOnly(), actorID, d); !ok {
		if reason == "" {
			reason = fmt.Sprintf("%s: not possible", d.Kind)
		}
		return event.Failure(reason), nil
	}
	out, err := a.Execute(f, actorID, d)
	if err != nil {
		return event.Outcome{}, fmt.Errorf("execute %s: %w", d.Kind, err)
	}
	return out, nil
}
