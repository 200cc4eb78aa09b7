package action

import "encoding/json"

// Built-in action kinds. Anything else resolves through the registry to a
// script-backed implementation, or fails validation as unknown.
const (
	KindAttack      = "attack"
	KindMoveTowards = "move_towards"
	KindFleeFrom    = "flee_from"
	KindWander      = "wander"
	KindIdle        = "idle"
)

// Descriptor is the immutable, declarative intent produced by decision
// logic. It is never itself executable; the registry pairs it with an
// implementation and an actor to form an action.
//
// Wire shape: {"action": kind, "target_id"?, "x"?, "y"?, ...extra}. Extra
// keys are flattened into the same object, matching what decision scripts
// return.
type Descriptor struct {
	Kind     string
	TargetID int64
	X, Y     *int
	Extra    map[string]any
}

// NewDescriptor builds a descriptor of the given kind.
func NewDescriptor(kind string) Descriptor {
	return Descriptor{Kind: kind}
}

// WithTarget returns a copy aimed at the given entity.
func (d Descriptor) WithTarget(id int64) Descriptor {
	d.TargetID = id
	return d
}

// WithPos returns a copy aimed at the given cell.
func (d Descriptor) WithPos(x, y int) Descriptor {
	d.X, d.Y = &x, &y
	return d
}

// Number reads a numeric parameter from the extras, with a default.
func (d Descriptor) Number(key string, def float64) float64 {
	switch v := d.Extra[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

// Params flattens the descriptor into the plain table handed to action
// scripts: target_id, x, y and every extra key.
func (d Descriptor) Params() map[string]any {
	p := make(map[string]any, len(d.Extra)+3)
	for k, v := range d.Extra {
		p[k] = v
	}
	if d.TargetID != 0 {
		p["target_id"] = float64(d.TargetID)
	}
	if d.X != nil {
		p["x"] = float64(*d.X)
	}
	if d.Y != nil {
		p["y"] = float64(*d.Y)
	}
	return p
}

// MarshalJSON flattens extras into the top-level object.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(d.Extra)+4)
	for k, v := range d.Extra {
		m[k] = v
	}
	m["action"] = d.Kind
	if d.TargetID != 0 {
		m["target_id"] = d.TargetID
	}
	if d.X != nil {
		m["x"] = *d.X
	}
	if d.Y != nil {
		m["y"] = *d.Y
	}
	return json.Marshal(m)
}

// UnmarshalJSON accepts the flattened wire shape.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*d = FromTable(m)
	return nil
}

// FromTable builds a descriptor from a decoded wire object or a marshaled
// script return. Unknown keys land in Extra; the caller decides whether
// the kind itself is acceptable.
func FromTable(m map[string]any) Descriptor {
	d := Descriptor{Extra: make(map[string]any)}
	for k, v := range m {
		switch k {
		case "action":
			if s, ok := v.(string); ok {
				d.Kind = s
			}
		case "target_id":
			if n, ok := asFloat(v); ok {
				d.TargetID = int64(n)
			}
		case "x":
			if n, ok := asFloat(v); ok {
				x := int(n)
				d.X = &x
			}
		case "y":
			if n, ok := asFloat(v); ok {
				y := int(n)
				d.Y = &y
			}
		default:
			d.Extra[k] = v
		}
	}
	if len(d.Extra) == 0 {
		d.Extra = nil
	}
	return d
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
