package action

import (
	"encoding/json"
	"testing"
)

func TestDescriptorWireShape(t *testing.T) {
	desc := NewDescriptor("firestorm").WithPos(5, 7)
	desc.Extra = map[string]any{"damage": 12.0}

	data, err := json.Marshal(desc)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal to map failed: %v", err)
	}
	if m["action"] != "firestorm" {
		t.Errorf("action = %v, want firestorm", m["action"])
	}
	if m["damage"] != 12.0 {
		t.Errorf("extras should flatten to top level, got %v", m)
	}
	if _, present := m["target_id"]; present {
		t.Error("zero target_id should be omitted")
	}

	var back Descriptor
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.Kind != "firestorm" || back.X == nil || *back.X != 5 || *back.Y != 7 {
		t.Errorf("round trip lost fields: %+v", back)
	}
	if back.Number("damage", 0) != 12 {
		t.Errorf("round trip lost extras: %+v", back.Extra)
	}
}

func TestFromTable(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want func(Descriptor) bool
	}{
		{
			name: "attack with target",
			in:   map[string]any{"action": "attack", "target_id": 3.0},
			want: func(d Descriptor) bool {
				return d.Kind == "attack" && d.TargetID == 3 && d.X == nil
			},
		},
		{
			name: "cell target",
			in:   map[string]any{"action": "move_towards", "x": 4.0, "y": 9.0},
			want: func(d Descriptor) bool {
				return d.Kind == "move_towards" && d.X != nil && *d.X == 4 && *d.Y == 9
			},
		},
		{
			name: "unknown keys land in extras",
			in:   map[string]any{"action": "poison_dart", "target_id": 1.0, "potency": 2.0},
			want: func(d Descriptor) bool {
				return d.Kind == "poison_dart" && d.Number("potency", 0) == 2
			},
		},
		{
			name: "missing action yields empty kind",
			in:   map[string]any{"target_id": 1.0},
			want: func(d Descriptor) bool {
				return d.Kind == ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := FromTable(tt.in)
			if !tt.want(d) {
				t.Errorf("FromTable(%v) = %+v", tt.in, d)
			}
		})
	}
}

func TestParams(t *testing.T) {
	desc := NewDescriptor("poison_dart").WithTarget(4)
	desc.Extra = map[string]any{"potency": 2.0}

	p := desc.Params()
	if p["target_id"] != 4.0 {
		t.Errorf("target_id = %v (%T), want float64 4", p["target_id"], p["target_id"])
	}
	if p["potency"] != 2.0 {
		t.Errorf("extras missing from params: %v", p)
	}
	if _, present := p["x"]; present {
		t.Error("absent cell should not appear in params")
	}
}
