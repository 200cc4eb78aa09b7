package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ScriptRef points a behavior or action kind at its Lua source and the
// flat configuration table handed to the script on every invocation.
type ScriptRef struct {
	Script string         `yaml:"script"`
	Config map[string]any `yaml:"config,omitempty"`
}

// BehaviorPack is the authored content of a dungeon: behavior ids for
// monsters and custom action kinds, each bound to a script. Script paths
// in the manifest are relative to the manifest file.
type BehaviorPack struct {
	Name      string               `yaml:"name"`
	Behaviors map[string]ScriptRef `yaml:"behaviors,omitempty"`
	Actions   map[string]ScriptRef `yaml:"actions,omitempty"`
}

// LoadPack reads a behavior pack manifest and resolves its script paths.
func LoadPack(path string) (*BehaviorPack, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read behavior pack: %w", err)
	}
	var pack BehaviorPack
	if err := yaml.Unmarshal(raw, &pack); err != nil {
		return nil, fmt.Errorf("parse behavior pack %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for id, ref := range pack.Behaviors {
		if ref.Script == "" {
			return nil, fmt.Errorf("behavior %q has no script", id)
		}
		ref.Script = filepath.Join(dir, ref.Script)
		ref.Config = normalizeConfig(ref.Config)
		pack.Behaviors[id] = ref
	}
	for kind, ref := range pack.Actions {
		if ref.Script == "" {
			return nil, fmt.Errorf("action %q has no script", kind)
		}
		ref.Script = filepath.Join(dir, ref.Script)
		ref.Config = normalizeConfig(ref.Config)
		pack.Actions[kind] = ref
	}
	return &pack, nil
}

// normalizeConfig coerces YAML numbers to float64 so config tables look
// identical to scripts regardless of whether they arrived via YAML or
// JSON.
func normalizeConfig(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case map[string]any:
		return normalizeConfig(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}
