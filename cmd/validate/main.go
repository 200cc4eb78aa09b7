package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/scottsen/veinborn/internal/script"
	"github.com/scottsen/veinborn/internal/storage"
	"github.com/scottsen/veinborn/pkg/entity"
	"github.com/scottsen/veinborn/pkg/world"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <pack.yaml>\n", os.Args[0])
		os.Exit(1)
	}

	filename := os.Args[1]
	validator := &PackValidator{
		bridge: script.NewBridge(200*time.Millisecond, slog.New(slog.NewTextHandler(os.Stderr, nil))),
	}

	if err := validator.validateFile(filename); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Behavior pack is valid!")
}

type PackValidator struct {
	bridge *script.Bridge
	errors []string
}

func (v *PackValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	// Validate filename format
	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".yaml") {
		return fmt.Errorf("behavior pack must have .yaml extension: %s", baseName)
	}

	nameWithoutExt := strings.TrimSuffix(baseName, ".yaml")
	if !isValidPackFilename(nameWithoutExt) {
		return fmt.Errorf("pack filename '%s' must be lowercase snake_case (e.g., my_pack.yaml, not my-pack.yaml or MyPack.yaml)", baseName)
	}

	pack, err := storage.LoadPack(filename)
	if err != nil {
		return fmt.Errorf("failed to load pack %s: %w", filename, err)
	}

	v.errors = nil
	v.validatePack(pack)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}

	return nil
}

func (v *PackValidator) validatePack(pack *storage.BehaviorPack) {
	if len(pack.Behaviors) == 0 && len(pack.Actions) == 0 {
		v.addError("pack declares no behaviors and no actions")
		return
	}

	for id, ref := range pack.Behaviors {
		v.validateIDFormat("behavior ID", id)
		context := fmt.Sprintf("behavior %s", id)
		v.validateScript(context, ref.Script, []string{"decide"})
		v.probeDecide(context, ref.Script, ref.Config)
	}

	for kind, ref := range pack.Actions {
		v.validateIDFormat("action kind", kind)
		v.validateScript(fmt.Sprintf("action %s", kind), ref.Script, []string{"validate", "execute"})
	}
}

// validateScript compiles the source and checks the expected entry
// points are declared. Compilation catches syntax errors; the textual
// entry check catches a manifest pointed at the wrong script.
func (v *PackValidator) validateScript(context, path string, entries []string) {
	if err := v.bridge.Load(path); err != nil {
		v.addError(fmt.Sprintf("%s: %v", context, err))
		return
	}

	src, err := os.ReadFile(path)
	if err != nil {
		v.addError(fmt.Sprintf("%s: %v", context, err))
		return
	}
	for _, entry := range entries {
		if !entryRegex(entry).Match(src) {
			v.addError(fmt.Sprintf("%s: script %s does not define function '%s'", context, filepath.Base(path), entry))
		}
	}
}

// probeDecide invokes decide once against a throwaway two-entity world,
// catching scripts that compile but crash or return garbage on first
// contact.
func (v *PackValidator) probeDecide(context, path string, cfg map[string]any) {
	w := world.New(world.Config{Width: 8, Height: 8, Seed: 1})

	hero := entity.New("Probe Hero", entity.TypePlayer)
	hero.Pos = &entity.Position{X: 1, Y: 1}
	hero.Set(entity.StatHP, 10)
	hero.Set(entity.StatMaxHP, 10)
	if _, err := w.Spawn(hero); err != nil {
		v.addError(fmt.Sprintf("%s: probe world: %v", context, err))
		return
	}

	mob := entity.New("Probe Monster", entity.TypeMonster)
	mob.Pos = &entity.Position{X: 5, Y: 5}
	mob.Set(entity.StatHP, 6)
	mob.Set(entity.StatMaxHP, 6)
	id, err := w.Spawn(mob)
	if err != nil {
		v.addError(fmt.Sprintf("%s: probe world: %v", context, err))
		return
	}

	f := world.NewFacade(w)
	desc, err := v.bridge.Decide(f.ScopedTo(id), path, mob.Clone(), cfg)
	if err != nil {
		v.addError(fmt.Sprintf("%s: probe decide: %v", context, err))
		return
	}
	if desc.Kind == "" {
		v.addError(fmt.Sprintf("%s: probe decide returned no action kind", context))
	}
}

func (v *PackValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}

	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *PackValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var (
	validIDRegex       = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
	validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
)

func entryRegex(entry string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^\s*function\s+` + regexp.QuoteMeta(entry) + `\s*\(`)
}

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

func isValidPackFilename(name string) bool {
	// Allow 'x.' prefix for experimental packs
	name = strings.TrimPrefix(name, "x.")
	return validFilenameRegex.MatchString(name)
}
