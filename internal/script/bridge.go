// Package script is the runtime bridge between the engine and external Lua
// behavior/action scripts. Scripts are untrusted: each invocation runs in a
// fresh sandboxed interpreter whose only callable surface is the capability
// facade, under a bounded execution budget. Anything a script does wrong is
// contained as a Fault; it never aborts the turn loop.
package script

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"

	"github.com/scottsen/veinborn/pkg/action"
	"github.com/scottsen/veinborn/pkg/entity"
	"github.com/scottsen/veinborn/pkg/event"
	"github.com/scottsen/veinborn/pkg/world"
)

const defaultBudget = 50 * time.Millisecond

// Bridge loads, compiles and caches scripts, and invokes their entry
// points. Compilation happens once per path; every invocation gets a fresh
// interpreter state, so scripts cannot keep private memory between calls;
// whatever they need to remember goes into their entity's stat map.
type Bridge struct {
	budget time.Duration
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]*lua.FunctionProto
}

// NewBridge creates a bridge with the given per-invocation execution
// budget. A zero budget uses the default.
func NewBridge(budget time.Duration, logger *slog.Logger) *Bridge {
	if budget <= 0 {
		budget = defaultBudget
	}
	return &Bridge{
		budget: budget,
		logger: logger,
		cache:  make(map[string]*lua.FunctionProto),
	}
}

// Load compiles and caches a script, reporting any load fault. The
// validator calls this up front; regular invocations load lazily.
func (b *Bridge) Load(path string) error {
	_, err := b.compiled(path)
	return err
}

// Decide invokes a behavior script's decide(actor, config) entry and
// returns the action descriptor it produced. The actor table is a
// snapshot; cfg is the behavior's flat configuration table.
func (b *Bridge) Decide(f *world.Facade, path string, actor *entity.Entity, cfg map[string]any) (action.Descriptor, error) {
	rets, err := b.call(f, path, "decide", 1, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{entityToTable(L, actor), mapToTable(L, cfg)}
	})
	if err != nil {
		return action.Descriptor{}, err
	}
	desc, err := descriptorFromValue(rets[0])
	if err != nil {
		return action.Descriptor{}, newFault(path, StageMalformed, err)
	}
	return desc, nil
}

// Backend returns a ScriptBackend for an action script exposing
// validate(actor_id, params) and execute(actor_id, params).
func (b *Bridge) Backend(path string) action.ScriptBackend {
	return &backend{bridge: b, path: path}
}

type backend struct {
	bridge *Bridge
	path   string
}

func (s *backend) ValidateAction(f *world.Facade, actorID int64, params map[string]any) (bool, string, error) {
	rets, err := s.bridge.call(f, s.path, "validate", 2, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{lua.LNumber(actorID), mapToTable(L, params)}
	})
	if err != nil {
		return false, "", err
	}
	ok := lua.LVAsBool(rets[0])
	reason := ""
	if s, isStr := rets[1].(lua.LString); isStr {
		reason = string(s)
	}
	return ok, reason, nil
}

func (s *backend) ExecuteAction(f *world.Facade, actorID int64, params map[string]any) (event.Outcome, error) {
	rets, err := s.bridge.call(f, s.path, "execute", 1, func(L *lua.LState) []lua.LValue {
		return []lua.LValue{lua.LNumber(actorID), mapToTable(L, params)}
	})
	if err != nil {
		return event.Outcome{}, err
	}
	out, err := outcomeFromValue(rets[0])
	if err != nil {
		return event.Outcome{}, newFault(s.path, StageMalformed, err)
	}
	return out, nil
}

func (b *Bridge) compiled(path string) (*lua.FunctionProto, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if proto, ok := b.cache[path]; ok {
		return proto, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, newFault(path, StageLoad, err)
	}
	chunk, err := parse.Parse(strings.NewReader(string(src)), path)
	if err != nil {
		return nil, newFault(path, StageLoad, err)
	}
	proto, err := lua.Compile(chunk, path)
	if err != nil {
		return nil, newFault(path, StageLoad, err)
	}
	b.cache[path] = proto
	return proto, nil
}

// call runs one script entry point in a fresh sandboxed state.
func (b *Bridge) call(f *world.Facade, path, entry string, nret int, args func(*lua.LState) []lua.LValue) ([]lua.LValue, error) {
	proto, err := b.compiled(path)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.budget)
	defer cancel()

	L := b.newState(ctx, f)
	defer L.Close()

	// Run the chunk to define its entry functions.
	L.Push(L.NewFunctionFromProto(proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return nil, b.fault(ctx, path, entry, err)
	}
	L.SetTop(0)

	fn := L.GetGlobal(entry)
	if fn.Type() != lua.LTFunction {
		return nil, faultf(path, StageMalformed, "script does not define %s()", entry)
	}
	if err := L.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args(L)...); err != nil {
		return nil, b.fault(ctx, path, entry, err)
	}

	rets := make([]lua.LValue, nret)
	for i := 0; i < nret; i++ {
		rets[i] = L.Get(-nret + i)
	}
	L.Pop(nret)
	return rets, nil
}

// newState builds a fresh interpreter with only the safe libraries opened
// and no file, process or network primitives reachable. The capability
// facade is the single way out of the sandbox.
func (b *Bridge) newState(ctx context.Context, f *world.Facade) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	// Base leaves a few escape hatches open; close them. print goes too:
	// stdout is a nondeterministic side channel, scripts log via the
	// facade instead.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "print"} {
		L.SetGlobal(name, lua.LNil)
	}
	// Scripts draw randomness from the world's seeded source, never from
	// the interpreter's own generator.
	if math, ok := L.GetGlobal(lua.MathLibName).(*lua.LTable); ok {
		math.RawSetString("random", lua.LNil)
		math.RawSetString("randomseed", lua.LNil)
	}

	bindWorld(L, f)
	L.SetContext(ctx)
	return L
}

func (b *Bridge) fault(ctx context.Context, path, entry string, err error) *Fault {
	if ctx.Err() != nil {
		return newFault(path, StageTimeout, ctx.Err())
	}
	if b.logger != nil {
		b.logger.Debug("script error", "script", path, "entry", entry, "error", err)
	}
	return newFault(path, entry, err)
}
