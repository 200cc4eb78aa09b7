package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/scottsen/veinborn/pkg/entity"
	"github.com/scottsen/veinborn/pkg/world"
)

// bindWorld installs the capability facade as the global "world" table.
// This is the only callable surface inside the sandbox; which operations
// succeed depends on the facade's mode (read-only for validate phases,
// scoped to the actor for decision phases, full for execute phases).
//
// Mutations that the facade refuses are raised as Lua errors, so a validate
// script that tries to cheat fails its protected call instead of changing
// anything.
func bindWorld(L *lua.LState, f *world.Facade) {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"player": func(L *lua.LState) int {
			L.Push(entityToTable(L, f.Player()))
			return 1
		},
		"entity": func(L *lua.LState) int {
			id := int64(L.CheckNumber(1))
			L.Push(entityToTable(L, f.Entity(id)))
			return 1
		},
		"entities_within": func(L *lua.LState) int {
			pos := entity.Position{X: int(L.CheckNumber(1)), Y: int(L.CheckNumber(2))}
			radius := int(L.CheckNumber(3))
			t := L.NewTable()
			for _, e := range f.EntitiesWithin(pos, radius) {
				t.Append(entityToTable(L, e))
			}
			L.Push(t)
			return 1
		},
		"modify_stat": func(L *lua.LState) int {
			id := int64(L.CheckNumber(1))
			key := L.CheckString(2)
			delta := float64(L.CheckNumber(3))
			if err := f.ModifyStat(id, key, delta); err != nil {
				L.RaiseError("modify_stat: %s", err)
			}
			return 0
		},
		"set_stat": func(L *lua.LState) int {
			id := int64(L.CheckNumber(1))
			key := L.CheckString(2)
			value := luaToGo(L.CheckAny(3))
			if err := f.SetStat(id, key, value); err != nil {
				L.RaiseError("set_stat: %s", err)
			}
			return 0
		},
		"log": func(L *lua.LState) int {
			if err := f.Log(L.CheckString(1)); err != nil {
				L.RaiseError("log: %s", err)
			}
			return 0
		},
		"distance": func(L *lua.LState) int {
			d, ok := f.Distance(int64(L.CheckNumber(1)), int64(L.CheckNumber(2)))
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LNumber(d))
			return 1
		},
		"adjacent": func(L *lua.LState) int {
			L.Push(lua.LBool(f.Adjacent(int64(L.CheckNumber(1)), int64(L.CheckNumber(2)))))
			return 1
		},
		"turn": func(L *lua.LState) int {
			L.Push(lua.LNumber(f.Turn()))
			return 1
		},
		"random": func(L *lua.LState) int {
			L.Push(lua.LNumber(f.Random(int(L.CheckNumber(1)))))
			return 1
		},
	})
	L.SetGlobal("world", mod)
}
