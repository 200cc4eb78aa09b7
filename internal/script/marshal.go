package script

import (
	"fmt"
	"math"

	lua "github.com/yuin/gopher-lua"

	"github.com/scottsen/veinborn/pkg/action"
	"github.com/scottsen/veinborn/pkg/entity"
	"github.com/scottsen/veinborn/pkg/event"
)

// Marshaling between Go and the Lua sandbox. Everything that crosses the
// boundary is plain data: numbers, booleans, strings, and tables of those.
// Anything else is dropped on the way in and rejected on the way out.

// entityToTable builds the read-only snapshot handed to scripts.
func entityToTable(L *lua.LState, e *entity.Entity) lua.LValue {
	if e == nil {
		return lua.LNil
	}
	t := L.NewTable()
	t.RawSetString("id", lua.LNumber(e.ID))
	t.RawSetString("name", lua.LString(e.Name))
	t.RawSetString("type", lua.LString(string(e.Type)))
	t.RawSetString("alive", lua.LBool(e.Alive))
	if e.Pos != nil {
		t.RawSetString("x", lua.LNumber(e.Pos.X))
		t.RawSetString("y", lua.LNumber(e.Pos.Y))
	}
	t.RawSetString("stats", mapToTable(L, e.Stats))
	return t
}

// mapToTable converts a flat Go map into a Lua table.
func mapToTable(L *lua.LState, m map[string]any) *lua.LTable {
	t := L.NewTable()
	for k, v := range m {
		t.RawSetString(k, goToLua(L, v))
	}
	return t
}

func goToLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case map[string]any:
		return mapToTable(L, val)
	case []any:
		t := L.NewTable()
		for _, item := range val {
			t.Append(goToLua(L, item))
		}
		return t
	default:
		return lua.LNil
	}
}

// luaToGo converts a Lua value back to plain data. Tables become either a
// []any (contiguous 1..n integer keys) or a map[string]any; whole numbers
// stay float64 so stat maps round-trip through JSON unchanged.
func luaToGo(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		return tableToGo(val)
	default:
		return nil
	}
}

func tableToGo(t *lua.LTable) any {
	n := t.Len()
	if n > 0 {
		// Treat as an array when every key is a contiguous integer index.
		isArray := true
		count := 0
		t.ForEach(func(k, _ lua.LValue) {
			count++
			num, ok := k.(lua.LNumber)
			if !ok || float64(num) != math.Trunc(float64(num)) || int(num) < 1 || int(num) > n {
				isArray = false
			}
		})
		if isArray && count == n {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, luaToGo(t.RawGetInt(i)))
			}
			return out
		}
	}
	return tableToMap(t)
}

func tableToMap(t *lua.LTable) map[string]any {
	out := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		switch key := k.(type) {
		case lua.LString:
			out[string(key)] = luaToGo(v)
		case lua.LNumber:
			out[key.String()] = luaToGo(v)
		}
	})
	return out
}

// descriptorFromValue converts a decide() return into a descriptor.
// A non-table value or a missing action kind is malformed.
func descriptorFromValue(v lua.LValue) (action.Descriptor, error) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return action.Descriptor{}, fmt.Errorf("decision returned %s, want table", v.Type())
	}
	m := tableToMap(t)
	d := action.FromTable(m)
	if d.Kind == "" {
		return action.Descriptor{}, fmt.Errorf("decision table has no action kind")
	}
	return d, nil
}

// outcomeFromValue converts an execute() return into an outcome. The table
// must carry success and took_turn booleans; messages and events are
// optional ordered arrays.
func outcomeFromValue(v lua.LValue) (event.Outcome, error) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return event.Outcome{}, fmt.Errorf("execute returned %s, want table", v.Type())
	}

	var out event.Outcome
	success, ok := t.RawGetString("success").(lua.LBool)
	if !ok {
		return event.Outcome{}, fmt.Errorf("outcome table has no boolean success field")
	}
	out.Success = bool(success)
	tookTurn, ok := t.RawGetString("took_turn").(lua.LBool)
	if !ok {
		return event.Outcome{}, fmt.Errorf("outcome table has no boolean took_turn field")
	}
	out.TookTurn = bool(tookTurn)

	if msgs, ok := t.RawGetString("messages").(*lua.LTable); ok {
		for i := 1; i <= msgs.Len(); i++ {
			out.Messages = append(out.Messages, lua.LVAsString(msgs.RawGetInt(i)))
		}
	}
	if evs, ok := t.RawGetString("events").(*lua.LTable); ok {
		for i := 1; i <= evs.Len(); i++ {
			evTable, ok := evs.RawGetInt(i).(*lua.LTable)
			if !ok {
				return event.Outcome{}, fmt.Errorf("outcome event %d is not a table", i)
			}
			ev, err := eventFromTable(evTable)
			if err != nil {
				return event.Outcome{}, fmt.Errorf("outcome event %d: %w", i, err)
			}
			out.Events = append(out.Events, ev)
		}
	}
	return out, nil
}

func eventFromTable(t *lua.LTable) (event.Event, error) {
	m := tableToMap(t)
	typ, _ := m["type"].(string)
	if typ == "" {
		return event.Event{}, fmt.Errorf("event has no type tag")
	}
	ev := event.Event{Type: event.Type(typ)}
	delete(m, "type")
	if n, ok := m["actor_id"].(float64); ok {
		ev.ActorID = int64(n)
		delete(m, "actor_id")
	}
	if n, ok := m["target_id"].(float64); ok {
		ev.TargetID = int64(n)
		delete(m, "target_id")
	}
	if n, ok := m["amount"].(float64); ok {
		ev.Amount = n
		delete(m, "amount")
	}
	if len(m) > 0 {
		ev.Payload = m
	}
	return ev, nil
}
