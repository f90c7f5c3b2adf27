package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/piecetable"
	"github.com/dshills/piecetable/internal/replay"
)

const tableTypeName = "piecetable"

// registerTableType installs the userdata metatable and the piecetable
// module table.
func registerTableType(s *State) {
	L := s.L
	mt := L.NewTypeMetatable(tableTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"insert":       s.tableInsert,
		"remove":       tableRemove,
		"remove_range": tableRemoveRange,
		"get":          tableGet,
		"len":          tableLen,
		"text":         tableText,
		"pieces":       tablePieces,
		"coalesce":     tableCoalesce,
		"validate":     tableValidate,
	}))
	L.SetField(mt, "__len", L.NewFunction(tableLen))
	L.SetField(mt, "__tostring", L.NewFunction(tableText))

	L.SetGlobal(tableTypeName, L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"new": func(L *lua.LState) int {
			L.Push(s.wrap(s.newTable(L.OptString(1, ""))))
			return 1
		},
	}))
}

func (s *State) wrap(t *piecetable.Table[string]) *lua.LUserData {
	ud := s.L.NewUserData()
	ud.Value = t
	s.L.SetMetatable(ud, s.L.GetTypeMetatable(tableTypeName))
	return ud
}

func checkTable(L *lua.LState) *piecetable.Table[string] {
	ud := L.CheckUserData(1)
	t, ok := ud.Value.(*piecetable.Table[string])
	if !ok {
		L.ArgError(1, "piecetable expected")
	}
	return t
}

// raise turns a Go error into a Lua error. It does not return when err is
// non-nil.
func raise(L *lua.LState, err error) {
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
}

// tableInsert inserts the clusters of a string at an index. A single
// cluster uses Insert; longer text is stored as one piece.
func (s *State) tableInsert(L *lua.LState) int {
	t := checkTable(L)
	i := L.CheckInt(2)
	clusters := replay.Segment(L.CheckString(3), s.normalize)
	if len(clusters) == 1 {
		raise(L, t.Insert(i, clusters[0]))
	} else {
		raise(L, t.InsertSlice(i, clusters))
	}
	return 0
}

func tableRemove(L *lua.LState) int {
	t := checkTable(L)
	v, err := t.Remove(L.CheckInt(2))
	raise(L, err)
	L.Push(lua.LString(v))
	return 1
}

func tableRemoveRange(L *lua.LState) int {
	t := checkTable(L)
	raise(L, t.RemoveRange(L.CheckInt(2), L.CheckInt(3)))
	return 0
}

func tableGet(L *lua.LState) int {
	t := checkTable(L)
	v, err := t.Get(L.CheckInt(2))
	raise(L, err)
	L.Push(lua.LString(v))
	return 1
}

func tableLen(L *lua.LState) int {
	L.Push(lua.LNumber(checkTable(L).Len()))
	return 1
}

func tableText(L *lua.LState) int {
	L.Push(lua.LString(replay.Join(checkTable(L).Slice())))
	return 1
}

func tablePieces(L *lua.LState) int {
	L.Push(lua.LNumber(checkTable(L).PieceCount()))
	return 1
}

func tableCoalesce(L *lua.LState) int {
	L.Push(lua.LNumber(checkTable(L).Coalesce()))
	return 1
}

func tableValidate(L *lua.LState) int {
	raise(L, checkTable(L).Validate())
	return 0
}
