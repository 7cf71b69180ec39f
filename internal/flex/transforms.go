package flex

import (
	"regexp"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Tag helper functions for accept scripts

var whitespaceRegex = regexp.MustCompile(`\s+`)

// RegisterTransforms registers the helper functions in the Lua state, both
// under osmpoi.transforms and as globals
func RegisterTransforms(L *lua.LState) {
	funcs := map[string]lua.LGFunction{
		"trim":         luaTrim,
		"lower":        luaLower,
		"upper":        luaUpper,
		"clean_spaces": luaCleanSpaces,
		"split":        luaSplit,
		"has_tag":      luaHasTag,
		"tag_in":       luaTagIn,
		"parse_int":    luaParseInt,
		"get_name":     luaGetName,
	}

	transforms := L.NewTable()
	for name, fn := range funcs {
		f := L.NewFunction(fn)
		L.SetField(transforms, name, f)
		L.SetGlobal(name, f)
	}

	module := L.GetGlobal(moduleName)
	if module == lua.LNil {
		module = L.NewTable()
		L.SetGlobal(moduleName, module)
	}
	L.SetField(module.(*lua.LTable), "transforms", transforms)
}

// luaTrim trims whitespace from a string
func luaTrim(L *lua.LState) int {
	L.Push(lua.LString(strings.TrimSpace(L.CheckString(1))))
	return 1
}

func luaLower(L *lua.LState) int {
	L.Push(lua.LString(strings.ToLower(L.CheckString(1))))
	return 1
}

func luaUpper(L *lua.LState) int {
	L.Push(lua.LString(strings.ToUpper(L.CheckString(1))))
	return 1
}

// luaCleanSpaces collapses runs of whitespace and trims
func luaCleanSpaces(L *lua.LState) int {
	s := whitespaceRegex.ReplaceAllString(L.CheckString(1), " ")
	L.Push(lua.LString(strings.TrimSpace(s)))
	return 1
}

// luaSplit splits a multi-value tag into a sequence of trimmed, non-empty
// parts. The separator defaults to ";".
// Usage: split("thai; isaan") -> {"thai", "isaan"}
func luaSplit(L *lua.LState) int {
	s := L.CheckString(1)
	sep := L.OptString(2, ";")

	out := L.NewTable()
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out.Append(lua.LString(part))
		}
	}
	L.Push(out)
	return 1
}

// luaHasTag reports whether a tag table carries a non-empty key
// Usage: has_tag(tags, "name:en")
func luaHasTag(L *lua.LState) int {
	tags := L.CheckTable(1)
	key := L.CheckString(2)
	v := tags.RawGetString(key)
	L.Push(lua.LBool(v != lua.LNil && strings.TrimSpace(lua.LVAsString(v)) != ""))
	return 1
}

// luaTagIn reports whether tags[key] equals one of the remaining arguments
// Usage: tag_in(tags, "amenity", "restaurant", "fast_food")
func luaTagIn(L *lua.LState) int {
	tags := L.CheckTable(1)
	key := L.CheckString(2)
	v := tags.RawGetString(key)
	if v == lua.LNil {
		L.Push(lua.LFalse)
		return 1
	}
	val := lua.LVAsString(v)
	for i := 3; i <= L.GetTop(); i++ {
		if L.CheckString(i) == val {
			L.Push(lua.LTrue)
			return 1
		}
	}
	L.Push(lua.LFalse)
	return 1
}

// luaParseInt parses string to integer with optional default
func luaParseInt(L *lua.LState) int {
	s := strings.TrimSpace(L.CheckString(1))
	if val, err := strconv.ParseInt(s, 10, 64); err == nil {
		L.Push(lua.LNumber(val))
		return 1
	}
	if L.GetTop() >= 2 {
		L.Push(L.Get(2))
	} else {
		L.Push(lua.LNil)
	}
	return 1
}

// luaGetName returns the first non-empty of name, name:en, name:th
func luaGetName(L *lua.LState) int {
	tags := L.CheckTable(1)
	for _, key := range []string{"name", "name:en", "name:th"} {
		if s := strings.TrimSpace(lua.LVAsString(tags.RawGetString(key))); s != "" {
			L.Push(lua.LString(s))
			return 1
		}
	}
	L.Push(lua.LNil)
	return 1
}
