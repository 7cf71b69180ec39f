// Package flex runs user Lua scripts that decide which entities reach
// classification.
//
// A script defines a global function
//
//	function accept(kind, id, tags, location)
//	    return tags["addr:province"] ~= "Chiang Mai"
//	end
//
// where kind is "node", "way" or "relation", tags is a plain table and
// location is {lat=..., lon=...} for nodes and nil otherwise. A falsy
// return value discards the entity.
package flex

import (
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/wegman-software/osmpoi/internal/logger"
	"github.com/wegman-software/osmpoi/internal/poi"
)

const (
	moduleName  = "osmpoi"
	acceptFunc  = "accept"
	hookVersion = "1.0.0"
)

// Hook wraps a Lua state holding an accept function. The state is guarded
// by a mutex, so Accept may be called from any goroutine but calls never
// overlap.
type Hook struct {
	L      *lua.LState
	mu     sync.Mutex
	accept lua.LValue
	log    *zap.Logger

	calls    int64
	rejected int64
}

func newHook() *Hook {
	h := &Hook{
		L:   lua.NewState(),
		log: logger.Named("lua"),
	}
	module := h.L.NewTable()
	module.RawSetString("version", lua.LString(hookVersion))
	h.L.SetGlobal(moduleName, module)

	RegisterTransforms(h.L)
	h.L.SetGlobal("print", h.L.NewFunction(h.luaPrint))
	return h
}

// LoadHook loads a script file
func LoadHook(path string) (*Hook, error) {
	h := newHook()
	if err := h.L.DoFile(path); err != nil {
		h.Close()
		return nil, fmt.Errorf("failed to load Lua file: %w", err)
	}
	if err := h.bind(); err != nil {
		h.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

// NewHook loads a script from source code
func NewHook(code string) (*Hook, error) {
	h := newHook()
	if err := h.L.DoString(code); err != nil {
		h.Close()
		return nil, fmt.Errorf("failed to load Lua code: %w", err)
	}
	if err := h.bind(); err != nil {
		h.Close()
		return nil, err
	}
	return h, nil
}

func (h *Hook) bind() error {
	fn := h.L.GetGlobal(acceptFunc)
	if fn.Type() != lua.LTFunction {
		return fmt.Errorf("script does not define function %q", acceptFunc)
	}
	h.accept = fn
	return nil
}

// Close releases Lua resources
func (h *Hook) Close() {
	h.L.Close()
}

// Accept calls the script for one entity
func (h *Hook) Accept(e *poi.Entity) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	L := h.L
	tags := L.CreateTable(0, len(e.Tags))
	for k, v := range e.Tags {
		tags.RawSetString(k, lua.LString(v))
	}

	var location lua.LValue = lua.LNil
	if e.Ref.Kind == poi.KindNode && e.Location != nil {
		loc := L.CreateTable(0, 2)
		loc.RawSetString("lat", lua.LNumber(e.Location.Lat))
		loc.RawSetString("lon", lua.LNumber(e.Location.Lon))
		location = loc
	}

	if err := L.CallByParam(lua.P{
		Fn:      h.accept,
		NRet:    1,
		Protect: true,
	}, lua.LString(e.Ref.Kind.String()), lua.LNumber(e.Ref.ID), tags, location); err != nil {
		return false, fmt.Errorf("lua accept error: %w", err)
	}
	ret := L.Get(-1)
	L.Pop(1)

	h.calls++
	ok := lua.LVAsBool(ret)
	if !ok {
		h.rejected++
	}
	return ok, nil
}

// Stats returns the number of calls and rejections so far
func (h *Hook) Stats() (calls, rejected int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls, h.rejected
}

// luaPrint routes print() to the debug log
func (h *Hook) luaPrint(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	h.log.Debug(strings.Join(parts, "\t"))
	return 0
}
