// Package scripting runs gameplay scripts on a gopher-lua VM. Scripts
// define on_update(dt) and move entities through the engine table.
package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/emberforge/engine/internal/component"
	"github.com/emberforge/engine/internal/core/ecs"
)

// Bindings are the world views scripts may touch.
type Bindings struct {
	Transforms *ecs.Store[component.Transform]
	// Names maps scene entity names to entities for engine.find.
	Names map[string]ecs.EntityID
}

// Engine wraps a single gopher-lua VM. Single-goroutine access only.
type Engine struct {
	vm    *lua.LState
	b     Bindings
	log   *zap.Logger
	calls int
}

// NewEngine creates a Lua engine and loads all scripts from the given
// directory: core/ first, then the directory itself.
func NewEngine(scriptsDir string, b Bindings, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, b: b, log: log}
	e.register()

	for _, dir := range []string{filepath.Join(scriptsDir, "core"), scriptsDir} {
		if err := e.loadDir(dir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory in name order.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk of Lua source.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

func (e *Engine) register() {
	t := e.vm.NewTable()
	e.vm.SetFuncs(t, map[string]lua.LGFunction{
		"position":     e.luaPosition,
		"rotation":     e.luaRotation,
		"set_position": e.luaSetPosition,
		"set_rotation": e.luaSetRotation,
		"entities":     e.luaEntities,
		"find":         e.luaFind,
		"log":          e.luaLog,
	})
	e.vm.SetGlobal("engine", t)
}

// Update calls the global on_update(dt) if a script defined it. Script
// errors are logged and the frame continues.
func (e *Engine) Update(dtSeconds float64) {
	fn := e.vm.GetGlobal("on_update")
	if fn == lua.LNil {
		return
	}
	e.calls++
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(dtSeconds)); err != nil {
		e.log.Error("lua on_update error", zap.Error(err))
	}
}

// Calls returns how many times on_update ran.
func (e *Engine) Calls() int { return e.calls }

func checkEntity(L *lua.LState, n int) ecs.EntityID {
	return ecs.EntityID(uint64(L.CheckNumber(n)))
}

func checkVec3(L *lua.LState, n int) [3]float32 {
	return [3]float32{
		float32(L.CheckNumber(n)),
		float32(L.CheckNumber(n + 1)),
		float32(L.CheckNumber(n + 2)),
	}
}

func (e *Engine) luaPosition(L *lua.LState) int {
	tr, ok := e.b.Transforms.Get(checkEntity(L, 1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(tr.Position.X()))
	L.Push(lua.LNumber(tr.Position.Y()))
	L.Push(lua.LNumber(tr.Position.Z()))
	return 3
}

func (e *Engine) luaRotation(L *lua.LState) int {
	tr, ok := e.b.Transforms.Get(checkEntity(L, 1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(tr.Rotation.X()))
	L.Push(lua.LNumber(tr.Rotation.Y()))
	L.Push(lua.LNumber(tr.Rotation.Z()))
	return 3
}

// set_position and set_rotation are gameplay writes: they flag the
// Transform and teleport any simulated body.
func (e *Engine) luaSetPosition(L *lua.LState) int {
	id, v := checkEntity(L, 1), checkVec3(L, 2)
	tr, ok := e.b.Transforms.GetMut(id)
	if ok {
		tr.Position = v
	}
	L.Push(lua.LBool(ok))
	return 1
}

func (e *Engine) luaSetRotation(L *lua.LState) int {
	id, v := checkEntity(L, 1), checkVec3(L, 2)
	tr, ok := e.b.Transforms.GetMut(id)
	if ok {
		tr.Rotation = v
	}
	L.Push(lua.LBool(ok))
	return 1
}

func (e *Engine) luaEntities(L *lua.LState) int {
	ids := make([]ecs.EntityID, 0, e.b.Transforms.Len())
	e.b.Transforms.Each(func(id ecs.EntityID, _ *component.Transform) {
		ids = append(ids, id)
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	t := L.CreateTable(len(ids), 0)
	for _, id := range ids {
		t.Append(lua.LNumber(id))
	}
	L.Push(t)
	return 1
}

func (e *Engine) luaFind(L *lua.LState) int {
	id, ok := e.b.Names[L.CheckString(1)]
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(id))
	return 1
}

func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info("script", zap.String("msg", L.CheckString(1)))
	return 0
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
