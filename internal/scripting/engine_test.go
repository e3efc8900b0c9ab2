package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap/zaptest"

	"github.com/emberforge/engine/internal/component"
	"github.com/emberforge/engine/internal/core/ecs"
)

func newTestEngine(t *testing.T, script string) (*Engine, *ecs.Store[component.Transform], ecs.EntityID) {
	t.Helper()
	dir := t.TempDir()
	if script != "" {
		if err := os.WriteFile(filepath.Join(dir, "main.lua"), []byte(script), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	w := ecs.NewWorld(0)
	transforms := ecs.Register[component.Transform](w)
	e := w.CreateEntity()
	transforms.Insert(e, component.NewTransform(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}))

	eng, err := NewEngine(dir, Bindings{Transforms: transforms, Names: map[string]ecs.EntityID{"crate": e}}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(eng.Close)
	return eng, transforms, e
}

func TestOnUpdateMovesEntity(t *testing.T) {
	eng, transforms, e := newTestEngine(t, `
function on_update(dt)
  local id = engine.find("crate")
  local x, y, z = engine.position(id)
  engine.set_position(id, x + dt, y, z)
end
`)
	r := transforms.RegisterReader()
	eng.Update(0.5)

	tr, _ := transforms.Get(e)
	if tr.Position != (mgl32.Vec3{1.5, 2, 3}) {
		t.Errorf("position = %v", tr.Position)
	}
	evs := transforms.Read(r)
	if len(evs) != 1 || evs[0].Kind != ecs.Modified || evs[0].Origin != ecs.OriginGameplay {
		t.Errorf("events = %+v", evs)
	}
	if eng.Calls() != 1 {
		t.Errorf("calls = %d", eng.Calls())
	}
}

func TestEntitiesAndMissing(t *testing.T) {
	eng, _, _ := newTestEngine(t, "")
	if err := eng.DoString(`
ids = engine.entities()
count = #ids
missing = engine.set_rotation(99999, 0, 0, 0)
`); err != nil {
		t.Fatal(err)
	}
	if n := eng.vm.GetGlobal("count"); n.String() != "1" {
		t.Errorf("count = %v", n)
	}
	if eng.vm.GetGlobal("missing").String() != "false" {
		t.Error("set_rotation on missing entity should return false")
	}
}

func TestScriptErrorDoesNotPanic(t *testing.T) {
	eng, _, _ := newTestEngine(t, `function on_update(dt) error("boom") end`)
	eng.Update(0.016)
	if eng.Calls() != 1 {
		t.Errorf("calls = %d", eng.Calls())
	}
}

func TestNoHook(t *testing.T) {
	eng, _, _ := newTestEngine(t, "")
	eng.Update(0.016)
	if eng.Calls() != 0 {
		t.Errorf("calls = %d without on_update", eng.Calls())
	}
}
