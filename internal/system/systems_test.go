package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/emberforge/engine/internal/asset"
	"github.com/emberforge/engine/internal/component"
	"github.com/emberforge/engine/internal/core/ecs"
	"github.com/emberforge/engine/internal/core/event"
	"github.com/emberforge/engine/internal/gfx/headless"
	"github.com/emberforge/engine/internal/input"
	"github.com/emberforge/engine/internal/persist"
	"github.com/emberforge/engine/internal/render"
	"github.com/emberforge/engine/internal/scripting"
)

func cameraRig(t *testing.T) (*ecs.World, *ecs.Store[component.Transform], *component.ActiveCamera, ecs.EntityID) {
	t.Helper()
	w := ecs.NewWorld(0)
	transforms := ecs.Register[component.Transform](w)
	cam := w.CreateEntity()
	transforms.Insert(cam, component.NewTransform(mgl32.Vec3{}, mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}))
	active := &component.ActiveCamera{}
	active.Set(cam)
	return w, transforms, active, cam
}

func flyTags(w *ecs.World, cam ecs.EntityID) *ecs.Store[component.InputTag] {
	tags := ecs.Register[component.InputTag](w)
	tags.Insert(cam, &component.InputTag{})
	return tags
}

func TestInputMovesActiveCamera(t *testing.T) {
	w, transforms, active, cam := cameraRig(t)
	reader := transforms.RegisterReader()
	q := &input.Queue{}
	s := NewInputSystem(q, input.NewCache(), transforms, flyTags(w, cam), active, 0.5, 0.01)

	s.Run(0)
	if ch := ecs.CollectChanges(transforms.Read(reader)); len(ch.Modified) != 0 {
		t.Fatal("idle frame modified the camera")
	}

	q.Push(input.KeyChanged{Key: input.KeyW, Action: input.Press})
	s.Run(0)
	tr, _ := transforms.Get(cam)
	// Zero rotation faces +X.
	if !tr.Position.ApproxEqual(mgl32.Vec3{0.5, 0, 0}) {
		t.Fatalf("position after W = %v", tr.Position)
	}

	q.Push(input.KeyChanged{Key: input.KeyW, Action: input.Release})
	q.Push(input.KeyChanged{Key: input.KeyQ, Action: input.Repeat})
	s.Run(0)
	if !tr.Position.ApproxEqual(mgl32.Vec3{0.5, 0.5, 0}) {
		t.Errorf("position after Q = %v", tr.Position)
	}
	if ch := ecs.CollectChanges(transforms.Read(reader)); !ch.Modified.Has(cam) {
		t.Error("movement not journaled as a modification")
	}
}

func TestInputMouseLookClampsPitch(t *testing.T) {
	w, transforms, active, cam := cameraRig(t)
	q := &input.Queue{}
	s := NewInputSystem(q, input.NewCache(), transforms, flyTags(w, cam), active, 1, 0.01)

	q.Push(input.CursorMoved{X: 100, Y: 100}) // primes only
	s.Run(0)
	tr, _ := transforms.Get(cam)
	if tr.Rotation != (mgl32.Vec3{}) {
		t.Fatalf("first cursor event turned the camera: %v", tr.Rotation)
	}

	q.Push(input.CursorMoved{X: 110, Y: -10000})
	s.Run(0)
	if !mgl32.FloatEqual(tr.Rotation.Y(), 0.1) {
		t.Errorf("yaw = %v", tr.Rotation.Y())
	}
	if tr.Rotation.X() != maxPitch {
		t.Errorf("pitch = %v, want clamp at %v", tr.Rotation.X(), maxPitch)
	}
}

func TestInputWithoutActiveCamera(t *testing.T) {
	w, transforms, _, cam := cameraRig(t)
	q := &input.Queue{}
	q.Push(input.KeyChanged{Key: input.KeyW, Action: input.Press})
	NewInputSystem(q, input.NewCache(), transforms, flyTags(w, cam), &component.ActiveCamera{}, 1, 1).Run(0)
	if q.Len() != 0 {
		t.Error("queue not drained")
	}
}

func TestInputIgnoresUntaggedCamera(t *testing.T) {
	w, transforms, active, cam := cameraRig(t)
	tags := ecs.Register[component.InputTag](w)
	q := &input.Queue{}
	s := NewInputSystem(q, input.NewCache(), transforms, tags, active, 1, 0.01)

	q.Push(input.KeyChanged{Key: input.KeyW, Action: input.Press})
	s.Run(0)
	tr, _ := transforms.Get(cam)
	if tr.Position != (mgl32.Vec3{}) {
		t.Fatalf("untagged camera moved to %v", tr.Position)
	}

	tags.Insert(cam, &component.InputTag{})
	s.Run(0)
	if !tr.Position.ApproxEqual(mgl32.Vec3{1, 0, 0}) {
		t.Errorf("tagged camera at %v", tr.Position)
	}
}

func TestEventDispatchDeliversNextFrame(t *testing.T) {
	bus := event.NewBus()
	var got []event.PhysicsStepped
	event.Subscribe(bus, func(ev event.PhysicsStepped) { got = append(got, ev) })
	s := NewEventDispatchSystem(bus)

	event.Emit(bus, event.PhysicsStepped{Tick: 1})
	s.Run(0)
	if len(got) != 0 {
		t.Fatal("event delivered in the frame it was emitted")
	}
	s.Run(0)
	if len(got) != 1 || s.Delivered() != 1 {
		t.Errorf("delivered %v (%d)", got, s.Delivered())
	}
}

func TestScriptSystemMovesEntity(t *testing.T) {
	w, transforms, _, _ := cameraRig(t)
	box := w.CreateEntity()
	transforms.Insert(box, component.NewTransform(mgl32.Vec3{}, mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}))
	reader := transforms.RegisterReader()

	eng, err := scripting.NewEngine(t.TempDir(), scripting.Bindings{
		Transforms: transforms,
		Names:      map[string]ecs.EntityID{"box": box},
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()
	if err := eng.DoString(`
function on_update(dt)
  local e = engine.find("box")
  local x, y, z = engine.position(e)
  engine.set_position(e, x + dt, y, z)
end`); err != nil {
		t.Fatal(err)
	}

	NewScriptSystem(eng).Run(500 * time.Millisecond)
	tr, _ := transforms.Get(box)
	if !mgl32.FloatEqual(tr.Position.X(), 0.5) {
		t.Errorf("x = %v", tr.Position.X())
	}
	ch := ecs.CollectChanges(transforms.Read(reader), ecs.OriginPhysics)
	if !ch.Modified.Has(box) {
		t.Error("script write not seen as a gameplay modification")
	}
}

func TestRenderSystemDrawsActiveCamera(t *testing.T) {
	dev := headless.New()
	lib, err := render.NewLibrary(dev)
	if err != nil {
		t.Fatal(err)
	}
	log := zaptest.NewLogger(t)
	loader := asset.NewBuiltin(lib, asset.NewTextureCache(dev, asset.DecodeImage, log), log)

	w := ecs.NewWorld(0)
	stores := RenderStores{
		Transforms: ecs.Register[component.Transform](w),
		Renderers:  ecs.Register[component.MeshRenderer](w),
		Cameras:    ecs.Register[component.Camera](w),
		Lights:     ecs.Register[component.PointLight](w),
		Outliners:  ecs.Register[component.Outliner](w),
	}
	active := &component.ActiveCamera{}
	s := NewRenderSystem(render.NewComposer(lib, 800, 800), stores, active, log)

	s.Run(0)
	if s.Drawn() != 0 || dev.Count("draw_indexed") != 0 {
		t.Fatal("drew without an active camera")
	}

	cam := w.CreateEntity()
	active.Set(cam)
	s.Run(0)
	if s.Drawn() != 0 {
		t.Fatal("drew from a camera entity without components")
	}

	camera, err := component.NewCamera(dev, component.CameraDesc{
		Projection: component.Projection{Kind: component.Perspective, FovY: mgl32.DegToRad(45)},
		Width:      800, Height: 800, Near: 0.1, Far: 100,
	})
	if err != nil {
		t.Fatal(err)
	}
	stores.Cameras.Insert(cam, camera)
	stores.Transforms.Insert(cam, component.NewTransform(mgl32.Vec3{-5, 0, 0}, mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}))

	for i := 0; i < 2; i++ {
		e := w.CreateEntity()
		mr, err := loader.LoadModel("builtin:cube", asset.MaterialDesc{})
		if err != nil {
			t.Fatal(err)
		}
		stores.Transforms.Insert(e, component.NewTransform(mgl32.Vec3{float32(i), 0, 0}, mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}))
		stores.Renderers.Insert(e, mr)
		if i == 0 {
			stores.Outliners.Insert(e, &component.Outliner{Scale: 1.05, Color: mgl32.Vec3{1, 1, 0}})
		}
	}

	dev.Reset()
	s.Run(0)
	// two opaque draws plus one outline
	if s.Drawn() != 3 {
		t.Errorf("drawn = %d", s.Drawn())
	}
	if n := dev.Count("draw_indexed"); n != 3 {
		t.Errorf("indexed draws = %d", n)
	}
}

type fakeSnapshots struct {
	saves  [][]persist.TransformRow
	frames []int64
	pruned int
	err    error
}

func (f *fakeSnapshots) Save(_ context.Context, _ string, frame int64, rows []persist.TransformRow) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	f.saves = append(f.saves, rows)
	f.frames = append(f.frames, frame)
	return uuid.New(), nil
}

func (f *fakeSnapshots) Prune(context.Context, string, int) (int64, error) {
	f.pruned++
	return 0, nil
}

func TestPersistenceInterval(t *testing.T) {
	w, transforms, _, cam := cameraRig(t)
	box := w.CreateEntity()
	transforms.Insert(box, component.NewTransform(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}))
	repo := &fakeSnapshots{}
	names := map[ecs.EntityID]string{cam: "camera", box: "box"}
	s := NewPersistenceSystem(transforms, names, repo, "demo", 3, 5, zap.NewNop())

	for i := 0; i < 7; i++ {
		s.Run(0)
	}
	if len(repo.saves) != 2 {
		t.Fatalf("saves = %d", len(repo.saves))
	}
	if repo.frames[0] != 3 || repo.frames[1] != 6 {
		t.Errorf("frames = %v", repo.frames)
	}
	if repo.pruned != 2 {
		t.Errorf("pruned = %d", repo.pruned)
	}
	rows := repo.saves[0]
	if len(rows) != 2 || rows[0].Name != "camera" || rows[1].Name != "box" {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[1].Position != [3]float32{1, 2, 3} {
		t.Errorf("box position = %v", rows[1].Position)
	}
}

func TestPersistenceErrorsDoNotStopFrames(t *testing.T) {
	_, transforms, _, _ := cameraRig(t)
	repo := &fakeSnapshots{err: errors.New("db down")}
	s := NewPersistenceSystem(transforms, nil, repo, "demo", 1, 0, zap.NewNop())
	s.Run(0)
	s.Run(0)
	if _, err := s.SaveNow(); err == nil {
		t.Error("SaveNow swallowed the repository error")
	}

	off := NewPersistenceSystem(transforms, nil, &fakeSnapshots{}, "demo", 0, 0, zap.NewNop())
	off.Run(0)
	if id, err := off.SaveNow(); err != nil || id == uuid.Nil {
		t.Errorf("SaveNow = %v, %v", id, err)
	}
}
