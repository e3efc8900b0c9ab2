package system

import (
	"cmp"
	"reflect"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/emberforge/engine/internal/component"
	"github.com/emberforge/engine/internal/core/ecs"
	coresys "github.com/emberforge/engine/internal/core/system"
	"github.com/emberforge/engine/internal/render"
)

const NameRender = "render"

// RenderStores are the component stores the renderer reads.
type RenderStores struct {
	Transforms *ecs.Store[component.Transform]
	Renderers  *ecs.Store[component.MeshRenderer]
	Cameras    *ecs.Store[component.Camera]
	Lights     *ecs.Store[component.PointLight]
	Outliners  *ecs.Store[component.Outliner]
}

// RenderSystem gathers the active camera's scene and hands it to the
// composer. It must run on the goroutine owning the graphics context.
type RenderSystem struct {
	composer *render.Composer
	stores   RenderStores
	active   *component.ActiveCamera
	log      *zap.Logger

	draws  []render.Draw
	lights []component.LightSource
	drawn  int
	warned ecs.EntityID
}

func NewRenderSystem(composer *render.Composer, stores RenderStores, active *component.ActiveCamera, log *zap.Logger) *RenderSystem {
	return &RenderSystem{composer: composer, stores: stores, active: active, log: log}
}

func (s *RenderSystem) Name() string { return NameRender }

func (s *RenderSystem) Access() coresys.Access {
	return coresys.Access{Reads: []reflect.Type{
		coresys.Res[component.Transform](),
		coresys.Res[component.MeshRenderer](),
		coresys.Res[component.Camera](),
		coresys.Res[component.PointLight](),
		coresys.Res[component.Outliner](),
		coresys.Res[component.ActiveCamera](),
	}}
}

func (s *RenderSystem) Run(_ time.Duration) {
	s.drawn = 0
	id, ok := s.active.Get()
	if !ok {
		return
	}
	cam, okCam := s.stores.Cameras.Get(id)
	eye, okEye := s.stores.Transforms.Get(id)
	if !okCam || !okEye {
		if s.warned != id {
			s.log.Warn("active camera lacks Camera or Transform", zap.Stringer("entity", id))
			s.warned = id
		}
		return
	}

	s.draws = s.draws[:0]
	ecs.Each2(s.stores.Transforms, s.stores.Renderers, func(e ecs.EntityID, tr *component.Transform, mr *component.MeshRenderer) {
		d := render.Draw{Entity: e, Transform: tr, Renderer: mr}
		if o, ok := s.stores.Outliners.Get(e); ok {
			d.Outline = o
		}
		s.draws = append(s.draws, d)
	})
	slices.SortFunc(s.draws, func(a, b render.Draw) int { return cmp.Compare(a.Entity, b.Entity) })

	type lit struct {
		e ecs.EntityID
		l component.LightSource
	}
	var found []lit
	ecs.Each2(s.stores.Lights, s.stores.Transforms, func(e ecs.EntityID, pl *component.PointLight, tr *component.Transform) {
		found = append(found, lit{e, component.LightSource{Position: tr.Position, Light: *pl}})
	})
	slices.SortFunc(found, func(a, b lit) int { return cmp.Compare(a.e, b.e) })
	s.lights = s.lights[:0]
	for _, f := range found {
		s.lights = append(s.lights, f.l)
	}

	s.drawn = s.composer.Render(render.Scene{Camera: cam, Eye: eye, Draws: s.draws, Lights: s.lights})
}

// Drawn returns the draw calls issued by the last run.
func (s *RenderSystem) Drawn() int { return s.drawn }
