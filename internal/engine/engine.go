// Package engine wires the world, physics, renderer and systems into a
// frame loop driven by the stage-graph dispatcher.
package engine

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/emberforge/engine/internal/asset"
	"github.com/emberforge/engine/internal/component"
	"github.com/emberforge/engine/internal/config"
	"github.com/emberforge/engine/internal/core/ecs"
	"github.com/emberforge/engine/internal/core/event"
	coresys "github.com/emberforge/engine/internal/core/system"
	"github.com/emberforge/engine/internal/gfx"
	"github.com/emberforge/engine/internal/input"
	"github.com/emberforge/engine/internal/physics"
	"github.com/emberforge/engine/internal/render"
	"github.com/emberforge/engine/internal/scripting"
	"github.com/emberforge/engine/internal/system"
)

// Stores holds every registered component store.
type Stores struct {
	Transforms  *ecs.Store[component.Transform]
	Bodies      *ecs.Store[component.RigidBody]
	Colliders   *ecs.Store[component.Collider]
	Renderers   *ecs.Store[component.MeshRenderer]
	Cameras     *ecs.Store[component.Camera]
	PointLights *ecs.Store[component.PointLight]
	Outliners   *ecs.Store[component.Outliner]
	InputTags   *ecs.Store[component.InputTag]
}

// Options are the host-provided pieces of an Engine.
type Options struct {
	Device gfx.Device
	// Decode loads image files; nil means asset.DecodeImage.
	Decode asset.Decoder
	// Snapshots enables the persistence system when non-nil.
	Snapshots system.SnapshotStore
	// Now is the physics stepper's clock; nil means time.Now.
	Now func() time.Time
}

type Engine struct {
	cfg *config.Config
	log *zap.Logger

	World   *ecs.World
	Stores  Stores
	Sim     *physics.Sim
	Physics *physics.World
	Bus     *event.Bus
	Input   *input.Queue
	Active  *component.ActiveCamera

	dev      gfx.Device
	decode   asset.Decoder
	lib      *render.Library
	textures *asset.TextureCache
	loader   *asset.Builtin
	scripts  *scripting.Engine

	names    map[string]ecs.EntityID
	entities map[ecs.EntityID]string
	spawned  []ecs.EntityID

	dispatcher  *coresys.Dispatcher
	timeline    *coresys.Timeline
	render      *system.RenderSystem
	transforms  *system.TransformSystem
	stepper     *system.PhysicsStepperSystem
	persistence *system.PersistenceSystem

	stats frameStats
}

// New builds the engine and its stage graph. Systems register their journal
// readers here, so New must run before any scene is loaded.
func New(cfg *config.Config, opts Options, log *zap.Logger) (*Engine, error) {
	if opts.Device == nil {
		return nil, fmt.Errorf("engine: no graphics device")
	}
	if opts.Decode == nil {
		opts.Decode = asset.DecodeImage
	}

	w := ecs.NewWorld(cfg.Engine.JournalCapacity)
	e := &Engine{
		cfg:    cfg,
		log:    log,
		World:  w,
		Bus:    event.NewBus(),
		Input:  &input.Queue{},
		Active: &component.ActiveCamera{},
		dev:    opts.Device,
		decode: opts.Decode,
		Stores: Stores{
			Transforms:  ecs.Register[component.Transform](w),
			Bodies:      ecs.Register[component.RigidBody](w),
			Colliders:   ecs.Register[component.Collider](w),
			Renderers:   ecs.Register[component.MeshRenderer](w),
			Cameras:     ecs.Register[component.Camera](w),
			PointLights: ecs.Register[component.PointLight](w),
			Outliners:   ecs.Register[component.Outliner](w),
			InputTags:   ecs.Register[component.InputTag](w),
		},
		names:    make(map[string]ecs.EntityID),
		entities: make(map[ecs.EntityID]string),
		timeline: coresys.NewTimeline(),
	}
	e.Sim = physics.NewSim(mgl32.Vec3(cfg.Physics.Gravity), cfg.Physics.TickRate)
	e.Physics = physics.NewWorld(e.Sim)

	lib, err := render.NewLibrary(opts.Device)
	if err != nil {
		return nil, fmt.Errorf("shader library: %w", err)
	}
	e.lib = lib
	e.textures = asset.NewTextureCache(opts.Device, opts.Decode, log.Named("asset"))
	e.loader = asset.NewBuiltin(lib, e.textures, log.Named("asset"))

	if cfg.Scripting.Enabled {
		e.scripts, err = scripting.NewEngine(cfg.Scripting.Dir, scripting.Bindings{
			Transforms: e.Stores.Transforms,
			Names:      e.names,
		}, log.Named("lua"))
		if err != nil {
			lib.Release()
			return nil, fmt.Errorf("scripting: %w", err)
		}
	}

	if err := e.buildDispatcher(opts); err != nil {
		e.Close()
		return nil, err
	}
	e.subscribe()
	log.Info("engine ready", zap.String("stages", e.dispatcher.String()))
	return e, nil
}

func (e *Engine) buildDispatcher(opts Options) error {
	s := e.Stores
	plog := e.log.Named("physics")

	e.transforms = system.NewTransformSystem(s.Transforms)
	e.stepper = system.NewPhysicsStepperSystem(e.Physics, e.Bus, e.cfg.Physics.TickRate, opts.Now)
	e.render = system.NewRenderSystem(
		render.NewComposer(e.lib, e.cfg.Render.Width, e.cfg.Render.Height),
		system.RenderStores{
			Transforms: s.Transforms,
			Renderers:  s.Renderers,
			Cameras:    s.Cameras,
			Lights:     s.PointLights,
			Outliners:  s.Outliners,
		},
		e.Active, e.log.Named("render"))

	b := coresys.NewBuilder().
		WithWorkers(e.cfg.Engine.Workers).
		WithObserver(e.timeline).
		With(system.NewEventDispatchSystem(e.Bus)).
		WithBarrier().
		With(system.NewInputSystem(e.Input, input.NewCache(), s.Transforms, s.InputTags, e.Active,
			e.cfg.Input.MoveSpeed, e.cfg.Input.MouseSensitivity))
	if e.scripts != nil {
		b.With(system.NewScriptSystem(e.scripts))
	}
	b.WithBarrier().
		With(system.NewSyncBodiesToPhysicsSystem(s.Transforms, s.Bodies, e.Physics, e.Bus, plog)).
		With(system.NewSyncCollidersToPhysicsSystem(s.Colliders, e.Physics, e.Bus, plog), system.NameSyncBodiesTo).
		With(e.stepper, system.NameSyncCollidersTo).
		With(system.NewSyncBodiesFromPhysicsSystem(s.Transforms, s.Bodies, e.Physics, plog), system.NameStepper).
		WithBarrier().
		With(e.transforms)
	if opts.Snapshots != nil {
		e.persistence = system.NewPersistenceSystem(s.Transforms, e.entities, opts.Snapshots,
			e.cfg.Engine.Name, e.cfg.Database.SnapshotInterval, e.cfg.Database.SnapshotKeep, e.log.Named("persist"))
		b.With(e.persistence, system.NameTransform)
	}
	b.WithThreadLocal(e.render)

	d, err := b.Build()
	if err != nil {
		return fmt.Errorf("build stage graph: %w", err)
	}
	e.dispatcher = d
	return nil
}

func (e *Engine) subscribe() {
	log := e.log.Named("events")
	event.Subscribe(e.Bus, func(ev event.BodyCreated) {
		e.stats.bodiesCreated++
		log.Debug("body created", zap.Stringer("entity", ev.Entity), zap.Uint64("handle", ev.Handle))
	})
	event.Subscribe(e.Bus, func(ev event.BodyRemoved) {
		e.stats.bodiesRemoved++
		log.Debug("body removed", zap.Stringer("entity", ev.Entity), zap.Uint64("handle", ev.Handle))
	})
	event.Subscribe(e.Bus, func(ev event.ColliderCreated) {
		log.Debug("collider created", zap.Stringer("entity", ev.Entity), zap.Bool("ground", ev.Ground))
	})
	event.Subscribe(e.Bus, func(ev event.ColliderRemoved) {
		log.Debug("collider removed", zap.Stringer("entity", ev.Entity))
	})
	event.Subscribe(e.Bus, func(event.PhysicsStepped) {
		e.stats.steps++
	})
}

// Frame runs one dispatch and then flushes destroyed entities. It must be
// called from the goroutine that owns the graphics context.
func (e *Engine) Frame(dt time.Duration) {
	start := time.Now()
	e.dispatcher.Dispatch(dt)
	e.World.Maintain()
	e.stats.record(time.Since(start), e.timeline.Drain())

	if e.cfg.Engine.StatsInterval > 0 && time.Since(e.stats.since) >= e.cfg.Engine.StatsInterval {
		e.logStats()
	}
}

// Stages returns the system names of each dispatcher stage, in run order.
func (e *Engine) Stages() [][]string { return e.dispatcher.Stages() }

// Frames returns the number of frames run.
func (e *Engine) Frames() uint64 { return e.stats.frames }

// Entity looks up a scene entity by name.
func (e *Engine) Entity(name string) (ecs.EntityID, bool) {
	id, ok := e.names[name]
	return id, ok
}

// Destroy queues an entity for removal at the end of the current frame.
func (e *Engine) Destroy(id ecs.EntityID) {
	e.World.MarkForDestruction(id)
	if name, ok := e.entities[id]; ok {
		delete(e.entities, id)
		delete(e.names, name)
	}
}

// Persistence returns the snapshot system, or nil when snapshots are off.
func (e *Engine) Persistence() *system.PersistenceSystem { return e.persistence }

// Close destroys every spawned entity, which releases their GPU resources,
// and then tears down scripting and the shader library.
func (e *Engine) Close() {
	for _, id := range e.spawned {
		e.World.MarkForDestruction(id)
	}
	e.spawned = nil
	e.World.Maintain()
	if e.scripts != nil {
		e.scripts.Close()
		e.scripts = nil
	}
	if e.lib != nil {
		e.lib.Release()
		e.lib = nil
	}
}
