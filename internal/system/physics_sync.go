package system

import (
	"math"
	"reflect"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/emberforge/engine/internal/component"
	"github.com/emberforge/engine/internal/core/ecs"
	"github.com/emberforge/engine/internal/core/event"
	coresys "github.com/emberforge/engine/internal/core/system"
	"github.com/emberforge/engine/internal/mathx"
	"github.com/emberforge/engine/internal/physics"
)

// Scheduler names of the physics systems, used as dependency labels.
const (
	NameSyncBodiesTo    = "sync_bodies_to_physics"
	NameSyncCollidersTo = "sync_colliders_to_physics"
	NameStepper         = "physics_stepper"
	NameSyncBodiesFrom  = "sync_bodies_from_physics"
)

func poseOf(tr *component.Transform) physics.Pose {
	return physics.Pose{Position: tr.Position, Rotation: mathx.EulerToQuat(tr.Rotation)}
}

// SyncBodiesToPhysicsSystem mirrors RigidBody lifecycle and gameplay
// Transform writes into the simulation. Transform writes made by the
// simulation itself are ignored so poses are never fed back.
type SyncBodiesToPhysicsSystem struct {
	transforms *ecs.Store[component.Transform]
	bodies     *ecs.Store[component.RigidBody]
	phys       *physics.World
	bus        *event.Bus
	log        *zap.Logger

	trReader ecs.ReaderID
	rbReader ecs.ReaderID
}

func NewSyncBodiesToPhysicsSystem(
	transforms *ecs.Store[component.Transform],
	bodies *ecs.Store[component.RigidBody],
	phys *physics.World,
	bus *event.Bus,
	log *zap.Logger,
) *SyncBodiesToPhysicsSystem {
	return &SyncBodiesToPhysicsSystem{
		transforms: transforms,
		bodies:     bodies,
		phys:       phys,
		bus:        bus,
		log:        log,
		trReader:   transforms.RegisterReader(),
		rbReader:   bodies.RegisterReader(),
	}
}

func (s *SyncBodiesToPhysicsSystem) Name() string { return NameSyncBodiesTo }

func (s *SyncBodiesToPhysicsSystem) Access() coresys.Access {
	return coresys.Access{
		Reads:  []reflect.Type{coresys.Res[component.Transform](), coresys.Res[component.RigidBody](), coresys.Res[event.Bus]()},
		Writes: []reflect.Type{coresys.Res[physics.World]()},
	}
}

func (s *SyncBodiesToPhysicsSystem) Run(_ time.Duration) {
	rb := ecs.CollectChanges(s.bodies.Read(s.rbReader))
	tr := ecs.CollectChanges(s.transforms.Read(s.trReader), ecs.OriginPhysics)

	for _, e := range rb.Removed.Sorted() {
		s.removeBody(e)
	}
	for _, e := range rb.Inserted.Sorted() {
		s.createBody(e)
	}
	// A body skipped for lack of a Transform is created once one arrives.
	// A Transform inserted over an existing one teleports the body.
	for _, e := range tr.Inserted.Sorted() {
		h, ok := s.phys.Handles.Body(e)
		switch {
		case !ok && s.bodies.Has(e):
			s.createBody(e)
		case ok && !rb.Inserted.Has(e):
			if t, ok := s.transforms.Get(e); ok {
				s.phys.Engine.SetBodyPose(h, poseOf(t))
			}
		}
	}

	for _, e := range rb.Modified.Sorted() {
		h, ok := s.phys.Handles.Body(e)
		if !ok {
			continue
		}
		body, ok := s.bodies.Get(e)
		if !ok {
			continue
		}
		// Velocity, inertia and center of mass are creation-time only.
		s.phys.Engine.UpdateBody(h, body.Props())
	}
	for _, e := range tr.Modified.Sorted() {
		h, ok := s.phys.Handles.Body(e)
		if !ok {
			continue
		}
		t, ok := s.transforms.Get(e)
		if !ok {
			continue
		}
		s.phys.Engine.SetBodyPose(h, poseOf(t))
	}
}

func (s *SyncBodiesToPhysicsSystem) createBody(e ecs.EntityID) {
	if old, ok := s.phys.Handles.RemoveBody(e); ok {
		s.log.Warn("replacing stale body handle", zap.Stringer("entity", e), zap.Uint64("handle", uint64(old)))
		s.phys.Engine.RemoveBody(old)
		event.Emit(s.bus, event.BodyRemoved{Entity: e, Handle: uint64(old)})
	}
	rb, ok := s.bodies.Get(e)
	if !ok {
		return
	}
	tr, ok := s.transforms.Get(e)
	if !ok {
		s.log.Warn("rigid body without transform, deferred", zap.Stringer("entity", e), zap.String("body", rb.Name))
		return
	}

	h := s.phys.Engine.CreateBody(physics.BodyDesc{
		Name:                  rb.Name,
		Entity:                e,
		Pose:                  poseOf(tr),
		Status:                rb.Status,
		Gravity:               rb.Gravity,
		Velocity:              physics.Velocity{Linear: rb.LinearVelocity, Angular: rb.AngularVelocity},
		AngularInertia:        rb.AngularInertia,
		Mass:                  rb.Mass,
		LocalCenterOfMass:     rb.LocalCenterOfMass,
		SleepThreshold:        rb.SleepThreshold,
		KinematicTranslations: rb.KinematicTranslations,
		KinematicRotations:    rb.KinematicRotations,
	})
	s.phys.Handles.InsertBody(e, h)
	event.Emit(s.bus, event.BodyCreated{Entity: e, Handle: uint64(h)})
}

func (s *SyncBodiesToPhysicsSystem) removeBody(e ecs.EntityID) {
	h, ok := s.phys.Handles.RemoveBody(e)
	if !ok {
		return
	}
	s.phys.Engine.RemoveBody(h)
	event.Emit(s.bus, event.BodyRemoved{Entity: e, Handle: uint64(h)})
}

// SyncCollidersToPhysicsSystem mirrors Collider lifecycle. A collider is
// parented to its entity's body when one exists, else to the ground frame,
// and is rebuilt whenever that body is created, replaced or removed.
type SyncCollidersToPhysicsSystem struct {
	colliders *ecs.Store[component.Collider]
	phys      *physics.World
	bus       *event.Bus
	log       *zap.Logger
	reader    ecs.ReaderID

	parents map[ecs.EntityID]physics.BodyHandle
}

func NewSyncCollidersToPhysicsSystem(colliders *ecs.Store[component.Collider], phys *physics.World, bus *event.Bus, log *zap.Logger) *SyncCollidersToPhysicsSystem {
	return &SyncCollidersToPhysicsSystem{
		colliders: colliders,
		phys:      phys,
		bus:       bus,
		log:       log,
		reader:    colliders.RegisterReader(),
		parents:   make(map[ecs.EntityID]physics.BodyHandle, 64),
	}
}

func (s *SyncCollidersToPhysicsSystem) Name() string { return NameSyncCollidersTo }

func (s *SyncCollidersToPhysicsSystem) Access() coresys.Access {
	return coresys.Access{
		Reads:  []reflect.Type{coresys.Res[component.Collider](), coresys.Res[event.Bus]()},
		Writes: []reflect.Type{coresys.Res[physics.World]()},
	}
}

func (s *SyncCollidersToPhysicsSystem) Run(_ time.Duration) {
	ch := ecs.CollectChanges(s.colliders.Read(s.reader))

	for _, e := range ch.Removed.Sorted() {
		s.remove(e)
	}
	for _, e := range ch.Inserted.Sorted() {
		s.create(e)
	}
	// Shape or material changes rebuild the collider.
	for _, e := range ch.Modified.Sorted() {
		if ch.Inserted.Has(e) {
			continue
		}
		s.create(e)
	}
	// Bodies synced earlier this frame may have changed a collider's parent.
	ecs.EachIn(s.colliders, s.phys.Handles.TakeBodyChanges(), func(e ecs.EntityID, _ *component.Collider) {
		if !s.attached(e) {
			s.create(e)
		}
	})
}

// attached reports whether e's collider is live and parented to e's
// current body, or to the ground frame when e has none.
func (s *SyncCollidersToPhysicsSystem) attached(e ecs.EntityID) bool {
	h, ok := s.phys.Handles.Collider(e)
	if !ok {
		return false
	}
	parent, hasBody := s.phys.Handles.Body(e)
	if !hasBody {
		parent = physics.Ground
	}
	return s.parents[e] == parent && s.phys.Engine.HasCollider(h)
}

func (s *SyncCollidersToPhysicsSystem) create(e ecs.EntityID) {
	s.remove(e)
	c, ok := s.colliders.Get(e)
	if !ok {
		return
	}
	parent, hasBody := s.phys.Handles.Body(e)
	if !hasBody {
		parent = physics.Ground
	}
	h, err := s.phys.Engine.CreateCollider(physics.ColliderDesc{
		Entity:   e,
		Shape:    c.Shape,
		Material: c.Material,
		Parent:   parent,
	})
	if err != nil {
		s.log.Warn("collider not created", zap.Stringer("entity", e), zap.Error(err))
		return
	}
	s.phys.Handles.InsertCollider(e, h)
	s.parents[e] = parent
	event.Emit(s.bus, event.ColliderCreated{Entity: e, Handle: uint64(h), Ground: !hasBody})
}

func (s *SyncCollidersToPhysicsSystem) remove(e ecs.EntityID) {
	delete(s.parents, e)
	h, ok := s.phys.Handles.RemoveCollider(e)
	if !ok {
		return
	}
	// The collider may already be gone with its body.
	s.phys.Engine.RemoveCollider(h)
	event.Emit(s.bus, event.ColliderRemoved{Entity: e, Handle: uint64(h)})
}

// PhysicsStepperSystem advances the simulation by one timestep when at
// least one timestep of wall-clock time has passed since the last step.
// It never sub-steps or extrapolates.
type PhysicsStepperSystem struct {
	phys  *physics.World
	bus   *event.Bus
	now   func() time.Time
	last  time.Time
	ticks uint64
}

// NewPhysicsStepperSystem sets the simulation timestep from tickRate. now
// is the wall clock; nil means time.Now.
func NewPhysicsStepperSystem(phys *physics.World, bus *event.Bus, tickRate int, now func() time.Time) *PhysicsStepperSystem {
	if now == nil {
		now = time.Now
	}
	if tickRate <= 0 {
		tickRate = physics.DefaultTickRate
	}
	phys.Engine.SetTimestep(time.Second / time.Duration(tickRate))
	return &PhysicsStepperSystem{phys: phys, bus: bus, now: now, last: now()}
}

func (s *PhysicsStepperSystem) Name() string { return NameStepper }

func (s *PhysicsStepperSystem) Access() coresys.Access {
	return coresys.Access{
		Reads:  []reflect.Type{coresys.Res[event.Bus]()},
		Writes: []reflect.Type{coresys.Res[physics.World]()},
	}
}

func (s *PhysicsStepperSystem) Run(_ time.Duration) {
	now := s.now()
	if now.Sub(s.last) < s.phys.Engine.Timestep() {
		return
	}
	s.phys.Engine.Step()
	s.last = now
	s.ticks++
	event.Emit(s.bus, event.PhysicsStepped{Tick: s.ticks})
}

// Ticks returns how many steps have run.
func (s *PhysicsStepperSystem) Ticks() uint64 { return s.ticks }

// SyncBodiesFromPhysicsSystem copies simulated poses back into Transform.
// Its writes are flagged with the physics origin so the transform tracker
// sees them and the to-physics sync does not.
type SyncBodiesFromPhysicsSystem struct {
	transforms *ecs.Store[component.Transform]
	bodies     *ecs.Store[component.RigidBody]
	phys       *physics.World
	log        *zap.Logger
}

func NewSyncBodiesFromPhysicsSystem(
	transforms *ecs.Store[component.Transform],
	bodies *ecs.Store[component.RigidBody],
	phys *physics.World,
	log *zap.Logger,
) *SyncBodiesFromPhysicsSystem {
	return &SyncBodiesFromPhysicsSystem{transforms: transforms, bodies: bodies, phys: phys, log: log}
}

func (s *SyncBodiesFromPhysicsSystem) Name() string { return NameSyncBodiesFrom }

func (s *SyncBodiesFromPhysicsSystem) Access() coresys.Access {
	return coresys.Access{
		Reads:  []reflect.Type{coresys.Res[component.RigidBody](), coresys.Res[physics.World]()},
		Writes: []reflect.Type{coresys.Res[component.Transform]()},
	}
}

func (s *SyncBodiesFromPhysicsSystem) Run(_ time.Duration) {
	ecs.Each2(s.bodies, s.transforms, func(e ecs.EntityID, _ *component.RigidBody, tr *component.Transform) {
		h, ok := s.phys.Handles.Body(e)
		if !ok {
			return
		}
		pose, ok := s.phys.Engine.BodyPose(h)
		if !ok {
			s.log.Debug("body handle without live body", zap.Stringer("entity", e), zap.Uint64("handle", uint64(h)))
			return
		}
		if tr.Position == pose.Position && sameRotation(mathx.EulerToQuat(tr.Rotation), pose.Rotation) {
			return
		}
		tr, _ = s.transforms.GetMutFrom(ecs.OriginPhysics, e)
		tr.Position = pose.Position
		tr.Rotation = mathx.QuatToEuler(pose.Rotation)
	})
}

// sameRotation treats q and -q as the same orientation.
func sameRotation(a, b mgl32.Quat) bool {
	return math.Abs(float64(a.Dot(b))) > 1-1e-6
}
