package physics

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberforge/engine/internal/core/ecs"
)

// DefaultTickRate is the simulation frequency in Hz.
const DefaultTickRate = 128

// sleepFrames is how many consecutive low-energy steps put a body to sleep.
const sleepFrames = 60

type body struct {
	desc      BodyDesc
	pose      Pose
	vel       Velocity
	idle      int
	sleeping  bool
	colliders []ColliderHandle
}

type collider struct {
	desc ColliderDesc
}

// Sim is a small semi-implicit Euler integrator. It has no contact
// resolution: colliders are tracked for lifecycle only.
type Sim struct {
	gravity   mgl32.Vec3
	timestep  time.Duration
	next      uint64
	bodies    map[BodyHandle]*body
	colliders map[ColliderHandle]*collider
	ground    []ColliderHandle
	ticks     uint64
}

func NewSim(gravity mgl32.Vec3, tickRate int) *Sim {
	if tickRate <= 0 {
		tickRate = DefaultTickRate
	}
	return &Sim{
		gravity:   gravity,
		timestep:  time.Second / time.Duration(tickRate),
		bodies:    make(map[BodyHandle]*body),
		colliders: make(map[ColliderHandle]*collider),
	}
}

func (s *Sim) handle() uint64 {
	s.next++
	return s.next
}

func (s *Sim) CreateBody(desc BodyDesc) BodyHandle {
	h := BodyHandle(s.handle())
	rot := desc.Pose.Rotation
	if rot.Len() == 0 {
		rot = mgl32.QuatIdent()
	}
	s.bodies[h] = &body{
		desc: desc,
		pose: Pose{Position: desc.Pose.Position, Rotation: rot.Normalize()},
		vel:  desc.Velocity,
	}
	return h
}

func (s *Sim) UpdateBody(h BodyHandle, p BodyProps) bool {
	b, ok := s.bodies[h]
	if !ok {
		return false
	}
	b.desc.Mass = p.Mass
	b.desc.Gravity = p.Gravity
	b.desc.Status = p.Status
	b.desc.SleepThreshold = p.SleepThreshold
	b.desc.KinematicTranslations = p.KinematicTranslations
	b.desc.KinematicRotations = p.KinematicRotations
	s.wake(b)
	return true
}

func (s *Sim) SetBodyPose(h BodyHandle, pose Pose) bool {
	b, ok := s.bodies[h]
	if !ok {
		return false
	}
	b.pose = Pose{Position: pose.Position, Rotation: pose.Rotation.Normalize()}
	s.wake(b)
	return true
}

func (s *Sim) BodyPose(h BodyHandle) (Pose, bool) {
	b, ok := s.bodies[h]
	if !ok {
		return Pose{}, false
	}
	return b.pose, true
}

func (s *Sim) BodyEntity(h BodyHandle) (ecs.EntityID, bool) {
	b, ok := s.bodies[h]
	if !ok {
		return 0, false
	}
	return b.desc.Entity, true
}

func (s *Sim) Sleeping(h BodyHandle) bool {
	b, ok := s.bodies[h]
	return ok && b.sleeping
}

func (s *Sim) RemoveBody(h BodyHandle) bool {
	b, ok := s.bodies[h]
	if !ok {
		return false
	}
	for _, c := range b.colliders {
		delete(s.colliders, c)
	}
	delete(s.bodies, h)
	return true
}

func (s *Sim) CreateCollider(desc ColliderDesc) (ColliderHandle, error) {
	if desc.Shape == nil {
		return 0, fmt.Errorf("physics: collider for %s has no shape", desc.Entity)
	}
	var parent *body
	if desc.Parent != Ground {
		b, ok := s.bodies[desc.Parent]
		if !ok {
			return 0, fmt.Errorf("%w: parent %d", ErrUnknownBody, desc.Parent)
		}
		parent = b
	}
	h := ColliderHandle(s.handle())
	s.colliders[h] = &collider{desc: desc}
	if parent != nil {
		parent.colliders = append(parent.colliders, h)
	} else {
		s.ground = append(s.ground, h)
	}
	return h, nil
}

func (s *Sim) HasCollider(h ColliderHandle) bool {
	_, ok := s.colliders[h]
	return ok
}

func (s *Sim) RemoveCollider(h ColliderHandle) bool {
	c, ok := s.colliders[h]
	if !ok {
		return false
	}
	delete(s.colliders, h)
	if b, ok := s.bodies[c.desc.Parent]; ok && c.desc.Parent != Ground {
		b.colliders = dropHandle(b.colliders, h)
	} else {
		s.ground = dropHandle(s.ground, h)
	}
	return true
}

func (s *Sim) Timestep() time.Duration     { return s.timestep }
func (s *Sim) SetTimestep(d time.Duration) { s.timestep = d }
func (s *Sim) Ticks() uint64               { return s.ticks }

func (s *Sim) Step() {
	dt := float32(s.timestep.Seconds())
	for _, b := range s.bodies {
		s.integrate(b, dt)
	}
	s.ticks++
}

func (s *Sim) integrate(b *body, dt float32) {
	if b.desc.Status == Static || b.sleeping {
		return
	}
	if b.desc.Status == Dynamic && b.desc.Gravity && b.desc.Mass > 0 {
		b.vel.Linear = b.vel.Linear.Add(s.gravity.Mul(dt))
	}
	for i := 0; i < 3; i++ {
		if b.desc.KinematicTranslations[i] {
			b.vel.Linear[i] = 0
		}
		if b.desc.KinematicRotations[i] {
			b.vel.Angular[i] = 0
		}
	}

	b.pose.Position = b.pose.Position.Add(b.vel.Linear.Mul(dt))
	if w := b.vel.Angular.Len(); w > 0 {
		dq := mgl32.QuatRotate(w*dt, b.vel.Angular.Mul(1/w))
		b.pose.Rotation = dq.Mul(b.pose.Rotation).Normalize()
	}

	if b.desc.Status != Dynamic || b.desc.SleepThreshold == nil {
		return
	}
	energy := b.vel.Linear.LenSqr() + b.vel.Angular.LenSqr()
	if energy < *b.desc.SleepThreshold {
		b.idle++
	} else {
		b.idle = 0
	}
	if b.idle >= sleepFrames {
		b.sleeping = true
		b.vel = Velocity{}
	}
}

func (s *Sim) wake(b *body) {
	b.sleeping = false
	b.idle = 0
}

func dropHandle(hs []ColliderHandle, h ColliderHandle) []ColliderHandle {
	for i, c := range hs {
		if c == h {
			return append(hs[:i], hs[i+1:]...)
		}
	}
	return hs
}
