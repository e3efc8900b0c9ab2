// Package physics is the contract between the engine and a rigid-body
// simulation, plus the table that maps entities to the simulation's opaque
// handles. Foreign handles live only in the HandleTable, never in components.
package physics

import (
	"errors"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberforge/engine/internal/core/ecs"
)

var (
	ErrUnknownBody     = errors.New("physics: unknown body")
	ErrDuplicateHandle = errors.New("physics: entity already has a live handle")
)

type BodyHandle uint64

// Ground is the static world frame colliders attach to when no body exists.
const Ground BodyHandle = 0

type ColliderHandle uint64

type BodyStatus uint8

const (
	Dynamic BodyStatus = iota
	Static
	Kinematic
)

func (s BodyStatus) String() string {
	switch s {
	case Dynamic:
		return "dynamic"
	case Static:
		return "static"
	case Kinematic:
		return "kinematic"
	}
	return "unknown"
}

// DefaultSleepThreshold is the kinetic energy below which a resting body may sleep.
const DefaultSleepThreshold float32 = 0.01

// Pose is the simulation's native placement of a body.
type Pose struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

type Velocity struct {
	Linear  mgl32.Vec3
	Angular mgl32.Vec3
}

// BodyDesc is everything needed to create a body.
type BodyDesc struct {
	Name                  string
	Entity                ecs.EntityID
	Pose                  Pose
	Status                BodyStatus
	Gravity               bool
	Velocity              Velocity
	AngularInertia        mgl32.Mat3
	Mass                  float32
	LocalCenterOfMass     mgl32.Vec3
	SleepThreshold        *float32 // nil: never sleeps
	KinematicTranslations [3]bool
	KinematicRotations    [3]bool
}

// BodyProps are the gameplay-authored fields that can change on a live body.
type BodyProps struct {
	Mass                  float32
	Gravity               bool
	Status                BodyStatus
	SleepThreshold        *float32
	KinematicTranslations [3]bool
	KinematicRotations    [3]bool
}

// Shape is a collision shape.
type Shape interface {
	isShape()
}

// Cuboid is a box given by its half extents.
type Cuboid struct {
	HalfExtents mgl32.Vec3
}

type Ball struct {
	Radius float32
}

func (Cuboid) isShape() {}
func (Ball) isShape()   {}

type SurfaceMaterial struct {
	Restitution float32
	Friction    float32
}

var DefaultMaterial = SurfaceMaterial{Restitution: 0, Friction: 0.5}

type ColliderDesc struct {
	Entity   ecs.EntityID
	Shape    Shape
	Material SurfaceMaterial
	Parent   BodyHandle
}

// Engine is a rigid-body simulation. Lookups on dead handles report false;
// they never panic.
type Engine interface {
	CreateBody(desc BodyDesc) BodyHandle
	UpdateBody(h BodyHandle, props BodyProps) bool
	SetBodyPose(h BodyHandle, pose Pose) bool
	BodyPose(h BodyHandle) (Pose, bool)
	BodyEntity(h BodyHandle) (ecs.EntityID, bool)
	// RemoveBody also removes the colliders attached to the body.
	RemoveBody(h BodyHandle) bool

	CreateCollider(desc ColliderDesc) (ColliderHandle, error)
	HasCollider(h ColliderHandle) bool
	RemoveCollider(h ColliderHandle) bool

	Timestep() time.Duration
	SetTimestep(d time.Duration)
	// Step advances the simulation by exactly one timestep.
	Step()
}

// World bundles the simulation with its handle table. It is one scheduler
// resource: systems touching either declare a write on World.
type World struct {
	Engine  Engine
	Handles *HandleTable
}

func NewWorld(engine Engine) *World {
	return &World{Engine: engine, Handles: NewHandleTable()}
}
