package component

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberforge/engine/internal/physics"
)

// RigidBody is authored by gameplay and mirrored into the simulation.
// Position and rotation are not here: they flow back from the simulation
// into Transform.
type RigidBody struct {
	Name                  string
	Gravity               bool
	Status                physics.BodyStatus
	LinearVelocity        mgl32.Vec3
	AngularVelocity       mgl32.Vec3
	AngularInertia        mgl32.Mat3
	Mass                  float32
	LocalCenterOfMass     mgl32.Vec3
	SleepThreshold        *float32
	KinematicTranslations [3]bool
	KinematicRotations    [3]bool
}

func DefaultRigidBody(name string) *RigidBody {
	th := physics.DefaultSleepThreshold
	return &RigidBody{
		Name:           name,
		Gravity:        true,
		Status:         physics.Dynamic,
		AngularInertia: mgl32.Ident3(),
		Mass:           1,
		SleepThreshold: &th,
	}
}

// Props is the subset pushed to a live body on modification.
func (rb *RigidBody) Props() physics.BodyProps {
	return physics.BodyProps{
		Mass:                  rb.Mass,
		Gravity:               rb.Gravity,
		Status:                rb.Status,
		SleepThreshold:        rb.SleepThreshold,
		KinematicTranslations: rb.KinematicTranslations,
		KinematicRotations:    rb.KinematicRotations,
	}
}

// Collider attaches a shape to the entity's body, or to the ground frame
// when the entity has none.
type Collider struct {
	Shape    physics.Shape
	Material physics.SurfaceMaterial
}

// BoxCollider builds a cuboid collider from full edge lengths.
func BoxCollider(size mgl32.Vec3, material physics.SurfaceMaterial) *Collider {
	return &Collider{Shape: physics.Cuboid{HalfExtents: size.Mul(0.5)}, Material: material}
}
