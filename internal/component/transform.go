// Package component holds the engine's component types. Components are
// plain data; systems own every mutation. The few methods here are
// derived views or resource lifetime hooks used by the stores.
package component

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberforge/engine/internal/mathx"
)

// Transform places an entity. Model is derived from the other three fields
// by the transform tracker; gameplay code never writes it.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Vec3 // Euler radians: pitch X, yaw Y, roll Z
	Scale    mgl32.Vec3
	Model    mgl32.Mat4
}

func NewTransform(position, rotation, scale mgl32.Vec3) *Transform {
	t := &Transform{Position: position, Rotation: rotation, Scale: scale}
	t.Model = t.ComputeModel()
	return t
}

func (t *Transform) ComputeModel() mgl32.Mat4 {
	return mathx.ModelMatrix(t.Position, t.Rotation, t.Scale)
}

// Forward is the look direction used by cameras and fly controls.
func (t *Transform) Forward() mgl32.Vec3 {
	return mathx.Forward(t.Rotation)
}
