package component

import "github.com/go-gl/mathgl/mgl32"

type PointLight struct {
	Color     mgl32.Vec3
	Range     float32
	Intensity float32
}

type DirLight struct {
	Color     mgl32.Vec3
	Range     float32
	Intensity float32
	Direction mgl32.Vec3
}

type Spotlight struct {
	Color     mgl32.Vec3
	Range     float32
	Intensity float32
}
