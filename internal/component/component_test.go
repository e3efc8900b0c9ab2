package component

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberforge/engine/internal/gfx"
	"github.com/emberforge/engine/internal/gfx/headless"
)

func TestTransformModel(t *testing.T) {
	tr := NewTransform(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{}, mgl32.Vec3{2, 2, 2})
	origin := tr.Model.Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	if !origin.ApproxEqual(mgl32.Vec3{1, 0, 0}) {
		t.Errorf("origin -> %v", origin)
	}
	unit := tr.Model.Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3()
	if !unit.ApproxEqual(mgl32.Vec3{3, 0, 0}) {
		t.Errorf("(1,0,0) -> %v", unit)
	}
}

func TestMeshRendererRefs(t *testing.T) {
	dev := headless.New()
	va, err := dev.NewVertexArray(make([]float32, 9), []gfx.Attribute{{Location: 0, Components: 3}}, []uint32{0, 1, 2})
	if err != nil {
		t.Fatal(err)
	}
	dropped := 0
	mesh := NewMesh(va, func() { dropped++ })
	mat := NewMaterial(nil, nil)

	a := &MeshRenderer{Mesh: mesh, Material: mat}
	b := a.Clone()
	if mesh.Refs() != 2 || mat.Refs() != 2 {
		t.Fatalf("refs = %d %d", mesh.Refs(), mat.Refs())
	}
	a.Release()
	if dropped != 0 || dev.Live() != 1 {
		t.Fatalf("dropped early: %d live=%d", dropped, dev.Live())
	}
	b.Release()
	if dropped != 1 || dev.Live() != 0 {
		t.Errorf("dropped = %d live = %d", dropped, dev.Live())
	}
}

func TestCameraTargetOnlyWithEffects(t *testing.T) {
	dev := headless.New()
	c, err := NewCamera(dev, CameraDesc{Width: 800, Height: 600, Near: 0.1, Far: 100,
		Projection: Projection{Kind: Perspective, FovY: mgl32.DegToRad(60)}})
	if err != nil {
		t.Fatal(err)
	}
	if c.Target != nil || dev.Allocated("framebuffer") != 0 {
		t.Error("camera without effects allocated a target")
	}
	if c.Aspect != float32(800)/600 {
		t.Errorf("aspect = %v", c.Aspect)
	}
	if _, err := NewCamera(dev, CameraDesc{}); err == nil {
		t.Error("zero viewport should fail")
	}
}
