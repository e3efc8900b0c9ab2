package render

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberforge/engine/internal/component"
	"github.com/emberforge/engine/internal/core/ecs"
	"github.com/emberforge/engine/internal/gfx"
	"github.com/emberforge/engine/internal/mathx"
)

// Draw is one (Transform, MeshRenderer) pair. Outline is nil for entities
// without an Outliner.
type Draw struct {
	Entity    ecs.EntityID
	Transform *component.Transform
	Renderer  *component.MeshRenderer
	Outline   *component.Outliner
}

// Scene is everything one frame draws. A nil Camera renders nothing.
type Scene struct {
	Camera *component.Camera
	Eye    *component.Transform
	Draws  []Draw
	Lights []component.LightSource
}

// Composer sequences the passes of a frame. It must only be used from the
// goroutine that owns the graphics context.
type Composer struct {
	dev    gfx.Device
	lib    *Library
	width  int
	height int
}

func NewComposer(lib *Library, width, height int) *Composer {
	return &Composer{dev: lib.dev, lib: lib, width: width, height: height}
}

var (
	stencilMark = gfx.StencilState{Func: gfx.Always, Ref: 1, ReadMask: 0xFF, WriteMask: 0xFF, Op: gfx.Replace}
	stencilKeep = gfx.StencilState{Func: gfx.Always, Ref: 1, ReadMask: 0xFF, WriteMask: 0x00, Op: gfx.Keep}
	stencilOut  = gfx.StencilState{Func: gfx.NotEqual, Ref: 1, ReadMask: 0xFF, WriteMask: 0x00, Op: gfx.Keep}
)

// ViewMatrix looks from the eye along its forward vector with +Y up.
func ViewMatrix(eye *component.Transform) mgl32.Mat4 {
	return mgl32.LookAtV(eye.Position, eye.Position.Add(eye.Forward()), mgl32.Vec3{0, 1, 0})
}

// Render draws one frame. Returns the number of draw calls issued.
func (c *Composer) Render(s Scene) int {
	if s.Camera == nil || s.Eye == nil {
		return 0
	}
	cam := s.Camera
	view := ViewMatrix(s.Eye)
	proj := cam.ProjectionMatrix()
	if err := c.lib.CameraUBO.Upload(0, gfx.Std140Mat4s(view, proj)); err != nil {
		panic(fmt.Errorf("camera block upload: %w", err))
	}
	c.lib.CameraUBO.BindBase(CameraBinding)

	if len(cam.Effects) == 0 {
		c.dev.Screen().Bind()
	} else {
		cam.Target.Bind()
	}

	c.dev.Viewport(0, 0, c.width, c.height)
	c.dev.SetDepth(gfx.DepthState{Test: true, Func: gfx.Less})
	c.dev.SetStencilTest(true)
	c.dev.SetStencil(gfx.StencilState{Func: gfx.Always, Ref: 1, ReadMask: 0xFF, WriteMask: 0xFF, Op: gfx.Keep})
	bg := cam.Background.Color
	c.dev.SetClearColor(mgl32.Vec4{bg[0], bg[1], bg[2], 1})
	c.dev.Clear(gfx.ClearAll)

	draws := c.opaque(s)
	if cam.Background.Skybox != nil {
		c.skybox(cam.Background.Skybox)
		draws++
	}
	draws += c.outlines(s)

	if n := len(cam.Effects); n > 0 {
		fb := cam.Target
		for _, e := range cam.Effects[:n-1] {
			fb = e.Apply(fb)
		}
		cam.Effects[n-1].ApplyToScreen(fb)
	}
	return draws
}

func (c *Composer) opaque(s Scene) int {
	eye := s.Eye.Position
	n := 0
	for _, d := range s.Draws {
		mesh := d.Renderer.Mesh.VAO
		mesh.Bind()
		data := d.Renderer.Material.Data
		data.BindModel(d.Transform.Model, eye)
		data.BindLights(s.Lights)
		if d.Outline != nil {
			c.dev.SetStencil(stencilMark)
		} else {
			c.dev.SetStencil(stencilKeep)
		}
		c.dev.DrawIndexed(mesh)
		n++
	}
	return n
}

func (c *Composer) skybox(cube gfx.Texture) {
	c.dev.SetStencil(stencilKeep)
	c.dev.SetDepth(gfx.DepthState{Test: true, Func: gfx.LessEqual})

	p := c.lib.CubeMap
	p.Use()
	c.lib.UnitCube.Bind()
	cube.Bind(0)
	p.SetInt("skybox", 0)
	c.dev.DrawArrays(c.lib.UnitCube, 0, 36)
}

func (c *Composer) outlines(s Scene) int {
	c.dev.SetStencil(stencilOut)
	c.dev.SetDepth(gfx.DepthState{Test: false})

	n := 0
	for _, d := range s.Draws {
		if d.Outline == nil {
			continue
		}
		tr := d.Transform
		model := mathx.ModelMatrix(tr.Position, tr.Rotation, tr.Scale.Mul(d.Outline.Scale))
		mesh := d.Renderer.Mesh.VAO
		mesh.Bind()
		OutlineData{lib: c.lib, Color: d.Outline.Color}.BindModel(model, s.Eye.Position)
		c.dev.DrawIndexed(mesh)
		n++
	}
	return n
}
