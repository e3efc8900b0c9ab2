// Package render draws a frame from the active camera: an opaque pass that
// writes the outline stencil mask, an optional skybox, the outline pass and
// the camera's post-processing chain.
package render

import (
	"embed"
	"fmt"

	"github.com/emberforge/engine/internal/gfx"
)

//go:embed shaders
var shaderFS embed.FS

// CameraBinding is the uniform-buffer binding point of the Camera block.
const CameraBinding = 0

// cameraBlockSize is view + projection as two std140 mat4s.
const cameraBlockSize = 2 * 64

// Library holds every program and shared shape the renderer uses. It is
// built once at startup, before the first frame, and passed to whatever
// needs it.
type Library struct {
	Diffuse  gfx.Program
	Outline  gfx.Program
	CubeMap  gfx.Program
	Kernel   gfx.Program
	Gaussian gfx.Program

	UnitCube gfx.VertexArray // 36 positions, drawn with DrawArrays
	UnitQuad gfx.VertexArray // 6 vertices, position + uv in clip space

	CameraUBO gfx.Buffer

	dev gfx.Device
}

// NewLibrary compiles the shader set and uploads the shared shapes. Any
// failure here is fatal to startup.
func NewLibrary(dev gfx.Device) (*Library, error) {
	lib := &Library{dev: dev}
	progs := []struct {
		dst        *gfx.Program
		vert, frag string
	}{
		{&lib.Diffuse, "diffuse.vert", "diffuse.frag"},
		{&lib.Outline, "outline.vert", "outline.frag"},
		{&lib.CubeMap, "cubemap.vert", "cubemap.frag"},
		{&lib.Kernel, "quad.vert", "kernel.frag"},
		{&lib.Gaussian, "quad.vert", "gaussian.frag"},
	}
	for _, p := range progs {
		prog, err := compile(dev, p.vert, p.frag)
		if err != nil {
			return nil, err
		}
		*p.dst = prog
	}

	var err error
	lib.UnitCube, err = dev.NewVertexArray(unitCube, []gfx.Attribute{{Location: 0, Components: 3}}, nil)
	if err != nil {
		return nil, fmt.Errorf("unit cube: %w", err)
	}
	lib.UnitQuad, err = dev.NewVertexArray(unitQuad, []gfx.Attribute{
		{Location: 0, Components: 2},
		{Location: 1, Components: 2},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("unit quad: %w", err)
	}
	lib.CameraUBO, err = dev.NewBuffer(gfx.UniformBuffer, cameraBlockSize, gfx.UsageOften)
	if err != nil {
		return nil, fmt.Errorf("camera ubo: %w", err)
	}
	return lib, nil
}

func compile(dev gfx.Device, vert, frag string) (gfx.Program, error) {
	vs, err := shaderFS.ReadFile("shaders/" + vert)
	if err != nil {
		return nil, err
	}
	fs, err := shaderFS.ReadFile("shaders/" + frag)
	if err != nil {
		return nil, err
	}
	p, err := dev.Compile(string(vs), string(fs))
	if err != nil {
		return nil, fmt.Errorf("compile %s/%s: %w", vert, frag, err)
	}
	return p, nil
}

// Device returns the device the library was built on.
func (l *Library) Device() gfx.Device { return l.dev }

// Release frees the shared shapes and the camera buffer. Programs live as
// long as the graphics context.
func (l *Library) Release() {
	l.UnitCube.Release()
	l.UnitQuad.Release()
	l.CameraUBO.Release()
}

var unitQuad = []float32{
	-1, 1, 0, 1,
	-1, -1, 0, 0,
	1, -1, 1, 0,

	-1, 1, 0, 1,
	1, -1, 1, 0,
	1, 1, 1, 1,
}

var unitCube = []float32{
	-1, 1, -1, -1, -1, -1, 1, -1, -1, 1, -1, -1, 1, 1, -1, -1, 1, -1,
	-1, -1, 1, -1, -1, -1, -1, 1, -1, -1, 1, -1, -1, 1, 1, -1, -1, 1,
	1, -1, -1, 1, -1, 1, 1, 1, 1, 1, 1, 1, 1, 1, -1, 1, -1, -1,
	-1, -1, 1, -1, 1, 1, 1, 1, 1, 1, 1, 1, 1, -1, 1, -1, -1, 1,
	-1, 1, -1, 1, 1, -1, 1, 1, 1, 1, 1, 1, -1, 1, 1, -1, 1, -1,
	-1, -1, -1, -1, -1, 1, 1, -1, -1, 1, -1, -1, -1, -1, 1, 1, -1, 1,
}
