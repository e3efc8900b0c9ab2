package component

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberforge/engine/internal/core/ecs"
	"github.com/emberforge/engine/internal/gfx"
)

type ProjectionKind uint8

const (
	Perspective ProjectionKind = iota
	Orthographic
)

// Projection is a vertical field of view in radians for perspective
// cameras, or a half-height for orthographic ones.
type Projection struct {
	Kind ProjectionKind
	FovY float32
	Size float32
}

// Background clears to Color; a non-nil Skybox cube map is drawn behind
// the opaque pass as well.
type Background struct {
	Color  mgl32.Vec3
	Skybox gfx.Texture
}

// PostEffect is one stage of a camera's post-processing chain. Apply
// renders into the effect's own target and returns it; ApplyToScreen
// renders into the screen.
type PostEffect interface {
	Apply(input gfx.Framebuffer) gfx.Framebuffer
	ApplyToScreen(input gfx.Framebuffer)
	Release()
}

type Camera struct {
	Projection Projection
	Aspect     float32
	Near       float32
	Far        float32
	Background Background
	Effects    []PostEffect

	// Target is the offscreen scene target; nil when Effects is empty.
	Target gfx.Framebuffer
}

// CameraDesc is the construction input for NewCamera.
type CameraDesc struct {
	Projection Projection
	Width      int
	Height     int
	Near       float32
	Far        float32
	Background Background
	Effects    []PostEffect
}

// NewCamera allocates the offscreen target only when the camera has
// post-processing effects.
func NewCamera(dev gfx.Device, d CameraDesc) (*Camera, error) {
	if d.Width <= 0 || d.Height <= 0 {
		return nil, fmt.Errorf("camera viewport %dx%d", d.Width, d.Height)
	}
	c := &Camera{
		Projection: d.Projection,
		Aspect:     float32(d.Width) / float32(d.Height),
		Near:       d.Near,
		Far:        d.Far,
		Background: d.Background,
		Effects:    d.Effects,
	}
	if len(d.Effects) > 0 {
		fb, err := dev.NewFramebuffer(d.Width, d.Height)
		if err != nil {
			return nil, fmt.Errorf("camera target: %w", err)
		}
		c.Target = fb
	}
	return c, nil
}

func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	if c.Projection.Kind == Orthographic {
		s := c.Projection.Size
		return mgl32.Ortho(-c.Aspect*s, c.Aspect*s, -s, s, c.Near, c.Far)
	}
	return mgl32.Perspective(c.Projection.FovY, c.Aspect, c.Near, c.Far)
}

func (c *Camera) Release() {
	for _, e := range c.Effects {
		e.Release()
	}
	c.Effects = nil
	if c.Target != nil {
		c.Target.Release()
		c.Target = nil
	}
	if c.Background.Skybox != nil {
		c.Background.Skybox.Release()
		c.Background.Skybox = nil
	}
}

// ActiveCamera names the entity the renderer draws from.
type ActiveCamera struct {
	ecs.Slot[ecs.EntityID]
}
