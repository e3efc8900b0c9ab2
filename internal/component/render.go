package component

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberforge/engine/internal/gfx"
)

// MaxPointLights is how many point lights a draw binds.
const MaxPointLights = 8

// LightSource is a point light resolved to world space for one frame.
type LightSource struct {
	Position mgl32.Vec3
	Light    PointLight
}

// ShaderData binds a material's program and uniforms before a draw.
type ShaderData interface {
	BindModel(model mgl32.Mat4, eye mgl32.Vec3)
	BindLights(lights []LightSource)
}

type refCount struct {
	n    atomic.Int32
	drop func()
}

func (r *refCount) retain() {
	if r.n.Add(1) <= 1 {
		panic("component: retain of released resource")
	}
}

func (r *refCount) release() {
	switch n := r.n.Add(-1); {
	case n == 0:
		if r.drop != nil {
			r.drop()
		}
	case n < 0:
		panic("component: release of released resource")
	}
}

// Mesh is GPU geometry shared by every renderer that draws it.
type Mesh struct {
	VAO gfx.VertexArray
	rc  refCount
}

// NewMesh returns a mesh holding one reference. onDrop runs after the
// last reference is released and the vertex array freed.
func NewMesh(vao gfx.VertexArray, onDrop func()) *Mesh {
	m := &Mesh{VAO: vao}
	m.rc.n.Store(1)
	m.rc.drop = func() {
		vao.Release()
		if onDrop != nil {
			onDrop()
		}
	}
	return m
}

func (m *Mesh) Retain() *Mesh {
	m.rc.retain()
	return m
}

func (m *Mesh) Release()  { m.rc.release() }
func (m *Mesh) Refs() int { return int(m.rc.n.Load()) }

// Material is shader-bound surface data shared between renderers.
type Material struct {
	Data ShaderData
	rc   refCount
}

func NewMaterial(data ShaderData, onDrop func()) *Material {
	m := &Material{Data: data}
	m.rc.n.Store(1)
	m.rc.drop = onDrop
	return m
}

func (m *Material) Retain() *Material {
	m.rc.retain()
	return m
}

func (m *Material) Release()  { m.rc.release() }
func (m *Material) Refs() int { return int(m.rc.n.Load()) }

// MeshRenderer owns one reference to each of its mesh and material.
type MeshRenderer struct {
	Mesh     *Mesh
	Material *Material
}

// Clone returns a renderer sharing the same mesh and material.
func (r *MeshRenderer) Clone() *MeshRenderer {
	return &MeshRenderer{Mesh: r.Mesh.Retain(), Material: r.Material.Retain()}
}

// Release drops this renderer's references. The store calls it when the
// component is removed or replaced.
func (r *MeshRenderer) Release() {
	r.Mesh.Release()
	r.Material.Release()
}

// Outliner marks an entity for the stencil outline pass.
type Outliner struct {
	Scale float32
	Color mgl32.Vec3
}

// InputTag marks entities steered by the fly controls.
type InputTag struct{}
