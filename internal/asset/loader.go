// Package asset turns model and texture references into GPU-resident
// meshes and materials. Meshes and textures are shared by reference count
// and evicted from their caches when the last holder lets go.
package asset

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/emberforge/engine/internal/component"
	"github.com/emberforge/engine/internal/gfx"
	"github.com/emberforge/engine/internal/render"
)

// MaterialDesc describes a surface. When any texture path is empty the
// material falls back to flat Color/Specular.
type MaterialDesc struct {
	DiffuseTexture  string
	SpecularTexture string
	NormalTexture   string
	Color           mgl32.Vec3
	Specular        mgl32.Vec3
	Shininess       float32
}

// Loader produces a renderable mesh and material pair.
type Loader interface {
	LoadModel(path string, mat MaterialDesc) (*component.MeshRenderer, error)
}

const builtinPrefix = "builtin:"

// Builtin serves procedural primitives: "builtin:cube" and "builtin:plane".
type Builtin struct {
	dev      gfx.Device
	lib      *render.Library
	textures *TextureCache
	log      *zap.Logger

	mu     sync.Mutex
	meshes map[string]*component.Mesh
}

var _ Loader = (*Builtin)(nil)

func NewBuiltin(lib *render.Library, textures *TextureCache, log *zap.Logger) *Builtin {
	return &Builtin{
		dev:      lib.Device(),
		lib:      lib,
		textures: textures,
		log:      log,
		meshes:   make(map[string]*component.Mesh),
	}
}

func (b *Builtin) LoadModel(path string, desc MaterialDesc) (*component.MeshRenderer, error) {
	mesh, err := b.mesh(path)
	if err != nil {
		return nil, err
	}
	mat, err := b.Material(desc)
	if err != nil {
		mesh.Release()
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return &component.MeshRenderer{Mesh: mesh, Material: mat}, nil
}

func (b *Builtin) mesh(path string) (*component.Mesh, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if m, ok := b.meshes[path]; ok {
		return m.Retain(), nil
	}
	var (
		vertices []float32
		indices  []uint32
	)
	switch strings.TrimPrefix(path, builtinPrefix) {
	case "cube":
		vertices, indices = cubeGeometry()
	case "plane":
		vertices, indices = planeGeometry()
	default:
		return nil, fmt.Errorf("unknown model %q", path)
	}
	va, err := b.dev.NewVertexArray(vertices, vertexLayout, indices)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	m := component.NewMesh(va, func() {
		b.mu.Lock()
		delete(b.meshes, path)
		b.mu.Unlock()
	})
	b.meshes[path] = m
	return m, nil
}

// Material builds a material, sharing textures through the cache. A
// material without a full texture set is a flat color.
func (b *Builtin) Material(desc MaterialDesc) (*component.Material, error) {
	if desc.Shininess == 0 {
		desc.Shininess = 32
	}
	if desc.DiffuseTexture == "" || desc.SpecularTexture == "" || desc.NormalTexture == "" {
		if desc.Color == (mgl32.Vec3{}) {
			return component.NewMaterial(render.DefaultColorMaterial(b.lib), nil), nil
		}
		return component.NewMaterial(render.NewColorMaterial(b.lib, desc.Color, desc.Specular, desc.Shininess), nil), nil
	}

	var refs []*TextureRef
	release := func() {
		for _, r := range refs {
			r.Release()
		}
	}
	for _, p := range []string{desc.DiffuseTexture, desc.SpecularTexture, desc.NormalTexture} {
		r, err := b.textures.Get(p)
		if err != nil {
			release()
			return nil, err
		}
		refs = append(refs, r)
	}
	data := render.NewTexturedMaterial(b.lib, refs[0].Texture, refs[1].Texture, refs[2].Texture, desc.Shininess)
	return component.NewMaterial(data, release), nil
}

// Meshes returns the number of live cached meshes.
func (b *Builtin) Meshes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.meshes)
}

var vertexLayout = []gfx.Attribute{
	{Location: 0, Components: 3},
	{Location: 1, Components: 3},
	{Location: 2, Components: 2},
}

// cubeGeometry is a unit cube centered on the origin, four vertices per
// face so normals stay flat.
func cubeGeometry() ([]float32, []uint32) {
	faces := []struct {
		normal, u, v mgl32.Vec3
	}{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	}
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

	vertices := make([]float32, 0, 24*8)
	indices := make([]uint32, 0, 36)
	for i, f := range faces {
		for _, c := range corners {
			p := f.normal.Add(f.u.Mul(c[0])).Add(f.v.Mul(c[1])).Mul(0.5)
			vertices = append(vertices,
				p[0], p[1], p[2],
				f.normal[0], f.normal[1], f.normal[2],
				(c[0]+1)/2, (c[1]+1)/2)
		}
		base := uint32(i * 4)
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return vertices, indices
}

// planeGeometry is a unit square on the XZ plane facing +Y.
func planeGeometry() ([]float32, []uint32) {
	vertices := []float32{
		-0.5, 0, 0.5, 0, 1, 0, 0, 0,
		0.5, 0, 0.5, 0, 1, 0, 1, 0,
		0.5, 0, -0.5, 0, 1, 0, 1, 1,
		-0.5, 0, -0.5, 0, 1, 0, 0, 1,
	}
	return vertices, []uint32{0, 1, 2, 0, 2, 3}
}
