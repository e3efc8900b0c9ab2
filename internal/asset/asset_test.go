package asset

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap/zaptest"

	"github.com/emberforge/engine/internal/gfx/headless"
	"github.com/emberforge/engine/internal/render"
)

type fakeDecoder struct {
	calls map[string]int
}

func (f *fakeDecoder) decode(path string) (int, int, []byte, error) {
	f.calls[path]++
	if path == "missing.png" {
		return 0, 0, nil, errors.New("no such file")
	}
	return 2, 2, make([]byte, 16), nil
}

func newTestBuiltin(t *testing.T) (*headless.Device, *Builtin, *fakeDecoder) {
	t.Helper()
	dev := headless.New()
	lib, err := render.NewLibrary(dev)
	if err != nil {
		t.Fatal(err)
	}
	dec := &fakeDecoder{calls: make(map[string]int)}
	log := zaptest.NewLogger(t)
	return dev, NewBuiltin(lib, NewTextureCache(dev, dec.decode, log), log), dec
}

func TestTextureCacheSharesAndEvicts(t *testing.T) {
	_, b, dec := newTestBuiltin(t)
	c := b.textures

	r1, err := c.Get("stone.png")
	if err != nil {
		t.Fatal(err)
	}
	r2, err := c.Get("stone.png")
	if err != nil {
		t.Fatal(err)
	}
	if r1.Texture != r2.Texture || dec.calls["stone.png"] != 1 {
		t.Fatalf("second Get should share: decodes=%d", dec.calls["stone.png"])
	}

	r1.Release()
	r1.Release() // second release of the same share is ignored
	if c.Len() != 1 {
		t.Fatalf("evicted while shared")
	}
	r2.Release()
	if c.Len() != 0 {
		t.Fatalf("not evicted after last release")
	}

	if _, err := c.Get("stone.png"); err != nil {
		t.Fatal(err)
	}
	if dec.calls["stone.png"] != 2 {
		t.Errorf("evicted texture should be rebuilt, decodes=%d", dec.calls["stone.png"])
	}
}

func TestMaterialFallsBackToColor(t *testing.T) {
	_, b, _ := newTestBuiltin(t)

	m, err := b.Material(MaterialDesc{DiffuseTexture: "d.png", Color: mgl32.Vec3{1, 0, 0}})
	if err != nil {
		t.Fatal(err)
	}
	cm, ok := m.Data.(*render.ColorMaterial)
	if !ok {
		t.Fatalf("material = %T, want color fallback", m.Data)
	}
	if cm.Diffuse != (mgl32.Vec3{1, 0, 0}) || cm.Shininess != 32 {
		t.Errorf("fallback = %+v", cm)
	}
	if b.textures.Len() != 0 {
		t.Error("fallback material should not hold textures")
	}
}

func TestTexturedMaterialReleasesTextures(t *testing.T) {
	_, b, _ := newTestBuiltin(t)
	m, err := b.Material(MaterialDesc{DiffuseTexture: "d.png", SpecularTexture: "s.png", NormalTexture: "d.png"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m.Data.(*render.TexturedMaterial); !ok {
		t.Fatalf("material = %T", m.Data)
	}
	if b.textures.Len() != 2 {
		t.Fatalf("cached textures = %d", b.textures.Len())
	}
	m.Release()
	if b.textures.Len() != 0 {
		t.Errorf("textures left after material release: %d", b.textures.Len())
	}
}

func TestTexturedMaterialLoadFailure(t *testing.T) {
	_, b, _ := newTestBuiltin(t)
	_, err := b.Material(MaterialDesc{DiffuseTexture: "d.png", SpecularTexture: "missing.png", NormalTexture: "n.png"})
	if err == nil {
		t.Fatal("expected error")
	}
	if b.textures.Len() != 0 {
		t.Errorf("partial load leaked %d textures", b.textures.Len())
	}
}

func TestBuiltinMeshCache(t *testing.T) {
	dev, b, _ := newTestBuiltin(t)
	before := dev.Allocated("vertex_array")

	a, err := b.LoadModel("builtin:cube", MaterialDesc{})
	if err != nil {
		t.Fatal(err)
	}
	c, err := b.LoadModel("builtin:cube", MaterialDesc{})
	if err != nil {
		t.Fatal(err)
	}
	if a.Mesh != c.Mesh || dev.Allocated("vertex_array")-before != 1 {
		t.Fatal("cube mesh not shared")
	}
	if a.Mesh.VAO.IndexCount() != 36 || a.Mesh.VAO.VertexCount() != 24 {
		t.Errorf("cube has %d vertices, %d indices", a.Mesh.VAO.VertexCount(), a.Mesh.VAO.IndexCount())
	}

	a.Release()
	c.Release()
	if b.Meshes() != 0 {
		t.Errorf("mesh not evicted")
	}

	if _, err := b.LoadModel("teapot.obj", MaterialDesc{}); err == nil {
		t.Error("unknown model should fail")
	}
}
