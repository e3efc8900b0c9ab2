package headless

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberforge/engine/internal/gfx"
)

const vert = `#version 410 core
uniform mat4 model;
uniform vec3 light_position[8];
void main() {}`

const frag = `#version 410 core
uniform vec3 color;
void main() {}`

func TestUnknownUniformPanics(t *testing.T) {
	d := New()
	p, err := d.Compile(vert, frag)
	if err != nil {
		t.Fatal(err)
	}
	p.SetMat4("model", mgl32.Ident4())
	p.SetVec3("light_position[3]", mgl32.Vec3{1, 2, 3})
	p.SetVec3("color", mgl32.Vec3{})

	defer func() {
		err, _ := recover().(error)
		if !errors.Is(err, gfx.ErrUnknownUniform) {
			t.Fatalf("recovered %v, want ErrUnknownUniform", err)
		}
	}()
	p.SetFloat("shininess", 32)
}

func TestIncompleteFramebuffer(t *testing.T) {
	_, err := New().NewFramebuffer(0, 600)
	if !errors.Is(err, gfx.ErrIncompleteFramebuffer) {
		t.Fatalf("err = %v, want ErrIncompleteFramebuffer", err)
	}
}

func TestFramebufferBindingIsTracked(t *testing.T) {
	d := New()
	fb, err := d.NewFramebuffer(800, 600)
	if err != nil {
		t.Fatal(err)
	}
	fb.Bind()
	if d.Bound() != fb.ID() {
		t.Errorf("Bound = %d, want %d", d.Bound(), fb.ID())
	}
	d.Screen().Bind()
	if d.Bound() != 0 {
		t.Errorf("Bound = %d after screen bind", d.Bound())
	}
	fb.Release()
	if d.Live() != 0 {
		t.Errorf("%d objects leaked", d.Live())
	}
}

func TestUploadBounds(t *testing.T) {
	d := New()
	b, _ := d.NewBuffer(gfx.UniformBuffer, 128, gfx.UsageOften)
	if err := b.Upload(64, make([]byte, 64)); err != nil {
		t.Fatal(err)
	}
	if err := b.Upload(65, make([]byte, 64)); err == nil {
		t.Error("out-of-range upload succeeded")
	}
}
