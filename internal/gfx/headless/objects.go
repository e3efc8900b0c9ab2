package headless

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberforge/engine/internal/gfx"
)

type buffer struct {
	dev  *Device
	id   gfx.Handle
	data []byte
}

func (b *buffer) ID() gfx.Handle { return b.id }
func (b *buffer) Size() int      { return len(b.data) }

func (b *buffer) Upload(offset int, data []byte) error {
	b.dev.use(b.id)
	if offset < 0 || offset+len(data) > len(b.data) {
		return fmt.Errorf("headless: upload [%d,%d) outside buffer of %d bytes", offset, offset+len(data), len(b.data))
	}
	copy(b.data[offset:], data)
	b.dev.record("upload", b.id, fmt.Sprintf("%d+%d", offset, len(data)))
	return nil
}

func (b *buffer) BindBase(point int) {
	b.dev.use(b.id)
	b.dev.record("bind_base", b.id, fmt.Sprint(point))
}

func (b *buffer) Release() { b.dev.free(b.id) }

// Bytes exposes the uploaded contents.
func (b *buffer) Bytes() []byte { return b.data }

type vertexArray struct {
	dev      *Device
	id       gfx.Handle
	vertices int
	indices  int
}

func (v *vertexArray) ID() gfx.Handle   { return v.id }
func (v *vertexArray) VertexCount() int { return v.vertices }
func (v *vertexArray) IndexCount() int  { return v.indices }
func (v *vertexArray) Release()         { v.dev.free(v.id) }

func (v *vertexArray) Bind() {
	v.dev.use(v.id)
	v.dev.record("bind_vertex_array", v.id, "")
}

type texture struct {
	dev  *Device
	id   gfx.Handle
	w, h int
}

func (t *texture) ID() gfx.Handle { return t.id }
func (t *texture) Width() int     { return t.w }
func (t *texture) Height() int    { return t.h }
func (t *texture) Release()       { t.dev.free(t.id) }

func (t *texture) Bind(unit int) {
	t.dev.use(t.id)
	t.dev.record("bind_texture", t.id, fmt.Sprint(unit))
}

type framebuffer struct {
	dev       *Device
	id        gfx.Handle
	color     gfx.Texture
	isDefault bool
}

func (f *framebuffer) ID() gfx.Handle     { return f.id }
func (f *framebuffer) Color() gfx.Texture { return f.color }
func (f *framebuffer) Default() bool      { return f.isDefault }

func (f *framebuffer) Bind() {
	if !f.isDefault {
		f.dev.use(f.id)
	}
	f.dev.bound = f.id
	f.dev.record("bind_framebuffer", f.id, "")
}

func (f *framebuffer) Release() {
	if f.isDefault {
		return
	}
	f.color.Release()
	f.dev.free(f.id)
}

type program struct {
	dev      *Device
	id       gfx.Handle
	declared map[string]bool
	values   map[string]any
}

func (p *program) ID() gfx.Handle { return p.id }

func (p *program) Use() {
	p.dev.use(p.id)
	p.dev.record("use_program", p.id, "")
}

func (p *program) set(name string, v any) {
	base := name
	if i := strings.IndexByte(name, '['); i >= 0 {
		base = name[:i]
	}
	if !p.declared[base] {
		panic(fmt.Errorf("%w: %q in program %d", gfx.ErrUnknownUniform, name, p.id))
	}
	p.values[name] = v
}

func (p *program) SetInt(name string, v int32)        { p.set(name, v) }
func (p *program) SetFloat(name string, v float32)    { p.set(name, v) }
func (p *program) SetFloats(name string, v []float32) { p.set(name, append([]float32(nil), v...)) }
func (p *program) SetVec3(name string, v mgl32.Vec3)  { p.set(name, v) }
func (p *program) SetMat4(name string, v mgl32.Mat4)  { p.set(name, v) }

// Uniform returns the last value set for name on a headless program.
func Uniform(p gfx.Program, name string) (any, bool) {
	hp, ok := p.(*program)
	if !ok {
		return nil, false
	}
	v, ok := hp.values[name]
	return v, ok
}

// BufferBytes returns the contents of a headless buffer.
func BufferBytes(b gfx.Buffer) []byte {
	if hb, ok := b.(*buffer); ok {
		return hb.Bytes()
	}
	return nil
}
