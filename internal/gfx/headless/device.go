// Package headless implements gfx.Device without a GPU. It records every
// state change and draw so a frame can be inspected, and enforces the same
// contract violations a real driver would surface (unknown uniforms,
// incomplete framebuffers, use after release).
package headless

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberforge/engine/internal/gfx"
)

// Call is one recorded device operation.
type Call struct {
	Op     string
	Target gfx.Handle
	Arg    string
}

func (c Call) String() string {
	if c.Arg == "" {
		return fmt.Sprintf("%s(%d)", c.Op, c.Target)
	}
	return fmt.Sprintf("%s(%d, %s)", c.Op, c.Target, c.Arg)
}

// Device is a recording gfx.Device. Not safe for concurrent use, like the
// graphics context it stands in for.
type Device struct {
	next      gfx.Handle
	calls     []Call
	screen    *framebuffer
	bound     gfx.Handle
	allocated map[string]int
	live      map[gfx.Handle]string
	depth     gfx.DepthState
	stencil   gfx.StencilState
}

var _ gfx.Device = (*Device)(nil)

func New() *Device {
	d := &Device{
		allocated: make(map[string]int),
		live:      make(map[gfx.Handle]string),
	}
	d.screen = &framebuffer{dev: d, id: 0, isDefault: true}
	return d
}

func (d *Device) alloc(kind string) gfx.Handle {
	d.next++
	d.allocated[kind]++
	d.live[d.next] = kind
	d.record("alloc_"+kind, d.next, "")
	return d.next
}

func (d *Device) free(id gfx.Handle) {
	if _, ok := d.live[id]; !ok {
		panic(fmt.Sprintf("headless: release of dead object %d", id))
	}
	delete(d.live, id)
	d.record("release", id, "")
}

func (d *Device) use(id gfx.Handle) {
	if _, ok := d.live[id]; !ok {
		panic(fmt.Sprintf("headless: use of released object %d", id))
	}
}

func (d *Device) record(op string, id gfx.Handle, arg string) {
	d.calls = append(d.calls, Call{Op: op, Target: id, Arg: arg})
}

// Calls returns every operation recorded since the last Reset.
func (d *Device) Calls() []Call { return d.calls }

// Reset clears the call log; allocations stay live.
func (d *Device) Reset() { d.calls = d.calls[:0] }

// Allocated returns how many objects of a kind ("framebuffer", "texture",
// "buffer", "vertex_array", "program") were ever created.
func (d *Device) Allocated(kind string) int { return d.allocated[kind] }

// Live returns the number of objects not yet released.
func (d *Device) Live() int { return len(d.live) }

// Bound returns the currently bound framebuffer (0 is the screen).
func (d *Device) Bound() gfx.Handle { return d.bound }

// Count returns how many recorded calls have op.
func (d *Device) Count(op string) int {
	n := 0
	for _, c := range d.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (d *Device) NewBuffer(kind gfx.BufferKind, size int, usage gfx.Usage) (gfx.Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("headless: buffer size %d", size)
	}
	return &buffer{dev: d, id: d.alloc("buffer"), data: make([]byte, size)}, nil
}

func (d *Device) NewVertexArray(vertices []float32, layout []gfx.Attribute, indices []uint32) (gfx.VertexArray, error) {
	stride := 0
	for _, a := range layout {
		stride += a.Components
	}
	if stride == 0 || len(vertices)%stride != 0 {
		return nil, fmt.Errorf("headless: %d floats do not fit stride %d", len(vertices), stride)
	}
	return &vertexArray{
		dev:      d,
		id:       d.alloc("vertex_array"),
		vertices: len(vertices) / stride,
		indices:  len(indices),
	}, nil
}

func (d *Device) NewTexture(width, height int, format gfx.TextureFormat, pixels []byte) (gfx.Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("headless: texture size %dx%d", width, height)
	}
	return &texture{dev: d, id: d.alloc("texture"), w: width, h: height}, nil
}

func (d *Device) NewCubeMap(size int, faces [6][]byte) (gfx.Texture, error) {
	if size <= 0 {
		return nil, fmt.Errorf("headless: cube map size %d", size)
	}
	return &texture{dev: d, id: d.alloc("texture"), w: size, h: size}, nil
}

func (d *Device) NewFramebuffer(width, height int) (gfx.Framebuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: attachments %dx%d", gfx.ErrIncompleteFramebuffer, width, height)
	}
	color, err := d.NewTexture(width, height, gfx.FormatRGBA8, nil)
	if err != nil {
		return nil, err
	}
	return &framebuffer{dev: d, id: d.alloc("framebuffer"), color: color}, nil
}

var uniformDecl = regexp.MustCompile(`uniform\s+\w+\s+(\w+)\s*(\[[^\]]*\])?\s*;`)

func (d *Device) Compile(vertexSource, fragmentSource string) (gfx.Program, error) {
	if !strings.Contains(vertexSource, "main") || !strings.Contains(fragmentSource, "main") {
		return nil, fmt.Errorf("%w: missing entry point", gfx.ErrCompile)
	}
	p := &program{
		dev:      d,
		id:       d.alloc("program"),
		declared: make(map[string]bool),
		values:   make(map[string]any),
	}
	for _, src := range []string{vertexSource, fragmentSource} {
		for _, m := range uniformDecl.FindAllStringSubmatch(src, -1) {
			p.declared[m[1]] = true
		}
	}
	return p, nil
}

func (d *Device) Screen() gfx.Framebuffer { return d.screen }

func (d *Device) Viewport(x, y, width, height int) {
	d.record("viewport", d.bound, fmt.Sprintf("%d,%d,%d,%d", x, y, width, height))
}

func (d *Device) SetClearColor(c mgl32.Vec4) {
	d.record("clear_color", d.bound, fmt.Sprintf("%.2f,%.2f,%.2f,%.2f", c[0], c[1], c[2], c[3]))
}

func (d *Device) Clear(mask gfx.ClearMask) {
	d.record("clear", d.bound, fmt.Sprintf("%03b", mask))
}

func (d *Device) SetDepth(s gfx.DepthState) {
	d.depth = s
	d.record("depth", 0, fmt.Sprintf("test=%t func=%d", s.Test, s.Func))
}

func (d *Device) SetStencilTest(enabled bool) {
	d.record("stencil_test", 0, fmt.Sprintf("%t", enabled))
}

func (d *Device) SetStencil(s gfx.StencilState) {
	d.stencil = s
	d.record("stencil", 0, fmt.Sprintf("func=%d ref=%d mask=%#x op=%d", s.Func, s.Ref, s.WriteMask, s.Op))
}

// Stencil returns the last stencil state set.
func (d *Device) Stencil() gfx.StencilState { return d.stencil }

// Depth returns the last depth state set.
func (d *Device) Depth() gfx.DepthState { return d.depth }

func (d *Device) DrawIndexed(va gfx.VertexArray) {
	d.use(va.ID())
	d.record("draw_indexed", d.bound, fmt.Sprintf("va=%d n=%d", va.ID(), va.IndexCount()))
}

func (d *Device) DrawArrays(va gfx.VertexArray, first, count int) {
	d.use(va.ID())
	d.record("draw_arrays", d.bound, fmt.Sprintf("va=%d first=%d n=%d", va.ID(), first, count))
}
