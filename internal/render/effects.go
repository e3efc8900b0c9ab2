package render

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberforge/engine/internal/component"
	"github.com/emberforge/engine/internal/gfx"
)

const (
	maxKernelSide   = 7
	maxGaussianSize = 33
)

var ErrKernelSize = errors.New("render: invalid kernel size")

// effectClear is the clear color of effect targets; any pixel left this
// color was never written by the effect.
var effectClear = mgl32.Vec4{1, 0.5, 1, 1}

// Kernel convolves the input with a square kernel in one pass.
type Kernel struct {
	lib    *Library
	kernel []float32
	side   int
	fb     gfx.Framebuffer
}

// NewKernel validates that len(kernel) is the square of an odd number and
// allocates the effect's target.
func NewKernel(lib *Library, kernel []float32, width, height int) (*Kernel, error) {
	side := int(math.Sqrt(float64(len(kernel))))
	if side*side != len(kernel) || side%2 != 1 || side > maxKernelSide {
		return nil, fmt.Errorf("%w: kernel of %d weights is not the square of an odd side <= %d",
			ErrKernelSize, len(kernel), maxKernelSide)
	}
	fb, err := lib.dev.NewFramebuffer(width, height)
	if err != nil {
		return nil, fmt.Errorf("kernel target: %w", err)
	}
	return &Kernel{lib: lib, kernel: append([]float32(nil), kernel...), side: side, fb: fb}, nil
}

// SharpenKernel and EdgeKernel are stock 3x3 kernels.
var (
	SharpenKernel = []float32{0, -1, 0, -1, 5, -1, 0, -1, 0}
	EdgeKernel    = []float32{1, 1, 1, 1, -8, 1, 1, 1, 1}
)

func (k *Kernel) Apply(input gfx.Framebuffer) gfx.Framebuffer {
	k.fb.Bind()
	k.draw(input)
	return k.fb
}

func (k *Kernel) ApplyToScreen(input gfx.Framebuffer) {
	k.lib.dev.Screen().Bind()
	k.draw(input)
}

func (k *Kernel) draw(input gfx.Framebuffer) {
	dev := k.lib.dev
	dev.SetClearColor(effectClear)
	dev.Clear(gfx.ClearAll)

	p := k.lib.Kernel
	p.Use()
	input.Color().Bind(0)
	p.SetInt("screen_texture", 0)
	p.SetFloats("kernel", k.kernel)
	p.SetInt("kernel_side", int32(k.side))

	k.lib.UnitQuad.Bind()
	dev.SetDepth(gfx.DepthState{Test: false})
	dev.DrawArrays(k.lib.UnitQuad, 0, 6)
}

func (k *Kernel) Release() { k.fb.Release() }

// GaussianBlur is a separable blur: a vertical pass into a private target,
// then a horizontal pass into a second target or the screen.
type GaussianBlur struct {
	lib     *Library
	weights []float32
	vPass   gfx.Framebuffer
	hPass   gfx.Framebuffer
}

func NewGaussianBlur(lib *Library, weights []float32, width, height int) (*GaussianBlur, error) {
	if len(weights)%2 != 1 || len(weights) > maxGaussianSize {
		return nil, fmt.Errorf("%w: gaussian kernel of %d weights must be odd and <= %d",
			ErrKernelSize, len(weights), maxGaussianSize)
	}
	v, err := lib.dev.NewFramebuffer(width, height)
	if err != nil {
		return nil, fmt.Errorf("blur vertical target: %w", err)
	}
	h, err := lib.dev.NewFramebuffer(width, height)
	if err != nil {
		v.Release()
		return nil, fmt.Errorf("blur horizontal target: %w", err)
	}
	return &GaussianBlur{lib: lib, weights: append([]float32(nil), weights...), vPass: v, hPass: h}, nil
}

// GaussianWeights returns a normalized 1-D kernel of the given odd size.
func GaussianWeights(size int, sigma float64) []float32 {
	if size < 1 {
		size = 1
	}
	if size%2 == 0 {
		size++
	}
	w := make([]float32, size)
	half := size / 2
	var sum float64
	for i := range w {
		x := float64(i - half)
		v := math.Exp(-x * x / (2 * sigma * sigma))
		w[i] = float32(v)
		sum += v
	}
	for i := range w {
		w[i] = float32(float64(w[i]) / sum)
	}
	return w
}

func (g *GaussianBlur) Apply(input gfx.Framebuffer) gfx.Framebuffer {
	g.draw(input, g.hPass)
	return g.hPass
}

func (g *GaussianBlur) ApplyToScreen(input gfx.Framebuffer) {
	g.draw(input, g.lib.dev.Screen())
}

func (g *GaussianBlur) draw(input, out gfx.Framebuffer) {
	g.pass(input, g.vPass, false)
	g.pass(g.vPass, out, true)
}

func (g *GaussianBlur) pass(src, dst gfx.Framebuffer, horizontal bool) {
	dev := g.lib.dev
	p := g.lib.Gaussian
	p.Use()
	src.Color().Bind(0)
	p.SetInt("screen_texture", 0)
	p.SetFloats("weights", g.weights)
	p.SetInt("weight_count", int32(len(g.weights)))
	if horizontal {
		p.SetInt("horizontal", 1)
	} else {
		p.SetInt("horizontal", 0)
	}
	g.lib.UnitQuad.Bind()

	dst.Bind()
	dev.SetClearColor(effectClear)
	dev.Clear(gfx.ClearAll)
	dev.SetDepth(gfx.DepthState{Test: false})
	dev.DrawArrays(g.lib.UnitQuad, 0, 6)
}

func (g *GaussianBlur) Release() {
	g.vPass.Release()
	g.hPass.Release()
}

var (
	_ component.PostEffect = (*Kernel)(nil)
	_ component.PostEffect = (*GaussianBlur)(nil)
)
