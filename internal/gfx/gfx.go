// Package gfx is the contract between the engine core and the GPU layer.
// Implementations own all graphics-call sequencing; the core only allocates,
// uploads, binds and draws through these interfaces. Every method must be
// called from the thread owning the graphics context.
package gfx

import (
	"errors"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrUnknownUniform        = errors.New("gfx: unknown uniform")
	ErrIncompleteFramebuffer = errors.New("gfx: framebuffer incomplete")
	ErrCompile               = errors.New("gfx: shader compile failed")
)

// Handle is an opaque GPU object name.
type Handle uint32

type BufferKind uint8

const (
	VertexBuffer BufferKind = iota
	IndexBuffer
	UniformBuffer
)

// Usage hints how often a buffer is rewritten.
type Usage uint8

const (
	UsageStatic Usage = iota
	UsageOften
)

type Buffer interface {
	ID() Handle
	Size() int
	Upload(offset int, data []byte) error
	// BindBase attaches a uniform buffer to a binding point.
	BindBase(point int)
	Release()
}

// Attribute describes one float vertex attribute in an interleaved layout.
type Attribute struct {
	Location   int
	Components int
}

type VertexArray interface {
	ID() Handle
	Bind()
	VertexCount() int
	IndexCount() int
	Release()
}

type TextureFormat uint8

const (
	FormatRGBA8 TextureFormat = iota
	FormatDepthStencil
)

type Texture interface {
	ID() Handle
	Bind(unit int)
	Width() int
	Height() int
	Release()
}

// Framebuffer is a render target. The screen is the default framebuffer.
type Framebuffer interface {
	ID() Handle
	Bind()
	Color() Texture
	Default() bool
	Release()
}

// Program is a linked shader program. Setting a uniform the program does
// not declare is a programming error: implementations panic with an error
// wrapping ErrUnknownUniform.
type Program interface {
	ID() Handle
	Use()
	SetInt(name string, v int32)
	SetFloat(name string, v float32)
	SetFloats(name string, v []float32)
	SetVec3(name string, v mgl32.Vec3)
	SetMat4(name string, v mgl32.Mat4)
}

type CompareFunc uint8

const (
	Always CompareFunc = iota
	Less
	LessEqual
	NotEqual
)

type StencilOp uint8

const (
	Keep StencilOp = iota
	Replace
)

// StencilState is applied as one unit. Op is used for stencil-fail,
// depth-fail and pass alike.
type StencilState struct {
	Func      CompareFunc
	Ref       int
	ReadMask  uint8
	WriteMask uint8
	Op        StencilOp
}

type DepthState struct {
	Test bool
	Func CompareFunc
}

type ClearMask uint8

const (
	ClearColor ClearMask = 1 << iota
	ClearDepth
	ClearStencil
	ClearAll = ClearColor | ClearDepth | ClearStencil
)

// Device allocates GPU resources and sets pipeline state.
type Device interface {
	NewBuffer(kind BufferKind, size int, usage Usage) (Buffer, error)
	NewVertexArray(vertices []float32, layout []Attribute, indices []uint32) (VertexArray, error)
	NewTexture(width, height int, format TextureFormat, pixels []byte) (Texture, error)
	NewCubeMap(size int, faces [6][]byte) (Texture, error)
	// NewFramebuffer creates a color texture plus depth-stencil target.
	NewFramebuffer(width, height int) (Framebuffer, error)
	Compile(vertexSource, fragmentSource string) (Program, error)
	Screen() Framebuffer

	Viewport(x, y, width, height int)
	SetClearColor(c mgl32.Vec4)
	Clear(mask ClearMask)
	SetDepth(s DepthState)
	SetStencilTest(enabled bool)
	SetStencil(s StencilState)
	DrawIndexed(va VertexArray)
	DrawArrays(va VertexArray, first, count int)
}
