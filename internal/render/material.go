package render

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/emberforge/engine/internal/component"
	"github.com/emberforge/engine/internal/gfx"
)

// AmbientStrength is the unlit fraction of a surface's base color.
const AmbientStrength = 0.5

var lightNames [component.MaxPointLights]struct {
	position, color, intensity, rng string
}

func init() {
	for i := range lightNames {
		lightNames[i].position = fmt.Sprintf("light_position[%d]", i)
		lightNames[i].color = fmt.Sprintf("light_color[%d]", i)
		lightNames[i].intensity = fmt.Sprintf("light_intensity[%d]", i)
		lightNames[i].rng = fmt.Sprintf("light_range[%d]", i)
	}
}

// ColorMaterial is a flat diffuse/specular color surface.
type ColorMaterial struct {
	lib       *Library
	Diffuse   mgl32.Vec3
	Specular  mgl32.Vec3
	Shininess float32
}

func NewColorMaterial(lib *Library, diffuse, specular mgl32.Vec3, shininess float32) *ColorMaterial {
	return &ColorMaterial{lib: lib, Diffuse: diffuse, Specular: specular, Shininess: shininess}
}

// DefaultColorMaterial is the flat grey used when a model has no textures.
func DefaultColorMaterial(lib *Library) *ColorMaterial {
	return NewColorMaterial(lib, mgl32.Vec3{0.7, 0.7, 0.7}, mgl32.Vec3{0.5, 0.5, 0.5}, 32)
}

func (m *ColorMaterial) BindModel(model mgl32.Mat4, eye mgl32.Vec3) {
	p := m.lib.Diffuse
	bindModel(p, model, eye)
	p.SetInt("using_textures", 0)
	p.SetVec3("diffuse_color", m.Diffuse)
	p.SetVec3("specular_color", m.Specular)
	p.SetFloat("shininess", m.Shininess)
}

func (m *ColorMaterial) BindLights(lights []component.LightSource) {
	bindLights(m.lib.Diffuse, lights)
}

// TexturedMaterial samples diffuse, specular and normal maps.
type TexturedMaterial struct {
	lib       *Library
	Diffuse   gfx.Texture
	Specular  gfx.Texture
	Normal    gfx.Texture
	Shininess float32
}

func NewTexturedMaterial(lib *Library, diffuse, specular, normal gfx.Texture, shininess float32) *TexturedMaterial {
	return &TexturedMaterial{lib: lib, Diffuse: diffuse, Specular: specular, Normal: normal, Shininess: shininess}
}

func (m *TexturedMaterial) BindModel(model mgl32.Mat4, eye mgl32.Vec3) {
	p := m.lib.Diffuse
	bindModel(p, model, eye)
	m.Diffuse.Bind(0)
	m.Specular.Bind(1)
	m.Normal.Bind(2)
	p.SetInt("using_textures", 1)
	p.SetInt("diffuse_texture", 0)
	p.SetInt("specular_texture", 1)
	p.SetInt("normal_texture", 2)
	p.SetFloat("shininess", m.Shininess)
}

func (m *TexturedMaterial) BindLights(lights []component.LightSource) {
	bindLights(m.lib.Diffuse, lights)
}

func bindModel(p gfx.Program, model mgl32.Mat4, eye mgl32.Vec3) {
	p.Use()
	p.SetMat4("model", model)
	p.SetVec3("camera_pos", eye)
}

// bindLights binds at most MaxPointLights; the rest are ignored.
func bindLights(p gfx.Program, lights []component.LightSource) {
	if len(lights) > component.MaxPointLights {
		lights = lights[:component.MaxPointLights]
	}
	p.SetFloat("ambient_strength", AmbientStrength)
	p.SetInt("light_count", int32(len(lights)))
	for i, l := range lights {
		n := lightNames[i]
		p.SetVec3(n.position, l.Position)
		p.SetVec3(n.color, l.Light.Color)
		p.SetFloat(n.intensity, l.Light.Intensity)
		p.SetFloat(n.rng, l.Light.Range)
	}
}

// OutlineData draws a flat color with the outline program.
type OutlineData struct {
	lib   *Library
	Color mgl32.Vec3
}

func (o OutlineData) BindModel(model mgl32.Mat4, _ mgl32.Vec3) {
	p := o.lib.Outline
	p.Use()
	p.SetMat4("model", model)
	p.SetVec3("outline_color", o.Color)
}

func (OutlineData) BindLights([]component.LightSource) {}

var (
	_ component.ShaderData = (*ColorMaterial)(nil)
	_ component.ShaderData = (*TexturedMaterial)(nil)
	_ component.ShaderData = OutlineData{}
)
