package engine

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/emberforge/engine/internal/asset"
	"github.com/emberforge/engine/internal/component"
	"github.com/emberforge/engine/internal/core/ecs"
	"github.com/emberforge/engine/internal/data"
	"github.com/emberforge/engine/internal/gfx"
	"github.com/emberforge/engine/internal/physics"
	"github.com/emberforge/engine/internal/render"
)

// LoadScene spawns every entity of s. On error the entities spawned so far
// stay in the world and are released by Close.
func (e *Engine) LoadScene(s *data.Scene) error {
	for i := range s.Entities {
		desc := &s.Entities[i]
		if _, err := e.spawn(desc); err != nil {
			return fmt.Errorf("load scene %s: entity %q: %w", s.Name, desc.Name, err)
		}
	}
	if s.ActiveCamera != "" {
		e.Active.Set(e.names[s.ActiveCamera])
	}
	e.log.Info("scene loaded",
		zap.String("scene", s.Name),
		zap.Int("entities", len(s.Entities)),
		zap.String("camera", s.ActiveCamera))
	return nil
}

func (e *Engine) spawn(d *data.EntityDesc) (ecs.EntityID, error) {
	id := e.World.CreateEntity()
	e.spawned = append(e.spawned, id)
	if d.Name != "" {
		e.names[d.Name] = id
		e.entities[id] = d.Name
	}
	st := e.Stores

	if t := d.Transform; t != nil {
		st.Transforms.Insert(id, component.NewTransform(mgl32.Vec3(t.Position), mgl32.Vec3(t.Rotation), mgl32.Vec3(t.ScaleOrOne())))
	}
	if d.RigidBody != nil {
		st.Bodies.Insert(id, rigidBody(d.Name, d.RigidBody))
	}
	if d.Collider != nil {
		st.Colliders.Insert(id, collider(d.Collider))
	}
	if m := d.Model; m != nil {
		mr, err := e.loader.LoadModel(m.Path, materialDesc(m.Material))
		if err != nil {
			return id, err
		}
		st.Renderers.Insert(id, mr)
	}
	if l := d.PointLight; l != nil {
		st.PointLights.Insert(id, &component.PointLight{Color: mgl32.Vec3(l.Color), Range: l.Range, Intensity: l.Intensity})
	}
	if o := d.Outline; o != nil {
		scale := o.Scale
		if scale == 0 {
			scale = e.cfg.Render.OutlineScale
		}
		st.Outliners.Insert(id, &component.Outliner{Scale: scale, Color: mgl32.Vec3(o.Color)})
	}
	if c := d.Camera; c != nil {
		cam, err := e.camera(c)
		if err != nil {
			return id, err
		}
		st.Cameras.Insert(id, cam)
	}
	if d.Input {
		st.InputTags.Insert(id, &component.InputTag{})
	}
	return id, nil
}

func rigidBody(name string, d *data.RigidBodyDesc) *component.RigidBody {
	rb := component.DefaultRigidBody(name)
	switch strings.ToLower(d.Status) {
	case "static":
		rb.Status = physics.Static
	case "kinematic":
		rb.Status = physics.Kinematic
	}
	if d.Mass > 0 {
		rb.Mass = d.Mass
	}
	if d.Gravity != nil {
		rb.Gravity = *d.Gravity
	}
	if d.SleepThreshold != nil {
		th := *d.SleepThreshold
		rb.SleepThreshold = &th
	}
	rb.LinearVelocity = mgl32.Vec3(d.Velocity)
	rb.AngularVelocity = mgl32.Vec3(d.AngularVelocity)
	rb.KinematicTranslations = d.LockTranslation
	rb.KinematicRotations = d.LockRotation
	return rb
}

func collider(d *data.ColliderDesc) *component.Collider {
	mat := physics.DefaultMaterial
	if d.Restitution != nil {
		mat.Restitution = *d.Restitution
	}
	if d.Friction != nil {
		mat.Friction = *d.Friction
	}
	if d.Box != nil {
		return component.BoxCollider(mgl32.Vec3(*d.Box), mat)
	}
	return &component.Collider{Shape: physics.Ball{Radius: *d.Ball}, Material: mat}
}

func materialDesc(d data.MaterialDesc) asset.MaterialDesc {
	m := asset.MaterialDesc{
		DiffuseTexture:  d.DiffuseTexture,
		SpecularTexture: d.SpecularTexture,
		NormalTexture:   d.NormalTexture,
		Shininess:       d.Shininess,
	}
	if d.Color != nil {
		m.Color = mgl32.Vec3(*d.Color)
	}
	if d.Specular != nil {
		m.Specular = mgl32.Vec3(*d.Specular)
	}
	return m
}

func (e *Engine) camera(d *data.CameraDesc) (*component.Camera, error) {
	w, h := e.cfg.Render.Width, e.cfg.Render.Height

	var effects []component.PostEffect
	release := func() {
		for _, fx := range effects {
			fx.Release()
		}
	}
	for _, fd := range d.Effects {
		fx, err := e.effect(fd, w, h)
		if err != nil {
			release()
			return nil, err
		}
		effects = append(effects, fx)
	}

	var skybox gfx.Texture
	if len(d.Background.Skybox) == 6 {
		var faces [6]string
		copy(faces[:], d.Background.Skybox)
		tex, err := asset.LoadCubeMap(e.dev, e.decode, faces)
		if err != nil {
			release()
			return nil, err
		}
		skybox = tex
	}

	proj := component.Projection{Kind: component.Perspective, FovY: mgl32.DegToRad(45), Size: 5}
	if strings.EqualFold(d.Projection, "orthographic") {
		proj.Kind = component.Orthographic
	}
	if d.FovY > 0 {
		proj.FovY = mgl32.DegToRad(d.FovY)
	}
	if d.Size > 0 {
		proj.Size = d.Size
	}
	near, far := d.Near, d.Far
	if near <= 0 {
		near = 0.1
	}
	if far <= near {
		far = 100
	}

	cam, err := component.NewCamera(e.dev, component.CameraDesc{
		Projection: proj,
		Width:      w,
		Height:     h,
		Near:       near,
		Far:        far,
		Background: component.Background{Color: mgl32.Vec3(d.Background.Color), Skybox: skybox},
		Effects:    effects,
	})
	if err != nil {
		release()
		if skybox != nil {
			skybox.Release()
		}
		return nil, err
	}
	return cam, nil
}

func (e *Engine) effect(d data.EffectDesc, w, h int) (component.PostEffect, error) {
	switch d.Kind {
	case "kernel":
		k := d.Weights
		switch strings.ToLower(d.Preset) {
		case "sharpen":
			k = render.SharpenKernel
		case "edge":
			k = render.EdgeKernel
		case "":
		default:
			return nil, fmt.Errorf("unknown kernel preset %q", d.Preset)
		}
		return render.NewKernel(e.lib, k, w, h)
	case "gaussian":
		size, sigma := d.Size, d.Sigma
		if size == 0 {
			size = 9
		}
		if sigma == 0 {
			sigma = 2
		}
		return render.NewGaussianBlur(e.lib, render.GaussianWeights(size, sigma), w, h)
	}
	return nil, fmt.Errorf("unknown effect %q", d.Kind)
}
