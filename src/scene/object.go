package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"prism/src/render"
)

// Transform is an object's placement in the world.
type Transform struct {
	Translation mgl32.Vec3
	Scale       mgl32.Vec3
	Rotation    mgl32.Vec3
}

// Mat4 composes translate * rotateY * rotateX * rotateZ * scale, the
// Tait-Bryan Y-X-Z convention shared with Camera.SetViewYXZ.
func (t *Transform) Mat4() mgl32.Mat4 {
	c3 := float32(math.Cos(float64(t.Rotation.Z())))
	s3 := float32(math.Sin(float64(t.Rotation.Z())))
	c2 := float32(math.Cos(float64(t.Rotation.X())))
	s2 := float32(math.Sin(float64(t.Rotation.X())))
	c1 := float32(math.Cos(float64(t.Rotation.Y())))
	s1 := float32(math.Sin(float64(t.Rotation.Y())))

	return mgl32.Mat4{
		t.Scale.X() * (c1*c3 + s1*s2*s3), t.Scale.X() * (c2 * s3), t.Scale.X() * (c1*s2*s3 - c3*s1), 0,
		t.Scale.Y() * (c3*s1*s2 - c1*s3), t.Scale.Y() * (c2 * c3), t.Scale.Y() * (c1*c3*s2 + s1*s3), 0,
		t.Scale.Z() * (c2 * s1), t.Scale.Z() * (-s2), t.Scale.Z() * (c1 * c2), 0,
		t.Translation.X(), t.Translation.Y(), t.Translation.Z(), 1,
	}
}

// NormalMatrix is the rotation part with inverse scale, for transforming
// normals without shear.
func (t *Transform) NormalMatrix() mgl32.Mat3 {
	c3 := float32(math.Cos(float64(t.Rotation.Z())))
	s3 := float32(math.Sin(float64(t.Rotation.Z())))
	c2 := float32(math.Cos(float64(t.Rotation.X())))
	s2 := float32(math.Sin(float64(t.Rotation.X())))
	c1 := float32(math.Cos(float64(t.Rotation.Y())))
	s1 := float32(math.Sin(float64(t.Rotation.Y())))

	invScale := mgl32.Vec3{1 / t.Scale.X(), 1 / t.Scale.Y(), 1 / t.Scale.Z()}
	return mgl32.Mat3{
		invScale.X() * (c1*c3 + s1*s2*s3), invScale.X() * (c2 * s3), invScale.X() * (c1*s2*s3 - c3*s1),
		invScale.Y() * (c3*s1*s2 - c1*s3), invScale.Y() * (c2 * c3), invScale.Y() * (c1*c3*s2 + s1*s3),
		invScale.Z() * (c2 * s1), invScale.Z() * (-s2), invScale.Z() * (c1 * c2),
	}
}

// Object is one entity in the world: an optional model, a color and a
// transform, tagged with an id unique within its spawning sequence.
type Object struct {
	id        uint32
	Model     *render.Model
	Color     mgl32.Vec3
	Transform Transform
}

func (o *Object) ID() uint32 { return o.id }

var nextObjectID uint32

// NewObject assigns the next id and a unit scale.
func NewObject() Object {
	id := nextObjectID
	nextObjectID++
	return Object{
		id: id,
		Transform: Transform{
			Scale: mgl32.Vec3{1, 1, 1},
		},
	}
}
