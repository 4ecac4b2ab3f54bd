// Package scene holds the CPU-side world: camera, transforms, objects and
// input-driven movement. Conventions follow the render target: right-handed
// with +Y pointing down and depth in [0, 1].
package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera produces the projection and view matrices consumed by render
// systems. Matrices are rebuilt by the setters; the getters are cheap.
type Camera struct {
	projection mgl32.Mat4
	view       mgl32.Mat4
}

func NewCamera() *Camera {
	return &Camera{
		projection: mgl32.Ident4(),
		view:       mgl32.Ident4(),
	}
}

func (c *Camera) Projection() mgl32.Mat4 { return c.projection }
func (c *Camera) View() mgl32.Mat4       { return c.view }

// SetOrthographicProjection maps the box [left,right]x[top,bottom]x[near,far]
// onto clip space with depth in [0, 1].
func (c *Camera) SetOrthographicProjection(left, right, top, bottom, near, far float32) {
	c.projection = mgl32.Mat4{
		2 / (right - left), 0, 0, 0,
		0, 2 / (bottom - top), 0, 0,
		0, 0, 1 / (far - near), 0,
		-(right + left) / (right - left), -(bottom + top) / (bottom - top), -near / (far - near), 1,
	}
}

// SetPerspectiveProjection builds a depth-zero-to-one perspective matrix.
// fovy is the vertical field of view in radians.
func (c *Camera) SetPerspectiveProjection(fovy, aspect, near, far float32) {
	tanHalfFovy := float32(math.Tan(float64(fovy) / 2))
	c.projection = mgl32.Mat4{
		1 / (aspect * tanHalfFovy), 0, 0, 0,
		0, 1 / tanHalfFovy, 0, 0,
		0, 0, far / (far - near), 1,
		0, 0, -(far * near) / (far - near), 0,
	}
}

// SetViewDirection points the camera from position along direction.
func (c *Camera) SetViewDirection(position, direction, up mgl32.Vec3) {
	w := direction.Normalize()
	u := w.Cross(up).Normalize()
	v := w.Cross(u)
	c.setViewBasis(position, u, v, w)
}

// SetViewTarget points the camera from position at target.
func (c *Camera) SetViewTarget(position, target, up mgl32.Vec3) {
	c.SetViewDirection(position, target.Sub(position), up)
}

// SetViewYXZ orients the camera by Tait-Bryan angles applied in Y, X, Z
// order, matching TransformComponent rotations.
func (c *Camera) SetViewYXZ(position, rotation mgl32.Vec3) {
	c3 := float32(math.Cos(float64(rotation.Z())))
	s3 := float32(math.Sin(float64(rotation.Z())))
	c2 := float32(math.Cos(float64(rotation.X())))
	s2 := float32(math.Sin(float64(rotation.X())))
	c1 := float32(math.Cos(float64(rotation.Y())))
	s1 := float32(math.Sin(float64(rotation.Y())))

	u := mgl32.Vec3{c1*c3 + s1*s2*s3, c2 * s3, c1*s2*s3 - c3*s1}
	v := mgl32.Vec3{c3*s1*s2 - c1*s3, c2 * c3, c1*c3*s2 + s1*s3}
	w := mgl32.Vec3{c2 * s1, -s2, c1 * c2}
	c.setViewBasis(position, u, v, w)
}

func (c *Camera) setViewBasis(position, u, v, w mgl32.Vec3) {
	c.view = mgl32.Mat4{
		u.X(), v.X(), w.X(), 0,
		u.Y(), v.Y(), w.Y(), 0,
		u.Z(), v.Z(), w.Z(), 0,
		-u.Dot(position), -v.Dot(position), -w.Dot(position), 1,
	}
}

// DefaultUp is the world up direction under the Y-down convention.
var DefaultUp = mgl32.Vec3{0, -1, 0}
