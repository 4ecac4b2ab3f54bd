package scene

import (
	"fmt"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

const eps = 1e-5

// project runs a point through the matrix and the perspective divide.
func project(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	v := m.Mul4x1(p.Vec4(1))
	return mgl32.Vec3{v.X() / v.W(), v.Y() / v.W(), v.Z() / v.W()}
}

func TestPerspectiveProjectionDepthRange(t *testing.T) {
	c := NewCamera()
	near, far := float32(0.1), float32(100.0)
	c.SetPerspectiveProjection(float32(math.Pi/4), 4.0/3.0, near, far)

	nearPoint := project(c.Projection(), mgl32.Vec3{0, 0, near})
	require.InDelta(t, 0, nearPoint.Z(), eps, "near plane maps to depth 0")

	farPoint := project(c.Projection(), mgl32.Vec3{0, 0, far})
	require.InDelta(t, 1, farPoint.Z(), eps, "far plane maps to depth 1")
}

func TestPerspectiveProjectionAspect(t *testing.T) {
	c := NewCamera()
	c.SetPerspectiveProjection(float32(math.Pi/2), 2.0, 0.1, 10)

	// A point on the edge of the vertical field of view hits y = +/-1.
	edge := project(c.Projection(), mgl32.Vec3{0, 5, 5})
	require.InDelta(t, 1, edge.Y(), eps)

	// The same offset in x lands at half the clip extent at aspect 2.
	side := project(c.Projection(), mgl32.Vec3{5, 0, 5})
	require.InDelta(t, 0.5, side.X(), eps)
}

func TestOrthographicProjection(t *testing.T) {
	c := NewCamera()
	c.SetOrthographicProjection(-2, 2, -1, 1, 0, 10)

	for idx, tc := range []struct {
		in   mgl32.Vec3
		want mgl32.Vec3
	}{
		{mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 0}},
		{mgl32.Vec3{2, 1, 10}, mgl32.Vec3{1, 1, 1}},
		{mgl32.Vec3{-2, -1, 0}, mgl32.Vec3{-1, -1, 0}},
	} {
		t.Run(fmt.Sprintf("%d", idx), func(t *testing.T) {
			got := project(c.Projection(), tc.in)
			require.InDelta(t, tc.want.X(), got.X(), eps)
			require.InDelta(t, tc.want.Y(), got.Y(), eps)
			require.InDelta(t, tc.want.Z(), got.Z(), eps)
		})
	}
}

func TestViewYXZIdentityAtOrigin(t *testing.T) {
	c := NewCamera()
	c.SetViewYXZ(mgl32.Vec3{}, mgl32.Vec3{})
	require.True(t, c.View().ApproxEqualThreshold(mgl32.Ident4(), eps))
}

func TestViewYXZTranslation(t *testing.T) {
	c := NewCamera()
	position := mgl32.Vec3{1, 2, 3}
	c.SetViewYXZ(position, mgl32.Vec3{})

	// With no rotation the view is a pure inverse translation.
	moved := c.View().Mul4x1(position.Vec4(1))
	require.InDelta(t, 0, moved.X(), eps)
	require.InDelta(t, 0, moved.Y(), eps)
	require.InDelta(t, 0, moved.Z(), eps)
}

func TestViewDirectionLooksAlongW(t *testing.T) {
	c := NewCamera()
	position := mgl32.Vec3{0, 0, -5}
	c.SetViewDirection(position, mgl32.Vec3{0, 0, 1}, DefaultUp)

	// A point straight ahead lands on the positive view z axis.
	ahead := c.View().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	require.InDelta(t, 0, ahead.X(), eps)
	require.InDelta(t, 0, ahead.Y(), eps)
	require.InDelta(t, 5, ahead.Z(), eps)
}

func TestViewTargetMatchesDirection(t *testing.T) {
	direction := NewCamera()
	target := NewCamera()
	position := mgl32.Vec3{1, -2, 4}

	direction.SetViewDirection(position, mgl32.Vec3{-1, 2, -4}.Sub(position).Normalize(), DefaultUp)
	target.SetViewTarget(position, mgl32.Vec3{-1, 2, -4}, DefaultUp)

	require.True(t, direction.View().ApproxEqualThreshold(target.View(), eps))
}
