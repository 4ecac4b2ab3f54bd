package scene

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestNewObjectIDs(t *testing.T) {
	a := NewObject()
	b := NewObject()
	c := NewObject()

	require.NotEqual(t, a.ID(), b.ID())
	require.NotEqual(t, b.ID(), c.ID())
	require.Greater(t, c.ID(), a.ID())
}

func TestNewObjectDefaults(t *testing.T) {
	o := NewObject()
	require.Equal(t, mgl32.Vec3{1, 1, 1}, o.Transform.Scale)
	require.Equal(t, mgl32.Vec3{}, o.Transform.Translation)
	require.Equal(t, mgl32.Vec3{}, o.Transform.Rotation)
	require.Nil(t, o.Model)
}

func TestTransformMat4NoRotation(t *testing.T) {
	tr := Transform{
		Translation: mgl32.Vec3{1, 2, 3},
		Scale:       mgl32.Vec3{2, 3, 4},
	}
	want := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.Scale3D(2, 3, 4))
	require.True(t, tr.Mat4().ApproxEqualThreshold(want, eps))
}

func TestTransformMat4YawQuarterTurn(t *testing.T) {
	tr := Transform{
		Scale:    mgl32.Vec3{1, 1, 1},
		Rotation: mgl32.Vec3{0, float32(math.Pi / 2), 0},
	}
	// A quarter turn about Y sends +X to -Z under the Y-down convention.
	moved := tr.Mat4().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	require.InDelta(t, 0, moved.X(), eps)
	require.InDelta(t, 0, moved.Y(), eps)
	require.InDelta(t, -1, moved.Z(), eps)
}

func TestTransformMatchesViewInverse(t *testing.T) {
	position := mgl32.Vec3{0.5, -1, 2}
	rotation := mgl32.Vec3{0.3, 1.1, -0.4}

	tr := Transform{
		Translation: position,
		Scale:       mgl32.Vec3{1, 1, 1},
		Rotation:    rotation,
	}
	c := NewCamera()
	c.SetViewYXZ(position, rotation)

	// The camera view matrix undoes the same Y-X-Z placement.
	require.True(t, c.View().Mul4(tr.Mat4()).ApproxEqualThreshold(mgl32.Ident4(), 1e-4))
}

func TestNormalMatrixUnitScaleEqualsRotation(t *testing.T) {
	tr := Transform{
		Scale:    mgl32.Vec3{1, 1, 1},
		Rotation: mgl32.Vec3{0.2, 0.7, -1.3},
	}
	rotation := tr.Mat4().Mat3()
	require.True(t, tr.NormalMatrix().ApproxEqualThreshold(rotation, eps))
}

func TestNormalMatrixInverseScale(t *testing.T) {
	tr := Transform{Scale: mgl32.Vec3{2, 4, 8}}
	n := tr.NormalMatrix()
	require.InDelta(t, 0.5, n.At(0, 0), eps)
	require.InDelta(t, 0.25, n.At(1, 1), eps)
	require.InDelta(t, 0.125, n.At(2, 2), eps)
}

func BenchmarkTransformMat4(b *testing.B) {
	tr := Transform{
		Translation: mgl32.Vec3{1, 2, 3},
		Scale:       mgl32.Vec3{2, 2, 2},
		Rotation:    mgl32.Vec3{0.3, 0.6, 0.9},
	}
	for i := 0; i < b.N; i++ {
		_ = tr.Mat4()
	}
}
