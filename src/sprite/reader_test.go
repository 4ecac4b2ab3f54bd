package sprite

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	input := `3 2
0 4 1
1 1 4
`
	grid, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 3, grid.Width)
	require.Equal(t, 2, grid.Height)
	require.Equal(t, [][]int{{0, 4, 1}, {1, 1, 4}}, grid.Pixels)
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"header too short", "3\n"},
		{"bad width", "x 2\n"},
		{"bad height", "3 y\n"},
		{"zero dimensions", "0 0\n"},
		{"negative dimensions", "-1 2\n"},
		{"missing rows", "3 2\n0 0 0\n"},
		{"short row", "3 2\n0 0\n0 0 0\n"},
		{"long row", "2 1\n0 0 0\n"},
		{"bad pixel", "2 1\n0 q\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.input))
			require.Error(t, err)
		})
	}
}

func TestBuildVerticesQuadPerPixel(t *testing.T) {
	grid := &PixelGrid{
		Width:  2,
		Height: 2,
		Pixels: [][]int{
			{1, 4},
			{4, 2},
		},
	}
	palette := map[int]mgl32.Vec3{
		1: {1, 0, 0},
		2: {0, 1, 0},
	}

	vertices := BuildVertices(grid, palette, 0.5)

	// Two background pixels are skipped; each remaining pixel is 6 vertices.
	require.Len(t, vertices, 12)

	// First pixel quad starts at the centered top-left corner.
	require.Equal(t, mgl32.Vec3{-0.5, -0.5, 0}, vertices[0].Position)
	require.Equal(t, mgl32.Vec3{0, -0.5, 0}, vertices[1].Position)
	require.Equal(t, mgl32.Vec3{-0.5, 0, 0}, vertices[2].Position)
	for i := 0; i < 6; i++ {
		require.Equal(t, mgl32.Vec3{1, 0, 0}, vertices[i].Color)
	}

	// Second kept pixel is row 1 col 1 with the palette color.
	require.Equal(t, mgl32.Vec3{0, 0, 0}, vertices[6].Position)
	for i := 6; i < 12; i++ {
		require.Equal(t, mgl32.Vec3{0, 1, 0}, vertices[i].Color)
	}

	// All z coordinates stay on the sprite plane.
	for _, v := range vertices {
		require.Zero(t, v.Position.Z())
	}
}

func TestBuildVerticesUnknownIndexIsWhite(t *testing.T) {
	grid := &PixelGrid{
		Width:  1,
		Height: 1,
		Pixels: [][]int{{9}},
	}
	vertices := BuildVertices(grid, nil, 0.1)
	require.Len(t, vertices, 6)
	for _, v := range vertices {
		require.Equal(t, mgl32.Vec3{1, 1, 1}, v.Color)
	}
}

func TestBuildVerticesAllBackground(t *testing.T) {
	grid := &PixelGrid{
		Width:  2,
		Height: 1,
		Pixels: [][]int{{BackgroundIndex, BackgroundIndex}},
	}
	require.Empty(t, BuildVertices(grid, nil, 0.1))
}

func TestBuildVerticesWindingOrder(t *testing.T) {
	grid := &PixelGrid{
		Width:  1,
		Height: 1,
		Pixels: [][]int{{0}},
	}
	vertices := BuildVertices(grid, map[int]mgl32.Vec3{0: {1, 1, 1}}, 1)

	// Both triangles share the top-right and bottom-left diagonal.
	require.Equal(t, vertices[1].Position, vertices[3].Position)
	require.Equal(t, vertices[2].Position, vertices[5].Position)
}
