// Package sprite loads pixel-art character files and turns them into
// renderable meshes. The file format is plain text: a `width height` header
// line followed by height rows of width palette indices.
package sprite

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"prism/src/render"
)

// BackgroundIndex marks pixels that produce no geometry.
const BackgroundIndex = 4

// DefaultPixelSize is the world-space edge length of one pixel quad.
const DefaultPixelSize = 0.02

// PixelGrid is a parsed character file.
type PixelGrid struct {
	Width  int
	Height int
	Pixels [][]int
}

// Load reads and parses a character file from disk.
func Load(path string) (*PixelGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open character file: %w", err)
	}
	defer f.Close()

	grid, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return grid, nil
}

// Parse reads a pixel grid from r. The header names the dimensions; every
// following row must carry exactly width indices.
func Parse(r io.Reader) (*PixelGrid, error) {
	scanner := bufio.NewScanner(r)

	if !scanner.Scan() {
		return nil, fmt.Errorf("missing dimension header")
	}
	header := strings.Fields(scanner.Text())
	if len(header) < 2 {
		return nil, fmt.Errorf("dimension header needs width and height, got %q", scanner.Text())
	}
	width, err := strconv.Atoi(header[0])
	if err != nil {
		return nil, fmt.Errorf("bad width %q: %w", header[0], err)
	}
	height, err := strconv.Atoi(header[1])
	if err != nil {
		return nil, fmt.Errorf("bad height %q: %w", header[1], err)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %dx%d", width, height)
	}

	grid := &PixelGrid{
		Width:  width,
		Height: height,
		Pixels: make([][]int, height),
	}
	for row := 0; row < height; row++ {
		if !scanner.Scan() {
			return nil, fmt.Errorf("file ended at row %d of %d", row, height)
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) != width {
			return nil, fmt.Errorf("row %d has %d values, want %d", row, len(fields), width)
		}
		grid.Pixels[row] = make([]int, width)
		for col, field := range fields {
			value, err := strconv.Atoi(field)
			if err != nil {
				return nil, fmt.Errorf("bad pixel at row %d col %d: %w", row, col, err)
			}
			grid.Pixels[row][col] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return grid, nil
}

// BuildVertices turns the grid into a centered triangle list. Each non
// background pixel becomes a quad of two triangles colored from the
// palette; unknown indices fall back to white.
func BuildVertices(grid *PixelGrid, palette map[int]mgl32.Vec3, pixelSize float32) []render.Vertex {
	totalWidth := float32(grid.Width) * pixelSize
	totalHeight := float32(grid.Height) * pixelSize
	offsetX := -totalWidth / 2
	offsetY := -totalHeight / 2

	var vertices []render.Vertex
	for row := 0; row < grid.Height; row++ {
		for col := 0; col < grid.Width; col++ {
			index := grid.Pixels[row][col]
			if index == BackgroundIndex {
				continue
			}
			color, ok := palette[index]
			if !ok {
				color = mgl32.Vec3{1, 1, 1}
			}

			x := float32(col)*pixelSize + offsetX
			y := float32(row)*pixelSize + offsetY

			topLeft := mgl32.Vec3{x, y, 0}
			topRight := mgl32.Vec3{x + pixelSize, y, 0}
			bottomLeft := mgl32.Vec3{x, y + pixelSize, 0}
			bottomRight := mgl32.Vec3{x + pixelSize, y + pixelSize, 0}

			vertices = append(vertices,
				render.Vertex{Position: topLeft, Color: color},
				render.Vertex{Position: topRight, Color: color},
				render.Vertex{Position: bottomLeft, Color: color},
				render.Vertex{Position: topRight, Color: color},
				render.Vertex{Position: bottomRight, Color: color},
				render.Vertex{Position: bottomLeft, Color: color},
			)
		}
	}
	return vertices
}
