package render

import (
	"testing"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"

	"github.com/vulkan-go/vulkan"
)

func TestVertexBindingDescriptions(t *testing.T) {
	bindings := VertexBindingDescriptions()
	require.Len(t, bindings, 1)
	require.Equal(t, uint32(0), bindings[0].Binding)
	require.Equal(t, uint32(unsafe.Sizeof(Vertex{})), bindings[0].Stride)
	require.Equal(t, uint32(24), bindings[0].Stride)
	require.Equal(t, vulkan.VertexInputRateVertex, bindings[0].InputRate)
}

func TestVertexAttributeDescriptions(t *testing.T) {
	attrs := VertexAttributeDescriptions()
	require.Len(t, attrs, 2)

	require.Equal(t, uint32(0), attrs[0].Location)
	require.Equal(t, uint32(0), attrs[0].Offset)
	require.Equal(t, vulkan.FormatR32g32b32Sfloat, attrs[0].Format)

	require.Equal(t, uint32(1), attrs[1].Location)
	require.Equal(t, uint32(12), attrs[1].Offset)
	require.Equal(t, vulkan.FormatR32g32b32Sfloat, attrs[1].Format)
}

func TestNewModelRejectsTooFewVertices(t *testing.T) {
	device := &fakeDevice{}

	_, err := NewModel(device, nil)
	require.Error(t, err)

	_, err = NewModel(device, []Vertex{
		{Position: mgl32.Vec3{0, 0, 0}},
		{Position: mgl32.Vec3{1, 0, 0}},
	})
	require.Error(t, err)
}

func TestVerticesToBytes(t *testing.T) {
	vertices := []Vertex{
		{Position: mgl32.Vec3{1, 2, 3}, Color: mgl32.Vec3{0.5, 0.25, 1}},
		{Position: mgl32.Vec3{4, 5, 6}, Color: mgl32.Vec3{0, 1, 0}},
	}
	raw := verticesToBytes(vertices)
	require.Len(t, raw, 2*int(unsafe.Sizeof(Vertex{})))

	// The view aliases the slice, first float of the first vertex included.
	first := *(*float32)(unsafe.Pointer(&raw[0]))
	require.Equal(t, float32(1), first)
}
