package render

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vulkan-go/vulkan"
)

// Vertex is the interleaved per-vertex layout shared by every pipeline in
// the module: position then color, both three floats.
type Vertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
}

// VertexBindingDescriptions describes the single interleaved vertex buffer.
func VertexBindingDescriptions() []vulkan.VertexInputBindingDescription {
	return []vulkan.VertexInputBindingDescription{{
		Binding:   0,
		Stride:    uint32(unsafe.Sizeof(Vertex{})),
		InputRate: vulkan.VertexInputRateVertex,
	}}
}

// VertexAttributeDescriptions maps the Vertex fields to shader locations.
func VertexAttributeDescriptions() []vulkan.VertexInputAttributeDescription {
	return []vulkan.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vulkan.FormatR32g32b32Sfloat, Offset: uint32(unsafe.Offsetof(Vertex{}.Position))},
		{Location: 1, Binding: 0, Format: vulkan.FormatR32g32b32Sfloat, Offset: uint32(unsafe.Offsetof(Vertex{}.Color))},
	}
}

// Model owns a vertex buffer uploaded once at construction and drawn many
// times. Host-visible coherent memory keeps the upload a single map/copy.
type Model struct {
	device      DeviceContext
	buffer      vulkan.Buffer
	memory      vulkan.DeviceMemory
	vertexCount uint32
}

// NewModel uploads the vertices to a fresh vertex buffer.
func NewModel(device DeviceContext, vertices []Vertex) (*Model, error) {
	if len(vertices) < 3 {
		return nil, fmt.Errorf("model needs at least 3 vertices, got %d", len(vertices))
	}

	size := vulkan.DeviceSize(len(vertices)) * vulkan.DeviceSize(unsafe.Sizeof(Vertex{}))
	buffer, memory, err := device.CreateBuffer(
		size,
		vulkan.BufferUsageFlags(vulkan.BufferUsageVertexBufferBit),
		vulkan.MemoryPropertyHostVisibleBit|vulkan.MemoryPropertyHostCoherentBit,
	)
	if err != nil {
		return nil, fmt.Errorf("create vertex buffer: %w", err)
	}

	var data unsafe.Pointer
	if res := vulkan.MapMemory(device.Device(), memory, 0, size, 0, &data); res != vulkan.Success {
		vulkan.DestroyBuffer(device.Device(), buffer, nil)
		vulkan.FreeMemory(device.Device(), memory, nil)
		return nil, fmt.Errorf("map vertex buffer: %w", NewError(res))
	}
	vulkan.Memcopy(data, verticesToBytes(vertices))
	vulkan.UnmapMemory(device.Device(), memory)

	return &Model{
		device:      device,
		buffer:      buffer,
		memory:      memory,
		vertexCount: uint32(len(vertices)),
	}, nil
}

// Bind attaches the vertex buffer to binding 0.
func (m *Model) Bind(buffer vulkan.CommandBuffer) {
	vulkan.CmdBindVertexBuffers(buffer, 0, 1, []vulkan.Buffer{m.buffer}, []vulkan.DeviceSize{0})
}

// Draw issues a non-indexed draw over all vertices.
func (m *Model) Draw(buffer vulkan.CommandBuffer) {
	vulkan.CmdDraw(buffer, m.vertexCount, 1, 0, 0)
}

// VertexCount reports the number of uploaded vertices.
func (m *Model) VertexCount() int {
	return int(m.vertexCount)
}

func (m *Model) Destroy() {
	dev := m.device.Device()
	if m.buffer != vulkan.Buffer(vulkan.NullHandle) {
		vulkan.DestroyBuffer(dev, m.buffer, nil)
		m.buffer = vulkan.Buffer(vulkan.NullHandle)
	}
	if m.memory != vulkan.DeviceMemory(vulkan.NullHandle) {
		vulkan.FreeMemory(dev, m.memory, nil)
		m.memory = vulkan.DeviceMemory(vulkan.NullHandle)
	}
}

func verticesToBytes(vertices []Vertex) []byte {
	size := len(vertices) * int(unsafe.Sizeof(Vertex{}))
	return (*[1 << 28]byte)(unsafe.Pointer(&vertices[0]))[:size:size]
}
