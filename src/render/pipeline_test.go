package render

import (
	"encoding/binary"
	"fmt"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/vulkan-go/vulkan"
)

func TestDefaultPipelineConfig(t *testing.T) {
	config := DefaultPipelineConfig()

	require.Equal(t, vulkan.PrimitiveTopologyTriangleList, config.InputAssembly.Topology)
	require.Equal(t, vulkan.PolygonModeFill, config.Rasterization.PolygonMode)
	require.Equal(t, vulkan.CullModeFlags(vulkan.CullModeNone), config.Rasterization.CullMode)
	require.Equal(t, float32(1.0), config.Rasterization.LineWidth)
	require.Equal(t, vulkan.SampleCount1Bit, config.Multisample.RasterizationSamples)
	require.Equal(t, vulkan.Bool32(vulkan.True), config.DepthStencil.DepthTestEnable)
	require.Equal(t, vulkan.Bool32(vulkan.True), config.DepthStencil.DepthWriteEnable)
	require.Equal(t, vulkan.CompareOpLess, config.DepthStencil.DepthCompareOp)
	require.Equal(t, vulkan.Bool32(vulkan.False), config.ColorBlendAttachment.BlendEnable)

	// Viewport and scissor are dynamic so resizes never touch the pipeline.
	require.Contains(t, config.DynamicStates, vulkan.DynamicStateViewport)
	require.Contains(t, config.DynamicStates, vulkan.DynamicStateScissor)
	require.Equal(t, uint32(1), config.Viewport.ViewportCount)
	require.Equal(t, uint32(1), config.Viewport.ScissorCount)

	require.Equal(t, VertexBindingDescriptions(), config.BindingDescriptions)
	require.Equal(t, VertexAttributeDescriptions(), config.AttributeDescriptions)
}

func TestNewPipelineRejectsIncompleteConfig(t *testing.T) {
	device := &fakeDevice{}

	config := DefaultPipelineConfig()
	_, err := NewPipeline(device, "vert.spv", "frag.spv", config)
	require.ErrorContains(t, err, "layout")

	config.Layout = vulkan.PipelineLayout(unsafe.Pointer(new(int64)))
	_, err = NewPipeline(device, "vert.spv", "frag.spv", config)
	require.ErrorContains(t, err, "render pass")
}

func TestRepackSpirv(t *testing.T) {
	for idx, tc := range []struct {
		input   []byte
		wantErr bool
		words   int
	}{
		{nil, true, 0},
		{[]byte{1, 2, 3}, true, 0},
		{[]byte{1, 2, 3, 4}, false, 1},
		{make([]byte, 16), false, 4},
	} {
		t.Run(fmt.Sprintf("%d/len=%d", idx, len(tc.input)), func(t *testing.T) {
			words, err := repackSpirv(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, words, tc.words)
		})
	}
}

func TestRepackSpirvWordValues(t *testing.T) {
	code := make([]byte, 8)
	binary.LittleEndian.PutUint32(code[0:], 0x07230203) // SPIR-V magic
	binary.LittleEndian.PutUint32(code[4:], 0x00010000)

	words, err := repackSpirv(code)
	require.NoError(t, err)
	require.Equal(t, uint32(0x07230203), words[0])
	require.Equal(t, uint32(0x00010000), words[1])
}
