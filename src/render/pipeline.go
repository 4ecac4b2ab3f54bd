package render

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/vulkan-go/vulkan"
)

// PipelineConfig collects the fixed-function state for a graphics pipeline.
// A zero value is not usable; start from DefaultPipelineConfig and override
// what differs. Layout and RenderPass must be set by the caller before
// NewPipeline.
type PipelineConfig struct {
	BindingDescriptions   []vulkan.VertexInputBindingDescription
	AttributeDescriptions []vulkan.VertexInputAttributeDescription
	InputAssembly         vulkan.PipelineInputAssemblyStateCreateInfo
	Viewport              vulkan.PipelineViewportStateCreateInfo
	Rasterization         vulkan.PipelineRasterizationStateCreateInfo
	Multisample           vulkan.PipelineMultisampleStateCreateInfo
	ColorBlendAttachment  vulkan.PipelineColorBlendAttachmentState
	DepthStencil          vulkan.PipelineDepthStencilStateCreateInfo
	DynamicStates         []vulkan.DynamicState
	Layout                vulkan.PipelineLayout
	RenderPass            vulkan.RenderPass
	Subpass               uint32
}

// DefaultPipelineConfig is the baseline state most pipelines share: triangle
// lists, fill polygons with no culling, depth test with less-than compare,
// no blending, and dynamic viewport plus scissor so the pipeline survives
// window resizes untouched.
func DefaultPipelineConfig() PipelineConfig {
	config := PipelineConfig{
		InputAssembly: vulkan.PipelineInputAssemblyStateCreateInfo{
			SType:                  vulkan.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology:               vulkan.PrimitiveTopologyTriangleList,
			PrimitiveRestartEnable: vulkan.False,
		},
		Viewport: vulkan.PipelineViewportStateCreateInfo{
			SType:         vulkan.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		Rasterization: vulkan.PipelineRasterizationStateCreateInfo{
			SType:                   vulkan.StructureTypePipelineRasterizationStateCreateInfo,
			DepthClampEnable:        vulkan.False,
			RasterizerDiscardEnable: vulkan.False,
			PolygonMode:             vulkan.PolygonModeFill,
			CullMode:                vulkan.CullModeFlags(vulkan.CullModeNone),
			FrontFace:               vulkan.FrontFaceClockwise,
			DepthBiasEnable:         vulkan.False,
			LineWidth:               1.0,
		},
		Multisample: vulkan.PipelineMultisampleStateCreateInfo{
			SType:                vulkan.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vulkan.SampleCount1Bit,
			SampleShadingEnable:  vulkan.False,
			MinSampleShading:     1.0,
		},
		ColorBlendAttachment: vulkan.PipelineColorBlendAttachmentState{
			BlendEnable:         vulkan.False,
			SrcColorBlendFactor: vulkan.BlendFactorOne,
			DstColorBlendFactor: vulkan.BlendFactorZero,
			ColorBlendOp:        vulkan.BlendOpAdd,
			SrcAlphaBlendFactor: vulkan.BlendFactorOne,
			DstAlphaBlendFactor: vulkan.BlendFactorZero,
			AlphaBlendOp:        vulkan.BlendOpAdd,
			ColorWriteMask: vulkan.ColorComponentFlags(
				vulkan.ColorComponentRBit | vulkan.ColorComponentGBit |
					vulkan.ColorComponentBBit | vulkan.ColorComponentABit),
		},
		DepthStencil: vulkan.PipelineDepthStencilStateCreateInfo{
			SType:                 vulkan.StructureTypePipelineDepthStencilStateCreateInfo,
			DepthTestEnable:       vulkan.True,
			DepthWriteEnable:      vulkan.True,
			DepthCompareOp:        vulkan.CompareOpLess,
			DepthBoundsTestEnable: vulkan.False,
			StencilTestEnable:     vulkan.False,
		},
		DynamicStates: []vulkan.DynamicState{
			vulkan.DynamicStateViewport,
			vulkan.DynamicStateScissor,
		},
	}
	config.BindingDescriptions = VertexBindingDescriptions()
	config.AttributeDescriptions = VertexAttributeDescriptions()
	return config
}

// Pipeline wraps a graphics pipeline built from a pair of SPIR-V shaders.
// It does not own the layout or render pass it was built against.
type Pipeline struct {
	device   DeviceContext
	pipeline vulkan.Pipeline
}

// NewPipeline reads the compiled shaders from disk and builds the pipeline.
// The shader modules only ferry bytecode to the driver and are destroyed
// before returning.
func NewPipeline(device DeviceContext, vertPath, fragPath string, config PipelineConfig) (*Pipeline, error) {
	if config.Layout == vulkan.PipelineLayout(vulkan.NullHandle) {
		return nil, fmt.Errorf("pipeline config has no layout")
	}
	if config.RenderPass == vulkan.RenderPass(vulkan.NullHandle) {
		return nil, fmt.Errorf("pipeline config has no render pass")
	}

	vertModule, err := loadShaderModule(device, vertPath)
	if err != nil {
		return nil, err
	}
	defer vulkan.DestroyShaderModule(device.Device(), vertModule, nil)
	fragModule, err := loadShaderModule(device, fragPath)
	if err != nil {
		return nil, err
	}
	defer vulkan.DestroyShaderModule(device.Device(), fragModule, nil)

	shaderStages := []vulkan.PipelineShaderStageCreateInfo{
		{
			SType:  vulkan.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vulkan.ShaderStageVertexBit,
			Module: vertModule,
			PName:  "main\x00",
		},
		{
			SType:  vulkan.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vulkan.ShaderStageFragmentBit,
			Module: fragModule,
			PName:  "main\x00",
		},
	}

	vertexInput := vulkan.PipelineVertexInputStateCreateInfo{
		SType:                           vulkan.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(config.BindingDescriptions)),
		PVertexBindingDescriptions:      config.BindingDescriptions,
		VertexAttributeDescriptionCount: uint32(len(config.AttributeDescriptions)),
		PVertexAttributeDescriptions:    config.AttributeDescriptions,
	}
	colorBlend := vulkan.PipelineColorBlendStateCreateInfo{
		SType:           vulkan.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vulkan.False,
		LogicOp:         vulkan.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vulkan.PipelineColorBlendAttachmentState{config.ColorBlendAttachment},
	}
	dynamicState := vulkan.PipelineDynamicStateCreateInfo{
		SType:             vulkan.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(config.DynamicStates)),
		PDynamicStates:    config.DynamicStates,
	}

	pipelineInfo := vulkan.GraphicsPipelineCreateInfo{
		SType:               vulkan.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(shaderStages)),
		PStages:             shaderStages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &config.InputAssembly,
		PViewportState:      &config.Viewport,
		PRasterizationState: &config.Rasterization,
		PMultisampleState:   &config.Multisample,
		PDepthStencilState:  &config.DepthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              config.Layout,
		RenderPass:          config.RenderPass,
		Subpass:             config.Subpass,
		BasePipelineIndex:   -1,
	}

	var pipelines [1]vulkan.Pipeline
	res := vulkan.CreateGraphicsPipelines(
		device.Device(),
		vulkan.PipelineCache(vulkan.NullHandle),
		1,
		[]vulkan.GraphicsPipelineCreateInfo{pipelineInfo},
		nil,
		pipelines[:],
	)
	if res != vulkan.Success {
		return nil, fmt.Errorf("create graphics pipeline: %w", NewError(res))
	}
	return &Pipeline{device: device, pipeline: pipelines[0]}, nil
}

// Bind binds the pipeline for subsequent draw commands.
func (p *Pipeline) Bind(buffer vulkan.CommandBuffer) {
	vulkan.CmdBindPipeline(buffer, vulkan.PipelineBindPointGraphics, p.pipeline)
}

func (p *Pipeline) Destroy() {
	if p.pipeline != vulkan.Pipeline(vulkan.NullHandle) {
		vulkan.DestroyPipeline(p.device.Device(), p.pipeline, nil)
		p.pipeline = vulkan.Pipeline(vulkan.NullHandle)
	}
}

func loadShaderModule(device DeviceContext, path string) (vulkan.ShaderModule, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return vulkan.ShaderModule(vulkan.NullHandle), fmt.Errorf("read shader %s: %w", path, err)
	}
	words, err := repackSpirv(code)
	if err != nil {
		return vulkan.ShaderModule(vulkan.NullHandle), fmt.Errorf("shader %s: %w", path, err)
	}
	createInfo := vulkan.ShaderModuleCreateInfo{
		SType:    vulkan.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    words,
	}
	var module vulkan.ShaderModule
	if res := vulkan.CreateShaderModule(device.Device(), &createInfo, nil, &module); res != vulkan.Success {
		return vulkan.ShaderModule(vulkan.NullHandle), fmt.Errorf("create shader module %s: %w", path, NewError(res))
	}
	return module, nil
}

// repackSpirv views the byte slice as the []uint32 the binding expects.
// SPIR-V is defined as a stream of 32-bit words, so an odd length means the
// file is not SPIR-V at all.
func repackSpirv(code []byte) ([]uint32, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("invalid SPIR-V length %d", len(code))
	}
	n := len(code) / 4
	return (*[1 << 28]uint32)(unsafe.Pointer(&code[0]))[:n:n], nil
}
