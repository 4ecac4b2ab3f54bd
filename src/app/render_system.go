package app

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vulkan-go/vulkan"

	"prism/src/render"
	"prism/src/scene"
)

// pushConstants is the per-object data handed to the shaders. Layout must
// match the push constant block in the shaders: a mat4 then a vec4.
type pushConstants struct {
	Transform mgl32.Mat4
	Color     mgl32.Vec4
}

// RenderSystem draws scene objects through one pipeline. It owns the
// pipeline and its layout but not the render pass it was built against; a
// render pass from a rebuilt swap chain with identical formats stays
// compatible.
type RenderSystem struct {
	device render.DeviceContext

	pipeline *render.Pipeline
	layout   vulkan.PipelineLayout
}

// NewRenderSystem builds the object pipeline against the given render pass.
func NewRenderSystem(device render.DeviceContext, renderPass vulkan.RenderPass, vertPath, fragPath string) (*RenderSystem, error) {
	rs := &RenderSystem{device: device}

	pushRange := vulkan.PushConstantRange{
		StageFlags: vulkan.ShaderStageFlags(vulkan.ShaderStageVertexBit | vulkan.ShaderStageFragmentBit),
		Offset:     0,
		Size:       uint32(unsafe.Sizeof(pushConstants{})),
	}
	layoutInfo := vulkan.PipelineLayoutCreateInfo{
		SType:                  vulkan.StructureTypePipelineLayoutCreateInfo,
		PushConstantRangeCount: 1,
		PPushConstantRanges:    []vulkan.PushConstantRange{pushRange},
	}
	if res := vulkan.CreatePipelineLayout(device.Device(), &layoutInfo, nil, &rs.layout); res != vulkan.Success {
		return nil, fmt.Errorf("create pipeline layout: %w", render.NewError(res))
	}

	config := render.DefaultPipelineConfig()
	config.Layout = rs.layout
	config.RenderPass = renderPass

	pipeline, err := render.NewPipeline(device, vertPath, fragPath, config)
	if err != nil {
		vulkan.DestroyPipelineLayout(device.Device(), rs.layout, nil)
		return nil, err
	}
	rs.pipeline = pipeline
	return rs, nil
}

func (rs *RenderSystem) Destroy() {
	rs.pipeline.Destroy()
	vulkan.DestroyPipelineLayout(rs.device.Device(), rs.layout, nil)
}

// RenderObjects records draws for every object carrying a model.
func (rs *RenderSystem) RenderObjects(buffer vulkan.CommandBuffer, objects []*scene.Object, camera *scene.Camera) {
	rs.pipeline.Bind(buffer)

	projView := camera.Projection().Mul4(camera.View())
	for _, object := range objects {
		if object.Model == nil {
			continue
		}
		push := pushConstants{
			Transform: projView.Mul4(object.Transform.Mat4()),
			Color:     object.Color.Vec4(1),
		}
		vulkan.CmdPushConstants(
			buffer,
			rs.layout,
			vulkan.ShaderStageFlags(vulkan.ShaderStageVertexBit|vulkan.ShaderStageFragmentBit),
			0,
			uint32(unsafe.Sizeof(push)),
			unsafe.Pointer(&push),
		)
		object.Model.Bind(buffer)
		object.Model.Draw(buffer)
	}
}
