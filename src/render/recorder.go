package render

import (
	"fmt"

	"github.com/vulkan-go/vulkan"
)

// commandRecorder abstracts command-buffer allocation and recording so the
// frame protocol can be driven without a live device.
type commandRecorder interface {
	Allocate(count int) error
	Free()
	Buffer(slot int) vulkan.CommandBuffer
	Begin(buffer vulkan.CommandBuffer) error
	End(buffer vulkan.CommandBuffer) error
	BeginPass(buffer vulkan.CommandBuffer, pass vulkan.RenderPass, framebuffer vulkan.Framebuffer, extent vulkan.Extent2D)
	EndPass(buffer vulkan.CommandBuffer)
}

// vulkanRecorder records through the device's shared command pool, one
// primary command buffer per frame slot.
type vulkanRecorder struct {
	device  DeviceContext
	buffers []vulkan.CommandBuffer
}

func newVulkanRecorder(device DeviceContext) *vulkanRecorder {
	return &vulkanRecorder{device: device}
}

func (r *vulkanRecorder) Allocate(count int) error {
	allocInfo := vulkan.CommandBufferAllocateInfo{
		SType:              vulkan.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        r.device.CommandPool(),
		Level:              vulkan.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}
	buffers := make([]vulkan.CommandBuffer, count)
	if res := vulkan.AllocateCommandBuffers(r.device.Device(), &allocInfo, buffers); res != vulkan.Success {
		return fmt.Errorf("allocate command buffers: %w", NewError(res))
	}
	r.buffers = buffers
	return nil
}

func (r *vulkanRecorder) Free() {
	if len(r.buffers) == 0 {
		return
	}
	vulkan.FreeCommandBuffers(r.device.Device(), r.device.CommandPool(), uint32(len(r.buffers)), r.buffers)
	r.buffers = nil
}

func (r *vulkanRecorder) Buffer(slot int) vulkan.CommandBuffer {
	return r.buffers[slot]
}

func (r *vulkanRecorder) Begin(buffer vulkan.CommandBuffer) error {
	beginInfo := vulkan.CommandBufferBeginInfo{
		SType: vulkan.StructureTypeCommandBufferBeginInfo,
	}
	if res := vulkan.BeginCommandBuffer(buffer, &beginInfo); res != vulkan.Success {
		return fmt.Errorf("begin command buffer: %w", NewError(res))
	}
	return nil
}

func (r *vulkanRecorder) End(buffer vulkan.CommandBuffer) error {
	if res := vulkan.EndCommandBuffer(buffer); res != vulkan.Success {
		return fmt.Errorf("end command buffer: %w", NewError(res))
	}
	return nil
}

// BeginPass opens the render pass on the framebuffer, clearing color to a
// near-black and depth to the far plane, then sets a full-extent dynamic
// viewport and scissor so pipelines need no rebuild on resize.
func (r *vulkanRecorder) BeginPass(buffer vulkan.CommandBuffer, pass vulkan.RenderPass, framebuffer vulkan.Framebuffer, extent vulkan.Extent2D) {
	clearValues := []vulkan.ClearValue{
		vulkan.NewClearValue([]float32{0.01, 0.01, 0.01, 1.0}),
		vulkan.NewClearDepthStencil(1.0, 0),
	}

	renderPassInfo := vulkan.RenderPassBeginInfo{
		SType:       vulkan.StructureTypeRenderPassBeginInfo,
		RenderPass:  pass,
		Framebuffer: framebuffer,
		RenderArea: vulkan.Rect2D{
			Offset: vulkan.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vulkan.CmdBeginRenderPass(buffer, &renderPassInfo, vulkan.SubpassContentsInline)

	viewport := vulkan.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	scissor := vulkan.Rect2D{
		Offset: vulkan.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}
	vulkan.CmdSetViewport(buffer, 0, 1, []vulkan.Viewport{viewport})
	vulkan.CmdSetScissor(buffer, 0, 1, []vulkan.Rect2D{scissor})
}

func (r *vulkanRecorder) EndPass(buffer vulkan.CommandBuffer) {
	vulkan.CmdEndRenderPass(buffer)
}
